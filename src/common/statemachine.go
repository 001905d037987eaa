package common

import (
	"errors"
	"fmt"
	"log"
	"ptx/src/db"
	"ptx/src/models"
	"ptx/src/types"

	"gorm.io/gorm"
)

// transitionTable is the single source of truth for allowed status moves.
// CANCELLED is reachable from every non-terminal status; COMPLETED and
// CANCELLED are terminal.
var transitionTable = map[types.SaleStatus][]types.SaleStatus{
	types.SALE_ENQUIRY:             {types.SALE_RESERVATION_PENDING, types.SALE_CANCELLED},
	types.SALE_RESERVATION_PENDING: {types.SALE_RESERVED, types.SALE_CANCELLED},
	types.SALE_RESERVED:            {types.SALE_AGREED, types.SALE_CANCELLED},
	types.SALE_AGREED:              {types.SALE_CONTRACT_EXCHANGE, types.SALE_CANCELLED},
	types.SALE_CONTRACT_EXCHANGE:   {types.SALE_COMPLETED, types.SALE_CANCELLED},
	types.SALE_COMPLETED:           {},
	types.SALE_CANCELLED:           {},
}

var stageForStatus = map[types.SaleStatus]types.SaleStage{
	types.SALE_ENQUIRY:             types.STAGE_ENQUIRY,
	types.SALE_RESERVATION_PENDING: types.STAGE_RESERVATION,
	types.SALE_RESERVED:            types.STAGE_RESERVATION,
	types.SALE_AGREED:              types.STAGE_SALE_AGREED,
	types.SALE_CONTRACT_EXCHANGE:   types.STAGE_CONTRACT_EXCHANGE,
	types.SALE_COMPLETED:           types.STAGE_COMPLETION,
	types.SALE_CANCELLED:           types.STAGE_CANCELLED,
}

func CanTransition(from types.SaleStatus, to types.SaleStatus) bool {
	for _, allowed := range transitionTable[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func StageFor(status types.SaleStatus) types.SaleStage {
	return stageForStatus[status]
}

func IsTerminal(status types.SaleStatus) bool {
	return len(transitionTable[status]) == 0
}

// Transition moves a sale to the target status inside its own database
// transaction and emits the matching notification after commit. The actor
// is recorded on the audit event.
func Transition(saleID uint, target types.SaleStatus, actor string, note string) (*models.Sale, error) {
	var sale *models.Sale
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		s, err := TransitionTx(tx, saleID, target, actor, note)
		if err != nil {
			return err
		}
		sale = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	switch target {
	case types.SALE_RESERVED:
		EmitNotification(NOTIFY_RESERVATION_CREATED, sale.ID, types.JSONB{
			"reference_number": sale.ReferenceNumber,
			"unit_id":          sale.UnitID,
			"buyer_id":         sale.BuyerID,
		})
	case types.SALE_CANCELLED:
		EmitNotification(NOTIFY_TRANSACTION_CANCELLED, sale.ID, types.JSONB{
			"reference_number": sale.ReferenceNumber,
			"reason":           note,
		})
	}
	return sale, nil
}

// TransitionTx applies a transition within an existing database transaction
// so callers can bundle it with other writes (unit reservation, payment
// application). Requesting the current status is a no-op; any other move
// not present in the transition table fails without writes.
func TransitionTx(tx *gorm.DB, saleID uint, target types.SaleStatus, actor string, note string) (*models.Sale, error) {
	var sale models.Sale
	if err := tx.
		Where(&models.Sale{ID: saleID}).
		First(&sale).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if sale.Status == target {
		return &sale, nil
	}
	if !CanTransition(sale.Status, target) {
		return nil, &InvalidStateTransitionError{From: sale.Status, To: target}
	}

	from := sale.Status
	stage := StageFor(target)
	if err := tx.
		Model(&models.Sale{}).
		Where("id = ?", sale.ID).
		Updates(map[string]any{"status": target, "stage": stage}).
		Error; err != nil {
		return nil, err
	}
	sale.Status = target
	sale.Stage = stage

	switch target {
	case types.SALE_RESERVED:
		if err := ReserveUnit(tx, sale.UnitID, sale.ID, sale.BuyerID); err != nil {
			return nil, err
		}
	case types.SALE_CANCELLED:
		if err := ReleaseUnit(tx, sale.UnitID, sale.ID); err != nil {
			return nil, err
		}
	case types.SALE_COMPLETED:
		if err := MarkUnitSold(tx, sale.UnitID, sale.ID); err != nil {
			return nil, err
		}
	}

	event := models.SaleEvent{
		SaleID:      sale.ID,
		EventType:   "status_changed",
		Description: fmt.Sprintf("status changed from %s to %s", from, target),
		PerformedBy: actor,
		Metadata: types.JSONB{
			"from": string(from),
			"to":   string(target),
			"note": note,
		},
	}
	if err := tx.Create(&event).Error; err != nil {
		return nil, err
	}
	log.Printf("[StateMachine] sale %d: %s -> %s by %s\n", sale.ID, from, target, actor)
	return &sale, nil
}
