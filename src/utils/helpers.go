package utils

import (
	"fmt"
	"log"
	"ptx/src/common"
	"ptx/src/config"
	"ptx/src/db"
	"ptx/src/lib"
	"ptx/src/models"
	"ptx/src/types"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

func WithSuffix(s string) string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s-%s", s, suffix)
}

// NewReferenceNumber builds a human-readable sale reference from the
// development name, e.g. "riverside-quarter-3f2a9c1b".
func NewReferenceNumber(developmentName string) string {
	return strings.ToUpper(WithSuffix(slug.Make(developmentName)))
}

// CreateSale opens an enquiry against a unit. The unit is not held at
// this point: any number of enquiries can reference the same unit, and
// the first buyer whose deposit settles takes the reservation.
func CreateSale(params *types.CreateSaleRequestBody, buyerID uint, agentID *uint) (uint, error) {
	var saleId uint
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var unit models.Unit
		if err := tx.
			Preload("Development").
			Where(&models.Unit{ID: params.UnitID}).
			First(&unit).
			Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return common.ErrNotFound
			}
			return err
		}
		devName := unit.Development.Name
		if devName == "" {
			devName = unit.Number
		}
		sale := models.Sale{
			ReferenceNumber:    NewReferenceNumber(devName),
			UnitID:             unit.ID,
			BuyerID:            buyerID,
			AgentID:            agentID,
			Status:             types.SALE_ENQUIRY,
			Stage:              types.STAGE_ENQUIRY,
			AgreedPrice:        unit.BasePrice,
			OutstandingBalance: unit.BasePrice,
		}
		if err := tx.Create(&sale).Error; err != nil {
			return err
		}
		saleId = sale.ID
		event := models.SaleEvent{
			SaleID:      sale.ID,
			EventType:   "sale_created",
			Description: fmt.Sprintf("enquiry opened for unit %s", unit.Number),
			PerformedBy: fmt.Sprintf("user:%d", buyerID),
			Metadata: types.JSONB{
				"unit_id": unit.ID,
			},
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return 0, err
	}
	return saleId, nil
}

// CreateDepositPayment opens a provider payment intent for the booking
// deposit and moves the sale into the pending window. The reservation
// itself only happens when the provider confirms the payment.
func CreateDepositPayment(saleID uint, amount int64, buyerID uint) (*models.Payment, string, error) {
	var payment models.Payment
	var clientSecret string
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		var sale models.Sale
		if err := tx.
			Preload("Unit").
			Where(&models.Sale{ID: saleID}).
			First(&sale).
			Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return common.ErrNotFound
			}
			return err
		}
		if sale.BuyerID != buyerID {
			return common.ErrNotFound
		}
		intent, err := lib.CreateDepositIntent(amount, config.DefaultCurrency, map[string]string{
			"sale_id":          fmt.Sprint(sale.ID),
			"reference_number": sale.ReferenceNumber,
			"payment_type":     string(types.PAYMENT_BOOKING_DEPOSIT),
		})
		if err != nil {
			log.Printf("Error creating payment intent for sale %d: %s\n", sale.ID, err.Error())
			return err
		}
		clientSecret = intent.ClientSecret
		payment = models.Payment{
			SaleID:            sale.ID,
			Amount:            amount,
			Currency:          string(intent.Currency),
			Type:              types.PAYMENT_BOOKING_DEPOSIT,
			Status:            types.PAYMENT_PENDING,
			ProviderReference: intent.ID,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}
		if _, err := common.TransitionTx(tx, sale.ID, types.SALE_RESERVATION_PENDING, fmt.Sprintf("user:%d", buyerID), "booking deposit initiated"); err != nil {
			return err
		}
		go ScheduleReservationExpiry(&sale)
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return &payment, clientSecret, nil
}

// ScheduleReservationExpiry registers a one-shot job that cancels the
// sale if the reservation is still pending when the validity window
// closes.
func ScheduleReservationExpiry(sale *models.Sale) {
	runsAt := time.Now().Add(time.Duration(config.ReservationValidity) * time.Hour).UTC()
	runDate := time.Date(
		runsAt.Year(),
		runsAt.Month(),
		runsAt.Day(),
		runsAt.Hour(),
		runsAt.Minute(),
		0,
		0,
		runsAt.Location(),
	)
	jobTaskID := uuid.New()
	payloadId := jobTaskID.String()
	jobTask := models.JobTask{
		Name:      fmt.Sprintf("Sale_%d_ReservationExpiry", sale.ID),
		JobType:   "OneTimeJobStartDateTime",
		RunsAt:    runDate,
		PayloadID: payloadId,
		Payload: map[string]any{
			"payloadId":        payloadId,
			"sale_id":          int64(sale.ID),
			"producerClientId": "ReservationExpiryProducer",
			"topic":            "ReservationExpiry",
		},
		Topic: "ReservationExpiry",
	}
	id, err := jobTask.CreateAndEnqueueJobTask(jobTask)
	if err != nil {
		log.Printf("Error creating expiry job for Sale: id=%d error=%s\n", sale.ID, err.Error())
		return
	}
	log.Printf("Created expiry job for Sale[%d] with ID %s\n", sale.ID, id)
}

func applySaleFilters(query *gorm.DB, filters *types.SaleQueryFilters) *gorm.DB {
	if filters == nil {
		return query
	}
	if filters.Status != "" {
		query = query.Where("sales.status = ?", filters.Status)
	}
	if filters.Development != "" {
		query = query.
			Joins("JOIN units ON units.id = sales.unit_id").
			Joins("JOIN developments ON developments.id = units.development_id").
			Where("developments.slug = ?", filters.Development)
	}
	if filters.CreatedAfter != "" {
		if t, err := time.Parse(config.TIME_PARSE_FORMAT, filters.CreatedAfter); err == nil {
			query = query.Where("sales.created_at >= ?", t)
		}
	}
	if filters.CreatedBefore != "" {
		if t, err := time.Parse(config.TIME_PARSE_FORMAT, filters.CreatedBefore); err == nil {
			query = query.Where("sales.created_at <= ?", t)
		}
	}
	return query
}

func GetOwnSales(buyerID uint, filters *types.SaleQueryFilters) ([]models.Sale, error) {
	var sales []models.Sale
	db := db.GetDb()
	query := db.
		Model(&models.Sale{}).
		Preload("Unit").
		Preload("Unit.Development").
		Where("sales.buyer_id = ?", buyerID)
	query = applySaleFilters(query, filters)
	if err := query.Order("sales.created_at DESC").Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func GetAgentSales(agentID uint, filters *types.SaleQueryFilters) ([]models.Sale, error) {
	var sales []models.Sale
	db := db.GetDb()
	query := db.
		Model(&models.Sale{}).
		Preload("Unit").
		Preload("Unit.Development").
		Preload("Buyer").
		Where("sales.agent_id = ?", agentID)
	query = applySaleFilters(query, filters)
	if err := query.Order("sales.created_at DESC").Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}
