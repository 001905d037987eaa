package common

import (
	"errors"
	"log"
	"ptx/src/models"
	"ptx/src/types"
	"time"

	"gorm.io/gorm"
)

// ReserveUnit claims a unit for a sale with a conditional update so two
// concurrent reservation attempts cannot both observe an available unit.
// Must run inside the same transaction as the sale status write.
func ReserveUnit(tx *gorm.DB, unitID uint, saleID uint, buyerID uint) error {
	now := time.Now()
	res := tx.
		Model(&models.Unit{}).
		Where("id = ? AND status = ?", unitID, types.UNIT_AVAILABLE).
		Updates(map[string]any{
			"status":           types.UNIT_RESERVED,
			"reserved_by":      buyerID,
			"reserved_sale_id": saleID,
			"reserved_date":    now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var unit models.Unit
		if err := tx.
			Select("id", "status").
			Where("id = ?", unitID).
			First(&unit).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		return ErrUnitUnavailable
	}
	return nil
}

// ReleaseUnit reverts a unit to available when the cancelling sale still
// owns the reservation. A stale cancel for a unit that has since been
// reserved by another sale is a logged anomaly, not an error.
func ReleaseUnit(tx *gorm.DB, unitID uint, saleID uint) error {
	res := tx.
		Model(&models.Unit{}).
		Where("id = ? AND status = ? AND reserved_sale_id = ?", unitID, types.UNIT_RESERVED, saleID).
		Updates(map[string]any{
			"status":           types.UNIT_AVAILABLE,
			"reserved_by":      nil,
			"reserved_sale_id": nil,
			"reserved_date":    nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		log.Printf("[Availability] unit %d is not held by sale %d, leaving it untouched\n", unitID, saleID)
	}
	return nil
}

// MarkUnitSold finalizes the unit when its sale completes. The reservation
// must still point at the completing sale.
func MarkUnitSold(tx *gorm.DB, unitID uint, saleID uint) error {
	res := tx.
		Model(&models.Unit{}).
		Where("id = ? AND status = ? AND reserved_sale_id = ?", unitID, types.UNIT_RESERVED, saleID).
		Update("status", types.UNIT_SOLD)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrPersistenceConflict
	}
	return nil
}
