package models

import (
	"ptx/src/types"
	"time"
)

// Unit is one sellable property within a development. Status is mutated
// only through the availability coordinator; units are never deleted.
type Unit struct {
	ID             uint             `gorm:"primarykey" json:"id"`
	DevelopmentID  uint             `json:"development_id,omitempty"`
	Number         string           `json:"number,omitempty"`
	Type           string           `json:"type,omitempty"`
	Bedrooms       uint8            `json:"bedrooms,omitempty"`
	BasePrice      int64            `json:"base_price"`
	Status         types.UnitStatus `gorm:"default:'available'" json:"status,omitempty"`
	ReservedBy     *uint            `json:"reserved_by,omitempty"`
	ReservedSaleID *uint            `json:"reserved_sale_id,omitempty"`
	ReservedDate   *time.Time       `json:"reserved_date,omitempty"`

	Development Development `json:"development,omitempty"`

	types.Timestamps
}
