package models

import "ptx/src/types"

// Sale is one buyer's purchase process for one unit. TotalPaid and
// OutstandingBalance are derived from completed payments and recomputed by
// the reconciliation handler, never mutated independently. Cancelled sales
// are soft-deleted by status, the row is kept.
type Sale struct {
	ID                 uint             `gorm:"primarykey" json:"id"`
	ReferenceNumber    string           `gorm:"uniqueIndex" json:"reference_number,omitempty"`
	UnitID             uint             `json:"unit_id,omitempty"`
	BuyerID            uint             `json:"buyer_id,omitempty"`
	AgentID            *uint            `json:"agent_id,omitempty"`
	Status             types.SaleStatus `gorm:"default:'enquiry'" json:"status,omitempty"`
	Stage              types.SaleStage  `gorm:"default:'ENQUIRY'" json:"stage,omitempty"`
	AgreedPrice        int64            `json:"agreed_price"`
	DepositPaid        int64            `json:"deposit_paid"`
	TotalPaid          int64            `json:"total_paid"`
	OutstandingBalance int64            `json:"outstanding_balance"`
	Metadata           types.JSONB      `gorm:"type:jsonb" json:"metadata,omitempty"`

	Unit     Unit        `json:"unit,omitempty"`
	Buyer    *User       `gorm:"foreignKey:buyer_id" json:"buyer,omitempty"`
	Agent    *User       `gorm:"foreignKey:agent_id" json:"agent,omitempty"`
	Payments []Payment   `json:"payments,omitempty"`
	Events   []SaleEvent `json:"events,omitempty"`

	types.Timestamps
}
