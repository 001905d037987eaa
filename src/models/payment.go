package models

import (
	"ptx/src/types"

	"github.com/google/uuid"
)

// Payment is one monetary movement against a sale. Amounts are integer
// minor units (cents). ProviderReference is the payment-intent id used as
// the idempotency key for webhook delivery; ChargeReference locates the
// payment for refund events.
type Payment struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	SaleID            uint                `json:"sale_id,omitempty"`
	Amount            int64               `json:"amount"`
	Currency          string              `gorm:"default:'eur'" json:"currency,omitempty"`
	Type              types.PaymentType   `json:"type,omitempty"`
	Status            types.PaymentStatus `gorm:"default:'pending'" json:"status,omitempty"`
	ProviderReference string              `gorm:"uniqueIndex" json:"provider_reference,omitempty"`
	ChargeReference   *string             `gorm:"index" json:"charge_reference,omitempty"`
	RefundAmount      int64               `json:"refund_amount"`
	FailureReason     *string             `json:"failure_reason,omitempty"`
	Metadata          types.JSONB         `gorm:"type:jsonb" json:"metadata,omitempty"`

	Sale Sale `json:"-"`

	types.Timestamps
}
