package models

import (
	"ptx/src/types"
	"time"

	"github.com/google/uuid"
)

// SaleEvent is an append-only audit entry. Rows are only ever created.
type SaleEvent struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	SaleID      uint        `gorm:"index" json:"sale_id,omitempty"`
	EventType   string      `json:"event_type,omitempty"`
	Description string      `json:"description,omitempty"`
	Metadata    types.JSONB `gorm:"type:jsonb" json:"metadata,omitempty"`
	PerformedBy string      `json:"performed_by,omitempty"`
	CreatedAt   time.Time   `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
}
