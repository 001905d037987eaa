package models

import "ptx/src/types"

type User struct {
	ID               uint           `gorm:"primarykey" json:"id"`
	UID              string         `gorm:"uniqueIndex" json:"-"`
	Email            string         `gorm:"uniqueIndex" json:"email,omitempty"`
	Name             string         `json:"name,omitempty"`
	Phone            *string        `json:"phone,omitempty"`
	Role             types.UserRole `gorm:"default:'buyer'" json:"role,omitempty"`
	KYCApproved      bool           `json:"kyc_approved"`
	StripeCustomerId *string        `json:"-"`

	types.Timestamps
}
