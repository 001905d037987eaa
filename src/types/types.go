package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type Metadata map[string]any

// Handler consumes one raw queue message body.
type Handler func(body string)

type UnitStatus string

const (
	UNIT_AVAILABLE UnitStatus = "available"
	UNIT_RESERVED  UnitStatus = "reserved"
	UNIT_SOLD      UnitStatus = "sold"
)

type SaleStatus string

const (
	SALE_ENQUIRY             SaleStatus = "enquiry"
	SALE_RESERVATION_PENDING SaleStatus = "reservation_pending"
	SALE_RESERVED            SaleStatus = "reserved"
	SALE_AGREED              SaleStatus = "sale_agreed"
	SALE_CONTRACT_EXCHANGE   SaleStatus = "contract_exchange"
	SALE_COMPLETED           SaleStatus = "completed"
	SALE_CANCELLED           SaleStatus = "cancelled"
)

// SaleStage is the descriptive phase shown to buyers and agents. It is
// derived from SaleStatus, never set independently.
type SaleStage string

const (
	STAGE_ENQUIRY           SaleStage = "ENQUIRY"
	STAGE_RESERVATION       SaleStage = "RESERVATION"
	STAGE_SALE_AGREED       SaleStage = "SALE_AGREED"
	STAGE_CONTRACT_EXCHANGE SaleStage = "CONTRACT_EXCHANGE"
	STAGE_COMPLETION        SaleStage = "COMPLETION"
	STAGE_CANCELLED         SaleStage = "CANCELLED"
)

type PaymentStatus string

const (
	PAYMENT_PENDING   PaymentStatus = "pending"
	PAYMENT_COMPLETED PaymentStatus = "completed"
	PAYMENT_FAILED    PaymentStatus = "failed"
	PAYMENT_REFUNDED  PaymentStatus = "refunded"
)

type PaymentType string

const (
	PAYMENT_BOOKING_DEPOSIT  PaymentType = "booking_deposit"
	PAYMENT_CONTRACT_DEPOSIT PaymentType = "contract_deposit"
	PAYMENT_STAGE_PAYMENT    PaymentType = "stage_payment"
	PAYMENT_FINAL_PAYMENT    PaymentType = "final_payment"
)

type UserRole string

const (
	ROLE_BUYER     UserRole = "buyer"
	ROLE_AGENT     UserRole = "agent"
	ROLE_DEVELOPER UserRole = "developer"
)

type APIEnv string

const (
	Local      APIEnv = "local"
	Test       APIEnv = "test"
	Production APIEnv = "production"
)

type RegisterUserRequestBody struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role,omitempty"`
}

type NewUnitInput struct {
	Number    string `json:"number" binding:"required"`
	Type      string `json:"type" binding:"required"`
	Bedrooms  uint8  `json:"bedrooms,omitempty"`
	BasePrice int64  `json:"base_price" binding:"required,gt=0"`
}

type CreateDevelopmentRequestBody struct {
	Name        string         `json:"name" binding:"required"`
	Location    string         `json:"location" binding:"required"`
	Description string         `json:"description,omitempty"`
	Units       []NewUnitInput `json:"units" binding:"required,min=1,dive"`
}

type CreateSaleRequestBody struct {
	UnitID uint `json:"unit" binding:"required"`
}

type ReserveSaleRequestBody struct {
	DepositAmount int64 `json:"deposit_amount" binding:"required,gt=0"`
}

type TransitionSaleRequestBody struct {
	Target string `json:"target" binding:"required"`
	Note   string `json:"note,omitempty"`
}

type CancelSaleRequestBody struct {
	Reason string `json:"reason" binding:"required"`
}

type RefundPaymentRequestBody struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type SaleQueryFilters struct {
	Status        string
	Development   string
	CreatedBefore string
	CreatedAfter  string
}
