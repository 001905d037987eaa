package common

import (
	"errors"
	"fmt"
	"ptx/src/types"
)

var (
	ErrNotFound              = errors.New("record not found")
	ErrUnitUnavailable       = errors.New("unit is not available for reservation")
	ErrUnknownPayment        = errors.New("no payment matches the provider reference")
	ErrInvalidRefundAmount   = errors.New("refund amount exceeds the original payment amount")
	ErrInvalidWebhookPayload = errors.New("webhook payload could not be verified or parsed")
	ErrPersistenceConflict   = errors.New("conflicting concurrent update")
)

type InvalidStateTransitionError struct {
	From types.SaleStatus
	To   types.SaleStatus
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}
