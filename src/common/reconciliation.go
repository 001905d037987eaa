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

// SumPaid derives the money applied to a sale from its payment rows:
// completed and refunded payments count for their amount minus any refund.
// The second result is the portion coming from booking deposits.
func SumPaid(payments []models.Payment) (int64, int64) {
	var paid int64
	var deposit int64
	for _, p := range payments {
		if p.Status != types.PAYMENT_COMPLETED && p.Status != types.PAYMENT_REFUNDED {
			continue
		}
		applied := p.Amount - p.RefundAmount
		paid += applied
		if p.Type == types.PAYMENT_BOOKING_DEPOSIT {
			deposit += applied
		}
	}
	return paid, deposit
}

func recomputeSaleTotals(tx *gorm.DB, saleID uint, out *models.Sale) error {
	var payments []models.Payment
	if err := tx.
		Model(&models.Payment{}).
		Where("sale_id = ?", saleID).
		Find(&payments).
		Error; err != nil {
		return err
	}
	var sale models.Sale
	if err := tx.
		Where(&models.Sale{ID: saleID}).
		First(&sale).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	paid, deposit := SumPaid(payments)
	outstanding := sale.AgreedPrice - paid
	if err := tx.
		Model(&models.Sale{}).
		Where("id = ?", saleID).
		Updates(map[string]any{
			"total_paid":          paid,
			"deposit_paid":        deposit,
			"outstanding_balance": outstanding,
		}).
		Error; err != nil {
		return err
	}
	sale.TotalPaid = paid
	sale.DepositPaid = deposit
	sale.OutstandingBalance = outstanding
	*out = sale
	return nil
}

// HandlePaymentSucceeded applies a provider success event. Replayed
// deliveries for an already-settled payment, completed or refunded, are
// acknowledged without writes so funds are never double-counted.
func HandlePaymentSucceeded(providerPaymentID string, chargeID string, amount int64, actor string) (*models.Payment, *models.Sale, error) {
	var payment models.Payment
	var sale models.Sale
	var becameReserved bool
	var applied bool
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where(&models.Payment{ProviderReference: providerPaymentID}).
			First(&payment).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownPayment
			}
			return err
		}
		switch payment.Status {
		case types.PAYMENT_COMPLETED:
			log.Printf("[Reconcile] duplicate success event for %s, ignoring\n", providerPaymentID)
			return tx.Where(&models.Sale{ID: payment.SaleID}).First(&sale).Error
		case types.PAYMENT_REFUNDED:
			// a settled payment is never reopened, refunds included
			log.Printf("[Reconcile] late success event for refunded payment %s, ignoring\n", providerPaymentID)
			return tx.Where(&models.Sale{ID: payment.SaleID}).First(&sale).Error
		}
		applied = true
		updates := map[string]any{"status": types.PAYMENT_COMPLETED}
		if amount > 0 {
			// provider-confirmed amount is authoritative
			updates["amount"] = amount
			payment.Amount = amount
		}
		if chargeID != "" {
			updates["charge_reference"] = chargeID
			payment.ChargeReference = &chargeID
		}
		if err := tx.
			Model(&models.Payment{}).
			Where("id = ?", payment.ID).
			Updates(updates).
			Error; err != nil {
			return err
		}
		payment.Status = types.PAYMENT_COMPLETED

		if err := recomputeSaleTotals(tx, payment.SaleID, &sale); err != nil {
			return err
		}
		if sale.Status == types.SALE_RESERVATION_PENDING && payment.Type == types.PAYMENT_BOOKING_DEPOSIT {
			s, err := TransitionTx(tx, sale.ID, types.SALE_RESERVED, actor, "booking deposit received")
			if err != nil {
				return err
			}
			s.TotalPaid = sale.TotalPaid
			s.DepositPaid = sale.DepositPaid
			s.OutstandingBalance = sale.OutstandingBalance
			sale = *s
			becameReserved = true
		}
		event := models.SaleEvent{
			SaleID:      sale.ID,
			EventType:   "payment_received",
			Description: fmt.Sprintf("payment of %d %s received", payment.Amount, payment.Currency),
			PerformedBy: actor,
			Metadata: types.JSONB{
				"provider_payment_id": providerPaymentID,
				"amount":              payment.Amount,
				"type":                string(payment.Type),
			},
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, nil, err
	}
	if !applied {
		return &payment, &sale, nil
	}
	EmitNotification(NOTIFY_PAYMENT_COMPLETED, sale.ID, types.JSONB{
		"reference_number":    sale.ReferenceNumber,
		"provider_payment_id": providerPaymentID,
		"amount":              payment.Amount,
		"outstanding_balance": sale.OutstandingBalance,
	})
	if becameReserved {
		EmitNotification(NOTIFY_RESERVATION_CREATED, sale.ID, types.JSONB{
			"reference_number": sale.ReferenceNumber,
			"unit_id":          sale.UnitID,
			"buyer_id":         sale.BuyerID,
		})
	}
	return &payment, &sale, nil
}

// HandlePaymentFailed marks a pending payment failed. A failure event
// arriving after the payment already completed is a provider reordering
// artifact and is ignored.
func HandlePaymentFailed(providerPaymentID string, reason string) (*models.Payment, error) {
	var payment models.Payment
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where(&models.Payment{ProviderReference: providerPaymentID}).
			First(&payment).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownPayment
			}
			return err
		}
		switch payment.Status {
		case types.PAYMENT_COMPLETED, types.PAYMENT_REFUNDED:
			log.Printf("[Reconcile] late failure event for settled payment %s, ignoring\n", providerPaymentID)
			return nil
		case types.PAYMENT_FAILED:
			return nil
		}
		if err := tx.
			Model(&models.Payment{}).
			Where("id = ?", payment.ID).
			Updates(map[string]any{
				"status":         types.PAYMENT_FAILED,
				"failure_reason": reason,
			}).
			Error; err != nil {
			return err
		}
		payment.Status = types.PAYMENT_FAILED
		payment.FailureReason = &reason
		event := models.SaleEvent{
			SaleID:      payment.SaleID,
			EventType:   "payment_failed",
			Description: fmt.Sprintf("payment %s failed: %s", providerPaymentID, reason),
			PerformedBy: "payment-provider",
			Metadata: types.JSONB{
				"provider_payment_id": providerPaymentID,
				"reason":              reason,
			},
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// HandleRefund applies a provider refund event located by charge
// reference, falling back to the payment intent when the charge was
// never recorded. A refund above the original amount is surfaced, never
// clamped.
func HandleRefund(providerChargeID string, providerPaymentID string, refundedAmount int64, actor string) (*models.Payment, *models.Sale, error) {
	var payment models.Payment
	var sale models.Sale
	db := db.GetDb()
	err := db.Transaction(func(tx *gorm.DB) error {
		query := tx.Where("charge_reference = ?", providerChargeID)
		if providerPaymentID != "" {
			query = tx.Where("charge_reference = ? OR provider_reference = ?", providerChargeID, providerPaymentID)
		}
		if err := query.
			First(&payment).
			Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownPayment
			}
			return err
		}
		if refundedAmount > payment.Amount {
			return ErrInvalidRefundAmount
		}
		if payment.Status == types.PAYMENT_REFUNDED && payment.RefundAmount == refundedAmount {
			log.Printf("[Reconcile] duplicate refund event for %s, ignoring\n", providerChargeID)
			return tx.Where(&models.Sale{ID: payment.SaleID}).First(&sale).Error
		}
		if payment.Status != types.PAYMENT_COMPLETED && payment.Status != types.PAYMENT_REFUNDED {
			log.Printf("[Reconcile] refund event for unsettled payment %s (%s), ignoring\n", providerChargeID, payment.Status)
			return tx.Where(&models.Sale{ID: payment.SaleID}).First(&sale).Error
		}
		if err := tx.
			Model(&models.Payment{}).
			Where("id = ?", payment.ID).
			Updates(map[string]any{
				"status":        types.PAYMENT_REFUNDED,
				"refund_amount": refundedAmount,
			}).
			Error; err != nil {
			return err
		}
		payment.Status = types.PAYMENT_REFUNDED
		payment.RefundAmount = refundedAmount
		if err := recomputeSaleTotals(tx, payment.SaleID, &sale); err != nil {
			return err
		}
		event := models.SaleEvent{
			SaleID:      sale.ID,
			EventType:   "payment_refunded",
			Description: fmt.Sprintf("refund of %d applied to payment %s", refundedAmount, payment.ProviderReference),
			PerformedBy: actor,
			Metadata: types.JSONB{
				"provider_charge_id": providerChargeID,
				"refund_amount":      refundedAmount,
			},
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return &payment, &sale, nil
}
