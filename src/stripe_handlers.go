package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"ptx/src/common"
	"ptx/src/db"
	"ptx/src/lib"
	"ptx/src/middlewares"
	"ptx/src/models"
	"ptx/src/types"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"gorm.io/gorm"
)

func stripeWebhookRoute(g *gin.Engine) *gin.RouterGroup {
	apiv1 := apiv1Group(g)
	apiv1.POST("/webhook/stripe", func(ctx *gin.Context) {
		payload, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			log.Printf("Error reading request body: %s\n", err.Error())
			ctx.Status(http.StatusServiceUnavailable)
			return
		}
		whsecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
		event, err := webhook.ConstructEvent(payload, ctx.GetHeader("Stripe-Signature"), whsecret)
		if err != nil {
			log.Printf("Error verifying webhook signature: %s\n", err.Error())
			ctx.JSON(http.StatusBadRequest, gin.H{"error": common.ErrInvalidWebhookPayload.Error()})
			return
		}
		log.Printf("[StripeEvent] %s\n", event.Type)
		if lib.EventSeen(event.ID) {
			log.Printf("[StripeEvent] %s already processed, acking\n", event.ID)
			ctx.Status(http.StatusNoContent)
			return
		}
		switch event.Type {
		case "payment_intent.succeeded":
			var pi stripe.PaymentIntent
			if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
				log.Printf("[Stripe] Error parsing PaymentIntent: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": common.ErrInvalidWebhookPayload.Error()})
				return
			}
			log.Printf("[PaymentIntent] ID: %s %s\n", pi.ID, pi.Status)
			chargeId := ""
			if pi.LatestCharge != nil {
				chargeId = pi.LatestCharge.ID
			}
			_, _, err := common.HandlePaymentSucceeded(pi.ID, chargeId, pi.AmountReceived, "payment-provider")
			if err != nil {
				if errors.Is(err, common.ErrUnknownPayment) {
					// ack so the provider stops retrying, keep the trail
					log.Printf("[StripeEvent] no payment on record for intent %s\n", pi.ID)
					break
				}
				log.Printf("Error applying success event for %s: %s\n", pi.ID, err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
		case "payment_intent.payment_failed":
			var pi stripe.PaymentIntent
			if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
				log.Printf("[Stripe] Error parsing PaymentIntent: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": common.ErrInvalidWebhookPayload.Error()})
				return
			}
			reason := "payment failed"
			if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
				reason = pi.LastPaymentError.Msg
			}
			if _, err := common.HandlePaymentFailed(pi.ID, reason); err != nil {
				if errors.Is(err, common.ErrUnknownPayment) {
					log.Printf("[StripeEvent] no payment on record for intent %s\n", pi.ID)
					break
				}
				log.Printf("Error applying failure event for %s: %s\n", pi.ID, err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
		case "charge.refunded":
			var ch stripe.Charge
			if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
				log.Printf("[Stripe] Error parsing Charge: %s\n", err.Error())
				ctx.JSON(http.StatusBadRequest, gin.H{"error": common.ErrInvalidWebhookPayload.Error()})
				return
			}
			intentId := ""
			if ch.PaymentIntent != nil {
				intentId = ch.PaymentIntent.ID
			}
			_, _, err := common.HandleRefund(ch.ID, intentId, ch.AmountRefunded, "payment-provider")
			if err != nil {
				if errors.Is(err, common.ErrUnknownPayment) {
					log.Printf("[StripeEvent] no payment on record for charge %s\n", ch.ID)
					break
				}
				if errors.Is(err, common.ErrInvalidRefundAmount) {
					log.Printf("[StripeEvent] refund on %s exceeds the original amount, rejecting\n", ch.ID)
					ctx.Status(http.StatusBadRequest)
					return
				}
				log.Printf("Error applying refund event for %s: %s\n", ch.ID, err.Error())
				ctx.Status(http.StatusInternalServerError)
				return
			}
		}
		lib.MarkEventSeen(event.ID)
		ctx.Status(http.StatusNoContent)
	})
	return apiv1
}

func paymentHandlers(g *gin.RouterGroup) *gin.RouterGroup {
	g.
		GET("/payments/:id", func(ctx *gin.Context) {
			id := ctx.Params.ByName("id")
			userId := ctx.GetUint("id")
			var payment models.Payment
			db := db.GetDb()
			if err := db.
				Model(&models.Payment{}).
				Where("id = ?", id).
				Preload("Sale").
				First(&payment).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
				return
			}
			role := types.UserRole(ctx.GetString("role"))
			if role == types.ROLE_BUYER && payment.Sale.BuyerID != userId {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
				return
			}
			ctx.JSON(http.StatusOK, gin.H{"data": payment})
		}).
		POST("/payments/:id/refund", middlewares.RequireRole(types.ROLE_AGENT, types.ROLE_DEVELOPER), func(ctx *gin.Context) {
			id := ctx.Params.ByName("id")
			var body types.RefundPaymentRequestBody
			if err := ctx.ShouldBindJSON(&body); err != nil {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			var payment models.Payment
			db := db.GetDb()
			if err := db.
				Model(&models.Payment{}).
				Where("id = ?", id).
				First(&payment).
				Error; err != nil {
				ctx.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
				return
			}
			if payment.Status != types.PAYMENT_COMPLETED {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "only completed payments can be refunded"})
				return
			}
			if body.Amount > payment.Amount {
				ctx.JSON(http.StatusBadRequest, gin.H{"error": "refund exceeds the original payment amount"})
				return
			}
			refund, err := lib.CreateRefund(payment.ProviderReference, body.Amount)
			if err != nil {
				log.Printf("Error creating refund for payment %s: %s\n", id, err.Error())
				ctx.JSON(http.StatusBadGateway, gin.H{"error": "refund could not be submitted"})
				return
			}
			userId := ctx.GetUint("id")
			event := models.SaleEvent{
				SaleID:      payment.SaleID,
				EventType:   "refund_requested",
				Description: fmt.Sprintf("refund of %d requested for payment %s", body.Amount, payment.ProviderReference),
				PerformedBy: fmt.Sprintf("user:%d", userId),
				Metadata: types.JSONB{
					"refund_id": refund.ID,
					"amount":    body.Amount,
				},
			}
			db.Transaction(func(tx *gorm.DB) error {
				return tx.Create(&event).Error
			})
			// the payment row only changes when the refund webhook lands
			ctx.JSON(http.StatusAccepted, gin.H{"data": gin.H{"refund_id": refund.ID}})
		})
	return g
}
