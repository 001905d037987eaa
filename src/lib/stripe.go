package lib

import (
	"context"
	"os"

	"github.com/stripe/stripe-go/v82"
)

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

// CreateDepositIntent opens a payment intent for a sale deposit. The
// metadata carries the sale reference so webhook events can be matched
// back even when the payment row lookup fails.
func CreateDepositIntent(amount int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	sc := GetStripeClient()
	params := stripe.PaymentIntentCreateParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	intent, err := sc.V1PaymentIntents.Create(context.Background(), &params)
	if err != nil {
		return nil, err
	}
	return intent, nil
}

// CreateRefund asks the provider to refund part or all of a payment
// intent. State only changes when the refund webhook arrives.
func CreateRefund(providerPaymentID string, amount int64) (*stripe.Refund, error) {
	sc := GetStripeClient()
	params := stripe.RefundCreateParams{
		PaymentIntent: stripe.String(providerPaymentID),
		Amount:        stripe.Int64(amount),
	}
	refund, err := sc.V1Refunds.Create(context.Background(), &params)
	if err != nil {
		return nil, err
	}
	return refund, nil
}
