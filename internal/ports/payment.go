package ports

import (
	"context"
)

// PaymentIntent is the provider-side intent handed to the dashboard for
// client-side confirmation.
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	AmountCents  int64  `json:"amount_cents"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*PaymentIntent, error)
	ConfirmPayment(ctx context.Context, paymentIntentID string) error
	RefundPayment(ctx context.Context, paymentIntentID string) (string, error)
}
