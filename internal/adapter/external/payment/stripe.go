package payment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"

	"github.com/laundrotech/intel-gateway/internal/ports"
)

// StripeGateway implements ports.PaymentGateway against Stripe. Tier prices
// are already in cents, so amounts pass through without conversion.
type StripeGateway struct {
	apiKey string
	log    *zap.Logger
}

func NewStripeGateway(apiKey string, log *zap.Logger) ports.PaymentGateway {
	stripe.Key = apiKey
	return &StripeGateway{
		apiKey: apiKey,
		log:    log,
	}
}

func (s *StripeGateway) CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*ports.PaymentIntent, error) {
	if amountCents <= 0 {
		return nil, errors.New("invalid amount")
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	if metadata != nil {
		params.Metadata = make(map[string]string, len(metadata))
		for k, v := range metadata {
			params.Metadata[k] = v
		}
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		s.log.Error("Failed to create payment intent", zap.Error(err))
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	s.log.Info("Payment intent created",
		zap.String("payment_intent_id", pi.ID),
		zap.Int64("amount_cents", amountCents),
		zap.String("status", string(pi.Status)),
	)

	return &ports.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  amountCents,
		Currency:     currency,
		Status:       string(pi.Status),
	}, nil
}

func (s *StripeGateway) ConfirmPayment(ctx context.Context, paymentIntentID string) error {
	if paymentIntentID == "" {
		return errors.New("payment intent ID is required")
	}

	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx

	pi, err := paymentintent.Confirm(paymentIntentID, params)
	if err != nil {
		s.log.Error("Failed to confirm payment", zap.String("payment_intent_id", paymentIntentID), zap.Error(err))
		return fmt.Errorf("stripe: confirm payment: %w", err)
	}

	s.log.Info("Payment confirmed",
		zap.String("payment_intent_id", pi.ID),
		zap.String("status", string(pi.Status)),
	)

	return nil
}

func (s *StripeGateway) RefundPayment(ctx context.Context, paymentIntentID string) (string, error) {
	if paymentIntentID == "" {
		return "", errors.New("payment intent ID is required")
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx

	r, err := refund.New(params)
	if err != nil {
		s.log.Error("Failed to refund payment", zap.String("payment_intent_id", paymentIntentID), zap.Error(err))
		return "", fmt.Errorf("stripe: refund payment: %w", err)
	}

	s.log.Info("Payment refunded",
		zap.String("refund_id", r.ID),
		zap.String("status", string(r.Status)),
	)

	return r.ID, nil
}
