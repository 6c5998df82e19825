package mocks

import (
	"context"
	"sync/atomic"

	"github.com/laundrotech/intel-gateway/internal/domain"
	"github.com/laundrotech/intel-gateway/internal/ports"
)

// MockIntelClient is a mock implementation of IntelClient
type MockIntelClient struct {
	PreviewFunc  func(ctx context.Context, address string) (*domain.PreviewReport, error)
	PurchaseFunc func(ctx context.Context, address string, depthLevel int) (*domain.PurchaseResult, error)

	PreviewCalls  int64
	PurchaseCalls int64
}

func (m *MockIntelClient) Preview(ctx context.Context, address string) (*domain.PreviewReport, error) {
	atomic.AddInt64(&m.PreviewCalls, 1)
	if m.PreviewFunc != nil {
		return m.PreviewFunc(ctx, address)
	}
	return &domain.PreviewReport{Grade: "B", MarketScore: 70}, nil
}

func (m *MockIntelClient) Purchase(ctx context.Context, address string, depthLevel int) (*domain.PurchaseResult, error) {
	atomic.AddInt64(&m.PurchaseCalls, 1)
	if m.PurchaseFunc != nil {
		return m.PurchaseFunc(ctx, address, depthLevel)
	}
	return &domain.PurchaseResult{
		Report:        &domain.FullReport{Address: address, Grade: "B", MarketScore: 70},
		AmountCharged: 0,
		BillingKind:   domain.BillingOneTime,
	}, nil
}

// MockPaymentGateway is a mock implementation of PaymentGateway
type MockPaymentGateway struct {
	CreatePaymentIntentFunc func(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*ports.PaymentIntent, error)
	ConfirmPaymentFunc      func(ctx context.Context, paymentIntentID string) error
	RefundPaymentFunc       func(ctx context.Context, paymentIntentID string) (string, error)
}

func (m *MockPaymentGateway) CreatePaymentIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*ports.PaymentIntent, error) {
	if m.CreatePaymentIntentFunc != nil {
		return m.CreatePaymentIntentFunc(ctx, amountCents, currency, metadata)
	}
	return &ports.PaymentIntent{
		ID:           "pi_mock",
		ClientSecret: "pi_mock_secret",
		AmountCents:  amountCents,
		Currency:     currency,
		Status:       "requires_payment_method",
	}, nil
}

func (m *MockPaymentGateway) ConfirmPayment(ctx context.Context, paymentIntentID string) error {
	if m.ConfirmPaymentFunc != nil {
		return m.ConfirmPaymentFunc(ctx, paymentIntentID)
	}
	return nil
}

func (m *MockPaymentGateway) RefundPayment(ctx context.Context, paymentIntentID string) (string, error) {
	if m.RefundPaymentFunc != nil {
		return m.RefundPaymentFunc(ctx, paymentIntentID)
	}
	return "re_mock", nil
}
