package mocks

import (
	"context"

	"github.com/laundrotech/intel-gateway/internal/domain"
	"github.com/laundrotech/intel-gateway/internal/ports"
)

// MockBillingService is a mock implementation of BillingService
type MockBillingService struct {
	CreateTierIntentFunc func(ctx context.Context, userID string, level int) (*ports.PaymentIntent, error)
	RecordCompletedFunc  func(ctx context.Context, userID, sessionID, address string, tier domain.DepthTier, result *domain.PurchaseResult) (*domain.Purchase, error)
	RecordFailedFunc     func(ctx context.Context, userID, sessionID, address string, tier domain.DepthTier, reason string) error
	GetHistoryFunc       func(ctx context.Context, userID string, limit, offset int) ([]domain.Purchase, error)
	RefundPurchaseFunc   func(ctx context.Context, purchaseID, reason string) (*domain.Purchase, error)

	Completed []string // session ids passed to RecordCompleted
	Failed    []string // session ids passed to RecordFailed
}

func (m *MockBillingService) CreateTierIntent(ctx context.Context, userID string, level int) (*ports.PaymentIntent, error) {
	if m.CreateTierIntentFunc != nil {
		return m.CreateTierIntentFunc(ctx, userID, level)
	}
	return &ports.PaymentIntent{ID: "pi_mock", ClientSecret: "secret"}, nil
}

func (m *MockBillingService) RecordCompleted(ctx context.Context, userID, sessionID, address string, tier domain.DepthTier, result *domain.PurchaseResult) (*domain.Purchase, error) {
	m.Completed = append(m.Completed, sessionID)
	if m.RecordCompletedFunc != nil {
		return m.RecordCompletedFunc(ctx, userID, sessionID, address, tier, result)
	}
	return &domain.Purchase{ID: "purchase-mock", UserID: userID, SessionID: sessionID}, nil
}

func (m *MockBillingService) RecordFailed(ctx context.Context, userID, sessionID, address string, tier domain.DepthTier, reason string) error {
	m.Failed = append(m.Failed, sessionID)
	if m.RecordFailedFunc != nil {
		return m.RecordFailedFunc(ctx, userID, sessionID, address, tier, reason)
	}
	return nil
}

func (m *MockBillingService) GetHistory(ctx context.Context, userID string, limit, offset int) ([]domain.Purchase, error) {
	if m.GetHistoryFunc != nil {
		return m.GetHistoryFunc(ctx, userID, limit, offset)
	}
	return nil, nil
}

func (m *MockBillingService) RefundPurchase(ctx context.Context, purchaseID, reason string) (*domain.Purchase, error) {
	if m.RefundPurchaseFunc != nil {
		return m.RefundPurchaseFunc(ctx, purchaseID, reason)
	}
	return nil, nil
}

// MockEmailService is a mock implementation of EmailService
type MockEmailService struct {
	SentReceipts []string // purchase ids
	SentWelcomes []string // user ids

	SendFunc func(ctx context.Context, to, subject, body string) error
}

func (m *MockEmailService) Send(ctx context.Context, to, subject, body string) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, to, subject, body)
	}
	return nil
}

func (m *MockEmailService) SendHTML(ctx context.Context, to, subject, htmlBody string) error {
	return nil
}

func (m *MockEmailService) SendWelcome(ctx context.Context, user *domain.User) error {
	m.SentWelcomes = append(m.SentWelcomes, user.ID)
	return nil
}

func (m *MockEmailService) SendPurchaseReceipt(ctx context.Context, user *domain.User, purchase *domain.Purchase) error {
	m.SentReceipts = append(m.SentReceipts, purchase.ID)
	return nil
}
