package ports

import (
	"context"

	"github.com/laundrotech/intel-gateway/internal/domain"
)

// AnalysisService is the session-flow boundary the HTTP layer calls. Every
// method returns the session snapshot after the operation so the caller can
// re-render without a second read.
type AnalysisService interface {
	CreateSession(ctx context.Context, userID string) (*domain.AnalysisSession, error)
	GetSession(ctx context.Context, userID, sessionID string) (*domain.AnalysisSession, error)
	SubmitAddress(ctx context.Context, userID, sessionID, address string) (*domain.AnalysisSession, error)
	SelectDepth(ctx context.Context, userID, sessionID string, level int) (*domain.AnalysisSession, error)
	ConfirmPurchase(ctx context.Context, userID, sessionID string) (*domain.AnalysisSession, error)
	Reset(ctx context.Context, userID, sessionID string) (*domain.AnalysisSession, error)
}

// BillingService owns purchase records and payment-provider interaction.
// The flow controller never talks to it directly; the analysis service does,
// after the backend has confirmed a purchase.
type BillingService interface {
	// CreateTierIntent creates a payment intent for a paid tier so the
	// dashboard can collect card details before the purchase is confirmed.
	CreateTierIntent(ctx context.Context, userID string, level int) (*PaymentIntent, error)

	// RecordCompleted persists a completed purchase and fans out receipts
	// and billing events.
	RecordCompleted(ctx context.Context, userID, sessionID, address string, tier domain.DepthTier, result *domain.PurchaseResult) (*domain.Purchase, error)

	// RecordFailed persists a failed purchase attempt for reconciliation.
	RecordFailed(ctx context.Context, userID, sessionID, address string, tier domain.DepthTier, reason string) error

	// GetHistory returns a user's purchase history, newest first.
	GetHistory(ctx context.Context, userID string, limit, offset int) ([]domain.Purchase, error)

	// RefundPurchase refunds a completed purchase through the provider.
	RefundPurchase(ctx context.Context, purchaseID, reason string) (*domain.Purchase, error)
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, string, error) // token, refresh, err
	Register(ctx context.Context, user *domain.User) error
	RefreshToken(ctx context.Context, token string) (string, error)
	ValidateToken(ctx context.Context, token string) (*domain.User, error)
}

// EmailService handles transactional email
type EmailService interface {
	Send(ctx context.Context, to, subject, body string) error
	SendHTML(ctx context.Context, to, subject, htmlBody string) error
	SendWelcome(ctx context.Context, user *domain.User) error
	SendPurchaseReceipt(ctx context.Context, user *domain.User, purchase *domain.Purchase) error
}
