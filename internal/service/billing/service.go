package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/laundrotech/intel-gateway/internal/adapter/queue"
	"github.com/laundrotech/intel-gateway/internal/catalog"
	"github.com/laundrotech/intel-gateway/internal/domain"
	"github.com/laundrotech/intel-gateway/internal/ports"
)

var (
	ErrTierNotFound     = errors.New("tier not found")
	ErrTierIsFree       = errors.New("free tier requires no payment intent")
	ErrPurchaseNotFound = errors.New("purchase not found")
	ErrNotRefundable    = errors.New("purchase is not refundable")
)

// Service owns the purchase ledger. The tiered analysis backend is the
// billing source of truth; this service records what it reported, creates
// payment intents for paid tiers, and fans out receipts and events.
type Service struct {
	purchases ports.PurchaseRepository
	users     ports.UserRepository
	gateway   ports.PaymentGateway
	email     ports.EmailService
	queue     queue.MessageQueue
	catalog   *catalog.Catalog
	log       *zap.Logger
}

func NewService(
	purchases ports.PurchaseRepository,
	users ports.UserRepository,
	gateway ports.PaymentGateway,
	email ports.EmailService,
	mq queue.MessageQueue,
	cat *catalog.Catalog,
	log *zap.Logger,
) ports.BillingService {
	return &Service{
		purchases: purchases,
		users:     users,
		gateway:   gateway,
		email:     email,
		queue:     mq,
		catalog:   cat,
		log:       log,
	}
}

func (s *Service) CreateTierIntent(ctx context.Context, userID string, level int) (*ports.PaymentIntent, error) {
	tier, ok := s.catalog.Tier(level)
	if !ok {
		return nil, ErrTierNotFound
	}
	if tier.Free() {
		return nil, ErrTierIsFree
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, tier.PriceCents, "usd", map[string]string{
		"user_id":   userID,
		"tier_name": tier.Name,
		"depth":     fmt.Sprintf("%d", tier.Level),
		"billing":   string(tier.BillingKind),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	s.log.Info("Tier payment intent created",
		zap.String("user_id", userID),
		zap.String("tier", tier.Name),
		zap.Int64("amount_cents", tier.PriceCents),
	)
	return intent, nil
}

func (s *Service) RecordCompleted(ctx context.Context, userID, sessionID, address string, tier domain.DepthTier, result *domain.PurchaseResult) (*domain.Purchase, error) {
	now := time.Now()
	purchase := &domain.Purchase{
		ID:          uuid.New().String(),
		UserID:      userID,
		SessionID:   sessionID,
		Address:     address,
		DepthLevel:  tier.Level,
		TierName:    tier.Name,
		AmountCents: result.AmountCharged,
		Currency:    "usd",
		BillingKind: result.BillingKind,
		Status:      domain.PurchaseStatusCompleted,
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: &now,
	}

	if err := s.purchases.Save(ctx, purchase); err != nil {
		return nil, fmt.Errorf("failed to save purchase: %w", err)
	}

	s.publishEvent(queue.SubjectPurchaseCompleted, purchase)
	s.sendReceipt(ctx, purchase)

	s.log.Info("Purchase recorded",
		zap.String("purchase_id", purchase.ID),
		zap.String("tier", tier.Name),
		zap.Int64("amount_cents", purchase.AmountCents),
	)
	return purchase, nil
}

func (s *Service) RecordFailed(ctx context.Context, userID, sessionID, address string, tier domain.DepthTier, reason string) error {
	now := time.Now()
	purchase := &domain.Purchase{
		ID:            uuid.New().String(),
		UserID:        userID,
		SessionID:     sessionID,
		Address:       address,
		DepthLevel:    tier.Level,
		TierName:      tier.Name,
		AmountCents:   tier.PriceCents,
		Currency:      "usd",
		BillingKind:   tier.BillingKind,
		Status:        domain.PurchaseStatusFailed,
		FailureReason: reason,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.purchases.Save(ctx, purchase); err != nil {
		return fmt.Errorf("failed to save failed purchase: %w", err)
	}

	s.publishEvent(queue.SubjectPurchaseFailed, purchase)
	return nil
}

func (s *Service) GetHistory(ctx context.Context, userID string, limit, offset int) ([]domain.Purchase, error) {
	return s.purchases.FindByUserID(ctx, userID, limit, offset)
}

func (s *Service) RefundPurchase(ctx context.Context, purchaseID, reason string) (*domain.Purchase, error) {
	purchase, err := s.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase == nil {
		return nil, ErrPurchaseNotFound
	}
	if purchase.Status != domain.PurchaseStatusCompleted {
		return nil, ErrNotRefundable
	}

	if purchase.ProviderIntentID != "" && purchase.AmountCents > 0 {
		if _, err := s.gateway.RefundPayment(ctx, purchase.ProviderIntentID); err != nil {
			return nil, fmt.Errorf("failed to refund payment: %w", err)
		}
	}

	purchase.Status = domain.PurchaseStatusRefunded
	purchase.FailureReason = reason
	purchase.UpdatedAt = time.Now()
	if err := s.purchases.Save(ctx, purchase); err != nil {
		return nil, fmt.Errorf("failed to save refund: %w", err)
	}

	s.publishEvent(queue.SubjectPurchaseRefunded, purchase)

	s.log.Info("Purchase refunded",
		zap.String("purchase_id", purchase.ID),
		zap.String("reason", reason),
	)
	return purchase, nil
}

func (s *Service) publishEvent(subject string, purchase *domain.Purchase) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(purchase)
	if err != nil {
		return
	}
	if err := s.queue.Publish(subject, data); err != nil {
		s.log.Warn("Failed to publish billing event",
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}

func (s *Service) sendReceipt(ctx context.Context, purchase *domain.Purchase) {
	if s.email == nil || s.users == nil {
		return
	}

	user, err := s.users.FindByID(ctx, purchase.UserID)
	if err != nil || user == nil {
		s.log.Debug("Skipping receipt, user not found", zap.String("user_id", purchase.UserID))
		return
	}
	if !user.NotifyByEmail {
		return
	}

	if err := s.email.SendPurchaseReceipt(ctx, user, purchase); err != nil {
		s.log.Warn("Failed to send purchase receipt",
			zap.String("purchase_id", purchase.ID),
			zap.Error(err),
		)
	}
}
