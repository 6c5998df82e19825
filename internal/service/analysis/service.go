package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/laundrotech/intel-gateway/internal/adapter/queue"
	ws "github.com/laundrotech/intel-gateway/internal/adapter/websocket"
	"github.com/laundrotech/intel-gateway/internal/catalog"
	"github.com/laundrotech/intel-gateway/internal/domain"
	"github.com/laundrotech/intel-gateway/internal/observability/telemetry"
	"github.com/laundrotech/intel-gateway/internal/ports"
	"github.com/laundrotech/intel-gateway/internal/session"
)

// ErrSessionNotFound is returned for unknown sessions and for sessions
// owned by a different user; the two cases are indistinguishable to the
// caller on purpose.
var ErrSessionNotFound = errors.New("session not found")

// Service drives the analysis purchase flow. The per-session state machine
// lives in the session package; this layer adds ownership checks, purchase
// bookkeeping, dashboard notifications and metrics around it.
type Service struct {
	sessions *session.Manager
	catalog  *catalog.Catalog
	billing  ports.BillingService
	hub      *ws.Hub
	queue    queue.MessageQueue
	log      *zap.Logger
}

func NewService(
	sessions *session.Manager,
	cat *catalog.Catalog,
	billing ports.BillingService,
	hub *ws.Hub,
	mq queue.MessageQueue,
	log *zap.Logger,
) ports.AnalysisService {
	return &Service{
		sessions: sessions,
		catalog:  cat,
		billing:  billing,
		hub:      hub,
		queue:    mq,
		log:      log,
	}
}

func (s *Service) CreateSession(ctx context.Context, userID string) (*domain.AnalysisSession, error) {
	ctrl := s.sessions.Create(userID)
	snap := ctrl.Snapshot()

	s.sessions.SaveSnapshot(ctx, snap)

	s.log.Info("Analysis session created",
		zap.String("session_id", snap.ID),
		zap.String("user_id", userID),
	)
	return &snap, nil
}

func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (*domain.AnalysisSession, error) {
	ctrl, err := s.controllerFor(userID, sessionID)
	if err != nil {
		return nil, err
	}
	snap := ctrl.Snapshot()
	return &snap, nil
}

func (s *Service) SubmitAddress(ctx context.Context, userID, sessionID, address string) (*domain.AnalysisSession, error) {
	ctrl, err := s.controllerFor(userID, sessionID)
	if err != nil {
		return nil, err
	}

	snap, opErr := ctrl.SubmitAddress(ctx, address)
	s.afterTransition(ctx, userID, snap)

	var ferr *domain.FlowError
	switch {
	case opErr == nil:
		telemetry.PreviewsTotal.WithLabelValues("success").Inc()
		s.publishPreviewEvent(snap)
	case errors.As(opErr, &ferr) && ferr.Kind == domain.ErrKindFetchFailed:
		telemetry.PreviewsTotal.WithLabelValues("failure").Inc()
	}

	return &snap, opErr
}

func (s *Service) SelectDepth(ctx context.Context, userID, sessionID string, level int) (*domain.AnalysisSession, error) {
	ctrl, err := s.controllerFor(userID, sessionID)
	if err != nil {
		return nil, err
	}

	snap, opErr := ctrl.SelectDepth(level)
	s.afterTransition(ctx, userID, snap)
	return &snap, opErr
}

func (s *Service) ConfirmPurchase(ctx context.Context, userID, sessionID string) (*domain.AnalysisSession, error) {
	ctrl, err := s.controllerFor(userID, sessionID)
	if err != nil {
		return nil, err
	}

	before := ctrl.Snapshot()
	tier, _ := s.catalog.Tier(before.SelectedDepth)

	snap, opErr := ctrl.ConfirmPurchase(ctx)
	s.afterTransition(ctx, userID, snap)

	if opErr == nil {
		telemetry.PurchasesTotal.WithLabelValues(tier.Name, "success").Inc()
		result := &domain.PurchaseResult{
			Report:        snap.FullReport,
			AmountCharged: snap.Billing.AmountCharged,
			BillingKind:   snap.Billing.BillingKind,
		}
		telemetry.RevenueCentsTotal.Add(float64(result.AmountCharged))

		if _, err := s.billing.RecordCompleted(ctx, userID, sessionID, snap.Address, tier, result); err != nil {
			// The report is already delivered; the ledger entry is
			// reconciled from billing events if this write is lost.
			s.log.Error("Failed to record completed purchase",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
		return &snap, nil
	}

	var ferr *domain.FlowError
	if errors.As(opErr, &ferr) && ferr.Kind == domain.ErrKindFetchFailed {
		telemetry.PurchasesTotal.WithLabelValues(tier.Name, "failure").Inc()
		if err := s.billing.RecordFailed(ctx, userID, sessionID, snap.Address, tier, ferr.Message); err != nil {
			s.log.Error("Failed to record failed purchase",
				zap.String("session_id", sessionID),
				zap.Error(err),
			)
		}
	}

	return &snap, opErr
}

func (s *Service) Reset(ctx context.Context, userID, sessionID string) (*domain.AnalysisSession, error) {
	ctrl, err := s.controllerFor(userID, sessionID)
	if err != nil {
		return nil, err
	}

	snap := ctrl.Reset()
	s.afterTransition(ctx, userID, snap)

	s.log.Info("Analysis session reset",
		zap.String("session_id", sessionID),
		zap.String("user_id", userID),
	)
	return &snap, nil
}

func (s *Service) controllerFor(userID, sessionID string) (*session.Controller, error) {
	ctrl, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if ctrl.UserID() != userID {
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}

// afterTransition persists the snapshot and pushes it to the dashboard.
// Both are best effort.
func (s *Service) afterTransition(ctx context.Context, userID string, snap domain.AnalysisSession) {
	s.sessions.SaveSnapshot(ctx, snap)

	if s.hub != nil {
		s.hub.PublishSessionUpdate(userID, ws.SessionUpdate{
			Type:      "session_update",
			SessionID: snap.ID,
			Stage:     string(snap.Stage),
			Payload:   snap,
		})
	}
}

func (s *Service) publishPreviewEvent(snap domain.AnalysisSession) {
	if s.queue == nil {
		return
	}

	event := map[string]interface{}{
		"session_id":   snap.ID,
		"address":      snap.Address,
		"grade":        snap.PreviewReport.Grade,
		"market_score": snap.PreviewReport.MarketScore,
		"generated_at": time.Now(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.queue.Publish(queue.SubjectPreviewGenerated, data); err != nil {
		s.log.Warn("Failed to publish preview event", zap.Error(err))
	}
}
