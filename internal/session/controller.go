package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/laundrotech/intel-gateway/internal/catalog"
	"github.com/laundrotech/intel-gateway/internal/domain"
	"github.com/laundrotech/intel-gateway/internal/ports"
)

// ErrSuperseded is returned to a caller whose in-flight operation was
// invalidated by a reset. The late backend response is discarded and the
// session state is left untouched.
var ErrSuperseded = errors.New("operation superseded by session reset")

// Controller owns one analysis session and enforces its legal stage
// transitions: input, preview, depth selection, purchasing, results. All
// mutation goes through the named operations below; the only side effects
// are the two backend calls, and at most one is in flight at a time.
type Controller struct {
	mu      sync.Mutex
	sess    domain.AnalysisSession
	catalog *catalog.Catalog
	intel   ports.IntelClient
	log     *zap.Logger

	// generation invalidates in-flight responses after a reset
	generation uint64
	inFlight   bool
	// retryStage remembers which stage failed so a retry re-enters it
	retryStage domain.Stage
}

// NewController creates a fresh session at the input stage.
func NewController(id, userID string, cat *catalog.Catalog, intel ports.IntelClient, log *zap.Logger) *Controller {
	now := time.Now()
	return &Controller{
		sess: domain.AnalysisSession{
			ID:            id,
			UserID:        userID,
			Stage:         domain.StageInput,
			SelectedDepth: cat.MinLevel(),
			CreatedAt:     now,
			UpdatedAt:     now,
		},
		catalog: cat,
		intel:   intel,
		log:     log,
	}
}

// Snapshot returns a copy of the current session state. Report pointers are
// shared but immutable once set.
func (c *Controller) Snapshot() domain.AnalysisSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// UserID returns the owning user.
func (c *Controller) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.UserID
}

// SubmitAddress validates and submits an address, fetching a fresh preview.
// Legal from input, from preview (resubmission always triggers a fresh
// backend call) and from a preview failure. On backend failure the session
// moves to the error stage with the address intact so the user can retry.
func (c *Controller) SubmitAddress(ctx context.Context, raw string) (domain.AnalysisSession, error) {
	c.mu.Lock()

	addr := strings.TrimSpace(raw)
	if addr == "" {
		err := domain.NewValidationError("address must not be empty")
		c.recordValidationLocked(err)
		snap := c.sess
		c.mu.Unlock()
		return snap, err
	}

	switch c.sess.Stage {
	case domain.StageInput, domain.StagePreview:
	case domain.StageError:
		if c.retryStage != domain.StagePreview {
			err := domain.NewValidationError("no failed preview to retry")
			c.recordValidationLocked(err)
			snap := c.sess
			c.mu.Unlock()
			return snap, err
		}
	default:
		err := domain.NewValidationError("address can only be submitted before depth selection")
		c.recordValidationLocked(err)
		snap := c.sess
		c.mu.Unlock()
		return snap, err
	}

	if c.inFlight {
		snap := c.sess
		c.mu.Unlock()
		return snap, domain.NewConcurrentOperationError("another operation is already in flight")
	}

	c.inFlight = true
	gen := c.generation
	c.sess.Address = addr
	c.mu.Unlock()

	report, err := c.intel.Preview(ctx, addr)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		// Session was reset while the call was in flight. Drop the result.
		c.log.Debug("Discarding stale preview response",
			zap.String("session_id", c.sess.ID),
		)
		return c.sess, ErrSuperseded
	}
	c.inFlight = false

	if err != nil {
		ferr := domain.NewFetchError("preview fetch failed", err)
		c.sess.Stage = domain.StageError
		c.retryStage = domain.StagePreview
		c.setErrorLocked(ferr, domain.StagePreview)
		return c.sess, ferr
	}

	c.sess.PreviewReport = report
	c.sess.Stage = domain.StagePreview
	c.clearErrorLocked()
	return c.sess, nil
}

// SelectDepth chooses an analysis tier. From preview it advances to depth
// selection; from depth selection it is a pure update; from a purchase
// failure it routes back to depth selection so the user can change tiers
// before retrying. No network call is made.
func (c *Controller) SelectDepth(level int) (domain.AnalysisSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight {
		return c.sess, domain.NewConcurrentOperationError("another operation is already in flight")
	}

	if !c.catalog.Contains(level) {
		err := domain.NewValidationError("depth level outside catalog range")
		c.recordValidationLocked(err)
		return c.sess, err
	}

	switch c.sess.Stage {
	case domain.StagePreview, domain.StageDepthSelection:
	case domain.StageError:
		if c.retryStage != domain.StagePurchasing {
			err := domain.NewValidationError("depth cannot be selected before a preview")
			c.recordValidationLocked(err)
			return c.sess, err
		}
	default:
		err := domain.NewValidationError("depth can only be selected after a preview")
		c.recordValidationLocked(err)
		return c.sess, err
	}

	c.sess.SelectedDepth = level
	c.sess.Stage = domain.StageDepthSelection
	c.retryStage = ""
	c.clearErrorLocked()
	return c.sess, nil
}

// ConfirmPurchase invokes the tiered analysis backend with the session's
// address and selected depth. Only legal from depth selection, or as a
// retry of a failed purchase. The backend call records a charge, so a
// second confirmation while one is in flight is rejected without side
// effects.
func (c *Controller) ConfirmPurchase(ctx context.Context) (domain.AnalysisSession, error) {
	c.mu.Lock()

	if c.inFlight || c.sess.Stage == domain.StagePurchasing {
		snap := c.sess
		c.mu.Unlock()
		return snap, domain.NewConcurrentOperationError("purchase already in progress")
	}

	switch c.sess.Stage {
	case domain.StageDepthSelection:
	case domain.StageError:
		if c.retryStage != domain.StagePurchasing {
			err := domain.NewValidationError("no failed purchase to retry")
			c.recordValidationLocked(err)
			snap := c.sess
			c.mu.Unlock()
			return snap, err
		}
	default:
		err := domain.NewValidationError("purchase requires a selected depth")
		c.recordValidationLocked(err)
		snap := c.sess
		c.mu.Unlock()
		return snap, err
	}

	addr := c.sess.Address
	depth := c.sess.SelectedDepth
	c.sess.Stage = domain.StagePurchasing
	c.inFlight = true
	gen := c.generation
	c.mu.Unlock()

	result, err := c.intel.Purchase(ctx, addr, depth)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		c.log.Debug("Discarding stale purchase response",
			zap.String("session_id", c.sess.ID),
		)
		return c.sess, ErrSuperseded
	}
	c.inFlight = false

	if err != nil {
		ferr := domain.NewFetchError("purchase fetch failed", err)
		c.sess.Stage = domain.StageError
		c.retryStage = domain.StagePurchasing
		c.setErrorLocked(ferr, domain.StagePurchasing)
		// address and selected depth stay intact for retry
		return c.sess, ferr
	}

	c.sess.FullReport = result.Report
	c.sess.Billing = &domain.BillingSummary{
		AmountCharged: result.AmountCharged,
		BillingKind:   result.BillingKind,
	}
	c.sess.Stage = domain.StageResults
	c.retryStage = ""
	c.clearErrorLocked()
	return c.sess, nil
}

// Reset returns the session to the input stage from any stage, clearing
// reports, billing and errors. Always succeeds. A response from a call
// still in flight at reset time is discarded on arrival.
func (c *Controller) Reset() domain.AnalysisSession {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.inFlight = false
	c.retryStage = ""

	c.sess = domain.AnalysisSession{
		ID:            c.sess.ID,
		UserID:        c.sess.UserID,
		Stage:         domain.StageInput,
		SelectedDepth: c.catalog.MinLevel(),
		CreatedAt:     c.sess.CreatedAt,
		UpdatedAt:     time.Now(),
	}
	return c.sess
}

func (c *Controller) setErrorLocked(err *domain.FlowError, failed domain.Stage) {
	now := time.Now()
	c.sess.LastError = &domain.ErrorInfo{
		Kind:        err.Kind,
		Message:     err.Message,
		FailedStage: failed,
		OccurredAt:  now,
	}
	c.sess.UpdatedAt = now
}

// recordValidationLocked notes a precondition failure without touching the
// stage or the retry bookkeeping.
func (c *Controller) recordValidationLocked(err *domain.FlowError) {
	now := time.Now()
	c.sess.LastError = &domain.ErrorInfo{
		Kind:       err.Kind,
		Message:    err.Message,
		OccurredAt: now,
	}
	c.sess.UpdatedAt = now
}

func (c *Controller) clearErrorLocked() {
	c.sess.LastError = nil
	c.sess.UpdatedAt = time.Now()
}
