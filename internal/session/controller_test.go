package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/laundrotech/intel-gateway/internal/catalog"
	"github.com/laundrotech/intel-gateway/internal/domain"
	"github.com/laundrotech/intel-gateway/internal/mocks"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func newTestController(intel *mocks.MockIntelClient) *Controller {
	return NewController("sess-123", "user-123", catalog.Default(), intel, newTestLogger())
}

func flowKind(t *testing.T, err error) domain.ErrorKind {
	t.Helper()
	var ferr *domain.FlowError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected FlowError, got %T: %v", err, err)
	}
	return ferr.Kind
}

func TestSubmitAddress_Success(t *testing.T) {
	// Arrange
	intel := &mocks.MockIntelClient{
		PreviewFunc: func(ctx context.Context, address string) (*domain.PreviewReport, error) {
			return &domain.PreviewReport{Grade: "A", MarketScore: 88}, nil
		},
	}
	ctrl := newTestController(intel)

	// Act
	sess, err := ctrl.SubmitAddress(context.Background(), "123 Main St, Springfield")

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.Stage != domain.StagePreview {
		t.Errorf("expected stage %q, got %q", domain.StagePreview, sess.Stage)
	}
	if sess.Address != "123 Main St, Springfield" {
		t.Errorf("expected address to be stored, got %q", sess.Address)
	}
	if sess.PreviewReport == nil || sess.PreviewReport.Grade != "A" {
		t.Errorf("expected preview report with grade A, got %+v", sess.PreviewReport)
	}
	if sess.LastError != nil {
		t.Errorf("expected no last error, got %+v", sess.LastError)
	}
}

func TestSubmitAddress_TrimsWhitespace(t *testing.T) {
	// Arrange
	intel := &mocks.MockIntelClient{}
	ctrl := newTestController(intel)

	// Act
	sess, err := ctrl.SubmitAddress(context.Background(), "  42 Elm Ave  ")

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.Address != "42 Elm Ave" {
		t.Errorf("expected trimmed address, got %q", sess.Address)
	}
}

func TestSubmitAddress_Empty(t *testing.T) {
	// Arrange
	intel := &mocks.MockIntelClient{}
	ctrl := newTestController(intel)

	// Act
	sess, err := ctrl.SubmitAddress(context.Background(), "   ")

	// Assert
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if kind := flowKind(t, err); kind != domain.ErrKindValidation {
		t.Errorf("expected validation error, got %q", kind)
	}
	if sess.Stage != domain.StageInput {
		t.Errorf("expected stage to stay %q, got %q", domain.StageInput, sess.Stage)
	}
	if sess.LastError == nil || sess.LastError.Kind != domain.ErrKindValidation {
		t.Errorf("expected validation last error, got %+v", sess.LastError)
	}
	if n := atomic.LoadInt64(&intel.PreviewCalls); n != 0 {
		t.Errorf("expected no backend call for invalid input, got %d", n)
	}
}

func TestSubmitAddress_ResubmissionFetchesFreshPreview(t *testing.T) {
	// Arrange
	intel := &mocks.MockIntelClient{
		PreviewFunc: func(ctx context.Context, address string) (*domain.PreviewReport, error) {
			if address == "first address" {
				return &domain.PreviewReport{Grade: "C", MarketScore: 40}, nil
			}
			return &domain.PreviewReport{Grade: "A", MarketScore: 90}, nil
		},
	}
	ctrl := newTestController(intel)
	if _, err := ctrl.SubmitAddress(context.Background(), "first address"); err != nil {
		t.Fatalf("first submit failed: %v", err)
	}

	// Act
	sess, err := ctrl.SubmitAddress(context.Background(), "second address")

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.PreviewReport.Grade != "A" {
		t.Errorf("expected fresh preview for resubmitted address, got grade %q", sess.PreviewReport.Grade)
	}
	if n := atomic.LoadInt64(&intel.PreviewCalls); n != 2 {
		t.Errorf("expected 2 backend calls, got %d", n)
	}
}

func TestSubmitAddress_RejectedAfterDepthSelection(t *testing.T) {
	// Arrange
	intel := &mocks.MockIntelClient{}
	ctrl := newTestController(intel)
	if _, err := ctrl.SubmitAddress(context.Background(), "12 Ocean Dr"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := ctrl.SelectDepth(2); err != nil {
		t.Fatalf("select depth failed: %v", err)
	}

	// Act
	sess, err := ctrl.SubmitAddress(context.Background(), "99 New Rd")

	// Assert
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if kind := flowKind(t, err); kind != domain.ErrKindValidation {
		t.Errorf("expected validation error, got %q", kind)
	}
	if sess.Stage != domain.StageDepthSelection {
		t.Errorf("expected stage to stay %q, got %q", domain.StageDepthSelection, sess.Stage)
	}
	if sess.Address != "12 Ocean Dr" {
		t.Errorf("expected address unchanged, got %q", sess.Address)
	}
}

func TestSubmitAddress_BackendFailureThenRetry(t *testing.T) {
	// Arrange
	var calls int64
	intel := &mocks.MockIntelClient{
		PreviewFunc: func(ctx context.Context, address string) (*domain.PreviewReport, error) {
			if atomic.AddInt64(&calls, 1) == 1 {
				return nil, fmt.Errorf("backend unavailable")
			}
			return &domain.PreviewReport{Grade: "B", MarketScore: 65}, nil
		},
	}
	ctrl := newTestController(intel)

	// Act: first attempt fails
	sess, err := ctrl.SubmitAddress(context.Background(), "500 Market St")

	// Assert
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if kind := flowKind(t, err); kind != domain.ErrKindFetchFailed {
		t.Errorf("expected fetch error, got %q", kind)
	}
	if sess.Stage != domain.StageError {
		t.Errorf("expected stage %q, got %q", domain.StageError, sess.Stage)
	}
	if sess.Address != "500 Market St" {
		t.Errorf("expected address preserved for retry, got %q", sess.Address)
	}
	if sess.LastError == nil || sess.LastError.FailedStage != domain.StagePreview {
		t.Errorf("expected failed stage preview, got %+v", sess.LastError)
	}

	// Act: retry with the same address succeeds
	sess, err = ctrl.SubmitAddress(context.Background(), "500 Market St")

	// Assert
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if sess.Stage != domain.StagePreview {
		t.Errorf("expected stage %q after retry, got %q", domain.StagePreview, sess.Stage)
	}
	if sess.LastError != nil {
		t.Errorf("expected error cleared after retry, got %+v", sess.LastError)
	}
}

func TestSelectDepth_AdvancesFromPreview(t *testing.T) {
	// Arrange
	intel := &mocks.MockIntelClient{}
	ctrl := newTestController(intel)
	if _, err := ctrl.SubmitAddress(context.Background(), "77 Pine St"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Act
	sess, err := ctrl.SelectDepth(3)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.Stage != domain.StageDepthSelection {
		t.Errorf("expected stage %q, got %q", domain.StageDepthSelection, sess.Stage)
	}
	if sess.SelectedDepth != 3 {
		t.Errorf("expected depth 3, got %d", sess.SelectedDepth)
	}
}

func TestSelectDepth_ReselectionUpdatesDepth(t *testing.T) {
	// Arrange
	intel := &mocks.MockIntelClient{}
	ctrl := newTestController(intel)
	if _, err := ctrl.SubmitAddress(context.Background(), "77 Pine St"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := ctrl.SelectDepth(2); err != nil {
		t.Fatalf("first select failed: %v", err)
	}

	// Act
	sess, err := ctrl.SelectDepth(5)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.SelectedDepth != 5 {
		t.Errorf("expected depth 5, got %d", sess.SelectedDepth)
	}
	if sess.Stage != domain.StageDepthSelection {
		t.Errorf("expected stage %q, got %q", domain.StageDepthSelection, sess.Stage)
	}
}

func TestSelectDepth_OutOfRange(t *testing.T) {
	// Arrange
	intel := &mocks.MockIntelClient{}
	ctrl := newTestController(intel)
	if _, err := ctrl.SubmitAddress(context.Background(), "77 Pine St"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	for _, level := range []int{0, -1, 6, 100} {
		// Act
		sess, err := ctrl.SelectDepth(level)

		// Assert
		if err == nil {
			t.Fatalf("expected error for level %d, got nil", level)
		}
		if kind := flowKind(t, err); kind != domain.ErrKindValidation {
			t.Errorf("level %d: expected validation error, got %q", level, kind)
		}
		if sess.Stage != domain.StagePreview {
			t.Errorf("level %d: expected stage unchanged, got %q", level, sess.Stage)
		}
		if sess.SelectedDepth != 1 {
			t.Errorf("level %d: expected depth unchanged, got %d", level, sess.SelectedDepth)
		}
	}
}

func TestSelectDepth_RejectedBeforePreview(t *testing.T) {
	// Arrange
	intel := &mocks.MockIntelClient{}
	ctrl := newTestController(intel)

	// Act
	sess, err := ctrl.SelectDepth(2)

	// Assert
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if kind := flowKind(t, err); kind != domain.ErrKindValidation {
		t.Errorf("expected validation error, got %q", kind)
	}
	if sess.Stage != domain.StageInput {
		t.Errorf("expected stage %q, got %q", domain.StageInput, sess.Stage)
	}
}

func TestConfirmPurchase_Success(t *testing.T) {
	// Arrange
	intel := &mocks.MockIntelClient{
		PurchaseFunc: func(ctx context.Context, address string, depthLevel int) (*domain.PurchaseResult, error) {
			return &domain.PurchaseResult{
				Report:        &domain.FullReport{Address: address, Grade: "A", MarketScore: 91},
				AmountCharged: 7900,
				BillingKind:   domain.BillingOneTime,
			}, nil
		},
	}
	ctrl := newTestController(intel)
	if _, err := ctrl.SubmitAddress(context.Background(), "8 Birch Ln"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := ctrl.SelectDepth(3); err != nil {
		t.Fatalf("select depth failed: %v", err)
	}

	// Act
	sess, err := ctrl.ConfirmPurchase(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.Stage != domain.StageResults {
		t.Errorf("expected stage %q, got %q", domain.StageResults, sess.Stage)
	}
	if sess.FullReport == nil || sess.FullReport.Grade != "A" {
		t.Errorf("expected full report, got %+v", sess.FullReport)
	}
	if sess.Billing == nil || sess.Billing.AmountCharged != 7900 {
		t.Errorf("expected billing summary with amount 7900, got %+v", sess.Billing)
	}
	if sess.LastError != nil {
		t.Errorf("expected no last error, got %+v", sess.LastError)
	}
}

func TestConfirmPurchase_RejectedFromPreview(t *testing.T) {
	// Arrange
	intel := &mocks.MockIntelClient{}
	ctrl := newTestController(intel)
	if _, err := ctrl.SubmitAddress(context.Background(), "8 Birch Ln"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Act
	sess, err := ctrl.ConfirmPurchase(context.Background())

	// Assert
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if kind := flowKind(t, err); kind != domain.ErrKindValidation {
		t.Errorf("expected validation error, got %q", kind)
	}
	if sess.Stage != domain.StagePreview {
		t.Errorf("expected stage unchanged, got %q", sess.Stage)
	}
	if n := atomic.LoadInt64(&intel.PurchaseCalls); n != 0 {
		t.Errorf("expected no purchase call, got %d", n)
	}
}

// A second confirmation arriving while a purchase is in flight must be
// rejected before it reaches the backend, so the user is never charged twice.
func TestConfirmPurchase_ConcurrentConfirmChargesOnce(t *testing.T) {
	// Arrange
	firstEntered := make(chan struct{})
	release := make(chan struct{})
	intel := &mocks.MockIntelClient{
		PurchaseFunc: func(ctx context.Context, address string, depthLevel int) (*domain.PurchaseResult, error) {
			close(firstEntered)
			<-release
			return &domain.PurchaseResult{
				Report:      &domain.FullReport{Address: address, Grade: "B", MarketScore: 70},
				BillingKind: domain.BillingOneTime,
			}, nil
		},
	}
	ctrl := newTestController(intel)
	if _, err := ctrl.SubmitAddress(context.Background(), "8 Birch Ln"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := ctrl.SelectDepth(2); err != nil {
		t.Fatalf("select depth failed: %v", err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = ctrl.ConfirmPurchase(context.Background())
	}()
	<-firstEntered

	// Act: second confirm while the first is still in flight
	_, secondErr := ctrl.ConfirmPurchase(context.Background())
	close(release)
	wg.Wait()

	// Assert
	if firstErr != nil {
		t.Fatalf("expected first confirm to succeed, got %v", firstErr)
	}
	if secondErr == nil {
		t.Fatal("expected second confirm to be rejected, got nil")
	}
	if kind := flowKind(t, secondErr); kind != domain.ErrKindConcurrentOperation {
		t.Errorf("expected concurrent operation error, got %q", kind)
	}
	if n := atomic.LoadInt64(&intel.PurchaseCalls); n != 1 {
		t.Errorf("expected exactly one purchase call, got %d", n)
	}
}

func TestConfirmPurchase_FailureKeepsAddressAndDepth(t *testing.T) {
	// Arrange
	intel := &mocks.MockIntelClient{
		PurchaseFunc: func(ctx context.Context, address string, depthLevel int) (*domain.PurchaseResult, error) {
			return nil, fmt.Errorf("charge declined")
		},
	}
	ctrl := newTestController(intel)
	if _, err := ctrl.SubmitAddress(context.Background(), "8 Birch Ln"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := ctrl.SelectDepth(4); err != nil {
		t.Fatalf("select depth failed: %v", err)
	}

	// Act
	sess, err := ctrl.ConfirmPurchase(context.Background())

	// Assert
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if kind := flowKind(t, err); kind != domain.ErrKindFetchFailed {
		t.Errorf("expected fetch error, got %q", kind)
	}
	if sess.Stage != domain.StageError {
		t.Errorf("expected stage %q, got %q", domain.StageError, sess.Stage)
	}
	if sess.Address != "8 Birch Ln" {
		t.Errorf("expected address preserved, got %q", sess.Address)
	}
	if sess.SelectedDepth != 4 {
		t.Errorf("expected depth preserved, got %d", sess.SelectedDepth)
	}
	if sess.LastError == nil || sess.LastError.FailedStage != domain.StagePurchasing {
		t.Errorf("expected failed stage purchasing, got %+v", sess.LastError)
	}
	if sess.FullReport != nil || sess.Billing != nil {
		t.Error("expected no report or billing on failed purchase")
	}
}

func TestConfirmPurchase_RetryAfterFailure(t *testing.T) {
	// Arrange
	var calls int64
	intel := &mocks.MockIntelClient{
		PurchaseFunc: func(ctx context.Context, address string, depthLevel int) (*domain.PurchaseResult, error) {
			if atomic.AddInt64(&calls, 1) == 1 {
				return nil, fmt.Errorf("gateway timeout")
			}
			return &domain.PurchaseResult{
				Report:        &domain.FullReport{Address: address, Grade: "B", MarketScore: 72},
				AmountCharged: 2900,
				BillingKind:   domain.BillingOneTime,
			}, nil
		},
	}
	ctrl := newTestController(intel)
	if _, err := ctrl.SubmitAddress(context.Background(), "8 Birch Ln"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := ctrl.SelectDepth(2); err != nil {
		t.Fatalf("select depth failed: %v", err)
	}
	if _, err := ctrl.ConfirmPurchase(context.Background()); err == nil {
		t.Fatal("expected first purchase to fail")
	}

	// Act
	sess, err := ctrl.ConfirmPurchase(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if sess.Stage != domain.StageResults {
		t.Errorf("expected stage %q, got %q", domain.StageResults, sess.Stage)
	}
	if sess.LastError != nil {
		t.Errorf("expected error cleared, got %+v", sess.LastError)
	}
}

func TestSelectDepth_AfterPurchaseFailureRoutesBackToSelection(t *testing.T) {
	// Arrange
	intel := &mocks.MockIntelClient{
		PurchaseFunc: func(ctx context.Context, address string, depthLevel int) (*domain.PurchaseResult, error) {
			return nil, fmt.Errorf("charge declined")
		},
	}
	ctrl := newTestController(intel)
	if _, err := ctrl.SubmitAddress(context.Background(), "8 Birch Ln"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := ctrl.SelectDepth(4); err != nil {
		t.Fatalf("select depth failed: %v", err)
	}
	if _, err := ctrl.ConfirmPurchase(context.Background()); err == nil {
		t.Fatal("expected purchase to fail")
	}

	// Act: pick a cheaper tier from the error stage
	sess, err := ctrl.SelectDepth(2)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.Stage != domain.StageDepthSelection {
		t.Errorf("expected stage %q, got %q", domain.StageDepthSelection, sess.Stage)
	}
	if sess.SelectedDepth != 2 {
		t.Errorf("expected depth 2, got %d", sess.SelectedDepth)
	}
	if sess.LastError != nil {
		t.Errorf("expected error cleared, got %+v", sess.LastError)
	}
}

func TestReset_FromEveryStage(t *testing.T) {
	intel := &mocks.MockIntelClient{}

	advance := map[string]func(*Controller){
		"input":   func(c *Controller) {},
		"preview": func(c *Controller) { c.SubmitAddress(context.Background(), "1 Main St") },
		"depth_selection": func(c *Controller) {
			c.SubmitAddress(context.Background(), "1 Main St")
			c.SelectDepth(3)
		},
		"results": func(c *Controller) {
			c.SubmitAddress(context.Background(), "1 Main St")
			c.SelectDepth(3)
			c.ConfirmPurchase(context.Background())
		},
	}

	for name, setup := range advance {
		t.Run(name, func(t *testing.T) {
			// Arrange
			ctrl := newTestController(intel)
			setup(ctrl)

			// Act
			sess := ctrl.Reset()

			// Assert
			if sess.Stage != domain.StageInput {
				t.Errorf("expected stage %q, got %q", domain.StageInput, sess.Stage)
			}
			if sess.Address != "" {
				t.Errorf("expected address cleared, got %q", sess.Address)
			}
			if sess.PreviewReport != nil || sess.FullReport != nil || sess.Billing != nil {
				t.Error("expected reports and billing cleared")
			}
			if sess.LastError != nil {
				t.Errorf("expected error cleared, got %+v", sess.LastError)
			}
			if sess.SelectedDepth != 1 {
				t.Errorf("expected depth restored to 1, got %d", sess.SelectedDepth)
			}
			if sess.ID != "sess-123" || sess.UserID != "user-123" {
				t.Error("expected session identity preserved across reset")
			}
		})
	}
}

// A preview response that arrives after a reset must not resurrect the old
// flow. The caller gets ErrSuperseded and the session stays at input.
func TestReset_DiscardsInFlightPreview(t *testing.T) {
	// Arrange
	entered := make(chan struct{})
	release := make(chan struct{})
	intel := &mocks.MockIntelClient{
		PreviewFunc: func(ctx context.Context, address string) (*domain.PreviewReport, error) {
			close(entered)
			<-release
			return &domain.PreviewReport{Grade: "A", MarketScore: 95}, nil
		},
	}
	ctrl := newTestController(intel)

	var wg sync.WaitGroup
	wg.Add(1)
	var submitErr error
	go func() {
		defer wg.Done()
		_, submitErr = ctrl.SubmitAddress(context.Background(), "1 Main St")
	}()
	<-entered

	// Act: reset while the preview call is in flight, then let it complete
	ctrl.Reset()
	close(release)
	wg.Wait()

	// Assert
	if !errors.Is(submitErr, ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded, got %v", submitErr)
	}
	sess := ctrl.Snapshot()
	if sess.Stage != domain.StageInput {
		t.Errorf("expected stage %q, got %q", domain.StageInput, sess.Stage)
	}
	if sess.PreviewReport != nil {
		t.Errorf("expected stale preview discarded, got %+v", sess.PreviewReport)
	}
	if sess.Address != "" {
		t.Errorf("expected address cleared by reset, got %q", sess.Address)
	}
}

func TestReset_AllowsNewFlowWhileOldCallStillPending(t *testing.T) {
	// Arrange
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int64
	intel := &mocks.MockIntelClient{
		PreviewFunc: func(ctx context.Context, address string) (*domain.PreviewReport, error) {
			if atomic.AddInt64(&calls, 1) == 1 {
				close(entered)
				<-release
				return &domain.PreviewReport{Grade: "D", MarketScore: 10}, nil
			}
			return &domain.PreviewReport{Grade: "A", MarketScore: 92}, nil
		},
	}
	ctrl := newTestController(intel)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ctrl.SubmitAddress(context.Background(), "old address")
	}()
	<-entered
	ctrl.Reset()

	// Act: a new flow starts before the old response arrives
	sess, err := ctrl.SubmitAddress(context.Background(), "new address")
	close(release)
	wg.Wait()

	// Assert
	if err != nil {
		t.Fatalf("expected new submit to succeed, got %v", err)
	}
	if sess.PreviewReport == nil || sess.PreviewReport.Grade != "A" {
		t.Errorf("expected fresh preview for new flow, got %+v", sess.PreviewReport)
	}
	final := ctrl.Snapshot()
	if final.Address != "new address" || final.PreviewReport.Grade != "A" {
		t.Errorf("expected stale response not to overwrite new flow, got %+v", final)
	}
}

func TestSubmitAddress_ConcurrentSubmitRejected(t *testing.T) {
	// Arrange
	entered := make(chan struct{})
	release := make(chan struct{})
	intel := &mocks.MockIntelClient{
		PreviewFunc: func(ctx context.Context, address string) (*domain.PreviewReport, error) {
			close(entered)
			<-release
			return &domain.PreviewReport{Grade: "B", MarketScore: 60}, nil
		},
	}
	ctrl := newTestController(intel)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ctrl.SubmitAddress(context.Background(), "1 Main St")
	}()
	<-entered

	// Act
	_, err := ctrl.SubmitAddress(context.Background(), "2 Side St")
	close(release)
	wg.Wait()

	// Assert
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if kind := flowKind(t, err); kind != domain.ErrKindConcurrentOperation {
		t.Errorf("expected concurrent operation error, got %q", kind)
	}
	if n := atomic.LoadInt64(&intel.PreviewCalls); n != 1 {
		t.Errorf("expected exactly one preview call, got %d", n)
	}
}

func TestFullFlow_FreeTierPurchase(t *testing.T) {
	// Arrange
	intel := &mocks.MockIntelClient{
		PurchaseFunc: func(ctx context.Context, address string, depthLevel int) (*domain.PurchaseResult, error) {
			return &domain.PurchaseResult{
				Report:        &domain.FullReport{Address: address, Grade: "B", MarketScore: 68},
				AmountCharged: 0,
				BillingKind:   domain.BillingOneTime,
			}, nil
		},
	}
	ctrl := newTestController(intel)

	// Act: full pass through the flow on the free tier
	if _, err := ctrl.SubmitAddress(context.Background(), "1 Main St"); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := ctrl.SelectDepth(1); err != nil {
		t.Fatalf("select depth failed: %v", err)
	}
	sess, err := ctrl.ConfirmPurchase(context.Background())

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sess.Stage != domain.StageResults {
		t.Errorf("expected stage %q, got %q", domain.StageResults, sess.Stage)
	}
	if sess.Billing == nil || sess.Billing.AmountCharged != 0 {
		t.Errorf("expected zero charge on free tier, got %+v", sess.Billing)
	}
}
