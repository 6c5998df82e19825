package ports

import (
	"context"

	"github.com/laundrotech/intel-gateway/internal/domain"
)

// IntelClient is the REST boundary to the location-intelligence backend.
// Implementations must treat any non-2xx status or malformed payload as a
// failure and return nothing, so callers can merge all-or-nothing.
type IntelClient interface {
	// Preview fetches the redacted preview report for an address.
	Preview(ctx context.Context, address string) (*domain.PreviewReport, error)

	// Purchase runs the tiered analysis for an address at the given depth.
	// The backend records a charge as a side effect, so callers must issue
	// at most one Purchase per user confirmation.
	Purchase(ctx context.Context, address string, depthLevel int) (*domain.PurchaseResult, error)
}
