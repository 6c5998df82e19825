package domain

// BillingKind distinguishes one-time report purchases from recurring
// monitoring subscriptions.
type BillingKind string

const (
	BillingOneTime BillingKind = "one_time"
	BillingMonthly BillingKind = "monthly"
)

// DepthTier is a static catalog entry describing one purchasable analysis
// depth. The catalog is configuration data with no write path; levels are
// contiguous from 1, prices strictly increase, and each tier's feature list
// is a superset of the previous tier's. Those invariants are enforced when
// the catalog is loaded, not at runtime.
type DepthTier struct {
	Level       int         `json:"level" mapstructure:"level"`
	Name        string      `json:"name" mapstructure:"name"`
	PriceCents  int64       `json:"price_cents" mapstructure:"price_cents"`
	BillingKind BillingKind `json:"billing_kind" mapstructure:"billing_kind"`
	Features    []string    `json:"features" mapstructure:"features"`
}

// Free reports whether the tier requires no payment intent.
func (t DepthTier) Free() bool {
	return t.PriceCents == 0
}
