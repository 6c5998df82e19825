package catalog

import (
	"fmt"

	"github.com/laundrotech/intel-gateway/internal/domain"
)

// Catalog is the static set of purchasable depth tiers. It is loaded from
// configuration once at startup and has no write path; the controller only
// consults it to validate depth selections.
type Catalog struct {
	tiers []domain.DepthTier
}

// New builds a catalog from configuration data, enforcing the catalog
// invariants: levels contiguous from 1, strictly increasing prices, and
// each tier's feature list a superset of the previous tier's.
func New(tiers []domain.DepthTier) (*Catalog, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("tier catalog is empty")
	}

	for i, tier := range tiers {
		if tier.Level != i+1 {
			return nil, fmt.Errorf("tier levels must be contiguous from 1, got level %d at position %d", tier.Level, i)
		}
		if tier.Name == "" {
			return nil, fmt.Errorf("tier %d has no name", tier.Level)
		}
		if tier.BillingKind != domain.BillingOneTime && tier.BillingKind != domain.BillingMonthly {
			return nil, fmt.Errorf("tier %d has unknown billing kind %q", tier.Level, tier.BillingKind)
		}
		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if tier.PriceCents <= prev.PriceCents {
			return nil, fmt.Errorf("tier %d price must exceed tier %d price", tier.Level, prev.Level)
		}
		if !containsAll(tier.Features, prev.Features) {
			return nil, fmt.Errorf("tier %d features must include all tier %d features", tier.Level, prev.Level)
		}
	}

	out := make([]domain.DepthTier, len(tiers))
	copy(out, tiers)
	return &Catalog{tiers: out}, nil
}

func containsAll(features, required []string) bool {
	set := make(map[string]struct{}, len(features))
	for _, f := range features {
		set[f] = struct{}{}
	}
	for _, f := range required {
		if _, ok := set[f]; !ok {
			return false
		}
	}
	return true
}

// Tier returns the tier for a level, if the level is in range.
func (c *Catalog) Tier(level int) (domain.DepthTier, bool) {
	if !c.Contains(level) {
		return domain.DepthTier{}, false
	}
	return c.tiers[level-1], true
}

// Contains reports whether a level is within the catalog.
func (c *Catalog) Contains(level int) bool {
	return level >= 1 && level <= len(c.tiers)
}

// MinLevel returns the lowest purchasable level.
func (c *Catalog) MinLevel() int {
	return c.tiers[0].Level
}

// MaxLevel returns the highest purchasable level.
func (c *Catalog) MaxLevel() int {
	return c.tiers[len(c.tiers)-1].Level
}

// Tiers returns a copy of all tiers in level order.
func (c *Catalog) Tiers() []domain.DepthTier {
	out := make([]domain.DepthTier, len(c.tiers))
	copy(out, c.tiers)
	return out
}

// Default returns the built-in LaundroTech tier catalog, used when the
// configuration file does not override it.
func Default() *Catalog {
	cat, err := New([]domain.DepthTier{
		{
			Level:       1,
			Name:        "Location Scout",
			PriceCents:  0,
			BillingKind: domain.BillingOneTime,
			Features: []string{
				"Location grade",
				"Market score",
			},
		},
		{
			Level:       2,
			Name:        "Market Insights",
			PriceCents:  2900,
			BillingKind: domain.BillingOneTime,
			Features: []string{
				"Location grade",
				"Market score",
				"Full demographics",
				"Competition map",
			},
		},
		{
			Level:       3,
			Name:        "Business Intelligence",
			PriceCents:  7900,
			BillingKind: domain.BillingOneTime,
			Features: []string{
				"Location grade",
				"Market score",
				"Full demographics",
				"Competition map",
				"ROI projection",
				"Lease and equipment analysis",
			},
		},
		{
			Level:       4,
			Name:        "Enterprise Analysis",
			PriceCents:  19900,
			BillingKind: domain.BillingMonthly,
			Features: []string{
				"Location grade",
				"Market score",
				"Full demographics",
				"Competition map",
				"ROI projection",
				"Lease and equipment analysis",
				"Portfolio benchmarking",
				"Multi-site comparison",
			},
		},
		{
			Level:       5,
			Name:        "Real-Time Monitoring",
			PriceCents:  49900,
			BillingKind: domain.BillingMonthly,
			Features: []string{
				"Location grade",
				"Market score",
				"Full demographics",
				"Competition map",
				"ROI projection",
				"Lease and equipment analysis",
				"Portfolio benchmarking",
				"Multi-site comparison",
				"Live market feed",
				"Alerting",
			},
		},
	})
	if err != nil {
		panic(err) // built-in catalog is validated by tests
	}
	return cat
}
