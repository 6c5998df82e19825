package domain

import (
	"errors"
	"time"
)

// DemographicsPreview is the truncated demographic snapshot shown before
// purchase. Figures are banded or rounded at the data layer; the exact
// values only exist in the full report.
type DemographicsPreview struct {
	PopulationApprox int    `json:"population_approx"`
	IncomeBand       string `json:"income_band"`
	RenterShareBand  string `json:"renter_share_band"`
}

// CompetitionOverview summarizes nearby competition without naming sites.
type CompetitionOverview struct {
	NearbyCount     int     `json:"nearby_count"`
	NearestMiles    float64 `json:"nearest_miles"`
	SaturationLabel string  `json:"saturation_label"`
}

// ROIPreview carries indicative return figures flagged as non-actionable.
type ROIPreview struct {
	EstimateLowCents  int64 `json:"estimate_low_cents"`
	EstimateHighCents int64 `json:"estimate_high_cents"`
	NonActionable     bool  `json:"non_actionable"`
}

// PreviewReport is the partial, intentionally redacted intelligence
// snapshot. Redaction is structural: this type has no fields for the
// purchasable report sections, so a leaked-but-hidden value cannot exist.
type PreviewReport struct {
	Grade        string              `json:"grade"`
	MarketScore  float64             `json:"market_score"`
	Demographics DemographicsPreview `json:"demographics_preview"`
	Competition  CompetitionOverview `json:"competition_overview"`
	ROI          ROIPreview          `json:"roi_preview"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

// Validate rejects incomplete preview payloads so that a malformed backend
// response never half-populates a session.
func (r *PreviewReport) Validate() error {
	if r.Grade == "" {
		return errors.New("preview report missing grade")
	}
	if r.MarketScore < 0 || r.MarketScore > 100 {
		return errors.New("preview report market score out of range")
	}
	return nil
}

// Demographics is the full demographic profile of a location.
type Demographics struct {
	Population        int     `json:"population"`
	Households        int     `json:"households"`
	MedianIncomeCents int64   `json:"median_income_cents"`
	RenterShare       float64 `json:"renter_share"`
	GrowthRate        float64 `json:"growth_rate"`
}

// Competitor describes one competing location.
type Competitor struct {
	Name          string  `json:"name"`
	DistanceMiles float64 `json:"distance_miles"`
	Rating        float64 `json:"rating"`
	MachineCount  int     `json:"machine_count"`
}

// CompetitionReport is the full competitive landscape.
type CompetitionReport struct {
	Competitors     []Competitor `json:"competitors"`
	SaturationIndex float64      `json:"saturation_index"`
}

// ROIProjection is the actionable return model unlocked by purchase.
type ROIProjection struct {
	MonthlyRevenueCents int64   `json:"monthly_revenue_cents"`
	MonthlyCostCents    int64   `json:"monthly_cost_cents"`
	PaybackMonths       float64 `json:"payback_months"`
}

// BusinessIntelligence appears on reports of depth 3 and above.
type BusinessIntelligence struct {
	LeaseAnalysis  string   `json:"lease_analysis"`
	EquipmentMix   []string `json:"equipment_mix"`
	RevenueDrivers []string `json:"revenue_drivers"`
}

// EnterpriseFeatures appears on reports of depth 4 and above.
type EnterpriseFeatures struct {
	PortfolioBenchmark string   `json:"portfolio_benchmark"`
	SiteComparisons    []string `json:"site_comparisons"`
}

// RealTimeFeatures appears on depth-5 reports and names the monitoring
// stream the dashboard can subscribe to.
type RealTimeFeatures struct {
	StreamTopic       string `json:"stream_topic"`
	Refreshwindow     string `json:"refresh_window"`
	MonitoringEnabled bool   `json:"monitoring_enabled"`
}

// FullReport is the complete purchased result. Optional sections are
// populated by the backend according to the purchased depth; presence is
// always checked by existence, never inferred from the depth alone.
type FullReport struct {
	Address              string                `json:"address"`
	Grade                string                `json:"grade"`
	MarketScore          float64               `json:"market_score"`
	Demographics         Demographics          `json:"demographics"`
	Competition          CompetitionReport     `json:"competition"`
	ROI                  ROIProjection         `json:"roi"`
	BusinessIntelligence *BusinessIntelligence `json:"business_intelligence,omitempty"`
	EnterpriseFeatures   *EnterpriseFeatures   `json:"enterprise_features,omitempty"`
	RealTimeFeatures     *RealTimeFeatures     `json:"real_time_features,omitempty"`
	GeneratedAt          time.Time             `json:"generated_at"`
}

func (r *FullReport) HasBusinessIntelligence() bool {
	return r.BusinessIntelligence != nil
}

func (r *FullReport) HasEnterpriseFeatures() bool {
	return r.EnterpriseFeatures != nil
}

func (r *FullReport) HasRealTimeFeatures() bool {
	return r.RealTimeFeatures != nil
}

// Validate rejects incomplete full-report payloads.
func (r *FullReport) Validate() error {
	if r.Grade == "" {
		return errors.New("full report missing grade")
	}
	if r.Address == "" {
		return errors.New("full report missing address")
	}
	return nil
}

// PurchaseResult is the tiered analysis backend's purchase response: the
// full report plus the billing metadata it recorded.
type PurchaseResult struct {
	Report        *FullReport `json:"report"`
	AmountCharged int64       `json:"amount_charged"`
	BillingKind   BillingKind `json:"billing_kind"`
}

// Validate enforces the all-or-nothing merge discipline for purchases.
func (p *PurchaseResult) Validate() error {
	if p.Report == nil {
		return errors.New("purchase result missing report")
	}
	if p.AmountCharged < 0 {
		return errors.New("purchase result has negative charge")
	}
	if p.BillingKind != BillingOneTime && p.BillingKind != BillingMonthly {
		return errors.New("purchase result has unknown billing kind")
	}
	return p.Report.Validate()
}
