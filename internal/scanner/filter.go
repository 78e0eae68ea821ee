package scanner

import (
	"github.com/alejandrodnm/flipscan/internal/domain"
)

// FilterConfig selects which reports reach the notifier. Scan results
// returned to the caller are never filtered.
type FilterConfig struct {
	// OnlyWithRecommendations drops reports with no qualifying pair.
	OnlyWithRecommendations bool `yaml:"only_with_recommendations"`
	// MinPotentialProfit drops reports whose best pair earns less than this.
	MinPotentialProfit float64 `yaml:"min_potential_profit"`
	// MaxVolatility drops reports whose price volatility (percent) is above this.
	MaxVolatility float64 `yaml:"max_volatility"`
	// MinFeasibility drops reports below this tier. Empty keeps every tier.
	MinFeasibility domain.Feasibility `yaml:"min_feasibility"`
}

// DefaultFilterConfig lets everything through.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{}
}

// Filter applies a FilterConfig to a list of reports.
type Filter struct {
	cfg FilterConfig
}

// NewFilter builds a Filter.
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// Apply returns the reports that pass every criterion, in order.
func (f *Filter) Apply(reports []domain.Report) []domain.Report {
	result := make([]domain.Report, 0, len(reports))
	for _, r := range reports {
		if f.passes(r) {
			result = append(result, r)
		}
	}
	return result
}

func (f *Filter) passes(r domain.Report) bool {
	recs := r.Result.Recommendations
	if f.cfg.OnlyWithRecommendations && len(recs) == 0 {
		return false
	}
	if f.cfg.MinPotentialProfit > 0 && (len(recs) == 0 || recs[0].PotentialProfit < f.cfg.MinPotentialProfit) {
		return false
	}
	if f.cfg.MaxVolatility > 0 && r.Result.Market.Volatility > f.cfg.MaxVolatility {
		return false
	}
	if f.cfg.MinFeasibility != "" && tierRank(r.Result.Market.Feasibility) < tierRank(f.cfg.MinFeasibility) {
		return false
	}
	return true
}

func tierRank(f domain.Feasibility) int {
	switch f {
	case domain.FeasibilityHigh:
		return 2
	case domain.FeasibilityMedium:
		return 1
	default:
		return 0
	}
}
