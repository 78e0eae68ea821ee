package domain

import "fmt"

// AnalysisParameters are the fee, threshold and horizon inputs of one analysis.
// Rates are fractions (3% = 0.03). The sell fee plus sales tax may exceed 1;
// margins then go negative and nothing qualifies.
type AnalysisParameters struct {
	BuyFeeRate              float64 `json:"buy_fee_rate" yaml:"buy_fee_rate" validate:"finite,gte=0,lte=1"`
	SellFeeRate             float64 `json:"sell_fee_rate" yaml:"sell_fee_rate" validate:"finite,gte=0,lte=1"`
	SalesTaxRate            float64 `json:"sales_tax_rate" yaml:"sales_tax_rate" validate:"finite,gte=0,lte=1"`
	MinimumNetMarginPercent float64 `json:"minimum_net_margin_percent" yaml:"minimum_net_margin_percent" validate:"finite,gte=0"`
	HorizonDays             int     `json:"horizon_days" yaml:"horizon_days" validate:"gt=0"`
	// TargetVolume is optional; nil means no target was given.
	TargetVolume *int64 `json:"target_volume,omitempty" yaml:"target_volume,omitempty" validate:"omitempty,gt=0"`
}

// WithTargetVolume returns a copy of p with the target volume set.
func (p AnalysisParameters) WithTargetVolume(v int64) AnalysisParameters {
	p.TargetVolume = &v
	return p
}

func (p AnalysisParameters) String() string {
	target := "none"
	if p.TargetVolume != nil {
		target = fmt.Sprintf("%d", *p.TargetVolume)
	}
	return fmt.Sprintf("buy_fee=%.4f sell_fee=%.4f tax=%.4f min_margin=%.2f%% horizon=%dd target=%s",
		p.BuyFeeRate, p.SellFeeRate, p.SalesTaxRate, p.MinimumNetMarginPercent, p.HorizonDays, target)
}
