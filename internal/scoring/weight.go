package scoring

import (
	"math"

	"audit-readiness-service/internal/domain"
)

const (
	sterileBonus = 1.2
	activeBonus  = 1.3
	drugBonus    = 1.1
)

// ResolveWeight returns the effective weight of q for a classified device.
// Without a multiplier table, a classification or a matching class entry the
// base weight is returned unchanged. The result is never negative.
func ResolveWeight(q domain.Question, rc *domain.RiskClassification) float64 {
	base := math.Max(q.Weight, 0)
	if len(q.RiskMultipliers) == 0 || rc == nil {
		return base
	}

	class := rc.FDAClass
	if class == "" {
		class = rc.EUClass
	}
	if class == "" {
		return base
	}
	multiplier, ok := q.RiskMultipliers[class]
	if !ok {
		return base
	}

	w := base * math.Max(multiplier, 0)
	if rc.IsSterile && q.Category == domain.CategorySterilization {
		w *= sterileBonus
	}
	if rc.HasActiveComponents && (q.Category == domain.CategorySoftware || q.Category == domain.CategoryUsability) {
		w *= activeBonus
	}
	if rc.IsDrugDevice && q.Critical {
		w *= drugBonus
	}
	return roundTo(w, 1)
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
