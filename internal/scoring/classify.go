package scoring

import "audit-readiness-service/internal/domain"

// Classify maps device attributes to a risk level. Rules are checked top to
// bottom and the first match wins.
func Classify(attrs domain.DeviceAttributes) domain.RiskClassification {
	return domain.RiskClassification{
		DeviceAttributes: attrs,
		Level:            classifyLevel(attrs),
	}
}

func classifyLevel(a domain.DeviceAttributes) domain.RiskLevel {
	switch {
	case a.FDAClass == domain.ClassIII || a.EUClass == domain.ClassIII:
		return domain.RiskLevelVeryHigh
	case a.FDAClass == domain.ClassII || a.EUClass == domain.ClassIIb || a.IsDrugDevice:
		return domain.RiskLevelHigh
	case a.EUClass == domain.ClassIIa || a.IsSterile || a.HasActiveComponents || a.IsMeasuring:
		return domain.RiskLevelMedium
	default:
		return domain.RiskLevelLow
	}
}
