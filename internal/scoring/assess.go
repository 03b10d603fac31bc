package scoring

import (
	"fmt"

	"audit-readiness-service/internal/domain"
)

const (
	maxMitigations        = 10
	weakCategoryThreshold = 50.0
)

// Assess derives the qualitative risk picture of a score. It only reads the
// result; the numeric score is never changed here.
func Assess(result domain.ScoreResult) domain.RiskAssessment {
	critical := len(result.CriticalFailures)
	return domain.RiskAssessment{
		OverallRisk:          overallRisk(result.Score, critical),
		Maturity:             maturity(result.Score, critical),
		Factors:              riskFactors(result),
		MitigationPriorities: mitigationPriorities(result.Gaps),
	}
}

func overallRisk(score, criticalFailures int) domain.OverallRisk {
	switch {
	case criticalFailures >= 3, criticalFailures > 0 && score < 40:
		return domain.RiskCritical
	case criticalFailures > 0, score < 50:
		return domain.RiskHigh
	case score < greenThreshold:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func maturity(score, criticalFailures int) domain.MaturityTier {
	switch {
	case criticalFailures == 0 && score >= 90:
		return domain.MaturityOptimized
	case criticalFailures == 0 && score >= 75:
		return domain.MaturityAdvanced
	case score >= 50:
		return domain.MaturityDeveloping
	default:
		return domain.MaturityBasic
	}
}

func riskFactors(result domain.ScoreResult) []domain.RiskFactor {
	factors := []domain.RiskFactor{}

	deficits := make(map[string]domain.Gap, len(result.Gaps))
	for _, g := range result.Gaps {
		deficits[g.QuestionID] = g
	}
	for _, id := range result.CriticalFailures {
		g := deficits[id]
		label := g.ClauseTitle
		if label == "" {
			label = id
		}
		factors = append(factors, domain.RiskFactor{
			Type:        "critical_failure",
			Description: fmt.Sprintf("Critical requirement not met: %s (%s)", label, id),
			Impact:      roundTo(g.Deficit, 1),
			Likelihood:  domain.LikelihoodHigh,
		})
	}

	if result.Score < amberThreshold && result.QuestionCount > 0 {
		likelihood := domain.LikelihoodMedium
		if result.Score < weakCategoryThreshold {
			likelihood = domain.LikelihoodHigh
		}
		factors = append(factors, domain.RiskFactor{
			Type:        "readiness_gap",
			Description: fmt.Sprintf("Overall readiness %d%% is below the %d%% audit threshold", result.Score, amberThreshold),
			Impact:      float64(amberThreshold - result.Score),
			Likelihood:  likelihood,
		})
	}

	withGaps := make(map[string]bool)
	for _, g := range result.Gaps {
		withGaps[g.Category] = true
	}
	for _, cb := range result.Breakdown {
		if !withGaps[cb.Category] || cb.Performance >= weakCategoryThreshold {
			continue
		}
		likelihood := domain.LikelihoodMedium
		if cb.Performance < weakCategoryThreshold/2 {
			likelihood = domain.LikelihoodHigh
		}
		factors = append(factors, domain.RiskFactor{
			Type:        "category_weakness",
			Description: fmt.Sprintf("%s performs at %.0f%%", cb.Category, cb.Performance),
			Impact:      roundTo(cb.Possible-cb.Achieved, 1),
			Likelihood:  likelihood,
		})
	}

	if unanswered := result.QuestionCount - result.AnsweredCount; unanswered > 0 {
		likelihood := domain.LikelihoodLow
		if unanswered*2 > result.QuestionCount {
			likelihood = domain.LikelihoodMedium
		}
		factors = append(factors, domain.RiskFactor{
			Type:        "incomplete_assessment",
			Description: fmt.Sprintf("%d of %d questions unanswered", unanswered, result.QuestionCount),
			Impact:      roundTo(float64(unanswered)/float64(result.QuestionCount)*100, 1),
			Likelihood:  likelihood,
		})
	}
	return factors
}

// mitigationPriorities lists critical gaps first, then the rest, each group
// in gap-ranking order.
func mitigationPriorities(gaps []domain.Gap) []domain.MitigationPriority {
	ordered := make([]domain.Gap, 0, len(gaps))
	for _, g := range gaps {
		if g.Critical {
			ordered = append(ordered, g)
		}
	}
	for _, g := range gaps {
		if !g.Critical {
			ordered = append(ordered, g)
		}
	}
	if len(ordered) > maxMitigations {
		ordered = ordered[:maxMitigations]
	}

	out := make([]domain.MitigationPriority, 0, len(ordered))
	for i, g := range ordered {
		out = append(out, domain.MitigationPriority{
			Rank:        i + 1,
			QuestionID:  g.QuestionID,
			ClauseRef:   g.ClauseRef,
			ClauseTitle: g.ClauseTitle,
			Critical:    g.Critical,
			Deficit:     roundTo(g.Deficit, 1),
		})
	}
	return out
}
