// Package scoring turns assessment responses into a weighted readiness score,
// a ranked gap list and a qualitative risk assessment.
package scoring

import (
	"math"
	"sort"
	"strings"

	"audit-readiness-service/internal/domain"
)

const (
	// CriticalCap is the highest score an assessment with a critical hit can show.
	CriticalCap = 60
	// DefaultTopGaps is how many gaps TopGaps carries unless configured.
	DefaultTopGaps = 5

	amberThreshold = 70
	greenThreshold = 85

	freeTextCredit      = 0.7
	selectCriticalRatio = 0.5
	selectGapRatio      = 0.7
)

// Engine scores responses against a framework-filtered question list. It holds
// only read-only configuration and is safe to share between goroutines.
type Engine struct {
	clauses map[string]domain.Clause
	topN    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithTopGaps sets the size of ScoreResult.TopGaps. Non-positive values keep the default.
func WithTopGaps(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.topN = n
		}
	}
}

// NewEngine builds an engine that labels gaps with the given clause metadata.
func NewEngine(clauses map[string]domain.Clause, opts ...Option) *Engine {
	e := &Engine{clauses: clauses, topN: DefaultTopGaps}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type questionOutcome struct {
	achieved    float64
	criticalHit bool
	deficit     float64
	gap         bool
}

// Score computes a fresh ScoreResult. Responses for questions outside the list
// and answers that do not fit the question type are ignored; a later response
// for the same question supersedes an earlier one.
func (e *Engine) Score(responses []domain.Response, questions []domain.Question, rc *domain.RiskClassification) domain.ScoreResult {
	answers := make(map[string]domain.Answer, len(responses))
	for _, r := range responses {
		answers[r.QuestionID] = r.Answer
	}

	result := domain.ScoreResult{
		CriticalFailures: []string{},
		Gaps:             []domain.Gap{},
		QuestionCount:    len(questions),
	}

	var categories []string
	byCategory := make(map[string]*domain.CategoryBreakdown)

	for _, q := range questions {
		weight := ResolveWeight(q, rc)
		result.PossibleWeight += weight

		cb, ok := byCategory[q.Category]
		if !ok {
			cb = &domain.CategoryBreakdown{Category: q.Category}
			byCategory[q.Category] = cb
			categories = append(categories, q.Category)
		}
		cb.Possible += weight

		answer, ok := answers[q.ID]
		if !ok {
			continue
		}
		out, ok := evaluate(q, weight, answer)
		if !ok {
			continue
		}

		result.AnsweredCount++
		result.ObtainedWeight += out.achieved
		cb.Achieved += out.achieved
		if out.criticalHit {
			result.CriticalHit = true
			result.CriticalFailures = append(result.CriticalFailures, q.ID)
		}
		if out.gap {
			result.Gaps = append(result.Gaps, e.gapFor(q, out.deficit))
		}
	}

	result.RawPercentage = percentage(result.ObtainedWeight, result.PossibleWeight)
	result.Score = result.RawPercentage
	if result.CriticalHit && result.Score > CriticalCap {
		result.Score = CriticalCap
	}
	result.Status = StatusFor(result.Score)

	RankGaps(result.Gaps)
	result.TopGaps = TopGaps(result.Gaps, e.topN)

	result.Breakdown = make([]domain.CategoryBreakdown, 0, len(categories))
	for _, name := range categories {
		cb := byCategory[name]
		if cb.Possible > 0 {
			cb.Performance = roundTo(cb.Achieved/cb.Possible*100, 1)
		}
		cb.Achieved = roundTo(cb.Achieved, 2)
		cb.Possible = roundTo(cb.Possible, 2)
		result.Breakdown = append(result.Breakdown, *cb)
	}

	result.RiskAssessment = Assess(result)
	return result
}

// StatusFor maps a final score to its traffic light.
func StatusFor(score int) domain.Status {
	switch {
	case score >= greenThreshold:
		return domain.StatusGreen
	case score >= amberThreshold:
		return domain.StatusAmber
	default:
		return domain.StatusRed
	}
}

// RankGaps sorts gaps by deficit, largest first. Equal deficits keep their input order.
func RankGaps(gaps []domain.Gap) {
	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].Deficit > gaps[j].Deficit
	})
}

// TopGaps returns the first n ranked gaps.
func TopGaps(gaps []domain.Gap, n int) []domain.Gap {
	if n <= 0 || n > len(gaps) {
		n = len(gaps)
	}
	out := make([]domain.Gap, n)
	copy(out, gaps[:n])
	return out
}

func (e *Engine) gapFor(q domain.Question, deficit float64) domain.Gap {
	gap := domain.Gap{
		QuestionID: q.ID,
		ClauseRef:  q.ClauseRef,
		Category:   q.Category,
		Critical:   q.Critical,
		Deficit:    deficit,
	}
	if clause, ok := e.clauses[q.ClauseRef]; ok {
		gap.ClauseTitle = clause.Title
		gap.SuggestedEvidence = append([]string(nil), clause.SuggestedEvidence...)
	}
	return gap
}

// evaluate scores one answer. ok is false when the answer does not fit the
// question and must be treated as absent.
func evaluate(q domain.Question, weight float64, a domain.Answer) (questionOutcome, bool) {
	switch q.Type {
	case domain.QuestionYesNo:
		yes, ok := affirmative(a)
		if !ok {
			return questionOutcome{}, false
		}
		if yes {
			return questionOutcome{achieved: weight}, true
		}
		return questionOutcome{criticalHit: q.Critical, deficit: weight, gap: weight > 0}, true

	case domain.QuestionSingleSelect:
		idx, ok := optionIndex(q.Options, a)
		if !ok {
			return questionOutcome{}, false
		}
		ratio := 1.0
		if len(q.Options) > 1 {
			ratio = float64(idx) / float64(len(q.Options)-1)
		}
		out := questionOutcome{achieved: weight * ratio}
		if ratio < selectCriticalRatio && q.Critical {
			out.criticalHit = true
		}
		if ratio < selectGapRatio && weight > 0 {
			out.gap = true
			out.deficit = weight * (1 - ratio)
		}
		return out, true

	case domain.QuestionFreeText:
		text, ok := a.Text()
		if !ok || strings.TrimSpace(text) == "" {
			return questionOutcome{}, false
		}
		// Text cannot be verified automatically: partial credit, never a gap.
		return questionOutcome{achieved: weight * freeTextCredit}, true
	}
	return questionOutcome{}, false
}

func affirmative(a domain.Answer) (bool, bool) {
	if b, ok := a.Bool(); ok {
		return b, true
	}
	if s, ok := a.Text(); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "true":
			return true, true
		case "no", "false":
			return false, true
		}
	}
	return false, false
}

func optionIndex(options []string, a domain.Answer) (int, bool) {
	if n, ok := a.Number(); ok {
		if n != math.Trunc(n) || n < 0 || int(n) >= len(options) {
			return 0, false
		}
		return int(n), true
	}
	if s, ok := a.Text(); ok {
		for i, opt := range options {
			if opt == s {
				return i, true
			}
		}
		for i, opt := range options {
			if strings.EqualFold(opt, strings.TrimSpace(s)) {
				return i, true
			}
		}
	}
	return 0, false
}

func percentage(obtained, possible float64) int {
	if possible <= 0 {
		return 0
	}
	p := int(math.Round(100 * obtained / possible))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
