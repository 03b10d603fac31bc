package export

import (
	"fmt"
	"strings"
	"time"

	"audit-readiness-service/internal/app"
	"audit-readiness-service/internal/domain"
)

// GapAnalysis renders the category breakdown and the top gaps with evidence to collect.
func GapAnalysis(r app.Report) string {
	var sb strings.Builder
	header(&sb, "Audit Readiness Gap Analysis", r)

	res := r.Result
	if len(res.CriticalFailures) > 0 {
		sb.WriteString("## Critical Failures\n\n")
		for _, id := range res.CriticalFailures {
			sb.WriteString(fmt.Sprintf("- `%s`\n", id))
		}
		sb.WriteString("\n")
	}

	if len(res.Breakdown) > 0 {
		sb.WriteString("## Category Breakdown\n\n")
		sb.WriteString("| Category | Achieved | Possible | Performance |\n")
		sb.WriteString("|---|---|---|---|\n")
		for _, b := range res.Breakdown {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s%% |\n", b.Category, formatWeight(b.Achieved), formatWeight(b.Possible), formatWeight(b.Performance)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Top Gaps\n\n")
	if len(res.TopGaps) == 0 {
		sb.WriteString("No gaps found.\n")
		return sb.String()
	}
	for i, g := range res.TopGaps {
		title := g.ClauseRef
		if g.ClauseTitle != "" {
			title = fmt.Sprintf("%s %s", g.ClauseRef, g.ClauseTitle)
		}
		sb.WriteString(fmt.Sprintf("### %d. %s\n\n", i+1, strings.TrimSpace(title)))
		sb.WriteString(fmt.Sprintf("- **Question**: `%s`\n", g.QuestionID))
		sb.WriteString(fmt.Sprintf("- **Category**: %s\n", g.Category))
		sb.WriteString(fmt.Sprintf("- **Deficit**: %s\n", formatWeight(g.Deficit)))
		if g.Critical {
			sb.WriteString("- **Critical**: yes\n")
		}
		if len(g.SuggestedEvidence) > 0 {
			sb.WriteString("- **Evidence to prepare**:\n")
			for _, e := range g.SuggestedEvidence {
				sb.WriteString(fmt.Sprintf("  - %s\n", e))
			}
		}
		sb.WriteString("\n")
	}
	if extra := len(res.Gaps) - len(res.TopGaps); extra > 0 {
		sb.WriteString(fmt.Sprintf("_%d further gap(s) omitted._\n", extra))
	}
	return sb.String()
}

// Priority orders CAPA actions.
type Priority string

const (
	PriorityHigh   Priority = "P1"
	PriorityMedium Priority = "P2"
	PriorityLow    Priority = "P3"
)

// Action is one corrective/preventive action derived from a gap.
type Action struct {
	Number      int       `json:"number"`
	QuestionID  string    `json:"questionId"`
	ClauseRef   string    `json:"clauseRef"`
	ClauseTitle string    `json:"clauseTitle"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	DueInDays   int       `json:"dueInDays"`
	Due         time.Time `json:"due"`
	Evidence    []string  `json:"evidence"`
}

// Days allowed per priority, halved when the overall audit risk is critical.
var dueDays = map[Priority]int{
	PriorityHigh:   30,
	PriorityMedium: 60,
	PriorityLow:    90,
}

// Actions derives one CAPA action per gap, in ranked gap order.
func Actions(r app.Report) []Action {
	prompts := promptsByID(r.Questions)
	actions := make([]Action, 0, len(r.Result.Gaps))
	for i, g := range r.Result.Gaps {
		p := priorityFor(g)
		days := dueDays[p]
		if r.Result.RiskAssessment.OverallRisk == domain.RiskCritical {
			days /= 2
		}
		a := Action{
			Number:      i + 1,
			QuestionID:  g.QuestionID,
			ClauseRef:   g.ClauseRef,
			ClauseTitle: g.ClauseTitle,
			Description: actionText(g, prompts[g.QuestionID]),
			Priority:    p,
			DueInDays:   days,
			Evidence:    g.SuggestedEvidence,
		}
		if !r.GeneratedAt.IsZero() {
			a.Due = r.GeneratedAt.AddDate(0, 0, days)
		}
		actions = append(actions, a)
	}
	return actions
}

// CAPAPlan renders Actions as a markdown table plus evidence checklists.
func CAPAPlan(r app.Report) string {
	var sb strings.Builder
	header(&sb, "CAPA Plan", r)

	actions := Actions(r)
	if len(actions) == 0 {
		sb.WriteString("No corrective actions required.\n")
		return sb.String()
	}

	sb.WriteString("| # | Priority | Clause | Action | Due |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, a := range actions {
		due := fmt.Sprintf("%d days", a.DueInDays)
		if !a.Due.IsZero() {
			due = a.Due.Format("2006-01-02")
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n", a.Number, a.Priority, a.ClauseRef, a.Description, due))
	}

	sb.WriteString("\n## Verification Evidence\n\n")
	for _, a := range actions {
		if len(a.Evidence) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("### Action %d (%s)\n\n", a.Number, a.ClauseRef))
		for _, e := range a.Evidence {
			sb.WriteString(fmt.Sprintf("- [ ] %s\n", e))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// InterviewScript groups weak clauses and turns their questions into open
// questions an auditor would ask.
func InterviewScript(r app.Report) string {
	var sb strings.Builder
	header(&sb, "Mock Audit Interview Script", r)

	prompts := promptsByID(r.Questions)
	var order []string
	byClause := make(map[string][]domain.Gap)
	for _, g := range r.Result.Gaps {
		if _, ok := byClause[g.ClauseRef]; !ok {
			order = append(order, g.ClauseRef)
		}
		byClause[g.ClauseRef] = append(byClause[g.ClauseRef], g)
	}

	if len(order) == 0 {
		sb.WriteString("No weak clauses; walk the auditor through the management review summary.\n")
		return sb.String()
	}

	for _, ref := range order {
		gaps := byClause[ref]
		title := strings.TrimSpace(fmt.Sprintf("%s %s", ref, gaps[0].ClauseTitle))
		sb.WriteString(fmt.Sprintf("## %s\n\n", title))
		n := 1
		for _, g := range gaps {
			prompt := prompts[g.QuestionID]
			if prompt == "" {
				prompt = g.QuestionID
			}
			sb.WriteString(fmt.Sprintf("%d. %s Walk me through how this is done today.\n", n, prompt))
			n++
			sb.WriteString(fmt.Sprintf("%d. Who owns this in %s, and where is it recorded?\n", n, strings.ToLower(g.Category)))
			n++
			for _, e := range g.SuggestedEvidence {
				sb.WriteString(fmt.Sprintf("%d. Please show me the %s.\n", n, strings.ToLower(e)))
				n++
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func priorityFor(g domain.Gap) Priority {
	switch {
	case g.Critical:
		return PriorityHigh
	case g.Deficit >= 5:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

func actionText(g domain.Gap, prompt string) string {
	subject := g.ClauseTitle
	if subject == "" {
		subject = g.QuestionID
	}
	if prompt == "" {
		return fmt.Sprintf("Close gap in %s", subject)
	}
	return fmt.Sprintf("Close gap in %s: %s", subject, strings.ReplaceAll(prompt, "|", "/"))
}

func promptsByID(questions []domain.Question) map[string]string {
	out := make(map[string]string, len(questions))
	for _, q := range questions {
		out[q.ID] = q.Prompt
	}
	return out
}
