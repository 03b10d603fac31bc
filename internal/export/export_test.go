package export

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"audit-readiness-service/internal/app"
	"audit-readiness-service/internal/domain"
	"audit-readiness-service/internal/scoring"
)

func sampleReport() app.Report {
	questions := []domain.Question{
		{ID: "capa", Prompt: "Is there a documented CAPA procedure?", Type: domain.QuestionYesNo, Weight: 10, ClauseRef: "ISO13485-8.5.2", Category: "CAPA", Critical: true},
		{ID: "training", Prompt: "Are training records current?", Type: domain.QuestionYesNo, Weight: 4, ClauseRef: "ISO13485-6.2", Category: "Training"},
		{ID: "mgmt", Prompt: "Is management review held?", Type: domain.QuestionYesNo, Weight: 6, ClauseRef: "ISO13485-5.6", Category: "Management Responsibility"},
	}
	clauses := map[string]domain.Clause{
		"ISO13485-8.5.2": {Ref: "ISO13485-8.5.2", Title: "Improvement", SuggestedEvidence: []string{"CAPA procedure", "CAPA log"}},
		"ISO13485-6.2":   {Ref: "ISO13485-6.2", Title: "Human resources"},
	}
	responses := []domain.Response{
		{QuestionID: "capa", Answer: domain.BoolAnswer(false)},
		{QuestionID: "training", Answer: domain.BoolAnswer(false)},
		{QuestionID: "mgmt", Answer: domain.BoolAnswer(true)},
	}
	return app.Report{
		CatalogVersion: "test",
		Questions:      questions,
		Result:         scoring.NewEngine(clauses).Score(responses, questions, nil),
		GeneratedAt:    time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestJSONCarriesReportVersion(t *testing.T) {
	data, err := JSON(sampleReport())
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(doc["reportVersion"]) != `"`+ReportVersion+`"` {
		t.Fatalf("expected reportVersion %s, got %s", ReportVersion, doc["reportVersion"])
	}
	if _, ok := doc["result"]; !ok {
		t.Fatalf("expected embedded report fields, got keys %v", doc)
	}
}

func TestGapAnalysisListsEvidence(t *testing.T) {
	md := GapAnalysis(sampleReport())
	for _, want := range []string{
		"# Audit Readiness Gap Analysis",
		"## Critical Failures",
		"### 1. ISO13485-8.5.2 Improvement",
		"  - CAPA log",
		"| Training | 0 | 4 | 0% |",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("expected %q in gap analysis:\n%s", want, md)
		}
	}
}

func TestActionsPriorityAndDueDates(t *testing.T) {
	r := sampleReport()
	actions := Actions(r)
	if len(actions) != 2 {
		t.Fatalf("expected one action per gap, got %d", len(actions))
	}
	// 1 critical failure with score 0 is critical overall risk: due dates are halved.
	if r.Result.RiskAssessment.OverallRisk != domain.RiskCritical {
		t.Fatalf("expected critical risk, got %s", r.Result.RiskAssessment.OverallRisk)
	}
	if actions[0].QuestionID != "capa" || actions[0].Priority != PriorityHigh || actions[0].DueInDays != 15 {
		t.Fatalf("unexpected first action %+v", actions[0])
	}
	if actions[1].Priority != PriorityLow || actions[1].DueInDays != 45 {
		t.Fatalf("unexpected second action %+v", actions[1])
	}
	if !actions[0].Due.Equal(r.GeneratedAt.AddDate(0, 0, 15)) {
		t.Fatalf("unexpected due date %v", actions[0].Due)
	}

	plan := CAPAPlan(r)
	if !strings.Contains(plan, "- [ ] CAPA procedure") {
		t.Fatalf("expected evidence checklist:\n%s", plan)
	}
}

func TestInterviewScriptGroupsByClause(t *testing.T) {
	script := InterviewScript(sampleReport())
	if !strings.Contains(script, "## ISO13485-8.5.2 Improvement") {
		t.Fatalf("expected clause heading:\n%s", script)
	}
	if !strings.Contains(script, "1. Is there a documented CAPA procedure? Walk me through") {
		t.Fatalf("expected open question from prompt:\n%s", script)
	}
	if !strings.Contains(script, "Please show me the capa log.") {
		t.Fatalf("expected evidence request:\n%s", script)
	}
	if strings.Contains(script, "ISO13485-5.6") {
		t.Fatalf("answered clause should not be in script:\n%s", script)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	if _, _, err := Render("pdf", sampleReport()); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected unknown format, got %v", err)
	}
	body, ctype, err := Render(FormatCAPAPlan, sampleReport())
	if err != nil || ctype != "text/markdown; charset=utf-8" || len(body) == 0 {
		t.Fatalf("unexpected render result %q %v", ctype, err)
	}
}
