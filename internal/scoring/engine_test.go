package scoring

import (
	"math"
	"testing"

	"audit-readiness-service/internal/domain"
)

func TestScoreCriticalNoIsCappedRed(t *testing.T) {
	questions := []domain.Question{
		{ID: "q1", Type: domain.QuestionYesNo, Weight: 10, Critical: true, ClauseRef: "C1", Category: "CAPA", Frameworks: []domain.Framework{domain.FrameworkISO13485}},
	}
	engine := NewEngine(map[string]domain.Clause{"C1": {Ref: "C1", Title: "Corrective Action", SuggestedEvidence: []string{"CAPA log"}}})

	res := engine.Score([]domain.Response{{QuestionID: "q1", Answer: domain.BoolAnswer(false)}}, questions, nil)

	if res.Score != 0 || res.Status != domain.StatusRed || !res.CriticalHit {
		t.Fatalf("expected score 0 red with critical hit, got %+v", res)
	}
	if len(res.CriticalFailures) != 1 || res.CriticalFailures[0] != "q1" {
		t.Fatalf("expected q1 in critical failures, got %v", res.CriticalFailures)
	}
	if len(res.Gaps) != 1 || res.Gaps[0].Deficit != 10 {
		t.Fatalf("expected one gap with deficit 10, got %+v", res.Gaps)
	}
	if res.Gaps[0].ClauseTitle != "Corrective Action" || len(res.Gaps[0].SuggestedEvidence) != 1 {
		t.Fatalf("expected clause metadata on gap, got %+v", res.Gaps[0])
	}
}

func TestScoreAllAffirmativeIsGreen(t *testing.T) {
	questions := []domain.Question{
		{ID: "a", Type: domain.QuestionYesNo, Weight: 5, Category: "A"},
		{ID: "b", Type: domain.QuestionYesNo, Weight: 5, Category: "B"},
		{ID: "c", Type: domain.QuestionSingleSelect, Weight: 8, Category: "B", Critical: true, Options: []string{"none", "some", "all"}},
	}
	responses := []domain.Response{
		{QuestionID: "a", Answer: domain.BoolAnswer(true)},
		{QuestionID: "b", Answer: domain.TextAnswer("yes")},
		{QuestionID: "c", Answer: domain.TextAnswer("all")},
	}

	res := NewEngine(nil).Score(responses, questions, nil)
	if res.Score != 100 || res.Status != domain.StatusGreen {
		t.Fatalf("expected 100 green, got %d %s", res.Score, res.Status)
	}
	if len(res.Gaps) != 0 || res.CriticalHit {
		t.Fatalf("expected no gaps and no critical hit, got %+v", res)
	}
	if res.RiskAssessment.OverallRisk != domain.RiskLow || res.RiskAssessment.Maturity != domain.MaturityOptimized {
		t.Fatalf("unexpected risk assessment %+v", res.RiskAssessment)
	}
}

func TestScoreSelectOrdinalRatio(t *testing.T) {
	questions := []domain.Question{
		{ID: "s", Type: domain.QuestionSingleSelect, Weight: 8, Category: "X", Options: []string{"0", "1", "2", "3"}},
	}
	res := NewEngine(nil).Score([]domain.Response{{QuestionID: "s", Answer: domain.NumberAnswer(2)}}, questions, nil)

	if math.Abs(res.ObtainedWeight-16.0/3) > 1e-9 {
		t.Fatalf("expected achieved 5.33, got %f", res.ObtainedWeight)
	}
	if len(res.Gaps) != 1 || math.Abs(res.Gaps[0].Deficit-8.0/3) > 1e-9 {
		t.Fatalf("expected gap with deficit 2.67, got %+v", res.Gaps)
	}
	if res.Score != 67 || res.CriticalHit {
		t.Fatalf("expected 67 without critical hit, got %d", res.Score)
	}
}

func TestScoreCriticalSelectBelowHalf(t *testing.T) {
	questions := []domain.Question{
		{ID: "s", Type: domain.QuestionSingleSelect, Weight: 2, Critical: true, Category: "X", Options: []string{"a", "b", "c", "d"}},
		{ID: "y", Type: domain.QuestionYesNo, Weight: 50, Category: "Y"},
	}
	responses := []domain.Response{
		{QuestionID: "s", Answer: domain.TextAnswer("b")},
		{QuestionID: "y", Answer: domain.BoolAnswer(true)},
	}

	res := NewEngine(nil).Score(responses, questions, nil)
	if res.RawPercentage <= CriticalCap {
		t.Fatalf("test needs raw percentage above cap, got %d", res.RawPercentage)
	}
	if res.Score != CriticalCap || res.Status != domain.StatusRed {
		t.Fatalf("expected capped red score, got %d %s", res.Score, res.Status)
	}
	if res.Score > res.RawPercentage {
		t.Fatalf("cap must never raise the score")
	}
}

func TestScoreSingleOptionSelectIsSatisfied(t *testing.T) {
	questions := []domain.Question{
		{ID: "s", Type: domain.QuestionSingleSelect, Weight: 4, Critical: true, Category: "X", Options: []string{"only"}},
	}
	res := NewEngine(nil).Score([]domain.Response{{QuestionID: "s", Answer: domain.NumberAnswer(0)}}, questions, nil)
	if res.Score != 100 || len(res.Gaps) != 0 || res.CriticalHit {
		t.Fatalf("expected single option to count as fully satisfied, got %+v", res)
	}
}

func TestScoreFreeTextPartialCreditWithoutGap(t *testing.T) {
	questions := []domain.Question{
		{ID: "t", Type: domain.QuestionFreeText, Weight: 10, Critical: true, Category: "X"},
	}
	res := NewEngine(nil).Score([]domain.Response{{QuestionID: "t", Answer: domain.TextAnswer("we trend complaints monthly")}}, questions, nil)
	if res.Score != 70 || res.Status != domain.StatusAmber {
		t.Fatalf("expected 70 amber, got %d %s", res.Score, res.Status)
	}
	if len(res.Gaps) != 0 || res.CriticalHit {
		t.Fatalf("free text must not register gaps or critical hits, got %+v", res)
	}

	blank := NewEngine(nil).Score([]domain.Response{{QuestionID: "t", Answer: domain.TextAnswer("  ")}}, questions, nil)
	if blank.AnsweredCount != 0 || blank.Score != 0 {
		t.Fatalf("blank text should count as unanswered, got %+v", blank)
	}
}

func TestScoreIgnoresStaleInput(t *testing.T) {
	questions := []domain.Question{
		{ID: "a", Type: domain.QuestionYesNo, Weight: 5, Category: "A"},
		{ID: "s", Type: domain.QuestionSingleSelect, Weight: 5, Category: "A", Options: []string{"x", "y"}},
	}
	responses := []domain.Response{
		{QuestionID: "gone", Answer: domain.BoolAnswer(false)},
		{QuestionID: "a", Answer: domain.NumberAnswer(3)},
		{QuestionID: "s", Answer: domain.TextAnswer("not an option")},
	}
	res := NewEngine(nil).Score(responses, questions, nil)
	if res.AnsweredCount != 0 || len(res.Gaps) != 0 || res.Score != 0 {
		t.Fatalf("expected all responses ignored, got %+v", res)
	}
}

func TestScoreLaterResponseSupersedes(t *testing.T) {
	questions := []domain.Question{{ID: "a", Type: domain.QuestionYesNo, Weight: 5, Critical: true, Category: "A"}}
	responses := []domain.Response{
		{QuestionID: "a", Answer: domain.BoolAnswer(false)},
		{QuestionID: "a", Answer: domain.BoolAnswer(true)},
	}
	res := NewEngine(nil).Score(responses, questions, nil)
	if res.Score != 100 || res.CriticalHit {
		t.Fatalf("expected last answer to win, got %+v", res)
	}
}

func TestScoreEmptyCatalog(t *testing.T) {
	res := NewEngine(nil).Score([]domain.Response{{QuestionID: "a", Answer: domain.BoolAnswer(true)}}, nil, nil)
	if res.Score != 0 || res.Status != domain.StatusRed {
		t.Fatalf("expected neutral 0 for empty catalog, got %+v", res)
	}
}

func TestGapsRankedStableAndTopN(t *testing.T) {
	questions := []domain.Question{
		{ID: "a", Type: domain.QuestionYesNo, Weight: 3, Category: "A"},
		{ID: "b", Type: domain.QuestionYesNo, Weight: 7, Category: "A"},
		{ID: "c", Type: domain.QuestionYesNo, Weight: 3, Category: "B"},
		{ID: "d", Type: domain.QuestionYesNo, Weight: 5, Category: "B"},
	}
	var responses []domain.Response
	for _, q := range questions {
		responses = append(responses, domain.Response{QuestionID: q.ID, Answer: domain.BoolAnswer(false)})
	}

	res := NewEngine(nil, WithTopGaps(2)).Score(responses, questions, nil)
	want := []string{"b", "d", "a", "c"}
	for i, id := range want {
		if res.Gaps[i].QuestionID != id {
			t.Fatalf("gap %d: expected %s, got %s", i, id, res.Gaps[i].QuestionID)
		}
	}
	for i := 1; i < len(res.Gaps); i++ {
		if res.Gaps[i].Deficit > res.Gaps[i-1].Deficit || res.Gaps[i].Deficit < 0 {
			t.Fatalf("gaps not sorted non-increasing: %+v", res.Gaps)
		}
	}
	if len(res.TopGaps) != 2 || res.TopGaps[0].QuestionID != "b" {
		t.Fatalf("expected top 2 gaps, got %+v", res.TopGaps)
	}
}

func TestBreakdownByCategory(t *testing.T) {
	questions := []domain.Question{
		{ID: "a", Type: domain.QuestionYesNo, Weight: 4, Category: "Design"},
		{ID: "b", Type: domain.QuestionYesNo, Weight: 4, Category: "Design"},
		{ID: "c", Type: domain.QuestionYesNo, Weight: 2, Category: "CAPA"},
	}
	responses := []domain.Response{
		{QuestionID: "a", Answer: domain.BoolAnswer(true)},
		{QuestionID: "b", Answer: domain.BoolAnswer(false)},
		{QuestionID: "c", Answer: domain.BoolAnswer(true)},
	}
	res := NewEngine(nil).Score(responses, questions, nil)
	if len(res.Breakdown) != 2 {
		t.Fatalf("expected 2 categories, got %+v", res.Breakdown)
	}
	design := res.Breakdown[0]
	if design.Category != "Design" || design.Achieved != 4 || design.Possible != 8 || design.Performance != 50 {
		t.Fatalf("unexpected design breakdown %+v", design)
	}
	if res.Breakdown[1].Performance != 100 {
		t.Fatalf("unexpected capa breakdown %+v", res.Breakdown[1])
	}
}

func TestScoreUsesRiskWeights(t *testing.T) {
	questions := []domain.Question{
		{ID: "a", Type: domain.QuestionYesNo, Weight: 10, Category: "A", RiskMultipliers: map[string]float64{domain.ClassIII: 2}},
		{ID: "b", Type: domain.QuestionYesNo, Weight: 10, Category: "B"},
	}
	responses := []domain.Response{
		{QuestionID: "a", Answer: domain.BoolAnswer(false)},
		{QuestionID: "b", Answer: domain.BoolAnswer(true)},
	}
	rc := Classify(domain.DeviceAttributes{FDAClass: domain.ClassIII})

	plain := NewEngine(nil).Score(responses, questions, nil)
	weighted := NewEngine(nil).Score(responses, questions, &rc)
	if plain.Score != 50 {
		t.Fatalf("expected 50 without classification, got %d", plain.Score)
	}
	if weighted.Score != 33 || weighted.PossibleWeight != 30 {
		t.Fatalf("expected 33 of 30 possible, got %d of %f", weighted.Score, weighted.PossibleWeight)
	}
}
