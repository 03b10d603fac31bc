package team

import (
	"testing"

	"audit-readiness-service/internal/domain"
	"audit-readiness-service/internal/scoring"
)

func aggregateQuestions() []domain.Question {
	return []domain.Question{
		{ID: "q1", Type: domain.QuestionYesNo, Weight: 5, Category: "CAPA"},
		{ID: "q2", Type: domain.QuestionYesNo, Weight: 5, Category: "Design Controls"},
		{ID: "q3", Type: domain.QuestionYesNo, Weight: 5, Category: "Design Controls"},
	}
}

func TestAggregateScoresOnlyConsensusAnswers(t *testing.T) {
	team := []domain.Member{
		{ID: "qa", Name: "Quinn", Role: "quality_manager"},
		{ID: "de", Name: "Dana", Role: "design_engineer"},
	}
	yes, no := domain.BoolAnswer(true), domain.BoolAnswer(false)

	q1 := NewTeamResponse("q1")
	q1, _ = RecordIndividual(q1, team, "qa", domain.IndividualResponse{Answer: yes, Confidence: 4})
	q1, _ = RecordIndividual(q1, team, "de", domain.IndividualResponse{Answer: yes, Confidence: 4})

	q2 := NewTeamResponse("q2")
	q2, _ = RecordIndividual(q2, team, "qa", domain.IndividualResponse{Answer: yes, Confidence: 4})
	q2, _ = RecordIndividual(q2, team, "de", domain.IndividualResponse{Answer: no, Confidence: 4})
	q2, _ = AddNote(q2, team, domain.DiscussionNote{MemberID: "qa", Text: "DHF is incomplete"})
	q2, _ = AddNote(q2, team, domain.DiscussionNote{MemberID: "de", Text: "agreed"})

	responses := map[string]domain.TeamResponse{"q1": q1, "q2": q2}
	got := Aggregate(scoring.NewEngine(nil), responses, team, aggregateQuestions(), nil)

	if len(got.ResolvedQuestions) != 1 || got.ResolvedQuestions[0] != "q1" {
		t.Fatalf("expected q1 resolved, got %v", got.ResolvedQuestions)
	}
	if len(got.PendingQuestions) != 1 || got.PendingQuestions[0] != "q2" {
		t.Fatalf("expected q2 pending, got %v", got.PendingQuestions)
	}
	if got.Result.AnsweredCount != 1 || got.Result.Score != 33 {
		t.Fatalf("expected only consensus answer scored, got %+v", got.Result)
	}
	if got.ConsensusRate != 50 || got.Participation != 100 || got.CommunicationScore != 25 {
		t.Fatalf("unexpected metrics rate=%v participation=%v communication=%v", got.ConsensusRate, got.Participation, got.CommunicationScore)
	}
	// 0.4*50 + 0.3*100 + 0.3*25
	if got.CollaborationScore != 58 {
		t.Fatalf("expected collaboration 58, got %d", got.CollaborationScore)
	}
	if got.Disagreements[domain.DisagreementNone] != 1 || got.Disagreements[domain.DisagreementMajor] != 1 {
		t.Fatalf("unexpected disagreement counts %v", got.Disagreements)
	}
}

func TestAggregateRoleAnalysis(t *testing.T) {
	team := []domain.Member{
		{ID: "qa", Role: "quality_manager"},
		{ID: "de", Role: "design_engineer"},
		{ID: "x", Role: "intern"},
	}
	yes, no := domain.BoolAnswer(true), domain.BoolAnswer(false)
	responses := map[string]domain.TeamResponse{}
	for _, id := range []string{"q1", "q2", "q3"} {
		tr := NewTeamResponse(id)
		tr, _ = RecordIndividual(tr, team, "qa", domain.IndividualResponse{Answer: yes, Confidence: 4})
		tr, _ = RecordIndividual(tr, team, "de", domain.IndividualResponse{Answer: no, Confidence: 4})
		responses[id] = tr
	}

	got := Aggregate(scoring.NewEngine(nil), responses, team, aggregateQuestions(), nil)
	if len(got.Roles) != 3 {
		t.Fatalf("expected one analysis per member, got %d", len(got.Roles))
	}
	qa, de, intern := got.Roles[0], got.Roles[1], got.Roles[2]
	if !qa.MeetsExpectations || len(qa.ExpectedStrengths) != 1 || qa.ExpectedStrengths[0].Category != "CAPA" {
		t.Fatalf("unexpected quality manager analysis %+v", qa)
	}
	if de.MeetsExpectations || de.Score != 0 || len(de.Gaps) != 3 {
		t.Fatalf("unexpected design engineer analysis %+v", de)
	}
	if intern.MeetsExpectations || len(intern.ExpectedStrengths) != 0 || intern.Score != 0 {
		t.Fatalf("unknown role should have no expectations, got %+v", intern)
	}
	if got.Participation != 66.7 {
		t.Fatalf("expected participation 66.7, got %v", got.Participation)
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(scoring.NewEngine(nil), nil, nil, aggregateQuestions(), nil)
	if got.CollaborationScore != 0 || got.Result.Score != 0 || len(got.ResolvedQuestions) != 0 {
		t.Fatalf("expected empty aggregate, got %+v", got)
	}
}
