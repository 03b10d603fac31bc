package team

import (
	"math"

	"audit-readiness-service/internal/domain"
	"audit-readiness-service/internal/scoring"
)

// Scorer is the scoring entry point the team aggregate is built on.
type Scorer interface {
	Score(responses []domain.Response, questions []domain.Question, rc *domain.RiskClassification) domain.ScoreResult
}

const (
	consensusShare     = 0.4
	participationShare = 0.3
	communicationShare = 0.3

	// Points per discussion note per question, capped at 100.
	notePoints = 25.0

	roleGapLimit        = 3
	roleStrengthMinimum = 70.0
)

// RoleStrengths lists the categories each role is expected to know best.
var RoleStrengths = map[string][]string{
	"quality_manager":    {"Management Responsibility", "CAPA", "Document Control", "Training"},
	"regulatory_affairs": {"Regulatory Affairs", "Post-Market Surveillance", "Risk Management"},
	"design_engineer":    {"Design Controls", "Risk Management", domain.CategoryUsability},
	"software_lead":      {domain.CategorySoftware, domain.CategoryUsability},
	"production_manager": {"Production & Process Controls", domain.CategorySterilization, "Supplier Controls"},
}

// Aggregate scores the team's consensus answers and adds collaboration
// metrics. Questions without consensus are left out of the score.
func Aggregate(scorer Scorer, responses map[string]domain.TeamResponse, members []domain.Member, questions []domain.Question, rc *domain.RiskClassification) domain.TeamScoreResult {
	out := domain.TeamScoreResult{
		ResolvedQuestions: []string{},
		PendingQuestions:  []string{},
		Disagreements:     map[domain.DisagreementLevel]int{},
		Roles:             []domain.RoleAnalysis{},
	}

	var consensus []domain.Response
	individual := make(map[string][]domain.Response, len(members))
	answered := make(map[string]int, len(members))
	discussed, notes := 0, 0

	for _, q := range questions {
		tr, ok := responses[q.ID]
		if !ok || len(tr.Individual) == 0 {
			continue
		}
		discussed++
		notes += len(tr.Notes)

		level := tr.Disagreement
		if level == "" {
			level = domain.DisagreementNone
		}
		out.Disagreements[level]++

		if tr.ConsensusReached && tr.FinalAnswer != nil {
			consensus = append(consensus, domain.Response{QuestionID: q.ID, Answer: *tr.FinalAnswer})
			out.ResolvedQuestions = append(out.ResolvedQuestions, q.ID)
		} else {
			out.PendingQuestions = append(out.PendingQuestions, q.ID)
		}

		for _, m := range members {
			if r, ok := tr.Individual[m.ID]; ok {
				answered[m.ID]++
				individual[m.ID] = append(individual[m.ID], domain.Response{QuestionID: q.ID, Answer: r.Answer})
			}
		}
	}

	out.Result = scorer.Score(consensus, questions, rc)

	if discussed > 0 {
		out.ConsensusRate = round1(float64(len(out.ResolvedQuestions)) / float64(discussed) * 100)
		out.CommunicationScore = round1(math.Min(100, float64(notes)/float64(discussed)*notePoints))
		if len(members) > 0 {
			var total float64
			for _, m := range members {
				total += float64(answered[m.ID]) / float64(discussed) * 100
			}
			out.Participation = round1(total / float64(len(members)))
		}
	}
	out.CollaborationScore = int(math.Round(
		consensusShare*out.ConsensusRate +
			participationShare*out.Participation +
			communicationShare*out.CommunicationScore,
	))

	for _, m := range members {
		out.Roles = append(out.Roles, analyseRole(scorer, m, individual[m.ID], questions, rc))
	}
	return out
}

func analyseRole(scorer Scorer, m domain.Member, responses []domain.Response, questions []domain.Question, rc *domain.RiskClassification) domain.RoleAnalysis {
	res := scorer.Score(responses, questions, rc)
	analysis := domain.RoleAnalysis{
		MemberID:          m.ID,
		Name:              m.Name,
		Role:              m.Role,
		Score:             res.Score,
		Status:            res.Status,
		ExpectedStrengths: []domain.CategoryBreakdown{},
		Gaps:              scoring.TopGaps(res.Gaps, roleGapLimit),
	}

	expected := make(map[string]bool)
	for _, c := range RoleStrengths[m.Role] {
		expected[c] = true
	}
	meets := len(expected) > 0
	for _, cb := range res.Breakdown {
		if !expected[cb.Category] {
			continue
		}
		analysis.ExpectedStrengths = append(analysis.ExpectedStrengths, cb)
		if cb.Performance < roleStrengthMinimum {
			meets = false
		}
	}
	analysis.MeetsExpectations = meets && len(analysis.ExpectedStrengths) > 0
	return analysis
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
