// Package team resolves per-question team answers through disagreement
// detection and carry-forward voting rounds, and aggregates the result into a
// team score.
//
// Every function takes a TeamResponse by value and returns an updated copy;
// the input is never modified. Callers serialize updates for one question.
package team

import "audit-readiness-service/internal/domain"

const (
	minConfidence = 1
	maxConfidence = 5

	lowConfidenceThreshold = 2.5
)

// NewTeamResponse starts the discussion record for a question.
func NewTeamResponse(questionID string) domain.TeamResponse {
	return domain.TeamResponse{
		QuestionID:   questionID,
		Individual:   map[string]domain.IndividualResponse{},
		Notes:        []domain.DiscussionNote{},
		Rounds:       []domain.VotingRound{},
		Disagreement: domain.DisagreementNone,
	}
}

// Disagreement grades individual answers. Fewer than two responses never disagree.
func Disagreement(individual map[string]domain.IndividualResponse) domain.DisagreementLevel {
	if len(individual) < 2 {
		return domain.DisagreementNone
	}
	distinct := make(map[string]struct{}, len(individual))
	confidence := 0
	for _, r := range individual {
		distinct[r.Answer.Key()] = struct{}{}
		confidence += r.Confidence
	}
	avg := float64(confidence) / float64(len(individual))

	switch {
	case len(distinct) == len(individual):
		return domain.DisagreementMajor
	case avg < lowConfidenceThreshold:
		return domain.DisagreementSignificant
	case len(distinct) > 1:
		return domain.DisagreementMinor
	default:
		return domain.DisagreementNone
	}
}

// Phase reports where a question stands in its resolution.
func Phase(tr domain.TeamResponse, members []domain.Member) domain.QuestionPhase {
	switch {
	case tr.ConsensusReached && tr.ResolvedByUnanimity:
		return domain.PhaseResolvedNoDiscussion
	case tr.ConsensusReached:
		return domain.PhaseConsensusReached
	case len(tr.Rounds) > 0 || len(tr.Notes) > 0:
		return domain.PhaseDiscussion
	case len(members) == 0 || respondedMembers(tr, members) < len(members):
		return domain.PhaseAwaitingResponses
	default:
		return domain.PhaseDisagreementCheck
	}
}

// RecordIndividual stores a member's own answer. Answers from non-members and
// empty answers are ignored. Confidence is clamped to 1..5. When every member
// has answered identically with no disagreement the question is sealed without
// a vote.
func RecordIndividual(tr domain.TeamResponse, members []domain.Member, memberID string, resp domain.IndividualResponse) (domain.TeamResponse, error) {
	if tr.ConsensusReached {
		return tr, domain.ErrConsensusSealed
	}
	if !isMember(members, memberID) || resp.Answer.IsZero() {
		return tr, nil
	}

	next := clone(tr)
	resp.Confidence = clampConfidence(resp.Confidence)
	next.Individual[memberID] = resp
	next.Disagreement = Disagreement(next.Individual)

	if next.Disagreement == domain.DisagreementNone && len(next.Rounds) == 0 {
		if answer, ok := unanimous(next, members); ok {
			seal(&next, answer)
			next.ResolvedByUnanimity = true
		}
	}
	return next, nil
}

// AddNote appends to the discussion log.
func AddNote(tr domain.TeamResponse, members []domain.Member, note domain.DiscussionNote) (domain.TeamResponse, error) {
	if tr.ConsensusReached {
		return tr, domain.ErrConsensusSealed
	}
	if !isMember(members, note.MemberID) || note.Text == "" {
		return tr, nil
	}
	next := clone(tr)
	next.Notes = append(next.Notes, note)
	return next, nil
}

// CastVote records a vote in the open round, or opens a new round seeded with
// the previous round's votes. A round closes once every current member has a
// vote; a unique answer held by more than half of the team seals the question.
// Votes from non-members are ignored; votes on a sealed question return
// ErrConsensusSealed and change nothing.
func CastVote(tr domain.TeamResponse, members []domain.Member, memberID string, answer domain.Answer) (domain.TeamResponse, error) {
	if tr.ConsensusReached {
		return tr, domain.ErrConsensusSealed
	}
	if !isMember(members, memberID) || answer.IsZero() {
		return tr, nil
	}

	next := clone(tr)
	var round domain.VotingRound
	open := len(next.Rounds) > 0 && next.Rounds[len(next.Rounds)-1].Outcome == domain.RoundOpen
	if open {
		round = copyRound(next.Rounds[len(next.Rounds)-1])
	} else {
		round = domain.VotingRound{
			Number:  len(next.Rounds) + 1,
			Votes:   map[string]domain.Answer{},
			Outcome: domain.RoundOpen,
		}
		if len(next.Rounds) > 0 {
			for id, v := range next.Rounds[len(next.Rounds)-1].Votes {
				round.Votes[id] = v
			}
		}
	}
	round.Votes[memberID] = answer

	if roundComplete(round, members) {
		winner, outcome := Tally(round.Votes, members)
		round.Outcome = outcome
		if outcome == domain.RoundConsensus {
			round.Winner = &winner
			seal(&next, winner)
		}
	}

	if open {
		next.Rounds[len(next.Rounds)-1] = round
	} else {
		next.Rounds = append(next.Rounds, round)
	}
	return next, nil
}

// Reconcile re-evaluates a question after the member list shrinks. An open
// round that the remaining members have all voted in is tallied, and a
// question with no rounds seals when the remaining members answered alike.
func Reconcile(tr domain.TeamResponse, members []domain.Member) domain.TeamResponse {
	if tr.ConsensusReached || len(members) == 0 {
		return tr
	}
	if len(tr.Rounds) == 0 {
		answer, ok := unanimous(tr, members)
		if !ok {
			return tr
		}
		remaining := make(map[string]domain.IndividualResponse, len(members))
		for _, m := range members {
			remaining[m.ID] = tr.Individual[m.ID]
		}
		if Disagreement(remaining) != domain.DisagreementNone {
			return tr
		}
		next := clone(tr)
		seal(&next, answer)
		next.ResolvedByUnanimity = true
		return next
	}

	last := tr.Rounds[len(tr.Rounds)-1]
	if last.Outcome != domain.RoundOpen || !roundComplete(last, members) {
		return tr
	}
	next := clone(tr)
	round := copyRound(last)
	winner, outcome := Tally(round.Votes, members)
	round.Outcome = outcome
	if outcome == domain.RoundConsensus {
		round.Winner = &winner
		seal(&next, winner)
	}
	next.Rounds[len(next.Rounds)-1] = round
	return next
}

// Tally counts votes from current members. Consensus needs a unique leading
// answer whose count exceeds half the team; anything else is a majority
// outcome and discussion continues.
func Tally(votes map[string]domain.Answer, members []domain.Member) (domain.Answer, domain.RoundOutcome) {
	counts := make(map[string]int)
	answers := make(map[string]domain.Answer)
	for _, m := range members {
		v, ok := votes[m.ID]
		if !ok {
			continue
		}
		counts[v.Key()]++
		answers[v.Key()] = v
	}

	best, bestKey, tied := 0, "", false
	for key, n := range counts {
		switch {
		case n > best:
			best, bestKey, tied = n, key, false
		case n == best:
			tied = true
		}
	}
	if bestKey == "" || tied || best*2 <= len(members) {
		return domain.Answer{}, domain.RoundMajority
	}
	return answers[bestKey], domain.RoundConsensus
}

func roundComplete(round domain.VotingRound, members []domain.Member) bool {
	if len(members) == 0 {
		return false
	}
	for _, m := range members {
		if _, ok := round.Votes[m.ID]; !ok {
			return false
		}
	}
	return true
}

func unanimous(tr domain.TeamResponse, members []domain.Member) (domain.Answer, bool) {
	if len(members) == 0 {
		return domain.Answer{}, false
	}
	var first domain.Answer
	for i, m := range members {
		r, ok := tr.Individual[m.ID]
		if !ok {
			return domain.Answer{}, false
		}
		if i == 0 {
			first = r.Answer
			continue
		}
		if !r.Answer.Equal(first) {
			return domain.Answer{}, false
		}
	}
	return first, true
}

func respondedMembers(tr domain.TeamResponse, members []domain.Member) int {
	n := 0
	for _, m := range members {
		if _, ok := tr.Individual[m.ID]; ok {
			n++
		}
	}
	return n
}

func seal(tr *domain.TeamResponse, answer domain.Answer) {
	final := answer
	tr.FinalAnswer = &final
	tr.ConsensusReached = true
}

func isMember(members []domain.Member, id string) bool {
	for _, m := range members {
		if m.ID == id {
			return true
		}
	}
	return false
}

func clampConfidence(c int) int {
	if c < minConfidence {
		return minConfidence
	}
	if c > maxConfidence {
		return maxConfidence
	}
	return c
}

func clone(tr domain.TeamResponse) domain.TeamResponse {
	out := tr
	out.Individual = make(map[string]domain.IndividualResponse, len(tr.Individual)+1)
	for id, r := range tr.Individual {
		out.Individual[id] = r
	}
	out.Notes = append([]domain.DiscussionNote{}, tr.Notes...)
	// Closed rounds are shared: they are never written again.
	out.Rounds = append([]domain.VotingRound{}, tr.Rounds...)
	if tr.Disagreement == "" {
		out.Disagreement = domain.DisagreementNone
	}
	return out
}

func copyRound(r domain.VotingRound) domain.VotingRound {
	out := r
	out.Votes = make(map[string]domain.Answer, len(r.Votes)+1)
	for id, v := range r.Votes {
		out.Votes[id] = v
	}
	return out
}
