package domain

import "time"

// Framework is a regulatory standard a question can be tagged with.
type Framework string

const (
	FrameworkISO13485 Framework = "ISO 13485"
	FrameworkCFR820   Framework = "21 CFR 820"
	FrameworkEUMDR    Framework = "EU MDR"
	FrameworkISO14971 Framework = "ISO 14971"
	FrameworkIEC62304 Framework = "IEC 62304"
)

// QuestionType selects how an answer is scored.
type QuestionType string

const (
	QuestionYesNo        QuestionType = "yes/no"
	QuestionSingleSelect QuestionType = "single-select"
	QuestionFreeText     QuestionType = "free-text"
)

// Question categories that carry weight bonuses.
const (
	CategorySterilization = "Sterilization"
	CategorySoftware      = "Software"
	CategoryUsability     = "Usability"
)

// Question is one catalog entry. Immutable after the catalog is loaded.
type Question struct {
	ID              string             `json:"id" yaml:"id"`
	Prompt          string             `json:"prompt" yaml:"prompt"`
	Type            QuestionType       `json:"type" yaml:"type"`
	Weight          float64            `json:"weight" yaml:"weight"`
	ClauseRef       string             `json:"clauseRef" yaml:"clause"`
	Category        string             `json:"category" yaml:"category"`
	Critical        bool               `json:"critical" yaml:"critical"`
	Frameworks      []Framework        `json:"frameworks" yaml:"frameworks"`
	Options         []string           `json:"options,omitempty" yaml:"options,omitempty"`
	RiskMultipliers map[string]float64 `json:"riskMultipliers,omitempty" yaml:"risk_multipliers,omitempty"`
}

// HasFramework reports whether the question is tagged with f.
func (q Question) HasFramework(f Framework) bool {
	for _, tag := range q.Frameworks {
		if tag == f {
			return true
		}
	}
	return false
}

// Clause is the metadata shown next to a gap.
type Clause struct {
	Ref               string    `json:"ref" yaml:"ref"`
	Title             string    `json:"title" yaml:"title"`
	Framework         Framework `json:"framework" yaml:"framework"`
	SuggestedEvidence []string  `json:"suggestedEvidence" yaml:"evidence"`
}

// Catalog is the full question set plus clause metadata, in definition order.
type Catalog struct {
	Version   string            `json:"version" yaml:"version"`
	Questions []Question        `json:"questions" yaml:"questions"`
	Clauses   map[string]Clause `json:"clauses" yaml:"clauses"`
}

// Response is one answer within an assessment. Unique per QuestionID.
type Response struct {
	QuestionID string `json:"questionId"`
	Answer     Answer `json:"answer"`
}

// UpsertResponse replaces the answer for r.QuestionID or appends it, keeping first-seen order.
func UpsertResponse(responses []Response, r Response) []Response {
	out := make([]Response, len(responses), len(responses)+1)
	copy(out, responses)
	for i := range out {
		if out[i].QuestionID == r.QuestionID {
			out[i] = r
			return out
		}
	}
	return append(out, r)
}

// Status is the red/amber/green traffic light of a score.
type Status string

const (
	StatusRed   Status = "red"
	StatusAmber Status = "amber"
	StatusGreen Status = "green"
)

// Gap is weighted points lost on a single question.
type Gap struct {
	QuestionID        string   `json:"questionId"`
	ClauseRef         string   `json:"clauseRef"`
	ClauseTitle       string   `json:"clauseTitle"`
	Category          string   `json:"category"`
	Critical          bool     `json:"critical"`
	Deficit           float64  `json:"deficit"`
	SuggestedEvidence []string `json:"suggestedEvidence"`
}

// CategoryBreakdown is the achieved vs possible weight of one category.
type CategoryBreakdown struct {
	Category    string  `json:"category"`
	Achieved    float64 `json:"achieved"`
	Possible    float64 `json:"possible"`
	Performance float64 `json:"performance"`
}

// ScoreResult is produced fresh by every scoring call.
type ScoreResult struct {
	Score            int                 `json:"score"`
	RawPercentage    int                 `json:"rawPercentage"`
	Status           Status              `json:"status"`
	CriticalHit      bool                `json:"criticalHit"`
	CriticalFailures []string            `json:"criticalFailures"`
	Gaps             []Gap               `json:"gaps"`
	TopGaps          []Gap               `json:"topGaps"`
	Breakdown        []CategoryBreakdown `json:"breakdown"`
	PossibleWeight   float64             `json:"possibleWeight"`
	ObtainedWeight   float64             `json:"obtainedWeight"`
	QuestionCount    int                 `json:"questionCount"`
	AnsweredCount    int                 `json:"answeredCount"`
	RiskAssessment   RiskAssessment      `json:"riskAssessment"`
}

// MaturityTier describes how established the quality system is.
type MaturityTier string

const (
	MaturityBasic      MaturityTier = "basic"
	MaturityDeveloping MaturityTier = "developing"
	MaturityAdvanced   MaturityTier = "advanced"
	MaturityOptimized  MaturityTier = "optimized"
)

// OverallRisk is the qualitative audit risk.
type OverallRisk string

const (
	RiskCritical OverallRisk = "critical"
	RiskHigh     OverallRisk = "high"
	RiskMedium   OverallRisk = "medium"
	RiskLow      OverallRisk = "low"
)

// Likelihood tiers for risk factors.
type Likelihood string

const (
	LikelihoodHigh   Likelihood = "high"
	LikelihoodMedium Likelihood = "medium"
	LikelihoodLow    Likelihood = "low"
)

// RiskFactor is one qualitative finding.
type RiskFactor struct {
	Type        string     `json:"type"`
	Description string     `json:"description"`
	Impact      float64    `json:"impact"`
	Likelihood  Likelihood `json:"likelihood"`
}

// MitigationPriority is one ordered remediation item.
type MitigationPriority struct {
	Rank        int     `json:"rank"`
	QuestionID  string  `json:"questionId"`
	ClauseRef   string  `json:"clauseRef"`
	ClauseTitle string  `json:"clauseTitle"`
	Critical    bool    `json:"critical"`
	Deficit     float64 `json:"deficit"`
}

// RiskAssessment annotates a score; it never changes it.
type RiskAssessment struct {
	OverallRisk          OverallRisk          `json:"overallRisk"`
	Maturity             MaturityTier         `json:"maturity"`
	Factors              []RiskFactor         `json:"factors"`
	MitigationPriorities []MitigationPriority `json:"mitigationPriorities"`
}

// Member is a participant of a team assessment.
type Member struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// IndividualResponse is one member's own answer before discussion.
type IndividualResponse struct {
	Answer     Answer `json:"answer"`
	Confidence int    `json:"confidence"`
	Rationale  string `json:"rationale,omitempty"`
}

// DiscussionNote is an entry in the append-only discussion log.
type DiscussionNote struct {
	MemberID string    `json:"memberId"`
	Text     string    `json:"text"`
	At       time.Time `json:"at"`
}

// DisagreementLevel grades how far individual answers diverge.
type DisagreementLevel string

const (
	DisagreementNone        DisagreementLevel = "none"
	DisagreementMinor       DisagreementLevel = "minor"
	DisagreementSignificant DisagreementLevel = "significant"
	DisagreementMajor       DisagreementLevel = "major"
)

// RoundOutcome is the result of tallying a voting round.
type RoundOutcome string

const (
	RoundOpen      RoundOutcome = "open"
	RoundConsensus RoundOutcome = "consensus"
	RoundMajority  RoundOutcome = "majority"
)

// VotingRound is an immutable snapshot once its outcome is no longer open.
type VotingRound struct {
	Number  int               `json:"number"`
	Votes   map[string]Answer `json:"votes"`
	Outcome RoundOutcome      `json:"outcome"`
	Winner  *Answer           `json:"winner,omitempty"`
}

// QuestionPhase is the per-question resolution state.
type QuestionPhase string

const (
	PhaseAwaitingResponses    QuestionPhase = "awaiting_individual_responses"
	PhaseDisagreementCheck    QuestionPhase = "disagreement_check"
	PhaseResolvedNoDiscussion QuestionPhase = "resolved_no_discussion"
	PhaseDiscussion           QuestionPhase = "discussion"
	PhaseConsensusReached     QuestionPhase = "consensus_reached"
)

// TeamResponse aggregates everything the team said about one question.
type TeamResponse struct {
	QuestionID          string                        `json:"questionId"`
	Individual          map[string]IndividualResponse `json:"individualResponses"`
	Notes               []DiscussionNote              `json:"discussionNotes"`
	Rounds              []VotingRound                 `json:"votingRounds"`
	Disagreement        DisagreementLevel             `json:"disagreement"`
	ConsensusReached    bool                          `json:"consensusReached"`
	ResolvedByUnanimity bool                          `json:"resolvedByUnanimity"`
	FinalAnswer         *Answer                       `json:"finalAnswer,omitempty"`
}

// RoleAnalysis compares one member's own answers with their role's expected strengths.
type RoleAnalysis struct {
	MemberID          string              `json:"memberId"`
	Name              string              `json:"name"`
	Role              string              `json:"role"`
	Score             int                 `json:"score"`
	Status            Status              `json:"status"`
	ExpectedStrengths []CategoryBreakdown `json:"expectedStrengths"`
	MeetsExpectations bool                `json:"meetsExpectations"`
	Gaps              []Gap               `json:"gaps"`
}

// TeamScoreResult is the team aggregate built on top of a ScoreResult.
type TeamScoreResult struct {
	Result             ScoreResult               `json:"result"`
	ResolvedQuestions  []string                  `json:"resolvedQuestions"`
	PendingQuestions   []string                  `json:"pendingQuestions"`
	Disagreements      map[DisagreementLevel]int `json:"disagreements"`
	ConsensusRate      float64                   `json:"consensusRate"`
	Participation      float64                   `json:"participation"`
	CommunicationScore float64                   `json:"communicationScore"`
	CollaborationScore int                       `json:"collaborationScore"`
	Roles              []RoleAnalysis            `json:"roles"`
}

// QuestionStatus is the broadcast-friendly view of one TeamResponse.
type QuestionStatus struct {
	QuestionID       string            `json:"questionId"`
	Phase            QuestionPhase     `json:"phase"`
	Disagreement     DisagreementLevel `json:"disagreement"`
	Responses        int               `json:"responses"`
	Notes            int               `json:"notes"`
	Rounds           int               `json:"rounds"`
	ConsensusReached bool              `json:"consensusReached"`
	FinalAnswer      *Answer           `json:"finalAnswer,omitempty"`
}

// TeamSnapshot captures the state of a team session for subscribers.
type TeamSnapshot struct {
	TeamID    string           `json:"teamId"`
	Members   []Member         `json:"members"`
	Questions []QuestionStatus `json:"questions"`
	UpdatedAt time.Time        `json:"updatedAt"`
}
