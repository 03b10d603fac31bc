package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"audit-readiness-service/internal/catalog"
	"audit-readiness-service/internal/domain"
	"audit-readiness-service/internal/scoring"
	"audit-readiness-service/internal/team"
	"github.com/google/uuid"
)

// DefaultTeamIdleTimeout is how long a created team session may stay without
// members before it is dropped.
const DefaultTeamIdleTimeout = 30 * time.Minute

// TeamSessionRepository abstracts how team sessions are stored (in-memory, Redis, etc).
type TeamSessionRepository interface {
	GetOrCreate(teamID string) *TeamSession
	Get(teamID string) (*TeamSession, bool)
	DeleteIfEmpty(teamID string)
}

// TeamService contains the team-mode use cases. Each session serializes its
// own updates; sessions share nothing.
type TeamService struct {
	sessions  TeamSessionRepository
	catalogs  CatalogRepository
	catalogID string
	topGaps   int
	idle      time.Duration
	newID     func() string
}

// TeamOption configures a TeamService.
type TeamOption func(*TeamService)

// WithTeamCatalogID selects the catalog team questions are drawn from.
func WithTeamCatalogID(id string) TeamOption {
	return func(s *TeamService) { s.catalogID = id }
}

// WithTeamIdleTimeout sets how long a created session may stay empty. Zero
// keeps empty sessions until the last member leaves.
func WithTeamIdleTimeout(d time.Duration) TeamOption {
	return func(s *TeamService) { s.idle = d }
}

// WithTeamTopGaps sets how many gaps the team aggregate highlights.
func WithTeamTopGaps(n int) TeamOption {
	return func(s *TeamService) { s.topGaps = n }
}

func NewTeamService(store TeamSessionRepository, catalogs CatalogRepository, opts ...TeamOption) *TeamService {
	s := &TeamService{
		sessions:  store,
		catalogs:  catalogs,
		catalogID: DefaultCatalogID,
		topGaps:   scoring.DefaultTopGaps,
		idle:      DefaultTeamIdleTimeout,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewTeamSession is exported for infrastructure layers that need to seed sessions.
func NewTeamSession(id string) *TeamSession {
	return newTeamSession(id)
}

// NewTeamSessionWithClock is test-only for deterministic timestamps.
func NewTeamSessionWithClock(id string, now func() time.Time) *TeamSession {
	return newTeamSessionWithClock(id, now)
}

// Create opens a team session under a fresh id with the given scope. The
// session is dropped if it still has no members once the idle timeout passes.
func (s *TeamService) Create(ctx context.Context, frameworks []domain.Framework, includeAll bool, device *domain.DeviceAttributes) (domain.TeamSnapshot, error) {
	if _, err := s.catalogs.GetCatalog(ctx, s.catalogID); err != nil {
		return domain.TeamSnapshot{}, err
	}
	id := s.newID()
	session := s.sessions.GetOrCreate(id)
	if s.idle > 0 {
		time.AfterFunc(s.idle, func() { s.sessions.DeleteIfEmpty(id) })
	}
	return session.configure(frameworks, includeAll, device), nil
}

// Join registers or refreshes a member in a team session.
func (s *TeamService) Join(ctx context.Context, teamID string, member domain.Member) (domain.TeamSnapshot, error) {
	// Users cannot join when the catalog is unavailable.
	if _, err := s.catalogs.GetCatalog(ctx, s.catalogID); err != nil {
		return domain.TeamSnapshot{}, err
	}
	session := s.sessions.GetOrCreate(teamID)
	return session.join(member), nil
}

// Configure sets the framework filter and device attributes for the team.
func (s *TeamService) Configure(_ context.Context, teamID string, frameworks []domain.Framework, includeAll bool, device *domain.DeviceAttributes) (domain.TeamSnapshot, error) {
	session, ok := s.sessions.Get(teamID)
	if !ok {
		return domain.TeamSnapshot{}, domain.ErrTeamSessionNotFound
	}
	return session.configure(frameworks, includeAll, device), nil
}

// SubmitIndividual records a member's own answer to a question.
func (s *TeamService) SubmitIndividual(ctx context.Context, teamID, memberID, questionID string, resp domain.IndividualResponse) (domain.TeamSnapshot, domain.TeamResponse, error) {
	session, questions, err := s.sessionWithQuestions(ctx, teamID)
	if err != nil {
		return domain.TeamSnapshot{}, domain.TeamResponse{}, err
	}
	return session.update(memberID, questionID, questions, func(tr domain.TeamResponse, members []domain.Member) (domain.TeamResponse, error) {
		return team.RecordIndividual(tr, members, memberID, resp)
	})
}

// Vote casts a member's vote for a question. Votes on a resolved question
// return domain.ErrConsensusSealed.
func (s *TeamService) Vote(ctx context.Context, teamID, memberID, questionID string, answer domain.Answer) (domain.TeamSnapshot, domain.TeamResponse, error) {
	session, questions, err := s.sessionWithQuestions(ctx, teamID)
	if err != nil {
		return domain.TeamSnapshot{}, domain.TeamResponse{}, err
	}
	return session.update(memberID, questionID, questions, func(tr domain.TeamResponse, members []domain.Member) (domain.TeamResponse, error) {
		return team.CastVote(tr, members, memberID, answer)
	})
}

// AddNote appends a discussion note for a question.
func (s *TeamService) AddNote(ctx context.Context, teamID, memberID, questionID, text string) (domain.TeamSnapshot, domain.TeamResponse, error) {
	session, questions, err := s.sessionWithQuestions(ctx, teamID)
	if err != nil {
		return domain.TeamSnapshot{}, domain.TeamResponse{}, err
	}
	at := session.now()
	return session.update(memberID, questionID, questions, func(tr domain.TeamResponse, members []domain.Member) (domain.TeamResponse, error) {
		return team.AddNote(tr, members, domain.DiscussionNote{MemberID: memberID, Text: text, At: at})
	})
}

// Response returns the current record for one question.
func (s *TeamService) Response(_ context.Context, teamID, questionID string) (domain.TeamResponse, error) {
	session, ok := s.sessions.Get(teamID)
	if !ok {
		return domain.TeamResponse{}, domain.ErrTeamSessionNotFound
	}
	return session.response(questionID), nil
}

// Snapshot returns the current session state.
func (s *TeamService) Snapshot(_ context.Context, teamID string) (domain.TeamSnapshot, error) {
	session, ok := s.sessions.Get(teamID)
	if !ok {
		return domain.TeamSnapshot{}, domain.ErrTeamSessionNotFound
	}
	return session.snapshot(), nil
}

// Aggregate scores the team's consensus answers and collaboration metrics.
func (s *TeamService) Aggregate(ctx context.Context, teamID string) (domain.TeamScoreResult, error) {
	session, ok := s.sessions.Get(teamID)
	if !ok {
		return domain.TeamScoreResult{}, domain.ErrTeamSessionNotFound
	}
	cat, err := s.catalogs.GetCatalog(ctx, s.catalogID)
	if err != nil {
		return domain.TeamScoreResult{}, err
	}
	in := session.aggregateInput()
	questions := catalog.Filter(cat.Questions, in.frameworks, in.includeAll)
	var rc *domain.RiskClassification
	if in.device != nil {
		c := scoring.Classify(*in.device)
		rc = &c
	}
	engine := scoring.NewEngine(cat.Clauses, scoring.WithTopGaps(s.topGaps))
	return team.Aggregate(engine, in.responses, in.members, questions, rc), nil
}

// Subscribe returns a channel that receives snapshots for a team.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *TeamService) Subscribe(_ context.Context, teamID string) (<-chan domain.TeamSnapshot, func(), error) {
	session, ok := s.sessions.Get(teamID)
	if !ok {
		return nil, nil, domain.ErrTeamSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Leave removes a member from the session and drops the session if empty.
func (s *TeamService) Leave(_ context.Context, teamID, memberID string) {
	session, ok := s.sessions.Get(teamID)
	if !ok {
		return
	}
	session.leave(memberID)
	if session.isEmpty() {
		s.sessions.DeleteIfEmpty(teamID)
	}
}

func (s *TeamService) sessionWithQuestions(ctx context.Context, teamID string) (*TeamSession, map[string]struct{}, error) {
	session, ok := s.sessions.Get(teamID)
	if !ok {
		return nil, nil, domain.ErrTeamSessionNotFound
	}
	cat, err := s.catalogs.GetCatalog(ctx, s.catalogID)
	if err != nil {
		return nil, nil, err
	}
	frameworks, includeAll := session.filter()
	ids := make(map[string]struct{})
	for _, q := range catalog.Filter(cat.Questions, frameworks, includeAll) {
		ids[q.ID] = struct{}{}
	}
	return session, ids, nil
}

// TeamSession is an in-memory representation of one team assessment.
type TeamSession struct {
	id          string
	createdAt   time.Time
	now         func() time.Time
	mu          sync.RWMutex
	members     map[string]*domain.Member
	responses   map[string]domain.TeamResponse
	frameworks  []domain.Framework
	includeAll  bool
	device      *domain.DeviceAttributes
	subscribers map[chan domain.TeamSnapshot]struct{}
}

func newTeamSession(id string) *TeamSession {
	return newTeamSessionWithClock(id, time.Now)
}

// newTeamSessionWithClock allows deterministic timestamps in tests.
func newTeamSessionWithClock(id string, now func() time.Time) *TeamSession {
	return &TeamSession{
		id:          id,
		createdAt:   now(),
		now:         now,
		members:     make(map[string]*domain.Member),
		responses:   make(map[string]domain.TeamResponse),
		includeAll:  true,
		subscribers: make(map[chan domain.TeamSnapshot]struct{}),
	}
}

func (s *TeamSession) join(member domain.Member) domain.TeamSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.members[member.ID]; ok {
		existing.Name = member.Name
		if member.Role != "" {
			existing.Role = member.Role
		}
	} else {
		member.JoinedAt = s.now()
		s.members[member.ID] = &member
	}
	return s.broadcastLocked()
}

func (s *TeamSession) configure(frameworks []domain.Framework, includeAll bool, device *domain.DeviceAttributes) domain.TeamSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frameworks = append([]domain.Framework(nil), frameworks...)
	s.includeAll = includeAll
	s.device = device
	return s.broadcastLocked()
}

func (s *TeamSession) filter() ([]domain.Framework, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Framework(nil), s.frameworks...), s.includeAll
}

// update applies one change to a question under the session lock. Unknown
// question ids are ignored.
func (s *TeamSession) update(memberID, questionID string, questions map[string]struct{}, apply func(domain.TeamResponse, []domain.Member) (domain.TeamResponse, error)) (domain.TeamSnapshot, domain.TeamResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[memberID]; !ok {
		return domain.TeamSnapshot{}, domain.TeamResponse{}, domain.ErrMemberNotFound
	}
	if _, ok := questions[questionID]; !ok {
		return s.snapshotLocked(), domain.TeamResponse{}, nil
	}

	current, ok := s.responses[questionID]
	if !ok {
		current = team.NewTeamResponse(questionID)
	}
	next, err := apply(current, s.membersLocked())
	if err != nil {
		return s.snapshotLocked(), current, err
	}
	s.responses[questionID] = next
	return s.broadcastLocked(), next, nil
}

func (s *TeamSession) response(questionID string) domain.TeamResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if tr, ok := s.responses[questionID]; ok {
		return tr
	}
	return team.NewTeamResponse(questionID)
}

type aggregateInput struct {
	members    []domain.Member
	responses  map[string]domain.TeamResponse
	frameworks []domain.Framework
	includeAll bool
	device     *domain.DeviceAttributes
}

func (s *TeamSession) aggregateInput() aggregateInput {
	s.mu.RLock()
	defer s.mu.RUnlock()
	responses := make(map[string]domain.TeamResponse, len(s.responses))
	for id, tr := range s.responses {
		responses[id] = tr
	}
	return aggregateInput{
		members:    s.membersLocked(),
		responses:  responses,
		frameworks: append([]domain.Framework(nil), s.frameworks...),
		includeAll: s.includeAll,
		device:     s.device,
	}
}

func (s *TeamSession) leave(memberID string) domain.TeamSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[memberID]; !ok {
		return s.snapshotLocked()
	}
	delete(s.members, memberID)
	members := s.membersLocked()
	for id, tr := range s.responses {
		s.responses[id] = team.Reconcile(tr, members)
	}
	return s.broadcastLocked()
}

func (s *TeamSession) isEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members) == 0
}

// IsEmpty reports whether the session has no members.
func (s *TeamSession) IsEmpty() bool {
	return s.isEmpty()
}

// ID returns the team id.
func (s *TeamSession) ID() string {
	return s.id
}

func (s *TeamSession) snapshot() domain.TeamSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *TeamSession) subscribe() (<-chan domain.TeamSnapshot, func()) {
	ch := make(chan domain.TeamSnapshot, 8)

	// The initial snapshot goes out under the lock, ahead of any broadcast.
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- s.snapshotLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *TeamSession) broadcastLocked() domain.TeamSnapshot {
	snap := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow subscriber: drop its oldest snapshot so broadcast never blocks.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

// membersLocked returns members ordered by join time, then id.
func (s *TeamSession) membersLocked() []domain.Member {
	out := make([]domain.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *TeamSession) snapshotLocked() domain.TeamSnapshot {
	members := s.membersLocked()
	ids := make([]string, 0, len(s.responses))
	for id := range s.responses {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	questions := make([]domain.QuestionStatus, 0, len(ids))
	for _, id := range ids {
		tr := s.responses[id]
		questions = append(questions, domain.QuestionStatus{
			QuestionID:       id,
			Phase:            team.Phase(tr, members),
			Disagreement:     tr.Disagreement,
			Responses:        len(tr.Individual),
			Notes:            len(tr.Notes),
			Rounds:           len(tr.Rounds),
			ConsensusReached: tr.ConsensusReached,
			FinalAnswer:      tr.FinalAnswer,
		})
	}

	return domain.TeamSnapshot{
		TeamID:    s.id,
		Members:   members,
		Questions: questions,
		UpdatedAt: s.now(),
	}
}
