package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"audit-readiness-service/internal/catalog"
	"audit-readiness-service/internal/domain"
	"audit-readiness-service/internal/scoring"
	"github.com/google/uuid"
)

// DefaultCatalogID names the catalog used when none is configured.
const DefaultCatalogID = "default"

// StateStore keeps assessment state blobs (in-memory, Redis, SQLite, etc).
// Writes for the same key overwrite each other; the last write wins.
type StateStore interface {
	Save(ctx context.Context, key string, blob []byte) error
	// Load returns domain.ErrAssessmentNotFound when nothing is stored under key.
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// CatalogRepository loads question catalogs (from cache/backing store).
type CatalogRepository interface {
	GetCatalog(ctx context.Context, catalogID string) (domain.Catalog, error)
}

// Assessment is the saved working state of one questionnaire.
type Assessment struct {
	ID          string                   `json:"id"`
	Frameworks  []domain.Framework       `json:"frameworks"`
	IncludeAll  bool                     `json:"includeAll"`
	Device      *domain.DeviceAttributes `json:"device,omitempty"`
	Responses   []domain.Response        `json:"responses"`
	CurrentPage int                      `json:"currentPage"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
}

// Report is everything an exporter needs about one scoring run.
type Report struct {
	Assessment     Assessment                 `json:"assessment"`
	CatalogVersion string                     `json:"catalogVersion"`
	Questions      []domain.Question          `json:"questions"`
	Classification *domain.RiskClassification `json:"classification,omitempty"`
	Result         domain.ScoreResult         `json:"result"`
	GeneratedAt    time.Time                  `json:"generatedAt"`
}

// AssessmentService contains the single-user assessment use cases.
type AssessmentService struct {
	states    StateStore
	catalogs  CatalogRepository
	catalogID string
	topGaps   int
	now       func() time.Time
	newID     func() string
}

// ServiceOption configures an AssessmentService.
type ServiceOption func(*AssessmentService)

// WithCatalogID selects the catalog questions are drawn from.
func WithCatalogID(id string) ServiceOption {
	return func(s *AssessmentService) { s.catalogID = id }
}

// WithTopGaps sets how many gaps reports highlight.
func WithTopGaps(n int) ServiceOption {
	return func(s *AssessmentService) { s.topGaps = n }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *AssessmentService) { s.now = now }
}

func NewAssessmentService(states StateStore, catalogs CatalogRepository, opts ...ServiceOption) *AssessmentService {
	s := &AssessmentService{
		states:    states,
		catalogs:  catalogs,
		catalogID: DefaultCatalogID,
		topGaps:   scoring.DefaultTopGaps,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Questions returns the framework-filtered questions in catalog order.
func (s *AssessmentService) Questions(ctx context.Context, frameworks []domain.Framework, includeAll bool) ([]domain.Question, error) {
	cat, err := s.catalogs.GetCatalog(ctx, s.catalogID)
	if err != nil {
		return nil, err
	}
	return catalog.Filter(cat.Questions, frameworks, includeAll), nil
}

// Catalog returns the full catalog, including clause metadata.
func (s *AssessmentService) Catalog(ctx context.Context) (domain.Catalog, error) {
	return s.catalogs.GetCatalog(ctx, s.catalogID)
}

// ClassifyRisk derives the device risk classification.
func (s *AssessmentService) ClassifyRisk(attrs domain.DeviceAttributes) domain.RiskClassification {
	return scoring.Classify(attrs)
}

// EvaluateRequest is a stateless scoring call.
type EvaluateRequest struct {
	Frameworks []domain.Framework       `json:"frameworks"`
	IncludeAll bool                     `json:"includeAll"`
	Device     *domain.DeviceAttributes `json:"device,omitempty"`
	Responses  []domain.Response        `json:"responses"`
}

// Evaluate scores responses without touching saved state.
func (s *AssessmentService) Evaluate(ctx context.Context, req EvaluateRequest) (Report, error) {
	a := Assessment{
		Frameworks: req.Frameworks,
		IncludeAll: req.IncludeAll,
		Device:     req.Device,
		Responses:  req.Responses,
	}
	return s.report(ctx, a)
}

// Create starts a new saved assessment.
func (s *AssessmentService) Create(ctx context.Context, frameworks []domain.Framework, includeAll bool, device *domain.DeviceAttributes) (Assessment, error) {
	now := s.now()
	a := Assessment{
		ID:         s.newID(),
		Frameworks: frameworks,
		IncludeAll: includeAll,
		Device:     device,
		Responses:  []domain.Response{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.save(ctx, a); err != nil {
		return Assessment{}, err
	}
	return a, nil
}

// Get loads a saved assessment.
func (s *AssessmentService) Get(ctx context.Context, id string) (Assessment, error) {
	blob, err := s.states.Load(ctx, stateKey(id))
	if err != nil {
		return Assessment{}, err
	}
	var a Assessment
	if err := json.Unmarshal(blob, &a); err != nil {
		return Assessment{}, fmt.Errorf("decode assessment %s: %w", id, err)
	}
	return a, nil
}

// SaveResponses upserts answers; a later answer for a question replaces the earlier one.
func (s *AssessmentService) SaveResponses(ctx context.Context, id string, responses ...domain.Response) (Assessment, error) {
	return s.update(ctx, id, func(a *Assessment) {
		for _, r := range responses {
			if r.QuestionID == "" {
				continue
			}
			a.Responses = domain.UpsertResponse(a.Responses, r)
		}
	})
}

// SetDevice replaces the device attributes; nil removes risk adjustment.
func (s *AssessmentService) SetDevice(ctx context.Context, id string, device *domain.DeviceAttributes) (Assessment, error) {
	return s.update(ctx, id, func(a *Assessment) { a.Device = device })
}

// SetFrameworks changes the framework filter. Responses to questions that
// drop out of the filter are kept and simply not scored.
func (s *AssessmentService) SetFrameworks(ctx context.Context, id string, frameworks []domain.Framework, includeAll bool) (Assessment, error) {
	return s.update(ctx, id, func(a *Assessment) {
		a.Frameworks = frameworks
		a.IncludeAll = includeAll
	})
}

// SetPage records where the user is in the questionnaire.
func (s *AssessmentService) SetPage(ctx context.Context, id string, page int) (Assessment, error) {
	return s.update(ctx, id, func(a *Assessment) {
		if page >= 0 {
			a.CurrentPage = page
		}
	})
}

// Delete drops a saved assessment.
func (s *AssessmentService) Delete(ctx context.Context, id string) error {
	return s.states.Delete(ctx, stateKey(id))
}

// Score recomputes the report of a saved assessment.
func (s *AssessmentService) Score(ctx context.Context, id string) (Report, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Report{}, err
	}
	return s.report(ctx, a)
}

func (s *AssessmentService) report(ctx context.Context, a Assessment) (Report, error) {
	cat, err := s.catalogs.GetCatalog(ctx, s.catalogID)
	if err != nil {
		return Report{}, err
	}
	questions := catalog.Filter(cat.Questions, a.Frameworks, a.IncludeAll)

	var rc *domain.RiskClassification
	if a.Device != nil {
		c := scoring.Classify(*a.Device)
		rc = &c
	}

	engine := scoring.NewEngine(cat.Clauses, scoring.WithTopGaps(s.topGaps))
	return Report{
		Assessment:     a,
		CatalogVersion: cat.Version,
		Questions:      questions,
		Classification: rc,
		Result:         engine.Score(a.Responses, questions, rc),
		GeneratedAt:    s.now(),
	}, nil
}

func (s *AssessmentService) update(ctx context.Context, id string, mutate func(*Assessment)) (Assessment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Assessment{}, err
	}
	mutate(&a)
	a.UpdatedAt = s.now()
	if err := s.save(ctx, a); err != nil {
		return Assessment{}, err
	}
	return a, nil
}

func (s *AssessmentService) save(ctx context.Context, a Assessment) error {
	if a.ID == "" {
		return errors.New("assessment id required")
	}
	blob, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode assessment %s: %w", a.ID, err)
	}
	return s.states.Save(ctx, stateKey(a.ID), blob)
}

func stateKey(id string) string {
	return "assessment:" + id
}
