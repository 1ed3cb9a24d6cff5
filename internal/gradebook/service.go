package gradebook

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditEntry records one write to a score for the grade-change audit trail.
type AuditEntry struct {
	ScoreID string
	Action  string // create|update|restore|delete
	Actor   string
	Data    map[string]any
}

// AuditSink receives audit entries. Audit failures never fail the write.
type AuditSink interface {
	Record(ctx context.Context, e AuditEntry) error
}

// Params is the caller-facing shape of a score write: nullable scope refs plus
// the course-score flag, and the numeric aggregates. Numeric pointers are
// written verbatim; nil clears.
type Params struct {
	EnrollmentID      string
	CourseID          string
	CourseScore       bool
	GradingPeriodID   *string
	AssignmentGroupID *string

	Current         *float64
	Final           *float64
	Override        *float64
	UnpostedCurrent *float64
	UnpostedFinal   *float64

	Actor string
}

// Service runs the write path: resolve scope, validate fields, pre-check
// uniqueness against live rows, then hand off to the store whose constraint
// settles concurrent races.
type Service struct {
	Store    Store
	Resolver *Resolver
	Audit    AuditSink
	Now      func() time.Time
}

func NewService(store Store, resolver *Resolver, audit AuditSink) *Service {
	return &Service{Store: store, Resolver: resolver, Audit: audit, Now: time.Now}
}

func (s *Service) Create(ctx context.Context, p Params) (Score, error) {
	scope, err := s.Resolver.Resolve(ScopeRefs{
		CourseScore:       p.CourseScore,
		GradingPeriodID:   p.GradingPeriodID,
		AssignmentGroupID: p.AssignmentGroupID,
	})
	if err != nil {
		return Score{}, err
	}
	now := s.Now().UTC()
	sc := Score{
		ID:              uuid.NewString(),
		EnrollmentID:    p.EnrollmentID,
		CourseID:        p.CourseID,
		Scope:           scope,
		Current:         p.Current,
		Final:           p.Final,
		Override:        p.Override,
		UnpostedCurrent: p.UnpostedCurrent,
		UnpostedFinal:   p.UnpostedFinal,
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := sc.Validate(); err != nil {
		return Score{}, err
	}
	live, err := s.Store.ListLive(ctx, sc.EnrollmentID)
	if err != nil {
		return Score{}, err
	}
	if err := CheckUnique(&sc, live); err != nil {
		return Score{}, err
	}
	created, err := s.Store.Create(ctx, sc)
	if err != nil {
		return Score{}, err
	}
	s.record(ctx, created, "create", p.Actor)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, p Params) (Score, error) {
	sc, err := s.Store.Get(ctx, id)
	if err != nil {
		return Score{}, err
	}
	scope, err := s.Resolver.Resolve(ScopeRefs{
		CourseScore:       p.CourseScore,
		GradingPeriodID:   p.GradingPeriodID,
		AssignmentGroupID: p.AssignmentGroupID,
	})
	if err != nil {
		return Score{}, err
	}
	sc.Scope = scope
	sc.Current = p.Current
	sc.Final = p.Final
	sc.Override = p.Override
	sc.UnpostedCurrent = p.UnpostedCurrent
	sc.UnpostedFinal = p.UnpostedFinal
	sc.UpdatedAt = s.Now().UTC()
	if err := sc.Validate(); err != nil {
		return Score{}, err
	}
	live, err := s.Store.ListLive(ctx, sc.EnrollmentID)
	if err != nil {
		return Score{}, err
	}
	if err := CheckUnique(&sc, live); err != nil {
		return Score{}, err
	}
	updated, err := s.Store.Update(ctx, sc)
	if err != nil {
		return Score{}, err
	}
	s.record(ctx, updated, "update", p.Actor)
	return updated, nil
}

// Recalculate is the upsert used when a scope's aggregate is (re)computed:
// update the live row if one exists, restore and overwrite a soft-deleted one,
// create otherwise.
func (s *Service) Recalculate(ctx context.Context, p Params) (Score, error) {
	scope, err := s.Resolver.Resolve(ScopeRefs{
		CourseScore:       p.CourseScore,
		GradingPeriodID:   p.GradingPeriodID,
		AssignmentGroupID: p.AssignmentGroupID,
	})
	if err != nil {
		return Score{}, err
	}
	existing, err := s.Store.FindByScope(ctx, p.EnrollmentID, scope)
	if err == ErrScoreNotFound {
		return s.Create(ctx, p)
	}
	if err != nil {
		return Score{}, err
	}

	action := "update"
	if existing.Deleted() {
		action = "restore"
		existing.Status = StatusActive
		existing.DeletedAt = nil
	}
	existing.Scope = scope
	existing.Current = p.Current
	existing.Final = p.Final
	existing.Override = p.Override
	existing.UnpostedCurrent = p.UnpostedCurrent
	existing.UnpostedFinal = p.UnpostedFinal
	existing.UpdatedAt = s.Now().UTC()
	if err := existing.Validate(); err != nil {
		return Score{}, err
	}
	updated, err := s.Store.Update(ctx, existing)
	if err != nil {
		return Score{}, err
	}
	s.record(ctx, updated, action, p.Actor)
	return updated, nil
}

// SoftDelete marks a score deleted. Numeric history stays in storage and the
// row drops out of live queries and uniqueness checks.
func (s *Service) SoftDelete(ctx context.Context, id, actor string) error {
	sc, err := s.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if sc.Deleted() {
		return nil
	}
	if err := s.Store.SoftDelete(ctx, id, s.Now().UTC()); err != nil {
		return err
	}
	s.record(ctx, sc, "delete", actor)
	return nil
}

func (s *Service) record(ctx context.Context, sc Score, action, actor string) {
	if s.Audit == nil {
		return
	}
	data := map[string]any{
		"enrollment_id": sc.EnrollmentID,
		"course_id":     sc.CourseID,
		"scope":         sc.Scope.Key(),
	}
	if sc.Current != nil {
		data["current_score"] = *sc.Current
	}
	if sc.Final != nil {
		data["final_score"] = *sc.Final
	}
	if sc.Override != nil {
		data["override_score"] = *sc.Override
	}
	_ = s.Audit.Record(ctx, AuditEntry{ScoreID: sc.ID, Action: action, Actor: actor, Data: data})
}
