package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/flume-app/flume-backend/internal/notifications"
	"github.com/flume-app/flume-backend/internal/projects/domain"
	"github.com/flume-app/flume-backend/internal/projects/repository"
	"github.com/flume-app/flume-backend/internal/users"
)

// Notifier writes reminder notifications.
type Notifier interface {
	Dispatch(ctx context.Context, recipients []notifications.Recipient, ev notifications.EventContext) notifications.Result
}

type Deps struct {
	Projects     *repository.ProjectRepository
	TimeRequests *repository.TimeRequestRepository
	Volunteers   *repository.VolunteerRepository
	Profiles     users.Reader
	Notifier     Notifier
	Logger       *zap.Logger
}

// ProjectService holds the project workflow rules. Every method runs
// independent store round-trips; none is transactional across documents.
type ProjectService struct {
	projects   *repository.ProjectRepository
	requests   *repository.TimeRequestRepository
	volunteers *repository.VolunteerRepository
	profiles   users.Reader
	notifier   Notifier
	validate   *validator.Validate
	log        *zap.Logger
	now        func() time.Time
}

func NewProjectService(d Deps) *ProjectService {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &ProjectService{
		projects:   d.Projects,
		requests:   d.TimeRequests,
		volunteers: d.Volunteers,
		profiles:   d.Profiles,
		notifier:   d.Notifier,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		log:        log,
		now:        time.Now,
	}
}

type CreateInput struct {
	Name              string    `validate:"required"`
	Description       string    `validate:"max=5000"`
	Date              time.Time `validate:"required"`
	ParentVolunteers  int       `validate:"gte=0"`
	StudentVolunteers int       `validate:"gte=0"`
	VolunteerHours    float64   `validate:"gte=0"`
}

// EditInput is a partial update; nil fields are kept.
type EditInput struct {
	Name              *string    `validate:"omitempty,min=1"`
	Description       *string    `validate:"omitempty,max=5000"`
	Date              *time.Time `validate:"omitempty"`
	ParentVolunteers  *int       `validate:"omitempty,gte=0"`
	StudentVolunteers *int       `validate:"omitempty,gte=0"`
	VolunteerHours    *float64   `validate:"omitempty,gte=0"`
}

type HoursInput struct {
	Date  time.Time
	Hours float64
}

func (s *ProjectService) List(ctx context.Context) ([]domain.Project, error) {
	return s.projects.List(ctx)
}

// ListMine returns the projects created by the caller.
func (s *ProjectService) ListMine(ctx context.Context, caller domain.Caller) ([]domain.Project, error) {
	if caller.UID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return s.projects.ListByCreator(ctx, caller.UID)
}

func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.projects.Get(ctx, id)
}

// WatchProjects streams the full project list.
func (s *ProjectService) WatchProjects(ctx context.Context) (<-chan repository.ProjectSnapshot, error) {
	return s.projects.Subscribe(ctx)
}

func (s *ProjectService) Create(ctx context.Context, caller domain.Caller, in CreateInput) (*domain.Project, error) {
	if caller.UID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	p, err := s.projects.Create(ctx, domain.Project{
		Name:              in.Name,
		Description:       in.Description,
		Date:              in.Date,
		CreatorID:         caller.UID,
		ParentVolunteers:  in.ParentVolunteers,
		StudentVolunteers: in.StudentVolunteers,
		VolunteerHours:    in.VolunteerHours,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("project created", zap.String("project_id", p.ID), zap.String("creator_id", caller.UID))
	return p, nil
}

func (s *ProjectService) Edit(ctx context.Context, caller domain.Caller, id string, in EditInput) (*domain.Project, error) {
	if _, err := s.ownedProject(ctx, caller, id); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}
	err := s.projects.Update(ctx, id, repository.ProjectFields{
		Name:              in.Name,
		Description:       in.Description,
		Date:              in.Date,
		ParentVolunteers:  in.ParentVolunteers,
		StudentVolunteers: in.StudentVolunteers,
		VolunteerHours:    in.VolunteerHours,
	})
	if err != nil {
		return nil, err
	}
	return s.projects.Get(ctx, id)
}

// Delete removes the project document. Its time requests and notifications
// are kept.
func (s *ProjectService) Delete(ctx context.Context, caller domain.Caller, id string) error {
	if _, err := s.ownedProject(ctx, caller, id); err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("project deleted", zap.String("project_id", id), zap.String("creator_id", caller.UID))
	return nil
}

// Register records the caller under role. Desired counts are not enforced.
func (s *ProjectService) Register(ctx context.Context, caller domain.Caller, projectID string, role domain.Role) error {
	if caller.UID == "" {
		return domain.ErrNotAuthenticated
	}
	if !role.Valid() {
		return domain.ErrInvalidRole
	}
	return s.projects.Register(ctx, projectID, caller.UID, role)
}

func (s *ProjectService) Unregister(ctx context.Context, caller domain.Caller, projectID string) error {
	if caller.UID == "" {
		return domain.ErrNotAuthenticated
	}
	return s.projects.Unregister(ctx, projectID, caller.UID)
}

// SubmitHours creates a new pending time request. Earlier submissions for
// the same project are left alone.
func (s *ProjectService) SubmitHours(ctx context.Context, caller domain.Caller, projectID string, in HoursInput) (*domain.TimeRequest, error) {
	if caller.UID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	if !validHalfHours(in.Hours) {
		return nil, domain.ErrInvalidHours
	}
	if in.Date.IsZero() {
		return nil, fmt.Errorf("%w: date required", domain.ErrInvalidInput)
	}
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}
	return s.requests.Create(ctx, domain.TimeRequest{
		Requestor:   caller.UID,
		ProjectID:   projectID,
		Date:        in.Date,
		LengthHours: in.Hours,
	})
}

// SetApproval approves or un-approves a volunteer's hours. Approving marks
// the time request approved and then adds the volunteer to attendance.
// Un-approving only removes the volunteer from attendance; the request keeps
// approved=true.
func (s *ProjectService) SetApproval(ctx context.Context, caller domain.Caller, projectID, volunteerID, timeRequestID string, approved bool) error {
	if caller.UID == "" {
		return domain.ErrNotAuthenticated
	}
	if timeRequestID == "" {
		return domain.ErrMissingTimeRequest
	}
	if _, err := s.ownedProject(ctx, caller, projectID); err != nil {
		return err
	}
	if _, err := s.volunteerRequest(ctx, projectID, volunteerID, timeRequestID); err != nil {
		return err
	}

	if !approved {
		return s.projects.RemoveAttendance(ctx, projectID, volunteerID)
	}
	if err := s.requests.MarkApproved(ctx, timeRequestID); err != nil {
		return err
	}
	if err := s.projects.AddAttendance(ctx, projectID, volunteerID); err != nil {
		s.log.Error("time request approved but attendance not updated",
			zap.String("project_id", projectID),
			zap.String("volunteer_id", volunteerID),
			zap.String("time_request_id", timeRequestID),
			zap.Error(err))
		return err
	}
	return nil
}

// EditHours overwrites the hours of a time request without touching its
// approval.
func (s *ProjectService) EditHours(ctx context.Context, caller domain.Caller, projectID, volunteerID, timeRequestID string, hours float64) error {
	if caller.UID == "" {
		return domain.ErrNotAuthenticated
	}
	if timeRequestID == "" {
		return domain.ErrMissingTimeRequest
	}
	if hours <= 0 || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return domain.ErrInvalidHours
	}
	if _, err := s.ownedProject(ctx, caller, projectID); err != nil {
		return err
	}
	if _, err := s.volunteerRequest(ctx, projectID, volunteerID, timeRequestID); err != nil {
		return err
	}
	if err := s.requests.SetHours(ctx, timeRequestID, hours); err != nil {
		return err
	}
	s.log.Info("hours edited",
		zap.String("project_id", projectID),
		zap.String("volunteer_id", volunteerID),
		zap.String("time_request_id", timeRequestID),
		zap.Float64("hours", hours))
	return nil
}

// Statuses returns the caller's aggregated status per project.
func (s *ProjectService) Statuses(ctx context.Context, caller domain.Caller) (map[string]domain.TimeRequestStatus, error) {
	if caller.UID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	reqs, err := s.requests.ListByRequestor(ctx, caller.UID)
	if err != nil {
		return nil, err
	}
	return AggregateStatuses(reqs), nil
}

type StatusSnapshot struct {
	Statuses map[string]domain.TimeRequestStatus
	Err      error
}

// WatchStatuses streams Statuses whenever the caller's time requests change.
func (s *ProjectService) WatchStatuses(ctx context.Context, caller domain.Caller) (<-chan StatusSnapshot, error) {
	if caller.UID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	snaps, err := s.requests.Subscribe(ctx, caller.UID)
	if err != nil {
		return nil, err
	}
	out := make(chan StatusSnapshot)
	go func() {
		defer close(out)
		for snap := range snaps {
			next := StatusSnapshot{Err: snap.Err}
			if snap.Err == nil {
				next.Statuses = AggregateStatuses(snap.Requests)
			}
			select {
			case out <- next:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// ownedProject loads a project and checks the caller created it. The check
// always runs before any write.
func (s *ProjectService) ownedProject(ctx context.Context, caller domain.Caller, id string) (*domain.Project, error) {
	if caller.UID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	p, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsCreator(caller.UID) {
		return nil, domain.ErrForbidden
	}
	return p, nil
}

// volunteerRequest loads a time request and checks it was submitted by
// volunteerID for projectID. A request belonging elsewhere reads as missing.
func (s *ProjectService) volunteerRequest(ctx context.Context, projectID, volunteerID, id string) (*domain.TimeRequest, error) {
	tr, err := s.requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tr.ProjectID != projectID || tr.Requestor != volunteerID {
		return nil, domain.ErrTimeRequestNotFound
	}
	return tr, nil
}

func (s *ProjectService) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func validHalfHours(h float64) bool {
	if h <= 0 || math.IsNaN(h) || math.IsInf(h, 0) {
		return false
	}
	return h*2 == math.Trunc(h*2)
}
