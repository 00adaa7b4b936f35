package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/flume-app/flume-backend/internal/projects/domain"
)

// PublicProject is what an anonymous visitor may see of a project.
type PublicProject struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Date              time.Time `json:"date"`
	ParentVolunteers  int       `json:"parent_volunteers"`
	StudentVolunteers int       `json:"student_volunteers"`
	VolunteerHours    float64   `json:"volunteer_hours"`
}

type PublicRegistrationInput struct {
	FirstName string `validate:"required,max=100"`
	LastName  string `validate:"required,max=100"`
	Email     string `validate:"required,email"`
}

func (s *ProjectService) PublicProject(ctx context.Context, id string) (*PublicProject, error) {
	p, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PublicProject{
		ID:                p.ID,
		Name:              p.Name,
		Description:       p.Description,
		Date:              p.Date,
		ParentVolunteers:  p.ParentVolunteers,
		StudentVolunteers: p.StudentVolunteers,
		VolunteerHours:    p.VolunteerHours,
	}, nil
}

// PublicRegister records an account-less participant and appends it to
// the project's participated list. If the append fails the Volunteers
// document stays behind.
func (s *ProjectService) PublicRegister(ctx context.Context, projectID string, in PublicRegistrationInput) (*domain.LegacyVolunteer, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.check(in); err != nil {
		return nil, err
	}
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, err
	}

	v, err := s.volunteers.Create(ctx, domain.LegacyVolunteer{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
	})
	if err != nil {
		return nil, err
	}
	if err := s.projects.AddParticipant(ctx, projectID, v.ID); err != nil {
		s.log.Error("volunteer stored but not added to project",
			zap.String("project_id", projectID),
			zap.String("volunteer_id", v.ID),
			zap.Error(err))
		return nil, err
	}
	return v, nil
}
