package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/flume-app/flume-backend/internal/notifications"
	"github.com/flume-app/flume-backend/internal/projects/domain"
)

// NotifyInput selects recipients: an explicit id list, or every volunteer
// still awaiting submission when Awaiting is set.
type NotifyInput struct {
	VolunteerIDs []string
	Awaiting     bool
}

// NotifyVolunteers sends the hours reminder for one of the caller's
// projects. Write failures are counted in the result, not returned.
func (s *ProjectService) NotifyVolunteers(ctx context.Context, caller domain.Caller, projectID string, in NotifyInput) (notifications.Result, error) {
	if caller.UID == "" {
		return notifications.Result{}, domain.ErrNotAuthenticated
	}
	if !in.Awaiting && len(in.VolunteerIDs) == 0 {
		return notifications.Result{}, fmt.Errorf("%w: no volunteers selected", domain.ErrInvalidInput)
	}
	p, err := s.ownedProject(ctx, caller, projectID)
	if err != nil {
		return notifications.Result{}, err
	}
	roster, err := s.buildRoster(ctx, caller, p)
	if err != nil {
		return notifications.Result{}, err
	}

	ids := in.VolunteerIDs
	if in.Awaiting {
		ids = roster.Stats.AwaitingVolunteers
	}
	recipients := s.recipients(roster, ids)

	return s.notifier.Dispatch(ctx, recipients, eventContext(p, caller.UID, caller.DisplayName)), nil
}

// SendReminders notifies the awaiting volunteers of every project whose
// date lies within lookback before now. The creator is the sender.
func (s *ProjectService) SendReminders(ctx context.Context, lookback time.Duration) (notifications.Result, error) {
	now := s.now()
	projects, err := s.projects.List(ctx)
	if err != nil {
		return notifications.Result{}, err
	}

	var total notifications.Result
	for i := range projects {
		p := &projects[i]
		if p.Date.After(now) || p.Date.Before(now.Add(-lookback)) {
			continue
		}
		roster, err := s.buildRoster(ctx, domain.Caller{}, p)
		if err != nil {
			s.log.Error("reminder roster failed", zap.String("project_id", p.ID), zap.Error(err))
			continue
		}
		ids := roster.Stats.AwaitingVolunteers
		if len(ids) == 0 {
			continue
		}
		res := s.notifier.Dispatch(ctx, s.recipients(roster, ids), eventContext(p, p.CreatorID, ""))
		total.Attempted += res.Attempted
		total.Failed += res.Failed
	}
	s.log.Info("reminders sent", zap.Int("attempted", total.Attempted), zap.Int("failed", total.Failed))
	return total, nil
}

// recipients maps ids to roster entries. Ids of users not registered for
// the project are dropped.
func (s *ProjectService) recipients(roster *domain.Roster, ids []string) []notifications.Recipient {
	byID := make(map[string]domain.Volunteer, len(roster.Volunteers))
	for _, v := range roster.Volunteers {
		byID[v.ID] = v
	}
	out := make([]notifications.Recipient, 0, len(ids))
	for _, id := range ids {
		v, ok := byID[id]
		if !ok {
			s.log.Warn("skipping notification for unregistered volunteer",
				zap.String("project_id", roster.Project.ID),
				zap.String("volunteer_id", id))
			continue
		}
		out = append(out, notifications.Recipient{
			ID:        v.ID,
			FirstName: v.FirstName,
			LastName:  v.LastName,
			Email:     v.Email,
		})
	}
	return out
}

func eventContext(p *domain.Project, senderID, senderName string) notifications.EventContext {
	return notifications.EventContext{
		EventID:          p.ID,
		EventName:        p.Name,
		EventDate:        p.Date,
		EventDescription: p.Description,
		SenderID:         senderID,
		SenderName:       senderName,
	}
}
