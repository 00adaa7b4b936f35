package service

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/flume-app/flume-backend/internal/projects/domain"
	"github.com/flume-app/flume-backend/internal/users"
)

// Roster lists the registered volunteers of one of the caller's projects
// with their submitted hours and the project's statistics.
func (s *ProjectService) Roster(ctx context.Context, caller domain.Caller, projectID string) (*domain.Roster, error) {
	p, err := s.ownedProject(ctx, caller, projectID)
	if err != nil {
		return nil, err
	}
	return s.buildRoster(ctx, caller, p)
}

func (s *ProjectService) buildRoster(ctx context.Context, caller domain.Caller, p *domain.Project) (*domain.Roster, error) {
	reqs, err := s.requests.ListByProject(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	byRequestor := map[string][]domain.TimeRequest{}
	for _, tr := range reqs {
		byRequestor[tr.Requestor] = append(byRequestor[tr.Requestor], tr)
	}

	uids := make([]string, 0, len(p.RegisteredVolunteers))
	for uid := range p.RegisteredVolunteers {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	volunteers := make([]domain.Volunteer, 0, len(uids))
	for _, uid := range uids {
		v, ok := s.projectVolunteer(ctx, caller, uid)
		v.Role = p.RegisteredVolunteers[uid]
		if ok {
			if tr := rosterRequest(byRequestor[uid]); tr != nil {
				hours := tr.LengthHours
				v.SubmittedHours = &hours
				v.TimeRequestID = tr.ID
			}
		}
		volunteers = append(volunteers, v)
	}

	return &domain.Roster{
		Project:    *p,
		Volunteers: volunteers,
		Stats:      rosterStats(p, volunteers),
	}, nil
}

// projectVolunteer resolves a registered uid to a display identity. The
// boolean is false when the profile read failed; such volunteers are shown
// without hours.
func (s *ProjectService) projectVolunteer(ctx context.Context, caller domain.Caller, uid string) (domain.Volunteer, bool) {
	profile, err := s.profiles.Get(ctx, uid)
	switch {
	case err == nil:
		return domain.Volunteer{
			ID:        uid,
			FirstName: profile.FirstName,
			LastName:  profile.LastName,
			Email:     profile.Email,
		}, true
	case errors.Is(err, users.ErrNotFound):
		if uid == caller.UID {
			return callerVolunteer(caller), true
		}
		return unknownVolunteer(uid), true
	default:
		s.log.Warn("profile read failed", zap.String("uid", uid), zap.Error(err))
		return unknownVolunteer(uid), false
	}
}

func callerVolunteer(caller domain.Caller) domain.Volunteer {
	name := caller.DisplayName
	if name == "" {
		name = "User"
	}
	first, last := users.SplitDisplayName(name)
	email := caller.Email
	if email == "" {
		email = "N/A"
	}
	return domain.Volunteer{ID: caller.UID, FirstName: first, LastName: last, Email: email}
}

func unknownVolunteer(uid string) domain.Volunteer {
	return domain.Volunteer{ID: uid, FirstName: "Unknown", LastName: "User", Email: "Not available"}
}

func rosterStats(p *domain.Project, volunteers []domain.Volunteer) domain.RosterStats {
	st := domain.RosterStats{
		Total:              len(volunteers),
		DesiredParents:     p.ParentVolunteers,
		DesiredScouts:      p.StudentVolunteers,
		ApprovedCount:      len(p.Attendance),
		AwaitingVolunteers: []string{},
	}
	for _, v := range volunteers {
		switch v.Role {
		case domain.RoleParent:
			st.ParentCount++
		case domain.RoleScout:
			st.ScoutCount++
		}

		switch {
		case p.Attended(v.ID):
			if v.SubmittedHours != nil {
				st.ApprovedHours += *v.SubmittedHours
			}
		case v.SubmittedHours != nil:
			st.PendingCount++
		default:
			st.AwaitingCount++
			st.AwaitingVolunteers = append(st.AwaitingVolunteers, v.ID)
		}
	}
	return st
}

// History lists the caller's registrations that have submitted hours,
// newest project first.
func (s *ProjectService) History(ctx context.Context, caller domain.Caller) (*domain.History, error) {
	statuses, err := s.Statuses(ctx, caller)
	if err != nil {
		return nil, err
	}
	projects, err := s.projects.List(ctx)
	if err != nil {
		return nil, err
	}

	h := &domain.History{Entries: []domain.HistoryEntry{}}
	for _, p := range projects {
		role, registered := p.RoleOf(caller.UID)
		st, submitted := statuses[p.ID]
		if !registered || !submitted {
			continue
		}
		h.Entries = append(h.Entries, domain.HistoryEntry{Project: p, Role: role, Request: st})
		h.TotalHours += st.Hours
		if st.Status == domain.StatusApproved {
			h.ApprovedHours += st.Hours
		}
	}
	sort.SliceStable(h.Entries, func(i, j int) bool {
		return h.Entries[i].Project.Date.After(h.Entries[j].Project.Date)
	})
	return h, nil
}

// PastVolunteers summarizes the legacy participants across the caller's
// projects, most frequent first.
func (s *ProjectService) PastVolunteers(ctx context.Context, caller domain.Caller) ([]domain.PastVolunteer, error) {
	projects, err := s.ListMine(ctx, caller)
	if err != nil {
		return nil, err
	}

	byID := map[string]*domain.PastVolunteer{}
	for _, p := range projects {
		for _, id := range p.Participated {
			pv, ok := byID[id]
			if !ok {
				pv = &domain.PastVolunteer{ID: id, Projects: []string{}}
				byID[id] = pv
			}
			pv.ProjectCount++
			pv.Projects = append(pv.Projects, p.Name)
		}
	}

	out := make([]domain.PastVolunteer, 0, len(byID))
	for id, pv := range byID {
		v, err := s.volunteers.Get(ctx, id)
		switch {
		case err != nil:
			return nil, err
		case v == nil:
			pv.FirstName, pv.LastName, pv.Email = "Unknown", "", "N/A"
		default:
			pv.FirstName, pv.LastName, pv.Email = v.FirstName, v.LastName, v.Email
		}
		out = append(out, *pv)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProjectCount != out[j].ProjectCount {
			return out[i].ProjectCount > out[j].ProjectCount
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
