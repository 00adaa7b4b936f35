package service

import "github.com/flume-app/flume-backend/internal/projects/domain"

// AggregateStatuses reduces a requestor's time requests to one status per
// project. An approved request beats a pending one; among requests of the
// same status the latest date wins, then the greater id. Requests without a
// project id are skipped.
func AggregateStatuses(reqs []domain.TimeRequest) map[string]domain.TimeRequestStatus {
	best := map[string]domain.TimeRequest{}
	for _, tr := range reqs {
		if tr.ProjectID == "" {
			continue
		}
		cur, ok := best[tr.ProjectID]
		if !ok || beats(tr, cur, true) {
			best[tr.ProjectID] = tr
		}
	}

	out := make(map[string]domain.TimeRequestStatus, len(best))
	for projectID, tr := range best {
		out[projectID] = domain.TimeRequestStatus{
			RequestID:   tr.ID,
			Status:      tr.Status(),
			Hours:       tr.LengthHours,
			SubmittedAt: tr.Date,
		}
	}
	return out
}

// rosterRequest picks the request shown next to a volunteer in the roster.
// Pending requests come first so the creator sees what still needs review.
func rosterRequest(reqs []domain.TimeRequest) *domain.TimeRequest {
	var picked *domain.TimeRequest
	for i := range reqs {
		if picked == nil || beats(reqs[i], *picked, false) {
			picked = &reqs[i]
		}
	}
	return picked
}

// beats reports whether a should replace b. preferApproved selects which
// status class ranks first.
func beats(a, b domain.TimeRequest, preferApproved bool) bool {
	if a.Approved != b.Approved {
		return a.Approved == preferApproved
	}
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.ID > b.ID
}
