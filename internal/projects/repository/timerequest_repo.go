package repository

import (
	"context"
	"fmt"

	"github.com/flume-app/flume-backend/internal/docstore"
	"github.com/flume-app/flume-backend/internal/projects/domain"
)

const TimeRequestCollection = "TimeRequests"

type TimeRequestRepository struct {
	store docstore.Store
}

func NewTimeRequestRepository(store docstore.Store) *TimeRequestRepository {
	return &TimeRequestRepository{store: store}
}

// TimeRequestSnapshot is one delivery of a requestor's time requests.
type TimeRequestSnapshot struct {
	Requests []domain.TimeRequest
	Err      error
}

// Create stores a new, unapproved time request.
func (r *TimeRequestRepository) Create(ctx context.Context, tr domain.TimeRequest) (*domain.TimeRequest, error) {
	id, err := r.store.Add(ctx, TimeRequestCollection, map[string]any{
		"requestor":    tr.Requestor,
		"project_id":   tr.ProjectID,
		"date":         tr.Date,
		"length_hours": tr.LengthHours,
		"approved":     false,
	})
	if err != nil {
		return nil, fmt.Errorf("create time request: %w", err)
	}
	tr.ID = id
	tr.Approved = false
	return &tr, nil
}

func (r *TimeRequestRepository) Get(ctx context.Context, id string) (*domain.TimeRequest, error) {
	doc, err := r.store.Get(ctx, TimeRequestCollection, id)
	if err != nil {
		return nil, notFound(err, domain.ErrTimeRequestNotFound)
	}
	tr := timeRequestFromDoc(doc)
	return &tr, nil
}

func (r *TimeRequestRepository) ListByRequestor(ctx context.Context, requestor string) ([]domain.TimeRequest, error) {
	return r.query(ctx, docstore.Collection(TimeRequestCollection).Where("requestor", requestor))
}

func (r *TimeRequestRepository) ListByProject(ctx context.Context, projectID string) ([]domain.TimeRequest, error) {
	return r.query(ctx, docstore.Collection(TimeRequestCollection).Where("project_id", projectID))
}

func (r *TimeRequestRepository) query(ctx context.Context, q docstore.Query) ([]domain.TimeRequest, error) {
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return timeRequestsFromDocs(docs), nil
}

// Subscribe streams requestor's time requests whenever they change.
func (r *TimeRequestRepository) Subscribe(ctx context.Context, requestor string) (<-chan TimeRequestSnapshot, error) {
	snaps, err := r.store.Subscribe(ctx, docstore.Collection(TimeRequestCollection).Where("requestor", requestor))
	if err != nil {
		return nil, err
	}
	out := make(chan TimeRequestSnapshot)
	go func() {
		defer close(out)
		for snap := range snaps {
			next := TimeRequestSnapshot{Err: snap.Err}
			if snap.Err == nil {
				next.Requests = timeRequestsFromDocs(snap.Docs)
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

// MarkApproved sets approved=true. There is no inverse: un-approving only
// touches the project's attendance.
func (r *TimeRequestRepository) MarkApproved(ctx context.Context, id string) error {
	return r.update(ctx, id, docstore.Set(true, "approved"))
}

// SetHours overwrites length_hours and nothing else.
func (r *TimeRequestRepository) SetHours(ctx context.Context, id string, hours float64) error {
	return r.update(ctx, id, docstore.Set(hours, "length_hours"))
}

func (r *TimeRequestRepository) update(ctx context.Context, id string, updates ...docstore.Update) error {
	if err := r.store.Update(ctx, TimeRequestCollection, id, updates...); err != nil {
		return notFound(err, domain.ErrTimeRequestNotFound)
	}
	return nil
}

func timeRequestFromDoc(doc docstore.Document) domain.TimeRequest {
	tr := domain.TimeRequest{
		ID:          doc.ID,
		Requestor:   doc.String("requestor"),
		ProjectID:   doc.String("project_id"),
		LengthHours: doc.Float("length_hours"),
		Approved:    doc.Bool("approved"),
	}
	if t, ok := doc.Time("date"); ok {
		tr.Date = t
	}
	return tr
}

func timeRequestsFromDocs(docs []docstore.Document) []domain.TimeRequest {
	out := make([]domain.TimeRequest, 0, len(docs))
	for _, d := range docs {
		out = append(out, timeRequestFromDoc(d))
	}
	return out
}
