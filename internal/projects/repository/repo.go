package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flume-app/flume-backend/internal/docstore"
	"github.com/flume-app/flume-backend/internal/projects/domain"
)

const (
	ProjectCollection = "Project"

	fieldRegistered   = "registered_volunteers"
	fieldAttendance   = "attendance"
	fieldParticipated = "participated"
)

// ProjectRepository maps Project documents to domain.Project.
type ProjectRepository struct {
	store docstore.Store
	now   func() time.Time
}

func NewProjectRepository(store docstore.Store) *ProjectRepository {
	return &ProjectRepository{store: store, now: time.Now}
}

// ProjectSnapshot is one delivery of the live project list.
type ProjectSnapshot struct {
	Projects []domain.Project
	Err      error
}

// ProjectFields are the mutable top-level fields of a project. Nil
// pointers are left untouched by Update.
type ProjectFields struct {
	Name              *string
	Description       *string
	Date              *time.Time
	ParentVolunteers  *int
	StudentVolunteers *int
	VolunteerHours    *float64
}

func (r *ProjectRepository) Get(ctx context.Context, id string) (*domain.Project, error) {
	doc, err := r.store.Get(ctx, ProjectCollection, id)
	if err != nil {
		return nil, notFound(err, domain.ErrProjectNotFound)
	}
	p := projectFromDoc(doc, r.now())
	return &p, nil
}

func (r *ProjectRepository) List(ctx context.Context) ([]domain.Project, error) {
	return r.query(ctx, docstore.Collection(ProjectCollection))
}

func (r *ProjectRepository) ListByCreator(ctx context.Context, creatorID string) ([]domain.Project, error) {
	return r.query(ctx, docstore.Collection(ProjectCollection).Where("creator_id", creatorID))
}

func (r *ProjectRepository) query(ctx context.Context, q docstore.Query) ([]domain.Project, error) {
	docs, err := r.store.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	return projectsFromDocs(docs, r.now()), nil
}

// Subscribe streams the full project list whenever it changes.
func (r *ProjectRepository) Subscribe(ctx context.Context) (<-chan ProjectSnapshot, error) {
	snaps, err := r.store.Subscribe(ctx, docstore.Collection(ProjectCollection))
	if err != nil {
		return nil, err
	}
	out := make(chan ProjectSnapshot)
	go func() {
		defer close(out)
		for snap := range snaps {
			next := ProjectSnapshot{Err: snap.Err}
			if snap.Err == nil {
				next.Projects = projectsFromDocs(snap.Docs, snap.ReadTime)
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

// Create stores a new project with empty volunteer collections.
func (r *ProjectRepository) Create(ctx context.Context, p domain.Project) (*domain.Project, error) {
	id, err := r.store.Add(ctx, ProjectCollection, map[string]any{
		"name":               p.Name,
		"description":        p.Description,
		"date":               p.Date,
		"creator_id":         p.CreatorID,
		"parent_volunteers":  p.ParentVolunteers,
		"student_volunteers": p.StudentVolunteers,
		"volunteer_hours":    p.VolunteerHours,
		fieldRegistered:      map[string]any{},
		fieldParticipated:    []any{},
		fieldAttendance:      []any{},
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	p.ID = id
	p.RegisteredVolunteers = map[string]domain.Role{}
	p.Participated = []string{}
	p.Attendance = []string{}
	return &p, nil
}

func (r *ProjectRepository) Update(ctx context.Context, id string, f ProjectFields) error {
	var updates []docstore.Update
	if f.Name != nil {
		updates = append(updates, docstore.Set(*f.Name, "name"))
	}
	if f.Description != nil {
		updates = append(updates, docstore.Set(*f.Description, "description"))
	}
	if f.Date != nil {
		updates = append(updates, docstore.Set(*f.Date, "date"))
	}
	if f.ParentVolunteers != nil {
		updates = append(updates, docstore.Set(*f.ParentVolunteers, "parent_volunteers"))
	}
	if f.StudentVolunteers != nil {
		updates = append(updates, docstore.Set(*f.StudentVolunteers, "student_volunteers"))
	}
	if f.VolunteerHours != nil {
		updates = append(updates, docstore.Set(*f.VolunteerHours, "volunteer_hours"))
	}
	if len(updates) == 0 {
		return nil
	}
	return r.update(ctx, id, updates...)
}

// Delete removes the project document only. Time requests and
// notifications that reference it are left in place.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, ProjectCollection, id)
}

// Register writes only the caller's key of registered_volunteers, so
// concurrent registrations of different users do not overwrite each other.
func (r *ProjectRepository) Register(ctx context.Context, projectID, userID string, role domain.Role) error {
	return r.update(ctx, projectID, docstore.Set(string(role), fieldRegistered, userID))
}

func (r *ProjectRepository) Unregister(ctx context.Context, projectID, userID string) error {
	return r.update(ctx, projectID, docstore.Set(docstore.Delete(), fieldRegistered, userID))
}

func (r *ProjectRepository) AddAttendance(ctx context.Context, projectID, userID string) error {
	return r.update(ctx, projectID, docstore.Set(docstore.ArrayUnion(userID), fieldAttendance))
}

func (r *ProjectRepository) RemoveAttendance(ctx context.Context, projectID, userID string) error {
	return r.update(ctx, projectID, docstore.Set(docstore.ArrayRemove(userID), fieldAttendance))
}

// AddParticipant appends a legacy volunteer id to participated.
func (r *ProjectRepository) AddParticipant(ctx context.Context, projectID, volunteerID string) error {
	return r.update(ctx, projectID, docstore.Set(docstore.ArrayUnion(volunteerID), fieldParticipated))
}

func (r *ProjectRepository) update(ctx context.Context, id string, updates ...docstore.Update) error {
	if err := r.store.Update(ctx, ProjectCollection, id, updates...); err != nil {
		return notFound(err, domain.ErrProjectNotFound)
	}
	return nil
}

// projectFromDoc applies the read defaults: absent strings, numbers and
// arrays become zero values, an absent date becomes readTime, and roles
// other than scout or parent are dropped.
func projectFromDoc(doc docstore.Document, readTime time.Time) domain.Project {
	p := domain.Project{
		ID:                   doc.ID,
		Name:                 doc.String("name"),
		Description:          doc.String("description"),
		CreatorID:            doc.String("creator_id"),
		ParentVolunteers:     int(doc.Float("parent_volunteers")),
		StudentVolunteers:    int(doc.Float("student_volunteers")),
		VolunteerHours:       doc.Float("volunteer_hours"),
		RegisteredVolunteers: map[string]domain.Role{},
		Participated:         doc.Strings(fieldParticipated),
		Attendance:           doc.Strings(fieldAttendance),
	}
	if t, ok := doc.Time("date"); ok {
		p.Date = t
	} else {
		p.Date = readTime
	}
	for uid, role := range doc.StringMap(fieldRegistered) {
		if r := domain.Role(role); r.Valid() {
			p.RegisteredVolunteers[uid] = r
		}
	}
	return p
}

func projectsFromDocs(docs []docstore.Document, readTime time.Time) []domain.Project {
	out := make([]domain.Project, 0, len(docs))
	for _, d := range docs {
		out = append(out, projectFromDoc(d, readTime))
	}
	return out
}

func notFound(err, sentinel error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: %v", sentinel, err)
	}
	return err
}
