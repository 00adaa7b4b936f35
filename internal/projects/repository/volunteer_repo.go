package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/flume-app/flume-backend/internal/docstore"
	"github.com/flume-app/flume-backend/internal/projects/domain"
)

const VolunteerCollection = "Volunteers"

// VolunteerRepository holds participants who registered through the
// public form without an account.
type VolunteerRepository struct {
	store docstore.Store
}

func NewVolunteerRepository(store docstore.Store) *VolunteerRepository {
	return &VolunteerRepository{store: store}
}

func (r *VolunteerRepository) Create(ctx context.Context, v domain.LegacyVolunteer) (*domain.LegacyVolunteer, error) {
	id, err := r.store.Add(ctx, VolunteerCollection, map[string]any{
		"firstName": v.FirstName,
		"lastName":  v.LastName,
		"email":     v.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("create volunteer: %w", err)
	}
	v.ID = id
	return &v, nil
}

// Get returns nil without error when the volunteer does not exist.
func (r *VolunteerRepository) Get(ctx context.Context, id string) (*domain.LegacyVolunteer, error) {
	doc, err := r.store.Get(ctx, VolunteerCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.LegacyVolunteer{
		ID:        doc.ID,
		FirstName: doc.String("firstName"),
		LastName:  doc.String("lastName"),
		Email:     doc.String("email"),
	}, nil
}
