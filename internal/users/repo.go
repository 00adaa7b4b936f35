package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flume-app/flume-backend/internal/docstore"
)

const Collection = "Users"

var ErrNotFound = errors.New("user profile not found")

// isoMillis matches JavaScript's Date.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// Profile is the stored part of a user. Identity itself lives in Firebase.
type Profile struct {
	UID       string `json:"uid"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Reader is the read side used by the project workflow.
type Reader interface {
	Get(ctx context.Context, uid string) (*Profile, error)
}

type Repo struct {
	store docstore.Store
	now   func() time.Time
}

func NewRepo(store docstore.Store) *Repo {
	return &Repo{store: store, now: time.Now}
}

type UpsertUser struct {
	FirebaseUID string
	Email       string
	DisplayName string
}

func (r *Repo) Get(ctx context.Context, uid string) (*Profile, error) {
	doc, err := r.store.Get(ctx, Collection, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p := profileFromDoc(doc)
	return &p, nil
}

// EnsureUser creates the profile on first sign-in and never touches an
// existing one. created reports whether a document was written.
func (r *Repo) EnsureUser(ctx context.Context, u UpsertUser) (*Profile, bool, error) {
	if u.FirebaseUID == "" {
		return nil, false, fmt.Errorf("firebase_uid required")
	}

	existing, err := r.Get(ctx, u.FirebaseUID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	first, last := SplitDisplayName(u.DisplayName)
	p := Profile{
		UID:       u.FirebaseUID,
		FirstName: first,
		LastName:  last,
		Email:     u.Email,
		CreatedAt: r.now().UTC().Format(isoMillis),
	}
	err = r.store.Set(ctx, Collection, u.FirebaseUID, map[string]any{
		"firstName": p.FirstName,
		"lastName":  p.LastName,
		"email":     p.Email,
		"createdAt": p.CreatedAt,
	}, false)
	if err != nil {
		return nil, false, fmt.Errorf("create profile: %w", err)
	}
	return &p, true, nil
}

// SplitDisplayName splits at the first space: the first token is the
// first name and the rest, unchanged, the last name.
func SplitDisplayName(name string) (string, string) {
	first, rest, _ := strings.Cut(name, " ")
	return first, rest
}

// profileFromDoc reads camelCase fields with snake_case fallbacks written
// by older clients.
func profileFromDoc(doc docstore.Document) Profile {
	p := Profile{
		UID:       doc.ID,
		FirstName: firstNonEmpty(doc.String("firstName"), doc.String("first_name"), "Unknown"),
		LastName:  firstNonEmpty(doc.String("lastName"), doc.String("last_name")),
		Email:     firstNonEmpty(doc.String("email"), "N/A"),
		CreatedAt: doc.String("createdAt"),
	}
	return p
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
