package domain

import (
	"slices"
	"time"
)

// Role is the capacity a volunteer registers in.
type Role string

const (
	RoleScout  Role = "scout"
	RoleParent Role = "parent"
)

func (r Role) Valid() bool {
	return r == RoleScout || r == RoleParent
}

// Project is a volunteer event. Counts and hours are soft targets and are
// never enforced on registration.
type Project struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	Date                 time.Time       `json:"date"`
	CreatorID            string          `json:"creator_id"`
	ParentVolunteers     int             `json:"parent_volunteers"`
	StudentVolunteers    int             `json:"student_volunteers"`
	VolunteerHours       float64         `json:"volunteer_hours"`
	RegisteredVolunteers map[string]Role `json:"registered_volunteers"`
	Participated         []string        `json:"participated"`
	Attendance           []string        `json:"attendance"`
}

func (p *Project) IsCreator(uid string) bool {
	return uid != "" && p.CreatorID == uid
}

func (p *Project) RoleOf(uid string) (Role, bool) {
	r, ok := p.RegisteredVolunteers[uid]
	return r, ok
}

func (p *Project) Attended(uid string) bool {
	return slices.Contains(p.Attendance, uid)
}

// TimeRequest is one hours submission. Several may exist per volunteer
// and project.
type TimeRequest struct {
	ID          string    `json:"id"`
	Requestor   string    `json:"requestor"`
	ProjectID   string    `json:"project_id"`
	Date        time.Time `json:"date"`
	LengthHours float64   `json:"length_hours"`
	Approved    bool      `json:"approved"`
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

func (t *TimeRequest) Status() Status {
	if t.Approved {
		return StatusApproved
	}
	return StatusPending
}

// TimeRequestStatus is the aggregated state of a user's hours for one
// project.
type TimeRequestStatus struct {
	RequestID   string    `json:"requestId"`
	Status      Status    `json:"status"`
	Hours       float64   `json:"hours"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Volunteer is a registered user projected for one project. It is rebuilt
// on every read and never stored.
type Volunteer struct {
	ID             string   `json:"id"`
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Email          string   `json:"email"`
	SubmittedHours *float64 `json:"submittedHours,omitempty"`
	TimeRequestID  string   `json:"timeRequestId,omitempty"`
	Role           Role     `json:"role,omitempty"`
}

type RosterStats struct {
	Total              int      `json:"total"`
	ParentCount        int      `json:"parentCount"`
	ScoutCount         int      `json:"scoutCount"`
	DesiredParents     int      `json:"desiredParents"`
	DesiredScouts      int      `json:"desiredScouts"`
	ApprovedCount      int      `json:"approvedCount"`
	ApprovedHours      float64  `json:"approvedHours"`
	PendingCount       int      `json:"pendingCount"`
	AwaitingCount      int      `json:"awaitingCount"`
	AwaitingVolunteers []string `json:"awaitingVolunteers"`
}

type Roster struct {
	Project    Project     `json:"project"`
	Volunteers []Volunteer `json:"volunteers"`
	Stats      RosterStats `json:"stats"`
}

type HistoryEntry struct {
	Project Project           `json:"project"`
	Role    Role              `json:"role"`
	Request TimeRequestStatus `json:"request"`
}

type History struct {
	Entries       []HistoryEntry `json:"entries"`
	TotalHours    float64        `json:"totalHours"`
	ApprovedHours float64        `json:"approvedHours"`
}

// PastVolunteer summarizes a legacy participant across a creator's
// projects.
type PastVolunteer struct {
	ID           string   `json:"id"`
	FirstName    string   `json:"firstName"`
	LastName     string   `json:"lastName"`
	Email        string   `json:"email"`
	ProjectCount int      `json:"projectCount"`
	Projects     []string `json:"projects"`
}

// LegacyVolunteer is a participant who registered without an account.
type LegacyVolunteer struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Caller is the authenticated identity behind a request.
type Caller struct {
	UID         string
	DisplayName string
	Email       string
	PhotoURL    string
}
