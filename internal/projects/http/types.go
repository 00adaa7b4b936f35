package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flume-app/flume-backend/internal/auth"
	"github.com/flume-app/flume-backend/internal/projects/domain"
	"github.com/flume-app/flume-backend/internal/projects/service"
)

// Handler bundles the dependencies for projects HTTP endpoints.
type Handler struct {
	svc       *service.ProjectService
	log       *zap.Logger
	keepAlive time.Duration
}

func New(svc *service.ProjectService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// WithKeepAlive sets the SSE keep-alive interval.
func (h *Handler) WithKeepAlive(d time.Duration) *Handler {
	h.keepAlive = d
	return h
}

func caller(c *gin.Context) domain.Caller {
	id := auth.CurrentIdentity(c)
	return domain.Caller{
		UID:         id.UID,
		DisplayName: id.DisplayName,
		Email:       id.Email,
		PhotoURL:    id.PhotoURL,
	}
}

type createReq struct {
	Name              string    `json:"name" binding:"required"`
	Description       string    `json:"description"`
	Date              time.Time `json:"date" binding:"required"`
	ParentVolunteers  int       `json:"parent_volunteers" binding:"gte=0"`
	StudentVolunteers int       `json:"student_volunteers" binding:"gte=0"`
	VolunteerHours    float64   `json:"volunteer_hours" binding:"gte=0"`
}

type editReq struct {
	Name              *string    `json:"name"`
	Description       *string    `json:"description"`
	Date              *time.Time `json:"date"`
	ParentVolunteers  *int       `json:"parent_volunteers"`
	StudentVolunteers *int       `json:"student_volunteers"`
	VolunteerHours    *float64   `json:"volunteer_hours"`
}

type registerReq struct {
	Role string `json:"role" binding:"required"`
}

type hoursReq struct {
	Date  time.Time `json:"date" binding:"required"`
	Hours float64   `json:"hours"`
}

type approvalReq struct {
	TimeRequestID string `json:"time_request_id"`
	Approved      *bool  `json:"approved" binding:"required"`
}

type editHoursReq struct {
	TimeRequestID string  `json:"time_request_id"`
	Hours         float64 `json:"hours"`
}

type notifyReq struct {
	VolunteerIDs []string `json:"volunteer_ids"`
	Awaiting     bool     `json:"awaiting"`
}

type publicRegisterReq struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
}
