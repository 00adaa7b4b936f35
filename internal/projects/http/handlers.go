package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flume-app/flume-backend/internal/api/http/stream"
	"github.com/flume-app/flume-backend/internal/projects/domain"
	"github.com/flume-app/flume-backend/internal/projects/repository"
	"github.com/flume-app/flume-backend/internal/projects/service"
)

func (h *Handler) list(c *gin.Context) {
	var (
		items []domain.Project
		err   error
	)
	if c.Query("mine") == "true" {
		items, err = h.svc.ListMine(c.Request.Context(), caller(c))
	} else {
		items, err = h.svc.List(c.Request.Context())
	}
	if err != nil {
		h.fail(c, err, "load projects")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": items})
}

func (h *Handler) streamProjects(c *gin.Context) {
	snaps, err := h.svc.WatchProjects(c.Request.Context())
	if err != nil {
		h.fail(c, err, "watch projects")
		return
	}
	stream.Serve(c, snaps, func(s repository.ProjectSnapshot) (any, error) {
		if s.Err != nil {
			return nil, s.Err
		}
		return gin.H{"projects": s.Projects}, nil
	}, h.keepAlive, h.log)
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}

	p, err := h.svc.Create(c.Request.Context(), caller(c), service.CreateInput{
		Name:              strings.TrimSpace(req.Name),
		Description:       req.Description,
		Date:              req.Date,
		ParentVolunteers:  req.ParentVolunteers,
		StudentVolunteers: req.StudentVolunteers,
		VolunteerHours:    req.VolunteerHours,
	})
	if err != nil {
		h.fail(c, err, "create project")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "load project")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) edit(c *gin.Context) {
	var req editReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}

	p, err := h.svc.Edit(c.Request.Context(), caller(c), c.Param("id"), service.EditInput{
		Name:              req.Name,
		Description:       req.Description,
		Date:              req.Date,
		ParentVolunteers:  req.ParentVolunteers,
		StudentVolunteers: req.StudentVolunteers,
		VolunteerHours:    req.VolunteerHours,
	})
	if err != nil {
		h.fail(c, err, "update project")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		h.fail(c, err, "delete project")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	role := domain.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if err := h.svc.Register(c.Request.Context(), caller(c), c.Param("id"), role); err != nil {
		h.fail(c, err, "register")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "role": role})
}

func (h *Handler) unregister(c *gin.Context) {
	if err := h.svc.Unregister(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		h.fail(c, err, "unregister")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) submitHours(c *gin.Context) {
	var req hoursReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	tr, err := h.svc.SubmitHours(c.Request.Context(), caller(c), c.Param("id"), service.HoursInput{
		Date:  req.Date,
		Hours: req.Hours,
	})
	if err != nil {
		h.fail(c, err, "submit hours")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "time_request": tr})
}

func (h *Handler) roster(c *gin.Context) {
	r, err := h.svc.Roster(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "load volunteers")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "volunteers": r.Volunteers, "stats": r.Stats})
}

func (h *Handler) setApproval(c *gin.Context) {
	var req approvalReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	err := h.svc.SetApproval(c.Request.Context(), caller(c), c.Param("id"), c.Param("uid"), req.TimeRequestID, *req.Approved)
	if err != nil {
		h.fail(c, err, "update approval")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "approved": *req.Approved})
}

func (h *Handler) editHours(c *gin.Context) {
	var req editHoursReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	err := h.svc.EditHours(c.Request.Context(), caller(c), c.Param("id"), c.Param("uid"), req.TimeRequestID, req.Hours)
	if err != nil {
		h.fail(c, err, "update hours")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "hours": req.Hours})
}

func (h *Handler) notify(c *gin.Context) {
	var req notifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	res, err := h.svc.NotifyVolunteers(c.Request.Context(), caller(c), c.Param("id"), service.NotifyInput{
		VolunteerIDs: req.VolunteerIDs,
		Awaiting:     req.Awaiting,
	})
	if err != nil {
		h.fail(c, err, "send notifications")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": res})
}

func (h *Handler) statuses(c *gin.Context) {
	st, err := h.svc.Statuses(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err, "load time requests")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "statuses": st})
}

func (h *Handler) streamStatuses(c *gin.Context) {
	snaps, err := h.svc.WatchStatuses(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err, "watch time requests")
		return
	}
	stream.Serve(c, snaps, func(s service.StatusSnapshot) (any, error) {
		if s.Err != nil {
			return nil, s.Err
		}
		return gin.H{"statuses": s.Statuses}, nil
	}, h.keepAlive, h.log)
}

func (h *Handler) history(c *gin.Context) {
	hist, err := h.svc.History(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err, "load history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "history": hist})
}

func (h *Handler) pastVolunteers(c *gin.Context) {
	items, err := h.svc.PastVolunteers(c.Request.Context(), caller(c))
	if err != nil {
		h.fail(c, err, "load past volunteers")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "volunteers": items})
}

func (h *Handler) publicProject(c *gin.Context) {
	p, err := h.svc.PublicProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "load project")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) publicRegister(c *gin.Context) {
	var req publicRegisterReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	v, err := h.svc.PublicRegister(c.Request.Context(), c.Param("id"), service.PublicRegistrationInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		h.fail(c, err, "register volunteer")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "volunteer": v})
}
