package http

import "github.com/gin-gonic/gin"

// Register attaches the authenticated routes to rg. guard runs in front of
// every mutation.
func (h *Handler) Register(rg *gin.RouterGroup, guard ...gin.HandlerFunc) {
	mut := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		chain := append([]gin.HandlerFunc{}, guard...)
		return append(chain, handler)
	}

	p := rg.Group("/projects")
	p.GET("", h.list)
	p.GET("/stream", h.streamProjects)
	p.POST("", mut(h.create)...)
	p.GET("/:id", h.get)
	p.PATCH("/:id", mut(h.edit)...)
	p.DELETE("/:id", mut(h.delete)...)
	p.PUT("/:id/registration", mut(h.register)...)
	p.DELETE("/:id/registration", mut(h.unregister)...)
	p.POST("/:id/hours", mut(h.submitHours)...)
	p.GET("/:id/volunteers", h.roster)
	p.POST("/:id/volunteers/:uid/approval", mut(h.setApproval)...)
	p.PUT("/:id/volunteers/:uid/hours", mut(h.editHours)...)
	p.POST("/:id/notify", mut(h.notify)...)

	rg.GET("/time-requests", h.statuses)
	rg.GET("/time-requests/stream", h.streamStatuses)
	rg.GET("/history", h.history)
	rg.GET("/past-volunteers", h.pastVolunteers)
}

// RegisterPublic attaches the routes that need no sign-in.
func (h *Handler) RegisterPublic(rg *gin.RouterGroup, guard ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{}, guard...)
	rg.GET("/projects/:id", h.publicProject)
	rg.POST("/projects/:id/volunteers", append(chain, h.publicRegister)...)
}
