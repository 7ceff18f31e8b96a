package handler

import (
	"github.com/estudiomd/backoffice/internal/application/dashboard"
	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the fiscal-year dashboard
type DashboardHandler struct {
	BaseHandler
	state *dashboard.State
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(state *dashboard.State) *DashboardHandler {
	return &DashboardHandler{state: state}
}

// Get returns the cached snapshot of a year. ?refresh=true recomputes it.
// GET /api/v1/dashboard/?year=
func (h *DashboardHandler) Get(c *gin.Context) {
	h.view(c, truthy(c.Query("refresh")))
}

// Refresh recomputes the snapshot of a year and returns it
// POST /api/v1/dashboard/refresh/?year=
func (h *DashboardHandler) Refresh(c *gin.Context) {
	h.view(c, true)
}

func (h *DashboardHandler) view(c *gin.Context, refresh bool) {
	userID, isAdmin, err := currentUser(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	year, err := yearQuery(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp, err := h.state.View(c.Request.Context(), year, dashboard.Viewer{UserID: userID, IsAdmin: isAdmin}, refresh)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
