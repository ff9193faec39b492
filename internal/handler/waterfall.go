package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"filmstack/internal/service"
)

type WaterfallHandler struct {
	Waterfalls *service.WaterfallService
}

func (h *WaterfallHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/waterfall")
	group.POST("/execute", h.execute)
}

// @Summary Execute a recoupment waterfall
// @Description Projects revenue over the release curve, runs the waterfall, and returns per-stakeholder returns. Optionally wraps the run in Monte Carlo trials.
// @Tags waterfall
// @Accept json
// @Produce json
// @Param request body service.WaterfallExecutionRequest true "execution request"
// @Success 200 {object} handler.apiResponse
// @Failure 400 {object} handler.apiResponse
// @Router /api/v1/waterfall/execute [post]
func (h *WaterfallHandler) execute(c *gin.Context) {
	if h.Waterfalls == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req service.WaterfallExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	resp, err := h.Waterfalls.Execute(c.Request.Context(), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, resp, nil)
}
