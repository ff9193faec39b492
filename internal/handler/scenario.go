package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"filmstack/internal/service"
)

type ScenarioHandler struct {
	Scenarios *service.ScenarioService
}

func (h *ScenarioHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/scenarios")
	group.POST("/generate", h.generate)
	group.GET("/batches/:id", h.getBatch)
}

// @Summary Generate and rank financing scenarios
// @Description Builds candidate capital stacks across the requested templates, scores each against the objective weights, and returns them ranked. The batch is persisted.
// @Tags scenarios
// @Accept json
// @Produce json
// @Param request body service.ScenarioGenerationRequest true "generation request"
// @Success 200 {object} handler.apiResponse
// @Failure 400 {object} handler.apiResponse
// @Router /api/v1/scenarios/generate [post]
func (h *ScenarioHandler) generate(c *gin.Context) {
	if h.Scenarios == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req service.ScenarioGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	resp, err := h.Scenarios.Generate(c.Request.Context(), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, resp, nil)
}

// @Summary Fetch a persisted scenario batch
// @Tags scenarios
// @Produce json
// @Param id path string true "batch id"
// @Success 200 {object} handler.apiResponse
// @Failure 404 {object} handler.apiResponse
// @Router /api/v1/scenarios/batches/{id} [get]
func (h *ScenarioHandler) getBatch(c *gin.Context) {
	if h.Scenarios == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	batchID := strings.TrimSpace(c.Param("id"))
	if batchID == "" {
		Error(c, http.StatusBadRequest, "batch id is required", nil)
		return
	}
	batch, results, err := h.Scenarios.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		Fail(c, err)
		return
	}
	if batch == nil {
		Error(c, http.StatusNotFound, "scenario batch not found", nil)
		return
	}
	Ok(c, gin.H{"batch": batch, "scenarios": results}, nil)
}
