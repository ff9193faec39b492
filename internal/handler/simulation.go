package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"filmstack/internal/models"
	"filmstack/internal/repository"
	"filmstack/internal/service"
)

type SimulationHandler struct {
	Runs   *service.RunManager
	Hub    *service.ProgressHub
	Logger *zap.Logger
}

func (h *SimulationHandler) Register(r *gin.Engine) {
	group := r.Group("/api/v1/simulations")
	group.POST("", h.start)
	group.GET("", h.list)
	group.GET("/:id", h.get)
	group.DELETE("/:id", h.cancel)
	group.GET("/:id/progress", h.progress)
}

// @Summary Start an asynchronous Monte Carlo run
// @Tags simulations
// @Accept json
// @Produce json
// @Param request body service.SimulationRequest true "simulation request"
// @Success 200 {object} handler.apiResponse
// @Failure 400 {object} handler.apiResponse
// @Router /api/v1/simulations [post]
func (h *SimulationHandler) start(c *gin.Context) {
	if h.Runs == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req service.SimulationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	runID, err := h.Runs.Start(c.Request.Context(), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"run_id": runID, "status": models.RunStatusPending}, nil)
}

// @Summary Run status and result
// @Tags simulations
// @Produce json
// @Param id path string true "run id"
// @Success 200 {object} handler.apiResponse
// @Failure 404 {object} handler.apiResponse
// @Router /api/v1/simulations/{id} [get]
func (h *SimulationHandler) get(c *gin.Context) {
	if h.Runs == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	runID := strings.TrimSpace(c.Param("id"))
	row, err := h.Runs.Get(c.Request.Context(), runID)
	if err != nil {
		Fail(c, err)
		return
	}
	if row == nil {
		Error(c, http.StatusNotFound, "simulation run not found", nil)
		return
	}
	Ok(c, row, nil)
}

func (h *SimulationHandler) list(c *gin.Context) {
	if h.Runs == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	var statusPtr *string
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		statusPtr = &status
	}
	items, err := h.Runs.List(c.Request.Context(), repository.ListRunsParams{
		Status: statusPtr,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, len(items)))
}

// @Summary Cancel a running simulation
// @Description Cooperative: the run stops at its next batch boundary.
// @Tags simulations
// @Produce json
// @Param id path string true "run id"
// @Success 200 {object} handler.apiResponse
// @Failure 404 {object} handler.apiResponse
// @Router /api/v1/simulations/{id} [delete]
func (h *SimulationHandler) cancel(c *gin.Context) {
	if h.Runs == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	runID := strings.TrimSpace(c.Param("id"))
	row, err := h.Runs.Get(c.Request.Context(), runID)
	if err != nil {
		Fail(c, err)
		return
	}
	if row == nil {
		Error(c, http.StatusNotFound, "simulation run not found", nil)
		return
	}
	cancelled := h.Runs.Cancel(runID)
	Ok(c, gin.H{"run_id": runID, "cancelled": cancelled}, nil)
}

// progress upgrades to a websocket and streams one frame per completed batch
// until the run reaches a terminal status or the client goes away.
func (h *SimulationHandler) progress(c *gin.Context) {
	if h.Runs == nil || h.Hub == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	runID := strings.TrimSpace(c.Param("id"))
	row, err := h.Runs.Get(c.Request.Context(), runID)
	if err != nil {
		Fail(c, err)
		return
	}
	if row == nil {
		Error(c, http.StatusNotFound, "simulation run not found", nil)
		return
	}

	// Subscribe first, then re-read the row: a run that goes terminal after
	// the re-read lands on the channel, one that went terminal before it
	// shows in the snapshot. Either way the stream ends.
	events, unsubscribe := h.Hub.Subscribe(runID, 32)
	defer unsubscribe()

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket accept failed", zap.String("run_id", runID), zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	ctx := c.Request.Context()
	if fresh, err := h.Runs.Get(ctx, runID); err == nil && fresh != nil {
		row = fresh
	}
	writeEvent := func(ev service.ProgressEvent) bool {
		raw, err := json.Marshal(ev)
		if err != nil {
			return false
		}
		wctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return conn.Write(wctx, websocket.MessageText, raw) == nil
	}

	writeEvent(service.ProgressEvent{
		RunID:     runID,
		Status:    row.Status,
		Completed: row.CompletedIterations,
		Total:     row.TotalIterations,
	})
	if terminalStatus(row.Status) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if !writeEvent(ev) {
				return
			}
			if terminalStatus(ev.Status) {
				return
			}
		}
	}
}

func terminalStatus(status string) bool {
	switch status {
	case models.RunStatusCompleted, models.RunStatusCancelled, models.RunStatusFailed:
		return true
	}
	return false
}
