package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"filmstack/internal/service"
)

// CatalogHandler exposes the stored building blocks: capital stacks and
// waterfall structures referenced by ID from execution requests.
type CatalogHandler struct {
	Catalog *service.CatalogService
}

func (h *CatalogHandler) Register(r *gin.Engine) {
	stacks := r.Group("/api/v1/stacks")
	stacks.POST("", h.createStack)
	stacks.GET("", h.listStacks)
	stacks.GET("/:id", h.getStack)

	waterfalls := r.Group("/api/v1/waterfalls")
	waterfalls.POST("", h.createWaterfall)
	waterfalls.GET("", h.listWaterfalls)
	waterfalls.GET("/:id", h.getWaterfall)
}

// @Summary Create a capital stack
// @Tags catalog
// @Accept json
// @Produce json
// @Param request body service.CreateStackRequest true "stack"
// @Success 200 {object} handler.apiResponse
// @Router /api/v1/stacks [post]
func (h *CatalogHandler) createStack(c *gin.Context) {
	var req service.CreateStackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	row, err := h.Catalog.CreateStack(c.Request.Context(), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, row, nil)
}

func (h *CatalogHandler) getStack(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	row, err := h.Catalog.GetStack(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	if row == nil {
		Error(c, http.StatusNotFound, "capital stack not found", nil)
		return
	}
	Ok(c, row, nil)
}

func (h *CatalogHandler) listStacks(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Catalog.ListStacks(c.Request.Context(), limit, offset)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, len(items)))
}

// @Summary Create a waterfall structure
// @Tags catalog
// @Accept json
// @Produce json
// @Param request body service.CreateWaterfallRequest true "waterfall"
// @Success 200 {object} handler.apiResponse
// @Router /api/v1/waterfalls [post]
func (h *CatalogHandler) createWaterfall(c *gin.Context) {
	var req service.CreateWaterfallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	row, err := h.Catalog.CreateWaterfall(c.Request.Context(), req)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, row, nil)
}

func (h *CatalogHandler) getWaterfall(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return
	}
	row, err := h.Catalog.GetWaterfall(c.Request.Context(), id)
	if err != nil {
		Fail(c, err)
		return
	}
	if row == nil {
		Error(c, http.StatusNotFound, "waterfall structure not found", nil)
		return
	}
	Ok(c, row, nil)
}

func (h *CatalogHandler) listWaterfalls(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	items, err := h.Catalog.ListWaterfalls(c.Request.Context(), limit, offset)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, paginationMeta(limit, offset, len(items)))
}
