package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/jewel_catalog/internal/middleware"
	"github.com/GTDGit/jewel_catalog/internal/models"
	"github.com/GTDGit/jewel_catalog/internal/service"
	"github.com/GTDGit/jewel_catalog/internal/utils"
)

// AdminDesignHandler handles admin endpoints for design visibility and synchronization.
type AdminDesignHandler struct {
	admin *service.DesignAdminService
	sync  *service.CatalogSyncService
}

// NewAdminDesignHandler constructs an AdminDesignHandler.
func NewAdminDesignHandler(admin *service.DesignAdminService, sync *service.CatalogSyncService) *AdminDesignHandler {
	return &AdminDesignHandler{admin: admin, sync: sync}
}

// ToggleDesignRequest is the optional body of the toggle endpoint.
// Omitting isActive flips the current visibility.
type ToggleDesignRequest struct {
	IsActive *bool `json:"isActive"`
}

// ListDesigns handles GET /v1/admin/designs
func (h *AdminDesignHandler) ListDesigns(c *gin.Context) {
	filter := models.DesignFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 50),
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if isActive := c.Query("isActive"); isActive != "" {
		active := isActive == "true"
		filter.IsActive = &active
	}

	designs, total, err := h.admin.ListDesigns(c.Request.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list designs")
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to retrieve designs")
		return
	}
	if designs == nil {
		designs = []models.Design{}
	}

	utils.SuccessWithPagination(c, 200, "Designs retrieved", designs, filter.Page, filter.Limit, total)
}

// ToggleDesign handles POST /v1/admin/designs/:designNo/toggle
func (h *AdminDesignHandler) ToggleDesign(c *gin.Context) {
	var req ToggleDesignRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
			return
		}
	}

	design, err := h.admin.ToggleDesign(c.Request.Context(), c.Param("designNo"), req.IsActive, middleware.Actor(c))
	if err != nil {
		if errors.Is(err, utils.ErrDesignNotFound) {
			utils.Error(c, 404, "DESIGN_NOT_FOUND", "Design not found")
			return
		}
		log.Error().Err(err).Str("design_no", c.Param("designNo")).Msg("Failed to toggle design")
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to toggle design")
		return
	}

	utils.Success(c, 200, "Design visibility updated", gin.H{
		"designNo": design.DesignNo,
		"isActive": design.IsActive,
	})
}

// SyncDesigns handles POST /v1/admin/designs/sync?force=true
func (h *AdminDesignHandler) SyncDesigns(c *gin.Context) {
	force := c.Query("force") == "true"

	stats, err := h.sync.SynchronizeDesigns(c.Request.Context(), force)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrSyncInProgress):
			utils.ErrorRetryable(c, 409, "SYNC_IN_PROGRESS", "A design sync is already running")
		case errors.Is(err, utils.ErrSyncFailed):
			utils.ErrorRetryable(c, 502, "SYNC_FAILED", "Design feed unavailable")
		default:
			utils.Error(c, 500, "INTERNAL_ERROR", "Design sync failed")
		}
		return
	}

	log.Info().Str("actor", middleware.Actor(c)).Bool("force", force).Msg("Design sync triggered by admin")
	utils.Success(c, 200, "Designs synchronized", stats)
}

// InvalidateCatalog handles POST /v1/admin/catalog/invalidate
func (h *AdminDesignHandler) InvalidateCatalog(c *gin.Context) {
	if err := h.admin.InvalidateCatalog(c.Request.Context(), middleware.Actor(c)); err != nil {
		log.Error().Err(err).Msg("Failed to invalidate catalog cache")
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to invalidate catalog cache")
		return
	}
	utils.Success(c, 200, "Catalog cache invalidated", nil)
}
