package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/jewel_catalog/internal/models"
	"github.com/GTDGit/jewel_catalog/internal/service"
	"github.com/GTDGit/jewel_catalog/internal/utils"
)

// SequenceHandler exposes the identifier allocator to admin tools.
type SequenceHandler struct {
	sequences *service.SequenceService
}

// NewSequenceHandler creates a new SequenceHandler.
func NewSequenceHandler(sequences *service.SequenceService) *SequenceHandler {
	return &SequenceHandler{sequences: sequences}
}

// Next handles POST /v1/admin/sequences/:name/next
func (h *SequenceHandler) Next(c *gin.Context) {
	name := models.SequenceName(c.Param("name"))

	id, err := h.sequences.Next(c.Request.Context(), name)
	if err != nil {
		h.writeError(c, name, err)
		return
	}
	utils.Success(c, 201, "Identifier issued", gin.H{
		"sequence":   name,
		"identifier": id,
	})
}

// Reconcile handles POST /v1/admin/sequences/:name/reconcile
func (h *SequenceHandler) Reconcile(c *gin.Context) {
	name := models.SequenceName(c.Param("name"))

	highest, err := h.sequences.Reconcile(c.Request.Context(), name)
	if err != nil {
		h.writeError(c, name, err)
		return
	}
	utils.Success(c, 200, "Sequence reconciled", gin.H{
		"sequence": name,
		"highest":  highest,
	})
}

func (h *SequenceHandler) writeError(c *gin.Context, name models.SequenceName, err error) {
	switch {
	case errors.Is(err, utils.ErrUnknownSequence):
		utils.Error(c, 404, "UNKNOWN_SEQUENCE", "Unknown sequence")
	case errors.Is(err, utils.ErrSequenceContention):
		log.Warn().Err(err).Str("sequence", string(name)).Msg("Sequence allocation contended")
		utils.ErrorRetryable(c, 503, "SEQUENCE_CONTENTION", "Sequence is busy, retry shortly")
	default:
		log.Error().Err(err).Str("sequence", string(name)).Msg("Sequence allocation failed")
		utils.Error(c, 500, "INTERNAL_ERROR", "Failed to allocate identifier")
	}
}
