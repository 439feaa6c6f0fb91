package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gwin/internal/core/apperror"
	"gwin/internal/metadata"
)

// MetadataHandler exposes entity configurations.
type MetadataHandler struct {
	*BaseHandler
	registry *metadata.Registry
}

func NewMetadataHandler(base *BaseHandler, registry *metadata.Registry) *MetadataHandler {
	return &MetadataHandler{
		BaseHandler: base,
		registry:    registry,
	}
}

// ListEntities returns every built configuration.
// GET /api/v1/meta
func (h *MetadataHandler) ListEntities(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.List())
}

// GetEntity returns the configuration of one entity.
// GET /api/v1/meta/:name
func (h *MetadataHandler) GetEntity(c *gin.Context) {
	name := c.Param("name")
	def, ok := h.registry.Lookup(name)
	if !ok {
		h.Error(c, apperror.NewUnknownEntity(name))
		return
	}
	c.JSON(http.StatusOK, def)
}

// Menu returns the entities grouped by menu group.
// GET /api/v1/menu
func (h *MetadataHandler) Menu(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Menu())
}
