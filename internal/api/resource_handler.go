package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"favorx-backend-go/internal/core"
)

// ResourceHandler serves static assets such as map markers.
type ResourceHandler struct {
	resources core.ResourceService
	logger    *zap.Logger
}

func NewResourceHandler(resources core.ResourceService, logger *zap.Logger) *ResourceHandler {
	return &ResourceHandler{resources: resources, logger: logger}
}

// GetImage handles GET /resources/:id.
func (h *ResourceHandler) GetImage(c *gin.Context) {
	id := c.Param("id")
	image, err := h.resources.GetImage(c.Request.Context(), id)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.JSON(http.StatusOK, ResourceResponse{ID: id, Image: image})
}
