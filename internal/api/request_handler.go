package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"favorx-backend-go/internal/core"
	"favorx-backend-go/internal/identity"
	"favorx-backend-go/internal/models"
)

// RequestHandler handles API endpoints related to favor requests.
type RequestHandler struct {
	reader core.ReadService
	writer core.WriteService
	logger *zap.Logger
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(reader core.ReadService, writer core.WriteService, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{reader: reader, writer: writer, logger: logger}
}

func requestList(requests []*models.Request) RequestListResponse {
	if requests == nil {
		requests = []*models.Request{}
	}
	return RequestListResponse{Requests: requests}
}

// ListOpen handles GET /requests/open: everything posted by other users.
func (h *RequestHandler) ListOpen(c *gin.Context) {
	c.JSON(http.StatusOK, requestList(h.reader.ReadOpenRequests(c.Request.Context())))
}

// ListMine handles GET /requests/mine.
func (h *RequestHandler) ListMine(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, requestList(h.reader.ReadRequestsOpenedByUser(ctx, identity.UIDFromContext(ctx))))
}

// ListMineActive handles GET /requests/mine/active.
func (h *RequestHandler) ListMineActive(c *gin.Context) {
	active := h.reader.ReadMyActiveRequests(c.Request.Context())
	if active == nil {
		active = []models.ActiveRequest{}
	}
	c.JSON(http.StatusOK, ActiveRequestListResponse{Requests: active})
}

// ListTaken handles GET /requests/taken.
func (h *RequestHandler) ListTaken(c *gin.Context) {
	ctx := c.Request.Context()
	c.JSON(http.StatusOK, requestList(h.reader.ReadTakenRequestsByUser(ctx, identity.UIDFromContext(ctx))))
}

// Create handles POST /requests.
func (h *RequestHandler) Create(c *gin.Context) {
	var req models.CreateRequestRequest
	if !bindJSON(c, &req) {
		return
	}
	created, err := h.writer.AddRequest(c.Request.Context(), req)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// Get handles GET /requests/:id.
func (h *RequestHandler) Get(c *gin.Context) {
	req, err := h.reader.GetRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// ChangeStatus handles POST /requests/:id/status.
func (h *RequestHandler) ChangeStatus(c *gin.Context) {
	var body models.ChangeStatusRequest
	if !bindJSON(c, &body) {
		return
	}
	updated, err := h.writer.ChangeRequestStatus(c.Request.Context(), c.Param("id"), body.Expected, body.Next)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// SetCaught handles POST /requests/:id/caught, the legacy take/release toggle.
func (h *RequestHandler) SetCaught(c *gin.Context) {
	var body models.SetCaughtRequest
	if !bindJSON(c, &body) {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.writer.SetRequestCaught(ctx, id, *body.Caught); err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	req, err := h.reader.GetRequest(ctx, id)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, req)
}
