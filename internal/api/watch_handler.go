package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"favorx-backend-go/internal/core"
	"favorx-backend-go/internal/identity"
	"favorx-backend-go/internal/metrics"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// WSMessage is one frame pushed to a live listener.
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// WatchHandler upgrades authenticated requests to websockets and pushes
// every change of the watched data until the client goes away.
type WatchHandler struct {
	watch    core.WatchService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewWatchHandler creates a WatchHandler. allowedOrigins is the comma
// separated CLIENT_URL list; an empty list accepts any origin.
func NewWatchHandler(watch core.WatchService, allowedOrigins string, logger *zap.Logger) *WatchHandler {
	var origins []string
	for _, o := range strings.Split(allowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return &WatchHandler{
		watch:  watch,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(origins) == 0 || origin == "" {
					return true
				}
				for _, o := range origins {
					if o == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Balance handles GET /ws/balance.
func (h *WatchHandler) Balance(c *gin.Context) {
	streamUpdates(c, h, "balance", h.watch.WatchBalance)
}

// OwnRequests handles GET /ws/requests/mine.
func (h *WatchHandler) OwnRequests(c *gin.Context) {
	streamUpdates(c, h, "requests.mine", h.watch.WatchOwnRequests)
}

// OpenRequests handles GET /ws/requests/open.
func (h *WatchHandler) OpenRequests(c *gin.Context) {
	streamUpdates(c, h, "requests.open", h.watch.WatchOpenRequests)
}

func streamUpdates[T any](c *gin.Context, h *WatchHandler, stream string, open func(context.Context, string) (<-chan T, error)) {
	uid := identity.UIDFromContext(c.Request.Context())
	if uid == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade websocket connection", zap.String("stream", stream), zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	updates, err := open(ctx, uid)
	if err != nil {
		h.logger.Error("Failed to open listener", zap.String("stream", stream), zap.String("uid", uid), zap.Error(err))
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "listener unavailable"),
			time.Now().Add(wsWriteWait))
		return
	}
	defer metrics.ListenerOpened(stream)()
	h.logger.Debug("Listener opened", zap.String("stream", stream), zap.String("uid", uid))

	// The client sends nothing but control frames; reading is how a
	// disconnect is noticed.
	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("Websocket read failed", zap.String("stream", stream), zap.Error(err))
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	msgType := strings.SplitN(stream, ".", 2)[0]
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-updates:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(WSMessage{Type: msgType, Data: v}); err != nil {
				h.logger.Debug("Websocket write failed", zap.String("stream", stream), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}
