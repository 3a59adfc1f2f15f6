package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"favorx-backend-go/internal/identity"
)

// ErrorResponse is a local definition for sending standardized error messages.
// It mirrors the one in internal/api/dto_models.go to avoid import cycles.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Keys under which the authenticated principal is stored in the gin context.
const (
	ContextUserID    = "userID"
	ContextUserEmail = "userEmail"
)

// AuthMiddleware authenticates requests with the ID token issued by the auth provider.
type AuthMiddleware struct {
	provider identity.Provider
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
// It panics if provider is nil, as authenticated routes cannot work without it.
func NewAuthMiddleware(provider identity.Provider, logger *zap.Logger) *AuthMiddleware {
	if provider == nil {
		panic("identity provider is not initialized for AuthMiddleware")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{provider: provider, logger: logger}
}

// VerifyToken verifies the ID token from the Authorization header and stores
// the principal both in the gin context and in the request context. WebSocket
// clients that cannot set headers may pass the token as the token query parameter.
func (m *AuthMiddleware) VerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		idToken, err := bearerToken(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
			return
		}

		principal, err := m.provider.VerifyIDToken(c.Request.Context(), idToken)
		if err != nil {
			m.logger.Debug("Rejected ID token", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired authentication token"})
			return
		}

		c.Request = c.Request.WithContext(identity.WithPrincipal(c.Request.Context(), principal))
		c.Set(ContextUserID, principal.UID)
		if principal.Email != "" {
			c.Set(ContextUserEmail, principal.Email)
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("token"); token != "" && isWebSocketUpgrade(c.Request) {
			return token, nil
		}
		return "", errors.New("Authorization header is required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("Authorization header format must be 'Bearer {token}'")
	}
	return parts[1], nil
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
