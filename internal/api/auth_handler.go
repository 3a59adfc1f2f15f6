package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"favorx-backend-go/internal/core"
	"favorx-backend-go/internal/identity"
	"favorx-backend-go/internal/models"
)

// AuthHandler handles sign-up and sign-in endpoints. None of them require a token.
type AuthHandler struct {
	reader    core.ReadService
	writer    core.WriteService
	validator *core.Validator
	logger    *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(reader core.ReadService, writer core.WriteService, validator *core.Validator, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{reader: reader, writer: writer, validator: validator, logger: logger}
}

// SignUp handles POST /auth/signup.
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req models.SignUpRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.writer.SignUp(c.Request.Context(), req)
	if err != nil {
		mapErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, SignUpResponse{Success: true, Message: "Sign-up successful", User: user})
}

// Validate handles POST /auth/validate. It runs the sign-up checks without
// creating anything so that a form can show every message at once.
func (h *AuthHandler) Validate(c *gin.Context) {
	var req models.SignUpRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.validator.ValidateSignUpInput(c.Request.Context(), req))
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result := h.reader.LoginWithPassword(c.Request.Context(), req.Email, req.Password)
	if !result.Success {
		c.JSON(http.StatusUnauthorized, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Federated handles POST /auth/federated for Google and Facebook credentials.
func (h *AuthHandler) Federated(c *gin.Context) {
	var req models.FederatedLoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.writer.SignInWithFederated(c.Request.Context(), req.Provider, req.Credential)
	switch {
	case err == nil:
		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		c.JSON(status, result)
	case errors.Is(err, identity.ErrInvalidCredentials) && result != nil:
		c.JSON(http.StatusUnauthorized, result)
	case errors.Is(err, core.ErrEmailRegistered) && result != nil:
		c.JSON(http.StatusConflict, result)
	default:
		mapErrorToStatus(c, h.logger, err)
	}
}
