package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/freemirror/yamdb-final/internal/microservices/http-api/dto"
	"github.com/freemirror/yamdb-final/internal/microservices/http-api/service"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRoutes mounts the auth endpoints. guards run before every handler
// (rate limiting in production).
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup, guards ...gin.HandlerFunc) {
	auth := rg.Group("/auth", guards...)
	auth.POST("/signup", h.Signup)
	auth.POST("/code", h.RequestCode)
	auth.POST("/token", h.Token)
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	resp, err := h.authService.Signup(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RequestCode mails a new confirmation code to an existing account.
func (h *AuthHandler) RequestCode(c *gin.Context) {
	var req dto.SignupRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	resp, err := h.authService.RequestCode(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if err := bindJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	resp, err := h.authService.Token(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
