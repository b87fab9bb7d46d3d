// internal/handlers/auth.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/distro-backend/internal/i18n"
	"github.com/javajoker/distro-backend/internal/services"
	"github.com/javajoker/distro-backend/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	authResponse, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, "AuthHandler.Login", err)
		return
	}

	utils.MessageResponse(c, i18n.KeyAuthLoginSuccess, authResponse)
}

// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	user, err := h.authService.Me(c.Request.Context(), actor.ID)
	if err != nil {
		handleServiceError(c, "AuthHandler.Me", err)
		return
	}

	utils.SuccessResponse(c, user)
}
