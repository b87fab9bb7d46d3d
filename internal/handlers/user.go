// internal/handlers/user.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/distro-backend/internal/i18n"
	"github.com/javajoker/distro-backend/internal/models"
	"github.com/javajoker/distro-backend/internal/services"
	"github.com/javajoker/distro-backend/internal/utils"
)

type UserHandler struct {
	userService  *services.UserService
	statsService *services.StatsService
}

func NewUserHandler(userService *services.UserService, statsService *services.StatsService) *UserHandler {
	return &UserHandler{
		userService:  userService,
		statsService: statsService,
	}
}

// POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), actor, &req)
	if err != nil {
		handleServiceError(c, "UserHandler.CreateUser", err)
		return
	}

	utils.CreatedResponse(c, i18n.KeyUserCreated, user)
}

// GET /users?role=dealer
func (h *UserHandler) ListUsers(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var role *models.Role
	if raw := c.Query("role"); raw != "" {
		parsed, valid := models.ParseRole(raw)
		if !valid {
			utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "role"), nil)
			return
		}
		role = &parsed
	}

	users, err := h.userService.ListUsers(c.Request.Context(), actor, role)
	if err != nil {
		handleServiceError(c, "UserHandler.ListUsers", err)
		return
	}

	utils.SuccessResponse(c, users)
}

// GET /users/stats/roles
func (h *UserHandler) RoleStats(c *gin.Context) {
	counts, err := h.statsService.RoleCounts(c.Request.Context())
	if err != nil {
		handleServiceError(c, "UserHandler.RoleStats", err)
		return
	}

	utils.SuccessResponse(c, counts)
}
