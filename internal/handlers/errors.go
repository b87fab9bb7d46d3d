// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/distro-backend/internal/i18n"
	"github.com/javajoker/distro-backend/internal/logger"
	"github.com/javajoker/distro-backend/internal/services"
	"github.com/javajoker/distro-backend/internal/utils"
)

// handleServiceError maps service errors onto the response envelope.
func handleServiceError(c *gin.Context, funcName string, err error) {
	var stockErr *services.InsufficientStockError

	switch {
	case errors.As(err, &stockErr):
		utils.ErrorResponse(c, http.StatusBadRequest, "INSUFFICIENT_STOCK", stockErr.Error(), stockErr)
	case errors.Is(err, services.ErrValidation):
		if details := utils.GetValidationErrors(err); len(details) > 0 {
			utils.ValidationErrorResponse(c, details)
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, services.ErrInvalidState):
		utils.ErrorResponse(c, http.StatusBadRequest, "INVALID_STATE", err.Error(), nil)
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, err.Error())
	case errors.Is(err, services.ErrUnauthenticated):
		utils.UnauthorizedResponse(c, err.Error())
	case errors.Is(err, services.ErrConflict):
		utils.ConflictResponse(c, err.Error())
	default:
		logger.LogError("handlers", funcName, c.Request.Method+" "+c.Request.URL.Path, c.Params, err)
		utils.InternalErrorResponse(c)
	}
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}

// bindOptionalJSON accepts an empty body for endpoints whose payload is only optional notes.
func bindOptionalJSON(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, req)
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, name), nil)
		return uuid.Nil, false
	}
	return id, true
}

func currentActor(c *gin.Context) (services.Actor, bool) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return services.Actor{}, false
	}
	role, ok := utils.GetRoleFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return services.Actor{}, false
	}
	return services.Actor{ID: userID, Role: role}, true
}
