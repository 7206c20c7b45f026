package handlers

import (
	"errors"
	"net/http"

	"inspection-backend/internal/models"
	"inspection-backend/internal/workflow"

	"github.com/gin-gonic/gin"
)

// currentActor извлекает идентификатор и роль пользователя, положенные
// в контекст JWT middleware
func currentActor(c *gin.Context) (uint, models.UserRole) {
	userID, _ := c.Get("user_id")
	role, _ := c.Get("role")

	id, _ := userID.(uint)
	roleStr, _ := role.(string)
	return id, models.UserRole(roleStr)
}

// abortWorkflowError отображает ошибку жизненного цикла в HTTP-код:
// запрет роли — 403, конфликт статуса — 409, отсутствие записи — 404,
// неверный ввод — 400, сбой внешнего сервиса — 502.
func abortWorkflowError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workflow.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, workflow.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, workflow.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, workflow.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, workflow.ErrUpstream):
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{"error": message})
}
