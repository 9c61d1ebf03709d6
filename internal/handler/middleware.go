package handler

import (
	"errors"
	"net/http"
	"strings"

	"tourops/internal/apperr"
	"tourops/internal/logger"
	"tourops/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const principalKey = "principal"

// RequireAuth проверяет JWT в заголовке Authorization и кладет действующее
// лицо в контекст запроса.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "требуется токен авторизации"})
			return
		}
		p, err := h.Auth.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "недействительный токен"})
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// principal возвращает действующее лицо запроса из контекста.
func principal(c *gin.Context) service.Principal {
	p, _ := c.Get(principalKey)
	if pr, ok := p.(service.Principal); ok {
		return pr
	}
	return service.Principal{}
}

// writeError переводит категорию ошибки в HTTP-код.
// Формулировка категории уходит клиенту, детали остаются в логе.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "не найдено"})
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "доступ запрещен"})
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrExpired):
		c.JSON(http.StatusGone, gin.H{"error": "срок действия истек"})
	case errors.Is(err, apperr.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		logger.L().Error("внутренняя ошибка запроса", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка"})
	}
}
