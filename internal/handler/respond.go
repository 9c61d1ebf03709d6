package handler

import (
	"errors"
	"net/http"

	"tourops/internal/apperr"
	"tourops/internal/model"

	"github.com/gin-gonic/gin"
)

// RespondByLink — публичная точка ответа поставщика по ссылке из письма:
// GET /r/:token/:decision. Без авторизации: токен сам является пропуском.
// Повторный клик безопасен (409), клик по истекшей ссылке — 410.
func (h *Handler) RespondByLink(c *gin.Context) {
	token := c.Param("token")
	decision := c.Param("decision")

	outcome, err := h.Resolve.Resolve(token, decision, model.ChannelLink, nil)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "Заявка не найдена."})
		case errors.Is(err, apperr.ErrExpired):
			c.JSON(http.StatusGone, gin.H{"message": "Срок действия ссылки истек. Запросите новую заявку."})
		case errors.Is(err, apperr.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{"message": "Ответ по этой заявке уже был дан."})
		case errors.Is(err, apperr.ErrValidation):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "Неизвестное действие."})
		default:
			writeError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": outcome.Message, "moved_on": outcome.MovedOn})
}
