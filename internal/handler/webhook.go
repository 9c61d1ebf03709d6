package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"tourops/internal/apperr"
	"tourops/internal/model"

	"github.com/gin-gonic/gin"
)

// chatEvent — входящее событие чат-платформы.
// type=start несет код привязки, type=button — решение по токену.
type chatEvent struct {
	Type   string `json:"type"`
	ChatID int64  `json:"chat_id"`
	Code   string `json:"code"`
	Action string `json:"action"` // accept | decline
	Token  string `json:"token"`
}

// ChatWebhook принимает события чат-бота: POST /webhook/chat.
// Секрет проверяется заголовком X-Webhook-Secret. После проверки секрета
// ответ всегда 200 — иначе платформа зашлет повторы; реальный исход
// сообщается человеку полем message, которое бот отправляет в чат.
func (h *Handler) ChatWebhook(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Webhook-Secret")
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{"ok": false})
			return
		}

		var ev chatEvent
		if err := c.ShouldBindJSON(&ev); err != nil {
			c.JSON(http.StatusOK, gin.H{"ok": false, "message": "Не удалось разобрать событие."})
			return
		}

		switch ev.Type {
		case "start":
			if _, err := h.Bind.BindChatIdentity(ev.Code, ev.ChatID); err != nil {
				c.JSON(http.StatusOK, gin.H{"ok": false, "message": bindFailureMessage(err)})
				return
			}
			c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Чат привязан. Заявки будут приходить сюда."})
		case "button":
			outcome, err := h.Resolve.Resolve(ev.Token, ev.Action, model.ChannelChat, &ev.ChatID)
			if err != nil {
				c.JSON(http.StatusOK, gin.H{"ok": false, "message": resolveFailureMessage(err)})
				return
			}
			c.JSON(http.StatusOK, gin.H{"ok": true, "message": outcome.Message})
		default:
			c.JSON(http.StatusOK, gin.H{"ok": false, "message": "Неизвестный тип события."})
		}
	}
}

// bindFailureMessage — человекочитаемый исход неудачной привязки.
func bindFailureMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "Код не найден. Запросите новый код у оператора."
	case errors.Is(err, apperr.ErrExpired):
		return "Код устарел. Запросите новый код у оператора."
	case errors.Is(err, apperr.ErrConflict):
		return "Этот чат уже привязан к другому поставщику."
	case errors.Is(err, apperr.ErrValidation):
		return "Отправьте код привязки после команды /start."
	}
	return "Не получилось привязать чат, попробуйте позже."
}

// resolveFailureMessage — человекочитаемый исход неудачного ответа по заявке.
func resolveFailureMessage(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "Заявка не найдена."
	case errors.Is(err, apperr.ErrExpired):
		return "Срок заявки истек. Дождитесь новой заявки."
	case errors.Is(err, apperr.ErrConflict):
		return "Ответ по этой заявке уже был дан."
	case errors.Is(err, apperr.ErrForbidden):
		return "Этот чат не привязан к поставщику заявки."
	case errors.Is(err, apperr.ErrValidation):
		return "Неизвестное действие."
	}
	return "Не получилось обработать ответ, попробуйте позже."
}
