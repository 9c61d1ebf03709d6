package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender отправляет сообщения поставщикам через Telegram.
type TelegramSender struct {
	bot *tgbotapi.BotAPI
}

// NewTelegramSender создает отправителя сообщений в Telegram.
func NewTelegramSender(bot *tgbotapi.BotAPI) *TelegramSender {
	return &TelegramSender{bot: bot}
}

// Send отправляет текст в чат. Непустой token добавляет к сообщению кнопки
// "Принять" и "Отклонить", несущие токен в callback-данных.
func (s *TelegramSender) Send(chatID int64, text string, token string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if token != "" {
		btnAccept := tgbotapi.NewInlineKeyboardButtonData("✔ Принять", "ACCEPT_"+token)
		btnDecline := tgbotapi.NewInlineKeyboardButtonData("✖ Отклонить", "DECLINE_"+token)
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(btnAccept, btnDecline))
	}
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("не удалось отправить сообщение в чат: %w", err)
	}
	return nil
}

// NopChatSender используется без настроенного бота: сообщает об этом ошибкой.
type NopChatSender struct{}

// Send всегда возвращает ошибку "чат не настроен".
func (NopChatSender) Send(chatID int64, text string, token string) error {
	return fmt.Errorf("чат-транспорт не настроен (BOT_TOKEN пуст)")
}
