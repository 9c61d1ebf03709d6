package main

import (
	"errors"
	"log"
	"strings"

	"tourops/internal/apperr"
	"tourops/internal/config"
	"tourops/internal/logger"
	"tourops/internal/model"
	"tourops/internal/repository"
	"tourops/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Не удалось загрузить конфигурацию: %v", err)
	}
	if err := logger.Init(cfg.LogLevel, cfg.Env); err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer logger.Sync()

	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		logger.L().Fatal("Не удалось подключиться к базе данных", zap.Error(err))
	}

	// Инициализация репозиториев и сервисов
	tenantRepo := repository.NewTenantRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	tokenRepo := repository.NewTokenRepository(db)

	accessService := service.NewAccessService(tenantRepo)
	bindService := service.NewBindService(supplierRepo, tokenRepo, accessService, cfg.BindCodeTTL)
	resolveService := service.NewResolveService(tokenRepo, supplierRepo)

	// Инициализация Telegram Bot API
	if cfg.BotToken == "" {
		logger.L().Fatal("Не указан токен бота (BOT_TOKEN)")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.L().Fatal("Ошибка инициализации бота", zap.Error(err))
	}
	logger.L().Info("Запущен бот", zap.String("username", bot.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := bot.GetUpdatesChan(u)

	for update := range updates {
		// --- CallbackQuery (inline buttons) ---
		if cq := update.CallbackQuery; cq != nil {
			bot.Request(tgbotapi.NewCallback(cq.ID, ""))

			chatID := cq.Message.Chat.ID
			data := cq.Data

			switch {
			// Принять заявку
			case strings.HasPrefix(data, "ACCEPT_"):
				token := strings.TrimPrefix(data, "ACCEPT_")
				outcome, err := resolveService.Resolve(token, service.DecisionAccept, model.ChannelChat, &chatID)
				if err != nil {
					bot.Send(tgbotapi.NewMessage(chatID, resolveFailureText(err)))
				} else {
					bot.Send(tgbotapi.NewMessage(chatID, outcome.Message))
				}

			// Отклонить заявку
			case strings.HasPrefix(data, "DECLINE_"):
				token := strings.TrimPrefix(data, "DECLINE_")
				outcome, err := resolveService.Resolve(token, service.DecisionDecline, model.ChannelChat, &chatID)
				if err != nil {
					bot.Send(tgbotapi.NewMessage(chatID, resolveFailureText(err)))
				} else {
					bot.Send(tgbotapi.NewMessage(chatID, outcome.Message))
				}
			}

			continue
		}

		// --- Обычные сообщения ---
		if update.Message == nil {
			continue
		}
		msg := update.Message
		chatID := msg.Chat.ID

		if !msg.IsCommand() {
			bot.Send(tgbotapi.NewMessage(chatID, "Для привязки чата отправьте: /start <код>"))
			continue
		}

		switch msg.Command() {
		case "start":
			code := strings.TrimSpace(msg.CommandArguments())
			if code == "" {
				bot.Send(tgbotapi.NewMessage(chatID, "Отправьте код привязки после команды /start."))
				continue
			}
			if _, err := bindService.BindChatIdentity(code, chatID); err != nil {
				bot.Send(tgbotapi.NewMessage(chatID, bindFailureText(err)))
			} else {
				bot.Send(tgbotapi.NewMessage(chatID, "Чат привязан. Заявки будут приходить сюда."))
			}

		case "help":
			bot.Send(tgbotapi.NewMessage(chatID,
				"Бот присылает заявки по шагам туров. Отвечайте кнопками под заявкой.\n"+
					"Привязка чата: /start <код>"))

		default:
			bot.Send(tgbotapi.NewMessage(chatID, "Неизвестная команда. Доступно: /start <код>, /help"))
		}
	}
}

// bindFailureText — текст для поставщика при неудачной привязке чата.
func bindFailureText(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "Код не найден. Запросите новый код у оператора."
	case errors.Is(err, apperr.ErrExpired):
		return "Код устарел. Запросите новый код у оператора."
	case errors.Is(err, apperr.ErrConflict):
		return "Этот чат уже привязан к другому поставщику."
	}
	return "Не получилось привязать чат, попробуйте позже."
}

// resolveFailureText — текст для поставщика при неудачном ответе по заявке.
func resolveFailureText(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "Заявка не найдена."
	case errors.Is(err, apperr.ErrExpired):
		return "Срок заявки истек. Дождитесь новой заявки."
	case errors.Is(err, apperr.ErrConflict):
		return "Ответ по этой заявке уже был дан."
	case errors.Is(err, apperr.ErrForbidden):
		return "Этот чат не привязан к поставщику заявки."
	}
	return "Не получилось обработать ответ, попробуйте позже."
}
