package main

import (
	"context"
	"log"

	"tourops/internal/config"
	"tourops/internal/handler"
	"tourops/internal/logger"
	"tourops/internal/metrics"
	"tourops/internal/notify"
	"tourops/internal/repository"
	"tourops/internal/service"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL драйвер
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

	// Выполняем миграции (если есть)
	if err := repository.ApplyMigrations(db, "migrations/*.sql"); err != nil {
		logger.L().Fatal("Не удалось применить миграции", zap.Error(err))
	}

	// Инициализируем репозитории
	userRepo := repository.NewUserRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	tourRepo := repository.NewTourRepository(db)
	stepRepo := repository.NewStepRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Каналы доставки: почта и чат, при отсутствии настроек заглушки.
	var email service.EmailSender = notify.NopEmailSender{}
	if cfg.SMTPAddr != "" {
		email = notify.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom)
	}
	var chat service.ChatSender = notify.NopChatSender{}
	if cfg.BotToken != "" {
		bot, botErr := tgbotapi.NewBotAPI(cfg.BotToken)
		if botErr != nil {
			logger.L().Warn("Бот недоступен, чат-канал отключен", zap.Error(botErr))
		} else {
			chat = notify.NewTelegramSender(bot)
		}
	}

	// Инициализируем сервисы
	accessService := service.NewAccessService(tenantRepo)
	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL)
	auditService := service.NewAuditService(auditRepo)
	tokenService := service.NewTokenService(tokenRepo, cfg.TokenTTL)
	notifyService := service.NewNotifyService(supplierRepo, tokenService, tenantRepo,
		email, chat, cfg.PublicURL)
	stepService := service.NewStepService(stepRepo, accessService, auditService, notifyService)
	assignmentService := service.NewAssignmentService(stepRepo, stepRepo, supplierRepo,
		assignmentRepo, tokenRepo, accessService, auditService)
	tourService := service.NewTourService(tourRepo, stepRepo, accessService)
	supplierService := service.NewSupplierService(supplierRepo, accessService)
	settingsService := service.NewSettingsService(tenantRepo, accessService)
	bindService := service.NewBindService(supplierRepo, tokenRepo, accessService, cfg.BindCodeTTL)
	resolveService := service.NewResolveService(tokenRepo, supplierRepo)
	activityService := service.NewActivityService(stepRepo, accessService, auditRepo, tokenRepo, assignmentRepo, supplierRepo)
	adminService := service.NewAdminService(userRepo, tenantRepo)

	// Фоновый пересчет счетчиков открытых и просроченных запросов.
	sweep := service.NewSweepService(tokenRepo, stepRepo, cfg.SweepInterval)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweep.Run(ctx)

	// Создаем Handler и регистрируем маршруты
	h := &handler.Handler{
		Auth:        authService,
		Access:      accessService,
		Tours:       tourService,
		Steps:       stepService,
		Assignments: assignmentService,
		Suppliers:   supplierService,
		Settings:    settingsService,
		Bind:        bindService,
		Resolve:     resolveService,
		Activity:    activityService,
		Admin:       adminService,
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), metrics.Middleware())
	h.RegisterRoutes(router, cfg.HookSecret)

	// Health-check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", metrics.Handler())

	logger.L().Info("Запуск HTTP-сервера", zap.String("port", cfg.APIPort))
	if err := router.Run(":" + cfg.APIPort); err != nil {
		logger.L().Fatal("Ошибка запуска сервера", zap.Error(err))
	}
}
