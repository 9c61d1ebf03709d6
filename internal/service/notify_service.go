package service

import (
	"fmt"
	"strings"

	"tourops/internal/logger"
	"tourops/internal/model"

	"go.uber.org/zap"
)

// SettingsStore — доступ к настройкам компании.
type SettingsStore interface {
	GetSettings(tenantID int) (*model.TenantSettings, error)
}

// EmailSender отправляет письмо. Транспорт — внешний коллаборатор.
type EmailSender interface {
	Send(to, subject, body string) error
}

// ChatSender отправляет сообщение в чат поставщика. Непустой token добавляет
// к сообщению кнопки "Принять" / "Отклонить", привязанные к этому токену.
type ChatSender interface {
	Send(chatID int64, text string, token string) error
}

// Встроенные шаблоны сообщений; переопределяются настройками компании.
const (
	defaultTmplRequest = "Здравствуйте, {supplier_name}!\n" +
		"Компания {tenant_name} просит подтвердить услугу «{step_title}» " +
		"по туру «{tour_name}» на {day_date}.\n{description}"
	defaultTmplBooked = "{supplier_name}, услуга «{step_title}» по туру «{tour_name}» " +
		"на {day_date} забронирована. Спасибо!"
	defaultTmplPaid = "{supplier_name}, услуга «{step_title}» по туру «{tour_name}» " +
		"на {day_date} оплачена."
)

// NotifyService — диспетчер уведомлений. Подписан на события переходов машины
// статусов и решает, кому и по каким каналам отправлять сообщения.
// Сбои отправки не валят вызвавшую операцию: каждая отправка повторяется
// один раз и затем отбрасывается — открытый токен позволит уведомить
// поставщика при следующем естественном поводе.
type NotifyService struct {
	suppliers SupplierStore
	tokens    *TokenService
	settings  SettingsStore
	email     EmailSender
	chat      ChatSender
	publicURL string
}

// NewNotifyService создает новый диспетчер уведомлений.
func NewNotifyService(suppliers SupplierStore, tokens *TokenService, settings SettingsStore,
	email EmailSender, chat ChatSender, publicURL string) *NotifyService {
	return &NotifyService{
		suppliers: suppliers,
		tokens:    tokens,
		settings:  settings,
		email:     email,
		chat:      chat,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Transition — реакция на реальный переход статуса шага.
func (s *NotifyService) Transition(sc *model.StepContext, from, to string) {
	switch to {
	case model.StepStatusAwaiting:
		s.EnsureRequests(sc)
	case model.StepStatusBooked, model.StepStatusPaid:
		s.sendStatusNotice(sc, to)
	}
}

// EnsureRequests рассылает заявки всем назначенным контактным поставщикам шага.
// Поставщик с уже открытым и отправленным токеном считается уведомленным
// и пропускается — повторных писем не будет.
func (s *NotifyService) EnsureRequests(sc *model.StepContext) {
	st, err := s.settings.GetSettings(sc.TenantID)
	if err != nil {
		logger.L().Warn("не удалось получить настройки компании", zap.Int("tenant_id", sc.TenantID), zap.Error(err))
		return
	}
	if !st.AutomationEnabled {
		return
	}
	suppliers, err := s.suppliers.ListByStep(sc.ID)
	if err != nil {
		logger.L().Warn("не удалось получить поставщиков шага", zap.Int("step_id", sc.ID), zap.Error(err))
		return
	}
	for i := range suppliers {
		sup := &suppliers[i]
		if !sup.Contactable() {
			continue
		}
		tok, created, err := s.tokens.EnsureOpenToken(sc.ID, sup.ID)
		if err != nil {
			logger.L().Warn("не удалось выпустить токен заявки",
				zap.Int("step_id", sc.ID), zap.Int("supplier_id", sup.ID), zap.Error(err))
			continue
		}
		if !created && tok.NotifiedAt != nil {
			// Открытый токен уже доставлен — поставщик уведомлен.
			continue
		}

		body := render(pick(st.TmplRequest, defaultTmplRequest), sc, sup.Name)
		sent := false
		if sup.Email != "" {
			link := fmt.Sprintf("%s/r/%s", s.publicURL, tok.ID)
			text := fmt.Sprintf("%s\n\nПодтвердить: %s/accept\nОтклонить: %s/decline", body, link, link)
			if s.trySend(func() error {
				return s.email.Send(sup.Email, "Заявка на подтверждение услуги", text)
			}) {
				sent = true
			}
		}
		if sup.ChatID != nil {
			if s.trySend(func() error { return s.chat.Send(*sup.ChatID, body, tok.ID) }) {
				sent = true
			}
		}
		if sent {
			if err := s.tokens.MarkNotified(tok.ID); err != nil {
				logger.L().Warn("не удалось отметить доставку токена", zap.String("token", tok.ID), zap.Error(err))
			}
		}
	}
}

// sendStatusNotice отправляет информационное сообщение (без кнопок и токена)
// всем назначенным контактным поставщикам при переходе в booked/paid.
func (s *NotifyService) sendStatusNotice(sc *model.StepContext, status string) {
	st, err := s.settings.GetSettings(sc.TenantID)
	if err != nil {
		logger.L().Warn("не удалось получить настройки компании", zap.Int("tenant_id", sc.TenantID), zap.Error(err))
		return
	}
	if !st.AutomationEnabled {
		return
	}
	var tmpl string
	switch status {
	case model.StepStatusBooked:
		if !st.NotifyBooked {
			return
		}
		tmpl = pick(st.TmplBooked, defaultTmplBooked)
	case model.StepStatusPaid:
		if !st.NotifyPaid {
			return
		}
		tmpl = pick(st.TmplPaid, defaultTmplPaid)
	default:
		return
	}

	suppliers, err := s.suppliers.ListByStep(sc.ID)
	if err != nil {
		logger.L().Warn("не удалось получить поставщиков шага", zap.Int("step_id", sc.ID), zap.Error(err))
		return
	}
	for i := range suppliers {
		sup := &suppliers[i]
		if !sup.Contactable() {
			continue
		}
		body := render(tmpl, sc, sup.Name)
		if sup.Email != "" {
			s.trySend(func() error { return s.email.Send(sup.Email, "Статус услуги изменен", body) })
		}
		if sup.ChatID != nil {
			s.trySend(func() error { return s.chat.Send(*sup.ChatID, body, "") })
		}
	}
}

// trySend выполняет отправку с одним синхронным повтором.
func (s *NotifyService) trySend(send func() error) bool {
	err := send()
	if err == nil {
		return true
	}
	logger.L().Warn("сбой отправки уведомления, повтор", zap.Error(err))
	if err = send(); err == nil {
		return true
	}
	logger.L().Error("уведомление не доставлено", zap.Error(err))
	return false
}

// render подставляет именованные поля в шаблон сообщения.
func render(tmpl string, sc *model.StepContext, supplierName string) string {
	return strings.NewReplacer(
		"{supplier_name}", supplierName,
		"{tenant_name}", sc.TenantName,
		"{tour_name}", sc.TourName,
		"{step_title}", sc.Title,
		"{day_date}", sc.DayDate,
		"{description}", sc.Description,
	).Replace(tmpl)
}

func pick(custom, fallback string) string {
	if strings.TrimSpace(custom) != "" {
		return custom
	}
	return fallback
}
