package service

import (
	"database/sql"
	"fmt"
	"time"

	"tourops/internal/apperr"
	"tourops/internal/logger"
	"tourops/internal/model"
	"tourops/internal/repository"

	"go.uber.org/zap"
)

// Решения поставщика, приходящие по ссылке или из чата.
const (
	DecisionAccept  = "accept"
	DecisionDecline = "decline"
)

// ResolveStore — доступ к токенам, нужный разрешению ответов.
type ResolveStore interface {
	GetByID(id string) (*model.RequestToken, error)
	ApplyDecision(tok *model.RequestToken, response, channel, toStatus string, now time.Time) (*repository.DecisionResult, error)
}

// SupplierGetter возвращает поставщика по идентификатору.
type SupplierGetter interface {
	GetByID(id int) (*model.Supplier, error)
}

// ResolveOutcome — исход успешного разрешения ответа.
type ResolveOutcome struct {
	// MovedOn: оператор уже перевел шаг сам; ответ записан, статус не менялся.
	MovedOn bool
	Message string
}

// ResolveService принимает ответ поставщика (принять/отклонить) по токену
// и применяет переход статуса шага. Обе входные поверхности — публичная
// ссылка и чат-бот — сходятся в методе Resolve.
type ResolveService struct {
	tokens    ResolveStore
	suppliers SupplierGetter
}

// NewResolveService создает новый сервис разрешения ответов.
func NewResolveService(tokens ResolveStore, suppliers SupplierGetter) *ResolveService {
	return &ResolveService{tokens: tokens, suppliers: suppliers}
}

// Resolve проверяет токен и применяет решение поставщика.
// Порядок проверок: токен существует → не просрочен → еще без ответа →
// для чата личность совпадает с привязанной. Принятие переводит шаг в
// "booked", отклонение — обратно в "not_booked"; актор перехода — "system".
// Запись ответа и перехода атомарна; проигравший гонку повторного ответа
// получает ErrConflict.
func (s *ResolveService) Resolve(tokenValue, decision, channel string, chatIdentity *int64) (*ResolveOutcome, error) {
	var response, toStatus string
	switch decision {
	case DecisionAccept:
		response, toStatus = model.ResponseAccepted, model.StepStatusBooked
	case DecisionDecline:
		response, toStatus = model.ResponseDeclined, model.StepStatusNotBooked
	default:
		return nil, fmt.Errorf("%w: неизвестное решение %q", apperr.ErrValidation, decision)
	}

	tok, err := s.tokens.GetByID(tokenValue)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось получить токен: %w", err)
	}

	now := time.Now()
	if tok.Expired(now) {
		return nil, apperr.ErrExpired
	}
	if tok.Response != nil {
		return nil, fmt.Errorf("%w: ответ по заявке уже дан", apperr.ErrConflict)
	}
	if channel == model.ChannelChat {
		sup, err := s.suppliers.GetByID(tok.SupplierID)
		if err != nil {
			return nil, fmt.Errorf("не удалось получить поставщика токена: %w", err)
		}
		if chatIdentity == nil || sup.ChatID == nil || *sup.ChatID != *chatIdentity {
			return nil, apperr.ErrForbidden
		}
	}

	res, err := s.tokens.ApplyDecision(tok, response, channel, toStatus, now)
	if err != nil {
		return nil, err
	}
	if !res.Applied {
		// Параллельный ответ успел первым.
		return nil, fmt.Errorf("%w: ответ по заявке уже дан", apperr.ErrConflict)
	}

	logger.L().Info("ответ поставщика обработан",
		zap.String("token", tok.ID), zap.String("decision", decision),
		zap.String("channel", channel), zap.Bool("moved_on", res.MovedOn))

	if res.MovedOn {
		return &ResolveOutcome{
			MovedOn: true,
			Message: "Ответ записан, но статус услуги уже был изменен оператором.",
		}, nil
	}
	if response == model.ResponseAccepted {
		return &ResolveOutcome{Message: "Спасибо! Услуга подтверждена."}, nil
	}
	return &ResolveOutcome{Message: "Ответ учтен: услуга отклонена."}, nil
}
