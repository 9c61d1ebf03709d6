package service

import (
	"fmt"
	"sort"
	"time"

	"tourops/internal/logger"
	"tourops/internal/model"

	"go.uber.org/zap"
)

// ActivityTokenStore — чтение токенов шага для ленты активности.
type ActivityTokenStore interface {
	ListByStep(stepID int) ([]model.RequestToken, error)
}

// AssignmentReader — чтение текущих назначений шага для ленты активности.
type AssignmentReader interface {
	ListByStep(stepID int) ([]model.StepSupplier, error)
}

// ActivityItem — одна строка человекочитаемой ленты активности шага.
type ActivityItem struct {
	Time    time.Time `json:"time"`
	Kind    string    `json:"kind"` // audit | status | assignment | request
	Summary string    `json:"summary"`
	Actor   string    `json:"actor,omitempty"`
}

// ActivityService отдает журнал аудита шага и сводную ленту активности.
// Лента склеивает аудит, лог статусов, назначения поставщиков и заявки
// в один отсортированный по времени список; отказ любого источника не рушит
// остальные — лента строится из того, что удалось прочитать.
type ActivityService struct {
	steps       StepStore
	access      *AccessService
	audit       AuditStore
	tokens      ActivityTokenStore
	assignments AssignmentReader
	suppliers   SupplierStore
}

// NewActivityService создает новый сервис ленты активности.
func NewActivityService(steps StepStore, access *AccessService, audit AuditStore,
	tokens ActivityTokenStore, assignments AssignmentReader, suppliers SupplierStore) *ActivityService {
	return &ActivityService{
		steps:       steps,
		access:      access,
		audit:       audit,
		tokens:      tokens,
		assignments: assignments,
		suppliers:   suppliers,
	}
}

func (s *ActivityService) authorize(p Principal, stepID int) error {
	sc, err := s.steps.GetContext(stepID)
	if err != nil {
		return maskNotFound(err)
	}
	_, err = s.access.Authorize(p, sc.TenantID)
	return err
}

// Events возвращает события аудита шага, новые первыми.
func (s *ActivityService) Events(p Principal, stepID, limit int) ([]model.AuditEvent, error) {
	if err := s.authorize(p, stepID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.audit.ListByStep(stepID, limit)
}

// Timeline возвращает сводную ленту активности шага, новые записи первыми.
func (s *ActivityService) Timeline(p Principal, stepID, limit int) ([]ActivityItem, error) {
	if err := s.authorize(p, stepID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	items := []ActivityItem{}
	seen := map[string]bool{}

	names := map[int]string{}
	if suppliers, err := s.suppliers.ListByStep(stepID); err == nil {
		for _, sup := range suppliers {
			names[sup.ID] = sup.Name
		}
	} else {
		logger.L().Warn("лента: поставщики шага недоступны", zap.Int("step_id", stepID), zap.Error(err))
	}

	if events, err := s.audit.ListByStep(stepID, limit); err == nil {
		for _, ev := range events {
			items = append(items, ActivityItem{
				Time:    ev.CreatedAt,
				Kind:    "audit",
				Summary: auditSummary(&ev),
				Actor:   ev.Actor,
			})
			switch ev.Action {
			case model.AuditStatusChanged:
				seen[statusKey(ev.OldValue, ev.NewValue, ev.CreatedAt)] = true
			case model.AuditSupplierAdded:
				seen[assignKey(ev.NewValue, ev.CreatedAt)] = true
			}
		}
	} else {
		logger.L().Warn("лента: журнал аудита недоступен", zap.Int("step_id", stepID), zap.Error(err))
	}

	if rows, err := s.audit.ListStatusLog(stepID); err == nil {
		for _, l := range rows {
			// Строки лога, продублированные событием аудита, не повторяем.
			if seen[statusKey(l.OldStatus, l.NewStatus, l.CreatedAt)] {
				continue
			}
			items = append(items, ActivityItem{
				Time:    l.CreatedAt,
				Kind:    "status",
				Summary: fmt.Sprintf("статус: %s → %s", l.OldStatus, l.NewStatus),
				Actor:   l.Actor,
			})
		}
	} else {
		logger.L().Warn("лента: лог статусов недоступен", zap.Int("step_id", stepID), zap.Error(err))
	}

	if rows, err := s.assignments.ListByStep(stepID); err == nil {
		for _, a := range rows {
			name := names[a.SupplierID]
			if name == "" {
				name = fmt.Sprintf("поставщик #%d", a.SupplierID)
			}
			// Назначения, продублированные событием аудита, не повторяем.
			if seen[assignKey(name, a.CreatedAt)] {
				continue
			}
			items = append(items, ActivityItem{
				Time:    a.CreatedAt,
				Kind:    "assignment",
				Summary: fmt.Sprintf("назначен поставщик: %s", name),
			})
		}
	} else {
		logger.L().Warn("лента: назначения шага недоступны", zap.Int("step_id", stepID), zap.Error(err))
	}

	if tokens, err := s.tokens.ListByStep(stepID); err == nil {
		for _, tok := range tokens {
			name := names[tok.SupplierID]
			if name == "" {
				name = fmt.Sprintf("поставщик #%d", tok.SupplierID)
			}
			items = append(items, ActivityItem{
				Time:    tok.IssuedAt,
				Kind:    "request",
				Summary: fmt.Sprintf("заявка отправлена: %s", name),
			})
			if tok.Response != nil && tok.RespondedAt != nil {
				items = append(items, ActivityItem{
					Time:    *tok.RespondedAt,
					Kind:    "request",
					Summary: fmt.Sprintf("ответ %s: %s", name, *tok.Response),
					Actor:   model.ActorSystem,
				})
			}
		}
	} else {
		logger.L().Warn("лента: токены шага недоступны", zap.Int("step_id", stepID), zap.Error(err))
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].Time.After(items[j].Time) })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// statusKey — ключ дедупликации смены статуса с точностью до секунды.
func statusKey(from, to string, at time.Time) string {
	return fmt.Sprintf("%s>%s@%d", from, to, at.Unix())
}

// assignKey — ключ дедупликации назначения поставщика с точностью до секунды.
func assignKey(name string, at time.Time) string {
	return fmt.Sprintf("+%s@%d", name, at.Unix())
}

func auditSummary(ev *model.AuditEvent) string {
	switch ev.Action {
	case model.AuditStatusChanged:
		return fmt.Sprintf("статус: %s → %s", ev.OldValue, ev.NewValue)
	case model.AuditSupplierAdded:
		return fmt.Sprintf("назначен поставщик: %s", ev.NewValue)
	case model.AuditSupplierRemoved:
		return fmt.Sprintf("снят поставщик: %s (%s)", ev.OldValue, ev.Meta.Reason)
	case model.AuditSupplierChanged:
		return fmt.Sprintf("поставщик изменен: %s → %s", ev.OldValue, ev.NewValue)
	}
	return ev.Action
}
