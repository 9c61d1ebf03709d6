package service

import (
	"database/sql"
	"fmt"

	"tourops/internal/apperr"
	"tourops/internal/model"
)

// StepStore — доступ к шагам, нужный машине статусов.
type StepStore interface {
	GetContext(stepID int) (*model.StepContext, error)
	UpdateStatus(stepID int, status string) error
}

// Notifier получает события переходов статуса. Сама машина статусов побочных
// эффектов не имеет: решать, что и кому отправлять, — дело диспетчера.
type Notifier interface {
	Transition(sc *model.StepContext, from, to string)
	EnsureRequests(sc *model.StepContext)
}

// Допустимые переходы машины статусов шага.
var stepTransitions = map[string][]string{
	model.StepStatusNotBooked: {model.StepStatusAwaiting},
	model.StepStatusAwaiting:  {model.StepStatusBooked, model.StepStatusNotBooked},
	model.StepStatusBooked:    {model.StepStatusPaid},
	model.StepStatusPaid:      {},
}

func transitionAllowed(from, to string) bool {
	for _, t := range stepTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// StepService реализует машину статусов шага с проверкой доступа и аудитом.
type StepService struct {
	steps    StepStore
	access   *AccessService
	audit    *AuditService
	notifier Notifier
}

// NewStepService создает новый сервис шагов.
func NewStepService(steps StepStore, access *AccessService, audit *AuditService, notifier Notifier) *StepService {
	return &StepService{steps: steps, access: access, audit: audit, notifier: notifier}
}

// getAuthorized возвращает контекст шага после проверки доступа.
// Чужой или несуществующий шаг неразличимы: обе ситуации — ErrNotFound.
func (s *StepService) getAuthorized(p Principal, stepID int) (*model.StepContext, string, error) {
	sc, err := s.steps.GetContext(stepID)
	if err == sql.ErrNoRows {
		return nil, "", apperr.ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("не удалось получить шаг: %w", err)
	}
	role, err := s.access.Authorize(p, sc.TenantID)
	if err != nil {
		return nil, "", err
	}
	return sc, role, nil
}

// Get возвращает шаг с принадлежностью после проверки доступа.
func (s *StepService) Get(p Principal, stepID int) (*model.StepContext, error) {
	sc, _, err := s.getAuthorized(p, stepID)
	return sc, err
}

// SetStatus переводит шаг в целевой статус. Правила:
//   - переход должен существовать в графе статусов, иначе ErrValidation;
//   - в "paid" переводит только оператор (или админ), для агента — ErrForbidden;
//   - реальный переход пишет аудит и лог статусов и, если silent не задан,
//     отдает событие диспетчеру уведомлений;
//   - повторная установка "awaiting_confirmation" — пустой переход, который
//     тем не менее дорассылает заявки поставщикам без открытых токенов.
func (s *StepService) SetStatus(p Principal, stepID int, target, reason string, silent bool) error {
	if !model.ValidStepStatus(target) {
		return fmt.Errorf("%w: недопустимый статус %q", apperr.ErrValidation, target)
	}
	sc, role, err := s.getAuthorized(p, stepID)
	if err != nil {
		return err
	}
	from := sc.Status

	if target == model.StepStatusPaid && role != model.MembershipRoleOperator {
		return apperr.ErrForbidden
	}

	if from == target {
		if target == model.StepStatusAwaiting {
			// Статус не меняется, но заявки для новых поставщиков должны уйти.
			s.notifier.EnsureRequests(sc)
		}
		return nil
	}

	if !transitionAllowed(from, target) {
		return fmt.Errorf("%w: переход %s -> %s невозможен", apperr.ErrValidation, from, target)
	}

	if err := s.steps.UpdateStatus(stepID, target); err != nil {
		return err
	}
	s.audit.StatusChanged(sc, from, target, reason, actorTag(p))
	if !silent {
		s.notifier.Transition(sc, from, target)
	}
	return nil
}

// EnsureRequests дорассылает заявки поставщикам шага, у которых еще нет
// открытого токена. Отдельная операция: это запрос "уведомить новых
// назначенных", а не смена статуса.
func (s *StepService) EnsureRequests(p Principal, stepID int) error {
	sc, _, err := s.getAuthorized(p, stepID)
	if err != nil {
		return err
	}
	if sc.Status != model.StepStatusAwaiting {
		return fmt.Errorf("%w: шаг не ждет подтверждения", apperr.ErrValidation)
	}
	s.notifier.EnsureRequests(sc)
	return nil
}

// actorTag возвращает метку действующего лица для журнала аудита.
func actorTag(p Principal) string {
	return fmt.Sprintf("user:%d", p.UserID)
}
