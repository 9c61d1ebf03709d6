package service

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tourops/internal/apperr"
	"tourops/internal/logger"
	"tourops/internal/model"

	"go.uber.org/zap"
)

// SupplierStore — доступ к поставщикам, нужный реестру назначений.
type SupplierStore interface {
	GetByID(id int) (*model.Supplier, error)
	ListByStep(stepID int) ([]model.Supplier, error)
}

// AssignmentStore — доступ к назначениям поставщиков на шаги.
type AssignmentStore interface {
	Assign(stepID, supplierID int) (bool, error)
	Remove(stepID, supplierID int) (bool, error)
}

// TokenCanceller гасит открытый токен пары (шаг, поставщик).
type TokenCanceller interface {
	CancelOpen(stepID, supplierID int, now time.Time) error
}

// SnapshotStore обновляет денормализованный снимок поставщика на шаге.
type SnapshotStore interface {
	SetSupplierName(stepID int, name string) error
}

// AssignmentService — реестр назначений поставщиков: кто из поставщиков
// закреплен за каким шагом. Пара (шаг, поставщик) уникальна.
type AssignmentService struct {
	steps       StepStore
	snapshots   SnapshotStore
	suppliers   SupplierStore
	assignments AssignmentStore
	tokens      TokenCanceller
	access      *AccessService
	audit       *AuditService
}

// NewAssignmentService создает новый сервис назначений.
func NewAssignmentService(steps StepStore, snapshots SnapshotStore, suppliers SupplierStore,
	assignments AssignmentStore, tokens TokenCanceller, access *AccessService, audit *AuditService) *AssignmentService {
	return &AssignmentService{
		steps:       steps,
		snapshots:   snapshots,
		suppliers:   suppliers,
		assignments: assignments,
		tokens:      tokens,
		access:      access,
		audit:       audit,
	}
}

func (s *AssignmentService) getAuthorized(p Principal, stepID int) (*model.StepContext, error) {
	sc, err := s.steps.GetContext(stepID)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось получить шаг: %w", err)
	}
	if _, err := s.access.Authorize(p, sc.TenantID); err != nil {
		return nil, err
	}
	return sc, nil
}

// Assign назначает поставщика на шаг. Поставщик обязан принадлежать той же
// компании, что и шаг; чужой поставщик неотличим от несуществующего.
// Повторное назначение той же пары — конфликт.
func (s *AssignmentService) Assign(p Principal, stepID, supplierID int, reason string) error {
	sc, err := s.getAuthorized(p, stepID)
	if err != nil {
		return err
	}
	sup, err := s.suppliers.GetByID(supplierID)
	if err == sql.ErrNoRows {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("не удалось получить поставщика: %w", err)
	}
	if sup.TenantID != sc.TenantID {
		return apperr.ErrNotFound
	}

	created, err := s.assignments.Assign(stepID, supplierID)
	if err != nil {
		return err
	}
	if !created {
		return fmt.Errorf("%w: поставщик уже назначен на шаг", apperr.ErrConflict)
	}

	if sc.SupplierName == "" {
		if err := s.snapshots.SetSupplierName(stepID, sup.Name); err != nil {
			logger.L().Warn("не удалось обновить снимок поставщика", zap.Int("step_id", stepID), zap.Error(err))
		}
	}
	s.audit.SupplierAssigned(sc, sup.Name, reason, actorTag(p))
	logger.L().Info("поставщик назначен на шаг",
		zap.Int("step_id", stepID), zap.Int("supplier_id", supplierID), zap.String("actor", actorTag(p)))
	return nil
}

// Remove снимает поставщика с шага. Причина обязательна: отмена обязательств
// перед поставщиком должна быть объяснена. Открытый токен пары гасится,
// чтобы запоздалый ответ не воскресил связь.
func (s *AssignmentService) Remove(p Principal, stepID, supplierID int, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: требуется причина снятия поставщика", apperr.ErrValidation)
	}
	sc, err := s.getAuthorized(p, stepID)
	if err != nil {
		return err
	}
	sup, err := s.suppliers.GetByID(supplierID)
	if err == sql.ErrNoRows {
		return apperr.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("не удалось получить поставщика: %w", err)
	}

	removed, err := s.assignments.Remove(stepID, supplierID)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.ErrNotFound
	}

	if err := s.tokens.CancelOpen(stepID, supplierID, time.Now()); err != nil {
		logger.L().Warn("не удалось отозвать токен снятого поставщика",
			zap.Int("step_id", stepID), zap.Int("supplier_id", supplierID), zap.Error(err))
	}

	s.audit.SupplierRemoved(sc, sup.Name, reason, actorTag(p))

	// Если снятый поставщик был в снимке — пересчитываем снимок по оставшимся.
	if sc.SupplierName == sup.Name {
		newName := ""
		if rest, err := s.suppliers.ListByStep(stepID); err == nil && len(rest) > 0 {
			newName = rest[0].Name
		}
		if err := s.snapshots.SetSupplierName(stepID, newName); err != nil {
			logger.L().Warn("не удалось обновить снимок поставщика", zap.Int("step_id", stepID), zap.Error(err))
		} else {
			s.audit.SupplierChanged(sc, sup.Name, newName, actorTag(p))
		}
	}
	logger.L().Info("поставщик снят с шага",
		zap.Int("step_id", stepID), zap.Int("supplier_id", supplierID),
		zap.String("reason", reason), zap.String("actor", actorTag(p)))
	return nil
}
