package service

import (
	"time"

	"tourops/internal/logger"
	"tourops/internal/model"

	"go.uber.org/zap"
)

// AuditStore — запись и чтение журнала аудита и лога статусов.
type AuditStore interface {
	Insert(ev *model.AuditEvent) error
	InsertStatusLog(l *model.StepStatusLog) error
	ListByStep(stepID, limit int) ([]model.AuditEvent, error)
	ListStatusLog(stepID int) ([]model.StepStatusLog, error)
}

// AuditService пишет журнал аудита в режиме "записал и забыл": сбой записи
// логируется, но никогда не валит вызвавшую бизнес-операцию.
// Исключение — атомарная запись внутри разрешения ответа поставщика,
// которая выполняется транзакцией в хранилище токенов, минуя этот сервис.
type AuditService struct {
	store AuditStore
}

// NewAuditService создает новый сервис аудита.
func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// StatusChanged фиксирует смену статуса шага в журнале аудита и логе статусов.
func (s *AuditService) StatusChanged(sc *model.StepContext, from, to, reason, actor string) {
	now := time.Now()
	s.record(&model.AuditEvent{
		TenantID:  sc.TenantID,
		TourID:    sc.TourID,
		StepID:    sc.ID,
		Action:    model.AuditStatusChanged,
		OldValue:  from,
		NewValue:  to,
		Meta:      model.AuditMeta{Reason: reason},
		Actor:     actor,
		CreatedAt: now,
	})
	if err := s.store.InsertStatusLog(&model.StepStatusLog{
		StepID:    sc.ID,
		OldStatus: from,
		NewStatus: to,
		Actor:     actor,
		Reason:    reason,
		CreatedAt: now,
	}); err != nil {
		logger.L().Warn("не удалось записать лог статусов", zap.Int("step_id", sc.ID), zap.Error(err))
	}
}

// SupplierAssigned фиксирует назначение поставщика на шаг.
func (s *AuditService) SupplierAssigned(sc *model.StepContext, supplierName, reason, actor string) {
	s.record(&model.AuditEvent{
		TenantID:  sc.TenantID,
		TourID:    sc.TourID,
		StepID:    sc.ID,
		Action:    model.AuditSupplierAdded,
		NewValue:  supplierName,
		Meta:      model.AuditMeta{Reason: reason},
		Actor:     actor,
		CreatedAt: time.Now(),
	})
}

// SupplierRemoved фиксирует снятие поставщика с шага с обязательной причиной.
func (s *AuditService) SupplierRemoved(sc *model.StepContext, supplierName, reason, actor string) {
	s.record(&model.AuditEvent{
		TenantID:  sc.TenantID,
		TourID:    sc.TourID,
		StepID:    sc.ID,
		Action:    model.AuditSupplierRemoved,
		OldValue:  supplierName,
		Meta:      model.AuditMeta{Reason: reason},
		Actor:     actor,
		CreatedAt: time.Now(),
	})
}

// SupplierChanged фиксирует смену снимка поставщика на шаге.
func (s *AuditService) SupplierChanged(sc *model.StepContext, oldName, newName, actor string) {
	s.record(&model.AuditEvent{
		TenantID:  sc.TenantID,
		TourID:    sc.TourID,
		StepID:    sc.ID,
		Action:    model.AuditSupplierChanged,
		OldValue:  oldName,
		NewValue:  newName,
		Actor:     actor,
		CreatedAt: time.Now(),
	})
}

func (s *AuditService) record(ev *model.AuditEvent) {
	if err := s.store.Insert(ev); err != nil {
		logger.L().Warn("не удалось записать событие аудита",
			zap.Int("step_id", ev.StepID), zap.String("action", ev.Action), zap.Error(err))
	}
}
