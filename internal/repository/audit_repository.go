package repository

import (
	"fmt"

	"tourops/internal/model"

	"github.com/jmoiron/sqlx"
)

// AuditRepository обеспечивает запись и чтение журнала аудита и лога статусов.
// Журнал только пополняется: обновлений и удалений нет.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository создает новый репозиторий аудита.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert добавляет событие аудита.
func (r *AuditRepository) Insert(ev *model.AuditEvent) error {
	_, err := r.db.Exec(`INSERT INTO audit_events
	        (tenant_id, tour_id, step_id, action, old_value, new_value, meta, actor, created_at)
	        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.TenantID, ev.TourID, ev.StepID, ev.Action, ev.OldValue, ev.NewValue, ev.Meta, ev.Actor, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("не удалось записать событие аудита: %w", err)
	}
	return nil
}

// ListByStep возвращает события аудита шага, новые первыми.
func (r *AuditRepository) ListByStep(stepID, limit int) ([]model.AuditEvent, error) {
	events := []model.AuditEvent{}
	err := r.db.Select(&events,
		"SELECT * FROM audit_events WHERE step_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2",
		stepID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении журнала аудита: %w", err)
	}
	return events, nil
}

// InsertStatusLog добавляет строку лога статусов шага.
func (r *AuditRepository) InsertStatusLog(l *model.StepStatusLog) error {
	_, err := r.db.Exec(`INSERT INTO step_status_log (step_id, old_status, new_status, actor, reason, created_at)
	        VALUES ($1, $2, $3, $4, $5, $6)`,
		l.StepID, l.OldStatus, l.NewStatus, l.Actor, l.Reason, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("не удалось записать лог статусов: %w", err)
	}
	return nil
}

// ListStatusLog возвращает лог статусов шага, новые первыми.
func (r *AuditRepository) ListStatusLog(stepID int) ([]model.StepStatusLog, error) {
	rows := []model.StepStatusLog{}
	err := r.db.Select(&rows,
		"SELECT * FROM step_status_log WHERE step_id=$1 ORDER BY created_at DESC, id DESC", stepID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении лога статусов: %w", err)
	}
	return rows, nil
}
