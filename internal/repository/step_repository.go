package repository

import (
	"fmt"
	"time"

	"tourops/internal/model"

	"github.com/jmoiron/sqlx"
)

// StepRepository обеспечивает доступ к шагам туров.
type StepRepository struct {
	db *sqlx.DB
}

// NewStepRepository создает новый репозиторий шагов.
func NewStepRepository(db *sqlx.DB) *StepRepository {
	return &StepRepository{db: db}
}

// Create добавляет шаг в день тура. Возвращает ID созданного шага.
func (r *StepRepository) Create(step *model.Step) (int, error) {
	var id int
	err := r.db.QueryRow(`INSERT INTO steps (day_id, kind, title, description, status)
	        VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		step.DayID, step.Kind, step.Title, step.Description, model.StepStatusNotBooked).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("не удалось создать шаг: %w", err)
	}
	return id, nil
}

// GetContext возвращает шаг вместе с принадлежностью: день, тур, компания.
func (r *StepRepository) GetContext(stepID int) (*model.StepContext, error) {
	var sc model.StepContext
	err := r.db.Get(&sc, `
	        SELECT s.*, t.id AS tour_id, t.tenant_id, t.name AS tour_name,
	               c.name AS tenant_name,
	               to_char(d.day_date, 'DD.MM.YYYY') AS day_date_text
	        FROM steps s
	        JOIN days d ON s.day_id = d.id
	        JOIN tours t ON d.tour_id = t.id
	        JOIN tenants c ON t.tenant_id = c.id
	        WHERE s.id=$1`, stepID)
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

// ListByDay возвращает шаги дня.
func (r *StepRepository) ListByDay(dayID int) ([]model.Step, error) {
	steps := []model.Step{}
	err := r.db.Select(&steps, "SELECT * FROM steps WHERE day_id=$1 ORDER BY id", dayID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении шагов дня: %w", err)
	}
	return steps, nil
}

// UpdateStatus обновляет статус шага.
func (r *StepRepository) UpdateStatus(stepID int, status string) error {
	_, err := r.db.Exec("UPDATE steps SET status=$1 WHERE id=$2", status, stepID)
	if err != nil {
		return fmt.Errorf("не удалось обновить статус шага: %w", err)
	}
	return nil
}

// SetSupplierName обновляет денормализованный снимок имени поставщика.
func (r *StepRepository) SetSupplierName(stepID int, name string) error {
	_, err := r.db.Exec("UPDATE steps SET supplier_name=$1 WHERE id=$2", name, stepID)
	if err != nil {
		return fmt.Errorf("не удалось обновить снимок поставщика: %w", err)
	}
	return nil
}

// CountStaleAwaiting считает шаги, висящие в ожидании подтверждения дольше окна.
// Временем входа в статус считается последняя строка лога статусов.
func (r *StepRepository) CountStaleAwaiting(window time.Duration) (int, error) {
	var n int
	err := r.db.Get(&n, `
	        SELECT COUNT(*) FROM steps s
	        WHERE s.status=$1 AND COALESCE(
	                (SELECT MAX(l.created_at) FROM step_status_log l WHERE l.step_id=s.id),
	                now()) < now() - $2::interval`,
		model.StepStatusAwaiting, fmt.Sprintf("%d seconds", int(window.Seconds())))
	if err != nil {
		return 0, fmt.Errorf("ошибка при подсчете застрявших шагов: %w", err)
	}
	return n, nil
}
