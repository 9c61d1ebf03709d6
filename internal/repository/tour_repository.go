package repository

import (
	"fmt"
	"time"

	"tourops/internal/model"

	"github.com/jmoiron/sqlx"
)

// TourRepository обеспечивает доступ к турам и дням туров.
type TourRepository struct {
	db *sqlx.DB
}

// NewTourRepository создает новый репозиторий туров.
func NewTourRepository(db *sqlx.DB) *TourRepository {
	return &TourRepository{db: db}
}

// Create создает новый тур для компании. Возвращает ID созданного тура.
func (r *TourRepository) Create(tenantID int, name string) (int, error) {
	var id int
	err := r.db.QueryRow(`INSERT INTO tours (tenant_id, name, status) VALUES ($1, $2, $3) RETURNING id`,
		tenantID, name, model.TourStatusDraft).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("не удалось создать тур: %w", err)
	}
	return id, nil
}

// GetByID возвращает тур по идентификатору.
func (r *TourRepository) GetByID(id int) (*model.Tour, error) {
	var t model.Tour
	if err := r.db.Get(&t, "SELECT * FROM tours WHERE id=$1", id); err != nil {
		return nil, err
	}
	return &t, nil
}

// AddDay добавляет день в конец тура (плотная нумерация с 1).
func (r *TourRepository) AddDay(tourID int, date time.Time) (int, error) {
	var next int
	if err := r.db.Get(&next, "SELECT COALESCE(MAX(day_index), 0) + 1 FROM days WHERE tour_id=$1", tourID); err != nil {
		return 0, fmt.Errorf("не удалось определить номер дня: %w", err)
	}
	var id int
	err := r.db.QueryRow(`INSERT INTO days (tour_id, day_index, day_date) VALUES ($1, $2, $3) RETURNING id`,
		tourID, next, date).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("не удалось добавить день тура: %w", err)
	}
	return id, nil
}

// GetDay возвращает день тура по идентификатору.
func (r *TourRepository) GetDay(id int) (*model.Day, error) {
	var d model.Day
	if err := r.db.Get(&d, "SELECT * FROM days WHERE id=$1", id); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDays возвращает дни тура по порядку.
func (r *TourRepository) ListDays(tourID int) ([]model.Day, error) {
	days := []model.Day{}
	err := r.db.Select(&days, "SELECT * FROM days WHERE tour_id=$1 ORDER BY day_index", tourID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении дней тура: %w", err)
	}
	return days, nil
}
