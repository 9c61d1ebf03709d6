package repository

import (
	"fmt"

	"tourops/internal/model"

	"github.com/jmoiron/sqlx"
)

// AssignmentRepository обеспечивает доступ к назначениям поставщиков на шаги.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository создает новый репозиторий назначений.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Assign назначает поставщика на шаг. Возвращает false, если пара уже существует.
func (r *AssignmentRepository) Assign(stepID, supplierID int) (bool, error) {
	res, err := r.db.Exec(`INSERT INTO step_suppliers (step_id, supplier_id)
	        VALUES ($1, $2) ON CONFLICT (step_id, supplier_id) DO NOTHING`, stepID, supplierID)
	if err != nil {
		return false, fmt.Errorf("не удалось назначить поставщика: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Remove снимает поставщика с шага. Возвращает false, если назначения не было.
func (r *AssignmentRepository) Remove(stepID, supplierID int) (bool, error) {
	res, err := r.db.Exec("DELETE FROM step_suppliers WHERE step_id=$1 AND supplier_id=$2", stepID, supplierID)
	if err != nil {
		return false, fmt.Errorf("не удалось снять поставщика: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListByStep возвращает назначения шага по времени создания.
func (r *AssignmentRepository) ListByStep(stepID int) ([]model.StepSupplier, error) {
	rows := []model.StepSupplier{}
	err := r.db.Select(&rows, "SELECT * FROM step_suppliers WHERE step_id=$1 ORDER BY created_at", stepID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении назначений шага: %w", err)
	}
	return rows, nil
}
