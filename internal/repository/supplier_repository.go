package repository

import (
	"fmt"
	"time"

	"tourops/internal/model"

	"github.com/jmoiron/sqlx"
)

// SupplierRepository обеспечивает доступ к данным поставщиков.
type SupplierRepository struct {
	db *sqlx.DB
}

// NewSupplierRepository создает новый репозиторий поставщиков.
func NewSupplierRepository(db *sqlx.DB) *SupplierRepository {
	return &SupplierRepository{db: db}
}

// Create добавляет нового поставщика. Возвращает ID созданного поставщика.
func (r *SupplierRepository) Create(s *model.Supplier) (int, error) {
	var id int
	err := r.db.QueryRow(`INSERT INTO suppliers (tenant_id, name, email, phone)
	        VALUES ($1, $2, $3, $4) RETURNING id`,
		s.TenantID, s.Name, s.Email, s.Phone).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("не удалось создать поставщика: %w", err)
	}
	return id, nil
}

// GetByID возвращает поставщика по идентификатору.
func (r *SupplierRepository) GetByID(id int) (*model.Supplier, error) {
	var s model.Supplier
	if err := r.db.Get(&s, "SELECT * FROM suppliers WHERE id=$1", id); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListByTenant возвращает всех поставщиков компании.
func (r *SupplierRepository) ListByTenant(tenantID int) ([]model.Supplier, error) {
	suppliers := []model.Supplier{}
	err := r.db.Select(&suppliers, "SELECT * FROM suppliers WHERE tenant_id=$1 ORDER BY name", tenantID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении поставщиков: %w", err)
	}
	return suppliers, nil
}

// ListByStep возвращает поставщиков, назначенных на шаг.
func (r *SupplierRepository) ListByStep(stepID int) ([]model.Supplier, error) {
	suppliers := []model.Supplier{}
	err := r.db.Select(&suppliers, `
	        SELECT p.* FROM step_suppliers ss
	        JOIN suppliers p ON ss.supplier_id = p.id
	        WHERE ss.step_id=$1 ORDER BY ss.created_at`, stepID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при получении поставщиков шага: %w", err)
	}
	return suppliers, nil
}

// SetBindCode записывает одноразовый код привязки чата и срок его действия.
func (r *SupplierRepository) SetBindCode(supplierID int, code string, expiresAt time.Time) error {
	_, err := r.db.Exec("UPDATE suppliers SET bind_code=$1, bind_code_expires_at=$2 WHERE id=$3",
		code, expiresAt, supplierID)
	if err != nil {
		return fmt.Errorf("не удалось сохранить код привязки: %w", err)
	}
	return nil
}

// FindByBindCode ищет поставщика по коду привязки (sql.ErrNoRows, если нет).
func (r *SupplierRepository) FindByBindCode(code string) (*model.Supplier, error) {
	var s model.Supplier
	if err := r.db.Get(&s, "SELECT * FROM suppliers WHERE bind_code=$1", code); err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByChatID ищет поставщика по привязанному идентификатору чата.
func (r *SupplierRepository) FindByChatID(chatID int64) (*model.Supplier, error) {
	var s model.Supplier
	if err := r.db.Get(&s, "SELECT * FROM suppliers WHERE chat_id=$1", chatID); err != nil {
		return nil, err
	}
	return &s, nil
}

// BindChat привязывает идентификатор чата к поставщику, если чат еще не привязан.
// Возвращает false, если у поставщика уже привязан другой чат.
func (r *SupplierRepository) BindChat(supplierID int, chatID int64) (bool, error) {
	res, err := r.db.Exec(`UPDATE suppliers SET chat_id=$1, bind_code=NULL, bind_code_expires_at=NULL
	        WHERE id=$2 AND (chat_id IS NULL OR chat_id=$1)`, chatID, supplierID)
	if err != nil {
		return false, fmt.Errorf("не удалось привязать чат: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
