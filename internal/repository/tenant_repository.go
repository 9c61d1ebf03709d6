package repository

import (
	"database/sql"
	"fmt"

	"tourops/internal/model"

	"github.com/jmoiron/sqlx"
)

// TenantRepository обеспечивает доступ к компаниям, членствам и настройкам.
type TenantRepository struct {
	db *sqlx.DB
}

// NewTenantRepository создает новый репозиторий компаний.
func NewTenantRepository(db *sqlx.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Create добавляет новую компанию. Возвращает ID созданной компании.
func (r *TenantRepository) Create(name string) (int, error) {
	var id int
	err := r.db.QueryRow("INSERT INTO tenants (name) VALUES ($1) RETURNING id", name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("не удалось создать компанию: %w", err)
	}
	return id, nil
}

// GetByID возвращает компанию по идентификатору.
func (r *TenantRepository) GetByID(id int) (*model.Tenant, error) {
	var t model.Tenant
	if err := r.db.Get(&t, "SELECT * FROM tenants WHERE id=$1", id); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetMembership возвращает членство пользователя в компании (sql.ErrNoRows, если нет).
func (r *TenantRepository) GetMembership(tenantID, userID int) (*model.Membership, error) {
	var m model.Membership
	err := r.db.Get(&m, "SELECT * FROM memberships WHERE tenant_id=$1 AND user_id=$2", tenantID, userID)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMembershipByUser возвращает первое активное членство пользователя.
func (r *TenantRepository) GetMembershipByUser(userID int) (*model.Membership, error) {
	var m model.Membership
	err := r.db.Get(&m,
		"SELECT * FROM memberships WHERE user_id=$1 AND status=$2 ORDER BY id LIMIT 1",
		userID, model.MembershipStatusActive)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AddMembership добавляет членство пользователя в компании.
func (r *TenantRepository) AddMembership(m *model.Membership) error {
	_, err := r.db.Exec(`INSERT INTO memberships (tenant_id, user_id, role, status)
	                     VALUES ($1, $2, $3, $4)`, m.TenantID, m.UserID, m.Role, m.Status)
	if err != nil {
		return fmt.Errorf("не удалось добавить членство: %w", err)
	}
	return nil
}

// GetSettings возвращает настройки компании; при отсутствии строки — значения по умолчанию.
func (r *TenantRepository) GetSettings(tenantID int) (*model.TenantSettings, error) {
	var s model.TenantSettings
	err := r.db.Get(&s, "SELECT * FROM tenant_settings WHERE tenant_id=$1", tenantID)
	if err == sql.ErrNoRows {
		return &model.TenantSettings{
			TenantID:          tenantID,
			AutomationEnabled: true,
			NotifyBooked:      true,
			NotifyPaid:        true,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("не удалось получить настройки компании: %w", err)
	}
	return &s, nil
}

// SaveSettings сохраняет настройки компании (upsert).
func (r *TenantRepository) SaveSettings(s *model.TenantSettings) error {
	_, err := r.db.Exec(`INSERT INTO tenant_settings
	        (tenant_id, automation_enabled, notify_booked, notify_paid, tmpl_request, tmpl_booked, tmpl_paid)
	        VALUES ($1, $2, $3, $4, $5, $6, $7)
	        ON CONFLICT (tenant_id) DO UPDATE SET
	        automation_enabled=EXCLUDED.automation_enabled,
	        notify_booked=EXCLUDED.notify_booked,
	        notify_paid=EXCLUDED.notify_paid,
	        tmpl_request=EXCLUDED.tmpl_request,
	        tmpl_booked=EXCLUDED.tmpl_booked,
	        tmpl_paid=EXCLUDED.tmpl_paid`,
		s.TenantID, s.AutomationEnabled, s.NotifyBooked, s.NotifyPaid, s.TmplRequest, s.TmplBooked, s.TmplPaid)
	if err != nil {
		return fmt.Errorf("не удалось сохранить настройки компании: %w", err)
	}
	return nil
}
