package model

import "time"

// Tenant представляет компанию-туроператора — границу изоляции данных.
type Tenant struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Роли членства в компании.
const (
	MembershipRoleOperator = "operator" // оператор: полный доступ, включая перевод в "paid"
	MembershipRoleAgent    = "agent"    // полевой агент: ведет шаги до "booked", но не "paid"
)

// Статусы членства.
const (
	MembershipStatusActive   = "active"
	MembershipStatusDisabled = "disabled"
)

// Membership представляет членство пользователя в компании с ролью.
type Membership struct {
	ID       int    `db:"id" json:"id"`
	TenantID int    `db:"tenant_id" json:"tenant_id"`
	UserID   int    `db:"user_id" json:"user_id"`
	Role     string `db:"role" json:"role"`
	Status   string `db:"status" json:"status"`
}

// TenantSettings представляет настройки автоматизации и шаблоны сообщений компании.
// Загружаются целиком по ID компании на каждый запрос.
type TenantSettings struct {
	TenantID          int    `db:"tenant_id" json:"tenant_id"`
	AutomationEnabled bool   `db:"automation_enabled" json:"automation_enabled"` // главный выключатель всей рассылки
	NotifyBooked      bool   `db:"notify_booked" json:"notify_booked"`           // уведомления при переходе в "booked"
	NotifyPaid        bool   `db:"notify_paid" json:"notify_paid"`               // уведомления при переходе в "paid"
	TmplRequest       string `db:"tmpl_request" json:"tmpl_request"`             // шаблон заявки (пусто = встроенный)
	TmplBooked        string `db:"tmpl_booked" json:"tmpl_booked"`
	TmplPaid          string `db:"tmpl_paid" json:"tmpl_paid"`
}
