package model

import "time"

// Supplier представляет внешнего поставщика услуг (гид, отель, перевозчик).
// Поставщик не имеет учетной записи: он отвечает на заявки по ссылке или через чат-бот.
type Supplier struct {
	ID       int    `db:"id" json:"id"`
	TenantID int    `db:"tenant_id" json:"tenant_id"`
	Name     string `db:"name" json:"name"`
	Email    string `db:"email" json:"email"`
	Phone    string `db:"phone" json:"phone"`
	// ChatID — привязанный Telegram ID поставщика (nil, если чат не привязан).
	ChatID *int64 `db:"chat_id" json:"chat_id,omitempty"`
	// BindCode — одноразовый код привязки чата (~30 минут), хранится прямо на записи.
	BindCode          *string    `db:"bind_code" json:"-"`
	BindCodeExpiresAt *time.Time `db:"bind_code_expires_at" json:"-"`
}

// Contactable сообщает, можно ли вообще уведомить поставщика хоть по одному каналу.
func (s *Supplier) Contactable() bool {
	return s.Email != "" || s.ChatID != nil
}

// StepSupplier представляет назначение поставщика на шаг (многие-ко-многим).
type StepSupplier struct {
	ID         int       `db:"id" json:"id"`
	StepID     int       `db:"step_id" json:"step_id"`
	SupplierID int       `db:"supplier_id" json:"supplier_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
