package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Действия журнала аудита.
const (
	AuditStatusChanged   = "status_changed"
	AuditSupplierAdded   = "supplier_assigned"
	AuditSupplierRemoved = "supplier_removed"
	AuditSupplierChanged = "supplier_changed"
)

// Служебный актор для переходов, выполненных самим поставщиком через токен.
const ActorSystem = "system"

// AuditMeta — типизированные метаданные события аудита.
// Известные поля выделены явно, Extra — запас на будущее.
type AuditMeta struct {
	Reason   string            `json:"reason,omitempty"`
	Channel  string            `json:"channel,omitempty"`
	Supplier string            `json:"supplier,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// Value сериализует метаданные в JSON для колонки jsonb.
func (m AuditMeta) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan читает метаданные из колонки jsonb.
func (m *AuditMeta) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	case nil:
		*m = AuditMeta{}
		return nil
	}
	return fmt.Errorf("неожиданный тип метаданных аудита: %T", src)
}

// AuditEvent — неизменяемая запись журнала аудита (только добавление).
type AuditEvent struct {
	ID        int       `db:"id" json:"id"`
	TenantID  int       `db:"tenant_id" json:"-"`
	TourID    int       `db:"tour_id" json:"tour_id"`
	StepID    int       `db:"step_id" json:"step_id"`
	Action    string    `db:"action" json:"action"`
	OldValue  string    `db:"old_value" json:"old_value"`
	NewValue  string    `db:"new_value" json:"new_value"`
	Meta      AuditMeta `db:"meta" json:"meta"`
	Actor     string    `db:"actor" json:"actor"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StepStatusLog — параллельная (вторичная) строка лога смены статуса шага.
type StepStatusLog struct {
	ID        int       `db:"id"`
	StepID    int       `db:"step_id"`
	OldStatus string    `db:"old_status"`
	NewStatus string    `db:"new_status"`
	Actor     string    `db:"actor"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}
