package model

import "time"

// Каналы доставки заявки и ответа.
const (
	ChannelLink = "link" // ссылка в письме
	ChannelChat = "chat" // чат-бот
)

// Терминальные ответы по токену.
const (
	ResponseAccepted  = "accepted"
	ResponseDeclined  = "declined"
	ResponseCancelled = "cancelled" // заявка отозвана (снятие поставщика, переиздание)
)

// RequestToken представляет одноразовый ограниченный по времени токен,
// по которому внешний поставщик подтверждает или отклоняет шаг без авторизации.
// Значением токена служит само поле ID (случайный UUID).
type RequestToken struct {
	ID         string    `db:"id"`
	StepID     int       `db:"step_id"`
	SupplierID int       `db:"supplier_id"`
	Channel    string    `db:"channel"`
	IssuedAt   time.Time `db:"issued_at"`
	ExpiresAt  time.Time `db:"expires_at"`
	// NotifiedAt — время первой успешной отправки уведомления по токену.
	NotifiedAt *time.Time `db:"notified_at"`
	// Response заполняется ровно один раз; после этого токен неизменяем.
	Response        *string    `db:"response"`
	RespondedAt     *time.Time `db:"responded_at"`
	ResponseChannel *string    `db:"response_channel"`
}

// Open сообщает, открыт ли токен: ответа нет и срок не истек.
func (t *RequestToken) Open(now time.Time) bool {
	return t.Response == nil && now.Before(t.ExpiresAt)
}

// Expired сообщает, истек ли срок токена без ответа.
func (t *RequestToken) Expired(now time.Time) bool {
	return t.Response == nil && !now.Before(t.ExpiresAt)
}
