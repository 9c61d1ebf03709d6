// Package notify содержит транспортные адаптеры исходящих уведомлений:
// почту и чат. Какие сообщения и кому отправлять, решает диспетчер
// в internal/service — здесь только доставка.
package notify

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender отправляет письма через SMTP без аутентификации (релей в сети).
type SMTPSender struct {
	addr string // host:port
	from string
}

// NewSMTPSender создает отправителя почты.
func NewSMTPSender(addr, from string) *SMTPSender {
	return &SMTPSender{addr: addr, from: from}
}

// Send отправляет письмо адресату.
func (s *SMTPSender) Send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + s.from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")
	if err := smtp.SendMail(s.addr, nil, s.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("не удалось отправить письмо: %w", err)
	}
	return nil
}

// NopEmailSender используется, когда почта не настроена: сообщает об этом ошибкой.
type NopEmailSender struct{}

// Send всегда возвращает ошибку "почта не настроена".
func (NopEmailSender) Send(to, subject, body string) error {
	return fmt.Errorf("почтовый транспорт не настроен (SMTP_ADDR пуст)")
}
