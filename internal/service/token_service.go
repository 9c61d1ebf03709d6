package service

import (
	"time"

	"tourops/internal/model"

	"github.com/google/uuid"
)

// TokenStore — доступ к токенам заявок.
type TokenStore interface {
	GetByID(id string) (*model.RequestToken, error)
	EnsureOpen(stepID, supplierID int, id string, now time.Time, ttl time.Duration) (*model.RequestToken, bool, error)
	MarkNotified(id string, at time.Time) error
}

// TokenService выпускает токены заявок поставщикам. На пару (шаг, поставщик)
// одновременно открыт не более чем один токен: повторный вызов возвращает его же.
type TokenService struct {
	tokens TokenStore
	ttl    time.Duration
}

// NewTokenService создает новый сервис токенов с фиксированным окном действия.
func NewTokenService(tokens TokenStore, ttl time.Duration) *TokenService {
	return &TokenService{tokens: tokens, ttl: ttl}
}

// EnsureOpenToken возвращает открытый токен пары, при необходимости выпуская
// новый с криптографически случайным значением. Второе значение — true,
// если токен только что создан (и уведомление еще не отправлялось).
func (s *TokenService) EnsureOpenToken(stepID, supplierID int) (*model.RequestToken, bool, error) {
	return s.tokens.EnsureOpen(stepID, supplierID, uuid.NewString(), time.Now(), s.ttl)
}

// MarkNotified фиксирует первую успешную отправку уведомления по токену.
func (s *TokenService) MarkNotified(id string) error {
	return s.tokens.MarkNotified(id, time.Now())
}
