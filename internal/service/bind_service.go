package service

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tourops/internal/apperr"
	"tourops/internal/logger"
	"tourops/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BindSupplierStore — доступ к поставщикам, нужный привязке чата.
type BindSupplierStore interface {
	GetByID(id int) (*model.Supplier, error)
	FindByBindCode(code string) (*model.Supplier, error)
	FindByChatID(chatID int64) (*model.Supplier, error)
	BindChat(supplierID int, chatID int64) (bool, error)
	SetBindCode(supplierID int, code string, expiresAt time.Time) error
}

// TokenGetter возвращает токен заявки по значению.
type TokenGetter interface {
	GetByID(id string) (*model.RequestToken, error)
}

// BindService привязывает личность чата к поставщику. Два источника кода —
// выданный оператором код привязки и (исторический путь) открытый токен
// заявки — сходятся в одном методе BindChatIdentity.
type BindService struct {
	suppliers BindSupplierStore
	tokens    TokenGetter
	access    *AccessService
	codeTTL   time.Duration
}

// NewBindService создает новый сервис привязки чата.
func NewBindService(suppliers BindSupplierStore, tokens TokenGetter, access *AccessService, codeTTL time.Duration) *BindService {
	return &BindService{suppliers: suppliers, tokens: tokens, access: access, codeTTL: codeTTL}
}

// IssueBindCode выпускает короткоживущий одноразовый код привязки чата
// для поставщика. Код хранится прямо на записи поставщика и затирается
// при использовании или повторном выпуске.
func (s *BindService) IssueBindCode(p Principal, supplierID int) (string, error) {
	sup, err := s.suppliers.GetByID(supplierID)
	if err == sql.ErrNoRows {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("не удалось получить поставщика: %w", err)
	}
	if _, err := s.access.Authorize(p, sup.TenantID); err != nil {
		return "", err
	}
	// Короткий код из первого блока UUID — достаточно для 30-минутного окна.
	code := strings.ToUpper(strings.SplitN(uuid.NewString(), "-", 2)[0])
	if err := s.suppliers.SetBindCode(supplierID, code, time.Now().Add(s.codeTTL)); err != nil {
		return "", err
	}
	return code, nil
}

// BindChatIdentity привязывает личность чата к поставщику по коду.
// Код может быть кодом привязки или значением открытого токена заявки.
// Личность чата привязывается не более чем к одному поставщику: попытка
// перепривязки к другому поставщику завершается конфликтом, повторная
// привязка к тому же — успешна и ничего не меняет.
func (s *BindService) BindChatIdentity(code string, chatID int64) (int, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, fmt.Errorf("%w: пустой код привязки", apperr.ErrValidation)
	}

	sup, err := s.findByCode(code)
	if err != nil {
		return 0, err
	}

	if bound, err := s.suppliers.FindByChatID(chatID); err == nil {
		if bound.ID == sup.ID {
			return sup.ID, nil
		}
		return 0, fmt.Errorf("%w: чат уже привязан к другому поставщику", apperr.ErrConflict)
	} else if err != sql.ErrNoRows {
		return 0, fmt.Errorf("ошибка при поиске привязки чата: %w", err)
	}

	ok, err := s.suppliers.BindChat(sup.ID, chatID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: к поставщику уже привязан другой чат", apperr.ErrConflict)
	}
	logger.L().Info("чат привязан к поставщику", zap.Int("supplier_id", sup.ID), zap.Int64("chat_id", chatID))
	return sup.ID, nil
}

// findByCode ищет поставщика по коду привязки, затем по токену заявки.
func (s *BindService) findByCode(code string) (*model.Supplier, error) {
	sup, err := s.suppliers.FindByBindCode(strings.ToUpper(code))
	if err == nil {
		if sup.BindCodeExpiresAt == nil || time.Now().After(*sup.BindCodeExpiresAt) {
			return nil, apperr.ErrExpired
		}
		return sup, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("ошибка при поиске кода привязки: %w", err)
	}

	// Исторический путь: привязка по открытому токену заявки.
	tok, err := s.tokens.GetByID(code)
	if err == sql.ErrNoRows {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка при поиске токена: %w", err)
	}
	if !tok.Open(time.Now()) {
		return nil, apperr.ErrExpired
	}
	sup, err = s.suppliers.GetByID(tok.SupplierID)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить поставщика токена: %w", err)
	}
	return sup, nil
}
