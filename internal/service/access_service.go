package service

import (
	"database/sql"
	"fmt"

	"tourops/internal/apperr"
	"tourops/internal/model"
)

// Principal представляет действующее лицо запроса, извлеченное из JWT.
type Principal struct {
	UserID int
	Role   string // глобальная роль: admin или user
}

// Admin сообщает, является ли действующее лицо суперпользователем.
func (p Principal) Admin() bool {
	return p.Role == model.UserRoleAdmin
}

// MembershipStore — доступ к членствам, необходимый страже доступа.
type MembershipStore interface {
	GetMembership(tenantID, userID int) (*model.Membership, error)
	GetMembershipByUser(userID int) (*model.Membership, error)
}

// AccessService — страж доступа: каждая операция над данными компании обязана
// пройти через него до чтения или изменения. Провал проверки всегда выглядит
// как "не найдено", чтобы не раскрывать существование чужих данных.
type AccessService struct {
	members MembershipStore
}

// NewAccessService создает нового стража доступа.
func NewAccessService(members MembershipStore) *AccessService {
	return &AccessService{members: members}
}

// Authorize проверяет право действующего лица работать с данными компании.
// Возвращает эффективную роль в компании. Админ минует проверку членства
// и получает роль оператора.
func (s *AccessService) Authorize(p Principal, tenantID int) (string, error) {
	if p.Admin() {
		return model.MembershipRoleOperator, nil
	}
	m, err := s.members.GetMembership(tenantID, p.UserID)
	if err == sql.ErrNoRows {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("ошибка при проверке членства: %w", err)
	}
	if m.Status != model.MembershipStatusActive {
		return "", apperr.ErrNotFound
	}
	return m.Role, nil
}

// maskNotFound переводит отсутствие строки в единый ErrNotFound,
// остальные ошибки оборачивает.
func maskNotFound(err error) error {
	if err == sql.ErrNoRows {
		return apperr.ErrNotFound
	}
	return fmt.Errorf("ошибка при чтении данных: %w", err)
}

// ResolveTenant возвращает компанию действующего лица по его активному
// членству, либо 0, если членства нет (у админа компании нет — тоже 0).
func (s *AccessService) ResolveTenant(p Principal) int {
	m, err := s.members.GetMembershipByUser(p.UserID)
	if err != nil || m.Status != model.MembershipStatusActive {
		return 0
	}
	return m.TenantID
}
