package service

import (
	"database/sql"
	"fmt"
	"strings"

	"tourops/internal/apperr"
	"tourops/internal/model"

	"golang.org/x/crypto/bcrypt"
)

// UserRegistry — доступ к пользователям, нужный администрированию.
type UserRegistry interface {
	Create(user *model.User) (int, error)
	GetByID(id int) (*model.User, error)
}

// TenantRegistry — доступ к компаниям и членствам, нужный администрированию.
type TenantRegistry interface {
	Create(name string) (int, error)
	GetByID(id int) (*model.Tenant, error)
	AddMembership(m *model.Membership) error
}

// AdminService заводит пользователей, компании и членства.
// Все операции доступны только глобальному администратору.
type AdminService struct {
	users   UserRegistry
	tenants TenantRegistry
}

// NewAdminService создает новый сервис администрирования.
func NewAdminService(users UserRegistry, tenants TenantRegistry) *AdminService {
	return &AdminService{users: users, tenants: tenants}
}

func (s *AdminService) requireAdmin(p Principal) error {
	if !p.Admin() {
		return apperr.ErrForbidden
	}
	return nil
}

// CreateUser регистрирует нового пользователя с хешированным паролем.
func (s *AdminService) CreateUser(p Principal, email, password, name, role string) (*model.User, error) {
	if err := s.requireAdmin(p); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: некорректный e-mail", apperr.ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: пароль короче 8 символов", apperr.ErrValidation)
	}
	if role == "" {
		role = model.UserRoleUser
	}
	if role != model.UserRoleAdmin && role != model.UserRoleUser {
		return nil, fmt.Errorf("%w: неизвестная роль %q", apperr.ErrValidation, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("не удалось хешировать пароль: %w", err)
	}
	user := &model.User{Email: email, PasswordHash: string(hash), Name: name, Role: role}
	id, err := s.users.Create(user)
	if err != nil {
		return nil, err
	}
	user.ID = id
	return user, nil
}

// CreateTenant заводит новую компанию.
func (s *AdminService) CreateTenant(p Principal, name string) (*model.Tenant, error) {
	if err := s.requireAdmin(p); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: пустое имя компании", apperr.ErrValidation)
	}
	id, err := s.tenants.Create(name)
	if err != nil {
		return nil, err
	}
	return s.tenants.GetByID(id)
}

// AddMember добавляет пользователя в компанию с ролью operator или agent.
func (s *AdminService) AddMember(p Principal, tenantID, userID int, role string) (*model.Membership, error) {
	if err := s.requireAdmin(p); err != nil {
		return nil, err
	}
	if role != model.MembershipRoleOperator && role != model.MembershipRoleAgent {
		return nil, fmt.Errorf("%w: неизвестная роль членства %q", apperr.ErrValidation, role)
	}
	if _, err := s.tenants.GetByID(tenantID); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при поиске компании: %w", err)
	}
	if _, err := s.users.GetByID(userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка при поиске пользователя: %w", err)
	}

	m := &model.Membership{
		TenantID: tenantID,
		UserID:   userID,
		Role:     role,
		Status:   model.MembershipStatusActive,
	}
	if err := s.tenants.AddMembership(m); err != nil {
		return nil, err
	}
	return m, nil
}
