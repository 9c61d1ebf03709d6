package service

import (
	"tourops/internal/apperr"
	"tourops/internal/model"
)

// SettingsWriter — чтение и сохранение настроек компании.
type SettingsWriter interface {
	SettingsStore
	SaveSettings(s *model.TenantSettings) error
}

// SettingsService отдает и сохраняет настройки автоматизации компании.
type SettingsService struct {
	settings SettingsWriter
	access   *AccessService
}

// NewSettingsService создает новый сервис настроек.
func NewSettingsService(settings SettingsWriter, access *AccessService) *SettingsService {
	return &SettingsService{settings: settings, access: access}
}

// Get возвращает настройки компании действующего лица.
func (s *SettingsService) Get(p Principal, tenantID int) (*model.TenantSettings, error) {
	if _, err := s.access.Authorize(p, tenantID); err != nil {
		return nil, err
	}
	return s.settings.GetSettings(tenantID)
}

// Save сохраняет настройки компании. Менять настройки может только оператор.
func (s *SettingsService) Save(p Principal, settings *model.TenantSettings) error {
	role, err := s.access.Authorize(p, settings.TenantID)
	if err != nil {
		return err
	}
	if role != model.MembershipRoleOperator {
		return apperr.ErrForbidden
	}
	return s.settings.SaveSettings(settings)
}
