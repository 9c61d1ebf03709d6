package service

import (
	"fmt"

	"tourops/internal/apperr"
	"tourops/internal/model"
)

// SupplierCatalog — создание и чтение справочника поставщиков компании.
type SupplierCatalog interface {
	Create(s *model.Supplier) (int, error)
	ListByTenant(tenantID int) ([]model.Supplier, error)
}

// SupplierService ведет справочник поставщиков компании.
type SupplierService struct {
	catalog SupplierCatalog
	access  *AccessService
}

// NewSupplierService создает новый сервис поставщиков.
func NewSupplierService(catalog SupplierCatalog, access *AccessService) *SupplierService {
	return &SupplierService{catalog: catalog, access: access}
}

// Create добавляет поставщика в компанию действующего лица.
func (s *SupplierService) Create(p Principal, tenantID int, name, email, phone string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: требуется имя поставщика", apperr.ErrValidation)
	}
	if _, err := s.access.Authorize(p, tenantID); err != nil {
		return 0, err
	}
	return s.catalog.Create(&model.Supplier{TenantID: tenantID, Name: name, Email: email, Phone: phone})
}

// List возвращает поставщиков компании.
func (s *SupplierService) List(p Principal, tenantID int) ([]model.Supplier, error) {
	if _, err := s.access.Authorize(p, tenantID); err != nil {
		return nil, err
	}
	return s.catalog.ListByTenant(tenantID)
}
