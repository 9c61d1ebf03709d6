package service

import (
	"errors"
	"testing"

	"tourops/internal/apperr"
	"tourops/internal/model"
)

func TestAuthorizeAdminBypassesMembership(t *testing.T) {
	svc := accessWith() // членств нет вообще

	role, err := svc.Authorize(Principal{UserID: 1, Role: model.UserRoleAdmin}, 42)
	if err != nil {
		t.Fatalf("Authorize(admin) = %v", err)
	}
	if role != model.MembershipRoleOperator {
		t.Errorf("эффективная роль админа = %q, ожидалась operator", role)
	}
}

func TestAuthorizeReturnsMembershipRole(t *testing.T) {
	svc := accessWith(membership(1, 7, model.MembershipRoleAgent))

	role, err := svc.Authorize(Principal{UserID: 7}, 1)
	if err != nil {
		t.Fatalf("Authorize = %v", err)
	}
	if role != model.MembershipRoleAgent {
		t.Errorf("роль = %q, ожидалась agent", role)
	}
}

func TestAuthorizeHidesForeignTenant(t *testing.T) {
	svc := accessWith(membership(1, 7, model.MembershipRoleOperator))

	if _, err := svc.Authorize(Principal{UserID: 7}, 2); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Authorize чужой компании = %v, ожидался ErrNotFound", err)
	}
}

func TestAuthorizeDisabledMembershipHidden(t *testing.T) {
	m := membership(1, 7, model.MembershipRoleOperator)
	m.Status = model.MembershipStatusDisabled
	svc := accessWith(m)

	if _, err := svc.Authorize(Principal{UserID: 7}, 1); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Authorize с отключенным членством = %v, ожидался ErrNotFound", err)
	}
}

func TestResolveTenant(t *testing.T) {
	disabled := membership(3, 8, model.MembershipRoleAgent)
	disabled.Status = model.MembershipStatusDisabled
	svc := accessWith(membership(1, 7, model.MembershipRoleOperator), disabled)

	if got := svc.ResolveTenant(Principal{UserID: 7}); got != 1 {
		t.Errorf("ResolveTenant = %d, ожидалось 1", got)
	}
	if got := svc.ResolveTenant(Principal{UserID: 8}); got != 0 {
		t.Errorf("ResolveTenant с отключенным членством = %d, ожидалось 0", got)
	}
	if got := svc.ResolveTenant(Principal{UserID: 99, Role: model.UserRoleAdmin}); got != 0 {
		t.Errorf("ResolveTenant для админа = %d, ожидалось 0", got)
	}
}
