package authz

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestAuthorizeWithRolePolicy(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("ops", "/admin/coupons/:id", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if err := svc.SetUserRoles(1, []string{"ops"}); err != nil {
		t.Fatalf("set user roles failed: %v", err)
	}

	allow, err := svc.Authorize(1, "/api/v1/admin/coupons/42", "get")
	if err != nil {
		t.Fatalf("enforce allow failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected allow=true")
	}

	allow, err = svc.Authorize(1, "/api/v1/admin/coupons/42", "DELETE")
	if err != nil {
		t.Fatalf("enforce deny failed: %v", err)
	}
	if allow {
		t.Fatalf("expected allow=false")
	}
}

func TestSetUserRolesOverride(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}

	if err := svc.SetUserRoles(2, []string{RoleCouponManager}); err != nil {
		t.Fatalf("set first role failed: %v", err)
	}
	roles, err := svc.GetUserRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:coupon_manager" {
		t.Fatalf("roles want [role:coupon_manager], got=%v", roles)
	}

	if err := svc.SetUserRoles(2, []string{RoleAuditor}); err != nil {
		t.Fatalf("set second role failed: %v", err)
	}
	allow, err := svc.Authorize(2, "/admin/coupons", "POST")
	if err != nil {
		t.Fatalf("enforce old role failed: %v", err)
	}
	if allow {
		t.Fatalf("expected old role permission removed")
	}
	allow, err = svc.Authorize(2, "/admin/coupons", "GET")
	if err != nil {
		t.Fatalf("enforce new role failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected auditor read permission")
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/coupons/:id", want: "/admin/coupons/:id"},
		{in: "/admin/coupons/:id", want: "/admin/coupons/:id"},
		{in: "admin/coupons", want: "/admin/coupons"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	for i := 0; i < 2; i++ {
		if err := svc.BootstrapBuiltinRoles(); err != nil {
			t.Fatalf("bootstrap builtin roles failed: %v", err)
		}
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	wantRoles := map[string]bool{
		"role:auditor":        true,
		"role:coupon_manager": true,
		"role:admin":          true,
	}
	for _, role := range roles {
		delete(wantRoles, role)
	}
	if len(wantRoles) != 0 {
		t.Fatalf("builtin roles missing: %v", wantRoles)
	}

	if err := svc.SetUserRoles(3, []string{RoleCouponManager}); err != nil {
		t.Fatalf("set user roles failed: %v", err)
	}
	cases := []struct {
		obj   string
		act   string
		allow bool
	}{
		{obj: "/admin/points/7/audit", act: "GET", allow: true},
		{obj: "/admin/coupons/9/status", act: "PATCH", allow: true},
		{obj: "/admin/restaurants/4/staff", act: "POST", allow: true},
		{obj: "/admin/points/7/audit", act: "POST", allow: false},
	}
	for _, tc := range cases {
		allow, err := svc.Authorize(3, tc.obj, tc.act)
		if err != nil {
			t.Fatalf("enforce %s %s failed: %v", tc.act, tc.obj, err)
		}
		if allow != tc.allow {
			t.Fatalf("%s %s: expected allow=%v", tc.act, tc.obj, tc.allow)
		}
	}

	if err := svc.SetUserRoles(4, []string{RoleAdmin}); err != nil {
		t.Fatalf("set admin role failed: %v", err)
	}
	allow, err := svc.Authorize(4, "/api/v1/admin/points/7/audit", "POST")
	if err != nil || !allow {
		t.Fatalf("expected admin full access, allow=%v err=%v", allow, err)
	}
}

func TestSetUserRolesRejectsUndefinedRole(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if err := svc.SetUserRoles(5, []string{RoleAuditor}); err != nil {
		t.Fatalf("set auditor failed: %v", err)
	}
	if err := svc.SetUserRoles(5, []string{"ghost"}); !errors.Is(err, ErrRoleUnknown) {
		t.Fatalf("expected ErrRoleUnknown, got %v", err)
	}
	roles, err := svc.GetUserRoles(5)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:auditor" {
		t.Fatalf("rejected update must keep previous roles, got %v", roles)
	}
	if err := svc.GrantUserRole(5, ""); !errors.Is(err, ErrRoleRequired) {
		t.Fatalf("expected ErrRoleRequired, got %v", err)
	}
}

func TestDescribeRolesAndEffectiveRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	details, err := svc.DescribeRoles()
	if err != nil {
		t.Fatalf("describe roles failed: %v", err)
	}
	var manager *RoleDetail
	for i := range details {
		if details[i].Role == "role:coupon_manager" {
			manager = &details[i]
		}
	}
	if manager == nil {
		t.Fatalf("coupon manager missing from %v", details)
	}
	if len(manager.Inherits) != 1 || manager.Inherits[0] != "role:auditor" {
		t.Fatalf("coupon manager should inherit auditor, got %v", manager.Inherits)
	}
	if len(manager.Policies) != 4 {
		t.Fatalf("coupon manager policies want 4, got %v", manager.Policies)
	}

	for i := 0; i < 2; i++ {
		if err := svc.GrantUserRole(6, " Coupon Manager "); err != nil {
			t.Fatalf("grant role #%d failed: %v", i, err)
		}
	}
	direct, err := svc.GetUserRoles(6)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(direct) != 1 || direct[0] != "role:coupon_manager" {
		t.Fatalf("direct roles want [role:coupon_manager], got %v", direct)
	}
	effective, err := svc.EffectiveRoles(6)
	if err != nil {
		t.Fatalf("effective roles failed: %v", err)
	}
	if strings.Join(effective, ",") != "role:auditor,role:coupon_manager" {
		t.Fatalf("unexpected effective roles: %v", effective)
	}
}

func TestRoleName(t *testing.T) {
	cases := map[string]string{
		"admin":            "role:admin",
		"role:auditor":     "role:auditor",
		" Coupon Manager ": "role:coupon_manager",
	}
	for in, want := range cases {
		got, err := RoleName(in)
		if err != nil || got != want {
			t.Fatalf("RoleName(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := RoleName("role:"); !errors.Is(err, ErrRoleRequired) {
		t.Fatalf("expected ErrRoleRequired, got %v", err)
	}
}
