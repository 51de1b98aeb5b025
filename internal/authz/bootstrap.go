package authz

import "fmt"

const (
	// RoleAdmin 超级管理员
	RoleAdmin = "admin"
	// RoleAuditor 只读审计
	RoleAuditor = "auditor"
	// RoleCouponManager 优惠券与门店员工运营
	RoleCouponManager = "coupon_manager"
)

// builtinRole 预置角色：父角色与 (路由模板, 方法) 列表
type builtinRole struct {
	name     string
	parent   string
	policies [][2]string
}

var builtinRoles = []builtinRole{
	{
		name:     RoleAuditor,
		policies: [][2]string{{"/admin/*", "GET"}},
	},
	{
		name:   RoleCouponManager,
		parent: RoleAuditor,
		policies: [][2]string{
			{"/admin/coupons", "*"},
			{"/admin/coupons/:id", "*"},
			{"/admin/coupons/:id/status", "PATCH"},
			{"/admin/restaurants/:id/staff", "*"},
		},
	},
	{
		name:     RoleAdmin,
		parent:   RoleCouponManager,
		policies: [][2]string{{"/admin/*", "*"}},
	},
}

// BootstrapBuiltinRoles 写入预置角色矩阵，已存在的规则跳过
func (s *Service) BootstrapBuiltinRoles() error {
	if err := s.ready(); err != nil {
		return err
	}
	var policies, links [][]string
	for _, seed := range builtinRoles {
		role, err := RoleName(seed.name)
		if err != nil {
			return err
		}
		for _, p := range seed.policies {
			policies = append(policies, []string{role, NormalizeObject(p[0]), NormalizeAction(p[1])})
		}
		if seed.parent != "" {
			parent, err := RoleName(seed.parent)
			if err != nil {
				return err
			}
			links = append(links, []string{role, parent})
		}
	}
	if _, err := s.enforcer.AddPoliciesEx(policies); err != nil {
		return fmt.Errorf("seed builtin policies: %w", err)
	}
	if _, err := s.enforcer.AddGroupingPoliciesEx(links); err != nil {
		return fmt.Errorf("seed builtin role links: %w", err)
	}
	return nil
}
