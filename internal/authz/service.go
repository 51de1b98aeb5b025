package authz

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/util"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"gorm.io/gorm"
)

const (
	ruleTable  = "casbin_rule"
	apiPrefix  = "api/v1"
	rolePrefix = "role:"
	userPrefix = "user:"
)

// 管理端规则：用户 -> 角色（可继承）-> (路由模板, HTTP 方法)
const loyaltyRBACModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (p.act == "*" || r.act == p.act)
`

var (
	// ErrUnavailable 授权服务未初始化
	ErrUnavailable = errors.New("authz service unavailable")
	// ErrRoleRequired 角色名为空
	ErrRoleRequired = errors.New("role is required")
	// ErrRoleUnknown 角色未定义任何权限
	ErrRoleUnknown = errors.New("role is not defined")
	// ErrActionRequired 动作为空
	ErrActionRequired = errors.New("action is required")
	// ErrUserRequired 用户 ID 为空
	ErrUserRequired = errors.New("user id is required")
)

// Policy 角色的一条接口权限
type Policy struct {
	Role   string `json:"role"`
	Object string `json:"object"`
	Action string `json:"action"`
}

// RoleDetail 角色及其继承关系、权限
type RoleDetail struct {
	Role     string   `json:"role"`
	Inherits []string `json:"inherits"`
	Policies []Policy `json:"policies"`
}

// Service 管理端 RBAC，规则持久化在 casbin_rule 表
type Service struct {
	enforcer *casbin.SyncedEnforcer
}

// NewService 创建授权服务并加载已持久化的规则
func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, errors.New("authz db is nil")
	}
	rbacModel, err := model.NewModelFromString(loyaltyRBACModel)
	if err != nil {
		return nil, fmt.Errorf("parse rbac model: %w", err)
	}
	adapter, err := gormadapter.NewAdapterByDBUseTableName(db, "", ruleTable)
	if err != nil {
		return nil, fmt.Errorf("open casbin adapter: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(rbacModel, adapter)
	if err != nil {
		return nil, fmt.Errorf("build enforcer: %w", err)
	}
	enforcer.AddFunction("keyMatch2", util.KeyMatch2Func)
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, fmt.Errorf("load rbac rules: %w", err)
	}
	return &Service{enforcer: enforcer}, nil
}

func (s *Service) ready() error {
	if s == nil || s.enforcer == nil {
		return ErrUnavailable
	}
	return nil
}

// Authorize 判断用户能否以 action 访问路由模板 object
func (s *Service) Authorize(userID uint, object, action string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	if userID == 0 {
		return false, ErrUserRequired
	}
	return s.enforcer.Enforce(UserSubject(userID), NormalizeObject(object), NormalizeAction(action))
}

// GrantRolePolicy 为角色追加权限，角色不存在时随之创建
func (s *Service) GrantRolePolicy(role, object, action string) error {
	if err := s.ready(); err != nil {
		return err
	}
	name, err := RoleName(role)
	if err != nil {
		return err
	}
	act := NormalizeAction(action)
	if act == "" {
		return ErrActionRequired
	}
	if _, err := s.enforcer.AddPolicy(name, NormalizeObject(object), act); err != nil {
		return fmt.Errorf("grant %s %s to %s: %w", act, object, name, err)
	}
	return nil
}

// GrantUserRole 为用户追加单个角色
func (s *Service) GrantUserRole(userID uint, role string) error {
	names, err := s.knownRoles([]string{role})
	if err != nil {
		return err
	}
	if userID == 0 {
		return ErrUserRequired
	}
	if _, err := s.enforcer.AddRoleForUser(UserSubject(userID), names[0]); err != nil {
		return fmt.Errorf("grant role to user %d: %w", userID, err)
	}
	return nil
}

// SetUserRoles 用给定角色集合覆盖用户的直接角色
func (s *Service) SetUserRoles(userID uint, roles []string) error {
	if userID == 0 {
		return ErrUserRequired
	}
	names, err := s.knownRoles(roles)
	if err != nil {
		return err
	}
	subject := UserSubject(userID)
	if _, err := s.enforcer.DeleteRolesForUser(subject); err != nil {
		return fmt.Errorf("clear roles of user %d: %w", userID, err)
	}
	if len(names) == 0 {
		return nil
	}
	if _, err := s.enforcer.AddRolesForUser(subject, names); err != nil {
		return fmt.Errorf("assign roles to user %d: %w", userID, err)
	}
	return nil
}

// GetUserRoles 用户直接拥有的角色
func (s *Service) GetUserRoles(userID uint) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if userID == 0 {
		return nil, ErrUserRequired
	}
	roles, err := s.enforcer.GetRolesForUser(UserSubject(userID))
	if err != nil {
		return nil, fmt.Errorf("roles of user %d: %w", userID, err)
	}
	return sortedRoles(roles), nil
}

// EffectiveRoles 用户直接与继承得到的全部角色
func (s *Service) EffectiveRoles(userID uint) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if userID == 0 {
		return nil, ErrUserRequired
	}
	roles, err := s.enforcer.GetImplicitRolesForUser(UserSubject(userID))
	if err != nil {
		return nil, fmt.Errorf("implicit roles of user %d: %w", userID, err)
	}
	return sortedRoles(roles), nil
}

// ListRoles 已定义的角色（拥有权限或继承其他角色）
func (s *Service) ListRoles() ([]string, error) {
	details, err := s.DescribeRoles()
	if err != nil {
		return nil, err
	}
	roles := make([]string, 0, len(details))
	for _, detail := range details {
		roles = append(roles, detail.Role)
	}
	return roles, nil
}

// DescribeRoles 角色矩阵：继承关系与权限列表
func (s *Service) DescribeRoles() ([]RoleDetail, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	policies, err := s.enforcer.GetPolicy()
	if err != nil {
		return nil, fmt.Errorf("read policies: %w", err)
	}
	links, err := s.enforcer.GetGroupingPolicy()
	if err != nil {
		return nil, fmt.Errorf("read role links: %w", err)
	}

	byRole := make(map[string]*RoleDetail)
	detailOf := func(role string) *RoleDetail {
		if detail, ok := byRole[role]; ok {
			return detail
		}
		detail := &RoleDetail{Role: role, Inherits: []string{}, Policies: []Policy{}}
		byRole[role] = detail
		return detail
	}
	for _, rule := range policies {
		if len(rule) < 3 || !strings.HasPrefix(rule[0], rolePrefix) {
			continue
		}
		detail := detailOf(rule[0])
		detail.Policies = append(detail.Policies, Policy{Role: rule[0], Object: rule[1], Action: rule[2]})
	}
	for _, link := range links {
		if len(link) < 2 || !strings.HasPrefix(link[0], rolePrefix) {
			continue
		}
		detail := detailOf(link[0])
		detail.Inherits = append(detail.Inherits, link[1])
	}

	out := make([]RoleDetail, 0, len(byRole))
	for _, detail := range byRole {
		sort.Strings(detail.Inherits)
		sort.Slice(detail.Policies, func(i, j int) bool {
			if detail.Policies[i].Object == detail.Policies[j].Object {
				return detail.Policies[i].Action < detail.Policies[j].Action
			}
			return detail.Policies[i].Object < detail.Policies[j].Object
		})
		out = append(out, *detail)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Role < out[j].Role })
	return out, nil
}

// knownRoles 归一化角色名并确认每个角色都已定义
func (s *Service) knownRoles(roles []string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	defined, err := s.ListRoles()
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(defined))
	for _, role := range defined {
		known[role] = struct{}{}
	}
	names := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		name, err := RoleName(role)
		if err != nil {
			return nil, err
		}
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrRoleUnknown, name)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names, nil
}

func sortedRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if !strings.HasPrefix(role, rolePrefix) {
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}

// UserSubject 用户在规则中的主体名
func UserSubject(userID uint) string {
	return fmt.Sprintf("%s%d", userPrefix, userID)
}

// RoleName 角色名统一为 role:xxx，空白替换为下划线
func RoleName(role string) (string, error) {
	name := strings.Join(strings.Fields(strings.ToLower(role)), "_")
	name = strings.TrimPrefix(name, rolePrefix)
	if name == "" {
		return "", ErrRoleRequired
	}
	return rolePrefix + name, nil
}

// NormalizeObject 去掉 /api/v1 前缀，得到规则中使用的路由模板
func NormalizeObject(object string) string {
	trimmed := strings.Trim(strings.TrimSpace(object), "/")
	if rest, ok := strings.CutPrefix(trimmed, apiPrefix); ok && (rest == "" || strings.HasPrefix(rest, "/")) {
		trimmed = strings.TrimPrefix(rest, "/")
	}
	return "/" + trimmed
}

// NormalizeAction HTTP 方法大写
func NormalizeAction(action string) string {
	return strings.ToUpper(strings.TrimSpace(action))
}
