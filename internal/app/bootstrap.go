package app

import (
	"errors"
	"fmt"

	"github.com/tastemap/internal/authz"
	"github.com/tastemap/internal/config"
	"github.com/tastemap/internal/logger"
	"github.com/tastemap/internal/models"
	"github.com/tastemap/internal/provider"
	"github.com/tastemap/internal/router"
	"github.com/tastemap/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if !IsValidMode(mode) {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}

	container := provider.NewContainer(cfg)
	if err := EnsureAdmin(cfg, container.AuthzService); err != nil {
		logger.Warnw("app_ensure_admin_failed", "error", err)
	}

	var services []Service

	// 初始化 HTTP 服务
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
	}

	// 初始化 Worker 服务；all 模式下队列未启用时仅跳过
	if mode == ModeAll || mode == ModeWorker {
		consumer := worker.NewConsumer(container)
		workerService, err := worker.NewService(&cfg.Queue, consumer)
		if err != nil {
			if mode == ModeWorker {
				return nil, err
			}
			logger.Warnw("app_worker_skipped", "reason", err.Error())
		} else {
			services = append(services, workerService)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("no services initialized (check mode and config)")
	}

	// 逆序停止，资源释放放在最前以便最后执行
	services = append([]Service{newResourceCloser(container)}, services...)
	return NewRunner(services...), nil
}

// EnsureAdmin 确保初始管理员存在并拥有 admin 角色
func EnsureAdmin(cfg *config.Config, authzService *authz.Service) error {
	if cfg == nil || authzService == nil {
		return errors.New("admin bootstrap dependencies missing")
	}
	if cfg.Server.Mode == "release" && cfg.Admin.Password == "" {
		logger.Warnw("app_admin_bootstrap_skipped", "reason", "admin.password not set in release mode")
		return nil
	}
	user, err := models.EnsureAdminUser(cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		return err
	}
	if err := authzService.GrantUserRole(user.ID, authz.RoleAdmin); err != nil {
		return err
	}
	logger.Infow("app_admin_role_granted", "user_id", user.ID, "email", user.Email)
	return nil
}

// Run 应用启动入口
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode)
	return RunWithOptions(runner, opts)
}
