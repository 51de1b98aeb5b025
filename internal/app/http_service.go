package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tastemap/internal/cache"
	"github.com/tastemap/internal/logger"
	"github.com/tastemap/internal/provider"
)

// HTTPService HTTP 服务封装
type HTTPService struct {
	name   string
	server *http.Server
}

// NewHTTPService 创建 HTTP 服务
func NewHTTPService(addr string, handler http.Handler) *HTTPService {
	return &HTTPService{
		name: "http",
		server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Name 服务名称
func (s *HTTPService) Name() string {
	if s == nil || s.name == "" {
		return "http"
	}
	return s.name
}

// Start 启动服务
func (s *HTTPService) Start(ctx context.Context) error {
	if s == nil || s.server == nil {
		return errors.New("http server not initialized")
	}
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 停止服务
func (s *HTTPService) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// resourceCloser 在其余服务停止后释放 Redis 与队列连接
type resourceCloser struct {
	container *provider.Container
}

func newResourceCloser(c *provider.Container) *resourceCloser {
	return &resourceCloser{container: c}
}

func (r *resourceCloser) Name() string { return "resources" }

// Start 阻塞至退出
func (r *resourceCloser) Start(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

// Stop 关闭连接
func (r *resourceCloser) Stop(_ context.Context) error {
	if r.container != nil && r.container.QueueClient != nil {
		if err := r.container.QueueClient.Close(); err != nil {
			logger.Warnw("app_queue_client_close_failed", "error", err)
		}
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("app_redis_close_failed", "error", err)
	}
	logger.Sync()
	return nil
}
