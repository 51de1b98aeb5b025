package public

import "github.com/tastemap/internal/provider"

// Handler 用户侧接口处理器入口
// 说明：注册登录、领券核销、推荐、积分与到店活动。
type Handler struct {
	*provider.Container
}

// New 创建用户侧处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
