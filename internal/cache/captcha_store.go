package cache

import (
	"context"
	"errors"
	"time"

	"github.com/tastemap/internal/logger"

	"github.com/mojocn/base64Captcha"
	"github.com/redis/go-redis/v9"
)

const captchaStoreTimeout = 2 * time.Second

// captchaStore 图片验证码答案存放在 Redis，多实例共享
type captchaStore struct {
	ttl time.Duration
}

// NewCaptchaStore 创建 Redis 验证码存储，Redis 未启用时返回 nil
func NewCaptchaStore(ttl time.Duration) base64Captcha.Store {
	if !Enabled() {
		return nil
	}
	return &captchaStore{ttl: ttl}
}

func captchaKey(id string) string {
	return BuildKey("captcha:" + id)
}

// Set 写入答案
func (s *captchaStore) Set(id, value string) error {
	if !Enabled() {
		return errors.New("redis disabled")
	}
	ctx, cancel := context.WithTimeout(context.Background(), captchaStoreTimeout)
	defer cancel()
	return redisClient.Set(ctx, captchaKey(id), value, s.ttl).Err()
}

// Get 读取答案，clear 为真时读后删除
func (s *captchaStore) Get(id string, clear bool) string {
	if !Enabled() || id == "" {
		return ""
	}
	ctx, cancel := context.WithTimeout(context.Background(), captchaStoreTimeout)
	defer cancel()
	var cmd *redis.StringCmd
	if clear {
		cmd = redisClient.GetDel(ctx, captchaKey(id))
	} else {
		cmd = redisClient.Get(ctx, captchaKey(id))
	}
	val, err := cmd.Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warnw("captcha_store_read_failed", "captcha_id", id, "error", err)
		}
		return ""
	}
	return val
}

// Verify 校验答案
func (s *captchaStore) Verify(id, answer string, clear bool) bool {
	stored := s.Get(id, clear)
	return stored != "" && stored == answer
}
