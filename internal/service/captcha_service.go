package service

import (
	"strings"
	"time"

	"github.com/tastemap/internal/config"
	"github.com/tastemap/internal/constants"

	"github.com/mojocn/base64Captcha"
)

const captchaCharset = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// CaptchaVerifyPayload 验证码校验载荷
type CaptchaVerifyPayload struct {
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

// CaptchaImageChallenge 图片验证码挑战
type CaptchaImageChallenge struct {
	CaptchaID   string `json:"captcha_id"`
	ImageBase64 string `json:"image_base64"`
}

// CaptchaService 图片验证码服务
// 按场景开关决定登录、注册是否需要验证码
type CaptchaService struct {
	cfg   config.CaptchaConfig
	store base64Captcha.Store
}

// NewCaptchaService 创建验证码服务，store 为空时使用进程内存储
func NewCaptchaService(cfg config.CaptchaConfig, store base64Captcha.Store) *CaptchaService {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.Image = normalizeCaptchaImage(cfg.Image)
	if store == nil {
		store = base64Captcha.NewMemoryStore(cfg.Image.MaxStore, time.Duration(cfg.Image.ExpireSeconds)*time.Second)
	}
	return &CaptchaService{cfg: cfg, store: store}
}

// SceneEnabled 场景是否需要验证码
func (s *CaptchaService) SceneEnabled(scene string) bool {
	if s == nil || s.cfg.Provider != constants.CaptchaProviderImage {
		return false
	}
	switch scene {
	case constants.CaptchaSceneLogin:
		return s.cfg.Scenes.Login
	case constants.CaptchaSceneRegister:
		return s.cfg.Scenes.Register
	default:
		return false
	}
}

// GenerateImageChallenge 生成图片验证码
func (s *CaptchaService) GenerateImageChallenge() (*CaptchaImageChallenge, error) {
	if s == nil || s.cfg.Provider != constants.CaptchaProviderImage {
		return nil, ErrCaptchaConfigInvalid
	}
	image := s.cfg.Image
	driver := base64Captcha.NewDriverString(
		image.Height,
		image.Width,
		image.NoiseCount,
		image.ShowLine,
		image.Length,
		captchaCharset,
		nil,
		base64Captcha.DefaultEmbeddedFonts,
		nil,
	)
	id, b64s, _, err := base64Captcha.NewCaptcha(driver, s.store).Generate()
	if err != nil {
		return nil, err
	}
	return &CaptchaImageChallenge{
		CaptchaID:   strings.TrimSpace(id),
		ImageBase64: strings.TrimSpace(b64s),
	}, nil
}

// Verify 按场景校验验证码，答案一次有效
func (s *CaptchaService) Verify(scene string, payload CaptchaVerifyPayload) error {
	if !s.SceneEnabled(scene) {
		return nil
	}
	captchaID := strings.TrimSpace(payload.CaptchaID)
	captchaCode := strings.TrimSpace(payload.CaptchaCode)
	if captchaID == "" || captchaCode == "" {
		return ErrCaptchaRequired
	}
	if !s.store.Verify(captchaID, captchaCode, true) {
		return ErrCaptchaInvalid
	}
	return nil
}

func normalizeCaptchaImage(image config.CaptchaImageConfig) config.CaptchaImageConfig {
	if image.Length < 4 || image.Length > 8 {
		image.Length = 5
	}
	if image.Width < 80 {
		image.Width = 240
	}
	if image.Height < 30 {
		image.Height = 80
	}
	if image.NoiseCount < 0 {
		image.NoiseCount = 2
	}
	if image.ShowLine < 0 {
		image.ShowLine = 2
	}
	if image.ExpireSeconds <= 0 {
		image.ExpireSeconds = 300
	}
	if image.MaxStore <= 0 {
		image.MaxStore = 10240
	}
	return image
}
