package config

import (
	"fmt"
	"strings"

	"github.com/tastemap/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	UserJWT  JWTConfig      `mapstructure:"user_jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
	Loyalty  LoyaltyConfig  `mapstructure:"loyalty"`
	Coupon   CouponConfig   `mapstructure:"coupon"`
	Captcha  CaptchaConfig  `mapstructure:"captcha"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver  string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN     string             `mapstructure:"dsn"`    // 数据库连接串
	LogMode string             `mapstructure:"log_mode"`
	Pool    DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	MaxRetry    int            `mapstructure:"max_retry"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	LoginRateLimit  RateLimitConfig `mapstructure:"login_rate_limit"`
	ClaimRateLimit  RateLimitConfig `mapstructure:"claim_rate_limit"`
	RedeemRateLimit RateLimitConfig `mapstructure:"redeem_rate_limit"`
	PasswordMinLen  int             `mapstructure:"password_min_length"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// LoyaltyConfig 积分与推荐配置
type LoyaltyConfig struct {
	Points   PointsRuleConfig   `mapstructure:"points"`
	Referral ReferralRuleConfig `mapstructure:"referral"`
	VisitQR  VisitQRConfig      `mapstructure:"visit_qr"`
	Review   ReviewConfig       `mapstructure:"review"`
}

// VisitQRConfig 门店到店码：员工出示短时签名码，用户扫码登记到店
type VisitQRConfig struct {
	Secret     string `mapstructure:"secret"` // 为空时沿用 user_jwt.secret
	TTLMinutes int    `mapstructure:"ttl_minutes"`
}

// ReviewConfig 点评内容限制
type ReviewConfig struct {
	MaxPhotos        int `mapstructure:"max_photos"`
	MaxContentLength int `mapstructure:"max_content_length"`
}

// PointsRuleConfig 各动作积分值
type PointsRuleConfig struct {
	ReviewAdd           int64 `mapstructure:"review_add"`
	ReviewLong          int64 `mapstructure:"review_long"`
	ReviewWithPhoto     int64 `mapstructure:"review_with_photo"`
	ReviewLongMinLength int   `mapstructure:"review_long_min_length"`
	VisitQR             int64 `mapstructure:"visit_qr"`
	ReservationVisit    int64 `mapstructure:"reservation_visit"`
}

// ReferralRuleConfig 推荐奖励配置
type ReferralRuleConfig struct {
	RegistrationReferrerBonus int64 `mapstructure:"registration_referrer_bonus"`
	RegistrationReferredBonus int64 `mapstructure:"registration_referred_bonus"`
	FirstVisitReferrerBonus   int64 `mapstructure:"first_visit_referrer_bonus"`
}

// CouponConfig 优惠券配置
type CouponConfig struct {
	ClaimValidityDays int    `mapstructure:"claim_validity_days"`
	QRPayloadPrefix   string `mapstructure:"qr_payload_prefix"`
}

// CaptchaConfig 验证码配置
type CaptchaConfig struct {
	Provider string             `mapstructure:"provider"` // none / image
	Scenes   CaptchaSceneConfig `mapstructure:"scenes"`
	Image    CaptchaImageConfig `mapstructure:"image"`
}

// CaptchaSceneConfig 验证码场景开关
type CaptchaSceneConfig struct {
	Login    bool `mapstructure:"login"`
	Register bool `mapstructure:"register"`
}

// CaptchaImageConfig 图片验证码配置
type CaptchaImageConfig struct {
	Length        int `mapstructure:"length"`
	Width         int `mapstructure:"width"`
	Height        int `mapstructure:"height"`
	NoiseCount    int `mapstructure:"noise_count"`
	ShowLine      int `mapstructure:"show_line"`
	ExpireSeconds int `mapstructure:"expire_seconds"`
	MaxStore      int `mapstructure:"max_store"`
}

// AdminConfig 初始管理员账号，启动时确保存在并授予 admin 角色
type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("../")   // 如果从 cmd/server 运行
	v.AddConfigPath("./etc") // etc 文件夹

	SetDefaults(v)

	// 环境变量支持（server.port -> SERVER_PORT）
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}

// Default 返回仅包含默认值的配置（测试与工具命令使用）
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	return &cfg
}

// SetDefaults 写入默认配置
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.level", "")
	v.SetDefault("log.dir", "")
	v.SetDefault("log.filename", "app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./db/tastemap.db")
	v.SetDefault("database.log_mode", "warn")
	v.SetDefault("database.pool.max_open_conns", 1)
	v.SetDefault("database.pool.max_idle_conns", 1)
	v.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	v.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	v.SetDefault("user_jwt.secret", "user-change-me-in-production")
	v.SetDefault("user_jwt.expire_hours", 168)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "tm")
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.host", "127.0.0.1")
	v.SetDefault("queue.port", 6379)
	v.SetDefault("queue.password", "")
	v.SetDefault("queue.db", 1)
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.max_retry", 5)
	v.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Accept-Language",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
	})
	v.SetDefault("cors.allow_credentials", true)
	v.SetDefault("cors.max_age", 600)
	v.SetDefault("security.login_rate_limit.window_seconds", 300)
	v.SetDefault("security.login_rate_limit.max_requests", 5)
	v.SetDefault("security.claim_rate_limit.window_seconds", 10)
	v.SetDefault("security.claim_rate_limit.max_requests", 5)
	v.SetDefault("security.redeem_rate_limit.window_seconds", 10)
	v.SetDefault("security.redeem_rate_limit.max_requests", 20)
	v.SetDefault("security.password_min_length", 8)
	v.SetDefault("loyalty.points.review_add", 10)
	v.SetDefault("loyalty.points.review_long", 5)
	v.SetDefault("loyalty.points.review_with_photo", 5)
	v.SetDefault("loyalty.points.review_long_min_length", 200)
	v.SetDefault("loyalty.points.visit_qr", 20)
	v.SetDefault("loyalty.points.reservation_visit", 15)
	v.SetDefault("loyalty.referral.registration_referrer_bonus", 10)
	v.SetDefault("loyalty.referral.registration_referred_bonus", 10)
	v.SetDefault("loyalty.referral.first_visit_referrer_bonus", 10)
	v.SetDefault("loyalty.visit_qr.secret", "")
	v.SetDefault("loyalty.visit_qr.ttl_minutes", 10)
	v.SetDefault("loyalty.review.max_photos", 9)
	v.SetDefault("loyalty.review.max_content_length", 5000)
	v.SetDefault("coupon.claim_validity_days", 365)
	v.SetDefault("coupon.qr_payload_prefix", "tastemap://coupons/redeem?token=")
	v.SetDefault("captcha.provider", "none")
	v.SetDefault("captcha.scenes.login", false)
	v.SetDefault("captcha.scenes.register", false)
	v.SetDefault("captcha.image.length", 5)
	v.SetDefault("captcha.image.width", 240)
	v.SetDefault("captcha.image.height", 80)
	v.SetDefault("captcha.image.noise_count", 2)
	v.SetDefault("captcha.image.show_line", 2)
	v.SetDefault("captcha.image.expire_seconds", 300)
	v.SetDefault("captcha.image.max_store", 10240)
	v.SetDefault("admin.email", "admin@tastemap.local")
	v.SetDefault("admin.password", "")
}
