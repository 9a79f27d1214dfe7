// =============================================================================
// 📦 ArtSpark 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("ARTSPARK").
//	    WithValidator((*config.Config).Validate).
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 ArtSpark 的完整配置结构
type Config struct {
	// Server 服务器配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// ModelScope 魔搭平台配置
	ModelScope ModelScopeConfig `yaml:"modelscope" env:"MODELSCOPE"`

	// DashScope 百炼平台配置
	DashScope DashScopeConfig `yaml:"dashscope" env:"DASHSCOPE"`

	// Studio 功能编排配置
	Studio StudioConfig `yaml:"studio" env:"STUDIO"`

	// Auth 会话令牌配置
	Auth AuthConfig `yaml:"auth" env:"AUTH"`

	// Storage 上传图片存储配置
	Storage StorageConfig `yaml:"storage" env:"STORAGE"`

	// Redis 缓存配置
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Database 用量台账数据库配置
	Database DatabaseConfig `yaml:"database" env:"DATABASE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时，需覆盖异步任务的轮询预算
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 每个客户端 IP 的每秒请求数
	RateLimitRPS int `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	// 突发请求上限
	RateLimitBurst int `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	// CORS 允许的来源
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
	// 请求体上限（字节），base64 图片较大
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
}

// ModelScopeConfig 魔搭推理 API 配置
type ModelScopeConfig struct {
	// 基础 URL（以 / 结尾）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 默认对话模型
	ChatModel string `yaml:"chat_model" env:"CHAT_MODEL"`
	// 默认识图模型
	VLModel string `yaml:"vl_model" env:"VL_MODEL"`
	// 默认生图模型
	ImageModel string `yaml:"image_model" env:"IMAGE_MODEL"`
	// 单次 HTTP 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 异步任务轮询间隔
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	// 异步任务总预算
	PollTimeout time.Duration `yaml:"poll_timeout" env:"POLL_TIMEOUT"`
}

// DashScopeConfig 百炼 API 配置
type DashScopeConfig struct {
	// 原生 API 基础 URL
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// OpenAI 兼容模式基础 URL
	CompatibleBaseURL string `yaml:"compatible_base_url" env:"COMPATIBLE_BASE_URL"`
	// 实时语音识别 WebSocket 地址
	WebSocketURL string `yaml:"websocket_url" env:"WEBSOCKET_URL"`
	// 默认对话模型
	ChatModel string `yaml:"chat_model" env:"CHAT_MODEL"`
	// 默认识图模型
	VLModel string `yaml:"vl_model" env:"VL_MODEL"`
	// 通用图像编辑模型
	ImageEditModel string `yaml:"image_edit_model" env:"IMAGE_EDIT_MODEL"`
	// 文生图模型
	TextToImageModel string `yaml:"text_to_image_model" env:"TEXT_TO_IMAGE_MODEL"`
	// 人像风格重绘模型
	PortraitModel string `yaml:"portrait_model" env:"PORTRAIT_MODEL"`
	// 语音识别模型
	ASRModel string `yaml:"asr_model" env:"ASR_MODEL"`
	// 单次 HTTP 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 异步任务轮询间隔
	PollInterval time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
	// 异步任务总预算
	PollTimeout time.Duration `yaml:"poll_timeout" env:"POLL_TIMEOUT"`
}

// StudioConfig 功能编排配置
type StudioConfig struct {
	// 默认年龄段
	DefaultAgeRange string `yaml:"default_age_range" env:"DEFAULT_AGE_RANGE"`
	// 默认平台: modelscope, bailian
	DefaultPlatform string `yaml:"default_platform" env:"DEFAULT_PLATFORM"`
	// 创意灵感示例图并发上限
	BatchConcurrency int `yaml:"batch_concurrency" env:"BATCH_CONCURRENCY"`
	// 提示词翻译缓存有效期
	TranslationCacheTTL time.Duration `yaml:"translation_cache_ttl" env:"TRANSLATION_CACHE_TTL"`
}

// AuthConfig 会话令牌配置
type AuthConfig struct {
	// HMAC 签名密钥
	Secret string `yaml:"secret" env:"SECRET"`
	// 令牌签发者
	Issuer string `yaml:"issuer" env:"ISSUER"`
	// 令牌有效期
	TokenTTL time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
}

// StorageConfig 上传图片存储配置
type StorageConfig struct {
	// 本地存储目录
	Dir string `yaml:"dir" env:"DIR"`
	// 对外可访问的基础 URL，上游平台通过它拉取图片
	PublicBaseURL string `yaml:"public_base_url" env:"PUBLIC_BASE_URL"`
	// 单张图片上限（字节）
	MaxUploadBytes int64 `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
	// 上传文件保留时长，0 表示不清理
	Retention time.Duration `yaml:"retention" env:"RETENTION"`
	// 清理间隔
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 是否启用（关闭时翻译不走缓存）
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// 地址
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
	// 连接池大小
	PoolSize int `yaml:"pool_size" env:"POOL_SIZE"`
	// 最小空闲连接
	MinIdleConns int `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// 驱动类型: postgres, mysql, sqlite；为空时不记录用量
	Driver string `yaml:"driver" env:"DRIVER"`
	// 主机
	Host string `yaml:"host" env:"HOST"`
	// 端口
	Port int `yaml:"port" env:"PORT"`
	// 用户名
	User string `yaml:"user" env:"USER"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名（sqlite 为文件路径）
	Name string `yaml:"name" env:"NAME"`
	// SSL 模式
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 部署环境，写入 deployment.environment
	Environment string `yaml:"environment" env:"ENVIRONMENT"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "ARTSPARK",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// time.Duration 按 "30s" 格式解析
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Server.MetricsPort < 0 || c.Server.MetricsPort > 65535 {
		errs = append(errs, "invalid metrics port")
	}

	// 一次请求可能阻塞整个轮询预算，写超时必须更长
	budget := c.ModelScope.PollTimeout
	if c.DashScope.PollTimeout > budget {
		budget = c.DashScope.PollTimeout
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= budget {
		errs = append(errs, fmt.Sprintf("write_timeout (%s) must exceed poll budget (%s)", c.Server.WriteTimeout, budget))
	}

	if c.ModelScope.PollInterval <= 0 || c.DashScope.PollInterval <= 0 {
		errs = append(errs, "poll_interval must be positive")
	}
	if c.Studio.BatchConcurrency <= 0 {
		errs = append(errs, "batch_concurrency must be positive")
	}

	if len(c.Auth.Secret) < 16 {
		errs = append(errs, "auth.secret must be at least 16 characters")
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, "auth.token_ttl must be positive")
	}

	switch c.Database.Driver {
	case "", "postgres", "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("unsupported database driver: %s", c.Database.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DSN 返回数据库连接字符串
func (d *DatabaseConfig) DSN() string {
	switch d.Driver {
	case "postgres":
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case "mysql":
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case "sqlite":
		return d.Name
	default:
		return ""
	}
}
