// =============================================================================
// 📦 ArtSpark 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:     DefaultServerConfig(),
		ModelScope: DefaultModelScopeConfig(),
		DashScope:  DefaultDashScopeConfig(),
		Studio:     DefaultStudioConfig(),
		Auth:       DefaultAuthConfig(),
		Storage:    DefaultStorageConfig(),
		Redis:      DefaultRedisConfig(),
		Database:   DefaultDatabaseConfig(),
		Log:        DefaultLogConfig(),
		Telemetry:  DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:           8080,
		MetricsPort:        9091,
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       240 * time.Second,
		ShutdownTimeout:    15 * time.Second,
		RateLimitRPS:       5,
		RateLimitBurst:     20,
		CORSAllowedOrigins: []string{"*"},
		MaxBodyBytes:       32 << 20,
	}
}

// DefaultModelScopeConfig 返回默认魔搭配置
func DefaultModelScopeConfig() ModelScopeConfig {
	return ModelScopeConfig{
		BaseURL:      "https://api-inference.modelscope.cn/",
		ChatModel:    "Qwen/Qwen3-30B-A3B-Instruct-2507",
		VLModel:      "Qwen/Qwen3-VL-8B-Instruct",
		ImageModel:   "black-forest-labs/FLUX.1-Krea-dev",
		Timeout:      60 * time.Second,
		PollInterval: 3 * time.Second,
		PollTimeout:  180 * time.Second,
	}
}

// DefaultDashScopeConfig 返回默认百炼配置
func DefaultDashScopeConfig() DashScopeConfig {
	return DashScopeConfig{
		BaseURL:           "https://dashscope.aliyuncs.com/api/v1",
		CompatibleBaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
		WebSocketURL:      "wss://dashscope.aliyuncs.com/api-ws/v1/inference",
		ChatModel:         "qwen-plus",
		VLModel:           "qwen-vl-plus",
		ImageEditModel:    "wanx2.1-imageedit",
		TextToImageModel:  "wanx2.1-t2i-turbo",
		PortraitModel:     "wanx-style-repaint-v1",
		ASRModel:          "paraformer-realtime-v2",
		Timeout:           60 * time.Second,
		PollInterval:      5 * time.Second,
		PollTimeout:       180 * time.Second,
	}
}

// DefaultStudioConfig 返回默认编排配置
func DefaultStudioConfig() StudioConfig {
	return StudioConfig{
		DefaultAgeRange:     "6-8岁",
		DefaultPlatform:     "modelscope",
		BatchConcurrency:    5,
		TranslationCacheTTL: 24 * time.Hour,
	}
}

// DefaultAuthConfig 返回默认令牌配置（Secret 必须由部署方提供）
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		Secret:   "",
		Issuer:   "artspark",
		TokenTTL: 30 * 24 * time.Hour,
	}
}

// DefaultStorageConfig 返回默认存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Dir:            "data/files",
		PublicBaseURL:  "http://localhost:8080",
		MaxUploadBytes: 20 << 20,
		Retention:      24 * time.Hour,
		SweepInterval:  time.Hour,
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:      false,
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
	}
}

// DefaultDatabaseConfig 返回默认数据库配置
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          "sqlite",
		Host:            "localhost",
		Port:            5432,
		User:            "artspark",
		Password:        "",
		Name:            "data/artspark.db",
		SSLMode:         "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "artspark",
		Environment:  "development",
		SampleRate:   0.1,
	}
}
