package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Auth.Secret = "0123456789abcdef0123"
	return cfg
}

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "6-8岁", cfg.Studio.DefaultAgeRange)
	assert.Equal(t, "modelscope", cfg.Studio.DefaultPlatform)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  http_port: 9000
  write_timeout: 300s
modelscope:
  chat_model: "Qwen/Qwen2.5-72B-Instruct"
  poll_interval: 2s
dashscope:
  asr_model: "paraformer-realtime-8k-v2"
studio:
  default_age_range: "9-10岁"
  batch_concurrency: 3
redis:
  enabled: true
  addr: "redis:6379"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.HTTPPort)
	assert.Equal(t, 300*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "Qwen/Qwen2.5-72B-Instruct", cfg.ModelScope.ChatModel)
	assert.Equal(t, 2*time.Second, cfg.ModelScope.PollInterval)
	assert.Equal(t, "paraformer-realtime-8k-v2", cfg.DashScope.ASRModel)
	assert.Equal(t, "9-10岁", cfg.Studio.DefaultAgeRange)
	assert.Equal(t, 3, cfg.Studio.BatchConcurrency)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)

	// 未出现在 YAML 中的字段保留默认值
	assert.Equal(t, "qwen-plus", cfg.DashScope.ChatModel)
	assert.Equal(t, 180*time.Second, cfg.ModelScope.PollTimeout)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	t.Setenv("ARTSPARK_SERVER_HTTP_PORT", "7070")
	t.Setenv("ARTSPARK_DASHSCOPE_POLL_INTERVAL", "1s")
	t.Setenv("ARTSPARK_AUTH_SECRET", "env-secret-value-1234")
	t.Setenv("ARTSPARK_REDIS_ENABLED", "true")
	t.Setenv("ARTSPARK_SERVER_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ARTSPARK_TELEMETRY_SAMPLE_RATE", "0.5")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.HTTPPort)
	assert.Equal(t, time.Second, cfg.DashScope.PollInterval)
	assert.Equal(t, "env-secret-value-1234", cfg.Auth.Secret)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
	assert.InDelta(t, 0.5, cfg.Telemetry.SampleRate, 0.0001)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
studio:
  default_platform: "modelscope"
storage:
  public_base_url: "http://yaml.example"
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))

	t.Setenv("ARTSPARK_STUDIO_DEFAULT_PLATFORM", "bailian")

	cfg, err := NewLoader().WithConfigPath(configPath).Load()
	require.NoError(t, err)

	assert.Equal(t, "bailian", cfg.Studio.DefaultPlatform)
	assert.Equal(t, "http://yaml.example", cfg.Storage.PublicBaseURL)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	t.Setenv("STUDIO_SERVER_HTTP_PORT", "6666")

	cfg, err := NewLoader().WithEnvPrefix("STUDIO").Load()
	require.NoError(t, err)
	assert.Equal(t, 6666, cfg.Server.HTTPPort)
}

func TestLoader_InvalidEnvValue(t *testing.T) {
	t.Setenv("ARTSPARK_MODELSCOPE_POLL_TIMEOUT", "three minutes")

	_, err := NewLoader().Load()
	assert.Error(t, err)
}

func TestLoader_WithValidator(t *testing.T) {
	// 默认配置没有签名密钥，Validate 应当拒绝
	_, err := NewLoader().WithValidator((*Config).Validate).Load()
	assert.Error(t, err)

	t.Setenv("ARTSPARK_AUTH_SECRET", "a-long-enough-secret")
	cfg, err := NewLoader().WithValidator((*Config).Validate).Load()
	require.NoError(t, err)
	assert.Equal(t, "a-long-enough-secret", cfg.Auth.Secret)
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().
		WithConfigPath("/non/existent/path/config.yaml").
		Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  http_port: [invalid\n"), 0644))

	_, err := NewLoader().WithConfigPath(configPath).Load()
	assert.Error(t, err)
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid HTTP port",
			modify:  func(c *Config) { c.Server.HTTPPort = 70000 },
			wantErr: true,
		},
		{
			name:    "short secret",
			modify:  func(c *Config) { c.Auth.Secret = "short" },
			wantErr: true,
		},
		{
			name:    "write timeout within poll budget",
			modify:  func(c *Config) { c.Server.WriteTimeout = 60 * time.Second },
			wantErr: true,
		},
		{
			name: "write timeout checked against the longer budget",
			modify: func(c *Config) {
				c.DashScope.PollTimeout = 300 * time.Second
			},
			wantErr: true,
		},
		{
			name:    "zero poll interval",
			modify:  func(c *Config) { c.ModelScope.PollInterval = 0 },
			wantErr: true,
		},
		{
			name:    "zero batch concurrency",
			modify:  func(c *Config) { c.Studio.BatchConcurrency = 0 },
			wantErr: true,
		},
		{
			name:    "unsupported driver",
			modify:  func(c *Config) { c.Database.Driver = "oracle" },
			wantErr: true,
		},
		{
			name:    "ledger disabled",
			modify:  func(c *Config) { c.Database.Driver = "" },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "postgres DSN",
			config: DatabaseConfig{
				Driver: "postgres", Host: "localhost", Port: 5432,
				User: "user", Password: "pass", Name: "dbname", SSLMode: "disable",
			},
			expected: "host=localhost port=5432 user=user password=pass dbname=dbname sslmode=disable",
		},
		{
			name: "mysql DSN",
			config: DatabaseConfig{
				Driver: "mysql", Host: "localhost", Port: 3306,
				User: "user", Password: "pass", Name: "dbname",
			},
			expected: "user:pass@tcp(localhost:3306)/dbname?parseTime=true&charset=utf8mb4",
		},
		{
			name:     "sqlite DSN",
			config:   DatabaseConfig{Driver: "sqlite", Name: "/path/to/artspark.db"},
			expected: "/path/to/artspark.db",
		},
		{
			name:     "unknown driver",
			config:   DatabaseConfig{Driver: "unknown"},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

func TestMustLoad(t *testing.T) {
	tmpDir := t.TempDir()

	good := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(good, []byte("server:\n  http_port: 8081\n"), 0644))
	assert.NotPanics(t, func() {
		assert.Equal(t, 8081, MustLoad(good).Server.HTTPPort)
	})

	bad := filepath.Join(tmpDir, "invalid.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("invalid: [yaml"), 0644))
	assert.Panics(t, func() { MustLoad(bad) })
}
