// =============================================================================
// ArtSpark 主入口
// =============================================================================
// 儿童美术创作助手后端：HTTP 服务、健康检查、Prometheus 指标、用量台账
//
// 使用方法:
//
//	artspark serve                       # 启动服务
//	artspark serve --config config.yaml  # 指定配置文件
//	artspark migrate                     # 创建用量台账表
//	artspark usage --since 24h           # 查看最近的功能调用统计
//	artspark version                     # 显示版本信息
//	artspark health                      # 健康检查
// =============================================================================

// @title ArtSpark API
// @version 1.0.0
// @description 面向儿童美术教学的 AI 创作助手：线稿上色、风格迁移、人像工坊、
// @description 创意灵感、名画讲解、作业点评与语音输入。
// @description
// @description 平台可选魔搭（ModelScope）或百炼（DashScope），按请求切换。

// @contact.name ArtSpark Team

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey SessionToken
// @in header
// @name Authorization
// @description Bearer 会话令牌，由 /api/set_key 签发；也可用 query 参数 token

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/artspark/config"
	"github.com/BaSui01/artspark/internal/database"
	"github.com/BaSui01/artspark/internal/telemetry"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "usage":
		runUsage(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// loadConfig 加载并校验配置，失败直接退出
func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}

	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// =============================================================================
// 🖥️ serve 命令
// =============================================================================

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)

	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("Starting ArtSpark",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	otelProviders, err := telemetry.Init(context.Background(), cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry, continuing without export", zap.Error(err))
		otelProviders = telemetry.Noop()
	}

	server := NewServer(cfg, logger, otelProviders)
	if err := server.Start(); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	server.WaitForShutdown()
	logger.Info("ArtSpark stopped")
}

// =============================================================================
// 🗄️ 台账命令
// =============================================================================

func openLedger(configPath string) (*database.UsageRecorder, func()) {
	cfg := loadConfig(configPath)
	logger := initLogger(cfg.Log)

	if cfg.Database.Driver == "" {
		fmt.Fprintln(os.Stderr, "database.driver is not configured, usage ledger disabled")
		os.Exit(1)
	}
	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		logger.Sync()
	}
	return database.NewUsageRecorder(db, logger), closeFn
}

func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	ledger, closeFn := openLedger(*configPath)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := ledger.Migrate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Usage ledger is up to date")
}

func runUsage(args []string) {
	fs := flag.NewFlagSet("usage", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	since := fs.Duration("since", 24*time.Hour, "Look-back window")
	fs.Parse(args)

	ledger, closeFn := openLedger(*configPath)
	defer closeFn()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	rows, err := ledger.Summary(ctx, time.Now().Add(-*since))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query usage: %v\n", err)
		os.Exit(1)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FEATURE\tOUTCOME\tCOUNT")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", r.Feature, r.Outcome, r.Count)
	}
	tw.Flush()
}

// =============================================================================
// 🏥 健康检查命令
// =============================================================================

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "Server address")
	fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check failed: status %d\n", resp.StatusCode)
		os.Exit(1)
	}

	fmt.Println("OK")
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("ArtSpark %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`ArtSpark - AI art studio for kids

Usage:
  artspark <command> [options]

Commands:
  serve     Start the ArtSpark server
  migrate   Create or update the usage ledger table
  usage     Print feature call counts from the usage ledger
  version   Show version information
  health    Check server health
  help      Show this help message

Options for 'serve', 'migrate' and 'usage':
  --config <path>   Path to configuration file (YAML)

Options for 'usage':
  --since <dur>     Look-back window (default 24h)

Examples:
  artspark serve
  artspark serve --config /etc/artspark/config.yaml
  artspark migrate --config /etc/artspark/config.yaml
  artspark usage --since 168h
  artspark health --addr http://localhost:8080
  artspark version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stdout"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		logger, _ = zap.NewProduction()
	}
	return logger
}
