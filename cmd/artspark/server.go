package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/artspark/api/handlers"
	"github.com/BaSui01/artspark/config"
	"github.com/BaSui01/artspark/internal/cache"
	"github.com/BaSui01/artspark/internal/credential"
	"github.com/BaSui01/artspark/internal/database"
	"github.com/BaSui01/artspark/internal/metrics"
	"github.com/BaSui01/artspark/internal/server"
	"github.com/BaSui01/artspark/internal/storage"
	"github.com/BaSui01/artspark/internal/telemetry"
	"github.com/BaSui01/artspark/llm/image"
	"github.com/BaSui01/artspark/llm/providers/dashscope"
	"github.com/BaSui01/artspark/llm/providers/modelscope"
	"github.com/BaSui01/artspark/llm/speech"
	"github.com/BaSui01/artspark/studio"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 ArtSpark 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// 基础设施
	registry    *prometheus.Registry
	collector   *metrics.Collector
	credentials *credential.Manager
	store       *storage.LocalStore
	cacheMgr    *cache.Manager
	dbPool      *database.PoolManager
	otel        *telemetry.Providers

	// Handlers
	healthHandler *handlers.HealthHandler
	authHandler   *handlers.AuthHandler
	studioHandler *handlers.StudioHandler

	// 后台任务生命周期
	bgCancel context.CancelFunc
	wg       sync.WaitGroup
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger, otelProviders *telemetry.Providers) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		otel:   otelProviders,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	bgCtx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	// 1. 指标收集器（独立 Registry，便于 /metrics 只暴露本服务指标）
	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.collector = metrics.NewCollector("artspark", s.registry, s.logger)

	// 2. 基础设施与 Handlers
	if err := s.initInfrastructure(bgCtx); err != nil {
		return fmt.Errorf("failed to init infrastructure: %w", err)
	}
	if err := s.initHandlers(); err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}

	// 3. HTTP 服务器
	if err := s.startHTTPServer(bgCtx); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 4. Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
		zap.Bool("redis_enabled", s.cacheMgr != nil),
		zap.Bool("usage_ledger_enabled", s.dbPool != nil),
	)
	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initInfrastructure 初始化令牌、存储、缓存与数据库；缓存和数据库不可用时降级运行
func (s *Server) initInfrastructure(ctx context.Context) error {
	creds, err := credential.NewManager(s.cfg.Auth)
	if err != nil {
		return err
	}
	s.credentials = creds

	store, err := storage.NewLocalStore(s.cfg.Storage, s.logger)
	if err != nil {
		return err
	}
	s.store = store
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		store.RunSweeper(ctx, s.cfg.Storage.SweepInterval)
	}()

	if s.cfg.Redis.Enabled {
		mgr, err := cache.NewManager(cache.ConfigFrom(s.cfg.Redis, s.cfg.Studio.TranslationCacheTTL), s.logger)
		if err != nil {
			s.logger.Warn("Redis not available, translation cache disabled", zap.Error(err))
		} else {
			s.cacheMgr = mgr
		}
	}

	if s.cfg.Database.Driver != "" {
		if err := s.initDatabase(ctx); err != nil {
			s.logger.Warn("Database not available, usage ledger disabled", zap.Error(err))
		}
	}
	return nil
}

func (s *Server) initDatabase(ctx context.Context) error {
	db, err := database.Open(s.cfg.Database, s.logger)
	if err != nil {
		return err
	}
	pool, err := database.NewPoolManager(db, database.PoolConfigFrom(s.cfg.Database), s.logger)
	if err != nil {
		return err
	}
	s.dbPool = pool

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.reportPoolStats(ctx)
	}()
	return nil
}

// reportPoolStats 定期把连接池状态写入指标
func (s *Server) reportPoolStats(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := s.dbPool.GetStats()
			s.collector.RecordDBConnections(s.cfg.Database.Driver, st.OpenConnections, st.Idle)
		}
	}
}

// initHandlers 组装执行器、Studio 与各 handler
func (s *Server) initHandlers() error {
	onPoll := func(provider string) func(*image.Task) {
		return func(t *image.Task) {
			s.collector.RecordTaskPoll(provider, string(t.Status))
		}
	}

	ms := modelscope.New(modelscope.Config{
		BaseURL:      s.cfg.ModelScope.BaseURL,
		ChatModel:    s.cfg.ModelScope.ChatModel,
		VLModel:      s.cfg.ModelScope.VLModel,
		ImageModel:   s.cfg.ModelScope.ImageModel,
		Timeout:      s.cfg.ModelScope.Timeout,
		PollInterval: s.cfg.ModelScope.PollInterval,
		PollTimeout:  s.cfg.ModelScope.PollTimeout,
	}, s.logger).OnPoll(onPoll(modelscope.ProviderName))

	ds := dashscope.New(dashscope.Config{
		BaseURL:           s.cfg.DashScope.BaseURL,
		CompatibleBaseURL: s.cfg.DashScope.CompatibleBaseURL,
		ChatModel:         s.cfg.DashScope.ChatModel,
		VLModel:           s.cfg.DashScope.VLModel,
		ImageEditModel:    s.cfg.DashScope.ImageEditModel,
		TextToImageModel:  s.cfg.DashScope.TextToImageModel,
		PortraitModel:     s.cfg.DashScope.PortraitModel,
		Timeout:           s.cfg.DashScope.Timeout,
		PollInterval:      s.cfg.DashScope.PollInterval,
		PollTimeout:       s.cfg.DashScope.PollTimeout,
	}, s.logger).OnPoll(onPoll(dashscope.ProviderName))

	asr := speech.NewClient(speech.Config{
		URL:   s.cfg.DashScope.WebSocketURL,
		Model: s.cfg.DashScope.ASRModel,
	}, s.logger)

	var translationCache studio.Cache
	if s.cacheMgr != nil {
		translationCache = s.cacheMgr
	}
	translator := studio.NewTranslator(translationCache, s.cfg.Studio.TranslationCacheTTL, s.collector, s.logger)

	opts := []studio.Option{
		studio.WithTranscriber(asr),
		studio.WithKeyValidator(ms),
		studio.WithTranslator(translator),
		studio.WithBatchLimit(s.cfg.Studio.BatchConcurrency),
		studio.WithMetrics(s.collector),
		studio.WithTracer(s.otel.Features()),
		studio.WithLogger(s.logger),
	}
	if s.dbPool != nil {
		ledger := database.NewUsageRecorder(s.dbPool.DB(), s.logger)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := ledger.Migrate(ctx); err != nil {
			s.logger.Error("Usage ledger auto-migrate failed", zap.Error(err))
		} else {
			opts = append(opts, studio.WithUsageRecorder(ledger))
		}
	}

	st := studio.New([]studio.Backend{
		studio.NewModelScopeBackend(ms, s.store, translator, s.logger),
		studio.NewDashScopeBackend(ds, s.logger),
	}, opts...)

	s.healthHandler = handlers.NewHealthHandler(s.logger)
	if s.cacheMgr != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("redis", s.cacheMgr.Ping))
	}
	if s.dbPool != nil {
		s.healthHandler.RegisterCheck(handlers.NewPingCheck("database", s.dbPool.Ping))
	}

	s.authHandler = handlers.NewAuthHandler(st, s.credentials, s.credentials, s.logger)
	s.studioHandler = handlers.NewStudioHandler(st, studio.DefaultsFrom(s.cfg), s.cfg.Server.MaxBodyBytes, s.logger)

	s.logger.Info("Handlers initialized")
	return nil
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// routes 注册全部路由
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// 健康检查
	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// 上传图片，供上游平台拉取
	mux.Handle("GET /files/", s.store.Handler())

	// API
	s.authHandler.Register(mux)
	s.studioHandler.Register(mux)
	return mux
}

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer(ctx context.Context) error {
	handler := Chain(s.routes(),
		Recovery(s.logger),
		RequestID(),
		RealIP(),
		SecurityHeaders(),
		OTelTracing(s.otel.Tracer("artspark/http")),
		MetricsMiddleware(s.collector),
		RequestLogger(s.logger),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(ctx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.collector, s.logger),
		TokenAuth(s.credentials, s.logger),
	)

	s.httpManager = server.NewManager("http", handler, server.ConfigFrom(s.cfg.Server, s.cfg.Server.HTTPPort), s.logger)
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器，端口为 0 时不启动
func (s *Server) startMetricsServer() error {
	if s.cfg.Server.MetricsPort == 0 {
		s.logger.Info("Metrics server disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))

	s.metricsManager = server.NewManager("metrics", mux, server.ConfigFrom(s.cfg.Server, s.cfg.Server.MetricsPort), s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	managers := []*server.Manager{s.httpManager}
	if s.metricsManager != nil {
		managers = append(managers, s.metricsManager)
	}
	server.WaitForShutdown(context.Background(), s.logger, managers...)

	s.Shutdown()
}

// Shutdown 释放后台任务与外部连接
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	// 0. 停止后台 goroutine（限流清理、连接池指标）
	if s.bgCancel != nil {
		s.bgCancel()
	}
	s.wg.Wait()

	// 1. 关闭 Redis
	if s.cacheMgr != nil {
		if err := s.cacheMgr.Close(); err != nil {
			s.logger.Error("Redis close error", zap.Error(err))
		}
	}

	// 2. 关闭数据库
	if s.dbPool != nil {
		if err := s.dbPool.Close(); err != nil {
			s.logger.Error("Database close error", zap.Error(err))
		}
	}

	// 3. 刷出遥测数据
	if err := s.otel.Shutdown(ctx); err != nil {
		s.logger.Error("Telemetry shutdown error", zap.Error(err))
	}

	s.logger.Info("Graceful shutdown completed")
}
