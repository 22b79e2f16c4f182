package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hearthchat/moderation/automod/analyzer"
	"github.com/hearthchat/moderation/automod/behavior"
	"github.com/hearthchat/moderation/automod/cachestore"
	"github.com/hearthchat/moderation/automod/countstore"
	"github.com/hearthchat/moderation/automod/engine"
	"github.com/hearthchat/moderation/automod/flagstore"
	"github.com/hearthchat/moderation/automod/periodic"
	"github.com/hearthchat/moderation/automod/setstore"
	"github.com/hearthchat/moderation/automod/store"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

type Server struct {
	logger *slog.Logger
	engine engine.DecisionEngine
	layer  *behavior.Layer
	rdb    *redis.Client
	// background maintenance for the engine and the behavioral layer
	tasks  []periodic.Task
	echo   *echo.Echo
	httpd  *http.Server
	runner *periodic.Runner
}

type Config struct {
	Logger           *slog.Logger
	DatabaseURL      string
	MaxDBConnections int
	RedisURL         string
	SetsFileJSON     string
	RulesFileJSON    string
	SlackWebhookURL  string
	QuotaPermBanDay  int
	AnalysisTimeout  time.Duration
	Bind             string
	// registry for HTTP metrics; defaults to the global prometheus registry
	MetricsRegisterer prometheus.Registerer
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	sets := setstore.NewMemSetStore()
	if config.SetsFileJSON != "" {
		if err := sets.LoadFromFileJSON(config.SetsFileJSON); err != nil {
			return nil, fmt.Errorf("loading sets: %w", err)
		}
		for name, size := range sets.Sizes() {
			logger.Info("loaded set", "name", name, "size", size, "path", config.SetsFileJSON)
		}
	}

	var counters countstore.CountStore
	var cache cachestore.CacheStore
	var flags flagstore.FlagStore
	var rdb *redis.Client
	if config.RedisURL != "" {
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %w", err)
		}
		// one pool shared by every redis-backed store, and by the readiness check
		rdb = redis.NewClient(opt)
		if err := rdb.Ping(context.TODO()).Err(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		counters = countstore.NewRedisCountStoreFromClient(rdb)
		cache = cachestore.NewRedisCacheStoreFromClient(rdb, 30*time.Minute)
		flags = flagstore.NewRedisFlagStoreFromClient(rdb)
	} else {
		counters = countstore.NewMemCountStore()
		cache = cachestore.NewMemCacheStore(5_000, 30*time.Minute)
		flags = flagstore.NewMemFlagStore()
	}

	var st store.Store
	if config.DatabaseURL != "" {
		db, err := store.SetupDatabase(config.DatabaseURL, config.MaxDBConnections)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		gs := store.NewGormStore(db)
		if err := gs.Migrate(); err != nil {
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		st = gs
	} else {
		logger.Warn("no database configured, moderation records are kept in memory only")
		st = store.NewMemStore()
	}

	rulebook, err := loadRuleBook(config.RulesFileJSON)
	if err != nil {
		return nil, err
	}
	if config.RulesFileJSON != "" {
		logger.Info("loaded adaptive rules", "path", config.RulesFileJSON, "count", len(rulebook.List()))
	}

	if config.QuotaPermBanDay > 0 {
		engine.QuotaPermBanDay = config.QuotaPermBanDay
	}
	if config.AnalysisTimeout > 0 {
		engine.AnalysisTimeout = config.AnalysisTimeout
	}

	layer := behavior.NewLayer(logger, analyzer.NewHeuristicAnalyzer(logger, sets), cache, counters, st, rulebook)
	eng := &engine.Engine{
		Logger:   logger.With("component", "engine"),
		Layer:    layer,
		Store:    st,
		Counters: counters,
		Flags:    flags,
	}
	if config.SlackWebhookURL != "" {
		eng.Notifier = engine.NewSlackNotifier(config.SlackWebhookURL)
	}

	srv := &Server{
		logger: logger,
		engine: eng,
		layer:  layer,
		rdb:    rdb,
		tasks:  append(eng.Tasks(), layer.Tasks()...),
		runner: periodic.NewRunner(logger),
	}
	reg := config.MetricsRegisterer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	srv.setupEcho(config.Bind, reg)
	return srv, nil
}

func (srv *Server) setupEcho(bind string, reg prometheus.Registerer) {
	e := echo.New()

	// httpd
	var (
		httpTimeout        = 1 * time.Minute
		httpMaxHeaderBytes = 1 * (1024 * 1024)
	)
	srv.httpd = &http.Server{
		Handler:        srv,
		Addr:           bind,
		WriteTimeout:   httpTimeout,
		ReadTimeout:    httpTimeout,
		MaxHeaderBytes: httpMaxHeaderBytes,
	}

	e.HideBanner = true
	e.Use(slogecho.New(srv.logger))
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("warden"))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "warden",
		Registerer: reg,
	}))
	e.Use(middleware.BodyLimit("1M"))
	e.HTTPErrorHandler = srv.errorHandler

	e.GET("/_health", srv.HandleHealthCheck)
	e.POST("/v1/moderate", srv.HandleModerate)
	e.GET("/v1/users/:id/status", srv.HandleUserStatus)
	e.POST("/v1/users/:id/shadow-ban", srv.HandleShadowBan)
	e.POST("/v1/appeals", srv.HandleAppeal)
	e.POST("/v1/reports", srv.HandleReport)
	e.POST("/v1/feedback", srv.HandleFeedback)
	e.GET("/v1/queue", srv.HandleListQueue)
	e.GET("/v1/queue/:id", srv.HandleGetQueueItem)
	e.POST("/v1/queue/:id/assign", srv.HandleAssignQueueItem)
	e.POST("/v1/queue/:id/resolve", srv.HandleResolveQueueItem)
	e.GET("/v1/rules", srv.HandleListRules)
	e.POST("/v1/clusters/:id/type", srv.HandleSetClusterType)

	srv.echo = e
}

func (srv *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	srv.echo.ServeHTTP(rw, req)
}

// Checks the external dependencies the service cannot run without.
func (srv *Server) Ready(ctx context.Context) error {
	if srv.rdb != nil {
		if err := srv.rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Starts background maintenance and the HTTP API, and blocks until ctx is cancelled.
func (srv *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv.runner.Start(ctx, srv.tasks...)

	errCh := make(chan error, 1)
	go func() {
		srv.logger.Info("starting server", "bind", srv.httpd.Addr)
		if err := srv.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		srv.logger.Info("shutdown signal received")
	case err := <-errCh:
		srv.logger.Error("HTTP server shutting down unexpectedly", "err", err)
		runErr = err
	}

	if err := srv.Shutdown(); err != nil {
		srv.logger.Error("HTTP server shutdown error", "err", err)
	}
	cancel()
	srv.runner.Wait()
	srv.logger.Info("graceful shutdown complete")
	return runErr
}

func (srv *Server) Shutdown() error {
	srv.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.httpd.Shutdown(ctx)
}
