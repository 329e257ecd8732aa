package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"botroom/config"
	"botroom/internal/metrics"
	"botroom/internal/server"
	"botroom/providers"
	"botroom/room"
)

// Server wires the room core, the HTTP API, metrics, and optional
// config hot reload into one lifecycle.
type Server struct {
	cfg        *config.Config
	loader     *config.Loader
	configPath string
	logger     *zap.Logger

	registry *prometheus.Registry
	theRoom  *room.Room

	httpManager *server.Manager
	watcher     *config.Watcher

	rateLimiterCancel context.CancelFunc
}

// NewServer creates an unstarted server.
func NewServer(cfg *config.Config, loader *config.Loader, configPath string, logger *zap.Logger) *Server {
	return &Server{
		cfg:        cfg,
		loader:     loader,
		configPath: configPath,
		logger:     logger,
	}
}

// Start brings up the room, the config watcher, and the HTTP server.
func (s *Server) Start() error {
	s.registry = prometheus.NewRegistry()
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector("botroom", s.registry, s.logger)

	factory := providers.NewFactory(s.logger)
	s.theRoom = room.New(s.cfg.InitialSettings(), factory, room.Config{
		Orchestrator: room.OrchestratorConfig{SequentialDelay: s.cfg.Room.SequentialDelay},
		Loop:         room.LoopConfig{Quiescence: s.cfg.Room.Quiescence},
	}, collector, s.logger)

	if err := s.startWatcher(); err != nil {
		return fmt.Errorf("failed to start config watcher: %w", err)
	}
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Bool("hot_reload_enabled", s.configPath != ""),
	)
	return nil
}

// startWatcher enables settings hot reload when a config file is in
// use. Only the room settings are applied live; server and timing
// changes need a restart.
func (s *Server) startWatcher() error {
	if s.configPath == "" {
		return nil
	}

	watcher, err := config.NewWatcher(s.loader, config.WithWatcherLogger(s.logger))
	if err != nil {
		return err
	}

	watcher.OnReload(func(cfg *config.Config) {
		s.theRoom.UpdateSettings(cfg.InitialSettings())
		s.logger.Info("room settings reloaded from config file")
	})

	if err := watcher.Start(context.Background()); err != nil {
		return err
	}
	s.watcher = watcher
	return nil
}

func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	rateLimiterCtx, cancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = cancel
	submitLimit := server.RateLimiter(rateLimiterCtx,
		s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger)

	handler := server.NewHandler(s.theRoom, s.logger)
	handler.Register(mux, submitLimit)

	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"version":%q,"build_time":%q,"git_commit":%q}`, Version, BuildTime, GitCommit)
	})

	chained := server.Chain(mux,
		server.Recovery(s.logger),
		server.RequestID(),
		server.RequestLogger(s.logger),
	)

	s.httpManager = server.NewManager(chained, server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}, s.logger)

	if err := s.httpManager.Start(); err != nil {
		return err
	}
	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// WaitForShutdown blocks until a termination signal, then shuts
// everything down.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown stops the loop, the watcher, and the HTTP server.
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}
	if s.theRoom != nil {
		s.theRoom.StopConversation()
	}
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(context.Background()); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
