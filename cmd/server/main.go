package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/magefree/arena-server-go/internal/catalog"
	"github.com/magefree/arena-server-go/internal/config"
	"github.com/magefree/arena-server-go/internal/game/engine"
	"github.com/magefree/arena-server-go/internal/game/replay"
	"github.com/magefree/arena-server-go/internal/notify"
	"github.com/magefree/arena-server-go/internal/server"
	"github.com/magefree/arena-server-go/internal/storage"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting arena server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	cat, err := catalog.Load(cfg.Game.CatalogPath)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}
	logger.Info("catalog loaded",
		zap.Int("cards", len(cat.CardIDs())),
		zap.Strings("game_types", cat.GameTypeIDs()),
	)

	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to open game store", zap.Error(err))
	}
	defer store.Close()

	eng := engine.New(logger, cat, store, cfg.Engine())
	if cfg.Game.ReplayDir != "" {
		eng.SetRecorder(replay.NewRecorder(logger.Named("replay"), cfg.Game.ReplayDir))
		logger.Info("replay recording enabled", zap.String("directory", cfg.Game.ReplayDir))
	}

	hub := notify.NewHub(eng, logger.Named("notify"))
	go hub.Run(ctx)
	eng.SetNotificationHandler(hub.Handle)

	restored, err := eng.Restore(ctx)
	if err != nil {
		logger.Error("failed to restore active games", zap.Error(err))
	}
	logger.Info("game engine initialized",
		zap.Int("restored_games", restored),
		zap.Duration("tick_interval", cfg.Scheduler.TickInterval),
	)
	go eng.Run(ctx, cfg.Scheduler.TickInterval)

	grpcServer, healthServer := server.NewGRPCServer(logger.Named("grpc"))
	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}
	go func() {
		logger.Info("starting gRPC health server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	router := server.NewRouter(eng, cat, hub, cfg.Server.WebSocket.Path, logger.Named("http"))
	server.MountReplays(router, eng, logger.Named("http"))
	httpServer := &http.Server{
		Addr:    cfg.Server.WebSocket.Address,
		Handler: router,
	}
	go func() {
		logger.Info("starting HTTP server",
			zap.String("address", cfg.Server.WebSocket.Address),
			zap.String("websocket_path", cfg.Server.WebSocket.Path),
		)
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(serveErr))
		}
	}()

	server.SetServing(healthServer, true)
	logger.Info("arena server initialized",
		zap.String("version", version),
		zap.String("database_driver", cfg.Database.Driver),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	server.SetServing(healthServer, false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	cancel()
	grpcServer.GracefulStop()

	logger.Info("arena server stopped")
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pg, err := storage.OpenPostgres(ctx, cfg.URL, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		stats := pg.Stats()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
		)
		return pg, nil
	case config.DriverSQLite:
		logger.Info("opening sqlite store", zap.String("path", cfg.Path))
		return storage.OpenSQLite(cfg.Path)
	default:
		logger.Warn("using in-memory store; games will not survive a restart")
		return storage.NewMemory(), nil
	}
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
