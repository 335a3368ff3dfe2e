package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/primefragrance/cmms/internal/analytics"
	"github.com/primefragrance/cmms/internal/api"
	"github.com/primefragrance/cmms/internal/auth"
	"github.com/primefragrance/cmms/internal/config"
	"github.com/primefragrance/cmms/internal/db"
	"github.com/primefragrance/cmms/internal/notify"
	"github.com/primefragrance/cmms/internal/photo"
	"github.com/primefragrance/cmms/internal/schedule"
	"github.com/primefragrance/cmms/internal/workorder"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
		migrate    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the maintenance API server",
		Long: `Starts the HTTP API on the configured port.
Photos go to the local uploads directory or a MinIO bucket, and token
revocations go to Redis when redis.addr is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port, migrate)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "auto-migrate tables before serving")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int, migrate bool) error {
	cfg, gormDB, err := connect(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	log, err := initLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if migrate {
		if err := db.AutoMigrate(gormDB); err != nil {
			return err
		}
	}
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildDeps(ctx, cfg, gormDB, log)
	if err != nil {
		return err
	}

	log.Info("starting cmms",
		zap.String("version", Version),
		zap.Int("port", cfg.Server.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("uploads", cfg.Uploads.Driver))

	return api.Start(ctx, api.StartOpts{
		Deps:            deps,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Out:             cmd.OutOrStdout(),
	})
}

// buildDeps wires the services behind the API from cfg.
func buildDeps(ctx context.Context, cfg *config.Config, gormDB *gorm.DB, log *zap.Logger) (api.Deps, error) {
	notifier, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		return api.Deps{}, err
	}

	photos, err := photo.New(cfg.Uploads)
	if err != nil {
		return api.Deps{}, err
	}
	if m, ok := photos.(*photo.MinIOStore); ok {
		if err := m.EnsureBucket(ctx); err != nil {
			return api.Deps{}, err
		}
	}

	revoker, err := newRevoker(ctx, cfg.Redis)
	if err != nil {
		return api.Deps{}, err
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	store := workorder.NewGormStore(gormDB)
	return api.Deps{
		DB:   gormDB,
		Auth: auth.NewService(gormDB, tokens, revoker),
		WorkOrders: workorder.NewService(store, workorder.Options{
			Notifier: notifier,
			Logger:   log,
		}),
		Schedules: schedule.NewService(gormDB, schedule.Options{
			Notifier: notifier,
			Logger:   log,
		}),
		Analytics:    analytics.NewService(gormDB, store, analytics.Options{Logger: log}),
		Photos:       photos,
		Logger:       log,
		Debug:        cfg.Server.Mode == gin.DebugMode,
		MaxBodyBytes: cfg.Uploads.MaxBytes,
	}, nil
}

// newRevoker returns a Redis revocation list when addr is set, otherwise an
// in-process one.
func newRevoker(ctx context.Context, cfg config.RedisConfig) (auth.Revoker, error) {
	if cfg.Addr == "" {
		return auth.NewMemoryRevoker(), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Addr, err)
	}
	return auth.NewRedisRevoker(rdb), nil
}
