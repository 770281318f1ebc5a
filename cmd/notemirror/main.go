package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"notemirror/internal/mirror/adapters/remote/postgres"
	"notemirror/internal/mirror/adapters/remote/redisstore"
	"notemirror/internal/mirror/adapters/remote/simplenote"
	"notemirror/internal/mirror/app"
	"notemirror/internal/mirror/config"
	"notemirror/internal/mirror/ports/remote"
	"notemirror/internal/mirror/search"
	"notemirror/internal/mirror/store"
	"notemirror/internal/mirror/syncer"
	pgdb "notemirror/pkg/db/postgres"
	redisdb "notemirror/pkg/db/redis"
	"notemirror/pkg/logger"
	"notemirror/pkg/shutdown"

	httpServer "notemirror/internal/mirror/adapters/http"
)

// Константы для переменных окружения.
const (
	EnvLoggerMode  = "MIRROR_LOGGER_MODE"
	EnvLoggerLevel = "MIRROR_LOGGER_LEVEL"
)

// Константы для сообщений об ошибках.
const (
	ErrInitLogger           = "failed to initialize logger"
	ErrSyncLogger           = "failed to sync logger"
	ErrLoadConfig           = "failed to load configuration"
	ErrInitLoggerWithConfig = "failed to initialize logger with configuration settings"
	ErrCreateRemoteClient   = "failed to create remote store client"
	ErrStartSynchronizer    = "failed to start synchronizer"
	ErrStartHTTPServer      = "failed to start HTTP server"
)

// Константы для игнорируемых ошибок.
const (
	ErrSyncStderr = "sync /dev/stderr: invalid argument"
	ErrSyncStdout = "sync /dev/stdout: invalid argument"
)

// Константы для сообщений сервиса.
const (
	LogServiceStarted      = "note mirror service started"
	LogServiceShutdownDone = "note mirror service shutdown complete"
	LogInitRemote          = "initializing remote store client"
	LogInitCache           = "initializing note cache"
	LogInitSyncer          = "starting synchronizer"
	LogInitHTTPServer      = "initializing HTTP server"
	LogStartingHTTP        = "starting HTTP server"
	LogStoppingHTTP        = "stopping HTTP server"
	LogStoppingSyncer      = "stopping synchronizer"
)

func main() {
	env := logger.Development
	if strings.ToLower(os.Getenv(EnvLoggerMode)) == "production" {
		env = logger.Production
	}

	log, err := logger.NewLogger(env, os.Getenv(EnvLoggerLevel))
	if err != nil {
		panic(ErrInitLogger + ": " + err.Error())
	}

	logger.SetGlobalLogger(log)

	ctx := logger.NewRequestIDContext(context.Background(), "")

	var exitCode int

	func() {
		defer func() {
			if err := log.Sync(); err != nil {
				errMsg := err.Error()
				if strings.Contains(errMsg, ErrSyncStderr) || strings.Contains(errMsg, ErrSyncStdout) {
					return
				}
				if _, writeErr := fmt.Fprintf(os.Stderr, "%s: %v\n", ErrSyncLogger, err); writeErr != nil {
					panic(writeErr)
				}
			}
		}()

		cfg, err := config.Load(ctx)
		if err != nil {
			log.Error(ctx, ErrLoadConfig, zap.Error(err))
			exitCode = 1
			return
		}

		finalLogger, err := logger.NewLogger(cfg.Logging.GetEnvironment(), cfg.Logging.Level)
		if err != nil {
			log.Error(ctx, ErrInitLoggerWithConfig, zap.Error(err))
			exitCode = 1
			return
		}
		logger.SetGlobalLogger(finalLogger)
		log = finalLogger

		log.Info(ctx, LogServiceStarted,
			zap.String("environment", string(env)),
			zap.String("log_level", cfg.Logging.Level),
			zap.String("startup_time", time.Now().Format(time.RFC3339)))

		log.Info(ctx, LogInitRemote, zap.String("backend", cfg.Remote.Backend))
		remoteClient, closeRemote, err := buildRemoteClient(ctx, cfg)
		if err != nil {
			log.Error(ctx, ErrCreateRemoteClient, zap.Error(err))
			exitCode = 1
			return
		}

		log.Info(ctx, LogInitCache)
		noteStore := store.New(cfg.Cache.TombstoneRetention)
		cacheService := app.NewCacheService(noteStore, search.NewEngine(), cfg.Cache)
		notesService := app.NewNotesService(cacheService, remoteClient, cfg.Cache)

		log.Info(ctx, LogInitSyncer)
		sync := syncer.New(remoteClient, cacheService, cfg.Sync)
		if err := sync.Start(ctx); err != nil {
			log.Error(ctx, ErrStartSynchronizer, zap.Error(err))
			exitCode = 1
			return
		}

		log.Info(ctx, LogInitHTTPServer)
		fiberApp := fiber.New(fiber.Config{
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		})

		httpServer.SetupRouter(fiberApp, notesService, cfg.Auth)

		log.Info(ctx, LogStartingHTTP, zap.String("address", cfg.HTTP.GetAddress()))
		go func() {
			if err := fiberApp.Listen(cfg.HTTP.GetAddress()); err != nil {
				log.Error(ctx, ErrStartHTTPServer, zap.Error(err))
			}
		}()

		shutdown.Wait(ctx, cfg.Shutdown.GetTimeout(),
			// Остановка синхронизатора.
			func(ctx context.Context) error {
				log.Info(ctx, LogStoppingSyncer)
				return sync.Stop(ctx)
			},
			// Закрытие соединения с удаленным хранилищем.
			func(ctx context.Context) error {
				return closeRemote(ctx)
			},
			// Остановка HTTP сервера.
			func(ctx context.Context) error {
				log.Info(ctx, LogStoppingHTTP)
				return fiberApp.Shutdown()
			},
		)

		log.Info(ctx, LogServiceShutdownDone)
	}()

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// buildRemoteClient собирает клиент удаленного хранилища по настройкам.
// Возвращает клиент и функцию закрытия соединений.
func buildRemoteClient(ctx context.Context, cfg *config.Config) (remote.Client, func(context.Context) error, error) {
	switch cfg.Remote.Backend {
	case config.RemoteBackendSimplenote:
		client, err := simplenote.New(cfg.Remote)
		if err != nil {
			return nil, nil, err
		}
		return client, func(context.Context) error { return nil }, nil

	case config.RemoteBackendRedis:
		redisClient, err := redisdb.NewClient(ctx, &redisdb.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Timeout:  cfg.Redis.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		client := redisstore.New(redisClient.RawClient(), cfg.Redis.KeyPrefix)
		return client, func(context.Context) error { return redisClient.Close() }, nil

	case config.RemoteBackendPostgres:
		if err := pgdb.MigrateDSN(ctx, cfg.Postgres.GetConnectionURL(), "file://migrations/notes"); err != nil {
			return nil, nil, err
		}
		database, err := pgdb.New(ctx, cfg.Postgres.GetDSN(), cfg.Postgres.MinConn, cfg.Postgres.MaxConn)
		if err != nil {
			return nil, nil, err
		}
		client := postgres.New(database.Pool(), uuid.NewString)
		return client, func(ctx context.Context) error {
			database.Close(ctx)
			return nil
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown remote backend %q", cfg.Remote.Backend)
	}
}
