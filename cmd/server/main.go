package main

import (
	"context"
	"log"

	goRedis "github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/lucagalbu/task-manager/api/handler"
	"github.com/lucagalbu/task-manager/internal/config"
	"github.com/lucagalbu/task-manager/internal/infrastructure/monitor"
	pgInfra "github.com/lucagalbu/task-manager/internal/infrastructure/postgres"
	redisInfra "github.com/lucagalbu/task-manager/internal/infrastructure/redis"
	"github.com/lucagalbu/task-manager/internal/middleware"
	"github.com/lucagalbu/task-manager/internal/router"
	"github.com/lucagalbu/task-manager/internal/services/lifecycle"
	"github.com/lucagalbu/task-manager/pkg/httpcontext"
	"github.com/lucagalbu/task-manager/pkg/logger"
	"github.com/lucagalbu/task-manager/repository"
	boltRepo "github.com/lucagalbu/task-manager/repository/bolt"
	"github.com/lucagalbu/task-manager/repository/postgres"
	redisRepo "github.com/lucagalbu/task-manager/repository/redis"
	"github.com/lucagalbu/task-manager/usecase"
	taskUC "github.com/lucagalbu/task-manager/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		AppName:  cfg.AppName,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen()
	appCtx := manager.Context()

	// fatal releases whatever was opened so far before exiting.
	fatal := func(msg string, fields ...zap.Field) {
		if err := manager.Shutdown(context.Background()); err != nil {
			zapLogger.Error("graceful shutdown error", zap.Error(err))
		}
		zapLogger.Fatal(msg, fields...)
	}

	taskRepo, storePinger, err := openStore(appCtx, cfg, manager, zapLogger)
	if err != nil {
		fatal("task store unavailable", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}

	var cache usecase.TaskCache
	var cachePinger monitor.Pinger
	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
	if err != nil {
		fatal("redis connection failed", zap.Error(err))
	}
	if redisClient != nil {
		manager.Register("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})
		cache = redisRepo.NewTaskCache(redisClient, cfg.Redis.TTL)
		cachePinger = redisPinger(redisClient)
	}

	mon := monitor.New(storePinger, cachePinger, cfg.Health.Interval, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop(ctx)
		return nil
	})

	taskUseCase := taskUC.New(taskRepo, cache, zapLogger)
	dispatcher := usecase.NewDispatcher()
	taskUseCase.Register(dispatcher)

	ctxAdapter := httpcontext.NewAdapter(appCtx, cfg.Context.RequestTimeout)

	r := router.New(router.Handlers{
		Task:   apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Query:  apiHandler.NewQueryHandler(dispatcher, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	})

	server := &fasthttp.Server{
		Handler: middleware.Chain(r.Handler,
			middleware.RequestLogger(zapLogger),
			middleware.CORS(cfg.HTTP.CORSAllowedOrigins),
		),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()), zap.String("store", cfg.Store.Driver))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Error("server stopped unexpectedly", zap.Error(err))
			manager.Stop()
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

// openStore bootstraps the configured backend and registers its shutdown hook.
func openStore(ctx context.Context, cfg *config.Config, manager *lifecycle.Manager, zapLogger *zap.Logger) (repository.TaskRepository, monitor.Pinger, error) {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	if cfg.Store.Driver == config.DriverBolt {
		repo, err := boltRepo.Open(cfg.Bolt.Path, cfg.Bolt.Bucket, zapLogger)
		if err != nil {
			return nil, nil, err
		}
		manager.Register("bolt", func(context.Context) error {
			return repo.Close()
		})
		return repo, repo, nil
	}

	bootstrapper := pgInfra.NewBootstrapper(zapLogger)

	admin, err := pgInfra.OpenAdmin(ctx, cfg.Database, zapLogger)
	if err != nil {
		return nil, nil, err
	}
	err = bootstrapper.EnsureDatabase(ctx, admin, cfg.Database.Name)
	if closeErr := admin.Close(); closeErr != nil {
		zapLogger.Warn("failed to close admin connection", zap.Error(closeErr))
	}
	if err != nil {
		return nil, nil, err
	}

	db, err := pgInfra.Connect(ctx, cfg.Database, zapLogger)
	if err != nil {
		return nil, nil, err
	}

	if err := bootstrapper.EnsureTable(ctx, db, cfg.Database.Table); err != nil {
		db.Close()
		return nil, nil, err
	}

	repo, err := postgres.NewTaskRepository(db, cfg.Database.Table, zapLogger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	manager.Register("postgres", func(context.Context) error {
		db.Close()
		return nil
	})
	return repo, db, nil
}

func redisPinger(client *goRedis.Client) monitor.Pinger {
	return monitor.PingFunc(func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}
