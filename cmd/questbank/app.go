package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ashwinyue/questbank/internal/config"
	"github.com/ashwinyue/questbank/internal/database"
	"github.com/ashwinyue/questbank/internal/logger"
	"github.com/ashwinyue/questbank/internal/repository"
	"github.com/ashwinyue/questbank/internal/service"
)

// app 一次命令运行所需的全部依赖
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	db       *database.DB
	redis    *redis.Client
	services *service.Services
}

// newApp 加载配置、连接数据库并完成迁移
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, cfg.App.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug("database ready", zap.String("driver", cfg.Database.Driver))

	a := &app{cfg: cfg, logger: log, db: db}

	if cfg.Redis.Enabled {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.GetAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
	}

	a.services = service.NewServices(repository.NewRepositories(db.DB), cfg, a.redis, log)
	return a, nil
}

// Close 释放连接
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
	_ = a.logger.Sync()
}

// withApp 为一次性命令创建带超时的上下文
func withApp(fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
