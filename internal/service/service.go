package service

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ashwinyue/questbank/internal/config"
	"github.com/ashwinyue/questbank/internal/repository"
	"github.com/ashwinyue/questbank/internal/service/discipline"
	"github.com/ashwinyue/questbank/internal/service/event"
	"github.com/ashwinyue/questbank/internal/service/taxonomy"
)

// Services 服务集合
type Services struct {
	Taxonomy   *taxonomy.Service
	Discipline *discipline.Service
	Events     *event.EventBus

	Config *config.Config
	Repo   *repository.Repositories
}

// NewServices 创建所有服务
// redisClient 非 nil 时编码分配锁由 Redis 实现，多个进程可共享同一个库
func NewServices(repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) *Services {
	if logger == nil {
		logger = zap.NewNop()
	}

	var locker taxonomy.Locker
	if redisClient != nil {
		ttl := time.Duration(cfg.Redis.LockTTL) * time.Second
		locker = taxonomy.NewRedisLocker(redisClient, ttl, logger.Named("lock"))
		logger.Info("using redis allocation lock", zap.String("addr", cfg.Redis.GetAddr()))
	} else {
		locker = taxonomy.NewLocalLocker()
	}

	bus := event.NewEventBus(event.NewMemoryStore(cfg.Taxonomy.EventBuffer), logger.Named("event"))
	_ = bus.Subscribe(event.LogHandler(logger.Named("event")))

	return &Services{
		Taxonomy: taxonomy.NewService(repo, locker,
			taxonomy.OptionsFromConfig(cfg.Taxonomy), logger.Named("taxonomy")).WithPublisher(bus),
		Discipline: discipline.NewService(repo, logger.Named("discipline")),
		Events:     bus,
		Config:     cfg,
		Repo:       repo,
	}
}
