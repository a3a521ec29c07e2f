// Package container builds the application's collaborators once, in main,
// and hands them to the router explicitly.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-adoptme/config"
	"github.com/oksasatya/go-adoptme/internal/application"
	repo "github.com/oksasatya/go-adoptme/internal/domain/repository"
	"github.com/oksasatya/go-adoptme/internal/infrastructure/events"
	"github.com/oksasatya/go-adoptme/internal/infrastructure/memory"
	"github.com/oksasatya/go-adoptme/internal/infrastructure/postgres"
	"github.com/oksasatya/go-adoptme/internal/infrastructure/search"
	"github.com/oksasatya/go-adoptme/internal/interface/middleware"
	"github.com/oksasatya/go-adoptme/pkg/helpers"
)

const rateWindow = time.Minute

// Revocations is both sides of the logout list.
type Revocations interface {
	application.Revoker
	middleware.RevocationChecker
}

// Container holds every collaborator. Optional ones (Files, Indexer, Events,
// Revocations, Redis) stay nil when not configured.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	Users     repo.UserRepository
	Pets      repo.PetRepository
	Adoptions repo.AdoptionRepository

	JWT     *helpers.JWTManager
	Cookies *helpers.Cookies

	Redis       *redis.Client
	Revocations Revocations
	Files       application.ObjectStore
	Indexer     application.PetIndexer
	Events      application.EventPublisher

	// Checks are probed by GET /health.
	Checks map[string]func(ctx context.Context) error

	closers []func()
}

// New builds the container for cfg. Postgres is required unless
// STORE_DRIVER=memory; every other backend is optional.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		JWT:     helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiresIn),
		Cookies: helpers.NewCookies(cfg.CookieName, cfg.CookieDomain, cfg.CookieSecure),
		Checks:  map[string]func(ctx context.Context) error{},
	}
	steps := []func(context.Context) error{c.initStore, c.initRedis, c.initEvents, c.initFiles, c.initSearch}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// NewInMemory wires the in-memory store and no optional backends.
func NewInMemory(cfg *config.Config, logger *logrus.Logger) *Container {
	store := memory.NewStore()
	return &Container{
		Config:    cfg,
		Logger:    logger,
		Users:     store.Users,
		Pets:      store.Pets,
		Adoptions: store.Adoptions,
		JWT:       helpers.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiresIn),
		Cookies:   helpers.NewCookies(cfg.CookieName, cfg.CookieDomain, cfg.CookieSecure),
		Checks:    map[string]func(ctx context.Context) error{},
	}
}

func (c *Container) initStore(ctx context.Context) error {
	cfg := c.Config
	switch cfg.StoreDriver {
	case "memory":
		store := memory.NewStore()
		c.Users, c.Pets, c.Adoptions = store.Users, store.Pets, store.Adoptions
		c.Logger.Warn("using the in-memory store; data is lost on restart")
		return nil
	case "postgres", "":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN(), cfg.AppName, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	c.closers = append(c.closers, pool.Close)
	if err := postgres.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, c.Logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	store := postgres.NewStore(pool)
	c.Users, c.Pets, c.Adoptions = store.Users, store.Pets, store.Adoptions
	c.Checks["postgres"] = pingPool(pool)
	return nil
}

func pingPool(pool *pgxpool.Pool) func(ctx context.Context) error {
	return func(ctx context.Context) error { return pool.Ping(ctx) }
}

func (c *Container) initRedis(ctx context.Context) error {
	if c.Config.RedisAddr == "" {
		c.Logger.Info("redis not configured; using the local rate limiter and no logout revocation")
		return nil
	}
	rdb := helpers.NewRedisClient(c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("connect redis: %w", err)
	}
	c.closers = append(c.closers, func() { _ = rdb.Close() })
	c.Redis = rdb
	c.Revocations = helpers.NewRedisRevocations(rdb)
	c.Checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	return nil
}

func (c *Container) initEvents(context.Context) error {
	if c.Config.RabbitMQURL == "" {
		c.Logger.Info("rabbitmq not configured; adoption events are dropped")
		return nil
	}
	pub, err := helpers.NewRabbitPublisher(c.Config.RabbitMQURL, c.Config.RabbitMQAdoptionQueue)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	c.closers = append(c.closers, pub.Close)
	c.Checks["rabbitmq"] = pub.Ping
	c.Events = events.NewAdoptionPublisher(pub, c.Logger)
	return nil
}

func (c *Container) initFiles(ctx context.Context) error {
	if c.Config.GCSBucket == "" {
		c.Logger.Info("gcs not configured; uploads are rejected")
		return nil
	}
	client, err := helpers.NewGCSClient(ctx, c.Config.GCSCredentialsJSONPath)
	if err != nil {
		return fmt.Errorf("init gcs: %w", err)
	}
	c.closers = append(c.closers, func() { _ = client.Close() })
	c.Files = helpers.NewGCSStore(client, c.Config.GCSBucket)
	return nil
}

func (c *Container) initSearch(ctx context.Context) error {
	es, err := helpers.NewESClient(c.Config.ESAddrs(), c.Config.ElasticsearchUser, c.Config.ElasticsearchPass)
	if err != nil {
		return fmt.Errorf("init elasticsearch: %w", err)
	}
	if es == nil {
		c.Logger.Info("elasticsearch not configured; pet search returns no results")
		return nil
	}
	idx := search.NewPetIndex(es, c.Config.ESPetsIndex)
	if err := idx.EnsureIndex(ctx); err != nil {
		c.Logger.WithError(err).Warn("pet index not ready; search may return no results")
	}
	c.Indexer = idx
	c.Checks["elasticsearch"] = func(ctx context.Context) error { return helpers.ESPing(ctx, es) }
	return nil
}

// Limiter returns the Redis limiter when Redis is configured, a local one otherwise.
func (c *Container) Limiter() middleware.Limiter {
	if c.Redis != nil {
		return middleware.NewRedisLimiter(c.Redis, rateWindow)
	}
	return middleware.NewLocalLimiter(rateWindow)
}

// Close releases backends in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
