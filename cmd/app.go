package cmd

import (
	"context"
	"fmt"
	"log"

	"accountability-service/config"
	"accountability-service/internal/auth"
	"accountability-service/internal/dashboard"
	"accountability-service/internal/lifecycle"
	"accountability-service/internal/repository"
	"accountability-service/internal/sla"

	"github.com/redis/go-redis/v9"
)

// app holds the collaborators shared by every subcommand.
type app struct {
	cfg        *config.Config
	store      repository.Store
	postgres   *repository.PostgresStore
	clock      *sla.Clock
	machine    *lifecycle.Machine
	authorizer *auth.Authorizer
	cache      dashboard.Cache
	redis      *redis.Client
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	policy := sla.DefaultPolicy()
	if cfg.SLA.PolicyFile != "" {
		p, err := sla.LoadPolicy(cfg.SLA.PolicyFile)
		if err != nil {
			return nil, err
		}
		policy = p
		log.Printf("SLA policy loaded from %s", cfg.SLA.PolicyFile)
	}

	a := &app{
		cfg:        cfg,
		clock:      sla.NewClock(policy, nil),
		authorizer: auth.NewAuthorizer(cfg.JWT.Secret, cfg.DepartmentMap()),
		cache:      dashboard.NoopCache{},
	}
	a.machine = lifecycle.New(a.clock)

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pg, err := repository.OpenPostgres(ctx, cfg.DSN(), cfg.Database.OpTimeout.Std())
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.store, a.postgres = pg, pg
		log.Println("Connected to database")
	default:
		a.store = repository.NewMemoryStore()
		log.Println("Using in-memory store")
	}

	if cfg.Redis.Addr != "" {
		client, err := dashboard.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			// the cache is disposable, the service runs without it
			log.Printf("Redis unavailable, dashboard uncached: %v", err)
		} else {
			a.redis = client
			a.cache = dashboard.NewRedisCache(client, dashboard.DefaultCacheKey, cfg.Redis.TTL.Std())
			log.Println("Connected to Redis")
		}
	}

	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if err := a.store.Close(); err != nil {
		log.Printf("close store: %v", err)
	}
}
