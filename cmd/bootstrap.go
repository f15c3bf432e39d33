package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/aneeshsharma72067/reposage/config"
	"github.com/aneeshsharma72067/reposage/internal/analyzer"
	"github.com/aneeshsharma72067/reposage/internal/githubapp"
	"github.com/aneeshsharma72067/reposage/internal/queue"
	"github.com/aneeshsharma72067/reposage/internal/repository"
	"github.com/aneeshsharma72067/reposage/internal/usecase"
	"github.com/aneeshsharma72067/reposage/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// app holds everything a long-running command needs.
type app struct {
	cfg   *config.Config
	log   *zap.SugaredLogger
	repo  repository.Repository
	redis *redis.Client
	queue *queue.Queue
	uc    usecase.InterfaceUsecase
}

func loadConfig() (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

// bootstrap connects the store and the queue and builds the usecase layer.
// The returned close func releases both connections.
func bootstrap(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*app, func(), error) {
	repo, err := repository.New(ctx, "postgres", log, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("repository initialization: %w", err)
	}
	if err := repo.OnStart(ctx); err != nil {
		return nil, nil, fmt.Errorf("repository start: %w", err)
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		_ = repo.OnStop(context.Background())
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, cfg.Postgres.QueryTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		_ = repo.OnStop(context.Background())
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	issuer, err := githubapp.NewIssuer(cfg.GitHub, log)
	if err != nil {
		_ = rdb.Close()
		_ = repo.OnStop(context.Background())
		return nil, nil, fmt.Errorf("github app: %w", err)
	}

	q := queue.New(rdb, cfg.Queue, log)
	uc := usecase.New(log, ctx, usecase.Deps{
		Repo:          repo,
		Dispatcher:    q,
		Analyzer:      analyzer.NewBaseline(),
		Issuer:        issuer,
		Installations: githubapp.NewInstallationClient(issuer),
		WebhookSecret: cfg.GitHub.WebhookSecret,
		Timeout:       cfg.HTTP.RequestTimeout,
	})

	a := &app{cfg: cfg, log: log, repo: repo, redis: rdb, queue: q, uc: uc}
	closeFn := func() {
		if err := rdb.Close(); err != nil {
			log.Warnw("redis close failed", "error", err)
		}
		_ = repo.OnStop(context.Background())
		_ = log.Sync()
	}
	return a, closeFn, nil
}

// Ping reports readiness of both the store and the queue.
func (a *app) Ping(ctx context.Context) error {
	return errors.Join(a.repo.Ping(ctx), a.redis.Ping(ctx).Err())
}
