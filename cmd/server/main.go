package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/tightbudget/gamification-service/internal/archive"
	"github.com/tightbudget/gamification-service/internal/celebration"
	"github.com/tightbudget/gamification-service/internal/config"
	"github.com/tightbudget/gamification-service/internal/gamification"
	"github.com/tightbudget/gamification-service/internal/httpapi"
	"github.com/tightbudget/gamification-service/internal/leaderboard"
	"github.com/tightbudget/gamification-service/internal/metrics"
	sharedauth "github.com/tightbudget/gamification-service/shared/auth"
	"github.com/tightbudget/gamification-service/shared/logging"
	sharedserver "github.com/tightbudget/gamification-service/shared/server"
)

const serviceName = "gamification-service"

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Errorf("config error: %w", err))
	}

	logger := logging.NewLogger(serviceName)
	slog.SetDefault(logger)

	repo, cleanup, err := newRepository(ctx, cfg)
	if err != nil {
		panic(fmt.Errorf("repository init error: %w", err))
	}
	defer cleanup()

	rdb, err := newRedis(cfg)
	if err != nil {
		panic(fmt.Errorf("redis init error: %w", err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	recorder := metrics.NewRecorder()

	// Without Redis, celebrations only reach devices connected to this instance.
	var (
		publisher celebration.Publisher
		stream    celebration.Subscriber
		cache     leaderboard.Cache
	)
	if rdb != nil {
		broker := celebration.NewRedisBroker(rdb)
		publisher, stream = broker, broker
		cache = leaderboard.NewRedisCache(rdb, "leaderboard")
	} else {
		hub := celebration.NewHub()
		publisher, stream = hub, hub
	}

	gamificationService, err := gamification.NewService(repo, gamification.NewSystemClock(), gamification.NewUUIDGenerator(),
		gamification.WithLocation(cfg.Location),
		gamification.WithPublisher(publisher),
		gamification.WithRecorder(recorder),
		gamification.WithLogger(logger),
	)
	if err != nil {
		panic(fmt.Errorf("gamification service init error: %w", err))
	}

	boards := leaderboard.NewService(repo, leaderboard.Config{
		Cache:    cache,
		CacheTTL: cfg.Leaderboard.CacheTTL,
		MaxLimit: cfg.Leaderboard.MaxLimit,
		Location: cfg.Location,
		Logger:   logger,
	})

	var snapshots *archive.Service
	if cfg.Storage.Bucket != "" {
		writer, err := archive.NewGCSWriter(ctx, cfg.Storage.Bucket)
		if err != nil {
			panic(fmt.Errorf("storage init error: %w", err))
		}
		defer writer.Close()
		snapshots = archive.NewService(boards, writer, cfg.Location)
	} else {
		logger.Warn("SNAPSHOT_BUCKET not set; leaderboard snapshots are disabled")
	}

	verifier, err := sharedauth.NewVerifier(sharedauth.Config{
		Mode:     cfg.Auth.Mode,
		JWKSURL:  cfg.Auth.JWKSURL,
		Audience: cfg.Auth.Audience,
		Issuer:   cfg.Auth.Issuer,
		OnRefreshError: func(err error) {
			logger.Error("jwks refresh failed", slog.Any("error", err))
		},
	})
	if err != nil {
		panic(fmt.Errorf("auth verifier error: %w", err))
	}
	defer sharedauth.Close(verifier)

	var routerOpts []sharedserver.Option
	if rdb != nil {
		routerOpts = append(routerOpts, sharedserver.WithReadiness(func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return rdb.Ping(pingCtx).Err()
		}))
	}

	router := sharedserver.NewRouter(serviceName, func(r chi.Router) {
		r.Handle("/metrics", recorder.Handler())

		r.Group(func(r chi.Router) {
			r.Use(sharedauth.Middleware(verifier))

			httpapi.RegisterRoutes(r, httpapi.Services{
				Gamification: gamificationService,
				Leaderboards: boards,
				Snapshots:    snapshots,
				Stream:       stream,
				Logger:       logger,
			})
		})
	}, routerOpts...)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := sharedserver.Run(ctx, srv, logger); err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
}

func newRepository(ctx context.Context, cfg config.Config) (gamification.Repository, func(), error) {
	switch cfg.DataStore {
	case config.DataStoreFirestore:
		if cfg.Firestore.EmulatorHost != "" {
			if err := os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost); err != nil {
				return nil, nil, fmt.Errorf("set FIRESTORE_EMULATOR_HOST: %w", err)
			}
		}

		var (
			client *firestore.Client
			err    error
		)
		if cfg.Firestore.Database != "" {
			client, err = firestore.NewClientWithDatabase(ctx, cfg.GCPProjectID, cfg.Firestore.Database)
		} else {
			client, err = firestore.NewClient(ctx, cfg.GCPProjectID)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("firestore client: %w", err)
		}

		repo := gamification.NewFirestoreRepository(client)
		cleanup := func() {
			_ = client.Close()
		}
		return repo, cleanup, nil
	default:
		repo := gamification.NewMemoryRepository()
		return repo, func() {}, nil
	}
}

func newRedis(cfg config.Config) (*redis.Client, error) {
	if cfg.Redis.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}
