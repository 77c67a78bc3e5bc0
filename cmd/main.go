package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/rryowa/testskool_session/internal/api"
	"github.com/rryowa/testskool_session/internal/backend"
	"github.com/rryowa/testskool_session/internal/controller"
	"github.com/rryowa/testskool_session/internal/migrations"
	"github.com/rryowa/testskool_session/internal/models"
	"github.com/rryowa/testskool_session/internal/service"
	"github.com/rryowa/testskool_session/internal/storage"
	"github.com/rryowa/testskool_session/internal/storage/file"
	"github.com/rryowa/testskool_session/internal/storage/memory"
	"github.com/rryowa/testskool_session/internal/storage/postgres"
	"github.com/rryowa/testskool_session/internal/storage/redis"
	"github.com/rryowa/testskool_session/internal/util"
)

func main() {
	ctx := context.Background()
	logger := util.NewZapLogger()
	defer logger.Sync() //nolint:errcheck

	tokenStore, storeCleanup, err := newTokenStore(ctx, util.NewStoreConfig(), logger)
	if err != nil {
		logger.Fatal(zap.Error(err))
	}

	initial, err := tokenStore.Get(ctx, models.AccessKey)
	if err != nil && !errors.Is(err, storage.ErrTokenNotFound) {
		logger.Fatal(zap.Error(err))
	}
	session := service.NewSession(initial)

	backendCfg := util.NewBackendConfig()
	tokenCfg := util.NewTokenConfig()
	backendClient := backend.NewClient(backendCfg.BaseURL, backendCfg.Timeout, logger)

	refreshService := service.NewRefreshService(tokenStore, backendClient, session, logger,
		service.WithSafetyMargin(tokenCfg.SafetyMargin),
		service.WithMinDelay(tokenCfg.MinDelay),
		service.WithRefreshTimeout(backendCfg.RefreshTimeout),
	)
	authService := service.NewAuthService(backendClient, tokenStore, session, logger)

	interceptor := service.NewAuthInterceptor(refreshService, logger)
	ejectInterceptor := interceptor.Register(backendClient)

	scheduler := service.NewScheduler(refreshService, session, logger)
	scheduler.Start(ctx)

	serverCfg := util.NewServerConfig()
	apiKeyService := service.NewAPIKeyService(serverCfg.APIKey)
	ctrl := controller.NewController(logger, authService, session)

	cleanupFuncs := []func(){storeCleanup, authService.Close, ejectInterceptor, scheduler.Stop}

	apiServer := api.NewAPI(ctrl, apiKeyService, serverCfg, logger, cleanupFuncs)
	apiServer.Run(ctx)
}

func newTokenStore(ctx context.Context, cfg *util.StoreConfig, logger *zap.SugaredLogger) (storage.TokenStore, func(), error) {
	noop := func() {}

	switch cfg.Driver {
	case util.StoreDriverMemory:
		return memory.NewTokenStore(logger), noop, nil

	case util.StoreDriverFile:
		logger.Infof("Token store: %s", cfg.Path)
		return file.NewTokenStore(cfg.Path, logger), noop, nil

	case util.StoreDriverRedis:
		redisCfg, err := util.NewRedisConfig()
		if err != nil {
			return nil, nil, err
		}
		redisClient, cleanup, err := util.NewRedisClient(ctx, logger, redisCfg)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewTokenStorage(redisClient, cfg.Profile), cleanup, nil

	case util.StoreDriverPostgres:
		dbCfg, err := util.NewDBConfig()
		if err != nil {
			return nil, nil, err
		}
		db, cleanup, err := util.NewDBConnection(logger, dbCfg)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunMigrations(db, logger); err != nil {
			cleanup()
			return nil, nil, err
		}
		return postgres.NewStorage(db, cfg.Profile), cleanup, nil

	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Driver)
	}
}
