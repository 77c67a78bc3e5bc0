package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rryowa/testskool_session/internal/devbackend"
	"github.com/rryowa/testskool_session/internal/util"
)

func main() {
	logger := util.NewZapLogger()
	cfg := util.NewDevBackendConfig()

	server := devbackend.New(devbackend.Config{
		Secret:     cfg.JwtSecretKey,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	}, logger)

	if username, password := os.Getenv("DEV_USER"), os.Getenv("DEV_PASSWORD"); username != "" && password != "" {
		if err := server.AddUser(username, password, false); err != nil {
			logger.Fatalf("seed user: %v", err)
		}
		logger.Infof("Seeded user %q", username)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("dev backend: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down dev backend...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
