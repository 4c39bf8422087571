// Package licensehub собирает приложение целиком: пару хранилищ, кеш,
// сервисы, маршруты и HTTP-сервер с корректным завершением.
package licensehub

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi"

	"github.com/nelondlc/license-hub/internal/cache"
	"github.com/nelondlc/license-hub/internal/config"
	"github.com/nelondlc/license-hub/internal/lib/jwt"
	"github.com/nelondlc/license-hub/internal/lib/sl"
	"github.com/nelondlc/license-hub/internal/migrations"
	adminservice "github.com/nelondlc/license-hub/internal/services/admin"
	authservice "github.com/nelondlc/license-hub/internal/services/auth"
	keyservice "github.com/nelondlc/license-hub/internal/services/key"
	postservice "github.com/nelondlc/license-hub/internal/services/post"
	userservice "github.com/nelondlc/license-hub/internal/services/user"
	"github.com/nelondlc/license-hub/internal/storage/dual"
	"github.com/nelondlc/license-hub/internal/storage/repository"
)

// App корневой объект приложения.
type App struct {
	server *http.Server
	logger *slog.Logger
	store  *dual.Store
}

// New собирает приложение: открывает хранилища, применяет миграции к
// каждому из них, создаёт стартового администратора и строит маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := dual.New(cfg.StorePair, logger)
	if err != nil {
		return nil, err
	}
	for _, c := range store.Conns() {
		path := filepath.Join("./migrations", string(c.Driver))
		if err := migrations.Run(c.DB, c.Driver, path); err != nil {
			return nil, err
		}
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	repo := repository.New(store)
	if err := repository.CheckDatabaseReady(ctx, repo); err != nil {
		return nil, err
	}
	logger.Info("storage ready", slog.String("primary", string(store.PrimaryDriver())))

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	authSvc := authservice.New(repo, jwtMaker, logger)
	userSvc := userservice.New(repo, cacheRedis, logger)
	keySvc := keyservice.New(repo, cacheRedis, logger)
	postSvc := postservice.New(repo, logger)
	adminSvc := adminservice.New(repo, cacheRedis, logger)

	if cfg.AdminPassword != "" {
		if err := adminSvc.SeedAdmin(ctx, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Error("failed to seed admin", sl.Err(err))
		}
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg, store,
		authSvc, userSvc, keySvc, postSvc, adminSvc)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		store:  store,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до остановки контекста
// или фатальной ошибки сервера.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if cerr := a.store.Close(); err == nil {
			err = cerr
		}
		return err
	}
}
