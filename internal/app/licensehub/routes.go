// Package licensehub предоставляет маршруты для основного приложения.
package licensehub

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/nelondlc/license-hub/internal/config"
	"github.com/nelondlc/license-hub/internal/http/handlers/admin/clearsub"
	"github.com/nelondlc/license-hub/internal/http/handlers/admin/genkey"
	"github.com/nelondlc/license-hub/internal/http/handlers/admin/grantsub"
	"github.com/nelondlc/license-hub/internal/http/handlers/admin/listkeys"
	"github.com/nelondlc/license-hub/internal/http/handlers/admin/listposts"
	"github.com/nelondlc/license-hub/internal/http/handlers/admin/removekey"
	"github.com/nelondlc/license-hub/internal/http/handlers/admin/removepost"
	"github.com/nelondlc/license-hub/internal/http/handlers/admin/removeuser"
	"github.com/nelondlc/license-hub/internal/http/handlers/admin/resethwid"
	"github.com/nelondlc/license-hub/internal/http/handlers/admin/toggleadmin"
	adminusers "github.com/nelondlc/license-hub/internal/http/handlers/admin/users"
	"github.com/nelondlc/license-hub/internal/http/handlers/auth/login"
	"github.com/nelondlc/license-hub/internal/http/handlers/auth/register"
	"github.com/nelondlc/license-hub/internal/http/handlers/download"
	"github.com/nelondlc/license-hub/internal/http/handlers/health"
	"github.com/nelondlc/license-hub/internal/http/handlers/me/activatekey"
	"github.com/nelondlc/license-hub/internal/http/handlers/me/profile"
	mesubscription "github.com/nelondlc/license-hub/internal/http/handlers/me/subscription"
	"github.com/nelondlc/license-hub/internal/http/handlers/me/updatename"
	"github.com/nelondlc/license-hub/internal/http/handlers/me/updatepassword"
	postcreate "github.com/nelondlc/license-hub/internal/http/handlers/post/create"
	postlike "github.com/nelondlc/license-hub/internal/http/handlers/post/like"
	postlist "github.com/nelondlc/license-hub/internal/http/handlers/post/list"
	postread "github.com/nelondlc/license-hub/internal/http/handlers/post/read"
	"github.com/nelondlc/license-hub/internal/http/middlewarectx"
	adminservice "github.com/nelondlc/license-hub/internal/services/admin"
	authservice "github.com/nelondlc/license-hub/internal/services/auth"
	keyservice "github.com/nelondlc/license-hub/internal/services/key"
	postservice "github.com/nelondlc/license-hub/internal/services/post"
	userservice "github.com/nelondlc/license-hub/internal/services/user"
	"github.com/nelondlc/license-hub/internal/storage/dual"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(
	r chi.Router,
	logger *slog.Logger,
	cfg *config.Config,
	store *dual.Store,
	authSvc *authservice.AuthService,
	userSvc *userservice.UserService,
	keySvc *keyservice.KeyService,
	postSvc *postservice.PostService,
	adminSvc *adminservice.AdminService,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/health", health.New(logger, store).ServeHTTP)
		r.Post("/auth/register", register.New(logger, authSvc).ServeHTTP)
		r.Post("/auth/login", login.New(logger, authSvc).ServeHTTP)
		r.Get("/posts", postlist.New(logger, postSvc).ServeHTTP)
		r.Get("/posts/{id}", postread.New(logger, postSvc).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(authSvc, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, cfg.RPS, cfg.Burst))

			r.Get("/me", profile.New(logger, userSvc).ServeHTTP)
			r.Put("/me/username", updatename.New(logger, userSvc).ServeHTTP)
			r.Put("/me/password", updatepassword.New(logger, userSvc).ServeHTTP)
			r.Get("/me/subscription", mesubscription.New(logger, userSvc).ServeHTTP)
			r.Post("/keys/activate", activatekey.New(logger, keySvc).ServeHTTP)
			r.Get("/download", download.New(logger, userSvc, cfg.LoaderURL).ServeHTTP)
			r.Post("/posts", postcreate.New(logger, postSvc).ServeHTTP)
			r.Post("/posts/{id}/like", postlike.New(logger, postSvc).ServeHTTP)

			// Админка
			r.Route("/admin", func(r chi.Router) {
				r.Use(middlewarectx.AdminMiddleware(logger))

				r.Get("/users", adminusers.New(logger, adminSvc).ServeHTTP)
				r.Post("/users/{uid}/toggle-admin", toggleadmin.New(logger, adminSvc).ServeHTTP)
				r.Post("/users/{uid}/subscription", grantsub.New(logger, adminSvc).ServeHTTP)
				r.Delete("/users/{uid}/subscription", clearsub.New(logger, adminSvc).ServeHTTP)
				r.Post("/users/{uid}/reset-hwid", resethwid.New(logger, adminSvc).ServeHTTP)
				r.Delete("/users/{uid}", removeuser.New(logger, adminSvc).ServeHTTP)
				r.Post("/keys", genkey.New(logger, keySvc).ServeHTTP)
				r.Get("/keys", listkeys.New(logger, keySvc).ServeHTTP)
				r.Delete("/keys/{id}", removekey.New(logger, keySvc).ServeHTTP)
				r.Get("/posts", listposts.New(logger, postSvc).ServeHTTP)
				r.Delete("/posts/{id}", removepost.New(logger, postSvc).ServeHTTP)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
