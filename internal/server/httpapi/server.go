// Package httpapi exposes the identity service over HTTP/JSON: a chi router,
// bearer-token authentication, and uniform error-to-status mapping.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dstepanov2008/shopauth/internal/logging"
	"github.com/dstepanov2008/shopauth/internal/server/auth"
	"github.com/dstepanov2008/shopauth/internal/server/config"
	"github.com/dstepanov2008/shopauth/internal/server/models"
	"github.com/dstepanov2008/shopauth/internal/server/services"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

// IdentityService is the slice of the identity core the HTTP layer needs.
// Satisfied by *services.IdentityService.
type IdentityService interface {
	Register(ctx context.Context, email, name, password string) (*models.User, *services.IssuedToken, error)
	CreateAdmin(ctx context.Context, actor *auth.Claims, email, name, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*models.User, *services.IssuedToken, error)
	VerifyToken(token string) (*auth.Claims, error)
	GetUser(ctx context.Context, actor *auth.Claims, targetID string) (*models.User, error)
	ListUsers(ctx context.Context, actor *auth.Claims) ([]*models.User, error)
	UpdateProfile(ctx context.Context, actor *auth.Claims, targetID string, email, name *string) (*models.User, error)
	ChangePassword(ctx context.Context, actor *auth.Claims, targetID, currentPassword, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	UpdateRole(ctx context.Context, actor *auth.Claims, targetID string, isAdmin bool) (*models.User, error)
	DeleteUser(ctx context.Context, actor *auth.Claims, targetID string) error
}

// Pinger reports storage connectivity for the health endpoint. Satisfied by
// *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HTTPServer struct {
	cfg      config.HTTPServer
	identity IdentityService
	db       Pinger
	validate *validator.Validate
	logger   logging.Logger
}

func NewHTTPServer(cfg config.HTTPServer, identity IdentityService, db Pinger, logger logging.Logger) *HTTPServer {
	return &HTTPServer{
		cfg:      cfg,
		identity: identity,
		db:       db,
		validate: validator.New(),
		logger:   logger.With("module", "http_server"),
	}
}

// Router builds the route tree. Split out from Run so tests can drive it
// with httptest.
func (s *HTTPServer) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/register", s.handleRegister)
	r.Post("/api/login", s.handleLogin)
	r.Post("/api/forgot-password", s.handleForgotPassword)
	r.Post("/api/reset-password", s.handleResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(s.withAuth)

		r.Post("/api/logout", s.handleLogout)
		r.Get("/api/me", s.handleMe)
		r.Get("/api/users", s.handleListUsers)
		r.Post("/api/users/admin", s.handleCreateAdmin)
		r.Get("/api/users/{id}", s.handleGetUser)
		r.Patch("/api/users/{id}", s.handleUpdateProfile)
		r.Delete("/api/users/{id}", s.handleDeleteUser)
		r.Post("/api/users/{id}/change-password", s.handleChangePassword)
		r.Put("/api/users/{id}/role", s.handleUpdateRole)
	})

	return r
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.Timeout,
		WriteTimeout: s.cfg.Timeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "starting HTTP server", "address", s.cfg.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
