// Package server wires the identity service together: configuration,
// logging, database, migrations, the reset-mail publisher and the HTTP
// server, with graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dstepanov2008/shopauth/internal/logging"
	"github.com/dstepanov2008/shopauth/internal/server/auth"
	"github.com/dstepanov2008/shopauth/internal/server/config"
	"github.com/dstepanov2008/shopauth/internal/server/httpapi"
	"github.com/dstepanov2008/shopauth/internal/server/notify"
	"github.com/dstepanov2008/shopauth/internal/server/repositories/repomanager"
	"github.com/dstepanov2008/shopauth/internal/server/services"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	rm       repomanager.RepositoryManager
	identity *services.IdentityService
	cleanup  []func()
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.Setup(cfg.Env, os.Stdout)

	db, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	secret, insecure := cfg.SigningSecret()
	if insecure {
		logger.Warn(context.Background(),
			"JWT_SECRET is not set, signing tokens with the built-in development secret; do not run this in production")
	}

	issuer := auth.NewTokenIssuer([]byte(secret), cfg.Tokens.AccessTokenTTL)
	resets := services.NewResetTokenManager(db, rm, cfg.Tokens.ResetTokenTTL, logger)

	var mail services.ResetMailPublisher
	cleanup := []func(){func() { _ = db.Close() }}
	if cfg.RabbitMQ.URL != "" {
		broker, err := notify.NewRabbitMQPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("rabbitmq init error: %w", err)
		}
		cleanup = append(cleanup, broker.Close)
		mail = broker
	} else {
		mail = notify.NewLogPublisher(logger)
	}

	identity := services.NewIdentityService(db, rm, issuer, resets, mail, logger)

	return &App{
		config:   cfg,
		logger:   logger,
		db:       db,
		rm:       rm,
		identity: identity,
		cleanup:  cleanup,
	}, nil
}

// Run migrates the schema, seeds the bootstrap admin if configured, and
// serves HTTP until the context is canceled or a shutdown signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer app.close()

	app.initSignalHandler(cancel)

	app.logger.Info(ctx, "starting app", "env", app.config.Env)

	if err := app.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping error: %w", err)
	}

	if err := app.rm.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	if b := app.config.Bootstrap; b.Email != "" && b.Name != "" && b.Password != "" {
		if err := app.identity.EnsureBootstrapAdmin(ctx, b.Email, b.Name, b.Password); err != nil {
			return fmt.Errorf("bootstrap admin error: %w", err)
		}
	}

	srv := httpapi.NewHTTPServer(app.config.HTTPServer, app.identity, app.db, app.logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("http server error: %w", err)
	}

	app.logger.Info(ctx, "app stopped")
	return nil
}

func (app *App) initSignalHandler(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancel()
	}()
}

func (app *App) close() {
	for _, fn := range app.cleanup {
		fn()
	}
}
