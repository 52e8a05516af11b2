package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/dstepanov2008/shopauth/internal/common"
	"github.com/dstepanov2008/shopauth/internal/logging"
	"github.com/dstepanov2008/shopauth/internal/server/auth"
	"github.com/dstepanov2008/shopauth/internal/server/config"
	"github.com/dstepanov2008/shopauth/internal/server/repositories/repomanager"
	"github.com/dstepanov2008/shopauth/internal/server/services"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// operatorClaims is the synthetic actor behind every CLI operation. Anyone
// with direct database credentials already holds full control, so the
// authorization check is satisfied rather than bypassed.
var operatorClaims = &auth.Claims{
	RegisteredClaims: jwt.RegisteredClaims{Subject: "admincli"},
	Admin:            true,
}

type adminCLI struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	identity *services.IdentityService
}

// noopMailPublisher satisfies the identity service's publisher dependency;
// the CLI never triggers reset mail.
type noopMailPublisher struct{}

func (noopMailPublisher) SendResetMail(context.Context, string, string, time.Time) error {
	return nil
}

func newAdminCLI(cfg *config.Config, logger logging.Logger) (*adminCLI, error) {
	db, err := sql.Open("pgx", cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	secret, _ := cfg.SigningSecret()
	issuer := auth.NewTokenIssuer([]byte(secret), cfg.Tokens.AccessTokenTTL)
	resets := services.NewResetTokenManager(db, rm, cfg.Tokens.ResetTokenTTL, logger)
	identity := services.NewIdentityService(db, rm, issuer, resets, noopMailPublisher{}, logger)

	return &adminCLI{db: db, rm: rm, identity: identity}, nil
}

func (c *adminCLI) Close() {
	_ = c.db.Close()
}

// CreateAdmin prompts for a password without echo and creates an admin
// account. The regular password policy applies.
func (c *adminCLI) CreateAdmin(ctx context.Context, email, name string) error {
	fmt.Fprint(os.Stderr, "Enter password: ")
	password, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	defer common.WipeByteArray(password)

	user, err := c.identity.CreateAdmin(ctx, operatorClaims, email, name, string(password))
	if err != nil {
		return err
	}

	fmt.Printf("admin created: %s (%s)\n", user.Email, user.ID)
	return nil
}

// SetRole promotes or demotes the account with the given email.
func (c *adminCLI) SetRole(ctx context.Context, email string, isAdmin bool) error {
	user, err := c.rm.Users(c.db).GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("looking up %s: %w", email, err)
	}

	updated, err := c.identity.UpdateRole(ctx, operatorClaims, user.ID, isAdmin)
	if err != nil {
		return err
	}

	fmt.Printf("role updated: %s admin=%v\n", updated.Email, updated.IsAdmin)
	return nil
}
