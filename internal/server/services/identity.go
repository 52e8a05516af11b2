// Package services contains the server-side business logic of the identity
// core. IdentityService orchestrates hashing, token issuance, authorization
// and the repositories; ResetTokenManager owns the reset-token lifecycle.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dstepanov2008/shopauth/internal/common"
	"github.com/dstepanov2008/shopauth/internal/dbx"
	"github.com/dstepanov2008/shopauth/internal/logging"
	"github.com/dstepanov2008/shopauth/internal/server/auth"
	"github.com/dstepanov2008/shopauth/internal/server/models"
	"github.com/dstepanov2008/shopauth/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// IssuedToken bundles a signed access token with its expiry metadata.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// ResetMailPublisher delivers a password-reset token to the user. The
// implementation decides the channel (message queue, plain log in dev).
type ResetMailPublisher interface {
	SendResetMail(ctx context.Context, email, token string, expiresAt time.Time) error
}

// IdentityService implements the identity flows: register, login, password
// change/reset, role updates, and profile CRUD. It is the only writer of
// password hashes and admin flags.
type IdentityService struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	issuer *auth.TokenIssuer
	resets *ResetTokenManager
	mail   ResetMailPublisher
	logger logging.Logger
	now    func() time.Time
}

func NewIdentityService(
	db *sql.DB,
	rm repomanager.RepositoryManager,
	issuer *auth.TokenIssuer,
	resets *ResetTokenManager,
	mail ResetMailPublisher,
	logger logging.Logger,
) *IdentityService {
	return &IdentityService{
		db:     db,
		rm:     rm,
		issuer: issuer,
		resets: resets,
		mail:   mail,
		logger: logger.With("module", "identity"),
		now:    time.Now,
	}
}

// normalizeEmail lower-cases and trims an address; lookups and storage are
// case-insensitive by construction.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a customer account. The admin flag is always false here
// no matter what the caller supplied upstream; admin accounts are created
// only through CreateAdmin.
func (s *IdentityService) Register(ctx context.Context, email, name, password string) (*models.User, *IssuedToken, error) {
	user, err := s.createUser(ctx, email, name, password, false)
	if err != nil {
		return nil, nil, err
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	return user, token, nil
}

// CreateAdmin creates an account with the admin flag set. Only an existing
// admin may call it; this is a separate entry point on purpose, not a role
// field on registration.
func (s *IdentityService) CreateAdmin(ctx context.Context, actor *auth.Claims, email, name, password string) (*models.User, error) {
	if err := auth.Authorize(actor, "", true); err != nil {
		return nil, err
	}

	user, err := s.createUser(ctx, email, name, password, true)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "admin created", "user_id", user.ID, "actor_id", actor.Subject)
	return user, nil
}

func (s *IdentityService) createUser(ctx context.Context, email, name, password string, isAdmin bool) (*models.User, error) {
	email = normalizeEmail(email)
	if err := auth.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := auth.ValidatePasswordStrength(password); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.rm.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return created, nil
}

// Login verifies credentials and mints a token. Unknown email and wrong
// password yield the same common.ErrInvalidCredentials so callers cannot
// enumerate accounts.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*models.User, *IssuedToken, error) {
	user, err := s.rm.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrInvalidCredentials
		}
		return nil, nil, common.ErrorInternal
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		// Corrupt stored hash is a data-integrity fault, not a bad login.
		s.logger.Error(ctx, "stored password hash unreadable", "user_id", user.ID, "err", err.Error())
		return nil, nil, common.ErrorInternal
	}
	if !ok {
		return nil, nil, common.ErrInvalidCredentials
	}

	token, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return user, token, nil
}

// VerifyToken validates a compact access token and returns its claims.
func (s *IdentityService) VerifyToken(token string) (*auth.Claims, error) {
	return s.issuer.Verify(token)
}

// GetUser returns the target user; permitted for the user themselves or an
// admin.
func (s *IdentityService) GetUser(ctx context.Context, actor *auth.Claims, targetID string) (*models.User, error) {
	if err := auth.Authorize(actor, targetID, false); err != nil {
		return nil, err
	}
	return s.getUser(ctx, targetID)
}

// ListUsers returns all users; admin only.
func (s *IdentityService) ListUsers(ctx context.Context, actor *auth.Claims) ([]*models.User, error) {
	if err := auth.Authorize(actor, "", true); err != nil {
		return nil, err
	}
	list, err := s.rm.Users(s.db).List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	return list, nil
}

// UpdateProfile changes name and/or email for the target user; permitted for
// the user themselves or an admin. Nil fields are left untouched.
func (s *IdentityService) UpdateProfile(ctx context.Context, actor *auth.Claims, targetID string, email, name *string) (*models.User, error) {
	if err := auth.Authorize(actor, targetID, false); err != nil {
		return nil, err
	}

	user, err := s.getUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	newEmail := user.Email
	if email != nil {
		newEmail = normalizeEmail(*email)
		if err := auth.ValidateEmail(newEmail); err != nil {
			return nil, err
		}
	}
	newName := user.Name
	if name != nil {
		newName = *name
	}

	updated, err := s.rm.Users(s.db).UpdateProfile(ctx, targetID, newEmail, newName, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) || errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("error updating profile: %w", err)
	}
	return updated, nil
}

// ChangePassword replaces the target's password after verifying the current
// one. Strictly self-service: even admins may not change another user's
// password this way (they can issue a reset instead).
//
// Outstanding access tokens stay valid until natural expiry; that is the
// stateless-token trade-off, not an oversight.
func (s *IdentityService) ChangePassword(ctx context.Context, actor *auth.Claims, targetID, currentPassword, newPassword string) error {
	if actor == nil {
		return common.ErrorUnauthorized
	}
	if actor.Subject != targetID {
		return common.ErrorForbidden
	}

	user, err := s.getUser(ctx, targetID)
	if err != nil {
		return err
	}

	ok, err := auth.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil {
		s.logger.Error(ctx, "stored password hash unreadable", "user_id", user.ID, "err", err.Error())
		return common.ErrorInternal
	}
	if !ok {
		return common.ErrInvalidCredentials
	}

	if err := auth.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return common.ErrorInternal
	}
	if err := s.rm.Users(s.db).UpdatePasswordHash(ctx, targetID, hash, s.now()); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	s.logger.Info(ctx, "password changed", "user_id", user.ID)
	return nil
}

// ForgotPassword generates a reset token for the account and hands it to
// the mail publisher. Unknown addresses return common.ErrorNotFound — this
// flow discloses existence deliberately.
func (s *IdentityService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.rm.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}

	token, expiresAt, err := s.resets.Generate(ctx, user.ID)
	if err != nil {
		return common.ErrorInternal
	}

	if err := s.mail.SendResetMail(ctx, user.Email, token, expiresAt); err != nil {
		// The token is stored and still redeemable; delivery failure is an
		// operational problem, not the requester's.
		s.logger.Error(ctx, "failed to deliver reset mail", "user_id", user.ID, "err", err.Error())
	}

	s.logger.Info(ctx, "reset token generated", "user_id", user.ID)
	return nil
}

// ResetPassword redeems a reset token and installs the new password. The
// consume and the hash update run in one transaction, so a weak password
// rolls the redemption back and the token stays usable; a consumed token
// never validates again once committed.
func (s *IdentityService) ResetPassword(ctx context.Context, token, newPassword string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		userID, err := s.resets.ValidateAndConsume(ctx, tx, token)
		if err != nil {
			return err
		}

		if err := auth.ValidatePasswordStrength(newPassword); err != nil {
			return err
		}

		hash, err := auth.HashPassword(newPassword)
		if err != nil {
			return common.ErrorInternal
		}
		if err := s.rm.Users(tx).UpdatePasswordHash(ctx, userID, hash, s.now()); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}

		s.logger.Info(ctx, "password reset", "user_id", userID)
		return nil
	})
}

// UpdateRole flips the target's admin flag; admin only.
func (s *IdentityService) UpdateRole(ctx context.Context, actor *auth.Claims, targetID string, isAdmin bool) (*models.User, error) {
	if err := auth.Authorize(actor, "", true); err != nil {
		return nil, err
	}

	user, err := s.rm.Users(s.db).UpdateAdminFlag(ctx, targetID, isAdmin, s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error updating role: %w", err)
	}

	s.logger.Info(ctx, "role updated", "user_id", user.ID, "is_admin", isAdmin, "actor_id", actor.Subject)
	return user, nil
}

// DeleteUser removes the target account; permitted for the user themselves
// or an admin. Outstanding tokens for the deleted user remain valid until
// expiry (stateless tokens, accepted risk).
func (s *IdentityService) DeleteUser(ctx context.Context, actor *auth.Claims, targetID string) error {
	if err := auth.Authorize(actor, targetID, false); err != nil {
		return err
	}

	if err := s.rm.Users(s.db).Delete(ctx, targetID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error deleting user: %w", err)
	}

	s.logger.Info(ctx, "user deleted", "user_id", targetID)
	return nil
}

// EnsureBootstrapAdmin creates the configured admin account if it does not
// exist yet. Called once at startup; an already-present account is left
// untouched.
func (s *IdentityService) EnsureBootstrapAdmin(ctx context.Context, email, name, password string) error {
	email = normalizeEmail(email)

	_, err := s.rm.Users(s.db).GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return common.ErrorInternal
	}

	user, err := s.createUser(ctx, email, name, password, true)
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "bootstrap admin created", "user_id", user.ID)
	return nil
}

func (s *IdentityService) getUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.rm.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

func (s *IdentityService) issue(user *models.User) (*IssuedToken, error) {
	token, expiresAt, err := s.issuer.Issue(user)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &IssuedToken{Token: token, ExpiresAt: expiresAt}, nil
}
