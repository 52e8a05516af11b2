package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dstepanov2008/shopauth/internal/common"
	"github.com/dstepanov2008/shopauth/internal/dbx"
	"github.com/dstepanov2008/shopauth/internal/server/auth"
	"github.com/dstepanov2008/shopauth/internal/server/models"
	resettokensrepo "github.com/dstepanov2008/shopauth/internal/server/repositories/resettokens"
	usersrepo "github.com/dstepanov2008/shopauth/internal/server/repositories/users"
)

// Stateful in-memory repositories for end-to-end service flows. Unlike the
// field-programmed fakes they remember writes, so one scenario can span
// registration through password reset.

type memUsersRepo struct {
	mu    sync.Mutex
	users map[string]*models.User // keyed by id
}

func newMemUsersRepo() *memUsersRepo {
	return &memUsersRepo{users: map[string]*models.User{}}
}

func (m *memUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.users {
		if other.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return u, nil
}

func (m *memUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsersRepo) UpdateProfile(ctx context.Context, id, email, name string, updatedAt time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	for otherID, other := range m.users {
		if otherID != id && other.Email == email {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.Email, u.Name, u.UpdatedAt = email, name, updatedAt
	cp := *u
	return &cp, nil
}

func (m *memUsersRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash, u.UpdatedAt = passwordHash, updatedAt
	return nil
}

func (m *memUsersRepo) UpdateAdminFlag(ctx context.Context, id string, isAdmin bool, updatedAt time.Time) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.IsAdmin, u.UpdatedAt = isAdmin, updatedAt
	cp := *u
	return &cp, nil
}

func (m *memUsersRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return common.ErrorNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memUsersRepo) List(ctx context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.User
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

type memResetRepo struct {
	mu     sync.Mutex
	tokens map[string]*models.PasswordResetToken
}

func newMemResetRepo() *memResetRepo {
	return &memResetRepo{tokens: map[string]*models.PasswordResetToken{}}
}

func (m *memResetRepo) Create(ctx context.Context, token *models.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *token
	m.tokens[token.Token] = &cp
	return nil
}

func (m *memResetRepo) Find(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memResetRepo) Consume(ctx context.Context, token string, now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok || t.ConsumedAt != nil || !t.ExpiresAt.After(now) {
		return "", common.ErrorNotFound
	}
	consumed := now
	t.ConsumedAt = &consumed
	return t.UserID, nil
}

type memRepoManager struct {
	users  *memUsersRepo
	tokens *memResetRepo
}

func (m *memRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.users }
func (m *memRepoManager) ResetTokens(db dbx.DBTX) resettokensrepo.Repository {
	return m.tokens
}

func TestIdentityScenario_RegisterToReset(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()

	// Two ResetPassword attempts: the first commits, the replay rolls back.
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	rm := &memRepoManager{users: newMemUsersRepo(), tokens: newMemResetRepo()}
	mail := &fakeMailPublisher{}

	issuer := auth.NewTokenIssuer([]byte(testSecret), 24*time.Hour)
	resets := NewResetTokenManager(db, rm, time.Hour, nopLogger{})
	s := NewIdentityService(db, rm, issuer, resets, mail, nopLogger{})

	ctx := context.Background()
	const oldPassword = "Initial-Passw0rd!"
	const newPassword = "Changed-Passw0rd!"

	user, token, err := s.Register(ctx, "alice@example.com", "Alice", oldPassword)
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if _, err := s.VerifyToken(token.Token); err != nil {
		t.Fatalf("registration token invalid: %v", err)
	}

	if _, _, err := s.Login(ctx, "alice@example.com", oldPassword); err != nil {
		t.Fatalf("Login with original password: %v", err)
	}
	if _, _, err := s.Login(ctx, "alice@example.com", newPassword); !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("Login with future password: err = %v, want ErrInvalidCredentials", err)
	}

	if err := s.ForgotPassword(ctx, "alice@example.com"); err != nil {
		t.Fatalf("ForgotPassword error: %v", err)
	}
	if mail.token == "" {
		t.Fatal("no reset token delivered")
	}

	if err := s.ResetPassword(ctx, mail.token, newPassword); err != nil {
		t.Fatalf("ResetPassword error: %v", err)
	}

	if _, _, err := s.Login(ctx, "alice@example.com", oldPassword); !errors.Is(err, common.ErrInvalidCredentials) {
		t.Fatalf("Login with old password after reset: err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := s.Login(ctx, "alice@example.com", newPassword); err != nil {
		t.Fatalf("Login with new password after reset: %v", err)
	}

	// Replay of the consumed token must fail and leave the password alone.
	if err := s.ResetPassword(ctx, mail.token, "Replay-Passw0rd!"); !errors.Is(err, common.ErrResetTokenInvalid) {
		t.Fatalf("replayed reset: err = %v, want ErrResetTokenInvalid", err)
	}
	if _, _, err := s.Login(ctx, "alice@example.com", newPassword); err != nil {
		t.Fatalf("password changed by replayed reset: %v", err)
	}

	stored, err := rm.users.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetByEmail error: %v", err)
	}
	if stored.ID != user.ID {
		t.Errorf("stored id = %q, want %q", stored.ID, user.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet db expectations: %v", err)
	}
}
