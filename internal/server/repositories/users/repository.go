// Package users defines the user repository boundary consumed by the
// identity service, plus its PostgreSQL implementation.
package users

import (
	"context"
	"time"

	"github.com/dstepanov2008/shopauth/internal/server/models"
)

// Repository is the persistence boundary for user records. Implementations
// return common.ErrorNotFound for missing rows and common.ErrorAlreadyExists
// for email uniqueness violations.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id, email, name string, updatedAt time.Time) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	UpdateAdminFlag(ctx context.Context, id string, isAdmin bool, updatedAt time.Time) (*models.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*models.User, error)
}
