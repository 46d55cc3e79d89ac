package user

import (
	"context"

	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

var (
	ErrNotFound    = errors.New(errors.ErrCodeUserNotFound, "user not found")
	ErrEmailExists = errors.New(errors.ErrCodeEmailExists, "Email already registered")
)

// Repository is the persistence contract for accounts.  Lookups of unknown
// users return ErrNotFound; Create returns ErrEmailExists on a duplicate
// email.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
}
