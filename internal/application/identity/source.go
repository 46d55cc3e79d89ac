package identity

import (
	"context"

	"github.com/predictpesa/predictpesa-api/internal/domain/user"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/auth/jwtauth"
	"github.com/predictpesa/predictpesa-api/pkg/errors"
)

// Source resolves identities from the user repository on an identity-cache
// miss.  It implements jwtauth.IdentitySource.
type Source struct {
	users user.Repository
}

// NewSource returns a Source reading from users.
func NewSource(users user.Repository) *Source {
	return &Source{users: users}
}

// LookupIdentity returns the current identity of userID.  Unknown users and
// accounts not in good standing are reported with the codes the
// authenticator rejects on; repository failures are wrapped so they read as
// an unavailable source.
func (s *Source) LookupIdentity(ctx context.Context, userID string) (*jwtauth.Identity, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeUserNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "identity source unavailable")
	}
	if !u.InGoodStanding() {
		return nil, ErrInactiveUser
	}
	return identityOf(u), nil
}
