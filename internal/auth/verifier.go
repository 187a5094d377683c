package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/hotel-booking/internal/domain"
)

// UserFinder is the slice of the user store the verifier needs.
// Implementations return pgx.ErrNoRows when no record matches.
type UserFinder interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}

// CredentialVerifier checks email/password pairs against the user store.
type CredentialVerifier struct {
	users  UserFinder
	hasher PasswordHasher
}

// NewCredentialVerifier constructs a verifier.
func NewCredentialVerifier(users UserFinder, hasher PasswordHasher) *CredentialVerifier {
	return &CredentialVerifier{users: users, hasher: hasher}
}

// Verify returns the claims of the matching user, or ErrUserNotFound /
// ErrInvalidCredentials. It never returns partial claims.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (domain.IdentityClaims, error) {
	user, err := v.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.IdentityClaims{}, ErrUserNotFound
		}
		return domain.IdentityClaims{}, fmt.Errorf("find user by email: %w", err)
	}
	if user == nil {
		return domain.IdentityClaims{}, ErrUserNotFound
	}
	if user.PasswordHash == "" || v.hasher.Compare(user.PasswordHash, password) != nil {
		return domain.IdentityClaims{}, ErrInvalidCredentials
	}

	claims := FromUserRecord(*user)
	if err := claims.Validate(); err != nil {
		return domain.IdentityClaims{}, fmt.Errorf("%w: %v", ErrInvalidClaims, err)
	}
	return claims, nil
}
