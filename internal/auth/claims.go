package auth

import "github.com/spec-kit/hotel-booking/internal/domain"

// FromUserRecord projects a stored user into session claims.
func FromUserRecord(user domain.User) domain.IdentityClaims {
	return domain.IdentityClaims{
		ID:       user.ID,
		Name:     user.Name,
		Email:    domain.NormalizeEmail(user.Email),
		Location: user.Location,
		Role:     user.Role,
	}
}

// FromExternalProfile projects an identity-provider profile into session claims.
// Name and email come from the provider; id, role and location come from the
// linked record when there is one.
func FromExternalProfile(profile domain.ExternalProfile, linked *domain.User) domain.IdentityClaims {
	claims := domain.IdentityClaims{
		ID:    profile.Subject,
		Name:  profile.Name,
		Email: domain.NormalizeEmail(profile.Email),
		Role:  domain.RoleUser,
	}
	if linked == nil {
		return claims
	}

	claims.ID = linked.ID
	claims.Location = linked.Location
	if linked.Role != "" {
		claims.Role = linked.Role
	}
	if claims.Name == "" {
		claims.Name = linked.Name
	}
	return claims
}
