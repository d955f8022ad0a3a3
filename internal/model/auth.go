package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by db lookups that match no live row.
var ErrNotFound = errors.New("record not found")

const (
	ProviderGoogle = "google"
	ProviderEmail  = "email"

	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User is a local account bound to an external identity. PasswordHash is set
// only for provider "email" accounts and never serialized.
type User struct {
	ID                  uuid.UUID  `json:"id"`
	Email               string     `json:"email"`
	Provider            string     `json:"provider"`
	ProviderID          *string    `json:"providerId,omitempty"`
	FirstName           *string    `json:"firstName,omitempty"`
	LastName            *string    `json:"lastName,omitempty"`
	AvatarURL           *string    `json:"avatarUrl,omitempty"`
	Role                string     `json:"role"`
	OnboardingCompleted bool       `json:"onboardingCompleted"`
	PasswordHash        *string    `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
	DeletedAt           *time.Time `json:"-"`
}

// RefreshToken is one outstanding single-use session-renewal capability.
// The opaque wire token is stored hashed; redeeming it revokes the row and
// issues a replacement.
type RefreshToken struct {
	ID        int64
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Valid reports whether the credential is still redeemable at now.
func (t *RefreshToken) Valid(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// AuthUser is the identity extracted from a verified access token.
type AuthUser struct {
	ID    uuid.UUID
	Email string
	Role  string
}

// GoogleClaims are the identity claims extracted from a verified Google ID
// token.
type GoogleClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
	Picture       string
}

type GoogleLoginRequest struct {
	IDToken string `json:"idToken"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}
