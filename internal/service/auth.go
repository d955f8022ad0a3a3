package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/config"
	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/log"
	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/metrics"
	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/model"
	"github.com/JuanchiiGomezZ/full-stack-multiplatform-template/internal/queue"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConflict      = errors.New("conflict")
	ErrMisconfigured = errors.New("auth config invalid")
)

// Repository is the session-store surface the issuer needs. *db.Postgres
// satisfies it; tests use in-memory fakes.
type Repository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*model.User, error)
	UpdateGoogleIdentity(ctx context.Context, userID uuid.UUID, providerID string, avatarURL *string) (*model.User, error)
	SetOnboardingCompleted(ctx context.Context, userID uuid.UUID) (*model.User, error)
	InsertRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	RevokeRefreshTokenByHash(ctx context.Context, tokenHash string) error
	RotateRefreshToken(ctx context.Context, oldTokenID int64, userID uuid.UUID, newTokenHash string, newExpiresAt time.Time) error
}

// IdentityVerifier proves a Google ID token and extracts identity claims.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*model.GoogleClaims, error)
}

type AuthService struct {
	repo       Repository
	verifier   IdentityVerifier
	events     queue.Publisher
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

type authClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func NewAuthService(repo Repository, verifier IdentityVerifier, events queue.Publisher, cfg config.AuthConfig) (*AuthService, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET is required", ErrMisconfigured)
	}

	accessTTL, err := time.ParseDuration(cfg.JWTAccessTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWT_ACCESS_TTL", ErrMisconfigured)
	}

	refreshTTL, err := time.ParseDuration(cfg.JWTRefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWT_REFRESH_TTL", ErrMisconfigured)
	}

	if events == nil {
		events = queue.NewNoop()
	}

	return &AuthService{
		repo:       repo,
		verifier:   verifier,
		events:     events,
		jwtSecret:  []byte(cfg.JWTSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// EnsureAdmin seeds an ADMIN account at startup when configured. Existing
// accounts are left untouched.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: ADMIN_EMAIL/ADMIN_PASSWORD are required", ErrMisconfigured)
	}

	_, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return err
	}

	if err := validateCredentials(email, password); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	hashStr := string(hash)
	return s.repo.CreateUser(ctx, &model.User{
		ID:           uuid.New(),
		Email:        email,
		Provider:     model.ProviderEmail,
		Role:         model.RoleAdmin,
		PasswordHash: &hashStr,
	})
}

// LoginWithGoogle converts a verified Google identity into a local session.
// The user is upserted by email: first login creates the account, later
// logins re-bind the provider subject id and avatar.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (*model.AuthResponse, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, ErrInvalidInput
	}

	claims, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		log.L().Warn("google id token rejected", zap.Error(err))
		return nil, ErrUnauthorized
	}

	email := normalizeEmail(claims.Email)
	user, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if user, err = s.repo.UpdateGoogleIdentity(ctx, user.ID, claims.Subject, optional(claims.Picture)); err != nil {
			return nil, err
		}
	case errors.Is(err, model.ErrNotFound):
		user = &model.User{
			ID:         uuid.New(),
			Email:      email,
			Provider:   model.ProviderGoogle,
			ProviderID: optional(claims.Subject),
			FirstName:  optional(claims.GivenName),
			LastName:   optional(claims.FamilyName),
			AvatarURL:  optional(claims.Picture),
			Role:       model.RoleUser,
		}
		if err := s.repo.CreateUser(ctx, user); err != nil {
			if !isUniqueViolation(err) {
				return nil, err
			}
			// Either a concurrent first login won the race, or the email
			// belongs to a soft-deleted account. The former resolves by
			// re-reading; the latter stays unauthorized.
			if user, err = s.repo.GetUserByEmail(ctx, email); err != nil {
				if errors.Is(err, model.ErrNotFound) {
					return nil, ErrUnauthorized
				}
				return nil, err
			}
		} else {
			s.publish(ctx, queue.KeyUserRegistered, queue.UserRegistered{UserID: user.ID, Email: user.Email, Provider: user.Provider})
		}
	default:
		return nil, err
	}

	resp, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.KeyUserLoggedIn, queue.UserLoggedIn{UserID: user.ID, Email: user.Email, Provider: model.ProviderGoogle})
	return resp, nil
}

// Register creates a provider "email" account. Email is globally unique
// regardless of provider, so an address already bound to a Google account is
// a conflict.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if err := validateCredentials(email, req.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	hashStr := string(hash)
	user := &model.User{
		ID:           uuid.New(),
		Email:        email,
		Provider:     model.ProviderEmail,
		FirstName:    optional(strings.TrimSpace(req.FirstName)),
		LastName:     optional(strings.TrimSpace(req.LastName)),
		Role:         model.RoleUser,
		PasswordHash: &hashStr,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, err
	}

	s.publish(ctx, queue.KeyUserRegistered, queue.UserRegistered{UserID: user.ID, Email: user.Email, Provider: user.Provider})

	return s.issueTokens(ctx, user)
}

// Login authenticates a provider "email" account. Unknown email, wrong
// password and Google-only accounts are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.AuthResponse, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if user.PasswordHash == nil {
		return nil, ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrUnauthorized
	}

	resp, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, queue.KeyUserLoggedIn, queue.UserLoggedIn{UserID: user.ID, Email: user.Email, Provider: user.Provider})
	return resp, nil
}

// Refresh redeems a refresh credential. Redemption is a full rotation: the
// old credential is revoked and a new access/refresh pair is issued. Missing,
// revoked and expired credentials all come back ErrUnauthorized so callers
// cannot probe token lifecycle.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.RefreshResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, ErrUnauthorized
	}

	record, err := s.repo.GetRefreshTokenByHash(ctx, hashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			metrics.RefreshRotations.WithLabelValues("rejected").Inc()
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if !record.Valid(time.Now()) {
		metrics.RefreshRotations.WithLabelValues("rejected").Inc()
		return nil, ErrUnauthorized
	}

	user, err := s.repo.GetUserByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			metrics.RefreshRotations.WithLabelValues("rejected").Inc()
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	newToken, newHash := newRefreshToken()
	if err := s.repo.RotateRefreshToken(ctx, record.ID, record.UserID, newHash, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, err
	}
	metrics.RefreshRotations.WithLabelValues("rotated").Inc()

	accessToken, expiresIn, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	return &model.RefreshResponse{
		AccessToken:  accessToken,
		RefreshToken: newToken,
		ExpiresIn:    expiresIn,
	}, nil
}

// Logout revokes the credential. Unknown or already-revoked tokens are a
// success no-op: logout must never block a client from clearing local state.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	return s.repo.RevokeRefreshTokenByHash(ctx, hashRefreshToken(refreshToken))
}

func (s *AuthService) CompleteOnboarding(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.repo.SetOnboardingCompleted(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) ParseAccessToken(tokenStr string) (*model.AuthUser, error) {
	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrUnauthorized
	}

	return &model.AuthUser{
		ID:    userID,
		Email: claims.Email,
		Role:  claims.Role,
	}, nil
}

func (s *AuthService) issueTokens(ctx context.Context, user *model.User) (*model.AuthResponse, error) {
	accessToken, expiresIn, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshHash := newRefreshToken()
	if err := s.repo.InsertRefreshToken(ctx, user.ID, refreshHash, time.Now().Add(s.refreshTTL)); err != nil {
		return nil, err
	}

	return &model.AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    expiresIn,
	}, nil
}

func (s *AuthService) generateAccessToken(user *model.User) (string, int64, error) {
	now := time.Now()
	claims := authClaims{
		Email: user.Email,
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", 0, err
	}

	return signed, int64(s.accessTTL.Seconds()), nil
}

func (s *AuthService) publish(ctx context.Context, key string, event any) {
	if err := s.events.Publish(ctx, key, event); err != nil {
		log.L().Warn("failed to publish auth event", zap.String("key", key), zap.Error(err))
	}
}

func validateCredentials(email, password string) error {
	if !strings.Contains(email, "@") || len(email) > 254 {
		return ErrInvalidInput
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return ErrInvalidInput
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// The wire token is an opaque UUIDv4; only its sha256 is stored.
func newRefreshToken() (string, string) {
	token := uuid.NewString()
	return token, hashRefreshToken(token)
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
