// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and verifies the signed access/refresh token pairs.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"codeberg.org/oliverandrich/talentgate-identity/internal/apperr"
	"codeberg.org/oliverandrich/talentgate-identity/internal/models"
	"codeberg.org/oliverandrich/talentgate-identity/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Type discriminates access from refresh tokens.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
)

// TokenType is the token_type reported to clients.
const TokenType = "Bearer"

// Claims is the signed payload of both token types.
type Claims struct {
	IdentityID int64       `json:"identity_id"`
	Email      string      `json:"email"`
	Role       models.Role `json:"role"`
	FullName   string      `json:"full_name"`
	Type       Type        `json:"type"`
	jwt.RegisteredClaims
}

// Config holds signing parameters.
type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	// RotateRefresh makes every refresh single-use: each refresh returns a
	// new refresh token and presenting a spent one revokes the whole chain.
	RotateRefresh bool
}

// Validate rejects configurations that would let one secret verify both types.
func (c Config) Validate() error {
	if c.AccessSecret == "" || c.RefreshSecret == "" {
		return errors.New("token secrets must not be empty")
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("access and refresh token secrets must differ")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	return nil
}

// Store is the slice of the credential store the service needs.
type Store interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateRefreshToken(ctx context.Context, jti string, userID int64, expiresAt time.Time) error
	RotateRefreshToken(ctx context.Context, oldJTI, newJTI string, userID int64, expiresAt time.Time) error
	RevokeUserRefreshTokens(ctx context.Context, userID int64) (int64, error)
}

// Pair is a freshly issued access/refresh token pair.
type Pair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Refreshed is the result of exchanging a refresh token. RefreshToken is
// only set when rotation is enabled.
type Refreshed struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Service issues and verifies tokens.
type Service struct {
	cfg   Config
	store Store
	now   func() time.Time
}

// NewService creates a token service.
func NewService(cfg Config, store Store) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{cfg: cfg, store: store, now: time.Now}, nil
}

// WithClock returns a copy of the service that reads time from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	c := *s
	c.now = now
	return &c
}

// ExpiresIn is the access token lifetime in seconds.
func (s *Service) ExpiresIn() int64 {
	return int64(s.cfg.AccessTTL / time.Second)
}

// IssuePair signs a new access and refresh token for user.
func (s *Service) IssuePair(ctx context.Context, user *models.User) (*Pair, error) {
	access, err := s.sign(user, TypeAccess)
	if err != nil {
		return nil, err
	}
	refresh, refreshClaims, err := s.signRefresh(user)
	if err != nil {
		return nil, err
	}

	if s.cfg.RotateRefresh {
		if err := s.store.CreateRefreshToken(ctx, refreshClaims.ID, user.ID, refreshClaims.ExpiresAt.Time); err != nil {
			return nil, apperr.Internal(fmt.Errorf("record refresh token: %w", err))
		}
	}

	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    TokenType,
		ExpiresIn:    s.ExpiresIn(),
	}, nil
}

// Verify checks signature, expiry, issuer, audience and that the token is
// of the expected type.
func (s *Service) Verify(tokenString string, expected Type) (*Claims, error) {
	secret := s.cfg.AccessSecret
	if expected == TypeRefresh {
		secret = s.cfg.RefreshSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	if s.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.cfg.Audience))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.TokenExpired().Wrap(err)
		}
		return nil, apperr.InvalidToken().Wrap(err)
	}

	if claims.Type != expected {
		return nil, apperr.WrongTokenType()
	}
	if claims.IdentityID <= 0 || claims.Subject != strconv.FormatInt(claims.IdentityID, 10) {
		return nil, apperr.InvalidToken()
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new access token. The identity is
// re-read from the store; embedded claims are never trusted for role or
// status.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Refreshed, error) {
	claims, err := s.Verify(refreshToken, TypeRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, claims.IdentityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.InvalidToken()
		}
		return nil, apperr.Internal(fmt.Errorf("load identity: %w", err))
	}
	if !user.IsActive {
		return nil, apperr.AccountDeactivated()
	}

	access, err := s.sign(user, TypeAccess)
	if err != nil {
		return nil, err
	}
	out := &Refreshed{
		AccessToken: access,
		TokenType:   TokenType,
		ExpiresIn:   s.ExpiresIn(),
	}

	if !s.cfg.RotateRefresh {
		return out, nil
	}

	refresh, refreshClaims, err := s.signRefresh(user)
	if err != nil {
		return nil, err
	}
	err = s.store.RotateRefreshToken(ctx, claims.ID, refreshClaims.ID, user.ID, refreshClaims.ExpiresAt.Time)
	if errors.Is(err, repository.ErrNotFound) {
		// A spent or unknown token: assume it leaked and end the chain.
		revoked, revokeErr := s.store.RevokeUserRefreshTokens(ctx, user.ID)
		if revokeErr != nil {
			return nil, apperr.Internal(fmt.Errorf("revoke refresh tokens: %w", revokeErr))
		}
		slog.Warn("refresh_token_reuse", "user_id", user.ID, "jti", claims.ID, "revoked", revoked)
		return nil, apperr.InvalidToken()
	}
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("rotate refresh token: %w", err))
	}

	out.RefreshToken = refresh
	return out, nil
}

// Revoke ends every refresh chain of the identity. Without rotation refresh
// tokens are not tracked and this is a no-op.
func (s *Service) Revoke(ctx context.Context, userID int64) error {
	if !s.cfg.RotateRefresh {
		return nil
	}
	if _, err := s.store.RevokeUserRefreshTokens(ctx, userID); err != nil {
		return apperr.Internal(fmt.Errorf("revoke refresh tokens: %w", err))
	}
	return nil
}

func (s *Service) signRefresh(user *models.User) (string, *Claims, error) {
	claims := s.claims(user, TypeRefresh)
	signed, err := s.signClaims(claims, s.cfg.RefreshSecret)
	return signed, claims, err
}

func (s *Service) sign(user *models.User, typ Type) (string, error) {
	secret := s.cfg.AccessSecret
	if typ == TypeRefresh {
		secret = s.cfg.RefreshSecret
	}
	return s.signClaims(s.claims(user, typ), secret)
}

func (s *Service) claims(user *models.User, typ Type) *Claims {
	now := s.now()
	ttl := s.cfg.AccessTTL
	if typ == TypeRefresh {
		ttl = s.cfg.RefreshTTL
	}
	return &Claims{
		IdentityID: user.ID,
		Email:      user.Email,
		Role:       user.Role,
		FullName:   user.FullName,
		Type:       typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			Issuer:    s.cfg.Issuer,
			Audience:  audience(s.cfg.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (s *Service) signClaims(claims *Claims, secret string) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("sign token: %w", err))
	}
	return signed, nil
}

func audience(aud string) jwt.ClaimStrings {
	if aud == "" {
		return nil
	}
	return jwt.ClaimStrings{aud}
}
