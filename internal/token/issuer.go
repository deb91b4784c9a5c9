// Package token issues, verifies and invalidates signed bearer tokens. The
// signature and expiry live in the JWT itself; invalidation state is held by
// an injected RevocationStore so the issuer keeps no process-wide state.
package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/product-catalog-api/internal/model"
)

var (
	// ErrInvalidToken covers malformed tokens and bad signatures.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned once exp has passed.
	ErrExpiredToken = errors.New("token has expired")
	// ErrRevokedToken is returned for tokens that were invalidated.
	ErrRevokedToken = errors.New("token has been invalidated")
)

// RevocationStore remembers invalidated token ids until they would have
// expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, exp time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Token is a freshly signed bearer token.
type Token struct {
	Raw       string
	ExpiresAt time.Time
}

// Claims are the verified contents of a token.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// JWTIssuer signs HS256 tokens bound to a user id.
type JWTIssuer struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	revoked RevocationStore
	now     func() time.Time
}

// NewJWTIssuer builds an issuer. ttl is the fixed validity window of issued
// tokens.
func NewJWTIssuer(secret string, ttl time.Duration, issuer string, revoked RevocationStore) *JWTIssuer {
	return &JWTIssuer{
		secret:  []byte(secret),
		ttl:     ttl,
		issuer:  issuer,
		revoked: revoked,
		now:     time.Now,
	}
}

// TTL returns the validity window of issued tokens.
func (i *JWTIssuer) TTL() time.Duration { return i.ttl }

// Issue signs a token for the given user.
func (i *JWTIssuer) Issue(_ context.Context, userID uint64, role model.Role) (Token, error) {
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(userID, 10),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{Raw: signed, ExpiresAt: exp}, nil
}

// Verify checks signature, expiry and revocation. Errors other than the
// sentinels above come from the revocation store.
func (i *JWTIssuer) Verify(ctx context.Context, raw string) (*Claims, error) {
	claims, err := i.parse(raw)
	if err != nil {
		return nil, err
	}
	revoked, err := i.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevokedToken
	}
	return claims, nil
}

// Invalidate revokes a currently valid token. Invalidating an expired,
// malformed or already revoked token fails.
func (i *JWTIssuer) Invalidate(ctx context.Context, raw string) error {
	claims, err := i.Verify(ctx, raw)
	if err != nil {
		return err
	}
	if err := i.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (i *JWTIssuer) parse(raw string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid || claims.ID == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
