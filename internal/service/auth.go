package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/product-catalog-api/internal/errs"
	"github.com/iliyamo/product-catalog-api/internal/model"
	"github.com/iliyamo/product-catalog-api/internal/queue"
	"github.com/iliyamo/product-catalog-api/internal/repository"
	"github.com/iliyamo/product-catalog-api/internal/token"
	"github.com/iliyamo/product-catalog-api/internal/validation"
)

// RegisterInput is the registration payload.
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=admin user client"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is the result of a successful login.
type Session struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// AuthService orchestrates registration, login, logout and identity lookup.
type AuthService struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenIssuer
	events EventPublisher
	log    *zap.Logger

	// dummyHash is verified against when the email is unknown so both
	// failure paths do the same work.
	dummyHash string
}

func NewAuthService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, events EventPublisher, log *zap.Logger) *AuthService {
	s := &AuthService{users: users, hasher: hasher, tokens: tokens, events: events, log: log}
	if h, err := hasher.Hash("invalid-password-placeholder"); err == nil {
		s.dummyHash = h
	}
	return s
}

// Register validates in, hashes the password and persists the user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	role := model.DefaultRole
	if in.Role != "" {
		r, err := model.ParseRole(in.Role)
		if err != nil {
			return nil, errs.Field("role", "The selected role is invalid.")
		}
		role = r
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.log.Error("hash password", zap.Error(err))
		return nil, errs.Internal("could not create user", err)
	}
	u := &model.User{Name: in.Name, Email: in.Email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, errs.Field("email", "The email has already been taken.")
		}
		s.log.Error("create user", zap.Error(err))
		return nil, errs.Internal("could not create user", err)
	}

	s.publish(ctx, queue.CatalogEvent{Type: queue.UserRegistered, EntityID: u.ID, Name: u.Name})
	return u, nil
}

// Login verifies credentials and issues a bearer token. Unknown email and
// wrong password produce the same authentication error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	u, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		s.hasher.Verify(s.dummyHash, in.Password)
		return nil, errs.Authentication("invalid credentials", nil)
	case err != nil:
		s.log.Error("load user by email", zap.Error(err))
		return nil, errs.Internal("could not authenticate user", err)
	}
	if !s.hasher.Verify(u.PasswordHash, in.Password) {
		return nil, errs.Authentication("invalid credentials", nil)
	}

	tok, err := s.tokens.Issue(ctx, u.ID, u.Role)
	if err != nil {
		s.log.Error("issue token", zap.Uint64("user_id", u.ID), zap.Error(err))
		return nil, errs.Internal("could not create token", err)
	}
	return &Session{
		Token:     tok.Raw,
		TokenType: "bearer",
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
	}, nil
}

// Logout invalidates raw so later verification fails before expiry.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errs.Authentication("missing bearer token", nil)
	}
	if err := s.tokens.Invalidate(ctx, raw); err != nil {
		if isTokenRejection(err) {
			return errs.Authentication("invalid token", err)
		}
		s.log.Error("invalidate token", zap.Error(err))
		return errs.Internal("could not log out", err)
	}
	return nil
}

// Authenticate verifies raw and returns its claims. It backs the bearer
// middleware.
func (s *AuthService) Authenticate(ctx context.Context, raw string) (*token.Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errs.Authentication("missing bearer token", nil)
	}
	claims, err := s.tokens.Verify(ctx, raw)
	if err != nil {
		if isTokenRejection(err) {
			return nil, errs.Authentication(tokenMessage(err), err)
		}
		s.log.Error("verify token", zap.Error(err))
		return nil, errs.Internal("could not verify token", err)
	}
	return claims, nil
}

// CurrentUser resolves the subject of raw to its user record.
func (s *AuthService) CurrentUser(ctx context.Context, raw string) (*model.User, error) {
	claims, err := s.Authenticate(ctx, raw)
	if err != nil {
		return nil, err
	}
	uid, err := claims.UserID()
	if err != nil {
		return nil, errs.Authentication("invalid token", err)
	}
	u, err := s.users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, errs.Authentication("invalid token", err)
		}
		s.log.Error("load current user", zap.Uint64("user_id", uid), zap.Error(err))
		return nil, errs.Internal("could not load user", err)
	}
	return u, nil
}

func (s *AuthService) publish(ctx context.Context, ev queue.CatalogEvent) {
	publish(ctx, s.events, s.log, ev)
}

func isTokenRejection(err error) bool {
	return errors.Is(err, token.ErrInvalidToken) ||
		errors.Is(err, token.ErrExpiredToken) ||
		errors.Is(err, token.ErrRevokedToken)
}

func tokenMessage(err error) string {
	switch {
	case errors.Is(err, token.ErrExpiredToken):
		return "token has expired"
	case errors.Is(err, token.ErrRevokedToken):
		return "token has been invalidated"
	default:
		return "invalid token"
	}
}

// publish is best effort: a broker outage never fails a committed write.
func publish(ctx context.Context, p EventPublisher, log *zap.Logger, ev queue.CatalogEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		log.Warn("publish event", zap.String("event", ev.Type), zap.Error(err))
	}
}
