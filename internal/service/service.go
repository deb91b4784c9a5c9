// Package service holds the application operations behind the HTTP
// handlers. Every exported operation returns either a result or an
// *errs.Error; handlers never see driver or library errors directly.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/product-catalog-api/internal/model"
	"github.com/iliyamo/product-catalog-api/internal/queue"
	"github.com/iliyamo/product-catalog-api/internal/token"
)

// UserStore is the credential store.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// PasswordHasher hashes and verifies plaintext passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// TokenIssuer issues, verifies and invalidates bearer tokens.
type TokenIssuer interface {
	Issue(ctx context.Context, userID uint64, role model.Role) (token.Token, error)
	Verify(ctx context.Context, raw string) (*token.Claims, error)
	Invalidate(ctx context.Context, raw string) error
	TTL() time.Duration
}

// CategoryStore persists categories.
type CategoryStore interface {
	List(ctx context.Context) ([]model.CategorySummary, error)
	GetByID(ctx context.Context, id uint64) (*model.Category, error)
	Exists(ctx context.Context, id uint64) (bool, error)
	Create(ctx context.Context, name string) (*model.Category, error)
	Update(ctx context.Context, id uint64, name string) (*model.Category, error)
	Delete(ctx context.Context, id uint64) error
}

// ProductStore persists products.
type ProductStore interface {
	List(ctx context.Context) ([]model.ProductListItem, error)
	GetByID(ctx context.Context, id uint64) (*model.Product, error)
	Create(ctx context.Context, p *model.Product) (*model.Product, error)
	Update(ctx context.Context, id uint64, p *model.Product) (*model.Product, error)
	Delete(ctx context.Context, id uint64) error
}

// EventPublisher receives catalog events after successful writes.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.CatalogEvent) error
}
