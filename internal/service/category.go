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
	"github.com/iliyamo/product-catalog-api/internal/validation"
)

// CategoryInput is the create/update payload.
type CategoryInput struct {
	Name string `json:"nombre" validate:"required,max=100"`
}

// CachePurger drops cached read responses after a write.
type CachePurger interface {
	Purge(ctx context.Context) error
}

// CategoryService implements category CRUD.
type CategoryService struct {
	store  CategoryStore
	events EventPublisher
	cache  CachePurger
	log    *zap.Logger
}

// NewCategoryService builds the service. cache may be nil.
func NewCategoryService(store CategoryStore, events EventPublisher, cache CachePurger, log *zap.Logger) *CategoryService {
	return &CategoryService{store: store, events: events, cache: cache, log: log}
}

func (s *CategoryService) List(ctx context.Context) ([]model.CategorySummary, error) {
	out, err := s.store.List(ctx)
	if err != nil {
		s.log.Error("list categories", zap.Error(err))
		return nil, errs.Internal("could not list categories", err)
	}
	return out, nil
}

func (s *CategoryService) Get(ctx context.Context, id uint64) (*model.Category, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapErr("get category", err)
	}
	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, in CategoryInput) (*model.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	c, err := s.store.Create(ctx, in.Name)
	if err != nil {
		return nil, s.mapErr("create category", err)
	}
	s.written(ctx, queue.CategoryCreated, c.ID, c.Name)
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id uint64, in CategoryInput) (*model.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	c, err := s.store.Update(ctx, id, in.Name)
	if err != nil {
		return nil, s.mapErr("update category", err)
	}
	s.written(ctx, queue.CategoryUpdated, c.ID, c.Name)
	return c, nil
}

// Delete removes the category and, through the store, its products.
func (s *CategoryService) Delete(ctx context.Context, id uint64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return s.mapErr("delete category", err)
	}
	s.written(ctx, queue.CategoryDeleted, id, "")
	return nil
}

func (s *CategoryService) written(ctx context.Context, typ string, id uint64, name string) {
	if s.cache != nil {
		if err := s.cache.Purge(ctx); err != nil {
			s.log.Warn("purge category cache", zap.Error(err))
		}
	}
	publish(ctx, s.events, s.log, queue.CatalogEvent{Type: typ, EntityID: id, Name: name, ActorID: actorFrom(ctx)})
}

func (s *CategoryService) mapErr(op string, err error) error {
	if errors.Is(err, repository.ErrCategoryNotFound) {
		return errs.NotFound("category not found")
	}
	s.log.Error(op, zap.Error(err))
	return errs.Internal("could not "+op, err)
}
