package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/product-catalog-api/internal/errs"
	"github.com/iliyamo/product-catalog-api/internal/model"
	"github.com/iliyamo/product-catalog-api/internal/queue"
	"github.com/iliyamo/product-catalog-api/internal/repository"
	"github.com/iliyamo/product-catalog-api/internal/validation"
)

// ProductInput is the create/update payload. Pointers distinguish an
// omitted field from its zero value. Upper bounds follow the column types:
// INT for stock, DECIMAL(10,2) for precio and a utf8mb4 TEXT for descripcion.
type ProductInput struct {
	Name        string      `json:"nombre" validate:"required,max=150"`
	Description *string     `json:"descripcion" validate:"omitempty,max=16383"`
	Stock       *int        `json:"stock" validate:"required,min=0,max=2147483647"`
	Price       *float64    `json:"precio" validate:"required,min=0,max=99999999.99"`
	Weight      *float64    `json:"peso" validate:"omitempty,min=0.01"`
	Available   *bool       `json:"disponible"`
	ExpiresOn   *model.Date `json:"fecha_vencimiento"`
	PublishedAt *time.Time  `json:"publicado_en"`
	CategoryID  *uint64     `json:"categoria_id" validate:"required"`
}

// ProductService implements product CRUD.
type ProductService struct {
	products   ProductStore
	categories CategoryStore
	events     EventPublisher
	log        *zap.Logger
	now        func() time.Time
}

func NewProductService(products ProductStore, categories CategoryStore, events EventPublisher, log *zap.Logger) *ProductService {
	return &ProductService{products: products, categories: categories, events: events, log: log, now: time.Now}
}

func (s *ProductService) List(ctx context.Context) ([]model.ProductListItem, error) {
	out, err := s.products.List(ctx)
	if err != nil {
		s.log.Error("list products", zap.Error(err))
		return nil, errs.Internal("could not list products", err)
	}
	return out, nil
}

func (s *ProductService) Get(ctx context.Context, id uint64) (*model.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapErr("get product", err)
	}
	return p, nil
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*model.Product, error) {
	p, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}
	created, err := s.products.Create(ctx, p)
	if err != nil {
		return nil, s.mapErr("create product", err)
	}
	s.written(ctx, queue.ProductCreated, created)
	return created, nil
}

func (s *ProductService) Update(ctx context.Context, id uint64, in ProductInput) (*model.Product, error) {
	if _, err := s.products.GetByID(ctx, id); err != nil {
		return nil, s.mapErr("update product", err)
	}
	p, err := s.validate(ctx, in)
	if err != nil {
		return nil, err
	}
	updated, err := s.products.Update(ctx, id, p)
	if err != nil {
		return nil, s.mapErr("update product", err)
	}
	s.written(ctx, queue.ProductUpdated, updated)
	return updated, nil
}

func (s *ProductService) Delete(ctx context.Context, id uint64) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return s.mapErr("delete product", err)
	}
	publish(ctx, s.events, s.log, queue.CatalogEvent{Type: queue.ProductDeleted, EntityID: id, ActorID: actorFrom(ctx)})
	return nil
}

// validate checks the payload and resolves defaults. A missing category is a
// field error, not a not-found outcome.
func (s *ProductService) validate(ctx context.Context, in ProductInput) (*model.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	verr := validation.Struct(in)
	if verr != nil && errs.KindOf(verr) != errs.KindValidation {
		return nil, verr
	}

	now := s.now().UTC()
	if in.ExpiresOn != nil && !in.ExpiresOn.After(model.NewDate(now).Time) {
		verr = validation.Merge(verr, "fecha_vencimiento", "The fecha_vencimiento field must be a date after today.")
	}
	if in.PublishedAt != nil && in.PublishedAt.After(now) {
		verr = validation.Merge(verr, "publicado_en", "The publicado_en field must be a date before or equal to now.")
	}
	if in.CategoryID != nil {
		ok, err := s.categories.Exists(ctx, *in.CategoryID)
		if err != nil {
			s.log.Error("check category", zap.Error(err))
			return nil, errs.Internal("could not validate product", err)
		}
		if !ok {
			verr = validation.Merge(verr, "categoria_id", "The selected categoria_id is invalid.")
		}
	}
	if verr != nil {
		return nil, verr
	}

	p := &model.Product{
		Name:        in.Name,
		Description: in.Description,
		Stock:       *in.Stock,
		Price:       *in.Price,
		Weight:      in.Weight,
		Available:   true,
		ExpiresOn:   in.ExpiresOn,
		PublishedAt: in.PublishedAt,
		CategoryID:  *in.CategoryID,
	}
	if in.Available != nil {
		p.Available = *in.Available
	}
	if p.PublishedAt != nil {
		t := p.PublishedAt.UTC()
		p.PublishedAt = &t
	}
	return p, nil
}

func (s *ProductService) written(ctx context.Context, typ string, p *model.Product) {
	publish(ctx, s.events, s.log, queue.CatalogEvent{
		Type: typ, EntityID: p.ID, Name: p.Name, CategoryID: p.CategoryID, ActorID: actorFrom(ctx),
	})
}

func (s *ProductService) mapErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return errs.NotFound("product not found")
	case errors.Is(err, repository.ErrCategoryNotFound):
		// the category vanished between validation and the write
		return errs.Field("categoria_id", "The selected categoria_id is invalid.")
	}
	s.log.Error(op, zap.Error(err))
	return errs.Internal("could not "+op, err)
}
