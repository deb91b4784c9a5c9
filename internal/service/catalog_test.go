package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/product-catalog-api/internal/errs"
	"github.com/iliyamo/product-catalog-api/internal/model"
	"github.com/iliyamo/product-catalog-api/internal/queue"
)

type catalogFixture struct {
	categories *CategoryService
	products   *ProductService
	store      *memCatalog
	events     *recordingPublisher
	purger     *countingPurger
}

func newCatalogFixture(t *testing.T) catalogFixture {
	t.Helper()
	store := newMemCatalog()
	events := &recordingPublisher{}
	purger := &countingPurger{}
	cats := memCategories{store}
	return catalogFixture{
		categories: NewCategoryService(cats, events, purger, zap.NewNop()),
		products:   NewProductService(memProducts{store}, cats, events, zap.NewNop()),
		store:      store,
		events:     events,
		purger:     purger,
	}
}

func ptr[T any](v T) *T { return &v }

func validProduct(categoryID uint64) ProductInput {
	return ProductInput{
		Name:       "Leche",
		Stock:      ptr(10),
		Price:      ptr(1.25),
		CategoryID: ptr(categoryID),
	}
}

func TestCategory_CRUD(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := WithActor(context.Background(), 7)

	a, err := f.categories.Create(ctx, CategoryInput{Name: "  Alimentos "})
	require.NoError(t, err)
	assert.Equal(t, "Alimentos", a.Name)
	_, err = f.categories.Create(ctx, CategoryInput{Name: "Bebidas"})
	require.NoError(t, err)

	list, err := f.categories.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bebidas", list[0].Name)
	assert.Equal(t, "Alimentos", list[1].Name)

	got, err := f.categories.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	up, err := f.categories.Update(ctx, a.ID, CategoryInput{Name: "Comida"})
	require.NoError(t, err)
	assert.Equal(t, "Comida", up.Name)

	require.NoError(t, f.categories.Delete(ctx, a.ID))
	_, err = f.categories.Get(ctx, a.ID)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	assert.Equal(t, []string{queue.CategoryCreated, queue.CategoryCreated, queue.CategoryUpdated, queue.CategoryDeleted}, f.events.types())
	assert.Equal(t, uint64(7), f.events.events[0].ActorID)
	assert.Equal(t, 4, f.purger.n)
}

func TestCategory_ListEmptyIsNotNil(t *testing.T) {
	f := newCatalogFixture(t)
	list, err := f.categories.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestCategory_Validation(t *testing.T) {
	f := newCatalogFixture(t)
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'x'
	}
	for _, name := range []string{"", "   ", string(long)} {
		_, err := f.categories.Create(context.Background(), CategoryInput{Name: name})
		e := errs.As(err)
		assert.Equal(t, errs.KindValidation, e.Kind)
		assert.Contains(t, e.Fields, "nombre")
	}
	assert.Empty(t, f.store.categories)
	assert.Zero(t, f.purger.n)
}

func TestCategory_NotFound(t *testing.T) {
	f := newCatalogFixture(t)
	_, err := f.categories.Get(context.Background(), 99)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	_, err = f.categories.Update(context.Background(), 99, CategoryInput{Name: "X"})
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	assert.Equal(t, errs.KindNotFound, errs.KindOf(f.categories.Delete(context.Background(), 99)))
}

func TestCategory_StoreFailureIsInternal(t *testing.T) {
	f := newCatalogFixture(t)
	f.store.fail = errStoreDown
	_, err := f.categories.List(context.Background())
	e := errs.As(err)
	assert.Equal(t, errs.KindInternal, e.Kind)
	assert.NotContains(t, e.Message, "store down")
}

func TestCategory_DeleteCascadesProducts(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	c, err := f.categories.Create(ctx, CategoryInput{Name: "Lacteos"})
	require.NoError(t, err)
	p, err := f.products.Create(ctx, validProduct(c.ID))
	require.NoError(t, err)

	require.NoError(t, f.categories.Delete(ctx, c.ID))
	_, err = f.products.Get(ctx, p.ID)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestProduct_CreateDefaultsAndGet(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	c, err := f.categories.Create(ctx, CategoryInput{Name: "Lacteos"})
	require.NoError(t, err)

	p, err := f.products.Create(ctx, validProduct(c.ID))
	require.NoError(t, err)
	assert.True(t, p.Available)
	assert.Nil(t, p.Weight)
	assert.Nil(t, p.Description)

	got, err := f.products.Get(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Category)
	assert.Equal(t, "Lacteos", got.Category.Name)

	list, err := f.products.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Lacteos", list[0].Category)
	assert.Contains(t, f.events.types(), queue.ProductCreated)
}

func TestProduct_OptionalFields(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	c, err := f.categories.Create(ctx, CategoryInput{Name: "Lacteos"})
	require.NoError(t, err)

	in := validProduct(c.ID)
	in.Description = ptr("Entera")
	in.Weight = ptr(1.0)
	in.Available = ptr(false)
	exp := model.NewDate(time.Now().AddDate(0, 1, 0))
	in.ExpiresOn = &exp
	pub := time.Now().Add(-time.Hour)
	in.PublishedAt = &pub

	p, err := f.products.Create(ctx, in)
	require.NoError(t, err)
	assert.False(t, p.Available)
	assert.Equal(t, "Entera", *p.Description)
	assert.Equal(t, exp.String(), p.ExpiresOn.String())
	assert.Equal(t, time.UTC, p.PublishedAt.Location())
}

func TestProduct_Validation(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	c, err := f.categories.Create(ctx, CategoryInput{Name: "Lacteos"})
	require.NoError(t, err)

	today := model.NewDate(time.Now())
	future := time.Now().Add(time.Hour)

	cases := []struct {
		name   string
		mutate func(*ProductInput)
		field  string
	}{
		{"missing name", func(in *ProductInput) { in.Name = "" }, "nombre"},
		{"negative stock", func(in *ProductInput) { in.Stock = ptr(-1) }, "stock"},
		{"missing stock", func(in *ProductInput) { in.Stock = nil }, "stock"},
		{"missing price", func(in *ProductInput) { in.Price = nil }, "precio"},
		{"negative price", func(in *ProductInput) { in.Price = ptr(-0.5) }, "precio"},
		{"stock beyond int column", func(in *ProductInput) { in.Stock = ptr(3000000000) }, "stock"},
		{"price beyond decimal column", func(in *ProductInput) { in.Price = ptr(100000000.0) }, "precio"},
		{"description too long", func(in *ProductInput) { in.Description = ptr(strings.Repeat("a", 16384)) }, "descripcion"},
		{"zero weight", func(in *ProductInput) { in.Weight = ptr(0.0) }, "peso"},
		{"expires today", func(in *ProductInput) { in.ExpiresOn = &today }, "fecha_vencimiento"},
		{"published in future", func(in *ProductInput) { in.PublishedAt = &future }, "publicado_en"},
		{"missing category", func(in *ProductInput) { in.CategoryID = nil }, "categoria_id"},
		{"unknown category", func(in *ProductInput) { in.CategoryID = ptr(uint64(999)) }, "categoria_id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validProduct(c.ID)
			tc.mutate(&in)
			_, err := f.products.Create(ctx, in)
			e := errs.As(err)
			assert.Equal(t, errs.KindValidation, e.Kind)
			assert.Contains(t, e.Fields, tc.field)
		})
	}
	assert.Empty(t, f.store.products)
}

func TestProduct_ZeroStockAndPriceAccepted(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	c, err := f.categories.Create(ctx, CategoryInput{Name: "Lacteos"})
	require.NoError(t, err)

	in := validProduct(c.ID)
	in.Stock = ptr(0)
	in.Price = ptr(0.0)
	_, err = f.products.Create(ctx, in)
	assert.NoError(t, err)
}

func TestProduct_ColumnLimitsAccepted(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	c, err := f.categories.Create(ctx, CategoryInput{Name: "Lacteos"})
	require.NoError(t, err)

	in := validProduct(c.ID)
	in.Stock = ptr(2147483647)
	in.Price = ptr(99999999.99)
	in.Description = ptr(strings.Repeat("ñ", 16383))
	_, err = f.products.Create(ctx, in)
	assert.NoError(t, err)
}

func TestProduct_UnknownCategoryMessage(t *testing.T) {
	f := newCatalogFixture(t)
	_, err := f.products.Create(context.Background(), validProduct(42))
	e := errs.As(err)
	assert.Equal(t, []string{"The selected categoria_id is invalid."}, e.Fields["categoria_id"])
}

func TestProduct_UpdateAndDelete(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	c, err := f.categories.Create(ctx, CategoryInput{Name: "Lacteos"})
	require.NoError(t, err)
	p, err := f.products.Create(ctx, validProduct(c.ID))
	require.NoError(t, err)

	in := validProduct(c.ID)
	in.Name = "Yogur"
	in.Stock = ptr(3)
	up, err := f.products.Update(ctx, p.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "Yogur", up.Name)
	assert.Equal(t, 3, up.Stock)

	_, err = f.products.Update(ctx, 999, in)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))

	require.NoError(t, f.products.Delete(ctx, p.ID))
	assert.Equal(t, errs.KindNotFound, errs.KindOf(f.products.Delete(ctx, p.ID)))
	assert.Equal(t, []string{queue.CategoryCreated, queue.ProductCreated, queue.ProductUpdated, queue.ProductDeleted}, f.events.types())
}

func TestProduct_UpdateMissingIsNotFoundBeforeValidation(t *testing.T) {
	f := newCatalogFixture(t)
	_, err := f.products.Update(context.Background(), 5, ProductInput{})
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}
