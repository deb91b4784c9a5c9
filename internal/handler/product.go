package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/product-catalog-api/internal/model"
	"github.com/iliyamo/product-catalog-api/internal/service"
)

// ProductAPI is the product surface the handler calls.
type ProductAPI interface {
	List(ctx context.Context) ([]model.ProductListItem, error)
	Get(ctx context.Context, id uint64) (*model.Product, error)
	Create(ctx context.Context, in service.ProductInput) (*model.Product, error)
	Update(ctx context.Context, id uint64, in service.ProductInput) (*model.Product, error)
	Delete(ctx context.Context, id uint64) error
}

type ProductHandler struct {
	products ProductAPI
}

func NewProductHandler(products ProductAPI) *ProductHandler {
	return &ProductHandler{products: products}
}

// List returns every product with its category name.
func (h *ProductHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	out, err := h.products.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one product with its category embedded.
func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c, "product")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.products.Get(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Create(c echo.Context) error {
	var in service.ProductInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.products.Create(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Producto creado correctamente", "producto": p})
}

func (h *ProductHandler) Update(c echo.Context) error {
	id, err := pathID(c, "product")
	if err != nil {
		return fail(c, err)
	}
	var in service.ProductInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	p, err := h.products.Update(ctx, id, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Producto actualizado correctamente", "producto": p})
}

func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "product")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.products.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Producto eliminado correctamente"})
}
