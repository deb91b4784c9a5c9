package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/product-catalog-api/internal/model"
	"github.com/iliyamo/product-catalog-api/internal/service"
)

// CategoryAPI is the category surface the handler calls.
type CategoryAPI interface {
	List(ctx context.Context) ([]model.CategorySummary, error)
	Get(ctx context.Context, id uint64) (*model.Category, error)
	Create(ctx context.Context, in service.CategoryInput) (*model.Category, error)
	Update(ctx context.Context, id uint64, in service.CategoryInput) (*model.Category, error)
	Delete(ctx context.Context, id uint64) error
}

type CategoryHandler struct {
	categories CategoryAPI
}

func NewCategoryHandler(categories CategoryAPI) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// List returns id and nombre of every category, nombre descending.
func (h *CategoryHandler) List(c echo.Context) error {
	ctx, cancel := withTimeout(c)
	defer cancel()

	out, err := h.categories.List(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CategoryHandler) Get(c echo.Context) error {
	id, err := pathID(c, "category")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	cat, err := h.categories.Get(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": cat})
}

func (h *CategoryHandler) Create(c echo.Context) error {
	var in service.CategoryInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	cat, err := h.categories.Create(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "data": cat})
}

func (h *CategoryHandler) Update(c echo.Context) error {
	id, err := pathID(c, "category")
	if err != nil {
		return fail(c, err)
	}
	var in service.CategoryInput
	if err := bind(c, &in); err != nil {
		return fail(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	cat, err := h.categories.Update(ctx, id, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": cat})
}

// Delete removes the category together with its products.
func (h *CategoryHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "category")
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.categories.Delete(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Categoria eliminada correctamente"})
}
