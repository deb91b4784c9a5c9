// Package router registers HTTP routes and their middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/product-catalog-api/internal/handler"
	"github.com/iliyamo/product-catalog-api/internal/middleware"
	"github.com/iliyamo/product-catalog-api/internal/model"
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// chain drops nil entries so optional middleware can be passed through.
func chain(mw ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := mw[:0:0]
	for _, m := range mw {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// RegisterAuth registers the account routes. /register and /login are open
// and rate limited as guests; /me and /logout require a bearer token and are
// limited per user. A nil limit disables rate limiting.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, authn middleware.Authenticator, limit echo.MiddlewareFunc) {
	api.POST("/register", a.Register, chain(limit)...)
	api.POST("/login", a.Login, chain(limit)...)

	jwt := middleware.JWTAuth(authn)
	api.GET("/me", a.Me, chain(jwt, limit)...)
	api.POST("/logout", a.Logout, chain(jwt, limit)...)
}

// Catalog groups what RegisterCatalog needs.
type Catalog struct {
	Categories *handler.CategoryHandler
	Products   *handler.ProductHandler
	Auth       middleware.Authenticator
	WriteRoles []model.Role
	// RateLimit runs after token verification so buckets are per user;
	// nil disables it.
	RateLimit echo.MiddlewareFunc
	// Cache wraps category reads; nil disables it.
	Cache echo.MiddlewareFunc
}

// RegisterCatalog registers category and product CRUD. Every route requires
// a bearer token; writes additionally require one of WriteRoles.
func RegisterCatalog(api *echo.Group, cat Catalog) {
	g := api.Group("", chain(middleware.JWTAuth(cat.Auth), cat.RateLimit)...)
	write := middleware.RequireRole(cat.WriteRoles...)
	read := chain(cat.Cache)

	g.GET("/categorias", cat.Categories.List, read...)
	g.GET("/categorias/:id", cat.Categories.Get, read...)
	g.POST("/categorias", cat.Categories.Create, write)
	g.PUT("/categorias/:id", cat.Categories.Update, write)
	g.DELETE("/categorias/:id", cat.Categories.Delete, write)

	g.GET("/productos", cat.Products.List)
	g.GET("/productos/:id", cat.Products.Get)
	g.POST("/productos", cat.Products.Create, write)
	g.PUT("/productos/:id", cat.Products.Update, write)
	g.DELETE("/productos/:id", cat.Products.Delete, write)
}
