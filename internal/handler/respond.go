// Package handler holds the HTTP handlers. Handlers decode requests, call a
// service and translate its result or *errs.Error into a response.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/product-catalog-api/internal/errs"
)

// requestTimeout bounds the service call behind each handler.
const requestTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// fail writes err using the status and body shape of its kind.
func fail(c echo.Context, err error) error {
	e := errs.As(err)
	switch e.Kind {
	case errs.KindValidation:
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"message": e.Message, "errors": e.Fields})
	case errs.KindAuthentication:
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": e.Message})
	case errs.KindForbidden:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errs.KindNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "message": e.Message})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": e.Message})
	}
}

// bind decodes the JSON body. Any decode failure is reported on the "body"
// field.
func bind(c echo.Context, v any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, v); err != nil {
		return errs.Field("body", "The request body must be a valid JSON object.")
	}
	return nil
}

// pathID parses :id. A non-numeric id cannot name an entity, so it is a
// not-found outcome.
func pathID(c echo.Context, what string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errs.NotFound(what + " not found")
	}
	return id, nil
}
