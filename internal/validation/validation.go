// Package validation runs struct-tag validation on request payloads and turns
// the result into per-field messages keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/product-catalog-api/internal/errs"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Struct validates v. It returns nil or an *errs.Error of kind validation.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Internal("validation failed", err)
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], message(fe))
	}
	return errs.Validation(fields)
}

// Merge folds extra field messages into a validation error produced by
// Struct. A nil base starts a new error.
func Merge(base error, field, msg string) error {
	var e *errs.Error
	if base == nil || !errors.As(base, &e) || e.Kind != errs.KindValidation {
		if base != nil {
			return base
		}
		return errs.Field(field, msg)
	}
	e.Fields[field] = append(e.Fields[field], msg)
	return e
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", f)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", f)
	case "min":
		if isString(fe) {
			return fmt.Sprintf("The %s field must be at least %s characters.", f, fe.Param())
		}
		return fmt.Sprintf("The %s field must be at least %s.", f, fe.Param())
	case "max":
		if isString(fe) {
			return fmt.Sprintf("The %s field must not be greater than %s characters.", f, fe.Param())
		}
		return fmt.Sprintf("The %s field must not be greater than %s.", f, fe.Param())
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", f)
	default:
		return fmt.Sprintf("The %s field is invalid.", f)
	}
}

func isString(fe validator.FieldError) bool {
	k := fe.Kind()
	if k == reflect.Ptr {
		k = fe.Type().Elem().Kind()
	}
	return k == reflect.String
}
