package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/formation-market/internal/apperr"
)

// Validator adapts go-playground/validator to echo.Validator.  Failures
// are reported as validation errors naming the JSON field.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Validation("invalid body")
	}
	fe := verrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return apperr.Validation("%s is required", field).WithDetail("field", field)
	case "min":
		return apperr.Validation("%s must be at least %s", field, fe.Param()).WithDetail("field", field)
	case "email":
		return apperr.Validation("%s must be a valid email", field).WithDetail("field", field)
	case "oneof":
		return apperr.Validation("%s must be one of %s", field, fe.Param()).WithDetail("field", field)
	}
	return apperr.Validation("%s is invalid", field).WithDetail("field", field)
}
