package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/japintos/KairosMarket-sub001/internal/apperr"
	"github.com/japintos/KairosMarket-sub001/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	// Compare decimals with the numeric tags (gt, gte, lte...).
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return v
}

// validateInput runs struct validation and converts failures into a 400 with
// one entry per offending field.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation(err.Error())
	}

	fields := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, apperr.FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: fieldMessage(fe),
		})
	}
	return apperr.Validation("validation failed", fields...)
}

// fieldPath drops the root struct name: "CreateOrderInput.items[0].quantity"
// becomes "items[0].quantity".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "datetime":
		return fmt.Sprintf("must be a date in %s format", fe.Param())
	}
	return fmt.Sprintf("failed the %q check", fe.Tag())
}

// referenceError turns a foreign key failure into a 400 on field.
func referenceError(err error, field, message string) error {
	if errors.Is(err, domain.ErrReferenceMissing) {
		return apperr.Validation(message, apperr.FieldError{Field: field, Message: "does not exist"})
	}
	return err
}

// Column scales: money is NUMERIC(12,2), stock and quantities NUMERIC(12,3).
const (
	moneyPlaces    int32 = 2
	quantityPlaces int32 = 3
)

// checkScale appends a field error when d carries more decimal places than
// its column keeps, so nothing is rounded silently on write.
func checkScale(fields []apperr.FieldError, field string, d decimal.Decimal, places int32) []apperr.FieldError {
	if d.Equal(d.Round(places)) {
		return fields
	}
	return append(fields, apperr.FieldError{
		Field:   field,
		Message: fmt.Sprintf("must have at most %d decimal places", places),
	})
}
