package library

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// itemValidator wraps go-playground/validator and converts its failures to
// InvalidArgument errors carrying per-field messages.
type itemValidator struct {
	v *validator.Validate
}

func newItemValidator() *itemValidator {
	v := validator.New()

	// Report json names rather than Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &itemValidator{v: v}
}

func (iv *itemValidator) validate(it Item) error {
	err := iv.v.Struct(it)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	fields := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		fields[e.Field()] = friendlyMessage(e)
	}
	return &Error{Code: CodeInvalidArgument, Message: "invalid item", Details: fields}
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + e.Param()
	case "gte":
		return "must be greater than or equal to " + e.Param()
	default:
		return fmt.Sprintf("failed %q check", e.Tag())
	}
}
