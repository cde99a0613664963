package taskapi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Shared validator instance; it caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	// duration accepts a non-negative Go duration string such as "90s".
	if err := v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	}); err != nil {
		panic(fmt.Sprintf("taskapi: register duration validation: %v", err))
	}

	return v
}

// validationError carries the field errors of a rejected request.
type validationError struct {
	errs validator.ValidationErrors
}

func (e *validationError) Error() string {
	msgs := make([]string, 0, len(e.errs))
	for _, fe := range e.errs {
		msgs = append(msgs, fmt.Sprintf("invalid %s: %s", fe.Field(), tagMessage(fe)))
	}
	return strings.Join(msgs, "; ")
}

func (e *validationError) Unwrap() error {
	return e.errs
}

// validateRequest checks v against its validate tags.
func validateRequest(v any) error {
	err := validate.Struct(v)
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		return &validationError{errs: errs}
	}
	return err
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field"
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "duration":
		return "must be a non-negative duration such as 90s"
	}
	return "failed on the " + fe.Tag() + " rule"
}
