package types

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalid marks records rejected by field constraints
	ErrInvalid = errors.New("validation failed")
	// ErrDuplicate marks records rejected by a uniqueness rule
	ErrDuplicate = errors.New("duplicate value")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks required fields of a User, Author or Book. kind only prefixes the message.
func Validate(kind string, record any) error {
	err := validate.Struct(record)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		default:
			msgs = append(msgs, fe.Field()+" failed on "+fe.Tag())
		}
	}

	return fmt.Errorf("%w: %s: %s", ErrInvalid, kind, strings.Join(msgs, ", "))
}

// DuplicateError wraps ErrDuplicate with a message naming the offending field
func DuplicateError(field, value string) error {
	return fmt.Errorf("%w: %s %q is already taken", ErrDuplicate, field, value)
}
