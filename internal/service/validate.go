package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"shop-service/internal/repository"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate reports the first empty required field as a MissingFieldError,
// in struct field order. Other rule violations become validation errors.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	for _, fe := range verrs {
		if fe.Tag() == "required" {
			return &MissingFieldError{Field: fe.Field()}
		}
	}

	fe := verrs[0]
	if fe.Param() != "" {
		return validationError("field %s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
	return validationError("field %s must be a valid %s", fe.Field(), fe.Tag())
}

// storeError translates repository sentinels into this package's error kinds
// while keeping the original error in the chain.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case hasKind(err):
		return err
	case errors.Is(err, repository.ErrProductNotFound):
		return fmt.Errorf("%w: %w", &NotFoundError{Resource: "product"}, err)
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, repository.ErrNotEnough):
		return fmt.Errorf("%w: %w", ErrInsufficientStock, err)
	case errors.Is(err, repository.ErrInvalidInput):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}

func hasKind(err error) bool {
	for _, kind := range []error{
		ErrValidation, ErrNotFound, ErrEmptyCart, ErrInsufficientStock,
		ErrProductUnavailable, ErrConflict, ErrUnauthorized, ErrForbidden,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
