// Package storage provides the artifact persistence backends for trained models.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ml/internal/service"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrInvalidName   = errors.New("invalid artifact name")
	ErrInvalidFamily = errors.New("invalid model family")
	ErrEmptyBundle   = errors.New("bundle cannot be empty")
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateScope(scope service.Scope) error {
	if err := validateString(scope.UserID, "user id"); err != nil {
		return err
	}
	switch scope.Family {
	case service.FamilyCategorizer, service.FamilyForecaster:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFamily, scope.Family)
	}
}

// validateName rejects names that cannot be used as a single file name.
func validateName(name string) error {
	if err := validateString(name, "artifact name"); err != nil {
		return err
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func validateKey(ctx context.Context, scope service.Scope, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateScope(scope); err != nil {
		return err
	}
	return validateName(name)
}

func validateBundle(ctx context.Context, scope service.Scope, artifacts map[string][]byte) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateScope(scope); err != nil {
		return err
	}
	if len(artifacts) == 0 {
		return ErrEmptyBundle
	}
	for name := range artifacts {
		if err := validateName(name); err != nil {
			return err
		}
	}
	return nil
}
