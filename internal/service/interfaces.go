// Package service defines the interfaces shared between application packages.
package service

import (
	"context"
	"time"
)

// Family identifies a model family persisted per user.
type Family string

// Model families.
const (
	FamilyCategorizer Family = "categorizer"
	FamilyForecaster  Family = "forecaster"
)

// Scope addresses every artifact of one model family for one user.
type Scope struct {
	UserID string
	Family Family
}

// String returns a printable form of the scope.
func (s Scope) String() string {
	return string(s.Family) + "/" + s.UserID
}

// ArtifactStore persists named model artifacts addressed by scope.
//
// Get returns common.ErrNotFound when the artifact is absent. PutBundle
// replaces every artifact of the scope with the given set; readers observe
// either the previous or the new set as far as the backend allows.
type ArtifactStore interface {
	Put(ctx context.Context, scope Scope, name string, data []byte) error
	Get(ctx context.Context, scope Scope, name string) ([]byte, error)
	Exists(ctx context.Context, scope Scope, name string) (bool, error)
	PutBundle(ctx context.Context, scope Scope, artifacts map[string][]byte) error
	Close() error
}

// ScopeLister is implemented by stores that can enumerate the users holding
// artifacts of a family. Results are sorted.
type ScopeLister interface {
	ListScopes(ctx context.Context, family Family) ([]string, error)
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
