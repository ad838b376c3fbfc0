package storage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Veraticus/spice-ml/internal/common"
	"github.com/Veraticus/spice-ml/internal/service"
)

// MemoryStore implements service.ArtifactStore in memory.
type MemoryStore struct {
	scopes map[service.Scope]map[string][]byte
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scopes: make(map[service.Scope]map[string][]byte),
	}
}

// Put stores a single artifact.
func (m *MemoryStore) Put(ctx context.Context, scope service.Scope, name string, data []byte) error {
	if err := validateKey(ctx, scope, name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	artifacts, ok := m.scopes[scope]
	if !ok {
		artifacts = make(map[string][]byte)
		m.scopes[scope] = artifacts
	}
	artifacts[name] = clone(data)
	return nil
}

// Get returns a copy of the named artifact.
func (m *MemoryStore) Get(ctx context.Context, scope service.Scope, name string) ([]byte, error) {
	if err := validateKey(ctx, scope, name); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.scopes[scope][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", common.ErrNotFound, scope, name)
	}
	return clone(data), nil
}

// Exists reports whether the named artifact is stored.
func (m *MemoryStore) Exists(ctx context.Context, scope service.Scope, name string) (bool, error) {
	if err := validateKey(ctx, scope, name); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.scopes[scope][name]
	return ok, nil
}

// PutBundle replaces the scope's artifacts under a single lock.
func (m *MemoryStore) PutBundle(ctx context.Context, scope service.Scope, artifacts map[string][]byte) error {
	if err := validateBundle(ctx, scope, artifacts); err != nil {
		return err
	}
	replacement := make(map[string][]byte, len(artifacts))
	for name, data := range artifacts {
		replacement[name] = clone(data)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.scopes[scope] = replacement
	return nil
}

// ListScopes returns the user ids holding artifacts of family.
func (m *MemoryStore) ListScopes(ctx context.Context, family service.Family) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var users []string
	for scope, artifacts := range m.scopes {
		if scope.Family == family && len(artifacts) > 0 {
			users = append(users, scope.UserID)
		}
	}
	slices.Sort(users)
	return users, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
