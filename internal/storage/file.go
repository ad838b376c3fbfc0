package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Veraticus/spice-ml/internal/common"
	"github.com/Veraticus/spice-ml/internal/service"
)

const (
	artifactExt   = ".artifact"
	stagingPrefix = ".staging-"
)

// FileStore implements service.ArtifactStore on a directory tree laid out as
// <root>/<family>/<escaped user id>/<name>.artifact.
type FileStore struct {
	root string
}

// NewFileStore creates a file store rooted at root, creating it if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := validateString(root, "root"); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create model directory: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Root returns the directory the store writes to.
func (f *FileStore) Root() string {
	return f.root
}

func (f *FileStore) scopeDir(scope service.Scope) string {
	return filepath.Join(f.root, string(scope.Family), url.PathEscape(scope.UserID))
}

func (f *FileStore) path(scope service.Scope, name string) string {
	return filepath.Join(f.scopeDir(scope), url.PathEscape(name)+artifactExt)
}

// Put writes a single artifact through a temporary file and rename.
func (f *FileStore) Put(ctx context.Context, scope service.Scope, name string, data []byte) error {
	if err := validateKey(ctx, scope, name); err != nil {
		return err
	}
	dir := f.scopeDir(scope)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: create %s: %w", common.ErrPersistence, dir, err)
	}
	return writeFileAtomic(f.path(scope, name), data)
}

// Get reads the named artifact.
func (f *FileStore) Get(ctx context.Context, scope service.Scope, name string) ([]byte, error) {
	if err := validateKey(ctx, scope, name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(scope, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", common.ErrNotFound, scope, name)
		}
		return nil, fmt.Errorf("%w: read %s/%s: %w", common.ErrPersistence, scope, name, err)
	}
	return data, nil
}

// Exists reports whether the named artifact file exists.
func (f *FileStore) Exists(ctx context.Context, scope service.Scope, name string) (bool, error) {
	if err := validateKey(ctx, scope, name); err != nil {
		return false, err
	}
	_, err := os.Stat(f.path(scope, name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: stat %s/%s: %w", common.ErrPersistence, scope, name, err)
}

// PutBundle writes the artifacts into a staging directory and swaps it in for
// the scope directory. Readers racing the swap may briefly see no artifacts.
func (f *FileStore) PutBundle(ctx context.Context, scope service.Scope, artifacts map[string][]byte) error {
	if err := validateBundle(ctx, scope, artifacts); err != nil {
		return err
	}
	dir := f.scopeDir(scope)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return fmt.Errorf("%w: create %s: %w", common.ErrPersistence, parent, err)
	}

	staging, err := os.MkdirTemp(parent, stagingPrefix+"*")
	if err != nil {
		return fmt.Errorf("%w: create staging directory: %w", common.ErrPersistence, err)
	}
	defer os.RemoveAll(staging)

	for name, data := range artifacts {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := filepath.Join(staging, url.PathEscape(name)+artifactExt)
		if err := os.WriteFile(p, data, 0o600); err != nil {
			return fmt.Errorf("%w: write %s: %w", common.ErrPersistence, name, err)
		}
	}

	var retired string
	if _, statErr := os.Stat(dir); statErr == nil {
		retired = staging + ".old"
		if err := os.Rename(dir, retired); err != nil {
			return fmt.Errorf("%w: retire %s: %w", common.ErrPersistence, dir, err)
		}
	}
	if err := os.Rename(staging, dir); err != nil {
		if retired != "" {
			_ = os.Rename(retired, dir)
		}
		return fmt.Errorf("%w: install %s: %w", common.ErrPersistence, dir, err)
	}
	if retired != "" {
		if err := os.RemoveAll(retired); err != nil {
			common.LogWarn("Failed to remove retired model directory", common.Fields{"path": retired, "error": err})
		}
	}
	return nil
}

// ListScopes returns the user ids holding artifacts of family.
func (f *FileStore) ListScopes(ctx context.Context, family service.Family) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(f.root, string(family)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: list %s: %w", common.ErrPersistence, family, err)
	}

	var users []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), stagingPrefix) {
			continue
		}
		user, err := url.PathUnescape(entry.Name())
		if err != nil {
			common.LogWarn("Skipping unreadable model directory", common.Fields{"path": entry.Name(), "error": err})
			continue
		}
		users = append(users, user)
	}
	slices.Sort(users)
	return users, nil
}

// Close is a no-op.
func (f *FileStore) Close() error {
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", common.ErrPersistence, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: write %s: %w", common.ErrPersistence, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", common.ErrPersistence, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename %s: %w", common.ErrPersistence, path, err)
	}
	return nil
}
