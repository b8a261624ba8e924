package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var (
	ErrPathEscapes  = errors.New("path escapes vault directory")
	ErrAbsolutePath = errors.New("absolute path outside vault directory")
	ErrEmptyPath    = errors.New("empty path not allowed")
)

// PathValidator confines export and import file access to the vault
// directory using os.Root.
type PathValidator struct {
	root *os.Root
	dir  string
}

// New opens dir as the confinement root.
func New(dir string) (*PathValidator, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault directory: %w", err)
	}

	return &PathValidator{root: root, dir: absDir}, nil
}

// Close releases the root handle.
func (pv *PathValidator) Close() error {
	if pv.root != nil {
		return pv.root.Close()
	}
	return nil
}

// Dir returns the absolute confinement directory.
func (pv *PathValidator) Dir() string { return pv.dir }

// ValidateAndNormalize returns userPath as a slash-separated path relative
// to the vault directory. Absolute paths are accepted only when they point
// inside the directory.
func (pv *PathValidator) ValidateAndNormalize(userPath string) (string, error) {
	if userPath == "" {
		return "", ErrEmptyPath
	}

	if filepath.IsAbs(userPath) {
		rel, err := filepath.Rel(pv.dir, filepath.Clean(userPath))
		if err != nil || !filepath.IsLocal(rel) {
			return "", fmt.Errorf("%w: %s", ErrAbsolutePath, userPath)
		}
		userPath = rel
	}

	// IsLocal also rejects reserved names such as NUL on Windows.
	if !filepath.IsLocal(userPath) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}

	clean := filepath.ToSlash(filepath.Clean(userPath))
	if clean == "." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, userPath)
	}
	return clean, nil
}

// ValidateExistingPath re-checks a path recorded in the vault index, which
// may have been tampered with.
func (pv *PathValidator) ValidateExistingPath(stored string) (string, error) {
	if filepath.IsAbs(filepath.FromSlash(stored)) || path.IsAbs(stored) {
		return "", fmt.Errorf("%w: %s", ErrAbsolutePath, stored)
	}
	return pv.ValidateAndNormalize(filepath.FromSlash(stored))
}

func (pv *PathValidator) resolve(p string) (string, error) {
	rel, err := pv.ValidateAndNormalize(p)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	return filepath.FromSlash(rel), nil
}

// WriteFileInRoot writes data below the vault directory, creating parent
// directories as needed. Symlinks leading outside the directory are refused
// by os.Root.
func (pv *PathValidator) WriteFileInRoot(p string, data []byte, perm fs.FileMode) error {
	rel, err := pv.resolve(p)
	if err != nil {
		return err
	}
	if parent := filepath.Dir(rel); parent != "." {
		if err := pv.root.MkdirAll(parent, 0700); err != nil {
			return fmt.Errorf("failed to create %s: %w", parent, err)
		}
	}
	return pv.root.WriteFile(rel, data, perm)
}

// ReadFileInRoot reads a file below the vault directory.
func (pv *PathValidator) ReadFileInRoot(p string) ([]byte, error) {
	rel, err := pv.resolve(p)
	if err != nil {
		return nil, err
	}
	return pv.root.ReadFile(rel)
}

// StatInRoot stats a file below the vault directory.
func (pv *PathValidator) StatInRoot(p string) (fs.FileInfo, error) {
	rel, err := pv.resolve(p)
	if err != nil {
		return nil, err
	}
	return pv.root.Stat(rel)
}
