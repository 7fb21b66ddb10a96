// Package fsguard enforces the allowed-roots boundary for filesystem access.
package fsguard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Sentinel errors for the access contract. Callers may branch with
// errors.Is, but most tool handlers surface them uniformly.
var (
	ErrNotAbsolute  = errors.New("path must be absolute")
	ErrOutsideRoots = errors.New("path outside allowed directories")
	ErrNotFound     = errors.New("path not found")
	ErrNotDirectory = errors.New("not a directory")
	ErrIsDirectory  = errors.New("is a directory")
	ErrFileTooLarge = errors.New("file exceeds size limit")
)

// DefaultMaxFileBytes caps ReadFile when no limit is configured.
const DefaultMaxFileBytes = 10 << 20

// Entry is one item produced by a single-level directory enumeration.
// Name is the base name exactly as the OS returned it; Path is the
// absolute path of the entry under the enumerated directory.
type Entry struct {
	Name string
	Path string
}

// Service validates caller-supplied paths against a configured set of
// allowed root directories and performs read-only filesystem access
// within them.
type Service struct {
	roots        []string
	maxFileBytes int64
}

// New creates a Service for the given root directories. Each root must
// exist; roots are resolved to their absolute, symlink-free form so the
// containment check cannot be bypassed through links.
func New(roots []string, maxFileBytes int64) (*Service, error) {
	if len(roots) == 0 {
		return nil, errors.New("at least one allowed root is required")
	}
	if maxFileBytes <= 0 {
		maxFileBytes = DefaultMaxFileBytes
	}

	resolved := make([]string, 0, len(roots))
	for _, root := range roots {
		r, err := resolve(root)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed root %s: %w", root, err)
		}
		info, err := os.Stat(r)
		if err != nil {
			return nil, fmt.Errorf("invalid allowed root %s: %w", root, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("invalid allowed root %s: %w", root, ErrNotDirectory)
		}
		resolved = append(resolved, r)
	}

	return &Service{roots: resolved, maxFileBytes: maxFileBytes}, nil
}

// Roots returns the resolved allowed root directories.
func (s *Service) Roots() []string {
	out := make([]string, len(s.roots))
	copy(out, s.roots)
	return out
}

// Resolve validates that path is absolute and contained in one of the
// allowed roots, returning its absolute symlink-resolved form.
func (s *Service) Resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: %s", ErrNotAbsolute, path)
	}

	resolved, err := resolve(path)
	if err != nil {
		// Target may not exist yet; resolve the deepest existing
		// ancestor and re-append the remaining segments so symlinked
		// parents still count toward containment.
		resolved, err = resolveNonexistent(path)
		if err != nil {
			return "", fmt.Errorf("invalid path %s: %w", path, err)
		}
	}

	for _, root := range s.roots {
		// Trailing separator so "/srv/data-other" never matches "/srv/data".
		if resolved == root || strings.HasPrefix(resolved, root+string(filepath.Separator)) {
			return resolved, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrOutsideRoots, path)
}

// ListDirectory enumerates the immediate contents of path. Entries come
// back in the order the OS enumeration produced them, unfiltered.
func (s *Service) ListDirectory(path string) ([]Entry, error) {
	resolved, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}

	dirents, err := os.ReadDir(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("permission denied: %s: %w", path, err)
		}
		if info, statErr := os.Stat(resolved); statErr == nil && !info.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrNotDirectory, path)
		}
		return nil, fmt.Errorf("failed to list directory %s: %w", path, err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, d := range dirents {
		entries = append(entries, Entry{
			Name: d.Name(),
			Path: filepath.Join(resolved, d.Name()),
		})
	}
	return entries, nil
}

// IsDirectory reports whether path currently denotes a directory.
func (s *Service) IsDirectory(path string) (bool, error) {
	resolved, err := s.Resolve(path)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.IsDir(), nil
}

// ReadFile reads a regular file within the allowed roots, rejecting
// directories and files above the configured size limit.
func (s *Service) ReadFile(path string) ([]byte, error) {
	resolved, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("permission denied: %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrIsDirectory, path)
	}
	if info.Size() > s.maxFileBytes {
		return nil, fmt.Errorf("%w: %s (%d bytes, limit %d)", ErrFileTooLarge, path, info.Size(), s.maxFileBytes)
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("permission denied: %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return content, nil
}

// resolve returns the absolute, symlink-resolved, cleaned path.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return filepath.Clean(real), nil
}

// resolveNonexistent resolves a path that may not exist by walking up
// to the deepest existing ancestor, resolving it, then re-appending the
// remaining segments.
func resolveNonexistent(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)

	current := abs
	var tail []string
	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, tail[i])
			}
			return filepath.Clean(resolved), nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			return abs, nil
		}
		tail = append(tail, filepath.Base(current))
		current = parent
	}
}
