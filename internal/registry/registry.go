// Package registry discovers executable scripts in the configured scripts
// directory.
//
// The directory is the source of truth: every List or Resolve call re-reads
// it, so scripts added or removed while the server is running are picked up
// without a restart. Renames or deletions that happen mid-execution are not
// guarded against.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrDirectoryNotFound indicates the configured scripts directory does not exist.
	ErrDirectoryNotFound = errors.New("scripts directory not found")

	// ErrScriptNotFound indicates no script file matches the requested name.
	ErrScriptNotFound = errors.New("script not found")
)

// DefaultExtension is the script file extension scanned for by default.
const DefaultExtension = ".js"

// Script is a single discovered script file. It is immutable once returned.
type Script struct {
	// Name is the identifier: the filename without its extension.
	Name string

	// Path is the absolute (or registry-relative) filesystem path.
	Path string
}

// Registry scans a directory for script files.
//
// Registry holds only read-only configuration, so concurrent List and
// Resolve calls need no synchronization.
type Registry struct {
	dir string
	ext string
}

// New creates a Registry for the given directory. If ext is empty,
// DefaultExtension is used.
func New(dir, ext string) *Registry {
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Registry{dir: dir, ext: ext}
}

// Dir returns the configured scripts directory.
func (r *Registry) Dir() string {
	return r.dir
}

// List returns all scripts in the directory, sorted by name.
//
// An existing but empty directory yields an empty slice, not an error.
// Files whose names start with "_" are treated as helpers and skipped.
func (r *Registry) List() ([]Script, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, r.dir)
		}
		return nil, fmt.Errorf("read scripts directory: %w", err)
	}

	scripts := make([]Script, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, r.ext) {
			continue
		}
		if strings.HasPrefix(name, "_") {
			continue
		}
		scripts = append(scripts, Script{
			Name: strings.TrimSuffix(name, r.ext),
			Path: filepath.Join(r.dir, name),
		})
	}

	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].Name < scripts[j].Name
	})

	return scripts, nil
}

// Resolve returns the script with the given name.
// Returns ErrScriptNotFound if no matching file exists.
func (r *Registry) Resolve(name string) (Script, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, "_") {
		// Reject path traversal and helper-file names outright.
		return Script{}, fmt.Errorf("%w: %q", ErrScriptNotFound, name)
	}

	path := filepath.Join(r.dir, name+r.ext)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			if _, dirErr := os.Stat(r.dir); os.IsNotExist(dirErr) {
				return Script{}, fmt.Errorf("%w: %s", ErrDirectoryNotFound, r.dir)
			}
			return Script{}, fmt.Errorf("%w: %q", ErrScriptNotFound, name)
		}
		return Script{}, fmt.Errorf("stat script: %w", err)
	}
	if info.IsDir() {
		return Script{}, fmt.Errorf("%w: %q", ErrScriptNotFound, name)
	}

	return Script{Name: name, Path: path}, nil
}
