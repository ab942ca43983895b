package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"phpvhost/internal/security"
)

var (
	// ErrNotFound indicates the domain is not registered.
	ErrNotFound = errors.New("domain not found")
	// ErrDuplicateDomain indicates the domain is already registered.
	ErrDuplicateDomain = errors.New("domain already registered")
	// ErrCorrupt indicates the persisted registry cannot be parsed. The
	// file is left untouched so the operator can inspect or fix it.
	ErrCorrupt = errors.New("registry file is corrupt")
)

// Store persists the registry as a JSON file at a fixed per-user path.
// All mutations go through Load, mutate, Save. There is no file locking;
// a single operator running one command at a time is assumed.
type Store struct {
	Path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Load reads the registry from disk. A missing file yields an empty
// registry. An unparseable file yields ErrCorrupt; the file is never
// discarded or rewritten in that case.
func (s *Store) Load() (*Registry, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Registry{Projects: make(map[string]Entry)}, nil
		}
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.Path, err)
	}

	if reg.Projects == nil {
		reg.Projects = make(map[string]Entry)
	}

	return &reg, nil
}

// Save persists the registry atomically: write to a temp file in the same
// directory, fsync, then rename over the target.
func (s *Store) Save(reg *Registry) error {
	dir := filepath.Dir(s.Path)
	if err := security.CreateSecureDir(dir, security.PermStateDir); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	data = append(data, '\n')

	f, err := os.CreateTemp(dir, ".registry-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmp := f.Name()
	// Best-effort cleanup if we fail
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write registry: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to fsync registry: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close registry file: %w", err)
	}

	if err := os.Chmod(tmp, security.PermRegistry); err != nil {
		return fmt.Errorf("failed to set registry permissions: %w", err)
	}

	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("failed to replace registry: %w", err)
	}

	return nil
}

// Get retrieves an entry by domain.
func (r *Registry) Get(domain string) (Entry, error) {
	entry, ok := r.Projects[domain]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, domain)
	}
	return entry, nil
}

// Has reports whether a domain is registered.
func (r *Registry) Has(domain string) bool {
	_, ok := r.Projects[domain]
	return ok
}

// Put adds an entry. A duplicate domain is rejected unless overwrite is set.
func (r *Registry) Put(entry Entry, overwrite bool) error {
	if _, ok := r.Projects[entry.Domain]; ok && !overwrite {
		return fmt.Errorf("%w: %s", ErrDuplicateDomain, entry.Domain)
	}
	r.Projects[entry.Domain] = entry
	return nil
}

// Delete removes an entry by domain.
func (r *Registry) Delete(domain string) error {
	if _, ok := r.Projects[domain]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, domain)
	}
	delete(r.Projects, domain)
	return nil
}

// List returns all entries sorted by domain.
func (r *Registry) List() []Entry {
	entries := make([]Entry, 0, len(r.Projects))
	for _, e := range r.Projects {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Domain < entries[j].Domain
	})
	return entries
}
