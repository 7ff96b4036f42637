// Package registry loads the contributor registry that tickets are assigned
// from.
package registry

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/shineum/mailticket/internal/ticket"
)

// file is the on-disk layout of a registry file.
type file struct {
	Contributors []ticket.Contributor `yaml:"contributors"`
}

// Registry holds the current contributor list. Snapshot hands out copies,
// so a Reload never changes a list a parse is already reading.
type Registry struct {
	path string

	mu           sync.RWMutex
	contributors []ticket.Contributor
}

// New creates a Registry over a fixed contributor list.
func New(contributors []ticket.Contributor) *Registry {
	return &Registry{contributors: contributors}
}

// Load reads a registry file. An empty path yields an empty registry.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path}
	if path == "" {
		return r, nil
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Parse decodes registry YAML and validates it.
func Parse(data []byte) ([]ticket.Contributor, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}

	var errs []error
	seen := make(map[int64]bool, len(f.Contributors))
	for i, c := range f.Contributors {
		if seen[c.ID] {
			errs = append(errs, fmt.Errorf("contributor %d: duplicate id %d", i, c.ID))
		}
		seen[c.ID] = true
		if strings.TrimSpace(c.Name) == "" && strings.TrimSpace(c.Email) == "" {
			errs = append(errs, fmt.Errorf("contributor %d: needs a name or an email", i))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid registry: %w", err)
	}
	return f.Contributors, nil
}

// Reload rereads the registry file.
func (r *Registry) Reload() error {
	if r.path == "" {
		return nil
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("failed to read registry file: %w", err)
	}
	contributors, err := Parse(data)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.contributors = contributors
	r.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the contributor list.
func (r *Registry) Snapshot() []ticket.Contributor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ticket.Contributor, len(r.contributors))
	copy(out, r.contributors)
	return out
}

// Len returns the number of contributors, active or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.contributors)
}
