// Package registry loads and serves the table/column allow-list.
package registry

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/TFMV/warden/pkg/errors"
	"github.com/TFMV/warden/pkg/models"
)

// DefaultScopeColumn is the identity column that marks a table as row-scoped.
const DefaultScopeColumn = "CustomerID"

// Registry holds the loaded allow-list. The entry set is read-only after
// load; reload swaps the whole snapshot atomically so concurrent readers
// never see in-place mutation. A missing or malformed file fails closed:
// the allowed set stays empty and callers get a CONFIGURATION_ERROR.
type Registry struct {
	path   string
	logger zerolog.Logger

	mu       sync.Mutex // serializes load so lazy callers don't read the file twice
	snapshot atomic.Pointer[snapshot]
}

type snapshot struct {
	entries []models.AllowedResourceEntry
}

// New creates a registry backed by the allow-list file at path. The file is
// not read until Load or the first Entries call.
func New(path string, logger zerolog.Logger) *Registry {
	return &Registry{
		path:   path,
		logger: logger.With().Str("component", "registry").Logger(),
	}
}

// Load reads the allow-list from disk and swaps it in. Explicit refresh goes
// through here too; there is no other invalidation mechanism.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

func (r *Registry) loadLocked() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		r.logger.Error().Err(err).Str("path", r.path).Msg("Allow-list unreadable, denying row-scoped access")
		return errors.Wrap(err, errors.CodeConfigurationError, "failed to read allow-list")
	}

	var entries []models.AllowedResourceEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		r.logger.Error().Err(err).Str("path", r.path).Msg("Allow-list malformed, denying row-scoped access")
		return errors.Wrap(err, errors.CodeConfigurationError, "failed to parse allow-list")
	}

	for i, entry := range entries {
		if entry.Table == "" || entry.Column == "" {
			err := fmt.Errorf("entry %d: table and column are required", i)
			r.logger.Error().Err(err).Str("path", r.path).Msg("Allow-list malformed, denying row-scoped access")
			return errors.Wrap(err, errors.CodeConfigurationError, "invalid allow-list entry")
		}
	}

	r.snapshot.Store(&snapshot{entries: entries})
	r.logger.Info().Int("entries", len(entries)).Str("path", r.path).Msg("Allow-list loaded")
	return nil
}

// Refresh re-reads the allow-list. The previous snapshot stays in place if
// the reload fails.
func (r *Registry) Refresh() error {
	return r.Load()
}

// Entries returns the loaded allow-list, loading it on first use.
func (r *Registry) Entries() ([]models.AllowedResourceEntry, error) {
	if snap := r.snapshot.Load(); snap != nil {
		return snap.entries, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another caller may have loaded while we waited for the lock.
	if snap := r.snapshot.Load(); snap != nil {
		return snap.entries, nil
	}
	if err := r.loadLocked(); err != nil {
		return nil, err
	}
	return r.snapshot.Load().entries, nil
}

// TablesWithColumn returns the distinct set of table names whose allow-list
// entry matches column case-insensitively.
func (r *Registry) TablesWithColumn(column string) (map[string]struct{}, error) {
	entries, err := r.Entries()
	if err != nil {
		return nil, err
	}

	tables := make(map[string]struct{})
	for _, entry := range entries {
		if strings.EqualFold(entry.Column, column) {
			tables[entry.Table] = struct{}{}
		}
	}
	return tables, nil
}
