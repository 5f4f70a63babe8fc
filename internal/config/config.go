package config

import (
	"log/slog"

	"github.com/jefehq/jefe/internal/domain"
)

// Store bundles the resolved paths and logger for Jefe's two persisted
// documents. It is deliberately small: callers decide when to save (on
// active-theme change, on preference mutation, on every catalog mutation).
// Saves are synchronous, microsecond-to-millisecond file writes, so no
// background queue is needed.
type Store struct {
	settingsPath string
	catalogPath  string
	logger       *slog.Logger
}

// NewStore resolves both document paths and returns a ready Store.
func NewStore(logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	settingsPath, err := SettingsPath()
	if err != nil {
		return nil, err
	}
	catalogPath, err := CatalogPath()
	if err != nil {
		return nil, err
	}
	return &Store{settingsPath: settingsPath, catalogPath: catalogPath, logger: logger}, nil
}

// SettingsPath returns the resolved settings file path this store uses.
func (s *Store) SettingsPath() string { return s.settingsPath }

// CatalogPath returns the resolved catalog file path this store uses.
func (s *Store) CatalogPath() string { return s.catalogPath }

// LoadSettings implements load_or_default for the settings document.
func (s *Store) LoadSettings() *domain.Settings {
	return loadOrDefault(s.settingsPath, domain.DefaultSettings(), s.logger)
}

// SaveSettings implements save_atomic for the settings document.
func (s *Store) SaveSettings(settings *domain.Settings) error {
	return saveAtomic(s.settingsPath, settings)
}

// LoadCatalog implements load_or_default for the catalog document, then
// sanitizes it: agents pointing at unknown repositories are impossible by
// construction here since agents are embedded under their owning
// repository, so sanitization instead fills a missing slug from the
// repository name, drops repositories whose slug is still empty or is a
// duplicate (keeping the first occurrence), since slug uniqueness is a
// process-wide invariant, and drops agents with an empty name.
func (s *Store) LoadCatalog() *domain.Catalog {
	cat := loadOrDefault(s.catalogPath, domain.DefaultCatalog(), s.logger)
	return sanitizeCatalog(cat, s.logger)
}

// SaveCatalog implements save_atomic for the catalog document.
func (s *Store) SaveCatalog(cat *domain.Catalog) error {
	return saveAtomic(s.catalogPath, cat)
}

func sanitizeCatalog(cat *domain.Catalog, logger *slog.Logger) *domain.Catalog {
	if cat == nil {
		return domain.DefaultCatalog()
	}

	seen := make(map[string]bool, len(cat.Repositories))
	clean := make([]*domain.Repository, 0, len(cat.Repositories))

	for _, repo := range cat.Repositories {
		if repo == nil {
			continue
		}
		slug := repo.Slug
		if slug == "" {
			slug = domain.Slug(repo.Name)
			repo.Slug = slug
		}
		if slug == "" || seen[slug] {
			logger.Warn("dropping repository with invalid or duplicate slug", "name", repo.Name, "slug", slug)
			continue
		}
		seen[slug] = true

		agents := make([]*domain.Agent, 0, len(repo.Agents))
		for _, a := range repo.Agents {
			if a == nil || a.Name == "" {
				logger.Warn("dropping agent with empty name", "repo", repo.Name)
				continue
			}
			if !a.HasPTYSlot() {
				a.PTYSlot = -1
			}
			// Status is never persisted; startup reconciliation (Reconcile)
			// assigns it from session liveness before the catalog is used.
			agents = append(agents, a)
		}
		repo.Agents = agents

		clean = append(clean, repo)
	}

	cat.Repositories = clean
	return cat
}
