package gds

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadCatalog walks the projection configs. When overrideDir is set and
// exists it is used; otherwise the embedded filesystem is walked from root.
func LoadCatalog(embedded fs.FS, root string, overrideDir string) (Catalog, error) {
	if overrideDir != "" {
		if _, err := os.Stat(overrideDir); err == nil {
			slog.Info("loading projection catalog from filesystem", "dir", overrideDir)
			return walkCatalog(os.DirFS(overrideDir), ".")
		}
		slog.Warn("projection config directory does not exist, using embedded catalog", "dir", overrideDir)
	}
	if embedded == nil {
		return nil, fmt.Errorf("no projection catalog available")
	}
	return walkCatalog(embedded, root)
}

func walkCatalog(fsys fs.FS, root string) (Catalog, error) {
	catalog := make(Catalog)

	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip directories
		if d.IsDir() {
			return nil
		}

		// Only process YAML files
		if !strings.HasSuffix(d.Name(), ".yaml") && !strings.HasSuffix(d.Name(), ".yml") {
			return nil
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			slog.Error("failed to read projection config", "path", p, "error", err)
			return err
		}

		entry, err := parseCatalogEntry(data, p)
		if err != nil {
			slog.Error("failed to parse projection config", "path", p, "error", err)
			return err
		}

		if existing, ok := catalog[entry.Kind]; ok {
			return fmt.Errorf("algorithm kind %q configured twice (%s, %s)", entry.Kind, existing.Source, p)
		}
		catalog[entry.Kind] = *entry
		slog.Debug("loaded projection config", "kind", entry.Kind, "projection", entry.Projection.Name, "path", p)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk projection configs: %w", err)
	}

	for _, kind := range []AlgorithmKind{KindShortestPath, KindCentrality, KindCommunity} {
		if _, ok := catalog[kind]; !ok {
			return nil, fmt.Errorf("projection catalog has no entry for %q", kind)
		}
	}

	slog.Info("loaded projection catalog", "entries", len(catalog))
	return catalog, nil
}

// parseCatalogEntry parses and validates a YAML projection config.
func parseCatalogEntry(data []byte, p string) (*CatalogEntry, error) {
	var entry CatalogEntry
	if err := yaml.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	entry.Source = path.Clean(p)
	if entry.Kind == "" {
		return nil, fmt.Errorf("kind is required in config file: %s", p)
	}
	if err := entry.validate(); err != nil {
		return nil, fmt.Errorf("invalid projection config %s: %w", p, err)
	}
	return &entry, nil
}
