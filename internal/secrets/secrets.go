// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads credentials kept outside the config file. The
// secrets directory holds one file per key; the trimmed file contents are
// the value.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/pdiddy/paper-enrich/internal/logging"
)

// DefaultDir is the secrets directory read at startup.
const DefaultDir = ".secrets/"

// SemanticScholarKey names the file holding the Semantic Scholar API key.
const SemanticScholarKey = "semantic-scholar-api-key"

// Keys maps secret names to values.
type Keys map[string]string

// Load reads every regular, non-hidden file directly under dir. A missing
// directory yields no keys. Empty files are ignored and unreadable ones are
// logged and skipped.
func Load(dir string) (Keys, error) {
	fsys := os.DirFS(dir)
	entries, err := fs.ReadDir(fsys, ".")
	if errors.Is(err, fs.ErrNotExist) {
		return Keys{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	log := logging.NewLogger("secrets")
	keys := Keys{}
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		data, err := fs.ReadFile(fsys, e.Name())
		if err != nil {
			log.Warn().Err(err).Str("secret", e.Name()).Msg("skipping unreadable secret")
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			keys[e.Name()] = v
		}
	}
	return keys, nil
}

// Names returns the loaded key names in sorted order.
func (k Keys) Names() []string {
	return slices.Sorted(maps.Keys(k))
}

// APIKey returns configured when set, otherwise the stored Semantic
// Scholar key.
func (k Keys) APIKey(configured string) string {
	if configured != "" {
		return configured
	}
	return k[SemanticScholarKey]
}
