package deck

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the well-known manifest name inside a deck directory.
const ManifestFile = "deck.yml"

// Manifest describes one deck: where its source table, templates, and
// assets live, the curated preview subset, and deck-specific name fixups.
// Paths are relative to the deck directory.
type Manifest struct {
	Name       string      `yaml:"name"`
	Source     string      `yaml:"source"`
	HTML       string      `yaml:"html"`
	CSS        string      `yaml:"css"`
	Assets     string      `yaml:"assets"`
	Curated    []string    `yaml:"curated"`
	NameFixups []NameFixup `yaml:"nameFixups"`
}

// LoadManifest reads and validates the manifest in dir. A missing or
// unreadable manifest is a fatal startup error.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading deck manifest %s: %w", path, err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing deck manifest %s: %w", path, err)
	}

	if manifest.Name == "" {
		manifest.Name = filepath.Base(dir)
	}
	if manifest.Source == "" {
		manifest.Source = "cards.csv"
	}
	if manifest.HTML == "" {
		manifest.HTML = "front.html"
	}
	if manifest.CSS == "" {
		manifest.CSS = "front.css"
	}
	if manifest.Assets == "" {
		manifest.Assets = "assets"
	}

	return &manifest, nil
}

// SourcePath returns the absolute path of the deck's source table.
func (m *Manifest) SourcePath(dir string) string {
	return filepath.Join(dir, m.Source)
}

// HTMLPath returns the absolute path of the deck's HTML template.
func (m *Manifest) HTMLPath(dir string) string {
	return filepath.Join(dir, m.HTML)
}

// CSSPath returns the absolute path of the deck's CSS template.
func (m *Manifest) CSSPath(dir string) string {
	return filepath.Join(dir, m.CSS)
}

// AssetDir returns the absolute path of the deck's asset directory.
func (m *Manifest) AssetDir(dir string) string {
	return filepath.Join(dir, m.Assets)
}

// IsCurated reports whether a card name belongs to the curated preview
// subset. An empty curated list means every card is shown.
func (m *Manifest) IsCurated(name string) bool {
	if len(m.Curated) == 0 {
		return true
	}
	for _, curated := range m.Curated {
		if curated == name {
			return true
		}
	}
	return false
}
