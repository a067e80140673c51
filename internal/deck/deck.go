package deck

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/decklab/decklab/internal/errors"
	"github.com/decklab/decklab/internal/tabular"
)

// Deck is the ordered collection of canonical cards for one product.
// Order matches the source row order. The index is a rendering-scope key
// for one render pass, not a stable card identity.
type Deck struct {
	Name  string
	Cards []Card
}

// Len returns the number of cards.
func (d *Deck) Len() int {
	return len(d.Cards)
}

// ScopeID returns the per-render CSS/DOM scope id for the card at index.
func ScopeID(index int) string {
	return "card-" + strconv.Itoa(index)
}

// Load reads the deck directory: manifest, then source table, then the
// canonical cards. Missing or unreadable source files are fatal; per-card
// derivation anomalies go to the collector and never abort the deck.
func Load(dir string, collector *errors.Collector) (*Deck, *Manifest, error) {
	manifest, err := LoadManifest(dir)
	if err != nil {
		return nil, nil, err
	}

	sourcePath := manifest.SourcePath(dir)
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading deck source %s: %w", sourcePath, err)
	}

	table, err := tabular.Parse(string(data))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing deck source %s: %w", sourcePath, err)
	}

	builder := NewBuilder(manifest.NameFixups, collector)
	cards := make([]Card, 0, len(table.Records))
	for _, record := range table.Records {
		cards = append(cards, builder.Build(record))
	}

	return &Deck{Name: manifest.Name, Cards: cards}, manifest, nil
}

// Signature returns a modification signature over the deck directory's
// files, usable as a render-cache key. Any file change anywhere under the
// directory changes the signature, matching the watch event that drives
// client reload.
func Signature(dir string) string {
	var parts []string
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		parts = append(parts, fmt.Sprintf("%s:%d:%d", path, info.Size(), info.ModTime().UnixNano()))
		return nil
	})
	sort.Strings(parts)
	return strings.Join(parts, "|")
}
