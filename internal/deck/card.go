// Package deck turns parsed table records into canonical, render-ready
// cards and owns the deck manifest that describes where a deck's source
// table, templates, and assets live.
package deck

import (
	"strings"

	"github.com/decklab/decklab/internal/errors"
	"github.com/decklab/decklab/internal/tabular"
)

const (
	// SegmentDelimiter separates description segments, e.g.
	// "1: +2C; 4: 3=>B".
	SegmentDelimiter = "; "

	// PhaseCount is the number of description slots a card carries.
	PhaseCount = 5

	// PlaceholderIcon is used when a card has no production type at all.
	PlaceholderIcon = "/assets/icons/blank.svg"

	iconPathPrefix = "/assets/icons/"
	iconPathSuffix = ".svg"
)

// goodNumbers maps a Good value to its icon number. Lookup misses leave
// the number empty and the derived path malformed; the card still
// renders, just with a visibly broken icon.
var goodNumbers = map[string]string{
	"Novelty": "2",
	"Rare":    "3",
	"Genes":   "4",
	"Alien":   "5",
}

// Card is one canonical card: every source field verbatim plus the
// derived fields (Description1..Description5, p5-icon). Numeric-looking
// fields such as Cost and VP stay strings until a consumer parses them.
type Card struct {
	Fields map[string]string
}

// Name returns the card's display name.
func (c Card) Name() string {
	return c.Fields["Name"]
}

// Get returns a field value, empty string when absent.
func (c Card) Get(key string) string {
	return c.Fields[key]
}

// NameFixup is one textual substitution applied to the display name.
// Deck-specific policy (upstream naming collisions), declared in the
// manifest rather than hard-coded.
type NameFixup struct {
	Find    string `yaml:"find"`
	Replace string `yaml:"replace"`
}

// Builder derives canonical cards from raw records. Derivation is pure
// and total: the same record always yields the same card, and absent
// optional fields never fail it.
type Builder struct {
	fixups    []NameFixup
	collector *errors.Collector
}

// NewBuilder creates a builder. The collector may be nil; anomalies are
// then dropped instead of recorded.
func NewBuilder(fixups []NameFixup, collector *errors.Collector) *Builder {
	return &Builder{fixups: fixups, collector: collector}
}

// Build maps one raw record into a canonical card.
func (b *Builder) Build(record tabular.Record) Card {
	fields := make(map[string]string, len(record)+PhaseCount+1)
	for k, v := range record {
		fields[k] = v
	}

	for _, fixup := range b.fixups {
		fields["Name"] = strings.ReplaceAll(fields["Name"], fixup.Find, fixup.Replace)
	}

	b.deriveDescriptions(fields)
	b.deriveIcon(fields)

	return Card{Fields: fields}
}

// deriveDescriptions splits the Description field on the segment
// delimiter and files each "<phase>: <text>" segment into its slot.
// Multiple segments for one phase: last one wins. Segments without a
// ": " separator are dropped.
func (b *Builder) deriveDescriptions(fields map[string]string) {
	for i := 1; i <= PhaseCount; i++ {
		fields["Description"+digit(i)] = ""
	}

	description := fields["Description"]
	if description == "" {
		return
	}

	for _, segment := range strings.Split(description, SegmentDelimiter) {
		phase, text, ok := strings.Cut(segment, ": ")
		if !ok {
			b.record(errors.CardError{
				Card:     fields["Name"],
				Field:    "Description",
				Message:  "segment without phase separator dropped: " + segment,
				Severity: errors.SeverityInfo,
			})
			continue
		}
		if len(phase) != 1 || phase[0] < '1' || phase[0] > '5' {
			b.record(errors.CardError{
				Card:     fields["Name"],
				Field:    "Description",
				Message:  "segment with unknown phase dropped: " + segment,
				Severity: errors.SeverityInfo,
			})
			continue
		}
		fields["Description"+phase] = text
	}
}

// deriveIcon computes the p5-icon asset path from the Production and
// Good fields. An unknown Good yields a structurally valid but visually
// broken path; availability over correctness, recorded as an anomaly.
func (b *Builder) deriveIcon(fields map[string]string) {
	production := fields["Production"]
	if production == "" {
		fields["p5-icon"] = PlaceholderIcon
		return
	}

	letter := "g"
	if production == "Production" {
		letter = "f"
	}

	number, ok := goodNumbers[fields["Good"]]
	if !ok {
		b.record(errors.CardError{
			Card:     fields["Name"],
			Field:    "Good",
			Message:  "unknown good value " + strings.TrimSpace(fields["Good"]) + ", icon path will be broken",
			Severity: errors.SeverityWarning,
		})
	}

	fields["p5-icon"] = iconPathPrefix + letter + number + iconPathSuffix
}

func (b *Builder) record(err errors.CardError) {
	if b.collector != nil {
		b.collector.Add(err)
	}
}

func digit(i int) string {
	return string(rune('0' + i))
}
