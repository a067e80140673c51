package render

import (
	"fmt"
	"sort"
	"strings"
)

// IconRoute is the URL prefix for icon assets.
const IconRoute = "/assets/icons/"

// IconPhrase maps one literal text run in rendered HTML to an icon file.
type IconPhrase struct {
	Phrase string
	File   string
}

// IconTable replaces literal domain phrases (good names, VP and cost
// counts, action verbs) in rendered HTML with inline icon images.
//
// Matching is a single left-to-right tokenization pass: at each position
// the longest declared phrase wins, and replaced output is never
// rescanned. That makes the result independent of declaration order for
// overlapping phrases ("Novelty Windfall" can never be torn apart by a
// bare "Novelty" entry) and removes the sequential replace-in-place
// ordering hazard.
type IconTable struct {
	// phrases sorted by length descending, then lexically, so matching
	// is deterministic.
	phrases []IconPhrase
	byFirst map[byte][]IconPhrase
}

// goods are the producible resource types, with their icon numbers
// shared with the p5-icon derivation.
var goods = []struct {
	Name   string
	Number int
}{
	{"Novelty", 2},
	{"Rare", 3},
	{"Genes", 4},
	{"Alien", 5},
}

// DefaultIconPhrases builds the standard phrase table. Each good
// contributes three variants: the windfall form maps into the g icon
// family, the plain and "here" forms (cost/requirement depictions) into
// the f family.
func DefaultIconPhrases() []IconPhrase {
	var phrases []IconPhrase

	for _, good := range goods {
		phrases = append(phrases,
			IconPhrase{Phrase: good.Name + " Windfall", File: fmt.Sprintf("g%d.svg", good.Number)},
			IconPhrase{Phrase: good.Name + " here", File: fmt.Sprintf("f%d.svg", good.Number)},
			IconPhrase{Phrase: good.Name, File: fmt.Sprintf("f%d.svg", good.Number)},
		)
	}

	for n := 1; n <= 9; n++ {
		phrases = append(phrases,
			IconPhrase{Phrase: fmt.Sprintf("%d VP", n), File: fmt.Sprintf("vp%d.svg", n)},
			IconPhrase{Phrase: fmt.Sprintf("%d good", n), File: fmt.Sprintf("good%d.svg", n)},
		)
	}

	phrases = append(phrases,
		IconPhrase{Phrase: "Draw", File: "draw.svg"},
		IconPhrase{Phrase: "Discard", File: "discard.svg"},
		IconPhrase{Phrase: "Trade", File: "trade.svg"},
	)

	return phrases
}

// NewIconTable builds a table from a phrase list. Empty phrases are
// ignored.
func NewIconTable(phrases []IconPhrase) *IconTable {
	kept := make([]IconPhrase, 0, len(phrases))
	for _, p := range phrases {
		if p.Phrase != "" {
			kept = append(kept, p)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if len(kept[i].Phrase) != len(kept[j].Phrase) {
			return len(kept[i].Phrase) > len(kept[j].Phrase)
		}
		return kept[i].Phrase < kept[j].Phrase
	})

	byFirst := make(map[byte][]IconPhrase)
	for _, p := range kept {
		c := p.Phrase[0]
		byFirst[c] = append(byFirst[c], p)
	}

	return &IconTable{phrases: kept, byFirst: byFirst}
}

// Replace runs the tokenization pass over html, substituting every
// matched phrase with an inline image reference.
func (t *IconTable) Replace(html string) string {
	var b strings.Builder
	b.Grow(len(html))

	i := 0
	for i < len(html) {
		matched := false
		for _, p := range t.byFirst[html[i]] {
			if strings.HasPrefix(html[i:], p.Phrase) {
				b.WriteString(t.imageTag(p))
				i += len(p.Phrase)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(html[i])
			i++
		}
	}

	return b.String()
}

func (t *IconTable) imageTag(p IconPhrase) string {
	return fmt.Sprintf(`<img class="icon" src="%s%s" alt="%s">`, IconRoute, p.File, p.Phrase)
}
