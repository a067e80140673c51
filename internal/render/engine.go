package render

import (
	"fmt"
	"os"
	"strings"

	"github.com/decklab/decklab/internal/deck"
)

// baseClass is the shared unscoped class selector every card template
// styles against. Scoping rewrites it per fragment.
const baseClass = "card"

// imageKey is the normalized name of the field that resolves through the
// asset-lookup placeholder instead of ordinary substitution.
const imageKey = "image"

// Fragment is one card's rendered, CSS-scoped output: a style block plus
// the substituted HTML, wrapped in the fixed scaling shell.
type Fragment struct {
	ScopeID string
	HTML    string
}

// Engine renders canonical cards against one compiled HTML/CSS template
// pair.
type Engine struct {
	html  *Template
	css   *Template
	icons *IconTable
}

// NewEngine compiles the template pair. Icon phrases default to the
// standard table when nil.
func NewEngine(htmlText, cssText string, phrases []IconPhrase) *Engine {
	if phrases == nil {
		phrases = DefaultIconPhrases()
	}
	return &Engine{
		html:  Compile(htmlText),
		css:   Compile(cssText),
		icons: NewIconTable(phrases),
	}
}

// LoadEngine reads and compiles the template files. Missing or unreadable
// templates are a fatal startup error; there is no per-request recovery.
func LoadEngine(htmlPath, cssPath string) (*Engine, error) {
	htmlText, err := os.ReadFile(htmlPath)
	if err != nil {
		return nil, fmt.Errorf("reading HTML template %s: %w", htmlPath, err)
	}
	cssText, err := os.ReadFile(cssPath)
	if err != nil {
		return nil, fmt.Errorf("reading CSS template %s: %w", cssPath, err)
	}
	return NewEngine(string(htmlText), string(cssText), nil), nil
}

// RenderCard renders one card into a self-contained fragment scoped to
// scopeID. It never fails: the worst case for a malformed field is a
// visibly broken glyph.
func (e *Engine) RenderCard(card deck.Card, scopeID string) Fragment {
	fields, assets := normalizeFields(card)

	html := e.html.Apply(fields, assets)
	css := e.css.Apply(fields, assets)

	html = e.icons.Replace(html)
	html = appendScopeClass(html, scopeID)
	css = ScopeCSS(css, scopeID)

	var b strings.Builder
	b.WriteString(`<div class="card-frame" id="` + scopeID + `">`)
	b.WriteString("<style>\n")
	b.WriteString(css)
	b.WriteString("\n</style>\n")
	b.WriteString(html)
	b.WriteString("</div>")

	return Fragment{ScopeID: scopeID, HTML: b.String()}
}

// normalizeFields maps card fields to their placeholder keys. The image
// field is routed to the asset map only, so its name-keyed placeholder is
// never substituted.
func normalizeFields(card deck.Card) (fields, assets map[string]string) {
	fields = make(map[string]string, len(card.Fields))
	assets = make(map[string]string, 1)

	for name, value := range card.Fields {
		key := NormalizeKey(name)
		if key == imageKey {
			assets[key] = value
			continue
		}
		fields[key] = value
	}

	return fields, assets
}

// ScopeCSS rewrites every occurrence of the shared card class selector to
// the scope-unique one. The boundary check keeps selectors like
// .card-title intact.
func ScopeCSS(css, scopeID string) string {
	selector := "." + baseClass
	var b strings.Builder
	b.Grow(len(css) + len(scopeID)*8)

	i := 0
	for i < len(css) {
		if strings.HasPrefix(css[i:], selector) && !isIdentChar(charAt(css, i+len(selector))) {
			b.WriteString("." + scopeID)
			i += len(selector)
			continue
		}
		b.WriteByte(css[i])
		i++
	}

	return b.String()
}

// appendScopeClass appends the scoped class to the first class attribute
// in the HTML, keeping the generic class so shared base styling still
// applies.
func appendScopeClass(html, scopeID string) string {
	const attr = `class="`
	idx := strings.Index(html, attr)
	if idx < 0 {
		return html
	}

	end := strings.IndexByte(html[idx+len(attr):], '"')
	if end < 0 {
		return html
	}
	insert := idx + len(attr) + end

	return html[:insert] + " " + scopeID + html[insert:]
}

func charAt(s string, i int) byte {
	if i >= len(s) {
		return 0
	}
	return s[i]
}

func isIdentChar(c byte) bool {
	return c == '-' || c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
