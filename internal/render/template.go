// Package render implements the card template engine: placeholder
// substitution, conditional field suppression, symbolic icon replacement,
// CSS scoping, and assembly of the full preview document.
//
// Templates compile once into a span sequence (literal text and typed
// placeholders); rendering a card is then a pure function over that
// structure. Missing template files are a fatal startup error, but no
// per-card substitution ever fails a card.
package render

import (
	"strings"
)

// Placeholder syntax. Keys are normalized field names: lower-cased, with
// spaces replaced by hyphens.
//
//	{{cost}}        literal substitution of the card's Cost field
//	{{hide:vp}}     "display: none;" when the VP field is empty, else nothing
//	{{asset:image}} asset-route path for the Image field, CSS only
const (
	tokenOpen   = "{{"
	tokenClose  = "}}"
	hidePrefix  = "hide:"
	assetPrefix = "asset:"
)

// AssetRoute is the URL prefix the asset lookup placeholder resolves
// under.
const AssetRoute = "/assets/"

type spanKind int

const (
	spanLiteral spanKind = iota
	spanSubst
	spanHide
	spanAsset
)

type span struct {
	kind spanKind
	// text holds the literal text for spanLiteral and the original token
	// text for placeholder spans, so unmatched placeholders can be left
	// untouched.
	text string
	key  string
}

// Template is a compiled HTML or CSS template.
type Template struct {
	spans []span
}

// Compile parses template text into literal and placeholder spans. It
// never fails: anything that is not a well-formed placeholder stays
// literal text.
func Compile(text string) *Template {
	var spans []span
	for len(text) > 0 {
		open := strings.Index(text, tokenOpen)
		if open < 0 {
			spans = append(spans, span{kind: spanLiteral, text: text})
			break
		}

		end := strings.Index(text[open:], tokenClose)
		if end < 0 {
			spans = append(spans, span{kind: spanLiteral, text: text})
			break
		}
		end += open

		if open > 0 {
			spans = append(spans, span{kind: spanLiteral, text: text[:open]})
		}

		token := text[open : end+len(tokenClose)]
		inner := text[open+len(tokenOpen) : end]
		spans = append(spans, compileToken(token, inner))

		text = text[end+len(tokenClose):]
	}

	return &Template{spans: spans}
}

func compileToken(token, inner string) span {
	switch {
	case strings.HasPrefix(inner, hidePrefix):
		return span{kind: spanHide, text: token, key: inner[len(hidePrefix):]}
	case strings.HasPrefix(inner, assetPrefix):
		return span{kind: spanAsset, text: token, key: inner[len(assetPrefix):]}
	default:
		return span{kind: spanSubst, text: token, key: inner}
	}
}

// NormalizeKey turns a field name into its placeholder key: lower-cased,
// spaces replaced with hyphens.
func NormalizeKey(field string) string {
	return strings.ReplaceAll(strings.ToLower(field), " ", "-")
}

// Apply renders the template against normalized field values. The assets
// map is consulted only by asset spans; this is what keeps the image
// field out of ordinary name-keyed substitution.
//
//   - Substitution spans resolve to the field value; fields absent from
//     the map leave the original token untouched.
//   - Hide spans resolve to a hide rule when the field is empty or
//     missing, and to nothing when it has a value.
//   - Asset spans resolve the asset value to a path under the asset
//     route; empty or missing values leave the token untouched.
func (t *Template) Apply(fields, assets map[string]string) string {
	var b strings.Builder
	for _, s := range t.spans {
		switch s.kind {
		case spanLiteral:
			b.WriteString(s.text)
		case spanSubst:
			if value, ok := fields[s.key]; ok {
				b.WriteString(value)
			} else {
				b.WriteString(s.text)
			}
		case spanHide:
			if fields[s.key] == "" {
				b.WriteString("display: none;")
			}
		case spanAsset:
			if value := assets[s.key]; value != "" {
				b.WriteString(AssetRoute + value)
			} else {
				b.WriteString(s.text)
			}
		}
	}
	return b.String()
}

// Keys returns every placeholder key the template references, in order of
// first appearance.
func (t *Template) Keys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, s := range t.spans {
		if s.kind == spanLiteral || seen[s.key] {
			continue
		}
		seen[s.key] = true
		keys = append(keys, s.key)
	}
	return keys
}
