package render

import (
	"fmt"
	"strings"

	"github.com/decklab/decklab/internal/deck"
)

// baseCSS is the shared, unscoped rule block kept outside the per-card
// style tags: the generic card base, the scaling shell, the preview grid,
// and inline icon sizing.
const baseCSS = `
* { box-sizing: border-box; }
body { margin: 0; padding: 24px; background: #2b2b2b; font-family: system-ui, sans-serif; }
.toolbar { margin-bottom: 16px; }
.toolbar button { padding: 8px 16px; cursor: pointer; }
.grid { display: flex; flex-wrap: wrap; gap: 16px; }
.card-frame { transform: scale(0.5); transform-origin: top left; }
.card { position: relative; overflow: hidden; background: #fff; }
.icon { height: 1em; vertical-align: -0.1em; }
`

// clientScript drives the live-reload channel and the card capture
// round trip. A reload signal means the whole document is stale and must
// be re-fetched; it carries no payload. A dropped channel reconnects on
// an interval so a long-idle tab keeps hearing reloads.
const clientScript = `
let ws;
let reconnectInterval;

function connect() {
  const protocol = window.location.protocol === 'https:' ? 'wss:' : 'ws:';
  ws = new WebSocket(protocol + '//' + window.location.host + '/ws');

  ws.onopen = function () {
    clearInterval(reconnectInterval);
  };

  ws.onmessage = function () {
    window.location.reload();
  };

  ws.onclose = function () {
    clearInterval(reconnectInterval);
    reconnectInterval = setInterval(connect, 2000);
  };
}

connect();

async function saveCards() {
  const frames = document.querySelectorAll('.card-frame');
  const cards = [];
  for (const frame of frames) {
    const canvas = await html2canvas(frame.firstElementChild, { scale: 2 });
    cards.push({
      name: frame.dataset.name,
      dataUrl: canvas.toDataURL('image/png'),
    });
  }
  const res = await fetch('/save-cards', {
    method: 'POST',
    headers: { 'Content-Type': 'application/json' },
    body: JSON.stringify({ cards: cards }),
  });
  const body = await res.json();
  alert('Saved ' + body.saved + ' cards');
}
`

// Assembler concatenates per-card fragments into one preview document.
type Assembler struct {
	engine *Engine
}

// NewAssembler creates an assembler over a compiled engine.
func NewAssembler(engine *Engine) *Assembler {
	return &Assembler{engine: engine}
}

// CardFilter selects which cards appear in the assembled document.
type CardFilter func(card deck.Card) bool

// AllCards admits every card.
func AllCards(deck.Card) bool { return true }

// BuildDocument renders every admitted card and assembles the full
// preview page. A failure inside one card's render never aborts the rest;
// the page is always complete.
func (a *Assembler) BuildDocument(d *deck.Deck, filter CardFilter) string {
	if filter == nil {
		filter = AllCards
	}

	var cards strings.Builder
	for i, card := range d.Cards {
		if !filter(card) {
			continue
		}
		fragment := a.engine.RenderCard(card, deck.ScopeID(i))
		cards.WriteString(withCardName(fragment, card.Name()))
		cards.WriteByte('\n')
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString(fmt.Sprintf("<title>%s</title>\n", d.Name))
	b.WriteString(`<meta charset="utf-8">` + "\n")
	b.WriteString("<style>" + baseCSS + "</style>\n")
	b.WriteString(`<script src="https://html2canvas.hertzen.com/dist/html2canvas.min.js"></script>` + "\n")
	b.WriteString("</head>\n<body>\n")
	b.WriteString(`<div class="toolbar"><button onclick="saveCards()">Save cards</button></div>` + "\n")
	b.WriteString(`<div class="grid">` + "\n")
	b.WriteString(cards.String())
	b.WriteString("</div>\n")
	b.WriteString("<script>" + clientScript + "</script>\n")
	b.WriteString("</body>\n</html>\n")

	return b.String()
}

// withCardName stamps the card's display name onto its frame so the
// capture script can label the exported image.
func withCardName(fragment Fragment, name string) string {
	escaped := strings.ReplaceAll(name, `"`, "&quot;")
	return strings.Replace(fragment.HTML,
		`<div class="card-frame"`,
		fmt.Sprintf(`<div class="card-frame" data-name="%s"`, escaped), 1)
}

// BuildIconGrid renders the debug page listing every icon asset. Files
// must already be sorted by name.
func BuildIconGrid(files []string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<title>Icons</title>\n")
	b.WriteString("<style>body{font-family:monospace;background:#2b2b2b;color:#eee;}")
	b.WriteString(".cell{display:inline-block;margin:12px;text-align:center;}")
	b.WriteString(".cell img{display:block;width:48px;height:48px;margin:0 auto 4px;background:#fff;}</style>\n")
	b.WriteString("</head>\n<body>\n")
	for _, file := range files {
		b.WriteString(fmt.Sprintf(`<div class="cell"><img src="%s%s" alt="%s">%s</div>`,
			IconRoute, file, file, file))
		b.WriteByte('\n')
	}
	b.WriteString("</body>\n</html>\n")
	return b.String()
}
