package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decklab/decklab/internal/config"
	"github.com/decklab/decklab/internal/logging"
)

const testDeckCSV = "Name,Count,Front Template,Back Template,Description,Hue,Card ID,Type,VP,Cost,Image,Notes\n" +
	"Alpha Centauri,1,front,back,1: +2C; 4: Novelty Windfall,200,AC01,World,1,2,alpha,\n" +
	"Deep Survey,2,front,back,2: Draw 1,120,DS01,Action,0,1,,\n"

const testDeckHTML = `<div class="card">
  <h1>{{name}}</h1>
  <p>{{description1}}</p>
  <p style="{{hide:description2}}">{{description2}}</p>
  <img src="{{asset:image}}" alt="">
</div>`

const testDeckCSS = `.card { width: 300px; }
.card h1 { font-size: 18px; }`

func writeTestDeck(t *testing.T, manifest string) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "deck.yml"), []byte(manifest), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cards.csv"), []byte(testDeckCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "front.html"), []byte(testDeckHTML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "front.css"), []byte(testDeckCSS), 0o644))

	assetDir := filepath.Join(dir, "assets")
	require.NoError(t, os.MkdirAll(filepath.Join(assetDir, "icons"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(assetDir, "alpha.png"), []byte("png-bytes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(assetDir, "icons", "f2.svg"), []byte("<svg/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(assetDir, "icons", "g2.svg"), []byte("<svg/>"), 0o644))

	return dir
}

func testServer(t *testing.T, deckDir string) *PreviewServer {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{Port: 3000, Host: "localhost"},
		Deck:   config.DeckConfig{Dir: deckDir, DebounceMS: 50, CacheSize: 4},
		Export: config.ExportConfig{OutputDir: filepath.Join(t.TempDir(), "out"), TimeoutMS: 1000},
		Log:    config.LogConfig{Level: "error", Format: "text"},
	}

	logger := logging.NewLogger(&logging.Config{Level: logging.LevelError, Format: "text", Output: os.Stderr})
	srv, err := New(cfg, logger)
	require.NoError(t, err)
	return srv
}

func TestNewFailsOnMissingDeck(t *testing.T) {
	cfg := &config.Config{
		Deck: config.DeckConfig{Dir: filepath.Join(t.TempDir(), "nope")},
	}
	logger := logging.NewLogger(logging.DefaultConfig())

	_, err := New(cfg, logger)
	assert.Error(t, err)
}

func TestNewFailsOnMissingTemplate(t *testing.T) {
	dir := writeTestDeck(t, "name: broken\n")
	require.NoError(t, os.Remove(filepath.Join(dir, "front.html")))

	cfg := &config.Config{Deck: config.DeckConfig{Dir: dir}}
	logger := logging.NewLogger(logging.DefaultConfig())

	_, err := New(cfg, logger)
	assert.Error(t, err)
}

func TestIndexServesCuratedSubset(t *testing.T) {
	dir := writeTestDeck(t, "name: test\ncurated:\n  - Alpha Centauri\n")
	srv := testServer(t, dir)

	rec := httptest.NewRecorder()
	srv.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Alpha Centauri")
	assert.NotContains(t, body, "Deep Survey")
	// Scope index follows deck position even when cards are filtered out.
	assert.Contains(t, body, `id="card-0"`)
}

func TestAllServesEveryCard(t *testing.T) {
	dir := writeTestDeck(t, "name: test\ncurated:\n  - Alpha Centauri\n")
	srv := testServer(t, dir)

	rec := httptest.NewRecorder()
	srv.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/all", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Alpha Centauri")
	assert.Contains(t, body, "Deep Survey")
	assert.Contains(t, body, `id="card-1"`)
}

func TestIndexRejectsUnknownPath(t *testing.T) {
	dir := writeTestDeck(t, "name: test\n")
	srv := testServer(t, dir)

	rec := httptest.NewRecorder()
	srv.handleIndex(rec, httptest.NewRequest(http.MethodGet, "/nothing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRenderDocumentUsesCache(t *testing.T) {
	dir := writeTestDeck(t, "name: test\n")
	srv := testServer(t, dir)

	first, err := srv.renderDocument(variantAll)
	require.NoError(t, err)
	second, err := srv.renderDocument(variantAll)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, srv.cache.Len())
}

func TestAssetLookupTriesExtensions(t *testing.T) {
	dir := writeTestDeck(t, "name: test\n")
	srv := testServer(t, dir)

	rec := httptest.NewRecorder()
	srv.handleAsset(rec, httptest.NewRequest(http.MethodGet, "/assets/alpha", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "png-bytes", rec.Body.String())
}

func TestAssetLookupExactName(t *testing.T) {
	dir := writeTestDeck(t, "name: test\n")
	srv := testServer(t, dir)

	rec := httptest.NewRecorder()
	srv.handleAsset(rec, httptest.NewRequest(http.MethodGet, "/assets/icons/f2.svg", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
}

func TestAssetLookupRejectsTraversal(t *testing.T) {
	dir := writeTestDeck(t, "name: test\n")
	srv := testServer(t, dir)

	rec := httptest.NewRecorder()
	srv.handleAsset(rec, httptest.NewRequest(http.MethodGet, "/assets/../deck.yml", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssetLookupMiss(t *testing.T) {
	dir := writeTestDeck(t, "name: test\n")
	srv := testServer(t, dir)

	rec := httptest.NewRecorder()
	srv.handleAsset(rec, httptest.NewRequest(http.MethodGet, "/assets/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIconsSheetListsFiles(t *testing.T) {
	dir := writeTestDeck(t, "name: test\n")
	srv := testServer(t, dir)

	rec := httptest.NewRecorder()
	srv.handleIcons(rec, httptest.NewRequest(http.MethodGet, "/icons", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "f2.svg")
	assert.Contains(t, body, "g2.svg")
	assert.Less(t, strings.Index(body, "f2.svg"), strings.Index(body, "g2.svg"))
}

func TestSaveCardsWritesBatch(t *testing.T) {
	dir := writeTestDeck(t, "name: test\n")
	srv := testServer(t, dir)

	payload := `{"cards":[{"name":"Alpha Centauri","dataUrl":"data:image/png;base64,aGVsbG8="}]}`
	req := httptest.NewRequest(http.MethodPost, "/save-cards", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.handleSaveCards(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp saveCardsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Saved)

	saved, err := os.ReadFile(filepath.Join(srv.exporter.OutputDir(), "alphacentauri.png"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(saved))
}

func TestSaveCardsRejectsGet(t *testing.T) {
	dir := writeTestDeck(t, "name: test\n")
	srv := testServer(t, dir)

	rec := httptest.NewRecorder()
	srv.handleSaveCards(rec, httptest.NewRequest(http.MethodGet, "/save-cards", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSaveCardsRejectsBadJSON(t *testing.T) {
	dir := writeTestDeck(t, "name: test\n")
	srv := testServer(t, dir)

	req := httptest.NewRequest(http.MethodPost, "/save-cards", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	srv.handleSaveCards(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthzReportsDeck(t *testing.T) {
	dir := writeTestDeck(t, "name: test\n")
	srv := testServer(t, dir)

	rec := httptest.NewRecorder()
	srv.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var status healthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, 2, status.Cards)
	assert.Equal(t, 0, status.Sessions)
}

func TestAnomalyCountStableAcrossLoads(t *testing.T) {
	dir := writeTestDeck(t, "name: test\n")
	// One malformed description segment: a stable single anomaly per load.
	csv := "Name,Count,Description\nOdd One,1,1: +2C; stray\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cards.csv"), []byte(csv), 0o644))

	srv := testServer(t, dir)

	readAnomalies := func() int {
		rec := httptest.NewRecorder()
		srv.handleHealthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var status healthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		return status.Anomalies
	}

	first := readAnomalies()
	assert.Equal(t, 1, first)

	// Render passes and repeated health checks re-derive the same
	// anomalies; the reported count must not grow.
	_, err := srv.renderDocument(variantAll)
	require.NoError(t, err)
	_, err = srv.renderDocument(variantCurated)
	require.NoError(t, err)

	assert.Equal(t, first, readAnomalies())
	assert.Equal(t, first, readAnomalies())
	assert.Equal(t, first, srv.collector.Count())
}

func TestSourceChangePurgesCache(t *testing.T) {
	dir := writeTestDeck(t, "name: test\n")
	srv := testServer(t, dir)

	_, err := srv.renderDocument(variantAll)
	require.NoError(t, err)
	require.Equal(t, 1, srv.cache.Len())

	require.NoError(t, srv.handleSourceChange(nil))
	assert.Equal(t, 0, srv.cache.Len())
}

func TestMiddlewareAllowsConfiguredOrigin(t *testing.T) {
	dir := writeTestDeck(t, "name: test\n")
	srv := testServer(t, dir)
	srv.config.Server.AllowedOrigins = []string{"http://example.test"}

	handler := srv.withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://example.test")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://example.test", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMiddlewareIgnoresUnknownOrigin(t *testing.T) {
	dir := writeTestDeck(t, "name: test\n")
	srv := testServer(t, dir)

	handler := srv.withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
