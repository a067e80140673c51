package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/decklab/decklab/internal/deck"
	"github.com/decklab/decklab/internal/errors"
	"github.com/decklab/decklab/internal/export"
	"github.com/decklab/decklab/internal/render"
	"github.com/decklab/decklab/internal/version"
)

// Extensions tried when an asset is requested without one. Order is the
// lookup priority.
var assetExtensions = []string{"", ".svg", ".png", ".jpg", ".jpeg", ".webp"}

func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".svg":
		return "image/svg+xml"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".css":
		return "text/css; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// handleIndex serves the curated preview at "/" and the full deck at
// "/all".
func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/all" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	variant := variantCurated
	if r.URL.Path == "/all" {
		variant = variantAll
	}

	doc, err := s.renderDocument(variant)
	if err != nil {
		s.logger.Error(r.Context(), err, "rendering deck", "variant", variant)
		http.Error(w, "Failed to render deck", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(doc)); err != nil {
		s.logger.Warn(r.Context(), err, "writing document response")
	}
}

// handleAsset serves deck assets by bare name. When the request has no
// extension the known image extensions are tried in order, so templates
// can say {{asset:image}} without caring how the file is stored.
func (s *PreviewServer) handleAsset(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/assets/")
	if name == "" || strings.Contains(name, "..") {
		http.NotFound(w, r)
		return
	}

	manifest, err := deck.LoadManifest(s.config.Deck.Dir)
	if err != nil {
		s.logger.Error(r.Context(), err, "loading manifest for asset request")
		http.Error(w, "Deck unavailable", http.StatusInternalServerError)
		return
	}

	assetDir := manifest.AssetDir(s.config.Deck.Dir)
	for _, ext := range assetExtensions {
		candidate := filepath.Join(assetDir, filepath.FromSlash(path.Clean(name))+ext)
		data, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		w.Header().Set("Content-Type", contentTypeFor(candidate))
		_, _ = w.Write(data)
		return
	}

	http.NotFound(w, r)
}

// handleIcons serves a reference sheet of every icon file found in the
// asset directory's icons/ subdirectory.
func (s *PreviewServer) handleIcons(w http.ResponseWriter, r *http.Request) {
	manifest, err := deck.LoadManifest(s.config.Deck.Dir)
	if err != nil {
		http.Error(w, "Deck unavailable", http.StatusInternalServerError)
		return
	}

	iconDir := filepath.Join(manifest.AssetDir(s.config.Deck.Dir), "icons")
	entries, err := os.ReadDir(iconDir)
	if err != nil {
		http.Error(w, "No icons directory", http.StatusNotFound)
		return
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(render.BuildIconGrid(files)))
}

type saveCardsRequest struct {
	Cards []export.Entry `json:"cards"`
}

type saveCardsResponse struct {
	Saved int `json:"saved"`
}

// handleSaveCards receives captured card images from the page script and
// writes them to the export directory. Individual failures are logged
// and skipped; the response reports how many files landed.
func (s *PreviewServer) handleSaveCards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req saveCardsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	saved, err := s.exporter.SaveBatch(r.Context(), req.Cards)
	if err != nil {
		s.logger.Error(r.Context(), err, "saving card batch")
		http.Error(w, "Failed to save cards", http.StatusInternalServerError)
		return
	}
	s.metrics.AddExports(saved)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(saveCardsResponse{Saved: saved})
}

// handleWebSocket upgrades the request and parks it in the hub until the
// client disconnects or the server shuts down.
func (s *PreviewServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Origin patterns match hosts, so configured origins lose their scheme.
	patterns := []string{s.config.Addr(), "localhost:*", "127.0.0.1:*"}
	for _, origin := range s.config.Server.AllowedOrigins {
		host := strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
		patterns = append(patterns, host)
	}

	if err := s.hub.Accept(w, r, patterns); err != nil {
		s.logger.Warn(r.Context(), err, "websocket accept failed")
	}
}

type healthStatus struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Deck      string `json:"deck"`
	Cards     int    `json:"cards"`
	Sessions  int    `json:"sessions"`
	Anomalies int    `json:"anomalies"`
}

func (s *PreviewServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status:   "ok",
		Version:  version.Short(),
		Deck:     s.config.Deck.Dir,
		Sessions: s.hub.SessionCount(),
	}

	scratch := errors.NewCollector()
	if d, _, err := deck.Load(s.config.Deck.Dir, scratch); err != nil {
		status.Status = "degraded"
		status.Anomalies = s.collector.Count()
	} else {
		status.Cards = d.Len()
		s.collector.ReplaceAll(scratch.All())
		status.Anomalies = scratch.Count()
	}

	w.Header().Set("Content-Type", "application/json")
	if status.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}
