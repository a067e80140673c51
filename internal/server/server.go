// Package server wires the preview server together: deck loading,
// fragment rendering, asset serving, the live-reload hub, the export
// collector, and the HTTP surface that fronts them.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/decklab/decklab/internal/config"
	"github.com/decklab/decklab/internal/deck"
	"github.com/decklab/decklab/internal/errors"
	"github.com/decklab/decklab/internal/export"
	"github.com/decklab/decklab/internal/logging"
	"github.com/decklab/decklab/internal/metrics"
	"github.com/decklab/decklab/internal/preview"
	"github.com/decklab/decklab/internal/render"
	"github.com/decklab/decklab/internal/watcher"
)

// Document variants selectable by path.
const (
	variantCurated = "curated"
	variantAll     = "all"
)

// PreviewServer serves the rendered deck with live reload and card
// export.
type PreviewServer struct {
	config    *config.Config
	logger    logging.Logger
	collector *errors.Collector
	hub       *preview.Hub
	watcher   *watcher.FileWatcher
	exporter  *export.Collector
	cache     *render.Cache
	metrics   *metrics.Metrics

	httpServer   *http.Server
	serverMutex  sync.RWMutex
	shutdownOnce sync.Once
}

// New creates a preview server and fails fast on anything the process
// cannot serve without: an unreadable deck or missing templates.
func New(cfg *config.Config, logger logging.Logger) (*PreviewServer, error) {
	collector := errors.NewCollector()

	// Fail-fast pass: source table and both templates must load now,
	// not on the first request.
	_, manifest, err := deck.Load(cfg.Deck.Dir, collector)
	if err != nil {
		return nil, err
	}
	if _, err := render.LoadEngine(manifest.HTMLPath(cfg.Deck.Dir), manifest.CSSPath(cfg.Deck.Dir)); err != nil {
		return nil, err
	}

	fileWatcher, err := watcher.New(time.Duration(cfg.Deck.DebounceMS)*time.Millisecond, logger)
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	var cache *render.Cache
	if cfg.Deck.CacheSize > 0 {
		cache, err = render.NewCache(cfg.Deck.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating render cache: %w", err)
		}
	}

	m := metrics.New()
	hub := preview.NewHub(logger)
	hub.OnCountChange(m.SetOpenSessions)

	return &PreviewServer{
		config:    cfg,
		logger:    logger.WithComponent("server"),
		collector: collector,
		hub:       hub,
		watcher:   fileWatcher,
		exporter:  export.NewCollector(cfg.Export.OutputDir, logger),
		cache:     cache,
		metrics:   m,
	}, nil
}

// Start runs the server until the listener fails or Shutdown is called.
func (s *PreviewServer) Start(ctx context.Context) error {
	s.setupWatcher(ctx)
	go s.hub.Run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/all", s.handleIndex)
	mux.HandleFunc("/assets/", s.handleAsset)
	mux.HandleFunc("/icons", s.handleIcons)
	mux.HandleFunc("/save-cards", s.handleSaveCards)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", s.metrics.Handler())

	addr := s.config.Addr()
	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.withMiddleware(mux),
	}
	httpServer := s.httpServer
	s.serverMutex.Unlock()

	s.logger.Info(ctx, "preview server listening", "addr", addr, "deck", s.config.Deck.Dir)

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *PreviewServer) setupWatcher(ctx context.Context) {
	s.watcher.AddFilter(watcher.NoHiddenFilter)
	s.watcher.AddFilter(watcher.NoExportFilter(s.config.Export.OutputDir))
	s.watcher.AddHandler(s.handleSourceChange)

	if err := s.watcher.AddRecursive(s.config.Deck.Dir); err != nil {
		s.logger.Warn(ctx, err, "watching deck directory failed", "dir", s.config.Deck.Dir)
	}

	s.watcher.Start(ctx)
}

// handleSourceChange invalidates everything derived from the deck
// sources and tells every open session to re-fetch.
func (s *PreviewServer) handleSourceChange(events []watcher.ChangeEvent) error {
	ctx := context.Background()
	for _, event := range events {
		s.logger.Debug(ctx, "source changed", "path", event.Path, "type", event.Type.String())
	}

	if s.cache != nil {
		s.cache.Purge()
	}
	s.collector.Clear()

	s.hub.Broadcast(preview.ReloadSignal)
	s.metrics.IncBroadcast()
	return nil
}

// renderDocument re-parses and re-renders the deck for one variant.
// Every request pays the full pass unless the cache holds a document for
// the current modification signature.
func (s *PreviewServer) renderDocument(variant string) (string, error) {
	var cacheKey string
	if s.cache != nil {
		cacheKey = deck.Signature(s.config.Deck.Dir) + "|" + variant
		if doc, ok := s.cache.Get(cacheKey); ok {
			s.metrics.IncCacheHit()
			return doc, nil
		}
	}

	start := time.Now()

	// Each load pass derives the same per-deck anomalies; collect into a
	// scratch set and swap it in, so repeated renders don't inflate the
	// shared count.
	scratch := errors.NewCollector()
	d, manifest, err := deck.Load(s.config.Deck.Dir, scratch)
	if err != nil {
		return "", err
	}
	s.collector.ReplaceAll(scratch.All())

	engine, err := render.LoadEngine(
		manifest.HTMLPath(s.config.Deck.Dir),
		manifest.CSSPath(s.config.Deck.Dir),
	)
	if err != nil {
		return "", err
	}

	filter := render.AllCards
	if variant == variantCurated {
		filter = func(c deck.Card) bool { return manifest.IsCurated(c.Name()) }
	}

	doc := render.NewAssembler(engine).BuildDocument(d, filter)
	s.metrics.ObserveRender(variant, time.Since(start))

	if s.cache != nil {
		s.cache.Add(cacheKey, doc)
	}
	return doc, nil
}

func (s *PreviewServer) withMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if s.isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		start := time.Now()
		handler.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "request served",
			"method", r.Method, "path", r.URL.Path, "duration", time.Since(start).String())
	})
}

func (s *PreviewServer) isAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range s.config.Server.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return origin == "http://"+s.config.Addr() ||
		origin == "http://localhost:"+strconv.Itoa(s.config.Server.Port) ||
		origin == "http://127.0.0.1:"+strconv.Itoa(s.config.Server.Port)
}

// Shutdown stops the watcher and HTTP server. Open sessions are closed
// by the hub when the serve context is canceled.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "shutting down")

		if err := s.watcher.Stop(); err != nil {
			s.logger.Warn(ctx, err, "stopping watcher")
		}

		s.serverMutex.RLock()
		httpServer := s.httpServer
		s.serverMutex.RUnlock()

		if httpServer != nil {
			shutdownErr = httpServer.Shutdown(ctx)
		}
	})

	return shutdownErr
}
