package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/decklab/decklab/internal/config"
	"github.com/decklab/decklab/internal/deck"
	"github.com/decklab/decklab/internal/errors"
	"github.com/decklab/decklab/internal/export"
	"github.com/decklab/decklab/internal/server"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Capture every card as a PNG via a headless browser",
	Long: `Capture each card in the deck as a PNG file in the export directory.

By default a preview server is started for the duration of the export.
Point --url at a running server to capture from it instead.

Examples:
  decklab export
  decklab export --url http://localhost:3000/all
  decklab export --output out/cards`,
	RunE: runExport,
}

var exportURL string

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportURL, "url", "", "Capture from a running preview server instead of starting one")
	exportCmd.Flags().StringP("output", "o", "", "Export output directory")
	_ = viper.BindPFlag("export.output_dir", exportCmd.Flags().Lookup("output"))
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector := errors.NewCollector()
	d, _, err := deck.Load(cfg.Deck.Dir, collector)
	if err != nil {
		return err
	}

	previewURL := exportURL
	if previewURL == "" {
		srv, err := server.New(cfg, logger)
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}

		serveErr := make(chan error, 1)
		go func() { serveErr <- srv.Start(ctx) }()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		previewURL = "http://" + cfg.Addr() + "/all"
		if err := waitForServer(ctx, previewURL, serveErr); err != nil {
			return err
		}
	}

	exporter := export.NewCollector(cfg.Export.OutputDir, logger)
	capturer := export.NewCapturer(exporter, time.Duration(cfg.Export.TimeoutMS)*time.Millisecond, logger)

	captured, err := capturer.CaptureDeck(ctx, previewURL, d)
	if err != nil {
		return err
	}

	fmt.Printf("Exported %d of %d cards to %s\n", captured, d.Len(), exporter.OutputDir())
	return nil
}

// waitForServer polls the preview URL until it answers, the server loop
// exits, or two seconds pass.
func waitForServer(ctx context.Context, url string, serveErr <-chan error) error {
	deadline := time.After(2 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("server failed to start: %w", err)
			}
			return fmt.Errorf("server exited before export")
		case <-deadline:
			return fmt.Errorf("server did not become ready at %s", url)
		case <-tick.C:
			resp, err := http.Get(url)
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return nil
				}
			}
		}
	}
}
