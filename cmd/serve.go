package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/decklab/decklab/internal/config"
	"github.com/decklab/decklab/internal/logging"
	"github.com/decklab/decklab/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the preview server with live reload",
	Long: `Start the preview server. The deck is re-rendered on every request,
and any change under the deck directory pushes a reload signal to every
open browser tab.

Examples:
  decklab serve                       # Serve the configured deck
  decklab serve --deck decks/mydeck   # Serve a specific deck
  decklab serve --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 3000, "Port to serve on")
	serveCmd.Flags().String("host", "localhost", "Host to bind to")
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx, err, "shutdown error")
		}
		cancel()
	}()

	fmt.Printf("Serving %s at http://%s\n", cfg.Deck.Dir, cfg.Addr())
	return srv.Start(ctx)
}

func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}
