package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/decklab/decklab/internal/config"
	"github.com/decklab/decklab/internal/deck"
	"github.com/decklab/decklab/internal/errors"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the deck's cards and any derivation anomalies",
	RunE:  runList,
}

var listVerbose bool

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVarP(&listVerbose, "verbose", "v", false, "Show per-card anomaly details")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	collector := errors.NewCollector()
	d, manifest, err := deck.Load(cfg.Deck.Dir, collector)
	if err != nil {
		return err
	}

	fmt.Printf("Deck: %s (%d cards)\n\n", d.Name, d.Len())

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tTYPE\tCOUNT\tCURATED")
	for i, card := range d.Cards {
		curated := ""
		if manifest.IsCurated(card.Name()) {
			curated = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			i, card.Name(), card.Get("Type"), card.Get("Count"), curated)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if collector.Count() > 0 {
		fmt.Printf("\n%d anomalies:\n", collector.Count())
		for _, anomaly := range collector.All() {
			if listVerbose {
				fmt.Printf("  [%s] %s/%s: %s\n",
					anomaly.Severity, anomaly.Card, anomaly.Field, anomaly.Message)
			} else {
				fmt.Printf("  %s: %s\n", anomaly.Card, anomaly.Message)
			}
		}
	}

	return nil
}
