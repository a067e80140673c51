// Package cmd provides the decklab command-line interface.
//
// Configuration sources, highest priority first:
//  1. Command-line flags (--port, --deck, ...)
//  2. Environment variables with the DECKLAB_ prefix
//     (DECKLAB_SERVER_PORT, DECKLAB_DECK_DIR, ...)
//  3. Configuration file (.decklab.yml in the working directory, or
//     the file named by --config)
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "decklab",
	Short: "Local preview and export tool for print-and-play card decks",
	Long: `Decklab renders a deck of trading cards from a delimited source table
and an HTML/CSS card template, serves the result in the browser with live
reload, and exports per-card PNG images.

Quick Start:
  decklab serve                   Start the preview server
  decklab list                    Print the deck's cards and anomalies
  decklab export                  Capture every card as a PNG
  decklab version                 Show version information`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .decklab.yml)")
	rootCmd.PersistentFlags().String("deck", "", "deck directory")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("deck.dir", rootCmd.PersistentFlags().Lookup("deck"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".decklab")
	}

	viper.SetEnvPrefix("DECKLAB")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is fine, the defaults carry the tool.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
