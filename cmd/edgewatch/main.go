package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "edgewatch"
	version = "v0.4.0"
)

var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Discretionary crypto trading decision support",
		Version: version,
		Long: `edgewatch watches a fixed crypto watchlist, scores activity, classifies
entry quality and structure, and enforces the operator's daily commitment
contract. It advises and gates; it never places orders.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(flagLogLevel)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Path to YAML config (defaults apply when unset)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (trace|debug|info|warn|error)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s\n", appName, version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// setupLogging picks console output on a TTY, JSON otherwise.
func setupLogging(level string) error {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)

	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = log.Output(os.Stderr)
	}
	return nil
}
