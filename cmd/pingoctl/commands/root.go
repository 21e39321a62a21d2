// Package commands implements the pingoctl CLI commands.
package commands

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// httpClient is the admin HTTP client, initialized in PersistentPreRunE.
	httpClient *http.Client

	// baseURL is the pingod admin base URL, e.g. "http://localhost:8787".
	baseURL string

	// outputFormat controls the output format for all commands (table or json).
	outputFormat string

	// serverAddr is the pingod admin address (host:port).
	serverAddr string
)

// rootCmd is the top-level cobra command for pingoctl.
var rootCmd = &cobra.Command{
	Use:   "pingoctl",
	Short: "CLI client for the pingod daemon",
	Long:  "pingoctl queries the pingod daemon's admin HTTP surface to inspect peers, transfers, and crypto sessions.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		httpClient = &http.Client{Timeout: 5 * time.Second}
		baseURL = "http://" + serverAddr
		return nil
	},
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:8787",
		"pingod admin address (host:port)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")

	rootCmd.AddCommand(peerCmd())
	rootCmd.AddCommand(transferCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
