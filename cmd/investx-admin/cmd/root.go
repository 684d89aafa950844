package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtirumala2025/investx/internal/app"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "investx-admin",
	Short: "Operate the InvestX paper-trading ledger from the command line",
	Long: `investx-admin talks directly to the ledger store used by investx-server.

It provides tools for:
  - Inspecting portfolios, holdings, and the transaction journal
  - Resetting a user's simulation portfolio
  - Provisioning portfolios ahead of demos
  - Placing trades on a user's behalf
  - Checking quotes as the execution engine sees them`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to investx.toml (defaults to $INVESTX_CONFIG, then the binary directory)")
}

// newApp boots the application for a single command invocation. Callers own
// the returned app and must Close it.
func newApp() (*app.App, error) {
	a, err := app.NewApp(configPath)
	if err != nil {
		return nil, fmt.Errorf("initialize app: %w", err)
	}
	return a, nil
}
