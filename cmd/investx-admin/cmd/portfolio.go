package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtirumala2025/investx/internal/models"
)

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Inspect and manage simulation portfolios",
	Long: `Inspect and manage simulation portfolios.

Subcommands:
  show          - Show a portfolio valued at current prices
  provision     - Create a user's portfolio if it does not exist
  reset         - Remove all holdings and restore the starting balance
  transactions  - List the trade journal, newest first

Examples:
  investx-admin portfolio show user123
  investx-admin portfolio transactions user123 --limit 20
  investx-admin portfolio reset user123`,
}

var portfolioShowCmd = &cobra.Command{
	Use:   "show <user-id>",
	Short: "Show a user's portfolio valued at current prices",
	Args:  cobra.ExactArgs(1),
	RunE:  runPortfolioShow,
}

var portfolioProvisionCmd = &cobra.Command{
	Use:   "provision <user-id>",
	Short: "Create the user's simulation portfolio if it does not exist",
	Args:  cobra.ExactArgs(1),
	RunE:  runPortfolioProvision,
}

var portfolioResetCmd = &cobra.Command{
	Use:   "reset <user-id>",
	Short: "Remove all holdings and restore the starting balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runPortfolioReset,
}

var portfolioTransactionsCmd = &cobra.Command{
	Use:   "transactions <user-id>",
	Short: "List the user's trade journal, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runPortfolioTransactions,
}

var portfolioPurgeCmd = &cobra.Command{
	Use:   "purge-transactions <user-id>",
	Short: "Permanently delete the user's transaction journal",
	Long: `Permanently delete the user's transaction journal.

Reset keeps the journal as an audit trail; this command is the explicit
operator override. There is no undo.`,
	Args: cobra.ExactArgs(1),
	RunE: runPortfolioPurge,
}

var (
	transactionsLimit int
	purgeConfirmed    bool
)

func init() {
	rootCmd.AddCommand(portfolioCmd)
	portfolioCmd.AddCommand(portfolioShowCmd)
	portfolioCmd.AddCommand(portfolioProvisionCmd)
	portfolioCmd.AddCommand(portfolioResetCmd)
	portfolioCmd.AddCommand(portfolioTransactionsCmd)
	portfolioCmd.AddCommand(portfolioPurgeCmd)

	portfolioTransactionsCmd.Flags().IntVarP(&transactionsLimit, "limit", "n", 50, "maximum journal entries to list")
	portfolioPurgeCmd.Flags().BoolVar(&purgeConfirmed, "yes", false, "confirm the irreversible purge")
}

func runPortfolioShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	userID := args[0]
	summary, err := a.PortfolioService.GetSummary(context.Background(), userID, models.SimulationPortfolioID(userID))
	if err != nil {
		return fmt.Errorf("get summary: %w", err)
	}

	fmt.Printf("Portfolio   %s\n", summary.ID)
	fmt.Printf("Cash        %s\n", models.FormatUSD(summary.CashBalance))
	fmt.Printf("Holdings    %s\n", models.FormatUSD(summary.HoldingsValue))
	fmt.Printf("Net worth   %s\n", models.FormatUSD(summary.NetWorth))

	if len(summary.Holdings) == 0 {
		return nil
	}

	fmt.Printf("\n%-8s %14s %12s %12s %14s %12s\n", "SYMBOL", "SHARES", "AVG COST", "PRICE", "VALUE", "UNREALIZED")
	for _, h := range summary.Holdings {
		fmt.Printf("%-8s %14s %12s %12s %14s %12s\n",
			h.Symbol,
			h.Shares.String(),
			h.AverageCost.StringFixed(2),
			h.CurrentPrice.StringFixed(2),
			h.MarketValue.StringFixed(2),
			h.UnrealizedGainLoss.StringFixed(2))
	}
	return nil
}

func runPortfolioProvision(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.PortfolioService.GetOrProvision(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("provision: %w", err)
	}

	fmt.Printf("Portfolio %s ready with %s cash\n", p.ID, models.FormatUSD(p.CashBalance))
	return nil
}

func runPortfolioReset(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	userID := args[0]
	result, err := a.PortfolioService.Reset(context.Background(), userID, models.SimulationPortfolioID(userID))
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	fmt.Printf("Portfolio %s reset: %d holdings removed, cash restored to %s\n",
		result.PortfolioID, result.HoldingsRemoved, models.FormatUSD(result.CashBalance))
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}

func runPortfolioPurge(cmd *cobra.Command, args []string) error {
	if !purgeConfirmed {
		return fmt.Errorf("purge-transactions deletes the audit trail; re-run with --yes to confirm")
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	purged, err := a.Store.PurgeTransactions(context.Background(), models.SimulationPortfolioID(args[0]))
	if err != nil {
		return fmt.Errorf("purge transactions: %w", err)
	}

	fmt.Printf("Purged %d transactions\n", purged)
	return nil
}

func runPortfolioTransactions(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	userID := args[0]
	txns, err := a.PortfolioService.ListTransactions(context.Background(), userID, models.SimulationPortfolioID(userID), transactionsLimit)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}

	if len(txns) == 0 {
		fmt.Println("No transactions.")
		return nil
	}

	fmt.Printf("%-20s %-5s %-8s %12s %12s %14s %12s\n", "TIME", "SIDE", "SYMBOL", "SHARES", "PRICE", "AMOUNT", "GAIN/LOSS")
	for _, txn := range txns {
		gain := ""
		if txn.RealizedGainLoss != nil {
			gain = txn.RealizedGainLoss.StringFixed(2)
		}
		fmt.Printf("%-20s %-5s %-8s %12s %12s %14s %12s\n",
			txn.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			txn.Type,
			txn.Symbol,
			txn.Shares.String(),
			txn.PricePerShare.StringFixed(2),
			txn.TotalAmount.StringFixed(2),
			gain)
	}
	return nil
}
