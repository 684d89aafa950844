package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtirumala2025/investx/internal/models"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <symbol>",
	Short: "Fetch the current price as the execution engine sees it",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuote,
}

var quoteAssetType string

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.Flags().StringVar(&quoteAssetType, "asset-type", "stock", "asset type: stock, etf, or crypto")
}

func runQuote(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	quote, err := a.QuoteService.GetQuote(context.Background(), args[0], models.NormalizeAssetType(quoteAssetType))
	if err != nil {
		return fmt.Errorf("get quote: %w", err)
	}

	fmt.Printf("%s  %s", quote.Symbol, models.FormatUSD(quote.Price))
	if !quote.Change.IsZero() || !quote.ChangePct.IsZero() {
		fmt.Printf("  %s (%s%%)", quote.Change.StringFixed(2), quote.ChangePct.StringFixed(2))
	}
	if quote.Source != "" {
		fmt.Printf("  [%s]", quote.Source)
	}
	fmt.Println()
	return nil
}
