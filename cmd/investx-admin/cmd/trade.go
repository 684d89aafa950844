package cmd

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rtirumala2025/investx/internal/models"
)

var tradeCmd = &cobra.Command{
	Use:   "trade",
	Short: "Place trades on a user's behalf",
	Long: `Place trades on a user's behalf through the same execution pipeline
the API uses. Omit --price to fill from the quote service.

Examples:
  investx-admin trade buy user123 AAPL 10
  investx-admin trade buy user123 BTC 0.05 --asset-type crypto
  investx-admin trade sell user123 AAPL 4 --price 160.00`,
}

var tradeBuyCmd = &cobra.Command{
	Use:   "buy <user-id> <symbol> <shares>",
	Short: "Buy shares for a user",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrade(models.TransactionBuy, args)
	},
}

var tradeSellCmd = &cobra.Command{
	Use:   "sell <user-id> <symbol> <shares>",
	Short: "Sell shares for a user",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrade(models.TransactionSell, args)
	},
}

var (
	tradePrice     string
	tradeAssetType string
)

func init() {
	rootCmd.AddCommand(tradeCmd)
	tradeCmd.AddCommand(tradeBuyCmd)
	tradeCmd.AddCommand(tradeSellCmd)

	tradeCmd.PersistentFlags().StringVar(&tradePrice, "price", "", "limit price (default: current quote)")
	tradeCmd.PersistentFlags().StringVar(&tradeAssetType, "asset-type", "stock", "asset type: stock, etf, or crypto")
}

func runTrade(side models.TransactionType, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	shares, err := decimal.NewFromString(args[2])
	if err != nil {
		return fmt.Errorf("invalid shares %q: %w", args[2], err)
	}

	price := decimal.Zero
	if tradePrice != "" {
		price, err = models.ParseMoney(tradePrice)
		if err != nil {
			return err
		}
	}

	req := &models.TradeRequest{
		UserID:    args[0],
		Side:      side,
		Symbol:    args[1],
		AssetType: models.NormalizeAssetType(tradeAssetType),
		Shares:    shares,
		Price:     price,
	}

	result, err := a.TradeService.Execute(context.Background(), req)
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}

	fmt.Printf("%s %s %s @ %s\n", result.Side, result.Shares.String(), result.Symbol, models.FormatUSD(result.Price))
	fmt.Printf("  notional  %s\n", models.FormatUSD(result.Notional))
	fmt.Printf("  fee       %s\n", models.FormatUSD(result.Fee))
	if side == models.TransactionBuy {
		fmt.Printf("  total     %s\n", models.FormatUSD(result.TotalCost))
	} else {
		fmt.Printf("  proceeds  %s\n", models.FormatUSD(result.Proceeds))
		if result.RealizedGainLoss != nil {
			fmt.Printf("  realized  %s\n", models.FormatUSD(*result.RealizedGainLoss))
		}
	}
	fmt.Printf("  cash      %s\n", models.FormatUSD(result.CashBalance))
	fmt.Printf("  txn       %s\n", result.TransactionID)
	for _, w := range result.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}
