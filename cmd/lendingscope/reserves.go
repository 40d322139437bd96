package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/lendingscope/fetcher"
	"github.com/ethpandaops/lendingscope/types"
	"github.com/ethpandaops/lendingscope/utils"
)

var reservesCmd = &cobra.Command{
	Use:   "reserves <network>",
	Short: "Fetch the reserves of one network",
	Long:  "Fetch the reserve parameters of a single network and print them as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReserves(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(reservesCmd)

	reservesCmd.Flags().StringP("output", "o", "-", "Output file, '-' for stdout")
	reservesCmd.Flags().Bool("table", false, "Print a reserve summary table instead of JSON")
}

func runReserves(cmd *cobra.Command, networkKey string) error {
	cfg := utils.Config
	outputPath, _ := cmd.Flags().GetString("output")
	table, _ := cmd.Flags().GetBool("table")

	network, err := lookupNetwork(cfg, networkKey)
	if err != nil {
		return err
	}

	ctx, cancel := utils.SignalContext(context.Background())
	defer cancel()

	runner := fetcher.NewRunner(newFetcher(cfg, nil, logger), fetcher.RunnerConfig{
		Workers:        1,
		NetworkTimeout: cfg.Fetcher.NetworkTimeout,
		BatchSymbols:   cfg.Fetcher.BatchSymbols,
		CheckChainID:   cfg.Fetcher.CheckChainID,
		Multicall:      cfg.Fetcher.Multicall,
	}, logger)
	report := runner.FetchNetwork(ctx, networkKey, network)

	if table {
		printReserveTable(report)
	} else if err := writeJSON(outputPath, report); err != nil {
		return err
	}
	if report.Error != "" {
		return fmt.Errorf("fetching %v failed: %v", networkKey, report.Error)
	}
	return nil
}

func printReserveTable(report *types.NetworkReport) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tLTV\tLT\tBONUS\tRF\tSUPPLY CAP\tBORROW CAP\tFLAGS")
	for _, r := range report.Reserves {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\t%v\t%v\n",
			r.Symbol,
			utils.FormatPercent(r.LoanToValue),
			utils.FormatPercent(r.LiquidationThreshold),
			utils.FormatPercent(r.LiquidationBonus),
			utils.FormatPercent(r.ReserveFactor),
			utils.FormatCap(r.SupplyCap, r.Symbol),
			utils.FormatCap(r.BorrowCap, r.Symbol),
			reserveFlags(r),
		)
	}
	w.Flush()
	fmt.Printf("%v: %v/%v assets fetched in %vms\n", report.Network, report.AssetsFetched, report.AssetsTotal, report.DurationMs)
}

func reserveFlags(r *types.ReserveRecord) string {
	flags := ""
	add := func(set bool, name string) {
		if !set {
			return
		}
		if flags != "" {
			flags += ","
		}
		flags += name
	}
	add(!r.Active, "inactive")
	add(r.Frozen, "frozen")
	add(r.Paused, "paused")
	add(r.BorrowingEnabled, "borrow")
	add(r.UsageAsCollateral, "collateral")
	add(r.FlashLoanEnabled, "flashloan")
	if flags == "" {
		return "-"
	}
	return flags
}
