package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/lendingscope/utils"
)

var symbolCmd = &cobra.Command{
	Use:   "symbol <network> <address>...",
	Short: "Look up token symbols",
	Long:  "Look up the ERC20 symbols of one or more token addresses on a network",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSymbol(args[0], args[1:])
	},
}

func init() {
	rootCmd.AddCommand(symbolCmd)
}

func runSymbol(networkKey string, addresses []string) error {
	cfg := utils.Config
	network, err := lookupNetwork(cfg, networkKey)
	if err != nil {
		return err
	}

	assets := make([]common.Address, len(addresses))
	for idx, address := range addresses {
		if !common.IsHexAddress(address) {
			return fmt.Errorf("invalid address %q", address)
		}
		assets[idx] = common.HexToAddress(address)
	}

	ctx, cancel := utils.SignalContext(context.Background())
	defer cancel()

	f := newFetcher(cfg, nil, logger).WithNetwork(networkKey)
	for idx, res := range f.GetAssetSymbols(ctx, assets, endpointsOf(network)) {
		if res.OK() {
			fmt.Printf("%v\t%v\n", assets[idx].Hex(), res.Symbol)
		} else {
			fmt.Printf("%v\t%v\t(%v)\n", assets[idx].Hex(), res.Symbol, res.Reason)
		}
	}
	return nil
}
