package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/lendingscope/ethabi"
)

var selectorCmd = &cobra.Command{
	Use:   "selector <signature>...",
	Short: "Print function selectors",
	Long:  "Print the 4-byte Keccak-256 selectors of function signatures such as 'getReserveData(address)'",
	Args:  cobra.MinimumNArgs(1),
	// selectors need neither config nor logging
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		for _, signature := range args {
			fmt.Printf("%v\t%v\n", ethabi.MethodID(signature), signature)
		}
	},
}

func init() {
	rootCmd.AddCommand(selectorCmd)
}
