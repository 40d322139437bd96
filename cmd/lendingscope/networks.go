package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ethpandaops/lendingscope/utils"
	"github.com/ethpandaops/lendingscope/validation"
)

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List the configured networks",
	Long:  "List the configured Aave V3 networks, optionally validating their config and testing their RPC endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNetworks(cmd)
	},
}

func init() {
	rootCmd.AddCommand(networksCmd)

	networksCmd.Flags().BoolP("active", "a", false, "Only list active networks")
	networksCmd.Flags().Bool("validate", false, "Validate the network configs")
	networksCmd.Flags().Bool("check", false, "Check that each network's RPC endpoints serve the configured chain")
}

func runNetworks(cmd *cobra.Command) error {
	cfg := utils.Config
	activeOnly, _ := cmd.Flags().GetBool("active")
	validate, _ := cmd.Flags().GetBool("validate")
	check, _ := cmd.Flags().GetBool("check")

	keys := utils.NetworkKeys(cfg.Networks, activeOnly)

	var invalid map[string][]string
	if validate {
		invalid = validation.ValidateNetworks(cfg.Networks)
	}

	connectivity := make([]string, len(keys))
	if check {
		ctx, cancel := utils.SignalContext(context.Background())
		defer cancel()

		f := newFetcher(cfg, nil, logger)
		workers := cfg.Fetcher.Workers
		if workers < 1 {
			workers = 1
		}
		group := errgroup.Group{}
		group.SetLimit(workers)
		for idx, key := range keys {
			network := cfg.Networks[key]
			group.Go(func() error {
				if err := f.WithNetwork(key).CheckConnectivity(ctx, endpointsOf(network), network.ChainID); err != nil {
					connectivity[idx] = "unreachable: " + err.Error()
				} else {
					connectivity[idx] = "ok"
				}
				return nil
			})
		}
		group.Wait()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NETWORK\tNAME\tCHAIN ID\tACTIVE\tLAYOUT\tFALLBACKS\tSTATUS")
	for idx, key := range keys {
		network := cfg.Networks[key]
		layout := network.Layout
		if layout == "" {
			layout = "pool"
		}

		status := ""
		if problems, ok := invalid[key]; ok {
			status = fmt.Sprintf("invalid: %v", problems)
		} else if validate {
			status = "valid"
		}
		if connectivity[idx] != "" {
			if status != "" {
				status += ", "
			}
			status += connectivity[idx]
		}

		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\t%v\n", key, network.Name, network.ChainID, network.IsActive(), layout, len(network.RpcFallback), status)
	}
	w.Flush()

	if len(invalid) > 0 {
		return fmt.Errorf("%v networks have invalid configs", len(invalid))
	}
	return nil
}
