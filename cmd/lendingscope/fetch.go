package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/lendingscope/fetcher"
	"github.com/ethpandaops/lendingscope/metrics"
	"github.com/ethpandaops/lendingscope/types"
	"github.com/ethpandaops/lendingscope/utils"
	"github.com/ethpandaops/lendingscope/validation"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch the reserves of all active networks",
	Long:  "Fetch the reserve parameters of all active networks, validate them and write them to a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFetch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringSliceP("network", "n", []string{}, "Only fetch these networks (default: all active networks)")
	fetchCmd.Flags().StringP("output", "o", "", "Output file (default: fetcher.outputPath from config, '-' for stdout)")
	fetchCmd.Flags().IntP("workers", "w", 0, "Number of networks fetched in parallel (default: fetcher.workers from config)")
	fetchCmd.Flags().Bool("no-validate", false, "Skip validation of the fetched data")
}

type fetchMetadata struct {
	GeneratedAt     time.Time `json:"generated_at"`
	Version         string    `json:"version"`
	TotalNetworks   int       `json:"total_networks"`
	TotalAssets     int       `json:"total_assets"`
	NetworksFetched int       `json:"networks_fetched"`
	NetworksFailed  int       `json:"networks_failed"`
	NetworksSkipped int       `json:"networks_skipped"`
}

type fetchOutput struct {
	Metadata   fetchMetadata                     `json:"metadata"`
	Networks   map[string][]*types.ReserveRecord `json:"networks"`
	Report     *types.FetchReport                `json:"fetch_report"`
	Validation *validation.Result                `json:"validation,omitempty"`
}

func selectNetworks(cfg *types.Config, keys []string) (map[string]*types.NetworkConfig, error) {
	if len(keys) == 0 {
		return cfg.Networks, nil
	}
	selected := map[string]*types.NetworkConfig{}
	for _, key := range keys {
		network, err := lookupNetwork(cfg, key)
		if err != nil {
			return nil, err
		}
		selected[key] = network
	}
	return selected, nil
}

func runFetch(cmd *cobra.Command) error {
	cfg := utils.Config
	networkKeys, _ := cmd.Flags().GetStringSlice("network")
	outputPath, _ := cmd.Flags().GetString("output")
	workers, _ := cmd.Flags().GetInt("workers")
	noValidate, _ := cmd.Flags().GetBool("no-validate")

	if outputPath == "" {
		outputPath = cfg.Fetcher.OutputPath
	}
	if workers <= 0 {
		workers = cfg.Fetcher.Workers
	}

	networks, err := selectNetworks(cfg, networkKeys)
	if err != nil {
		return err
	}
	if invalid := validation.ValidateNetworks(networks); len(invalid) > 0 {
		for key, problems := range invalid {
			logger.WithField("network", key).Warnf("network config problems: %v", problems)
		}
	}

	ctx, cancel := utils.SignalContext(context.Background())
	defer cancel()

	if cfg.Metrics.Enabled {
		if err := metrics.StartMetricsServer(ctx, logger.WithField("module", "metrics"), cfg.Metrics.Host, cfg.Metrics.Port); err != nil {
			return fmt.Errorf("error starting metrics server: %w", err)
		}
	}

	responseCache := newCache(cfg, logger)
	if responseCache != nil {
		defer responseCache.Close()
	}

	runner := fetcher.NewRunner(newFetcher(cfg, responseCache, logger), fetcher.RunnerConfig{
		Workers:            workers,
		MaxNetworkFailures: cfg.Fetcher.MaxNetworkFailures,
		NetworkTimeout:     cfg.Fetcher.NetworkTimeout,
		BatchSymbols:       cfg.Fetcher.BatchSymbols,
		CheckChainID:       cfg.Fetcher.CheckChainID,
		Multicall:          cfg.Fetcher.Multicall,
	}, logger)
	report := runner.FetchAll(ctx, networks)

	output := &fetchOutput{
		Networks: map[string][]*types.ReserveRecord{},
		Report:   report,
	}
	for _, key := range report.Succeeded {
		output.Networks[key] = report.Networks[key].Reserves
		output.Metadata.TotalAssets += len(report.Networks[key].Reserves)
	}
	output.Metadata.GeneratedAt = time.Now().UTC()
	output.Metadata.Version = utils.GetBuildVersion()
	output.Metadata.TotalNetworks = len(output.Networks)
	output.Metadata.NetworksFetched = len(report.Succeeded)
	output.Metadata.NetworksFailed = len(report.Failed)
	output.Metadata.NetworksSkipped = len(report.Skipped)

	if cfg.Fetcher.Validate && !noValidate && len(output.Networks) > 0 {
		known, err := validation.LoadKnownValues(cfg.Fetcher.KnownValuesPath)
		if err != nil {
			return err
		}
		output.Validation = validation.NewValidator(known, cfg.Networks, logger).WithMaxDataAge(cfg.Fetcher.MaxDataAge).Validate(output.Networks)
		for _, msg := range output.Validation.Errors {
			logger.Error(msg)
		}
		for _, msg := range output.Validation.Warnings {
			logger.Warn(msg)
		}
	}

	if err := writeJSON(outputPath, output); err != nil {
		return err
	}
	logger.Infof("wrote %v reserves of %v networks to %v", output.Metadata.TotalAssets, output.Metadata.TotalNetworks, outputPath)

	if len(report.Succeeded) == 0 {
		return fmt.Errorf("no network could be fetched (%v failed, %v skipped)", len(report.Failed), len(report.Skipped))
	}
	return nil
}

func writeJSON(path string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding output: %w", err)
	}
	data = append(data, '\n')

	if path == "-" || path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing %v: %w", path, err)
	}
	return nil
}
