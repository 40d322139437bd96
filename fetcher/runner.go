package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ethpandaops/lendingscope/clients/execution/rpc"
	"github.com/ethpandaops/lendingscope/ethabi"
	"github.com/ethpandaops/lendingscope/metrics"
	"github.com/ethpandaops/lendingscope/types"
	"github.com/ethpandaops/lendingscope/utils"
)

const minAssetFailureLimit = 5

type RunnerConfig struct {
	Workers            int
	MaxNetworkFailures int
	NetworkTimeout     time.Duration
	BatchSymbols       bool
	CheckChainID       bool
	Multicall          bool
}

// Runner fetches the reserves of many networks with a bounded number of
// networks in flight.
type Runner struct {
	fetcher *Fetcher
	config  RunnerConfig
	logger  logrus.FieldLogger
}

func NewRunner(fetcher *Fetcher, config RunnerConfig, logger logrus.FieldLogger) *Runner {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	return &Runner{
		fetcher: fetcher,
		config:  config,
		logger:  logger.WithField("module", "runner"),
	}
}

// assetFailureLimit is the number of failed assets a network tolerates.
func assetFailureLimit(assets int) int {
	limit := assets / 4
	if limit < minAssetFailureLimit {
		limit = minAssetFailureLimit
	}
	return limit
}

// FetchAll fetches every active network. Inactive networks and networks not
// started after MaxNetworkFailures failures are reported as skipped.
func (r *Runner) FetchAll(ctx context.Context, networks map[string]*types.NetworkConfig) *types.FetchReport {
	report := &types.FetchReport{
		StartedAt: time.Now(),
		Succeeded: []string{},
		Failed:    []string{},
		Skipped:   []string{},
		Networks:  map[string]*types.NetworkReport{},
	}
	reportMutex := sync.Mutex{}
	failures := 0

	addReport := func(netReport *types.NetworkReport) {
		reportMutex.Lock()
		defer reportMutex.Unlock()
		report.Networks[netReport.Network] = netReport
		switch netReport.Status {
		case types.NetworkSucceeded:
			report.Succeeded = append(report.Succeeded, netReport.Network)
		case types.NetworkFailed:
			report.Failed = append(report.Failed, netReport.Network)
			failures++
		case types.NetworkSkipped:
			report.Skipped = append(report.Skipped, netReport.Network)
		}
	}
	aborted := func() bool {
		reportMutex.Lock()
		defer reportMutex.Unlock()
		return r.config.MaxNetworkFailures > 0 && failures >= r.config.MaxNetworkFailures
	}

	for _, key := range utils.NetworkKeys(networks, false) {
		if !networks[key].IsActive() {
			addReport(skippedReport(key, networks[key], "network inactive"))
		}
	}

	group := errgroup.Group{}
	group.SetLimit(r.config.Workers)
	for _, key := range utils.NetworkKeys(networks, true) {
		network := networks[key]
		group.Go(func() error {
			reported := false
			defer utils.HandleSubroutinePanic("runner.fetchNetwork", func(err interface{}) {
				if !reported {
					addReport(failedReport(key, network, fmt.Sprintf("panic: %v", err)))
				}
			})

			var netReport *types.NetworkReport
			switch {
			case aborted():
				netReport = skippedReport(key, network, fmt.Sprintf("aborted after %v network failures", r.config.MaxNetworkFailures))
			case ctx.Err() != nil:
				netReport = skippedReport(key, network, ctx.Err().Error())
			default:
				netReport = r.FetchNetwork(ctx, key, network)
			}
			reported = true
			addReport(netReport)
			return nil
		})
	}
	group.Wait()

	report.FinishedAt = time.Now()
	r.logger.Infof("fetch finished: %v succeeded, %v failed, %v skipped", len(report.Succeeded), len(report.Failed), len(report.Skipped))
	return report
}

func skippedReport(key string, network *types.NetworkConfig, reason string) *types.NetworkReport {
	return statusReport(key, network, types.NetworkSkipped, reason)
}

func failedReport(key string, network *types.NetworkConfig, reason string) *types.NetworkReport {
	return statusReport(key, network, types.NetworkFailed, reason)
}

func statusReport(key string, network *types.NetworkConfig, status types.NetworkStatus, reason string) *types.NetworkReport {
	return &types.NetworkReport{
		Network:  key,
		Name:     network.Name,
		ChainID:  network.ChainID,
		Status:   status,
		Error:    reason,
		Reserves: []*types.ReserveRecord{},
	}
}

// FetchNetwork fetches all reserves of one network. Failing assets are
// counted and skipped until the network's failure limit is reached.
func (r *Runner) FetchNetwork(ctx context.Context, key string, network *types.NetworkConfig) *types.NetworkReport {
	start := time.Now()
	netReport := &types.NetworkReport{
		Network:  key,
		Name:     network.Name,
		ChainID:  network.ChainID,
		Reserves: []*types.ReserveRecord{},
	}
	logger := r.logger.WithField("network", key)

	err := r.fetchNetwork(ctx, key, network, netReport, logger)
	netReport.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		netReport.Status = types.NetworkFailed
		netReport.Error = err.Error()
		logger.Errorf("network fetch failed after %v: %v", time.Since(start), err)
	} else {
		netReport.Status = types.NetworkSucceeded
		logger.Infof("fetched %v/%v reserves in %v", netReport.AssetsFetched, netReport.AssetsTotal, time.Since(start))
	}
	metrics.ObserveNetwork(key, string(netReport.Status), time.Since(start))
	return netReport
}

func (r *Runner) fetchNetwork(ctx context.Context, key string, network *types.NetworkConfig, netReport *types.NetworkReport, logger logrus.FieldLogger) error {
	if r.config.NetworkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.NetworkTimeout)
		defer cancel()
	}

	layout, err := ethabi.ParseReserveLayout(network.Layout)
	if err != nil {
		return err
	}
	if !common.IsHexAddress(network.Pool) {
		return fmt.Errorf("invalid pool address %q", network.Pool)
	}
	pool := common.HexToAddress(network.Pool)
	contract := pool
	if layout == ethabi.LayoutDataProvider {
		if !common.IsHexAddress(network.PoolDataProvider) {
			return fmt.Errorf("invalid pool data provider address %q", network.PoolDataProvider)
		}
		contract = common.HexToAddress(network.PoolDataProvider)
	}

	endpoints := rpc.EndpointSet{
		Primary:   network.Rpc,
		Fallbacks: network.RpcFallback,
	}
	fetcher := r.fetcher.WithNetwork(key)

	if r.config.CheckChainID {
		if err := fetcher.CheckConnectivity(ctx, endpoints, network.ChainID); err != nil {
			return err
		}
	}

	reserves, err := fetcher.GetReserves(ctx, pool, endpoints)
	if err != nil {
		return err
	}
	netReport.AssetsTotal = len(reserves)

	assets := r.fetchAggregated(ctx, key, network, fetcher, reserves, contract, endpoints, layout, logger)
	if assets == nil {
		assets = r.fetchSymbols(ctx, fetcher, reserves, endpoints)
	}

	failureLimit := assetFailureLimit(len(reserves))
	for idx, asset := range reserves {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		record := assets[idx].Record
		var err error
		if record == nil {
			if assets[idx].Err != nil {
				logger.Debugf("aggregated reserve data of %v unusable, fetching directly: %v", asset.Hex(), assets[idx].Err)
			}
			record, err = fetcher.GetReserveData(ctx, asset, contract, endpoints, layout)
		}
		if err != nil {
			netReport.AssetsFailed++
			metrics.ObserveAsset(key, "failed")
			logger.Warnf("failed to fetch reserve %v (%v): %v", assets[idx].Symbol.Symbol, asset.Hex(), err)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			if netReport.AssetsFailed >= failureLimit {
				return fmt.Errorf("too many failed assets (%v of %v)", netReport.AssetsFailed, len(reserves))
			}
			continue
		}

		record.Symbol = assets[idx].Symbol.Symbol
		record.SymbolSource = assets[idx].Symbol.Reason.String()
		netReport.Reserves = append(netReport.Reserves, record)
		netReport.AssetsFetched++
		metrics.ObserveAsset(key, "ok")
	}
	return nil
}

// fetchAggregated reads all assets of a network with one Multicall3 call. It
// returns nil when aggregated fetching is disabled or failed.
func (r *Runner) fetchAggregated(ctx context.Context, key string, network *types.NetworkConfig, fetcher *Fetcher, reserves []common.Address, contract common.Address, endpoints rpc.EndpointSet, layout ethabi.ReserveLayout, logger logrus.FieldLogger) []AssetResult {
	if !r.config.Multicall {
		return nil
	}
	multicall, ok := MulticallAddress(network)
	if !ok {
		return nil
	}

	assets, err := fetcher.GetAssetsMulticall(ctx, multicall, reserves, contract, endpoints, layout)
	if err != nil {
		metrics.ObserveMulticall(key, "failed")
		logger.Warnf("multicall fetch failed, falling back to single calls: %v", err)
		return nil
	}
	metrics.ObserveMulticall(key, "ok")
	logger.Debugf("fetched %v assets with one aggregate3 call", len(assets))
	return assets
}

func (r *Runner) fetchSymbols(ctx context.Context, fetcher *Fetcher, reserves []common.Address, endpoints rpc.EndpointSet) []AssetResult {
	var symbols []SymbolResult
	if r.config.BatchSymbols {
		symbols = fetcher.GetAssetSymbols(ctx, reserves, endpoints)
	} else {
		symbols = make([]SymbolResult, len(reserves))
		for idx, asset := range reserves {
			symbols[idx] = fetcher.GetAssetSymbol(ctx, asset, endpoints)
		}
	}

	assets := make([]AssetResult, len(reserves))
	for idx, asset := range reserves {
		assets[idx] = AssetResult{Asset: asset, Symbol: symbols[idx]}
	}
	return assets
}
