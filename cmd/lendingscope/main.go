package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/lendingscope/types"
	"github.com/ethpandaops/lendingscope/utils"
)

var (
	configPath string
	logWriter  *utils.LogWriter
	logger     *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lendingscope",
	Short: "Aave V3 reserve parameter fetcher",
	Long:  "Fetches, decodes and validates Aave V3 reserve parameters from many EVM networks over plain JSON-RPC",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := &types.Config{}
		if err := utils.ReadConfig(cfg, configPath); err != nil {
			return err
		}
		utils.Config = cfg
		logWriter, logger = utils.InitLogger()
		logger.WithFields(logrus.Fields{
			"config":  configPath,
			"version": utils.GetBuildVersion(),
		}).Debugf("starting %v", cmd.Name())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logWriter != nil {
			logWriter.Dispose()
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the config file, if empty string defaults will be used")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
