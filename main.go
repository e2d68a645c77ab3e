package main

import (
	"os"

	"github.com/go-i2p/go-icp/lib/config"
	"github.com/go-i2p/logger"
	"github.com/spf13/cobra"
)

var log = logger.GetGoI2PLogger()

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "icpd",
		Short:         "Internet Cache Protocol daemon and client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&config.CfgFile, "config", "", "config file (default $HOME/.go-icp/config.yaml)")
	root.AddCommand(newServeCommand(), newQueryCommand(), newConfigCommand())
	return root
}

func main() {
	cobra.OnInitialize(config.InitConfig)
	if err := newRootCommand().Execute(); err != nil {
		log.WithError(err).Error("icpd failed")
		os.Exit(1)
	}
}
