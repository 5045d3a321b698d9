// Copyright 2020 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package cmd

import (
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/snowfork/bridge-messages/chain/headerchain"
	"github.com/snowfork/bridge-messages/config"
)

var configFile string
var logLevel string

var rootCmd = &cobra.Command{
	Use:               "bridge-messages",
	Short:             "Verifies message lane proofs of a bridge between two chains",
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(headersCmd())
	rootCmd.AddCommand(boundsCmd())
	rootCmd.AddCommand(generateCmd())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(_ *cobra.Command, _ []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	log.SetOutput(logrus.WithFields(logrus.Fields{"logger": "stdlib"}).WriterLevel(logrus.InfoLevel))
	return nil
}

// openHeaderStore loads the configuration and opens the header store it points to.
func openHeaderStore() (*config.Config, *headerchain.Store, error) {
	conf, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}

	store, err := headerchain.Open(conf.HeaderStore.Path)
	if err != nil {
		return nil, nil, err
	}

	return conf, store, nil
}
