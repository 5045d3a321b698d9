// Copyright 2020 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package cmd

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/snowfork/bridge-messages/chain/headerchain"
)

func headersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "headers",
		Short: "Manage the store of bridged chain headers",
	}

	cmd.AddCommand(importHeaderCmd())
	cmd.AddCommand(bestHeaderCmd())

	return cmd
}

func importHeaderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "import",
		Short:   "Import a bridged chain header",
		Args:    cobra.ExactArgs(0),
		Example: "bridge-messages headers import --config config.yaml --header header.json --finalized",
		RunE:    importHeaderFn,
	}

	cmd.Flags().String("header", "", "JSON file with the header")
	cmd.MarkFlagRequired("header")
	cmd.Flags().Bool("finalized", false, "Whether the header is finalized")

	return cmd
}

func bestHeaderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "best",
		Short: "Print the best finalized bridged chain header",
		Args:  cobra.ExactArgs(0),
		RunE:  bestHeaderFn,
	}
}

func importHeaderFn(cmd *cobra.Command, _ []string) error {
	headerFile, _ := cmd.Flags().GetString("header")
	finalized, _ := cmd.Flags().GetBool("finalized")

	var headerJSON headerchain.HeaderJSON
	err := readJSON(headerFile, &headerJSON)
	if err != nil {
		return err
	}
	header, err := headerJSON.Decode()
	if err != nil {
		return err
	}

	_, store, err := openHeaderStore()
	if err != nil {
		return err
	}
	defer store.Close()

	importHeader := store.ImportHeader
	if finalized {
		importHeader = store.ImportFinalizedHeader
	}

	hash, err := importHeader(header)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"hash":      hash.Hex(),
		"finalized": finalized,
	}).Info("Header imported")

	return nil
}

func bestHeaderFn(_ *cobra.Command, _ []string) error {
	_, store, err := openHeaderStore()
	if err != nil {
		return err
	}
	defer store.Close()

	header, err := store.BestFinalized()
	if err != nil {
		return err
	}

	return printJSON(headerchain.HeaderToJSON(header))
}
