// Copyright 2020 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/snowfork/bridge-messages/chain/headerchain"
	"github.com/snowfork/bridge-messages/config"
	"github.com/snowfork/bridge-messages/messages"
	"github.com/snowfork/bridge-messages/messages/source"
	"github.com/snowfork/bridge-messages/messages/target"
)

func boundsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "bounds",
		Short:   "Print message size and weight limits of both directions",
		Args:    cobra.ExactArgs(0),
		Example: "bridge-messages bounds --config config.yaml",
		RunE:    boundsFn,
	}
}

type bounds struct {
	// Messages sent to the bridged chain
	MaximalOutgoingMessageSize uint32 `json:"maximal_outgoing_message_size"`
	// Messages received from the bridged chain
	MaximalIncomingMessageSize           uint32          `json:"maximal_incoming_message_size"`
	MaximalIncomingMessageDispatchWeight messages.Weight `json:"maximal_incoming_message_dispatch_weight"`
	MaximalPendingMessages               uint64          `json:"maximal_pending_messages"`
}

func boundsFn(_ *cobra.Command, _ []string) error {
	conf, err := config.Load(configFile)
	if err != nil {
		return err
	}

	// bounds don't need headers
	store, err := headerchain.Open("")
	if err != nil {
		return err
	}
	defer store.Close()

	b, err := conf.Bridge(store)
	if err != nil {
		return err
	}

	return printJSON(bounds{
		MaximalOutgoingMessageSize:           source.MaximalMessageSize(b),
		MaximalIncomingMessageSize:           target.MaximalIncomingMessageSize(b.ThisChain.MaxExtrinsicSize()),
		MaximalIncomingMessageDispatchWeight: target.MaximalIncomingMessageDispatchWeight(b.ThisChain.MaxExtrinsicWeight()),
		MaximalPendingMessages:               b.ThisChain.MaximalPendingMessagesAtOutboundLane(),
	})
}
