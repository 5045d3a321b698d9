// Copyright 2020 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/snowfork/go-substrate-rpc-client/v4/types"
	"github.com/spf13/cobra"

	"github.com/snowfork/bridge-messages/chain/headerchain"
	"github.com/snowfork/bridge-messages/config"
	"github.com/snowfork/bridge-messages/messages"
	"github.com/snowfork/bridge-messages/messages/generation"
	"github.com/snowfork/bridge-messages/messages/source"
)

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate test fixtures",
	}

	cmd.AddCommand(generateProofCmd())
	cmd.AddCommand(generateDeliveryProofCmd())

	return cmd
}

func generateProofCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "proof",
		Short:   "Generate a messages proof together with the header it is verified against",
		Args:    cobra.ExactArgs(0),
		Example: "bridge-messages generate proof --lane 0x00000001 --nonces-end 10 --lane-state --out fixtures",
		RunE:    generateProofFn,
	}

	cmd.Flags().String("pallet", "BridgeMessages", "Name of the messages pallet")
	cmd.Flags().String("lane", "0x00000000", "Lane id")
	cmd.Flags().Uint64("nonces-start", 1, "Nonce of the first message")
	cmd.Flags().Uint64("nonces-end", 0, "Nonce of the last message")
	cmd.Flags().String("payload", "0x2a", "Hex encoded payload of every message")
	cmd.Flags().String("program", "", "Hex encoded program. When set, the payload is built by the sender of --config")
	cmd.Flags().String("destination", "", "Hex encoded destination of the program")
	cmd.Flags().Bool("lane-state", false, "Also prove the outbound lane state")
	cmd.Flags().Uint32("header-number", 1, "Number of the generated header")
	cmd.Flags().String("out", ".", "Output directory")

	return cmd
}

func generateDeliveryProofCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delivery-proof",
		Short:   "Generate a messages delivery proof together with the header it is verified against",
		Args:    cobra.ExactArgs(0),
		Example: "bridge-messages generate delivery-proof --lane 0x00000001 --delivered 10 --out fixtures",
		RunE:    generateDeliveryProofFn,
	}

	cmd.Flags().String("pallet", "BridgeMessages", "Name of the messages pallet")
	cmd.Flags().String("lane", "0x00000000", "Lane id")
	cmd.Flags().String("relayer", "0x0000000000000000000000000000000000000000000000000000000000000000", "Account of the relayer that has delivered the messages")
	cmd.Flags().Uint64("confirmed", 0, "Nonce of the last confirmed message")
	cmd.Flags().Uint64("delivered", 1, "Nonce of the last delivered message")
	cmd.Flags().Uint32("header-number", 1, "Number of the generated header")
	cmd.Flags().String("out", ".", "Output directory")

	return cmd
}

func writeJSON(dir, name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, name)
	err = os.WriteFile(path, data, 0o644)
	if err != nil {
		return err
	}
	log.WithField("path", path).Info("Written")
	return nil
}

func fixtureHeader(number uint32, root types.Hash) (*types.Header, types.Hash, error) {
	header := &types.Header{
		Number:    types.BlockNumber(number),
		StateRoot: root,
		Digest:    types.Digest{},
	}
	hash, err := headerchain.HeaderHash(header)
	if err != nil {
		return nil, types.Hash{}, err
	}
	return header, hash, nil
}

// senderPayload wraps the program into a message payload the way the
// configured sender does, so that the message passes the outbound checks.
func senderPayload(conf *config.Config, destination, program []byte) (messages.MessagePayload, error) {
	store, err := headerchain.Open("")
	if err != nil {
		return nil, err
	}
	defer store.Close()

	b, err := conf.Bridge(store)
	if err != nil {
		return nil, err
	}
	senderConfig, err := conf.Sender.SenderConfig()
	if err != nil {
		return nil, err
	}

	sender := source.NewSender(senderConfig, b, messages.NoopMessagesBridge{})
	ticket, fee, err := sender.Validate(destination, program)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"lane": senderConfig.Lane,
		"fee":  fee,
		"size": len(ticket.Payload),
	}).Info("Built message payload")

	return ticket.Payload, nil
}

func generateProofFn(cmd *cobra.Command, _ []string) error {
	pallet, _ := cmd.Flags().GetString("pallet")
	laneID, _ := cmd.Flags().GetString("lane")
	noncesStart, _ := cmd.Flags().GetUint64("nonces-start")
	noncesEnd, _ := cmd.Flags().GetUint64("nonces-end")
	payloadHex, _ := cmd.Flags().GetString("payload")
	programHex, _ := cmd.Flags().GetString("program")
	destinationHex, _ := cmd.Flags().GetString("destination")
	withLaneState, _ := cmd.Flags().GetBool("lane-state")
	headerNumber, _ := cmd.Flags().GetUint32("header-number")
	out, _ := cmd.Flags().GetString("out")

	lane, err := messages.ParseLaneID(laneID)
	if err != nil {
		return err
	}
	payload, err := types.HexDecodeString(payloadHex)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	if programHex != "" {
		program, err := types.HexDecodeString(programHex)
		if err != nil {
			return fmt.Errorf("decode program: %w", err)
		}
		destination, err := types.HexDecodeString(destinationHex)
		if err != nil {
			return fmt.Errorf("decode destination: %w", err)
		}

		conf, err := config.Load(configFile)
		if err != nil {
			return err
		}
		payload, err = senderPayload(conf, destination, program)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("lane") {
			lane = conf.Sender.Lane
		}
	}

	var laneState *messages.OutboundLaneData
	if withLaneState {
		laneState = &messages.OutboundLaneData{
			OldestUnprunedNonce:  noncesStart,
			LatestReceivedNonce:  messages.SaturatingSub(noncesStart, 1),
			LatestGeneratedNonce: noncesEnd,
		}
	}

	root, storageProof, err := generation.PrepareMessagesStorageProof(&generation.MessagesProofParams{
		PalletName:       pallet,
		Lane:             lane,
		Nonces:           messages.NonceRange{Begin: noncesStart, End: noncesEnd},
		OutboundLaneData: laneState,
		Payload:          payload,
	})
	if err != nil {
		return err
	}

	header, hash, err := fixtureHeader(headerNumber, types.Hash(root))
	if err != nil {
		return err
	}

	proof := &messages.FromBridgedChainMessagesProof{
		BridgedHeaderHash: hash,
		StorageProof:      storageProof,
		Lane:              lane,
		NoncesStart:       noncesStart,
		NoncesEnd:         noncesEnd,
	}

	err = writeJSON(out, "header.json", headerchain.HeaderToJSON(header))
	if err != nil {
		return err
	}
	return writeJSON(out, "proof.json", proof.ToJSON())
}

func generateDeliveryProofFn(cmd *cobra.Command, _ []string) error {
	pallet, _ := cmd.Flags().GetString("pallet")
	laneID, _ := cmd.Flags().GetString("lane")
	relayerHex, _ := cmd.Flags().GetString("relayer")
	confirmed, _ := cmd.Flags().GetUint64("confirmed")
	delivered, _ := cmd.Flags().GetUint64("delivered")
	headerNumber, _ := cmd.Flags().GetUint32("header-number")
	out, _ := cmd.Flags().GetString("out")

	lane, err := messages.ParseLaneID(laneID)
	if err != nil {
		return err
	}
	relayerBytes, err := types.HexDecodeString(relayerHex)
	if err != nil {
		return fmt.Errorf("decode relayer: %w", err)
	}
	var relayer messages.AccountID
	copy(relayer[:], relayerBytes)

	data := &messages.InboundLaneData{LastConfirmedNonce: confirmed}
	if delivered > confirmed {
		data.Relayers = []messages.UnrewardedRelayer{{
			Relayer:  relayer,
			Messages: messages.DeliveredMessages{Begin: confirmed + 1, End: delivered},
		}}
	}

	root, storageProof, err := generation.PrepareMessagesDeliveryStorageProof(pallet, lane, data)
	if err != nil {
		return err
	}

	header, hash, err := fixtureHeader(headerNumber, types.Hash(root))
	if err != nil {
		return err
	}

	proof := &messages.FromBridgedChainMessagesDeliveryProof{
		BridgedHeaderHash: hash,
		StorageProof:      storageProof,
		Lane:              lane,
	}

	err = writeJSON(out, "header.json", headerchain.HeaderToJSON(header))
	if err != nil {
		return err
	}
	return writeJSON(out, "delivery-proof.json", proof.ToJSON())
}
