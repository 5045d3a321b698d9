// Copyright 2020 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/snowfork/go-substrate-rpc-client/v4/types"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/snowfork/bridge-messages/bridge"
	"github.com/snowfork/bridge-messages/messages"
	"github.com/snowfork/bridge-messages/messages/source"
	"github.com/snowfork/bridge-messages/messages/target"
)

func verifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify proofs submitted by relayers",
	}

	cmd.AddCommand(verifyMessagesCmd())
	cmd.AddCommand(verifyDeliveryCmd())
	cmd.AddCommand(verifyBatchCmd())

	return cmd
}

func verifyMessagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "messages",
		Short:   "Verify a proof of messages sent by the bridged chain",
		Args:    cobra.ExactArgs(0),
		Example: "bridge-messages verify messages --config config.yaml --proof proof.json --count 10",
		RunE:    verifyMessagesFn,
	}

	cmd.Flags().String("proof", "", "JSON file with the messages proof")
	cmd.MarkFlagRequired("proof")
	cmd.Flags().Uint32("count", 0, "Number of messages declared by the relayer")

	return cmd
}

func verifyDeliveryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delivery",
		Short:   "Verify a proof of messages delivery to the bridged chain",
		Args:    cobra.ExactArgs(0),
		Example: "bridge-messages verify delivery --config config.yaml --proof delivery.json",
		RunE:    verifyDeliveryFn,
	}

	cmd.Flags().String("proof", "", "JSON file with the messages delivery proof")
	cmd.MarkFlagRequired("proof")

	return cmd
}

func verifyBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "batch",
		Short:   "Verify messages proofs of independent lanes concurrently",
		Args:    cobra.ExactArgs(0),
		Example: "bridge-messages verify batch --config config.yaml --batch batch.json",
		RunE:    verifyBatchFn,
	}

	cmd.Flags().String("batch", "", "JSON file with a list of messages proofs and their declared counts")
	cmd.MarkFlagRequired("batch")

	return cmd
}

// BatchEntry is a single proof of a verification batch.
type BatchEntry struct {
	MessagesCount uint32                     `json:"messages_count"`
	Proof         messages.MessagesProofJSON `json:"proof"`
}

type provedMessageJSON struct {
	Nonce   uint64 `json:"nonce"`
	Payload string `json:"payload"`
}

type provedLaneJSON struct {
	Lane      string                     `json:"lane"`
	LaneState *messages.OutboundLaneData `json:"lane_state,omitempty"`
	Messages  []provedMessageJSON        `json:"messages"`
}

type inboundLaneJSON struct {
	Lane               string   `json:"lane"`
	LastConfirmedNonce uint64   `json:"last_confirmed_nonce"`
	LastDeliveredNonce uint64   `json:"last_delivered_nonce"`
	Relayers           []string `json:"relayers"`
}

func readJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	err = json.Unmarshal(data, out)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func provedToJSON(proved messages.ProvedMessages) []provedLaneJSON {
	result := make([]provedLaneJSON, 0, len(proved))
	for lane, laneMessages := range proved {
		entry := provedLaneJSON{
			Lane:      lane.String(),
			LaneState: laneMessages.LaneState,
			Messages:  make([]provedMessageJSON, len(laneMessages.Messages)),
		}
		for i, message := range laneMessages.Messages {
			entry.Messages[i] = provedMessageJSON{
				Nonce:   message.Key.Nonce,
				Payload: types.HexEncodeToString(message.Payload),
			}
		}
		result = append(result, entry)
	}
	return result
}

func openBridge() (*bridge.MessageBridge, func(), error) {
	conf, store, err := openHeaderStore()
	if err != nil {
		return nil, nil, err
	}

	b, err := conf.Bridge(store)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	return b, func() { store.Close() }, nil
}

func verifyMessagesFn(cmd *cobra.Command, _ []string) error {
	proofFile, _ := cmd.Flags().GetString("proof")
	count, _ := cmd.Flags().GetUint32("count")

	var proofJSON messages.MessagesProofJSON
	err := readJSON(proofFile, &proofJSON)
	if err != nil {
		return err
	}
	proof, err := proofJSON.Decode()
	if err != nil {
		return err
	}

	b, closeStore, err := openBridge()
	if err != nil {
		return err
	}
	defer closeStore()

	proved, err := target.VerifyMessagesProof(b, proof, count)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"lane":        proof.Lane,
			"noncesStart": proof.NoncesStart,
			"noncesEnd":   proof.NoncesEnd,
		}).Error("Messages proof is rejected")
		return err
	}

	return printJSON(provedToJSON(proved))
}

func verifyDeliveryFn(cmd *cobra.Command, _ []string) error {
	proofFile, _ := cmd.Flags().GetString("proof")

	var proofJSON messages.DeliveryProofJSON
	err := readJSON(proofFile, &proofJSON)
	if err != nil {
		return err
	}
	proof, err := proofJSON.Decode()
	if err != nil {
		return err
	}

	b, closeStore, err := openBridge()
	if err != nil {
		return err
	}
	defer closeStore()

	lane, data, err := source.VerifyMessagesDeliveryProof(b, proof)
	if err != nil {
		log.WithError(err).WithField("lane", proof.Lane).Error("Messages delivery proof is rejected")
		return err
	}

	relayers := make([]string, len(data.Relayers))
	for i, relayer := range data.Relayers {
		relayers[i] = fmt.Sprintf("%s:%d-%d", relayer.Relayer.Hex(), relayer.Messages.Begin, relayer.Messages.End)
	}

	return printJSON(inboundLaneJSON{
		Lane:               lane.String(),
		LastConfirmedNonce: data.LastConfirmedNonce,
		LastDeliveredNonce: data.LastDeliveredNonce(),
		Relayers:           relayers,
	})
}

func verifyBatchFn(cmd *cobra.Command, _ []string) error {
	batchFile, _ := cmd.Flags().GetString("batch")

	var batch []BatchEntry
	err := readJSON(batchFile, &batch)
	if err != nil {
		return err
	}

	b, closeStore, err := openBridge()
	if err != nil {
		return err
	}
	defer closeStore()

	results, err := verifyBatch(cmd.Context(), b, batch)
	if err != nil {
		return err
	}

	var lanes []provedLaneJSON
	for _, proved := range results {
		lanes = append(lanes, provedToJSON(proved)...)
	}
	return printJSON(lanes)
}

// verifyBatch verifies every proof of the batch. The whole batch is rejected
// if any of its proofs is.
func verifyBatch(ctx context.Context, b *bridge.MessageBridge, batch []BatchEntry) ([]messages.ProvedMessages, error) {
	results := make([]messages.ProvedMessages, len(batch))

	eg, ctx := errgroup.WithContext(ctx)
	for i, entry := range batch {
		i, entry := i, entry
		eg.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			proof, err := entry.Proof.Decode()
			if err != nil {
				return fmt.Errorf("proof %d: %w", i, err)
			}

			proved, err := target.VerifyMessagesProof(b, proof, entry.MessagesCount)
			if err != nil {
				return fmt.Errorf("proof %d of lane %s: %w", i, proof.Lane, err)
			}

			log.WithFields(log.Fields{
				"lane":     proof.Lane,
				"messages": len(proved[proof.Lane].Messages),
			}).Info("Messages proof is accepted")

			results[i] = proved
			return nil
		})
	}

	err := eg.Wait()
	if err != nil {
		return nil, err
	}
	return results, nil
}
