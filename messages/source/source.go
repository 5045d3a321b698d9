// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

// Package source verifies messages that are sent from this chain to the
// bridged chain, and proofs of their delivery.
package source

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/snowfork/bridge-messages/bridge"
	"github.com/snowfork/bridge-messages/chain/headerchain"
	"github.com/snowfork/bridge-messages/crypto/storageproof"
	"github.com/snowfork/bridge-messages/messages"
	"github.com/snowfork/bridge-messages/messages/target"
)

var (
	ErrMessageRejectedByOutboundLane = errors.New("the outbound message lane has rejected the message")
	ErrTooManyPendingMessages        = errors.New("too many pending messages at the lane")
)

// MaximalMessageSize is the maximal size of a message sent to the bridged
// chain. It is bounded by what the bridged chain is able to receive.
func MaximalMessageSize(b *bridge.MessageBridge) uint32 {
	return target.MaximalIncomingMessageSize(b.BridgedChain.MaxExtrinsicSize())
}

// VerifyChainMessage does the bridged chain specific checks of a message. A
// message that passes them may still be rejected by the lane.
func VerifyChainMessage(b *bridge.MessageBridge, payload messages.MessagePayload) error {
	if !b.BridgedChain.VerifyDispatchWeight(payload) {
		return messages.ErrInvalidMessageWeight
	}

	// the delivery transaction must fit into a bridged chain extrinsic
	if uint64(len(payload)) > uint64(MaximalMessageSize(b)) {
		return messages.ErrMessageTooLarge
	}

	return nil
}

// LaneVerifier decides whether a message may be queued at an outbound lane.
//
// For interface messages.LaneMessageVerifier
type LaneVerifier struct {
	bridge *bridge.MessageBridge
}

func NewLaneVerifier(b *bridge.MessageBridge) *LaneVerifier {
	return &LaneVerifier{bridge: b}
}

func (v *LaneVerifier) VerifyMessage(
	origin messages.RawOrigin,
	lane messages.LaneID,
	outbound *messages.OutboundLaneData,
	_ messages.MessagePayload,
) error {
	thisChain := v.bridge.ThisChain

	if !thisChain.IsMessageAccepted(origin, lane) {
		return ErrMessageRejectedByOutboundLane
	}

	if outbound.PendingMessages() > thisChain.MaximalPendingMessagesAtOutboundLane() {
		return ErrTooManyPendingMessages
	}

	return nil
}

// VerifyMessagesDeliveryProof returns the inbound lane state proved by a
// delivery proof. The proof has a single key, so any read failure is fatal.
func VerifyMessagesDeliveryProof(
	b *bridge.MessageBridge,
	proof *messages.FromBridgedChainMessagesDeliveryProof,
) (messages.LaneID, *messages.InboundLaneData, error) {
	lane := proof.Lane

	data, err := headerchain.ParseFinalizedStorageProof(
		b.BridgedHeaderChain,
		proof.BridgedHeaderHash,
		proof.StorageProof,
		func(checker *storageproof.Checker) (*messages.InboundLaneData, error) {
			key, err := messages.InboundLaneDataKey(b.BridgedMessagesPalletName, lane)
			if err != nil {
				return nil, messages.NewError(messages.InboundLaneStorage, err)
			}

			var data messages.InboundLaneData
			err = checker.ReadAndDecodeMandatoryValue(key, &data)
			if err != nil {
				return nil, messages.NewError(messages.InboundLaneStorage, err)
			}

			err = checker.EnsureNoUnusedNodes()
			if err != nil {
				return nil, messages.NewError(messages.StorageProof, err)
			}

			return &data, nil
		},
	)
	if err != nil {
		return lane, nil, messages.FromHeaderChain(err)
	}

	log.WithFields(log.Fields{
		"lane":               lane,
		"lastConfirmedNonce": data.LastConfirmedNonce,
		"lastDeliveredNonce": data.LastDeliveredNonce(),
		"relayers":           len(data.Relayers),
	}).Debug("Verified messages delivery proof")

	return lane, data, nil
}

// TargetHeaderChainAdapter verifies outbound messages and delivery proofs of the bridge.
type TargetHeaderChainAdapter struct {
	Bridge *bridge.MessageBridge
}

func NewTargetHeaderChainAdapter(b *bridge.MessageBridge) *TargetHeaderChainAdapter {
	return &TargetHeaderChainAdapter{Bridge: b}
}

func (a *TargetHeaderChainAdapter) VerifyMessage(payload messages.MessagePayload) error {
	return VerifyChainMessage(a.Bridge, payload)
}

func (a *TargetHeaderChainAdapter) VerifyMessagesDeliveryProof(
	proof *messages.FromBridgedChainMessagesDeliveryProof,
) (messages.LaneID, *messages.InboundLaneData, error) {
	return VerifyMessagesDeliveryProof(a.Bridge, proof)
}

// ForbidOutboundMessages is used on chains that only receive messages.
type ForbidOutboundMessages struct{}

func (ForbidOutboundMessages) VerifyMessage(messages.MessagePayload) error {
	return messages.ErrAllOutboundMessagesRejected
}

func (ForbidOutboundMessages) VerifyMessagesDeliveryProof(
	proof *messages.FromBridgedChainMessagesDeliveryProof,
) (messages.LaneID, *messages.InboundLaneData, error) {
	return proof.Lane, nil, messages.ErrAllOutboundMessagesRejected
}

func (ForbidOutboundMessages) PayRewards(messages.LaneID, []messages.UnrewardedRelayer, messages.AccountID, messages.NonceRange) messages.MessageNonce {
	return 0
}

// forbidLane is the LaneMessageVerifier side of ForbidOutboundMessages.
type forbidLane struct{}

func (forbidLane) VerifyMessage(messages.RawOrigin, messages.LaneID, *messages.OutboundLaneData, messages.MessagePayload) error {
	return messages.ErrAllOutboundMessagesRejected
}

// LaneVerifier returns a lane verifier that rejects every message.
func (ForbidOutboundMessages) LaneVerifier() messages.LaneMessageVerifier {
	return forbidLane{}
}

var (
	_ messages.LaneMessageVerifier          = (*LaneVerifier)(nil)
	_ messages.TargetHeaderChain            = (*TargetHeaderChainAdapter)(nil)
	_ messages.TargetHeaderChain            = ForbidOutboundMessages{}
	_ messages.DeliveryConfirmationPayments = ForbidOutboundMessages{}
)
