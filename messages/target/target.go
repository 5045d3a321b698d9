// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

// Package target verifies messages that are delivered from the bridged chain
// to this chain.
package target

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/snowfork/bridge-messages/bridge"
	"github.com/snowfork/bridge-messages/chain/headerchain"
	"github.com/snowfork/bridge-messages/crypto/storageproof"
	"github.com/snowfork/bridge-messages/messages"
)

// MaximalIncomingMessageSize is the maximal size of a message we're able to
// receive, given the maximal extrinsic size. A third of the extrinsic is left
// for the proof and the rest of the delivery transaction.
func MaximalIncomingMessageSize(maxExtrinsicSize uint32) uint32 {
	return maxExtrinsicSize / 3 * 2
}

// MaximalIncomingMessageDispatchWeight is the maximal dispatch weight of a
// message we're able to receive.
func MaximalIncomingMessageDispatchWeight(maxExtrinsicWeight messages.Weight) messages.Weight {
	return maxExtrinsicWeight.Div(2)
}

// VerifyMessagesProof verifies a proof of bridged chain messages. Sane limits
// of messagesCount must be checked by the caller; here we only check that the
// proof declares exactly messagesCount messages.
func VerifyMessagesProof(
	b *bridge.MessageBridge,
	proof *messages.FromBridgedChainMessagesProof,
	messagesCount uint32,
) (messages.ProvedMessages, error) {
	lane := proof.Lane
	noncesStart := proof.NoncesStart
	noncesEnd := proof.NoncesEnd

	proved, err := headerchain.ParseFinalizedStorageProof(
		b.BridgedHeaderChain,
		proof.BridgedHeaderHash,
		proof.StorageProof,
		func(checker *storageproof.Checker) (messages.ProvedMessages, error) {
			parser := proofParser{checker: checker, palletName: b.BridgedMessagesPalletName}

			// end < begin is a proof of the outbound lane state alone
			var messagesInProof uint64
			if noncesEnd >= noncesStart {
				messagesInProof = messages.SaturatingAdd(noncesEnd-noncesStart, 1)
				if messagesInProof != uint64(messagesCount) {
					return nil, messages.ErrMessagesCountMismatch
				}
			}

			// every message claimed by the proof must be there
			capacity := messagesInProof
			if nodes := uint64(len(proof.StorageProof)); capacity > nodes {
				capacity = nodes
			}
			provedMessages := make([]messages.Message, 0, capacity)
			for nonce := noncesStart; messagesInProof > 0 && nonce <= noncesEnd; nonce++ {
				key := messages.MessageKey{LaneID: lane, Nonce: nonce}
				payload, err := parser.readMessagePayload(key)
				if err != nil {
					return nil, err
				}
				provedMessages = append(provedMessages, messages.Message{Key: key, Payload: payload})

				if nonce == noncesEnd {
					break
				}
			}

			laneState, err := parser.readOutboundLaneData(lane)
			if err != nil {
				return nil, err
			}

			if laneState == nil && len(provedMessages) == 0 {
				return nil, messages.ErrEmptyMessageProof
			}

			err = checker.EnsureNoUnusedNodes()
			if err != nil {
				return nil, messages.NewError(messages.StorageProof, err)
			}

			// a proof carries messages of a single lane
			return messages.ProvedMessages{
				lane: messages.ProvedLaneMessages{
					LaneState: laneState,
					Messages:  provedMessages,
				},
			}, nil
		},
	)
	if err != nil {
		return nil, messages.FromHeaderChain(err)
	}

	return proved, nil
}

type proofParser struct {
	checker    *storageproof.Checker
	palletName string
}

func (p *proofParser) readMessagePayload(key messages.MessageKey) (messages.MessagePayload, error) {
	storageKey, err := messages.MessageStorageKey(p.palletName, key.LaneID, key.Nonce)
	if err != nil {
		return nil, messages.NewError(messages.MessageStorage, err)
	}

	var payload messages.MessagePayload
	err = p.checker.ReadAndDecodeMandatoryValue(storageKey, &payload)
	if err != nil {
		return nil, messages.NewError(messages.MessageStorage, err)
	}
	return payload, nil
}

// readOutboundLaneData returns nil if the proof doesn't prove the lane state.
func (p *proofParser) readOutboundLaneData(lane messages.LaneID) (*messages.OutboundLaneData, error) {
	storageKey, err := messages.OutboundLaneDataKey(p.palletName, lane)
	if err != nil {
		return nil, messages.NewError(messages.OutboundLaneStorage, err)
	}

	var data messages.OutboundLaneData
	found, err := p.checker.ReadAndDecodeOptionalValue(storageKey, &data)
	switch {
	case errors.Is(err, storageproof.ErrStorageValueUnavailable), errors.Is(err, storageproof.ErrStorageValueDecodeFailed):
		log.WithError(err).WithField("lane", lane).Debug("Outbound lane state is not proved")
		return nil, nil
	case err != nil:
		return nil, messages.NewError(messages.OutboundLaneStorage, err)
	case !found:
		return nil, nil
	}
	return &data, nil
}

// SourceHeaderChainAdapter verifies messages proofs of the bridge.
type SourceHeaderChainAdapter struct {
	Bridge *bridge.MessageBridge
}

func NewSourceHeaderChainAdapter(b *bridge.MessageBridge) *SourceHeaderChainAdapter {
	return &SourceHeaderChainAdapter{Bridge: b}
}

func (a *SourceHeaderChainAdapter) VerifyMessagesProof(
	proof *messages.FromBridgedChainMessagesProof,
	messagesCount uint32,
) (messages.ProvedMessages, error) {
	return VerifyMessagesProof(a.Bridge, proof, messagesCount)
}
