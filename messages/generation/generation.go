// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

// Package generation builds bridged chain storage proofs of lane data, as a
// relayer would read them from the bridged chain state.
package generation

import (
	"fmt"

	gethCommon "github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"github.com/snowfork/go-substrate-rpc-client/v4/types"

	"github.com/snowfork/bridge-messages/crypto/storageproof"
	"github.com/snowfork/bridge-messages/messages"
)

// MessageEncoder returns the storage value of a message. A nil value leaves
// the message out of the state.
type MessageEncoder func(nonce messages.MessageNonce, payload messages.MessagePayload) ([]byte, error)

// OutboundLaneDataEncoder returns the storage value of the outbound lane state.
type OutboundLaneDataEncoder func(data *messages.OutboundLaneData) ([]byte, error)

// EncodeAllMessages stores every message as is.
func EncodeAllMessages(_ messages.MessageNonce, payload messages.MessagePayload) ([]byte, error) {
	return types.EncodeToBytes(payload)
}

func EncodeLaneData(data *messages.OutboundLaneData) ([]byte, error) {
	return types.EncodeToBytes(*data)
}

// MessagesProofParams describes the state a messages proof is built from.
type MessagesProofParams struct {
	PalletName string
	Lane       messages.LaneID
	Nonces     messages.NonceRange
	// Optional outbound lane state. It is proved when set.
	OutboundLaneData *messages.OutboundLaneData
	// Payload of every message.
	Payload                messages.MessagePayload
	EncodeMessage          MessageEncoder
	EncodeOutboundLaneData OutboundLaneDataEncoder
}

// PrepareMessagesStorageProof builds the state with messages and outbound
// lane data and returns its root together with the proof of every message
// key in the nonce range, and of the lane state key if the state is set.
func PrepareMessagesStorageProof(params *MessagesProofParams) (gethCommon.Hash, storageproof.RawStorageProof, error) {
	encodeMessage := params.EncodeMessage
	if encodeMessage == nil {
		encodeMessage = EncodeAllMessages
	}
	encodeLaneData := params.EncodeOutboundLaneData
	if encodeLaneData == nil {
		encodeLaneData = EncodeLaneData
	}

	trie := storageproof.NewTrie()
	var keys [][]byte

	for nonce := params.Nonces.Begin; !params.Nonces.IsEmpty() && nonce <= params.Nonces.End; nonce++ {
		key, err := messages.MessageStorageKey(params.PalletName, params.Lane, nonce)
		if err != nil {
			return gethCommon.Hash{}, nil, err
		}
		keys = append(keys, key)

		value, err := encodeMessage(nonce, params.Payload)
		if err != nil {
			return gethCommon.Hash{}, nil, fmt.Errorf("encode message %d: %w", nonce, err)
		}
		if value != nil {
			err = trie.Insert(key, value)
			if err != nil {
				return gethCommon.Hash{}, nil, err
			}
		}

		// the range may end at the largest nonce
		if nonce == params.Nonces.End {
			break
		}
	}

	if params.OutboundLaneData != nil {
		key, err := messages.OutboundLaneDataKey(params.PalletName, params.Lane)
		if err != nil {
			return gethCommon.Hash{}, nil, err
		}
		keys = append(keys, key)

		value, err := encodeLaneData(params.OutboundLaneData)
		if err != nil {
			return gethCommon.Hash{}, nil, fmt.Errorf("encode outbound lane data: %w", err)
		}
		err = trie.Insert(key, value)
		if err != nil {
			return gethCommon.Hash{}, nil, err
		}
	}

	proof, err := trie.Prove(keys...)
	if err != nil {
		return gethCommon.Hash{}, nil, err
	}
	root := trie.Root()

	log.WithFields(log.Fields{
		"lane":       params.Lane,
		"noncesFrom": params.Nonces.Begin,
		"noncesTo":   params.Nonces.End,
		"root":       root.Hex(),
		"nodes":      len(proof),
	}).Debug("Prepared messages storage proof")

	return root, proof, nil
}

// PrepareMessagesDeliveryStorageProof builds the state with the inbound lane
// data and returns its root together with the proof of the lane state key.
func PrepareMessagesDeliveryStorageProof(
	palletName string,
	lane messages.LaneID,
	data *messages.InboundLaneData,
) (gethCommon.Hash, storageproof.RawStorageProof, error) {
	key, err := messages.InboundLaneDataKey(palletName, lane)
	if err != nil {
		return gethCommon.Hash{}, nil, err
	}

	value, err := types.EncodeToBytes(*data)
	if err != nil {
		return gethCommon.Hash{}, nil, fmt.Errorf("encode inbound lane data: %w", err)
	}

	trie := storageproof.NewTrie()
	err = trie.Insert(key, value)
	if err != nil {
		return gethCommon.Hash{}, nil, err
	}

	proof, err := trie.Prove(key)
	if err != nil {
		return gethCommon.Hash{}, nil, err
	}
	return trie.Root(), proof, nil
}
