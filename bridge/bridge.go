// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

// Package bridge describes the two chains connected by a message bridge and
// what each of them accepts.
package bridge

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/snowfork/bridge-messages/chain/headerchain"
	"github.com/snowfork/bridge-messages/messages"
)

// ChainID is a four byte chain identifier, like "rlto" or "0x726c746f".
type ChainID [4]byte

func (c ChainID) String() string {
	for _, b := range c {
		if b < 0x20 || b > 0x7e {
			return "0x" + hex.EncodeToString(c[:])
		}
	}
	return string(c[:])
}

// Chain is what the bridge needs to know about both chains.
type Chain interface {
	ID() ChainID
	// MaxExtrinsicSize is the maximal size of a single extrinsic in bytes.
	MaxExtrinsicSize() uint32
	// MaxExtrinsicWeight is the maximal weight of a single extrinsic.
	MaxExtrinsicWeight() messages.Weight
}

// ThisChainWithMessages is the chain the bridge is running at.
type ThisChainWithMessages interface {
	Chain
	// IsMessageAccepted tells whether the origin may send messages over the lane.
	IsMessageAccepted(origin messages.RawOrigin, lane messages.LaneID) bool
	// MaximalPendingMessagesAtOutboundLane is the maximal number of generated
	// but not yet delivered messages at a single outbound lane.
	MaximalPendingMessagesAtOutboundLane() messages.MessageNonce
}

// BridgedChainWithMessages is the chain at the other side of the bridge.
type BridgedChainWithMessages interface {
	Chain
	// VerifyDispatchWeight tells whether the message may be dispatched at the bridged chain.
	VerifyDispatchWeight(payload messages.MessagePayload) bool
}

// MessageBridge is the configuration shared by every message verifier.
type MessageBridge struct {
	ThisChainID    ChainID
	BridgedChainID ChainID
	// Name of the messages pallet at the bridged chain. Storage keys are derived from it.
	BridgedMessagesPalletName string

	ThisChain          ThisChainWithMessages
	BridgedChain       BridgedChainWithMessages
	BridgedHeaderChain headerchain.HeaderChain
}

var ErrInvalidBridge = errors.New("invalid message bridge configuration")

func (b *MessageBridge) Validate() error {
	switch {
	case b.BridgedMessagesPalletName == "":
		return fmt.Errorf("%w: bridged messages pallet name is empty", ErrInvalidBridge)
	case b.ThisChain == nil:
		return fmt.Errorf("%w: this chain is not set", ErrInvalidBridge)
	case b.BridgedChain == nil:
		return fmt.Errorf("%w: bridged chain is not set", ErrInvalidBridge)
	case b.BridgedHeaderChain == nil:
		return fmt.Errorf("%w: bridged header chain is not set", ErrInvalidBridge)
	case b.ThisChainID == b.BridgedChainID:
		return fmt.Errorf("%w: both chains have id %s", ErrInvalidBridge, b.ThisChainID)
	case b.ThisChain.ID() != b.ThisChainID:
		return fmt.Errorf("%w: this chain id is %s, expected %s", ErrInvalidBridge, b.ThisChain.ID(), b.ThisChainID)
	case b.BridgedChain.ID() != b.BridgedChainID:
		return fmt.Errorf("%w: bridged chain id is %s, expected %s", ErrInvalidBridge, b.BridgedChain.ID(), b.BridgedChainID)
	}
	return nil
}
