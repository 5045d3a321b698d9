// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package bridge

import (
	"math/bits"

	"github.com/snowfork/bridge-messages/messages"
)

// StaticThisChain is a ThisChainWithMessages with fixed limits.
type StaticThisChain struct {
	ChainID         ChainID
	ExtrinsicSize   uint32
	ExtrinsicWeight messages.Weight
	// Nobody may send messages over these lanes.
	DisabledLanes      []messages.LaneID
	MaxPendingMessages messages.MessageNonce
}

func (c *StaticThisChain) ID() ChainID {
	return c.ChainID
}

func (c *StaticThisChain) MaxExtrinsicSize() uint32 {
	return c.ExtrinsicSize
}

func (c *StaticThisChain) MaxExtrinsicWeight() messages.Weight {
	return c.ExtrinsicWeight
}

func (c *StaticThisChain) IsMessageAccepted(_ messages.RawOrigin, lane messages.LaneID) bool {
	for _, disabled := range c.DisabledLanes {
		if disabled == lane {
			return false
		}
	}
	return true
}

func (c *StaticThisChain) MaximalPendingMessagesAtOutboundLane() messages.MessageNonce {
	return c.MaxPendingMessages
}

// StaticBridgedChain is a BridgedChainWithMessages that estimates dispatch
// weight of a message from its size.
type StaticBridgedChain struct {
	ChainID         ChainID
	ExtrinsicSize   uint32
	ExtrinsicWeight messages.Weight
	// Weight of dispatching an empty message.
	BaseDispatchWeight messages.Weight
	// Additional ref time of every payload byte.
	RefTimePerByte uint64
	// Upper bound of the estimated dispatch weight.
	MaxDispatchWeight messages.Weight
}

func (c *StaticBridgedChain) ID() ChainID {
	return c.ChainID
}

func (c *StaticBridgedChain) MaxExtrinsicSize() uint32 {
	return c.ExtrinsicSize
}

func (c *StaticBridgedChain) MaxExtrinsicWeight() messages.Weight {
	return c.ExtrinsicWeight
}

// EstimateDispatchWeight saturates instead of overflowing.
func (c *StaticBridgedChain) EstimateDispatchWeight(payload messages.MessagePayload) messages.Weight {
	hi, lo := bits.Mul64(uint64(len(payload)), c.RefTimePerByte)
	perByte := lo
	if hi != 0 {
		perByte = ^uint64(0)
	}
	return c.BaseDispatchWeight.SaturatingAdd(messages.NewWeight(perByte, 0))
}

func (c *StaticBridgedChain) VerifyDispatchWeight(payload messages.MessagePayload) bool {
	return c.EstimateDispatchWeight(payload).AllLTE(c.MaxDispatchWeight)
}
