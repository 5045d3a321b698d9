// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

// Package messages holds the lane primitives shared by both ends of a
// message bridge: lane and nonce identifiers, lane bookkeeping records,
// proof wire artifacts and the verification error taxonomy.
package messages

import (
	"encoding/hex"
	"fmt"
	"math"

	"github.com/snowfork/go-substrate-rpc-client/v4/types"
)

// LaneID identifies an independent, totally ordered message channel.
type LaneID [4]byte

func (l LaneID) String() string {
	return "0x" + hex.EncodeToString(l[:])
}

// MessageNonce is the position of a message inside its lane. Nonces start at 1.
type MessageNonce = uint64

// AccountID is the account type of both bridged chains.
type AccountID [32]byte

func (a AccountID) Hex() string {
	return types.HexEncodeToString(a[:])
}

// MessageKey globally identifies a message.
type MessageKey struct {
	LaneID LaneID
	Nonce  MessageNonce
}

func (k MessageKey) String() string {
	return fmt.Sprintf("%s/%d", k.LaneID, k.Nonce)
}

// MessagePayload is opaque to the lane machinery.
type MessagePayload = []byte

type Message struct {
	Key     MessageKey
	Payload MessagePayload
}

// OutboundLaneData is the outbound lane state, authoritative at the sending chain.
type OutboundLaneData struct {
	// Nonce of the oldest message that we haven't pruned yet.
	OldestUnprunedNonce MessageNonce `json:"oldest_unpruned_nonce"`
	// Nonce of the latest message, received by the bridged chain.
	LatestReceivedNonce MessageNonce `json:"latest_received_nonce"`
	// Nonce of the latest message, generated by us.
	LatestGeneratedNonce MessageNonce `json:"latest_generated_nonce"`
}

func DefaultOutboundLaneData() OutboundLaneData {
	return OutboundLaneData{OldestUnprunedNonce: 1}
}

// PendingMessages is the number of generated but not yet delivered messages.
// Inconsistent bookkeeping yields zero instead of wrapping around.
func (d OutboundLaneData) PendingMessages() MessageNonce {
	return SaturatingSub(d.LatestGeneratedNonce, d.LatestReceivedNonce)
}

// QueuedMessages returns the inclusive range of messages that are queued for delivery.
func (d OutboundLaneData) QueuedMessages() NonceRange {
	return NonceRange{Begin: SaturatingAdd(d.LatestReceivedNonce, 1), End: d.LatestGeneratedNonce}
}

// DeliveredMessages is an inclusive range of nonces delivered by a single relayer.
type DeliveredMessages struct {
	Begin MessageNonce
	End   MessageNonce
}

func NewDeliveredMessages(nonce MessageNonce) DeliveredMessages {
	return DeliveredMessages{Begin: nonce, End: nonce}
}

func (d DeliveredMessages) TotalMessages() MessageNonce {
	if d.End < d.Begin {
		return 0
	}
	return SaturatingAdd(d.End-d.Begin, 1)
}

func (d DeliveredMessages) ContainsMessage(nonce MessageNonce) bool {
	return nonce >= d.Begin && nonce <= d.End
}

// UnrewardedRelayer is a relayer that has delivered messages and is waiting for its reward.
type UnrewardedRelayer struct {
	Relayer  AccountID
	Messages DeliveredMessages
}

// InboundLaneData is the inbound lane state, authoritative at the receiving chain.
type InboundLaneData struct {
	// Relayers that have delivered messages which are not yet confirmed at the
	// source chain, oldest first.
	Relayers []UnrewardedRelayer
	// Nonce of the last message that the source chain has confirmed.
	LastConfirmedNonce MessageNonce
}

// LastDeliveredNonce returns the nonce of the latest message delivered to this lane.
func (d InboundLaneData) LastDeliveredNonce() MessageNonce {
	if len(d.Relayers) == 0 {
		return d.LastConfirmedNonce
	}
	return d.Relayers[len(d.Relayers)-1].Messages.End
}

// NonceRange is an inclusive nonce range; End < Begin means empty.
type NonceRange struct {
	Begin MessageNonce
	End   MessageNonce
}

func (r NonceRange) IsEmpty() bool {
	return r.End < r.Begin
}

// ProvedLaneMessages is what a messages proof has proved for a single lane.
type ProvedLaneMessages struct {
	// Optional outbound lane state.
	LaneState *OutboundLaneData
	// Messages sent through this lane, ordered by nonce.
	Messages []Message
}

// ProvedMessages maps lanes to their proved messages.
type ProvedMessages map[LaneID]ProvedLaneMessages

func SaturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}

func SaturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
