// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package messages

import "errors"

var ErrAllOutboundMessagesRejected = errors.New("this chain is configured to reject all outbound messages")

// OriginKind is the kind of caller that submits a message.
type OriginKind uint8

const (
	RootOrigin OriginKind = iota
	SignedOrigin
	NoneOrigin
)

// RawOrigin is the caller that submits a message to an outbound lane.
type RawOrigin struct {
	Kind OriginKind
	// Only set for SignedOrigin.
	Signer AccountID
}

func Root() RawOrigin {
	return RawOrigin{Kind: RootOrigin}
}

func Signed(signer AccountID) RawOrigin {
	return RawOrigin{Kind: SignedOrigin, Signer: signer}
}

// TargetHeaderChain is the source chain view of the bridged (target) chain headers.
type TargetHeaderChain interface {
	// VerifyMessage checks that the message may be delivered to the target chain.
	VerifyMessage(payload MessagePayload) error
	// VerifyMessagesDeliveryProof returns the inbound lane state proved by the proof.
	VerifyMessagesDeliveryProof(proof *FromBridgedChainMessagesDeliveryProof) (LaneID, *InboundLaneData, error)
}

// LaneMessageVerifier decides whether a message may be queued at the outbound lane.
type LaneMessageVerifier interface {
	VerifyMessage(origin RawOrigin, lane LaneID, outbound *OutboundLaneData, payload MessagePayload) error
}

// DeliveryConfirmationPayments pays relayers once delivery of their messages is confirmed.
type DeliveryConfirmationPayments interface {
	// PayRewards returns the number of relayers that have been rewarded.
	PayRewards(lane LaneID, relayers []UnrewardedRelayer, confirmationRelayer AccountID, received NonceRange) MessageNonce
}

// NoopPayments doesn't pay anyone.
type NoopPayments struct{}

func (NoopPayments) PayRewards(LaneID, []UnrewardedRelayer, AccountID, NonceRange) MessageNonce {
	return 0
}

// SendMessageArtifacts are returned when a message has been queued.
type SendMessageArtifacts struct {
	Nonce  MessageNonce
	Weight Weight
}

// MessagesBridge queues messages at outbound lanes.
type MessagesBridge interface {
	SendMessage(sender RawOrigin, lane LaneID, payload MessagePayload) (SendMessageArtifacts, error)
}

// NoopMessagesBridge accepts every message and queues nothing.
type NoopMessagesBridge struct{}

func (NoopMessagesBridge) SendMessage(RawOrigin, LaneID, MessagePayload) (SendMessageArtifacts, error) {
	return SendMessageArtifacts{Nonce: 0, Weight: ZeroWeight()}, nil
}
