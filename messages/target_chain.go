// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package messages

// SourceHeaderChain is the target chain view of the bridged (source) chain headers.
type SourceHeaderChain interface {
	// VerifyMessagesProof returns the messages proved by the proof. The
	// messagesCount is the number of messages the relayer has declared.
	VerifyMessagesProof(proof *FromBridgedChainMessagesProof, messagesCount uint32) (ProvedMessages, error)
}

// MessageDispatchResult is what dispatching a message has left behind.
type MessageDispatchResult struct {
	// Part of the dispatch weight that hasn't been used and may be refunded.
	UnspentWeight Weight
	// Set when the message has been dispatched with an error.
	DispatchError error
}

// MessageDispatch executes messages received at the target chain.
type MessageDispatch interface {
	// DispatchWeight is the weight the message is allowed to use. It never fails.
	DispatchWeight(message *Message) Weight
	Dispatch(relayer AccountID, message *Message) MessageDispatchResult
}
