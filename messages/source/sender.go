// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package source

import (
	"bytes"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/snowfork/go-substrate-rpc-client/v4/types"

	"github.com/snowfork/bridge-messages/bridge"
	"github.com/snowfork/bridge-messages/messages"
	"github.com/snowfork/bridge-messages/messages/target"
)

var (
	ErrMissingArgument = errors.New("missing destination or program")
	ErrNotApplicable   = errors.New("destination is not routed over the bridge")
	ErrTransport       = errors.New("bridge has rejected the message")
)

// DefaultFee is the fixed fee of a single message.
const DefaultFee uint64 = 1_000_000

// SenderConfig describes how programs reach the bridged chain.
type SenderConfig struct {
	// Lane every message is sent over.
	Lane messages.LaneID
	// Route from this chain to destinations at the bridged chain.
	Route []byte
	// Destinations handled by the sender. Other destinations are not applicable.
	Destinations [][]byte
	Fee          uint64
}

// Ticket is a validated message, ready to be delivered.
type Ticket struct {
	Payload messages.MessagePayload
}

// Sender sends programs to the bridged chain over a single lane.
type Sender struct {
	config *SenderConfig
	bridge *bridge.MessageBridge
	queue  messages.MessagesBridge
}

func NewSender(config *SenderConfig, b *bridge.MessageBridge, queue messages.MessagesBridge) *Sender {
	return &Sender{config: config, bridge: b, queue: queue}
}

func (s *Sender) verifyDestination(dest []byte) bool {
	for _, d := range s.config.Destinations {
		if bytes.Equal(d, dest) {
			return true
		}
	}
	return false
}

// Validate wraps the program into a message payload and returns the fee of
// sending it.
func (s *Sender) Validate(dest []byte, program []byte) (*Ticket, uint64, error) {
	if dest == nil {
		return nil, 0, ErrMissingArgument
	}
	if !s.verifyDestination(dest) {
		return nil, 0, ErrNotApplicable
	}
	if program == nil {
		return nil, 0, ErrMissingArgument
	}

	payload, err := messages.EncodeDispatchPayload(messages.DispatchPayload{
		Location: s.config.Route,
		Program:  program,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("encode payload: %w", err)
	}

	err = VerifyChainMessage(s.bridge, payload)
	if err != nil {
		return nil, 0, err
	}

	return &Ticket{Payload: payload}, s.config.Fee, nil
}

// Deliver queues the message at the lane and returns the message hash.
func (s *Sender) Deliver(ticket *Ticket) (types.Hash, error) {
	lane := s.config.Lane

	artifacts, err := s.queue.SendMessage(messages.Root(), lane, ticket.Payload)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"lane":         lane,
			"bridgedChain": s.bridge.BridgedChainID,
		}).Debug("Failed to send message")
		return types.Hash{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	hash, err := target.MessageHash(messages.MessageKey{LaneID: lane, Nonce: artifacts.Nonce})
	if err != nil {
		return types.Hash{}, err
	}

	log.WithFields(log.Fields{
		"lane":         lane,
		"nonce":        artifacts.Nonce,
		"bridgedChain": s.bridge.BridgedChainID,
		"hash":         hash.Hex(),
	}).Debug("Sent message")

	return hash, nil
}
