// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package target

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/snowfork/go-substrate-rpc-client/v4/types"
	"golang.org/x/crypto/blake2b"

	"github.com/snowfork/bridge-messages/messages"
)

// Weigher computes the weight of a program.
type Weigher interface {
	Weight(program []byte) (messages.Weight, error)
}

// Outcome of executing a program.
type Outcome struct {
	Used messages.Weight
	// Set when the program has failed.
	Err error
}

// Executor executes programs on behalf of bridged chain locations.
type Executor interface {
	ExecuteInCredit(location []byte, program []byte, hash types.Hash, weightLimit messages.Weight, weightCredit messages.Weight) Outcome
}

// MessageDispatch dispatches bridged chain messages carrying a DispatchPayload.
//
// For interface messages.MessageDispatch
type MessageDispatch struct {
	weigher  Weigher
	executor Executor
	// Weight that is granted to every message for free.
	weightCredit messages.Weight
}

func NewMessageDispatch(weigher Weigher, executor Executor, weightCredit messages.Weight) *MessageDispatch {
	return &MessageDispatch{
		weigher:      weigher,
		executor:     executor,
		weightCredit: weightCredit,
	}
}

// DispatchWeight returns zero if the message can't be weighed. Returning
// anything larger would stall the lane, while the executor fails the message
// anyway once it runs out of weight.
func (d *MessageDispatch) DispatchWeight(message *messages.Message) messages.Weight {
	payload, err := messages.DecodeDispatchPayload(message.Payload)
	if err != nil {
		return messages.ZeroWeight()
	}

	weight, err := d.weigher.Weight(payload.Program)
	if err != nil {
		log.WithError(err).WithField("message", message.Key).Debug("Failed to compute dispatch weight of incoming message")
		return messages.ZeroWeight()
	}
	return weight
}

func (d *MessageDispatch) Dispatch(relayer messages.AccountID, message *messages.Message) messages.MessageDispatchResult {
	err := d.dispatch(message)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"message": message.Key,
			"relayer": relayer.Hex(),
		}).Error("Incoming message was not dispatched")
	}

	return messages.MessageDispatchResult{
		UnspentWeight: messages.ZeroWeight(),
		DispatchError: err,
	}
}

func (d *MessageDispatch) dispatch(message *messages.Message) error {
	payload, err := messages.DecodeDispatchPayload(message.Payload)
	if err != nil {
		return err
	}

	hash, err := MessageHash(message.Key)
	if err != nil {
		return err
	}

	weightLimit := d.DispatchWeight(message)

	log.WithFields(log.Fields{
		"message":     message.Key,
		"weightLimit": weightLimit,
	}).Trace("Going to execute message")

	outcome := d.executor.ExecuteInCredit(payload.Location, payload.Program, hash, weightLimit, d.weightCredit)
	if outcome.Err != nil {
		return fmt.Errorf("execute message: %w", outcome.Err)
	}

	log.WithFields(log.Fields{
		"message": message.Key,
		"used":    outcome.Used,
	}).Trace("Incoming message dispatched")

	return nil
}

// MessageHash is the blake2-256 hash of the SCALE encoded message key.
func MessageHash(key messages.MessageKey) (types.Hash, error) {
	encoded, err := types.EncodeToBytes(key)
	if err != nil {
		return types.Hash{}, err
	}
	return types.Hash(blake2b.Sum256(encoded)), nil
}
