// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

// Package headerchain keeps track of finalized headers of the bridged chain
// and gives access to storage proofs checked against their state roots.
package headerchain

import (
	"errors"
	"fmt"

	gethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/snowfork/go-substrate-rpc-client/v4/types"

	"github.com/snowfork/bridge-messages/crypto/storageproof"
)

var ErrUnknownHeader = errors.New("unknown or not finalized header")

// HeaderChain resolves finalized bridged headers to their state roots.
type HeaderChain interface {
	FinalizedStateRoot(hash types.Hash) (gethCommon.Hash, error)
}

// Error is returned when the header can't be resolved or the storage proof
// doesn't match its state root.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("header chain: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ParseFinalizedStorageProof opens a storage proof against the state root of
// the finalized header and passes it to parse. The checker can't be used after
// parse returns. Errors returned by parse are passed through as is.
func ParseFinalizedStorageProof[R any](
	chain HeaderChain,
	hash types.Hash,
	proof storageproof.RawStorageProof,
	parse func(checker *storageproof.Checker) (R, error),
) (R, error) {
	var result R

	root, err := chain.FinalizedStateRoot(hash)
	if err != nil {
		return result, &Error{Err: err}
	}

	checker, err := storageproof.NewChecker(root, proof)
	if err != nil {
		return result, &Error{Err: err}
	}
	defer checker.Close()

	return parse(checker)
}
