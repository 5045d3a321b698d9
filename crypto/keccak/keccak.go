// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package keccak

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Keccak256 is the hashing method of the state trie. Trie nodes in a storage
// proof are addressed by their Keccak256 hash.
type Keccak256 struct{}

// New creates a new Keccak256 hashing method
func New() *Keccak256 {
	return &Keccak256{}
}

// NodeHash returns the key under which an encoded trie node is looked up.
func (h *Keccak256) NodeHash(node []byte) common.Hash {
	return crypto.Keccak256Hash(node)
}
