// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

// Package storageproof reads authenticated key/value pairs out of a set of
// trie nodes submitted by an untrusted relayer, given a trusted state root.
package storageproof

import (
	"errors"
	"fmt"

	gethCommon "github.com/ethereum/go-ethereum/common"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/snowfork/go-substrate-rpc-client/v4/types"

	"github.com/snowfork/bridge-messages/crypto/keccak"
)

var (
	ErrStorageRootMismatch      = errors.New("storage root is missing from the storage proof")
	ErrStorageValueUnavailable  = errors.New("unable to reach expected storage value using provided trie nodes")
	ErrStorageValueEmpty        = errors.New("the storage value is empty")
	ErrStorageValueDecodeFailed = errors.New("failed to decode storage value")
	ErrDuplicateNodesInProof    = errors.New("duplicate nodes in the storage proof")
	ErrUnusedNodesInTheProof    = errors.New("storage proof has unused nodes")
	ErrMalformedTrieNode        = errors.New("storage proof has a malformed trie node")
	ErrCheckerClosed            = errors.New("storage proof checker is used outside of its scope")
)

// Checker answers storage reads using the nodes of a storage proof and keeps
// track of the nodes that have been touched by those reads.
type Checker struct {
	root   gethCommon.Hash
	db     *proofDB
	closed bool
}

// NewChecker builds a checker for the given trusted root. It fails when the
// proof has duplicate nodes or doesn't contain the root node.
func NewChecker(root gethCommon.Hash, proof RawStorageProof) (*Checker, error) {
	hasher := keccak.New()
	db := newProofDB(len(proof))
	for _, node := range proof {
		hash := hasher.NodeHash(node)
		if _, ok := db.nodes[hash]; ok {
			return nil, ErrDuplicateNodesInProof
		}
		db.nodes[hash] = node
	}

	// the empty trie has no nodes at all
	if root != gethTypes.EmptyRootHash {
		if _, ok := db.nodes[root]; !ok {
			return nil, ErrStorageRootMismatch
		}
	}

	return &Checker{root: root, db: db}, nil
}

// Close ends the scope of the checker. Any later read fails.
func (c *Checker) Close() {
	c.closed = true
}

// ReadValue returns the value stored under key, or nil if the proof shows
// that there's no such value.
func (c *Checker) ReadValue(key []byte) ([]byte, error) {
	if c.closed {
		return nil, ErrCheckerClosed
	}
	if c.root == gethTypes.EmptyRootHash {
		return nil, nil
	}

	c.db.missing = false
	value, err := trie.VerifyProof(c.root, key, c.db)
	if err != nil {
		if c.db.missing {
			return nil, fmt.Errorf("%w: %v", ErrStorageValueUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedTrieNode, err)
	}
	return value, nil
}

// ReadAndDecodeMandatoryValue reads the SCALE encoded value under key into
// target. A missing value is an error.
func (c *Checker) ReadAndDecodeMandatoryValue(key []byte, target interface{}) error {
	found, err := c.ReadAndDecodeOptionalValue(key, target)
	if err != nil {
		return err
	}
	if !found {
		return ErrStorageValueEmpty
	}
	return nil
}

// ReadAndDecodeOptionalValue reads the SCALE encoded value under key into
// target. It returns false if the proof shows that there's no such value.
func (c *Checker) ReadAndDecodeOptionalValue(key []byte, target interface{}) (bool, error) {
	value, err := c.ReadValue(key)
	if err != nil {
		return false, err
	}
	if value == nil {
		return false, nil
	}
	err = types.DecodeFromBytes(value, target)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorageValueDecodeFailed, err)
	}
	return true, nil
}

// EnsureNoUnusedNodes fails if some nodes of the proof haven't been touched by
// any read. A proof for a known set of keys never needs extra nodes.
func (c *Checker) EnsureNoUnusedNodes() error {
	if len(c.db.used) != len(c.db.nodes) {
		return ErrUnusedNodesInTheProof
	}
	return nil
}

// proofDB serves trie.VerifyProof lookups from the proof nodes.
//
// For interface ethdb.KeyValueReader
type proofDB struct {
	nodes   map[gethCommon.Hash][]byte
	used    map[gethCommon.Hash]struct{}
	missing bool
}

func newProofDB(capacity int) *proofDB {
	return &proofDB{
		nodes: make(map[gethCommon.Hash][]byte, capacity),
		used:  make(map[gethCommon.Hash]struct{}, capacity),
	}
}

func (db *proofDB) Has(key []byte) (bool, error) {
	_, ok := db.nodes[gethCommon.BytesToHash(key)]
	return ok, nil
}

func (db *proofDB) Get(key []byte) ([]byte, error) {
	hash := gethCommon.BytesToHash(key)
	node, ok := db.nodes[hash]
	if !ok {
		db.missing = true
		return nil, fmt.Errorf("trie node %s not found", hash.Hex())
	}
	db.used[hash] = struct{}{}
	return node, nil
}
