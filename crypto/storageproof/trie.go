// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package storageproof

import (
	"fmt"

	gethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/trie"
)

// Trie is an in-memory state trie used to build storage proofs, e.g. by
// relayers and in tests.
type Trie struct {
	trie *trie.Trie
}

func NewTrie() *Trie {
	db := trie.NewDatabase(rawdb.NewMemoryDatabase(), nil)
	return &Trie{trie: trie.NewEmpty(db)}
}

func (t *Trie) Insert(key, value []byte) error {
	if len(value) == 0 {
		return fmt.Errorf("refusing to insert empty value under key %x", key)
	}
	return t.trie.Update(key, value)
}

func (t *Trie) Root() gethCommon.Hash {
	return t.trie.Hash()
}

// Prove returns the nodes that are needed to read every given key, including
// keys that are absent from the trie.
func (t *Trie) Prove(keys ...[]byte) (RawStorageProof, error) {
	recorder := NewRecorder()
	for _, key := range keys {
		err := t.trie.Prove(key, recorder)
		if err != nil {
			return nil, fmt.Errorf("prove key %x: %w", key, err)
		}
	}
	return recorder.Proof(), nil
}
