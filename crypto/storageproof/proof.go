// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package storageproof

import (
	"fmt"
	"math"

	gethCommon "github.com/ethereum/go-ethereum/common"
	"github.com/snowfork/go-substrate-rpc-client/v4/types"
)

// RawStorageProof is an unordered set of encoded trie nodes, as submitted by a relayer.
type RawStorageProof [][]byte

// Size is the total length of all nodes. It saturates at math.MaxUint32.
func (p RawStorageProof) Size() uint32 {
	var sum uint64
	for _, node := range p {
		sum += uint64(len(node))
		if sum > math.MaxUint32 {
			return math.MaxUint32
		}
	}
	return uint32(sum)
}

func (p RawStorageProof) HexNodes() []string {
	result := make([]string, len(p))
	for i, node := range p {
		result[i] = types.HexEncodeToString(node)
	}
	return result
}

func RawStorageProofFromHex(nodes []string) (RawStorageProof, error) {
	proof := make(RawStorageProof, len(nodes))
	for i, node := range nodes {
		b, err := types.HexDecodeString(node)
		if err != nil {
			return nil, fmt.Errorf("decode proof node %d: %w", i, err)
		}
		proof[i] = b
	}
	return proof, nil
}

// Recorder collects trie nodes written by trie.Prove into a RawStorageProof.
// Nodes shared by several proved keys are recorded once.
//
// For interface ethdb.KeyValueWriter
type Recorder struct {
	seen  map[gethCommon.Hash]struct{}
	nodes RawStorageProof
}

func NewRecorder() *Recorder {
	return &Recorder{
		seen:  make(map[gethCommon.Hash]struct{}),
		nodes: make(RawStorageProof, 0),
	}
}

func (r *Recorder) Put(key []byte, value []byte) error {
	hash := gethCommon.BytesToHash(key)
	if _, ok := r.seen[hash]; ok {
		return nil
	}
	r.seen[hash] = struct{}{}
	r.nodes = append(r.nodes, gethCommon.CopyBytes(value))
	return nil
}

func (r *Recorder) Delete(_ []byte) error {
	return fmt.Errorf("Delete should never be called to generate a proof")
}

func (r *Recorder) Proof() RawStorageProof {
	return r.nodes
}
