// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package messages

import (
	"fmt"
	"strings"

	"github.com/snowfork/go-substrate-rpc-client/v4/types"
	"github.com/snowfork/bridge-messages/crypto/storageproof"
)

// FromBridgedChainMessagesProof is submitted at the target chain to deliver
// messages:
//
//   - hash of the finalized bridged header;
//   - storage proof of messages and (optionally) outbound lane state;
//   - lane id;
//   - nonces (inclusive range) of messages which are included in this proof.
type FromBridgedChainMessagesProof struct {
	// Hash of the finalized bridged header the proof is for.
	BridgedHeaderHash types.Hash
	// A storage trie proof of messages being delivered.
	StorageProof storageproof.RawStorageProof
	// Messages in this proof are sent over this lane.
	Lane LaneID
	// Nonce of the first message being delivered.
	NoncesStart MessageNonce
	// Nonce of the last message being delivered.
	NoncesEnd MessageNonce
}

func (p *FromBridgedChainMessagesProof) Size() uint32 {
	return p.StorageProof.Size()
}

// FromBridgedChainMessagesDeliveryProof is submitted at the source chain to
// confirm delivery: hash of the finalized bridged header, storage proof of the
// inbound lane state and the lane id.
type FromBridgedChainMessagesDeliveryProof struct {
	BridgedHeaderHash types.Hash
	StorageProof      storageproof.RawStorageProof
	Lane              LaneID
}

func (p *FromBridgedChainMessagesDeliveryProof) Size() uint32 {
	return p.StorageProof.Size()
}

func EncodeMessagesProof(proof *FromBridgedChainMessagesProof) ([]byte, error) {
	return types.EncodeToBytes(proof)
}

func DecodeMessagesProof(data []byte) (*FromBridgedChainMessagesProof, error) {
	var proof FromBridgedChainMessagesProof
	err := types.DecodeFromBytes(data, &proof)
	if err != nil {
		return nil, fmt.Errorf("decode messages proof: %w", err)
	}
	return &proof, nil
}

func EncodeDeliveryProof(proof *FromBridgedChainMessagesDeliveryProof) ([]byte, error) {
	return types.EncodeToBytes(proof)
}

func DecodeDeliveryProof(data []byte) (*FromBridgedChainMessagesDeliveryProof, error) {
	var proof FromBridgedChainMessagesDeliveryProof
	err := types.DecodeFromBytes(data, &proof)
	if err != nil {
		return nil, fmt.Errorf("decode messages delivery proof: %w", err)
	}
	return &proof, nil
}

type MessagesProofJSON struct {
	BridgedHeaderHash string   `json:"bridged_header_hash"`
	StorageProof      []string `json:"storage_proof"`
	Lane              string   `json:"lane"`
	NoncesStart       uint64   `json:"nonces_start"`
	NoncesEnd         uint64   `json:"nonces_end"`
}

type DeliveryProofJSON struct {
	BridgedHeaderHash string   `json:"bridged_header_hash"`
	StorageProof      []string `json:"storage_proof"`
	Lane              string   `json:"lane"`
}

func (p *FromBridgedChainMessagesProof) ToJSON() MessagesProofJSON {
	return MessagesProofJSON{
		BridgedHeaderHash: p.BridgedHeaderHash.Hex(),
		StorageProof:      p.StorageProof.HexNodes(),
		Lane:              p.Lane.String(),
		NoncesStart:       p.NoncesStart,
		NoncesEnd:         p.NoncesEnd,
	}
}

func (p *MessagesProofJSON) Decode() (*FromBridgedChainMessagesProof, error) {
	hash, err := types.NewHashFromHexString(p.BridgedHeaderHash)
	if err != nil {
		return nil, fmt.Errorf("decode header hash: %w", err)
	}
	proof, err := storageproof.RawStorageProofFromHex(p.StorageProof)
	if err != nil {
		return nil, err
	}
	lane, err := ParseLaneID(p.Lane)
	if err != nil {
		return nil, err
	}
	return &FromBridgedChainMessagesProof{
		BridgedHeaderHash: hash,
		StorageProof:      proof,
		Lane:              lane,
		NoncesStart:       p.NoncesStart,
		NoncesEnd:         p.NoncesEnd,
	}, nil
}

func (p *FromBridgedChainMessagesDeliveryProof) ToJSON() DeliveryProofJSON {
	return DeliveryProofJSON{
		BridgedHeaderHash: p.BridgedHeaderHash.Hex(),
		StorageProof:      p.StorageProof.HexNodes(),
		Lane:              p.Lane.String(),
	}
}

func (p *DeliveryProofJSON) Decode() (*FromBridgedChainMessagesDeliveryProof, error) {
	hash, err := types.NewHashFromHexString(p.BridgedHeaderHash)
	if err != nil {
		return nil, fmt.Errorf("decode header hash: %w", err)
	}
	proof, err := storageproof.RawStorageProofFromHex(p.StorageProof)
	if err != nil {
		return nil, err
	}
	lane, err := ParseLaneID(p.Lane)
	if err != nil {
		return nil, err
	}
	return &FromBridgedChainMessagesDeliveryProof{
		BridgedHeaderHash: hash,
		StorageProof:      proof,
		Lane:              lane,
	}, nil
}

// ParseLaneID accepts either a 0x-prefixed hex string of 4 bytes or a 4 character ASCII name.
func ParseLaneID(s string) (LaneID, error) {
	var lane LaneID
	if !strings.HasPrefix(s, "0x") && len(s) == len(lane) {
		copy(lane[:], s)
		return lane, nil
	}
	b, err := types.HexDecodeString(s)
	if err != nil {
		return lane, fmt.Errorf("decode lane id %q: %w", s, err)
	}
	if len(b) != len(lane) {
		return lane, fmt.Errorf("lane id %q must be %d bytes long", s, len(lane))
	}
	copy(lane[:], b)
	return lane, nil
}
