// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package messages

import (
	"github.com/snowfork/go-substrate-rpc-client/v4/types"
	"golang.org/x/crypto/blake2b"
)

// Names of the storage maps of the messages pallet. Both chains must derive
// keys from the same names or every proof fails.
const (
	OutboundMessagesMapName = "OutboundMessages"
	OutboundLanesMapName    = "OutboundLanes"
	InboundLanesMapName     = "InboundLanes"
)

// MessageStorageKey is the storage key of the message with given nonce at the outbound lane.
func MessageStorageKey(palletName string, lane LaneID, nonce MessageNonce) (types.StorageKey, error) {
	encoded, err := types.EncodeToBytes(MessageKey{LaneID: lane, Nonce: nonce})
	if err != nil {
		return nil, err
	}
	return storageMapFinalKey(palletName, OutboundMessagesMapName, encoded)
}

// OutboundLaneDataKey is the storage key of the outbound lane state.
func OutboundLaneDataKey(palletName string, lane LaneID) (types.StorageKey, error) {
	return storageMapFinalKey(palletName, OutboundLanesMapName, lane[:])
}

// InboundLaneDataKey is the storage key of the inbound lane state.
func InboundLaneDataKey(palletName string, lane LaneID) (types.StorageKey, error) {
	return storageMapFinalKey(palletName, InboundLanesMapName, lane[:])
}

// storageMapFinalKey builds the key of a Blake2_128Concat map entry:
// twox128(pallet) ++ twox128(map) ++ blake2_128(key) ++ key.
func storageMapFinalKey(palletName, mapName string, key []byte) (types.StorageKey, error) {
	hasher, err := blake2b.New(16, nil)
	if err != nil {
		return nil, err
	}
	hasher.Write(key)

	prefix := types.CreateStorageKeyPrefix(palletName, mapName)
	final := make([]byte, 0, len(prefix)+hasher.Size()+len(key))
	final = append(final, prefix...)
	final = hasher.Sum(final)
	final = append(final, key...)
	return types.NewStorageKey(final), nil
}
