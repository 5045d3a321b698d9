// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package headerchain

import (
	"fmt"

	"github.com/snowfork/go-substrate-rpc-client/v4/types"
)

// HeaderJSON is the file format of headers imported through the CLI.
// Digests aren't part of it.
type HeaderJSON struct {
	ParentHash     string `json:"parent_hash"`
	Number         uint32 `json:"number"`
	StateRoot      string `json:"state_root"`
	ExtrinsicsRoot string `json:"extrinsics_root"`
}

func HeaderToJSON(header *types.Header) HeaderJSON {
	return HeaderJSON{
		ParentHash:     header.ParentHash.Hex(),
		Number:         uint32(header.Number),
		StateRoot:      header.StateRoot.Hex(),
		ExtrinsicsRoot: header.ExtrinsicsRoot.Hex(),
	}
}

func (h *HeaderJSON) Decode() (*types.Header, error) {
	parentHash, err := types.NewHashFromHexString(h.ParentHash)
	if err != nil {
		return nil, fmt.Errorf("decode parent hash: %w", err)
	}
	stateRoot, err := types.NewHashFromHexString(h.StateRoot)
	if err != nil {
		return nil, fmt.Errorf("decode state root: %w", err)
	}
	extrinsicsRoot, err := types.NewHashFromHexString(h.ExtrinsicsRoot)
	if err != nil {
		return nil, fmt.Errorf("decode extrinsics root: %w", err)
	}

	return &types.Header{
		ParentHash:     parentHash,
		Number:         types.BlockNumber(h.Number),
		StateRoot:      stateRoot,
		ExtrinsicsRoot: extrinsicsRoot,
		Digest:         types.Digest{},
	}, nil
}
