// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package messages

import (
	"fmt"
	"math"
	"math/big"

	"github.com/snowfork/go-substrate-rpc-client/v4/scale"
	"github.com/snowfork/go-substrate-rpc-client/v4/types"
)

// DispatchPayload is the payload of messages routed through the bridge: the
// SCALE encoded origin location and the program to execute on its behalf.
// On the wire both are prefixed by their compact encoded total length.
type DispatchPayload struct {
	Location []byte
	Program  []byte
}

type dispatchPayloadBody struct {
	Location []byte
	Program  []byte
}

func (p DispatchPayload) Encode(encoder scale.Encoder) error {
	body, err := types.EncodeToBytes(dispatchPayloadBody(p))
	if err != nil {
		return err
	}
	if uint64(len(body)) > math.MaxUint32 {
		return fmt.Errorf("dispatch payload of %d bytes is too large", len(body))
	}
	err = encoder.EncodeUintCompact(*big.NewInt(int64(len(body))))
	if err != nil {
		return err
	}
	return encoder.Write(body)
}

func (p *DispatchPayload) Decode(decoder scale.Decoder) error {
	_, err := decoder.DecodeUintCompact()
	if err != nil {
		return err
	}
	err = decoder.Decode(&p.Location)
	if err != nil {
		return err
	}
	return decoder.Decode(&p.Program)
}

func EncodeDispatchPayload(payload DispatchPayload) (MessagePayload, error) {
	return types.EncodeToBytes(payload)
}

func DecodeDispatchPayload(data MessagePayload) (*DispatchPayload, error) {
	var payload DispatchPayload
	err := types.DecodeFromBytes(data, &payload)
	if err != nil {
		return nil, fmt.Errorf("decode dispatch payload: %w", err)
	}
	return &payload, nil
}
