// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package config

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/snowfork/bridge-messages/bridge"
	"github.com/snowfork/bridge-messages/messages"
)

// HexHookFunc decodes lane and chain ids. Both may be given as a four
// character name, like "dsbl", or as hex, like "0x00000001".
func HexHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		// Check that the data is string
		if f.Kind() != reflect.String {
			return data, nil
		}

		// Check that the target type is one of our custom types
		if t != reflect.TypeOf(messages.LaneID{}) && t != reflect.TypeOf(bridge.ChainID{}) {
			return data, nil
		}

		out, err := decodeID(data.(string))
		if err != nil {
			return nil, err
		}

		if t == reflect.TypeOf(bridge.ChainID{}) {
			return bridge.ChainID(out), nil
		}
		return messages.LaneID(out), nil
	}
}

func decodeID(s string) ([4]byte, error) {
	var out [4]byte
	if !strings.HasPrefix(s, "0x") && len(s) == len(out) {
		copy(out[:], s)
		return out, nil
	}

	b, err := HexDecodeString(s)
	if err != nil {
		return out, err
	}
	if len(b) != len(out) {
		return out, fmt.Errorf("id %q must be %d bytes long", s, len(out))
	}

	copy(out[:], b)
	return out, nil
}

// HexDecodeString decodes bytes from a hex string. Contrary to hex.DecodeString, this function does not error if "0x"
// is prefixed, and adds an extra 0 if the hex string has an odd length.
func HexDecodeString(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")

	if len(s)%2 != 0 {
		s = "0" + s
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}

	return b, nil
}
