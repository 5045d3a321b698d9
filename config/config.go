// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package config

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/snowfork/bridge-messages/bridge"
	"github.com/snowfork/bridge-messages/chain/headerchain"
	"github.com/snowfork/bridge-messages/messages"
	"github.com/snowfork/bridge-messages/messages/source"
	"github.com/snowfork/bridge-messages/messages/target"
)

type Config struct {
	ThisChain    ThisChainConfig    `mapstructure:"this-chain"`
	BridgedChain BridgedChainConfig `mapstructure:"bridged-chain"`
	// Name of the messages pallet at the bridged chain
	BridgedMessagesPallet string            `mapstructure:"bridged-messages-pallet"`
	HeaderStore           HeaderStoreConfig `mapstructure:"header-store"`
	Sender                SenderConfig      `mapstructure:"sender"`
}

type WeightConfig struct {
	RefTime   uint64 `mapstructure:"ref-time"`
	ProofSize uint64 `mapstructure:"proof-size"`
}

func (w WeightConfig) Weight() messages.Weight {
	return messages.NewWeight(w.RefTime, w.ProofSize)
}

type ThisChainConfig struct {
	ID                 bridge.ChainID    `mapstructure:"id"`
	MaxExtrinsicSize   uint32            `mapstructure:"max-extrinsic-size"`
	MaxExtrinsicWeight WeightConfig      `mapstructure:"max-extrinsic-weight"`
	DisabledLanes      []messages.LaneID `mapstructure:"disabled-lanes"`
	MaxPendingMessages uint64            `mapstructure:"max-pending-messages"`
}

type BridgedChainConfig struct {
	ID                 bridge.ChainID `mapstructure:"id"`
	MaxExtrinsicSize   uint32         `mapstructure:"max-extrinsic-size"`
	MaxExtrinsicWeight WeightConfig   `mapstructure:"max-extrinsic-weight"`
	BaseDispatchWeight WeightConfig   `mapstructure:"base-dispatch-weight"`
	RefTimePerByte     uint64         `mapstructure:"ref-time-per-byte"`
}

type HeaderStoreConfig struct {
	// Path of the leveldb database. Headers are kept in memory if empty.
	Path string `mapstructure:"path"`
}

type SenderConfig struct {
	Lane messages.LaneID `mapstructure:"lane"`
	// Hex encoded route to the bridged chain
	Route string `mapstructure:"route"`
	// Hex encoded destinations
	Destinations []string `mapstructure:"destinations"`
	Fee          uint64   `mapstructure:"fee"`
}

// Load reads the configuration file. The format is derived from the file extension.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	err := v.Unmarshal(&config, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		HexHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, err
	}

	err = config.Validate()
	if err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.BridgedMessagesPallet == "" {
		return errors.New("bridged-messages-pallet is not set")
	}
	if c.ThisChain.ID == c.BridgedChain.ID {
		return fmt.Errorf("this-chain and bridged-chain have the same id %s", c.ThisChain.ID)
	}
	if c.BridgedChain.MaxExtrinsicSize == 0 {
		return errors.New("bridged-chain.max-extrinsic-size is not set")
	}
	return nil
}

// Bridge builds the message bridge, verifying proofs against the given headers.
func (c *Config) Bridge(headers headerchain.HeaderChain) (*bridge.MessageBridge, error) {
	bridgedMaxWeight := c.BridgedChain.MaxExtrinsicWeight.Weight()

	b := &bridge.MessageBridge{
		ThisChainID:               c.ThisChain.ID,
		BridgedChainID:            c.BridgedChain.ID,
		BridgedMessagesPalletName: c.BridgedMessagesPallet,
		ThisChain: &bridge.StaticThisChain{
			ChainID:            c.ThisChain.ID,
			ExtrinsicSize:      c.ThisChain.MaxExtrinsicSize,
			ExtrinsicWeight:    c.ThisChain.MaxExtrinsicWeight.Weight(),
			DisabledLanes:      c.ThisChain.DisabledLanes,
			MaxPendingMessages: c.ThisChain.MaxPendingMessages,
		},
		BridgedChain: &bridge.StaticBridgedChain{
			ChainID:            c.BridgedChain.ID,
			ExtrinsicSize:      c.BridgedChain.MaxExtrinsicSize,
			ExtrinsicWeight:    bridgedMaxWeight,
			BaseDispatchWeight: c.BridgedChain.BaseDispatchWeight.Weight(),
			RefTimePerByte:     c.BridgedChain.RefTimePerByte,
			MaxDispatchWeight:  target.MaximalIncomingMessageDispatchWeight(bridgedMaxWeight),
		},
		BridgedHeaderChain: headers,
	}

	err := b.Validate()
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (c *SenderConfig) SenderConfig() (*source.SenderConfig, error) {
	route, err := HexDecodeString(c.Route)
	if err != nil {
		return nil, fmt.Errorf("decode route: %w", err)
	}

	destinations := make([][]byte, len(c.Destinations))
	for i, d := range c.Destinations {
		destinations[i], err = HexDecodeString(d)
		if err != nil {
			return nil, fmt.Errorf("decode destination %d: %w", i, err)
		}
	}

	fee := c.Fee
	if fee == 0 {
		fee = source.DefaultFee
	}

	return &source.SenderConfig{
		Lane:         c.Lane,
		Route:        route,
		Destinations: destinations,
		Fee:          fee,
	}, nil
}
