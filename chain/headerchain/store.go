// Copyright 2021 Snowfork
// SPDX-License-Identifier: LGPL-3.0-only

package headerchain

import (
	"errors"
	"fmt"

	gethCommon "github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"github.com/snowfork/go-substrate-rpc-client/v4/types"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"golang.org/x/crypto/blake2b"
)

var (
	headerPrefix    = []byte("h")
	finalizedPrefix = []byte("f")
	bestFinalized   = []byte("best-finalized")
)

// Store is a leveldb backed set of bridged headers. Only headers imported
// as finalized are used to check storage proofs.
type Store struct {
	db *leveldb.DB
}

// Open opens or creates the store at path. An empty path gives an in-memory store.
func Open(path string) (*Store, error) {
	var db *leveldb.DB
	var err error

	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open header store at %q: %w", path, err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// HeaderHash is the blake2-256 hash of the SCALE encoded header.
func HeaderHash(header *types.Header) (types.Hash, error) {
	encoded, err := types.EncodeToBytes(header)
	if err != nil {
		return types.Hash{}, fmt.Errorf("encode header: %w", err)
	}
	return types.NewHash(blake2bSum256(encoded)), nil
}

func blake2bSum256(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

// ImportHeader stores a header that isn't known to be finalized yet.
func (s *Store) ImportHeader(header *types.Header) (types.Hash, error) {
	hash, err := HeaderHash(header)
	if err != nil {
		return types.Hash{}, err
	}

	encoded, err := types.EncodeToBytes(header)
	if err != nil {
		return types.Hash{}, fmt.Errorf("encode header: %w", err)
	}

	err = s.db.Put(dbKey(headerPrefix, hash), encoded, nil)
	if err != nil {
		return types.Hash{}, fmt.Errorf("store header %s: %w", hash.Hex(), err)
	}

	log.WithFields(log.Fields{
		"hash":   hash.Hex(),
		"number": header.Number,
	}).Debug("Imported header")

	return hash, nil
}

// ImportFinalizedHeader stores the header and marks it as finalized. The best
// finalized header is moved forward if the header is higher.
func (s *Store) ImportFinalizedHeader(header *types.Header) (types.Hash, error) {
	hash, err := s.ImportHeader(header)
	if err != nil {
		return types.Hash{}, err
	}

	batch := new(leveldb.Batch)
	batch.Put(dbKey(finalizedPrefix, hash), []byte{1})

	best, err := s.BestFinalized()
	switch {
	case errors.Is(err, ErrUnknownHeader):
		batch.Put(bestFinalized, hash[:])
	case err != nil:
		return types.Hash{}, err
	case header.Number > best.Number:
		batch.Put(bestFinalized, hash[:])
	}

	err = s.db.Write(batch, nil)
	if err != nil {
		return types.Hash{}, fmt.Errorf("finalize header %s: %w", hash.Hex(), err)
	}

	log.WithFields(log.Fields{
		"hash":   hash.Hex(),
		"number": header.Number,
	}).Info("Imported finalized header")

	return hash, nil
}

func (s *Store) Header(hash types.Hash) (*types.Header, error) {
	data, err := s.db.Get(dbKey(headerPrefix, hash), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrUnknownHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", hash.Hex(), err)
	}

	var header types.Header
	err = types.DecodeFromBytes(data, &header)
	if err != nil {
		return nil, fmt.Errorf("decode header %s: %w", hash.Hex(), err)
	}
	return &header, nil
}

func (s *Store) IsFinalized(hash types.Hash) (bool, error) {
	return s.db.Has(dbKey(finalizedPrefix, hash), nil)
}

// RemoveHeader prunes a header. Proofs against it fail afterwards.
func (s *Store) RemoveHeader(hash types.Hash) error {
	batch := new(leveldb.Batch)
	batch.Delete(dbKey(headerPrefix, hash))
	batch.Delete(dbKey(finalizedPrefix, hash))

	best, err := s.db.Get(bestFinalized, nil)
	if err == nil && types.NewHash(best) == hash {
		batch.Delete(bestFinalized)
	}

	return s.db.Write(batch, nil)
}

// BestFinalized returns the highest finalized header.
func (s *Store) BestFinalized() (*types.Header, error) {
	best, err := s.db.Get(bestFinalized, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrUnknownHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read best finalized header: %w", err)
	}
	return s.Header(types.NewHash(best))
}

// FinalizedStateRoot returns the state root of a finalized header.
func (s *Store) FinalizedStateRoot(hash types.Hash) (gethCommon.Hash, error) {
	finalized, err := s.IsFinalized(hash)
	if err != nil {
		return gethCommon.Hash{}, fmt.Errorf("read finality of %s: %w", hash.Hex(), err)
	}
	if !finalized {
		return gethCommon.Hash{}, ErrUnknownHeader
	}

	header, err := s.Header(hash)
	if err != nil {
		return gethCommon.Hash{}, err
	}
	return gethCommon.Hash(header.StateRoot), nil
}

func dbKey(prefix []byte, hash types.Hash) []byte {
	key := make([]byte, 0, len(prefix)+len(hash))
	key = append(key, prefix...)
	return append(key, hash[:]...)
}
