package cmd

import (
	"context"
	"testing"

	"github.com/snowfork/go-substrate-rpc-client/v4/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowfork/bridge-messages/bridge"
	"github.com/snowfork/bridge-messages/chain/headerchain"
	"github.com/snowfork/bridge-messages/messages"
	"github.com/snowfork/bridge-messages/messages/generation"
)

const testPalletName = "BridgeMessages"

func newTestBridge(t *testing.T) (*bridge.MessageBridge, *headerchain.Store) {
	store, err := headerchain.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &bridge.MessageBridge{
		ThisChainID:               bridge.ChainID{'t', 'h', 'i', 's'},
		BridgedChainID:            bridge.ChainID{'b', 'r', 'd', 'g'},
		BridgedMessagesPalletName: testPalletName,
		ThisChain:                 &bridge.StaticThisChain{ChainID: bridge.ChainID{'t', 'h', 'i', 's'}},
		BridgedChain:              &bridge.StaticBridgedChain{ChainID: bridge.ChainID{'b', 'r', 'd', 'g'}},
		BridgedHeaderChain:        store,
	}, store
}

func batchEntry(t *testing.T, store *headerchain.Store, lane messages.LaneID, number uint32, count uint64) BatchEntry {
	root, storageProof, err := generation.PrepareMessagesStorageProof(&generation.MessagesProofParams{
		PalletName: testPalletName,
		Lane:       lane,
		Nonces:     messages.NonceRange{Begin: 1, End: count},
		Payload:    []byte{1, 2, 3},
	})
	require.NoError(t, err)

	header, hash, err := fixtureHeader(number, types.Hash(root))
	require.NoError(t, err)
	_, err = store.ImportFinalizedHeader(header)
	require.NoError(t, err)

	proof := &messages.FromBridgedChainMessagesProof{
		BridgedHeaderHash: hash,
		StorageProof:      storageProof,
		Lane:              lane,
		NoncesStart:       1,
		NoncesEnd:         count,
	}
	return BatchEntry{MessagesCount: uint32(count), Proof: proof.ToJSON()}
}

func TestVerifyBatch(t *testing.T) {
	b, store := newTestBridge(t)

	batch := []BatchEntry{
		batchEntry(t, store, messages.LaneID{0, 0, 0, 1}, 1, 3),
		batchEntry(t, store, messages.LaneID{0, 0, 0, 2}, 2, 5),
	}

	results, err := verifyBatch(context.Background(), b, batch)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Len(t, results[0][messages.LaneID{0, 0, 0, 1}].Messages, 3)
	assert.Len(t, results[1][messages.LaneID{0, 0, 0, 2}].Messages, 5)

	lanes := provedToJSON(results[1])
	require.Len(t, lanes, 1)
	assert.Equal(t, "0x00000002", lanes[0].Lane)
	assert.Equal(t, uint64(5), lanes[0].Messages[4].Nonce)
	assert.Equal(t, "0x010203", lanes[0].Messages[4].Payload)
}

func TestVerifyBatchIsRejectedIfAnyProofIsInvalid(t *testing.T) {
	b, store := newTestBridge(t)

	invalid := batchEntry(t, store, messages.LaneID{0, 0, 0, 2}, 2, 5)
	invalid.MessagesCount = 4

	batch := []BatchEntry{
		batchEntry(t, store, messages.LaneID{0, 0, 0, 1}, 1, 3),
		invalid,
	}

	_, err := verifyBatch(context.Background(), b, batch)
	require.Error(t, err)
	assert.ErrorIs(t, err, messages.ErrMessagesCountMismatch)
}
