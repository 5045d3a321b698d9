package target

import (
	"math"
	"testing"

	"github.com/snowfork/go-substrate-rpc-client/v4/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snowfork/bridge-messages/bridge"
	"github.com/snowfork/bridge-messages/chain/headerchain"
	"github.com/snowfork/bridge-messages/crypto/storageproof"
	"github.com/snowfork/bridge-messages/messages"
	"github.com/snowfork/bridge-messages/messages/generation"
)

const testPalletName = "BridgeMessages"

var testLane = messages.LaneID{0, 0, 0, 1}

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

type proofOptions struct {
	outboundLaneData *messages.OutboundLaneData
	encodeMessage    generation.MessageEncoder
	encodeLaneData   generation.OutboundLaneDataEncoder
}

// usingMessagesProof builds a proof of messages 1..=noncesEnd, imports a
// finalized header with its state root and passes the proof to test.
func usingMessagesProof(
	t *testing.T,
	noncesEnd messages.MessageNonce,
	opts proofOptions,
	test func(b *bridge.MessageBridge, proof *messages.FromBridgedChainMessagesProof),
) {
	b, store := newTestBridge(t)

	root, storageProof, err := generation.PrepareMessagesStorageProof(&generation.MessagesProofParams{
		PalletName:             testPalletName,
		Lane:                   testLane,
		Nonces:                 messages.NonceRange{Begin: 1, End: noncesEnd},
		OutboundLaneData:       opts.outboundLaneData,
		Payload:                []byte{42},
		EncodeMessage:          opts.encodeMessage,
		EncodeOutboundLaneData: opts.encodeLaneData,
	})
	require.NoError(t, err)

	hash, err := store.ImportFinalizedHeader(&types.Header{
		Number:    types.BlockNumber(0),
		StateRoot: types.Hash(root),
		Digest:    types.Digest{},
	})
	require.NoError(t, err)

	test(b, &messages.FromBridgedChainMessagesProof{
		BridgedHeaderHash: hash,
		StorageProof:      storageProof,
		Lane:              testLane,
		NoncesStart:       1,
		NoncesEnd:         noncesEnd,
	})
}

func TestBounds(t *testing.T) {
	assert.Equal(t, uint32(66), MaximalIncomingMessageSize(100))
	assert.Equal(t, uint32(0), MaximalIncomingMessageSize(2))
	assert.Equal(t, uint32(math.MaxUint32/3*2), MaximalIncomingMessageSize(math.MaxUint32))

	assert.Equal(t, messages.NewWeight(50, 7), MaximalIncomingMessageDispatchWeight(messages.NewWeight(100, 15)))
}

func TestMessagesProofIsRejectedIfDeclaredLessThanActualNumberOfMessages(t *testing.T) {
	usingMessagesProof(t, 10, proofOptions{}, func(b *bridge.MessageBridge, proof *messages.FromBridgedChainMessagesProof) {
		_, err := VerifyMessagesProof(b, proof, 5)
		require.ErrorIs(t, err, messages.ErrMessagesCountMismatch)
	})
}

func TestMessagesProofIsRejectedIfDeclaredMoreThanActualNumberOfMessages(t *testing.T) {
	usingMessagesProof(t, 10, proofOptions{}, func(b *bridge.MessageBridge, proof *messages.FromBridgedChainMessagesProof) {
		_, err := VerifyMessagesProof(b, proof, 15)
		require.ErrorIs(t, err, messages.ErrMessagesCountMismatch)
	})
}

func TestMessagesProofIsRejectedIfHeaderIsMissingFromTheChain(t *testing.T) {
	usingMessagesProof(t, 10, proofOptions{}, func(b *bridge.MessageBridge, proof *messages.FromBridgedChainMessagesProof) {
		store := b.BridgedHeaderChain.(*headerchain.Store)
		require.NoError(t, store.RemoveHeader(proof.BridgedHeaderHash))

		_, err := VerifyMessagesProof(b, proof, 10)
		require.True(t, messages.IsKind(err, messages.HeaderChain))
		require.ErrorIs(t, err, headerchain.ErrUnknownHeader)
	})
}

func TestMessagesProofIsRejectedIfHeaderStateRootMismatches(t *testing.T) {
	usingMessagesProof(t, 10, proofOptions{}, func(b *bridge.MessageBridge, proof *messages.FromBridgedChainMessagesProof) {
		store := b.BridgedHeaderChain.(*headerchain.Store)
		hash, err := store.ImportFinalizedHeader(&types.Header{
			Number:    types.BlockNumber(1),
			StateRoot: types.NewHash([]byte{1}),
			Digest:    types.Digest{},
		})
		require.NoError(t, err)
		proof.BridgedHeaderHash = hash

		_, err = VerifyMessagesProof(b, proof, 10)
		require.True(t, messages.IsKind(err, messages.HeaderChain))
		require.ErrorIs(t, err, storageproof.ErrStorageRootMismatch)
	})
}

func TestMessagesProofIsRejectedIfItHasDuplicateTrieNodes(t *testing.T) {
	usingMessagesProof(t, 10, proofOptions{}, func(b *bridge.MessageBridge, proof *messages.FromBridgedChainMessagesProof) {
		proof.StorageProof = append(proof.StorageProof, proof.StorageProof[0])

		_, err := VerifyMessagesProof(b, proof, 10)
		require.True(t, messages.IsKind(err, messages.HeaderChain))
		require.ErrorIs(t, err, storageproof.ErrDuplicateNodesInProof)
	})
}

func TestMessagesProofIsRejectedIfItHasUnusedTrieNodes(t *testing.T) {
	usingMessagesProof(t, 10, proofOptions{}, func(b *bridge.MessageBridge, proof *messages.FromBridgedChainMessagesProof) {
		proof.StorageProof = append(proof.StorageProof, []byte{42})

		_, err := VerifyMessagesProof(b, proof, 10)
		require.True(t, messages.IsKind(err, messages.StorageProof))
		require.ErrorIs(t, err, storageproof.ErrUnusedNodesInTheProof)
	})
}

func TestMessagesProofIsRejectedIfRequiredMessageIsMissing(t *testing.T) {
	skipFifth := func(nonce messages.MessageNonce, payload messages.MessagePayload) ([]byte, error) {
		if nonce == 5 {
			return nil, nil
		}
		return generation.EncodeAllMessages(nonce, payload)
	}

	usingMessagesProof(t, 10, proofOptions{encodeMessage: skipFifth}, func(b *bridge.MessageBridge, proof *messages.FromBridgedChainMessagesProof) {
		proved, err := VerifyMessagesProof(b, proof, 10)
		require.True(t, messages.IsKind(err, messages.MessageStorage))
		require.ErrorIs(t, err, storageproof.ErrStorageValueEmpty)
		require.Nil(t, proved)
	})
}

func TestMessagesProofIsRejectedIfMessageDecodeFails(t *testing.T) {
	truncateFifth := func(nonce messages.MessageNonce, payload messages.MessagePayload) ([]byte, error) {
		encoded, err := generation.EncodeAllMessages(nonce, payload)
		if err != nil {
			return nil, err
		}
		if nonce == 5 {
			// the compact length announces one byte more than is left
			encoded = encoded[:1]
		}
		return encoded, nil
	}

	usingMessagesProof(t, 10, proofOptions{encodeMessage: truncateFifth}, func(b *bridge.MessageBridge, proof *messages.FromBridgedChainMessagesProof) {
		_, err := VerifyMessagesProof(b, proof, 10)
		require.True(t, messages.IsKind(err, messages.MessageStorage))
		require.ErrorIs(t, err, storageproof.ErrStorageValueDecodeFailed)
	})
}

func TestMessagesProofToleratesUndecodableOutboundLaneState(t *testing.T) {
	truncate := func(data *messages.OutboundLaneData) ([]byte, error) {
		encoded, err := generation.EncodeLaneData(data)
		if err != nil {
			return nil, err
		}
		return encoded[:1], nil
	}
	opts := proofOptions{
		outboundLaneData: &messages.OutboundLaneData{OldestUnprunedNonce: 1, LatestReceivedNonce: 1, LatestGeneratedNonce: 1},
		encodeLaneData:   truncate,
	}

	usingMessagesProof(t, 10, opts, func(b *bridge.MessageBridge, proof *messages.FromBridgedChainMessagesProof) {
		proved, err := VerifyMessagesProof(b, proof, 10)
		require.NoError(t, err)
		assert.Nil(t, proved[testLane].LaneState)
		assert.Len(t, proved[testLane].Messages, 10)
	})
}

func TestMessagesProofIsRejectedIfItIsEmpty(t *testing.T) {
	usingMessagesProof(t, 0, proofOptions{}, func(b *bridge.MessageBridge, proof *messages.FromBridgedChainMessagesProof) {
		_, err := VerifyMessagesProof(b, proof, 0)
		require.ErrorIs(t, err, messages.ErrEmptyMessageProof)
	})
}

func TestNonEmptyMessageProofWithoutMessagesIsAccepted(t *testing.T) {
	laneState := &messages.OutboundLaneData{OldestUnprunedNonce: 1, LatestReceivedNonce: 1, LatestGeneratedNonce: 1}

	usingMessagesProof(t, 0, proofOptions{outboundLaneData: laneState}, func(b *bridge.MessageBridge, proof *messages.FromBridgedChainMessagesProof) {
		proved, err := VerifyMessagesProof(b, proof, 0)
		require.NoError(t, err)
		assert.Equal(t, messages.ProvedMessages{
			testLane: messages.ProvedLaneMessages{
				LaneState: laneState,
				Messages:  []messages.Message{},
			},
		}, proved)
	})
}

func TestLaneStateOnlyProofWithNonZeroDeclaredCount(t *testing.T) {
	laneState := &messages.OutboundLaneData{OldestUnprunedNonce: 1, LatestReceivedNonce: 1, LatestGeneratedNonce: 1}

	// an inverted nonce range proves no messages, whatever count is declared
	usingMessagesProof(t, 0, proofOptions{outboundLaneData: laneState}, func(b *bridge.MessageBridge, proof *messages.FromBridgedChainMessagesProof) {
		proved, err := VerifyMessagesProof(b, proof, 5)
		require.NoError(t, err)
		assert.Empty(t, proved[testLane].Messages)
		assert.Equal(t, laneState, proved[testLane].LaneState)
	})
}

func TestNonEmptyMessageProofIsAccepted(t *testing.T) {
	laneState := &messages.OutboundLaneData{OldestUnprunedNonce: 1, LatestReceivedNonce: 1, LatestGeneratedNonce: 1}

	usingMessagesProof(t, 1, proofOptions{outboundLaneData: laneState}, func(b *bridge.MessageBridge, proof *messages.FromBridgedChainMessagesProof) {
		proved, err := VerifyMessagesProof(b, proof, 1)
		require.NoError(t, err)
		assert.Equal(t, messages.ProvedMessages{
			testLane: messages.ProvedLaneMessages{
				LaneState: laneState,
				Messages: []messages.Message{{
					Key:     messages.MessageKey{LaneID: testLane, Nonce: 1},
					Payload: []byte{42},
				}},
			},
		}, proved)
	})
}

func TestMessagesProofRoundTrip(t *testing.T) {
	laneState := &messages.OutboundLaneData{OldestUnprunedNonce: 1, LatestReceivedNonce: 0, LatestGeneratedNonce: 20}

	usingMessagesProof(t, 20, proofOptions{outboundLaneData: laneState}, func(b *bridge.MessageBridge, proof *messages.FromBridgedChainMessagesProof) {
		proved, err := NewSourceHeaderChainAdapter(b).VerifyMessagesProof(proof, 20)
		require.NoError(t, err)
		require.Len(t, proved, 1)

		lane := proved[testLane]
		assert.Equal(t, laneState, lane.LaneState)
		require.Len(t, lane.Messages, 20)
		for i, message := range lane.Messages {
			assert.Equal(t, messages.MessageNonce(i+1), message.Key.Nonce)
			assert.Equal(t, testLane, message.Key.LaneID)
			assert.Equal(t, []byte{42}, message.Payload)
		}
	})
}

func TestMessagesProofWithoutLaneStateIsAccepted(t *testing.T) {
	usingMessagesProof(t, 3, proofOptions{}, func(b *bridge.MessageBridge, proof *messages.FromBridgedChainMessagesProof) {
		proved, err := VerifyMessagesProof(b, proof, 3)
		require.NoError(t, err)
		assert.Nil(t, proved[testLane].LaneState)
		assert.Len(t, proved[testLane].Messages, 3)
	})
}

func TestMessagesProofIsRejectedIfNoncesRangeOverflowsCount(t *testing.T) {
	usingMessagesProof(t, 0, proofOptions{}, func(b *bridge.MessageBridge, proof *messages.FromBridgedChainMessagesProof) {
		proof.NoncesEnd = math.MaxUint64

		_, err := VerifyMessagesProof(b, proof, math.MaxUint32)
		require.ErrorIs(t, err, messages.ErrMessagesCountMismatch)
	})
}
