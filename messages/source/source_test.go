package source

import (
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

const (
	testPalletName         = "BridgeMessages"
	maxPendingMessages     = 10
	bridgedMaxExtrinsicLen = 1024
)

var (
	testLane     = messages.LaneID{0, 0, 0, 1}
	disabledLane = messages.LaneID{'d', 's', 'b', 'l'}
)

func newTestBridge(t *testing.T) (*bridge.MessageBridge, *headerchain.Store) {
	store, err := headerchain.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &bridge.MessageBridge{
		ThisChainID:               bridge.ChainID{'t', 'h', 'i', 's'},
		BridgedChainID:            bridge.ChainID{'b', 'r', 'd', 'g'},
		BridgedMessagesPalletName: testPalletName,
		ThisChain: &bridge.StaticThisChain{
			ChainID:            bridge.ChainID{'t', 'h', 'i', 's'},
			DisabledLanes:      []messages.LaneID{disabledLane},
			MaxPendingMessages: maxPendingMessages,
		},
		BridgedChain: &bridge.StaticBridgedChain{
			ChainID:            bridge.ChainID{'b', 'r', 'd', 'g'},
			ExtrinsicSize:      bridgedMaxExtrinsicLen,
			BaseDispatchWeight: messages.NewWeight(100, 0),
			RefTimePerByte:     1,
			MaxDispatchWeight:  messages.NewWeight(100+2048, 0),
		},
		BridgedHeaderChain: store,
	}, store
}

func TestMessageIsRejectedWhenSentUsingDisabledLane(t *testing.T) {
	b, _ := newTestBridge(t)
	outbound := messages.DefaultOutboundLaneData()

	err := NewLaneVerifier(b).VerifyMessage(messages.Root(), disabledLane, &outbound, []byte{42})
	require.ErrorIs(t, err, ErrMessageRejectedByOutboundLane)
}

func TestMessageIsRejectedWhenThereAreTooManyPendingMessagesAtOutboundLane(t *testing.T) {
	b, _ := newTestBridge(t)
	outbound := messages.OutboundLaneData{
		LatestReceivedNonce:  100,
		LatestGeneratedNonce: 100 + maxPendingMessages + 1,
	}

	err := NewLaneVerifier(b).VerifyMessage(messages.Root(), testLane, &outbound, []byte{42})
	require.ErrorIs(t, err, ErrTooManyPendingMessages)
}

func TestMessageIsAcceptedAtPendingCeiling(t *testing.T) {
	b, _ := newTestBridge(t)
	outbound := messages.OutboundLaneData{
		LatestReceivedNonce:  100,
		LatestGeneratedNonce: 100 + maxPendingMessages,
	}

	err := NewLaneVerifier(b).VerifyMessage(messages.Root(), testLane, &outbound, []byte{42})
	require.NoError(t, err)
}

func TestMessageIsAcceptedWhenLaneBookkeepingIsInconsistent(t *testing.T) {
	b, _ := newTestBridge(t)
	outbound := messages.OutboundLaneData{LatestReceivedNonce: 100, LatestGeneratedNonce: 50}

	err := NewLaneVerifier(b).VerifyMessage(messages.Root(), testLane, &outbound, []byte{42})
	require.NoError(t, err)
}

func TestVerifyChainMessage(t *testing.T) {
	b, _ := newTestBridge(t)
	maxSize := MaximalMessageSize(b)
	assert.Equal(t, uint32(bridgedMaxExtrinsicLen/3*2), maxSize)

	t.Run("accepts maximal message", func(t *testing.T) {
		require.NoError(t, VerifyChainMessage(b, make([]byte, maxSize)))
	})

	t.Run("rejects too large message", func(t *testing.T) {
		require.ErrorIs(t, VerifyChainMessage(b, make([]byte, maxSize+1)), messages.ErrMessageTooLarge)
	})

	t.Run("rejects message with too large dispatch weight", func(t *testing.T) {
		require.ErrorIs(t, VerifyChainMessage(b, make([]byte, 2049)), messages.ErrInvalidMessageWeight)
	})

	t.Run("adapter", func(t *testing.T) {
		require.NoError(t, NewTargetHeaderChainAdapter(b).VerifyMessage([]byte{42}))
	})
}

// usingDeliveryProof builds a delivery proof of the inbound lane state and
// imports a finalized header with its state root.
func usingDeliveryProof(
	t *testing.T,
	test func(b *bridge.MessageBridge, store *headerchain.Store, proof *messages.FromBridgedChainMessagesDeliveryProof),
) {
	b, store := newTestBridge(t)

	root, storageProof, err := generation.PrepareMessagesDeliveryStorageProof(testPalletName, testLane, testInboundLaneData())
	require.NoError(t, err)

	hash, err := store.ImportFinalizedHeader(&types.Header{
		Number:    types.BlockNumber(0),
		StateRoot: types.Hash(root),
		Digest:    types.Digest{},
	})
	require.NoError(t, err)

	test(b, store, &messages.FromBridgedChainMessagesDeliveryProof{
		BridgedHeaderHash: hash,
		StorageProof:      storageProof,
		Lane:              testLane,
	})
}

func testInboundLaneData() *messages.InboundLaneData {
	return &messages.InboundLaneData{
		Relayers: []messages.UnrewardedRelayer{
			{Relayer: messages.AccountID{1}, Messages: messages.DeliveredMessages{Begin: 1, End: 5}},
			{Relayer: messages.AccountID{2}, Messages: messages.DeliveredMessages{Begin: 6, End: 6}},
		},
		LastConfirmedNonce: 0,
	}
}

func TestDeliveryProofIsAccepted(t *testing.T) {
	usingDeliveryProof(t, func(b *bridge.MessageBridge, _ *headerchain.Store, proof *messages.FromBridgedChainMessagesDeliveryProof) {
		lane, data, err := NewTargetHeaderChainAdapter(b).VerifyMessagesDeliveryProof(proof)
		require.NoError(t, err)
		assert.Equal(t, testLane, lane)
		assert.Equal(t, testInboundLaneData(), data)
		assert.Equal(t, messages.MessageNonce(6), data.LastDeliveredNonce())
	})
}

func TestDeliveryProofIsRejectedIfHeaderIsMissing(t *testing.T) {
	usingDeliveryProof(t, func(b *bridge.MessageBridge, store *headerchain.Store, proof *messages.FromBridgedChainMessagesDeliveryProof) {
		require.NoError(t, store.RemoveHeader(proof.BridgedHeaderHash))

		_, _, err := VerifyMessagesDeliveryProof(b, proof)
		require.True(t, messages.IsKind(err, messages.HeaderChain))
		require.ErrorIs(t, err, headerchain.ErrUnknownHeader)
	})
}

func TestDeliveryProofIsRejectedIfItHasUnusedNodes(t *testing.T) {
	usingDeliveryProof(t, func(b *bridge.MessageBridge, _ *headerchain.Store, proof *messages.FromBridgedChainMessagesDeliveryProof) {
		proof.StorageProof = append(proof.StorageProof, []byte{42})

		_, _, err := VerifyMessagesDeliveryProof(b, proof)
		require.True(t, messages.IsKind(err, messages.StorageProof))
		require.ErrorIs(t, err, storageproof.ErrUnusedNodesInTheProof)
	})
}

func TestDeliveryProofIsRejectedIfItHasDuplicateNodes(t *testing.T) {
	usingDeliveryProof(t, func(b *bridge.MessageBridge, _ *headerchain.Store, proof *messages.FromBridgedChainMessagesDeliveryProof) {
		proof.StorageProof = append(proof.StorageProof, proof.StorageProof[0])

		_, _, err := VerifyMessagesDeliveryProof(b, proof)
		require.True(t, messages.IsKind(err, messages.HeaderChain))
		require.ErrorIs(t, err, storageproof.ErrDuplicateNodesInProof)
	})
}

func TestDeliveryProofIsRejectedForOtherLane(t *testing.T) {
	usingDeliveryProof(t, func(b *bridge.MessageBridge, _ *headerchain.Store, proof *messages.FromBridgedChainMessagesDeliveryProof) {
		proof.Lane = messages.LaneID{0, 0, 0, 2}

		_, _, err := VerifyMessagesDeliveryProof(b, proof)
		require.True(t, messages.IsKind(err, messages.InboundLaneStorage))
	})
}

func TestForbidOutboundMessages(t *testing.T) {
	forbid := ForbidOutboundMessages{}

	require.ErrorIs(t, forbid.VerifyMessage([]byte{42}), messages.ErrAllOutboundMessagesRejected)

	outbound := messages.DefaultOutboundLaneData()
	err := forbid.LaneVerifier().VerifyMessage(messages.Root(), testLane, &outbound, []byte{42})
	require.ErrorIs(t, err, messages.ErrAllOutboundMessagesRejected)

	_, _, err = forbid.VerifyMessagesDeliveryProof(&messages.FromBridgedChainMessagesDeliveryProof{Lane: testLane})
	require.ErrorIs(t, err, messages.ErrAllOutboundMessagesRejected)

	assert.Equal(t, messages.MessageNonce(0), forbid.PayRewards(testLane, nil, messages.AccountID{}, messages.NonceRange{Begin: 1, End: 2}))
}
