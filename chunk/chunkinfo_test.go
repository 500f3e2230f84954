package chunk_test

import (
	"encoding/json"
	"testing"

	"github.com/0xPolygon/zkbatcher/chunk"
	"github.com/0xPolygon/zkbatcher/witness"
	"github.com/0xPolygon/zkbatcher/witness/tracetest"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestFromWitness(t *testing.T) {
	gen := tracetest.NewGenerator(534352)
	gen.L1MsgsPerBlock = 1
	traces := gen.Blocks(2, 3, 4)

	block, err := witness.NewTraceBuilder().BuildWitness(traces, witness.ModeFull)
	require.NoError(t, err)

	info, err := chunk.FromWitness(block, 534352)
	require.NoError(t, err)
	require.Equal(t, uint64(534352), info.ChainID)
	require.Equal(t, block.PrevStateRoot, info.PrevStateRoot)
	require.Equal(t, block.PostStateRoot, info.PostStateRoot)
	require.Equal(t, block.WithdrawRoot, info.WithdrawRoot)
	require.Equal(t, crypto.Keccak256Hash(block.DataHashPreimage()), info.DataHash)
	require.Equal(t, block.TxBytes(), []byte(info.TxBytes))
	require.False(t, info.IsPadding)

	again, err := chunk.FromWitness(block, 534352)
	require.NoError(t, err)
	require.Equal(t, info.PIHash(), again.PIHash())

	_, err = chunk.FromWitness(block, 1)
	require.ErrorIs(t, err, chunk.ErrChainIDMismatch)

	_, err = chunk.FromWitness(&witness.Block{}, 1)
	require.ErrorIs(t, err, witness.ErrMalformedTrace)
}

func TestPIHash(t *testing.T) {
	info := &chunk.ChunkInfo{
		ChainID:       0x0102030405060708,
		PrevStateRoot: common.HexToHash("0x11"),
		PostStateRoot: common.HexToHash("0x22"),
		WithdrawRoot:  common.HexToHash("0x33"),
		DataHash:      common.HexToHash("0x44"),
	}

	preimage := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	preimage = append(preimage, info.PrevStateRoot.Bytes()...)
	preimage = append(preimage, info.PostStateRoot.Bytes()...)
	preimage = append(preimage, info.WithdrawRoot.Bytes()...)
	preimage = append(preimage, info.DataHash.Bytes()...)
	require.Len(t, preimage, 136)
	require.Equal(t, crypto.Keccak256Hash(preimage), info.PIHash())

	// tx bytes and padding flag are not part of the commitment
	info.TxBytes = []byte{1, 2, 3}
	info.IsPadding = true
	require.Equal(t, crypto.Keccak256Hash(preimage), info.PIHash())
}

func TestPaddingChunkInfo(t *testing.T) {
	last := &chunk.ChunkInfo{
		ChainID:       1,
		PrevStateRoot: common.HexToHash("0x01"),
		PostStateRoot: common.HexToHash("0x02"),
		WithdrawRoot:  common.HexToHash("0x03"),
		DataHash:      common.HexToHash("0x04"),
		TxBytes:       []byte{0xaa},
	}
	padding := chunk.NewPaddingChunkInfo(last)
	require.True(t, padding.IsPadding)
	require.Equal(t, last.PostStateRoot, padding.PrevStateRoot)
	require.Equal(t, last.PostStateRoot, padding.PostStateRoot)
	require.Equal(t, last.WithdrawRoot, padding.WithdrawRoot)
	require.Equal(t, last.DataHash, padding.DataHash)
	require.Equal(t, last.ChainID, padding.ChainID)
	require.Empty(t, padding.TxBytes)
	require.False(t, last.IsPadding)
}

func TestChunkInfoJSON(t *testing.T) {
	info := &chunk.ChunkInfo{ChainID: 1, TxBytes: []byte{0xab}, IsPadding: true}
	raw, err := json.Marshal(info)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	for _, name := range []string{"chain_id", "prev_state_root", "post_state_root", "withdraw_root", "data_hash", "tx_bytes", "is_padding"} {
		require.Contains(t, fields, name)
	}
	require.Equal(t, "0xab", fields["tx_bytes"])
}
