package chunk

import (
	"errors"
	"fmt"

	zkcommon "github.com/0xPolygon/zkbatcher/common"
	"github.com/0xPolygon/zkbatcher/witness"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrChainIDMismatch is returned when the witness belongs to another chain
var ErrChainIDMismatch = errors.New("chain id mismatch")

// ChunkInfo is the public commitment of one chunk. It is sent to the prover as a
// sidecar of the chunk proof.
type ChunkInfo struct {
	ChainID       uint64        `json:"chain_id"`
	PrevStateRoot common.Hash   `json:"prev_state_root"`
	PostStateRoot common.Hash   `json:"post_state_root"`
	WithdrawRoot  common.Hash   `json:"withdraw_root"`
	DataHash      common.Hash   `json:"data_hash"`
	TxBytes       hexutil.Bytes `json:"tx_bytes"`
	IsPadding     bool          `json:"is_padding"`
}

// FromWitness builds the commitment of the chunk whose witness is block
func FromWitness(block *witness.Block, chainID uint64) (*ChunkInfo, error) {
	if block == nil || len(block.Contexts) == 0 {
		return nil, fmt.Errorf("%w: empty witness", witness.ErrMalformedTrace)
	}
	if block.ChainID != chainID {
		return nil, fmt.Errorf("%w: witness of chain %d, expected %d", ErrChainIDMismatch, block.ChainID, chainID)
	}

	return &ChunkInfo{
		ChainID:       chainID,
		PrevStateRoot: block.PrevStateRoot,
		PostStateRoot: block.PostStateRoot,
		WithdrawRoot:  block.WithdrawRoot,
		DataHash:      crypto.Keccak256Hash(block.DataHashPreimage()),
		TxBytes:       block.TxBytes(),
	}, nil
}

// PIHash returns keccak256(chainID || prevStateRoot || postStateRoot || withdrawRoot || dataHash),
// chainID being 8 bytes big endian
func (c *ChunkInfo) PIHash() common.Hash {
	return zkcommon.CalculatePublicInputHash(c.ChainID, c.PrevStateRoot, c.PostStateRoot, c.WithdrawRoot, c.DataHash)
}

// NewPaddingChunkInfo returns a padding chunk following last: it starts and ends at the
// post state root of last, so it extends any chain of roots ending at last
func NewPaddingChunkInfo(last *ChunkInfo) *ChunkInfo {
	return &ChunkInfo{
		ChainID:       last.ChainID,
		PrevStateRoot: last.PostStateRoot,
		PostStateRoot: last.PostStateRoot,
		WithdrawRoot:  last.WithdrawRoot,
		DataHash:      last.DataHash,
		TxBytes:       hexutil.Bytes{},
		IsPadding:     true,
	}
}

// String is used for logging
func (c *ChunkInfo) String() string {
	return fmt.Sprintf("ChunkInfo{ChainID: %d, PrevStateRoot: %s, PostStateRoot: %s, WithdrawRoot: %s, "+
		"DataHash: %s, TxBytes: %d bytes, IsPadding: %t}",
		c.ChainID, c.PrevStateRoot, c.PostStateRoot, c.WithdrawRoot, c.DataHash, len(c.TxBytes), c.IsPadding)
}
