package batchstore

import (
	"time"

	"github.com/0xPolygon/zkbatcher/batch"
	"github.com/0xPolygon/zkbatcher/chunk"
	"github.com/0xPolygon/zkbatcher/rowusage"
	"github.com/ethereum/go-ethereum/common"
)

// ChunkRecord is a stored chunk. BatchIndex is nil until the chunk is assigned to a batch.
type ChunkRecord struct {
	Index         uint64                        `meddler:"chunk_index" json:"index"`
	ChainID       uint64                        `meddler:"chain_id" json:"chain_id"`
	StartBlock    uint64                        `meddler:"start_block" json:"start_block"`
	EndBlock      uint64                        `meddler:"end_block" json:"end_block"`
	NumTxs        uint64                        `meddler:"num_txs" json:"num_txs"`
	PrevStateRoot common.Hash                   `meddler:"prev_state_root,hash" json:"prev_state_root"`
	PostStateRoot common.Hash                   `meddler:"post_state_root,hash" json:"post_state_root"`
	WithdrawRoot  common.Hash                   `meddler:"withdraw_root,hash" json:"withdraw_root"`
	DataHash      common.Hash                   `meddler:"data_hash,hash" json:"data_hash"`
	PIHash        common.Hash                   `meddler:"pi_hash,hash" json:"pi_hash"`
	TxBytes       []byte                        `meddler:"tx_bytes" json:"-"`
	MaxRowUsage   uint64                        `meddler:"max_row_usage" json:"max_row_usage"`
	RowUsage      []rowusage.SubCircuitRowUsage `meddler:"row_usage,json" json:"row_usage"`
	Oversized     bool                          `meddler:"oversized" json:"oversized"`
	BatchIndex    *uint64                       `meddler:"batch_index" json:"batch_index,omitempty"`
	CreatedAt     int64                         `meddler:"created_at" json:"created_at"`
}

// NewChunkRecord returns the record of the chunk c, committed to by info
func NewChunkRecord(index uint64, c *chunk.Chunk, info *chunk.ChunkInfo, numTxs uint64) *ChunkRecord {
	rec := &ChunkRecord{
		Index:         index,
		ChainID:       info.ChainID,
		StartBlock:    c.FirstBlock(),
		EndBlock:      c.LastBlock(),
		NumTxs:        numTxs,
		PrevStateRoot: info.PrevStateRoot,
		PostStateRoot: info.PostStateRoot,
		WithdrawRoot:  info.WithdrawRoot,
		DataHash:      info.DataHash,
		PIHash:        info.PIHash(),
		TxBytes:       info.TxBytes,
		Oversized:     c.Oversized,
		CreatedAt:     time.Now().UTC().Unix(),
	}
	if c.RowUsage != nil {
		rec.MaxRowUsage = c.RowUsage.RowNumber
		rec.RowUsage = c.RowUsage.RowUsageDetails
	}
	return rec
}

// ChunkInfo returns the commitment of the stored chunk
func (r *ChunkRecord) ChunkInfo() *chunk.ChunkInfo {
	return &chunk.ChunkInfo{
		ChainID:       r.ChainID,
		PrevStateRoot: r.PrevStateRoot,
		PostStateRoot: r.PostStateRoot,
		WithdrawRoot:  r.WithdrawRoot,
		DataHash:      r.DataHash,
		TxBytes:       r.TxBytes,
	}
}

// BatchRecord is a stored batch, made of the chunks StartChunk to EndChunk, both included
type BatchRecord struct {
	Index            uint64                 `meddler:"batch_index" json:"index"`
	ChainID          uint64                 `meddler:"chain_id" json:"chain_id"`
	StartChunk       uint64                 `meddler:"start_chunk" json:"start_chunk"`
	EndChunk         uint64                 `meddler:"end_chunk" json:"end_chunk"`
	NumValidChunks   int                    `meddler:"num_valid_chunks" json:"num_valid_chunks"`
	PrevStateRoot    common.Hash            `meddler:"prev_state_root,hash" json:"prev_state_root"`
	PostStateRoot    common.Hash            `meddler:"post_state_root,hash" json:"post_state_root"`
	WithdrawRoot     common.Hash            `meddler:"withdraw_root,hash" json:"withdraw_root"`
	DataHash         common.Hash            `meddler:"data_hash,hash" json:"data_hash"`
	PublicInputHash  common.Hash            `meddler:"public_input_hash,hash" json:"public_input_hash"`
	CompressedSize   int                    `meddler:"compressed_size" json:"compressed_size"`
	UncompressedSize int                    `meddler:"uncompressed_size" json:"uncompressed_size"`
	Oversized        bool                   `meddler:"oversized" json:"oversized"`
	PointEvaluation  *batch.PointEvaluation `meddler:"point_evaluation,json" json:"point_evaluation,omitempty"`
	CreatedAt        int64                  `meddler:"created_at" json:"created_at"`
}

// NewBatchRecord returns the record of the batch b, committed to by hash.
// The chunks of the batch are numbered from startChunk.
func NewBatchRecord(index, startChunk uint64, b *batch.Batch, hash *batch.BatchHash) *BatchRecord {
	return &BatchRecord{
		Index:            index,
		ChainID:          hash.ChainID,
		StartChunk:       startChunk,
		EndChunk:         startChunk + uint64(len(b.Chunks)) - 1,
		NumValidChunks:   hash.NumValidChunks,
		PrevStateRoot:    hash.PrevStateRoot(),
		PostStateRoot:    hash.PostStateRoot(),
		WithdrawRoot:     hash.WithdrawRoot(),
		DataHash:         hash.DataHash,
		PublicInputHash:  hash.PublicInputHash,
		CompressedSize:   b.CompressedSize,
		UncompressedSize: b.UncompressedSize,
		Oversized:        b.Oversized,
		PointEvaluation:  hash.PointEvaluation,
		CreatedAt:        time.Now().UTC().Unix(),
	}
}
