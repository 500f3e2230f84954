package batch

import (
	"errors"
	"fmt"

	"github.com/0xPolygon/zkbatcher/chunk"
	zkcommon "github.com/0xPolygon/zkbatcher/common"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrEmptyBatch is returned when constructing a batch without real chunks
	ErrEmptyBatch = errors.New("empty batch")
	// ErrBrokenChain is returned when the post state root of a chunk isn't the prev state root
	// of the next one, or padding chunks are misplaced
	ErrBrokenChain = errors.New("broken chain of state roots")
	// ErrChainIDMismatch is returned when the chunks of a batch belong to different chains
	ErrChainIDMismatch = errors.New("chain id mismatch")
)

// BatchHash is the public commitment of a batch. DataHash and PublicInputHash are computed
// over the real chunks only; ChunksWithPadding holds maxAggSnarks slots for the aggregation circuit.
type BatchHash struct {
	ChainID           uint64             `json:"chain_id"`
	NumValidChunks    int                `json:"num_valid_chunks"`
	ChunksWithPadding []*chunk.ChunkInfo `json:"chunks_with_padding"`
	DataHash          common.Hash        `json:"data_hash"`
	PublicInputHash   common.Hash        `json:"public_input_hash"`
	PointEvaluation   *PointEvaluation   `json:"point_evaluation,omitempty"`
}

// Construct builds the commitment of chunks. Trailing padding chunks are accepted and
// ignored, so constructing over a padded sequence gives the same hashes as over its
// real prefix.
func Construct(chunks []*chunk.ChunkInfo, maxAggSnarks int) (*BatchHash, error) {
	realChunks, err := realPrefix(chunks)
	if err != nil {
		return nil, err
	}
	if len(realChunks) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(realChunks) > maxAggSnarks {
		return nil, fmt.Errorf("%w: %d chunks, max %d", ErrTooManyChunks, len(realChunks), maxAggSnarks)
	}
	if err := CheckChain(chunks); err != nil {
		return nil, err
	}

	first, last := realChunks[0], realChunks[len(realChunks)-1]

	dataHashes := make([]common.Hash, len(realChunks))
	for i, c := range realChunks {
		dataHashes[i] = c.DataHash
	}
	dataHash := zkcommon.HashConcat(dataHashes...)

	slots := make([]*chunk.ChunkInfo, 0, maxAggSnarks)
	slots = append(slots, realChunks...)
	for len(slots) < maxAggSnarks {
		slots = append(slots, chunk.NewPaddingChunkInfo(last))
	}

	return &BatchHash{
		ChainID:           first.ChainID,
		NumValidChunks:    len(realChunks),
		ChunksWithPadding: slots,
		DataHash:          dataHash,
		PublicInputHash: zkcommon.CalculatePublicInputHash(
			first.ChainID, first.PrevStateRoot, last.PostStateRoot, last.WithdrawRoot, dataHash),
	}, nil
}

// realPrefix returns the chunks before the first padding one. Once padding starts
// every following chunk must be padding.
func realPrefix(chunks []*chunk.ChunkInfo) ([]*chunk.ChunkInfo, error) {
	for i, c := range chunks {
		if c == nil {
			return nil, fmt.Errorf("%w: chunk %d is nil", ErrBrokenChain, i)
		}
		if !c.IsPadding {
			continue
		}
		for j := i + 1; j < len(chunks); j++ {
			if chunks[j] == nil || !chunks[j].IsPadding {
				return nil, fmt.Errorf("%w: real chunk %d after padding chunk %d", ErrBrokenChain, j, i)
			}
		}
		return chunks[:i], nil
	}
	return chunks, nil
}

// CheckChain verifies every adjacent pair of chunks shares the chain id and links
// post state root to prev state root
func CheckChain(chunks []*chunk.ChunkInfo) error {
	for i := 1; i < len(chunks); i++ {
		prev, next := chunks[i-1], chunks[i]
		if prev.ChainID != next.ChainID {
			return fmt.Errorf("%w: chunk %d has chain id %d, chunk %d has %d",
				ErrChainIDMismatch, i-1, prev.ChainID, i, next.ChainID)
		}
		if prev.PostStateRoot != next.PrevStateRoot {
			return fmt.Errorf("%w: chunk %d ends at %s, chunk %d starts at %s",
				ErrBrokenChain, i-1, prev.PostStateRoot, i, next.PrevStateRoot)
		}
	}
	return nil
}

// PrevStateRoot returns the state root the batch starts from
func (b *BatchHash) PrevStateRoot() common.Hash {
	return b.ChunksWithPadding[0].PrevStateRoot
}

// PostStateRoot returns the state root the batch ends at
func (b *BatchHash) PostStateRoot() common.Hash {
	return b.ChunksWithPadding[b.NumValidChunks-1].PostStateRoot
}

// WithdrawRoot returns the withdraw root of the last real chunk
func (b *BatchHash) WithdrawRoot() common.Hash {
	return b.ChunksWithPadding[b.NumValidChunks-1].WithdrawRoot
}

// RealChunks returns the non padding chunks
func (b *BatchHash) RealChunks() []*chunk.ChunkInfo {
	return b.ChunksWithPadding[:b.NumValidChunks]
}

// WithPointEvaluation computes the blob point evaluation of the real chunks and attaches it
func (b *BatchHash) WithPointEvaluation(compressor Compressor) error {
	data, err := NewBatchDataFromChunks(b.RealChunks(), len(b.ChunksWithPadding))
	if err != nil {
		return err
	}
	pe, err := ComputePointEvaluation(data, compressor)
	if err != nil {
		return err
	}
	b.PointEvaluation = pe
	return nil
}
