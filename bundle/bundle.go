package bundle

import (
	"errors"
	"fmt"

	"github.com/0xPolygon/zkbatcher/batch"
	zkcommon "github.com/0xPolygon/zkbatcher/common"
	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrEmptyBundle is returned when constructing a bundle without batches
	ErrEmptyBundle = errors.New("empty bundle")
	// ErrBrokenChain is returned when a batch doesn't start at the post state root of the previous one
	ErrBrokenChain = errors.New("broken chain of state roots between batches")
	// ErrChainIDMismatch is returned when the batches of a bundle belong to different chains
	ErrChainIDMismatch = errors.New("chain id mismatch")
	// ErrInvalidBatch is returned when a batch commitment doesn't match its own chunks
	ErrInvalidBatch = errors.New("invalid batch commitment")
)

// Info is the public commitment of a bundle of batches
type Info struct {
	ChainID         uint64        `json:"chain_id"`
	NumBatches      int           `json:"num_batches"`
	PrevStateRoot   common.Hash   `json:"prev_state_root"`
	PostStateRoot   common.Hash   `json:"post_state_root"`
	WithdrawRoot    common.Hash   `json:"withdraw_root"`
	BatchHashes     []common.Hash `json:"batch_hashes"`
	DataHash        common.Hash   `json:"data_hash"`
	PublicInputHash common.Hash   `json:"public_input_hash"`
}

// Construct builds the commitment of batches:
// DataHash = keccak(batch_0.DataHash || ... || batch_n.DataHash) and
// PublicInputHash = keccak(chainID || first.prev || last.post || last.withdraw || DataHash)
func Construct(batches []*batch.BatchHash) (*Info, error) {
	if len(batches) == 0 {
		return nil, ErrEmptyBundle
	}
	for i, b := range batches {
		if b == nil || b.NumValidChunks == 0 {
			return nil, fmt.Errorf("%w: batch %d has no chunks", ErrEmptyBundle, i)
		}
		if err := verifyBatch(b); err != nil {
			return nil, fmt.Errorf("batch %d: %w", i, err)
		}
		if i == 0 {
			continue
		}
		prev := batches[i-1]
		if prev.ChainID != b.ChainID {
			return nil, fmt.Errorf("%w: batch %d has chain id %d, batch %d has %d",
				ErrChainIDMismatch, i-1, prev.ChainID, i, b.ChainID)
		}
		if prev.PostStateRoot() != b.PrevStateRoot() {
			return nil, fmt.Errorf("%w: batch %d ends at %s, batch %d starts at %s",
				ErrBrokenChain, i-1, prev.PostStateRoot(), i, b.PrevStateRoot())
		}
	}

	first, last := batches[0], batches[len(batches)-1]
	dataHashes := make([]common.Hash, len(batches))
	batchHashes := make([]common.Hash, len(batches))
	for i, b := range batches {
		dataHashes[i] = b.DataHash
		batchHashes[i] = b.PublicInputHash
	}
	dataHash := zkcommon.HashConcat(dataHashes...)

	return &Info{
		ChainID:       first.ChainID,
		NumBatches:    len(batches),
		PrevStateRoot: first.PrevStateRoot(),
		PostStateRoot: last.PostStateRoot(),
		WithdrawRoot:  last.WithdrawRoot(),
		BatchHashes:   batchHashes,
		DataHash:      dataHash,
		PublicInputHash: zkcommon.CalculatePublicInputHash(
			first.ChainID, first.PrevStateRoot(), last.PostStateRoot(), last.WithdrawRoot(), dataHash),
	}, nil
}

// verifyBatch rebuilds the commitment of b from its chunks and compares it with the
// stored one
func verifyBatch(b *batch.BatchHash) error {
	if b.NumValidChunks < 0 || b.NumValidChunks > len(b.ChunksWithPadding) {
		return fmt.Errorf("%w: %d valid chunks out of %d slots",
			ErrInvalidBatch, b.NumValidChunks, len(b.ChunksWithPadding))
	}
	expected, err := batch.Construct(b.RealChunks(), len(b.ChunksWithPadding))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBatch, err)
	}
	switch {
	case expected.NumValidChunks != b.NumValidChunks:
		return fmt.Errorf("%w: %d valid chunks declared, %d found",
			ErrInvalidBatch, b.NumValidChunks, expected.NumValidChunks)
	case expected.ChainID != b.ChainID:
		return fmt.Errorf("%w: chain id %d, chunks belong to %d", ErrInvalidBatch, b.ChainID, expected.ChainID)
	case expected.DataHash != b.DataHash:
		return fmt.Errorf("%w: data hash %s, chunks hash to %s", ErrInvalidBatch, b.DataHash, expected.DataHash)
	case expected.PublicInputHash != b.PublicInputHash:
		return fmt.Errorf("%w: public input hash %s, chunks hash to %s",
			ErrInvalidBatch, b.PublicInputHash, expected.PublicInputHash)
	}
	return nil
}
