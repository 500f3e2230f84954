package batch

import (
	"errors"
	"fmt"
	"math"

	"github.com/0xPolygon/zkbatcher/chunk"
	zkcommon "github.com/0xPolygon/zkbatcher/common"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrTooManyChunks is returned when a batch would hold more chunks than it has slots
	ErrTooManyChunks = errors.New("too many chunks")
	// ErrPaddingChunk is returned when a padding chunk is fed where a real one is expected
	ErrPaddingChunk = errors.New("unexpected padding chunk")
	// ErrChunkTooLarge is returned when the tx payload of a chunk doesn't fit its u32 size field
	ErrChunkTooLarge = errors.New("chunk payload too large")
)

const (
	numValidChunksBytes = 2
	chunkSizeBytes      = 4
)

// BatchData holds the payload of the batch being built, one slot per chunk
type BatchData struct {
	numValidChunks int
	chunkSizes     []uint32
	chunkData      [][]byte
}

// NewBatchData returns an empty BatchData with maxChunks slots
func NewBatchData(maxChunks int) *BatchData {
	return &BatchData{
		chunkSizes: make([]uint32, maxChunks),
		chunkData:  make([][]byte, maxChunks),
	}
}

// NewBatchDataFromChunks returns the BatchData of the given real chunks
func NewBatchDataFromChunks(chunks []*chunk.ChunkInfo, maxChunks int) (*BatchData, error) {
	d := NewBatchData(maxChunks)
	for _, c := range chunks {
		if err := d.Append(c); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Append fills the next slot with the payload of info
func (d *BatchData) Append(info *chunk.ChunkInfo) error {
	if info.IsPadding {
		return ErrPaddingChunk
	}
	if d.numValidChunks >= len(d.chunkSizes) {
		return fmt.Errorf("%w: all %d slots are used", ErrTooManyChunks, len(d.chunkSizes))
	}
	if len(info.TxBytes) > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes", ErrChunkTooLarge, len(info.TxBytes))
	}
	d.chunkSizes[d.numValidChunks] = uint32(len(info.TxBytes))
	d.chunkData[d.numValidChunks] = info.TxBytes
	d.numValidChunks++
	return nil
}

// Reset empties every slot
func (d *BatchData) Reset() {
	for i := range d.chunkSizes {
		d.chunkSizes[i] = 0
		d.chunkData[i] = nil
	}
	d.numValidChunks = 0
}

// Clone returns a copy sharing the chunk payloads, which are never modified
func (d *BatchData) Clone() *BatchData {
	res := &BatchData{
		numValidChunks: d.numValidChunks,
		chunkSizes:     make([]uint32, len(d.chunkSizes)),
		chunkData:      make([][]byte, len(d.chunkData)),
	}
	copy(res.chunkSizes, d.chunkSizes)
	copy(res.chunkData, d.chunkData)
	return res
}

// NumValidChunks returns the number of used slots
func (d *BatchData) NumValidChunks() int {
	return d.numValidChunks
}

// MaxChunks returns the number of slots
func (d *BatchData) MaxChunks() int {
	return len(d.chunkSizes)
}

// ChunkSizes returns the payload size of every slot, 0 for the unused ones
func (d *BatchData) ChunkSizes() []uint32 {
	res := make([]uint32, len(d.chunkSizes))
	copy(res, d.chunkSizes)
	return res
}

// BatchDataBytes returns the tx payloads of the real chunks, concatenated in order
func (d *BatchData) BatchDataBytes() []byte {
	size := 0
	for i := 0; i < d.numValidChunks; i++ {
		size += len(d.chunkData[i])
	}
	res := make([]byte, 0, size)
	for i := 0; i < d.numValidChunks; i++ {
		res = append(res, d.chunkData[i]...)
	}
	return res
}

// MetadataBytes returns numValidChunks (u16) followed by the size of every slot (u32), big endian
func (d *BatchData) MetadataBytes() []byte {
	res := make([]byte, 0, numValidChunksBytes+chunkSizeBytes*len(d.chunkSizes))
	res = append(res, zkcommon.Uint16ToBytes(uint16(d.numValidChunks))...)
	for _, size := range d.chunkSizes {
		res = append(res, zkcommon.Uint32ToBytes(size)...)
	}
	return res
}

// BlobPayload returns the bytes posted in the blob before compression: metadata || batch data
func (d *BatchData) BlobPayload() []byte {
	return append(d.MetadataBytes(), d.BatchDataBytes()...)
}

// UncompressedSize returns len(BlobPayload())
func (d *BatchData) UncompressedSize() int {
	size := numValidChunksBytes + chunkSizeBytes*len(d.chunkSizes)
	for i := 0; i < d.numValidChunks; i++ {
		size += len(d.chunkData[i])
	}
	return size
}

// ChallengePreimage returns keccak(metadata) || keccak(chunk data) for every slot || versionedHash.
// Unused slots repeat the digest of the last real chunk.
func (d *BatchData) ChallengePreimage(versionedHash common.Hash) []byte {
	res := make([]byte, 0, (len(d.chunkSizes)+2)*common.HashLength) //nolint:mnd
	res = append(res, crypto.Keccak256(d.MetadataBytes())...)

	var last []byte
	for i := range d.chunkData {
		if i < d.numValidChunks {
			last = crypto.Keccak256(d.chunkData[i])
		} else if last == nil {
			last = crypto.Keccak256(nil)
		}
		res = append(res, last...)
	}
	return append(res, versionedHash.Bytes()...)
}
