package batch

import (
	"fmt"
	"math"

	"github.com/0xPolygon/zkbatcher/chunk"
	zkcommon "github.com/0xPolygon/zkbatcher/common"
	"github.com/0xPolygon/zkbatcher/log"
)

// Batch is a run of chunks aggregated into one proof
type Batch struct {
	Chunks           []*chunk.ChunkInfo
	CompressedSize   int
	UncompressedSize int
	// Oversized is set when the batch is a single chunk whose payload overflows the blob on its own
	Oversized bool
}

type sizes struct {
	compressed   int
	uncompressed int
}

// Builder packs a stream of chunks into batches. A chunk that would overflow the
// blob closes the open batch and seeds the next one.
type Builder struct {
	logger     *log.Logger
	cfg        Config
	maxChunks  int
	blobBudget int
	compressor Compressor

	chunks []*chunk.ChunkInfo
	data   *BatchData
	sizes  sizes
}

// NewBuilder returns a Builder
func NewBuilder(logger *log.Logger, cfg Config, commonCfg zkcommon.Config, compressor Compressor) (*Builder, error) {
	maxChunks := int(commonCfg.MaxChunksPerBatch)
	if maxChunks == 0 {
		maxChunks = zkcommon.DefaultMaxAggSnarks
	}
	if maxChunks > math.MaxUint16 {
		return nil, fmt.Errorf("MaxChunksPerBatch %d doesn't fit the batch metadata", maxChunks)
	}
	blobBudget := int(commonCfg.BlobByteBudget)
	if blobBudget == 0 {
		blobBudget = NBlobBytes
	}
	if blobBudget > NBlobBytes {
		return nil, fmt.Errorf("BlobByteBudget %d is greater than the blob capacity %d", blobBudget, NBlobBytes)
	}
	if compressor == nil {
		var err error
		if compressor, err = NewCompressor(cfg.CompressionEnabled); err != nil {
			return nil, err
		}
	}

	return &Builder{
		logger:     logger,
		cfg:        cfg,
		maxChunks:  maxChunks,
		blobBudget: blobBudget,
		compressor: compressor,
		data:       NewBatchData(maxChunks),
	}, nil
}

// Add folds info into the open batch and returns the batch closed by it, if any.
// A chunk that doesn't extend the chain of roots of the open batch is rejected and
// leaves the open batch untouched.
func (b *Builder) Add(info *chunk.ChunkInfo) (*Batch, error) {
	if info.IsPadding {
		return nil, ErrPaddingChunk
	}
	if len(b.chunks) > 0 {
		if err := CheckChain([]*chunk.ChunkInfo{b.chunks[len(b.chunks)-1], info}); err != nil {
			return nil, err
		}
	}

	tentative := b.data.Clone()
	if err := tentative.Append(info); err != nil {
		return nil, err
	}
	s, err := b.measure(tentative)
	if err != nil {
		return nil, err
	}

	if len(b.chunks) > 0 && b.exceeds(s) {
		b.logger.Debugf("chunk would overflow the batch (compressed %d bytes, uncompressed %d bytes), "+
			"closing it with %d chunks", s.compressed, s.uncompressed, len(b.chunks))
		seed := NewBatchData(b.maxChunks)
		if err := seed.Append(info); err != nil {
			return nil, err
		}
		seedSizes, err := b.measure(seed)
		if err != nil {
			return nil, err
		}
		batch := b.emit()
		b.chunks = []*chunk.ChunkInfo{info}
		b.data = seed
		b.sizes = seedSizes
		return batch, nil
	}

	b.chunks = append(b.chunks, info)
	b.data = tentative
	b.sizes = s

	if len(b.chunks) == 1 && b.exceeds(s) {
		b.logger.Warnf("chunk overflows a batch on its own: compressed %d bytes, uncompressed %d bytes",
			s.compressed, s.uncompressed)
		return b.emit(), nil
	}
	if len(b.chunks) >= b.maxChunks {
		return b.emit(), nil
	}
	return nil, nil
}

// Flush closes the open batch, if any
func (b *Builder) Flush() *Batch {
	if len(b.chunks) == 0 {
		return nil
	}
	return b.emit()
}

// Pending returns the number of chunks of the open batch
func (b *Builder) Pending() int {
	return len(b.chunks)
}

func (b *Builder) measure(data *BatchData) (sizes, error) {
	payload := data.BlobPayload()
	compressed, err := b.compressor.Compress(payload)
	if err != nil {
		return sizes{}, fmt.Errorf("error compressing batch payload: %w", err)
	}
	return sizes{compressed: len(compressed), uncompressed: len(payload)}, nil
}

func (b *Builder) exceeds(s sizes) bool {
	if s.compressed > b.blobBudget {
		return true
	}
	return b.cfg.MaxUncompressedBytes > 0 && uint64(s.uncompressed) > b.cfg.MaxUncompressedBytes
}

func (b *Builder) emit() *Batch {
	batch := &Batch{
		Chunks:           b.chunks,
		CompressedSize:   b.sizes.compressed,
		UncompressedSize: b.sizes.uncompressed,
		Oversized:        b.exceeds(b.sizes),
	}
	b.logger.Debugf("batch closed: %d chunks, compressed %d bytes, uncompressed %d bytes",
		len(batch.Chunks), batch.CompressedSize, batch.UncompressedSize)
	b.reset()
	return batch
}

func (b *Builder) reset() {
	b.chunks = nil
	b.data = NewBatchData(b.maxChunks)
	b.sizes = sizes{}
}
