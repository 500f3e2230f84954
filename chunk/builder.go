package chunk

import (
	"errors"
	"fmt"

	"github.com/0xPolygon/zkbatcher/log"
	"github.com/0xPolygon/zkbatcher/rowusage"
	"github.com/0xPolygon/zkbatcher/witness"
)

// CapacityChecker estimates blocks and keeps the running row usage of the open chunk
type CapacityChecker interface {
	Estimate(trace *witness.BlockTrace) (*rowusage.RowUsage, error)
	Tentative(usage *rowusage.RowUsage) (*rowusage.RowUsage, error)
	Accumulate(usage *rowusage.RowUsage) error
	Accumulated() *rowusage.RowUsage
	Reset()
}

// Chunk is a contiguous run of blocks proved by one chunk circuit
type Chunk struct {
	Blocks   []*witness.BlockTrace
	RowUsage *rowusage.RowUsage
	// Oversized is set when the chunk is a single block that overflows the circuit on its own
	Oversized bool
}

// FirstBlock returns the number of the first block of the chunk
func (c *Chunk) FirstBlock() uint64 {
	return uint64(c.Blocks[0].Header.Number)
}

// LastBlock returns the number of the last block of the chunk
func (c *Chunk) LastBlock() uint64 {
	return uint64(c.Blocks[len(c.Blocks)-1].Header.Number)
}

// Info builds the full witness of the chunk and derives its commitment
func (c *Chunk) Info(builder witness.Builder, chainID uint64) (*ChunkInfo, *witness.Block, error) {
	block, err := builder.BuildWitness(c.Blocks, witness.ModeFull)
	if err != nil {
		return nil, nil, err
	}
	info, err := FromWitness(block, chainID)
	if err != nil {
		return nil, nil, err
	}
	return info, block, nil
}

// Builder packs a stream of blocks into chunks, greedily and without backtracking.
// A block that would overflow the open chunk closes it and seeds the next one.
type Builder struct {
	logger  *log.Logger
	cfg     Config
	checker CapacityChecker

	blocks []*witness.BlockTrace
}

// NewBuilder returns a Builder. checker must not be shared with other builders.
func NewBuilder(logger *log.Logger, cfg Config, checker CapacityChecker) *Builder {
	checker.Reset()
	return &Builder{
		logger:  logger,
		cfg:     cfg,
		checker: checker,
	}
}

// Add estimates trace and folds it into the open chunk. It returns the chunk closed
// by this block, if any. An estimation error is returned as is and leaves the open
// chunk untouched.
func (b *Builder) Add(trace *witness.BlockTrace) (*Chunk, error) {
	usage, err := b.checker.Estimate(trace)
	if err != nil {
		return nil, err
	}
	return b.AddWithUsage(trace, usage)
}

// AddWithUsage is Add with an already estimated row usage
func (b *Builder) AddWithUsage(trace *witness.BlockTrace, usage *rowusage.RowUsage) (*Chunk, error) {
	if len(b.blocks) == 0 {
		if err := b.seed(trace, usage); err != nil {
			return nil, err
		}
		if !usage.IsOk {
			b.logger.Warnf("block %d overflows a chunk on its own: %s", trace.Header.Number, usage)
			return b.emit(), nil
		}
		if b.reachedLimit() {
			return b.emit(), nil
		}
		return nil, nil
	}

	tentative, err := b.checker.Tentative(usage)
	if err != nil {
		return nil, err
	}
	if !tentative.IsOk {
		b.logger.Debugf("block %d would overflow the chunk (%s), closing it with %d blocks",
			trace.Header.Number, tentative, len(b.blocks))
		closed := b.snapshot()
		if err := b.seed(trace, usage); err != nil {
			return nil, errors.Join(err, b.restore(closed))
		}
		b.logClosed(closed)
		return closed, nil
	}

	if err := b.checker.Accumulate(usage); err != nil {
		return nil, err
	}
	b.blocks = append(b.blocks, trace)
	if b.reachedLimit() {
		return b.emit(), nil
	}
	return nil, nil
}

// Flush closes the open chunk, if any
func (b *Builder) Flush() *Chunk {
	if len(b.blocks) == 0 {
		return nil
	}
	return b.emit()
}

// Pending returns the number of blocks of the open chunk
func (b *Builder) Pending() int {
	return len(b.blocks)
}

func (b *Builder) reachedLimit() bool {
	return b.cfg.MaxBlocksPerChunk > 0 && uint64(len(b.blocks)) >= b.cfg.MaxBlocksPerChunk
}

func (b *Builder) seed(trace *witness.BlockTrace, usage *rowusage.RowUsage) error {
	b.checker.Reset()
	if err := b.checker.Accumulate(usage); err != nil {
		return fmt.Errorf("seeding chunk with block %d: %w", trace.Header.Number, err)
	}
	b.blocks = []*witness.BlockTrace{trace}
	return nil
}

// restore reopens c after a failed reseed
func (b *Builder) restore(c *Chunk) error {
	b.checker.Reset()
	b.blocks = c.Blocks
	if err := b.checker.Accumulate(c.RowUsage); err != nil {
		return fmt.Errorf("restoring chunk of blocks %d-%d: %w", c.FirstBlock(), c.LastBlock(), err)
	}
	return nil
}

// snapshot returns the open chunk without closing it
func (b *Builder) snapshot() *Chunk {
	chunk := &Chunk{
		Blocks:   b.blocks,
		RowUsage: b.checker.Accumulated(),
	}
	chunk.Oversized = !chunk.RowUsage.IsOk
	return chunk
}

func (b *Builder) emit() *Chunk {
	chunk := b.snapshot()
	b.logClosed(chunk)
	b.blocks = nil
	b.checker.Reset()
	return chunk
}

func (b *Builder) logClosed(c *Chunk) {
	b.logger.Debugf("chunk closed: blocks %d-%d, %s", c.FirstBlock(), c.LastBlock(), c.RowUsage)
}
