package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/0xPolygon/zkbatcher/batch"
	"github.com/0xPolygon/zkbatcher/batchstore"
	"github.com/0xPolygon/zkbatcher/capacitychecker"
	"github.com/0xPolygon/zkbatcher/chunk"
	zkcommon "github.com/0xPolygon/zkbatcher/common"
	"github.com/0xPolygon/zkbatcher/db"
	"github.com/0xPolygon/zkbatcher/log"
	"github.com/0xPolygon/zkbatcher/rowusage"
	"github.com/0xPolygon/zkbatcher/sync"
	"github.com/0xPolygon/zkbatcher/witness"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

const meterName = "github.com/0xPolygon/zkbatcher/pipeline"

// ErrOversizedUnit is returned under the fail policy when a chunk or batch overflows on its own
var ErrOversizedUnit = errors.New("oversized unit")

// Storer persists the chunks and batches of the pipeline
type Storer interface {
	AddChunk(ctx context.Context, rec *batchstore.ChunkRecord) error
	AddBatch(ctx context.Context, rec *batchstore.BatchRecord) error
	GetLastChunk() (*batchstore.ChunkRecord, error)
	GetLastBatch() (*batchstore.BatchRecord, error)
	GetUnbatchedChunks() ([]*batchstore.ChunkRecord, error)
}

// BlocksEstimator estimates blocks independently of any running total
type BlocksEstimator interface {
	EstimateBlocks(ctx context.Context, traces []*witness.BlockTrace, workers int) ([]*rowusage.RowUsage, error)
}

type metrics struct {
	blocks    metric.Int64Counter
	chunks    metric.Int64Counter
	batches   metric.Int64Counter
	oversized metric.Int64Counter
}

// Pipeline turns the blocks of a trace source into chunks and batches, and stores them
type Pipeline struct {
	logger         *log.Logger
	cfg            Config
	chainID        uint64
	maxAggSnarks   int
	source         TraceSource
	estimator      BlocksEstimator
	witnessBuilder witness.Builder
	chunkBuilder   *chunk.Builder
	batchBuilder   *batch.Builder
	compressor     batch.Compressor
	store          Storer
	rh             *sync.RetryHandler
	metrics        metrics

	nextBlock  uint64
	nextChunk  uint64
	nextBatch  uint64
	batchStart uint64
	resumed    bool
}

// New returns a pipeline. chunkBuilder must estimate with the same layout as estimator.
func New(
	logger *log.Logger,
	cfg Config,
	commonCfg zkcommon.Config,
	source TraceSource,
	estimator BlocksEstimator,
	witnessBuilder witness.Builder,
	chunkBuilder *chunk.Builder,
	batchBuilder *batch.Builder,
	compressor batch.Compressor,
	store Storer,
) (*Pipeline, error) {
	switch cfg.OversizedUnitPolicy {
	case OversizedIsolate, OversizedSkip, OversizedFail:
	case "":
		cfg.OversizedUnitPolicy = OversizedIsolate
	default:
		return nil, fmt.Errorf("unknown OversizedUnitPolicy %q", cfg.OversizedUnitPolicy)
	}
	maxAggSnarks := int(commonCfg.MaxChunksPerBatch)
	if maxAggSnarks == 0 {
		maxAggSnarks = zkcommon.DefaultMaxAggSnarks
	}

	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		logger:         logger,
		cfg:            cfg,
		chainID:        commonCfg.ChainID,
		maxAggSnarks:   maxAggSnarks,
		source:         source,
		estimator:      estimator,
		witnessBuilder: witnessBuilder,
		chunkBuilder:   chunkBuilder,
		batchBuilder:   batchBuilder,
		compressor:     compressor,
		store:          store,
		rh: &sync.RetryHandler{
			RetryAfterErrorPeriod:      cfg.RetryAfterErrorPeriod.Duration,
			MaxRetryAttemptsAfterError: cfg.MaxRetryAttemptsAfterError,
		},
		metrics: m,
	}, nil
}

func newMetrics() (metrics, error) {
	meter := otel.Meter(meterName)
	var (
		m   metrics
		err error
	)
	if m.blocks, err = meter.Int64Counter("blocks_processed"); err != nil {
		return m, fmt.Errorf("failed to create blocks_processed counter: %w", err)
	}
	if m.chunks, err = meter.Int64Counter("chunks_emitted"); err != nil {
		return m, fmt.Errorf("failed to create chunks_emitted counter: %w", err)
	}
	if m.batches, err = meter.Int64Counter("batches_emitted"); err != nil {
		return m, fmt.Errorf("failed to create batches_emitted counter: %w", err)
	}
	if m.oversized, err = meter.Int64Counter("oversized_units"); err != nil {
		return m, fmt.Errorf("failed to create oversized_units counter: %w", err)
	}
	return m, nil
}

// NextBlock returns the number of the next block to process
func (p *Pipeline) NextBlock() uint64 {
	return p.nextBlock
}

// Resume loads the position of the pipeline from the store and feeds the stored
// chunks not yet assigned to a batch back into the batch builder. It is called by Start.
func (p *Pipeline) Resume(ctx context.Context) error {
	if p.resumed {
		return nil
	}
	p.nextBlock = p.cfg.StartBlock

	lastChunk, err := p.store.GetLastChunk()
	switch {
	case errors.Is(err, db.ErrNotFound):
	case err != nil:
		return fmt.Errorf("error getting the last chunk: %w", err)
	default:
		p.nextBlock = lastChunk.EndBlock + 1
		p.nextChunk = lastChunk.Index + 1
	}

	lastBatch, err := p.store.GetLastBatch()
	switch {
	case errors.Is(err, db.ErrNotFound):
	case err != nil:
		return fmt.Errorf("error getting the last batch: %w", err)
	default:
		p.nextBatch = lastBatch.Index + 1
		p.batchStart = lastBatch.EndChunk + 1
	}

	unbatched, err := p.store.GetUnbatchedChunks()
	if err != nil {
		return fmt.Errorf("error getting the chunks without batch: %w", err)
	}
	pending := make([]*batchstore.ChunkRecord, 0, len(unbatched))
	for _, rec := range unbatched {
		if rec.Index >= p.batchStart {
			pending = append(pending, rec)
		}
	}
	if len(pending) > 0 {
		p.batchStart = pending[0].Index
		p.logger.Infof("feeding %d stored chunks back into the batch builder, from chunk %d",
			len(pending), p.batchStart)
	}
	p.resumed = true
	for _, rec := range pending {
		if err := p.addToBatch(ctx, rec.ChunkInfo()); err != nil {
			return err
		}
	}

	p.logger.Infof("resuming from block %d, chunk %d, batch %d", p.nextBlock, p.nextChunk, p.nextBatch)
	return nil
}

// Start processes blocks until ctx is done, an unrecoverable error happens or
// StopAtBlock is processed
func (p *Pipeline) Start(ctx context.Context) error {
	if err := p.Resume(ctx); err != nil {
		return err
	}
	for {
		if ctx.Err() != nil {
			p.logger.Info("pipeline stopped")
			return nil
		}
		if p.cfg.StopAtBlock > 0 && p.nextBlock > p.cfg.StopAtBlock {
			p.logger.Infof("block %d reached, closing open units", p.cfg.StopAtBlock)
			return p.Flush(ctx)
		}

		traces, err := p.fetch(ctx, p.nextBlock, p.lookAhead())
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if len(traces) == 0 {
			select {
			case <-ctx.Done():
			case <-time.After(p.cfg.WaitPeriodNextBlock.Duration):
			}
			continue
		}

		var usages []*rowusage.RowUsage
		if len(traces) > 1 {
			usages, err = p.estimator.EstimateBlocks(ctx, traces, len(traces))
			if err != nil {
				// estimated again one by one, with retries
				p.logger.Warnf("look-ahead estimation of blocks %d-%d failed: %v",
					p.nextBlock, p.nextBlock+uint64(len(traces))-1, err)
				usages = nil
			}
		}
		for i, trace := range traces {
			var usage *rowusage.RowUsage
			if usages != nil {
				usage = usages[i]
			}
			if err := p.processBlock(ctx, trace, usage); err != nil {
				return err
			}
		}
	}
}

func (p *Pipeline) lookAhead() int {
	n := int(p.cfg.LookAheadBlocks)
	if n < 1 {
		n = 1
	}
	if p.cfg.StopAtBlock > 0 && p.nextBlock+uint64(n)-1 > p.cfg.StopAtBlock {
		n = int(p.cfg.StopAtBlock - p.nextBlock + 1)
	}
	return n
}

// fetch returns the traces of up to n consecutive blocks starting at from. It stops at
// the first block not available yet, so it may return fewer traces, or none.
func (p *Pipeline) fetch(ctx context.Context, from uint64, n int) ([]*witness.BlockTrace, error) {
	traces := make([]*witness.BlockTrace, n)
	available := make([]bool, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			number := from + uint64(i)
			trace, err := p.fetchTrace(gctx, number)
			if errors.Is(err, ErrBlockNotAvailable) {
				return nil
			}
			if err != nil {
				return err
			}
			traces[i] = trace
			available[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i := range available {
		if !available[i] {
			return traces[:i], nil
		}
	}
	return traces, nil
}

// fetchTrace gets the trace of a block, retrying failures other than ErrBlockNotAvailable
func (p *Pipeline) fetchTrace(ctx context.Context, number uint64) (*witness.BlockTrace, error) {
	var (
		trace        *witness.BlockTrace
		notAvailable error
	)
	err := sync.Retry(ctx, p.rh, "GetBlockTrace", func() error {
		var err error
		trace, err = p.source.GetBlockTrace(ctx, number)
		if errors.Is(err, ErrBlockNotAvailable) {
			notAvailable = err
			return nil
		}
		if err != nil {
			p.logger.Warnf("error getting the trace of block %d: %v", number, err)
			return err
		}
		if trace.Header == nil || uint64(trace.Header.Number) != number {
			return fmt.Errorf("%w: asked for block %d, got another one", witness.ErrMalformedTrace, number)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error getting the trace of block %d: %w", number, err)
	}
	if notAvailable != nil {
		return nil, notAvailable
	}
	return trace, nil
}

// ProcessBlock folds one block into the pipeline. trace must be the trace of NextBlock.
func (p *Pipeline) ProcessBlock(ctx context.Context, trace *witness.BlockTrace) error {
	return p.processBlock(ctx, trace, nil)
}

func (p *Pipeline) processBlock(ctx context.Context, trace *witness.BlockTrace, usage *rowusage.RowUsage) error {
	if trace.Header == nil || uint64(trace.Header.Number) != p.nextBlock {
		return fmt.Errorf("%w: expected block %d", witness.ErrMalformedTrace, p.nextBlock)
	}

	var (
		c        *chunk.Chunk
		attempts int
		err      error
	)
	for {
		if usage != nil {
			c, err = p.chunkBuilder.AddWithUsage(trace, usage)
		} else {
			c, err = p.chunkBuilder.Add(trace)
		}
		if err == nil {
			break
		}
		if !errors.Is(err, capacitychecker.ErrCapacityEstimation) {
			return err
		}
		attempts++
		p.logger.Warnf("error estimating block %d, fetching it again: %v", p.nextBlock, err)
		if herr := p.rh.Handle(ctx, "estimateBlock", attempts); herr != nil {
			return fmt.Errorf("%w, last error: %w", herr, err)
		}
		if trace, err = p.fetchTrace(ctx, p.nextBlock); err != nil {
			return err
		}
		usage = nil
	}

	p.metrics.blocks.Add(ctx, 1)
	p.nextBlock++
	if c == nil {
		return nil
	}
	return p.handleChunk(ctx, c)
}

// Flush closes the open chunk and the open batch, if any
func (p *Pipeline) Flush(ctx context.Context) error {
	if c := p.chunkBuilder.Flush(); c != nil {
		if err := p.handleChunk(ctx, c); err != nil {
			return err
		}
	}
	if b := p.batchBuilder.Flush(); b != nil {
		return p.handleBatch(ctx, b)
	}
	return nil
}

func (p *Pipeline) handleChunk(ctx context.Context, c *chunk.Chunk) error {
	if c.Oversized {
		p.metrics.oversized.Add(ctx, 1, metric.WithAttributes(attribute.String("unit", "chunk")))
		switch p.cfg.OversizedUnitPolicy {
		case OversizedFail:
			return fmt.Errorf("%w: chunk of blocks %d-%d: %s", ErrOversizedUnit, c.FirstBlock(), c.LastBlock(), c.RowUsage)
		case OversizedSkip:
			p.logger.Warnf("skipping oversized chunk of blocks %d-%d: %s", c.FirstBlock(), c.LastBlock(), c.RowUsage)
			// the chain of roots is broken, the next chunk starts another batch
			if b := p.batchBuilder.Flush(); b != nil {
				return p.handleBatch(ctx, b)
			}
			return nil
		case OversizedIsolate:
			p.logger.Warnf("isolating oversized chunk of blocks %d-%d: %s", c.FirstBlock(), c.LastBlock(), c.RowUsage)
		}
	}

	info, block, err := c.Info(p.witnessBuilder, p.chainID)
	if err != nil {
		return fmt.Errorf("error building the chunk of blocks %d-%d: %w", c.FirstBlock(), c.LastBlock(), err)
	}

	rec := batchstore.NewChunkRecord(p.nextChunk, c, info, uint64(len(block.Txs)))
	if err := sync.Retry(ctx, p.rh, "AddChunk", func() error {
		return p.store.AddChunk(ctx, rec)
	}); err != nil {
		return err
	}
	p.logger.Infof("chunk %d: blocks %d-%d, pi hash %s", rec.Index, rec.StartBlock, rec.EndBlock, rec.PIHash)
	p.metrics.chunks.Add(ctx, 1)
	p.nextChunk++

	return p.addToBatch(ctx, info)
}

func (p *Pipeline) addToBatch(ctx context.Context, info *chunk.ChunkInfo) error {
	b, err := p.batchBuilder.Add(info)
	if errors.Is(err, batch.ErrBrokenChain) && p.batchBuilder.Pending() > 0 {
		// a skipped unit left a gap, the batch can't extend over it
		p.logger.Warnf("closing batch at a gap of the chain of roots: %v", err)
		if b := p.batchBuilder.Flush(); b != nil {
			if err := p.handleBatch(ctx, b); err != nil {
				return err
			}
		}
		b, err = p.batchBuilder.Add(info)
	}
	if err != nil {
		return fmt.Errorf("error adding chunk to the batch: %w", err)
	}
	if b == nil {
		return nil
	}
	return p.handleBatch(ctx, b)
}

func (p *Pipeline) handleBatch(ctx context.Context, b *batch.Batch) error {
	start := p.batchStart
	p.batchStart += uint64(len(b.Chunks))

	if b.Oversized {
		p.metrics.oversized.Add(ctx, 1, metric.WithAttributes(attribute.String("unit", "batch")))
		switch p.cfg.OversizedUnitPolicy {
		case OversizedFail:
			return fmt.Errorf("%w: batch of chunks %d-%d, compressed %d bytes",
				ErrOversizedUnit, start, p.batchStart-1, b.CompressedSize)
		case OversizedSkip:
			p.logger.Warnf("skipping oversized batch of chunks %d-%d, compressed %d bytes",
				start, p.batchStart-1, b.CompressedSize)
			return nil
		case OversizedIsolate:
			p.logger.Warnf("isolating oversized batch of chunks %d-%d, compressed %d bytes",
				start, p.batchStart-1, b.CompressedSize)
		}
	}

	hash, err := batch.Construct(b.Chunks, p.maxAggSnarks)
	if err != nil {
		return fmt.Errorf("error constructing the batch of chunks %d-%d: %w", start, p.batchStart-1, err)
	}
	if p.cfg.ComputePointEvaluation && !b.Oversized {
		if err := hash.WithPointEvaluation(p.compressor); err != nil {
			return fmt.Errorf("error computing the point evaluation of the batch of chunks %d-%d: %w",
				start, p.batchStart-1, err)
		}
	}

	rec := batchstore.NewBatchRecord(p.nextBatch, start, b, hash)
	if err := sync.Retry(ctx, p.rh, "AddBatch", func() error {
		return p.store.AddBatch(ctx, rec)
	}); err != nil {
		return err
	}
	p.logger.Infof("batch %d: chunks %d-%d, public input hash %s",
		rec.Index, rec.StartChunk, rec.EndChunk, rec.PublicInputHash)
	p.metrics.batches.Add(ctx, 1)
	p.nextBatch++
	return nil
}
