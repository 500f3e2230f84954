package capacitychecker

import (
	"context"
	"errors"
	"fmt"

	"github.com/0xPolygon/zkbatcher/rowusage"
	"github.com/0xPolygon/zkbatcher/witness"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrCapacityEstimation is returned when the witness of a unit can't be built or estimated.
	// It wraps the underlying error and is never retried here.
	ErrCapacityEstimation = errors.New("capacity estimation failed")
	// ErrBlockRowUsageOverflow is returned when applying a unit would overflow the accumulated usage
	ErrBlockRowUsageOverflow = errors.New("block row usage overflow")
	// ErrTxRowUsageOverflow is returned when a single tx doesn't fit any block on its own
	ErrTxRowUsageOverflow = errors.New("tx row usage overflow")
)

// Checker estimates the row usage of blocks and transactions and keeps a running total.
// The running total is not safe for concurrent use; the estimation methods are, as long
// as the witness builder and the estimator are.
type Checker struct {
	builder   witness.Builder
	estimator RowEstimator
	table     rowusage.Table
	mode      witness.Mode

	acc *rowusage.RowUsage
}

// New returns a checker estimating with the given layout and mode
func New(builder witness.Builder, estimator RowEstimator, table rowusage.Table, mode witness.Mode) (*Checker, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	if _, err := witness.ParseMode(string(mode)); err != nil {
		return nil, err
	}
	return &Checker{
		builder:   builder,
		estimator: estimator,
		table:     table,
		mode:      mode,
		acc:       table.Empty(),
	}, nil
}

// NewDefault returns a checker using the trace witness builder and the default estimator
func NewDefault(table rowusage.Table, mode witness.Mode, rowsPerRound uint64) (*Checker, error) {
	estimator, err := NewDefaultEstimator(table, rowsPerRound)
	if err != nil {
		return nil, err
	}
	return New(witness.NewTraceBuilder(), estimator, table, mode)
}

// Mode returns the witness mode used to estimate
func (c *Checker) Mode() witness.Mode {
	return c.mode
}

// Table returns the sub-circuit layout
func (c *Checker) Table() rowusage.Table {
	return c.table
}

// Estimate returns the row usage of one whole block
func (c *Checker) Estimate(trace *witness.BlockTrace) (*rowusage.RowUsage, error) {
	block, err := c.builder.BuildWitness([]*witness.BlockTrace{trace}, c.mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCapacityEstimation, err)
	}
	return c.EstimateWitness(block)
}

// EstimateTx returns the row usage of the tx at txIndex of the block. Block level costs
// are charged on the first tx, so the usages of every tx of a block add up to the
// usage of the whole block.
func (c *Checker) EstimateTx(trace *witness.BlockTrace, txIndex int) (*rowusage.RowUsage, error) {
	block, err := c.builder.BuildWitness([]*witness.BlockTrace{trace}, c.mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCapacityEstimation, err)
	}
	txBlock, err := block.ForTx(txIndex)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCapacityEstimation, err)
	}
	return c.EstimateWitness(txBlock)
}

// EstimateWitness maps an already built witness to its row usage
func (c *Checker) EstimateWitness(block *witness.Block) (*rowusage.RowUsage, error) {
	rows, err := c.estimator.EstimateRowUsage(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCapacityEstimation, err)
	}
	usage, err := c.table.FromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCapacityEstimation, err)
	}
	return usage, nil
}

// EstimateBlocks estimates every trace independently, using up to workers goroutines.
// The result keeps the order of traces. It doesn't touch the running total.
func (c *Checker) EstimateBlocks(
	ctx context.Context, traces []*witness.BlockTrace, workers int,
) ([]*rowusage.RowUsage, error) {
	res := make([]*rowusage.RowUsage, len(traces))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, trace := range traces {
		i, trace := i, trace
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			usage, err := c.Estimate(trace)
			if err != nil {
				return fmt.Errorf("block %d: %w", i, err)
			}
			res[i] = usage
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

// Accumulate adds usage into the running total
func (c *Checker) Accumulate(usage *rowusage.RowUsage) error {
	return c.acc.Add(usage)
}

// Tentative returns the running total plus usage without modifying the running total
func (c *Checker) Tentative(usage *rowusage.RowUsage) (*rowusage.RowUsage, error) {
	return rowusage.Sum(c.acc, usage)
}

// Accumulated returns a copy of the running total
func (c *Checker) Accumulated() *rowusage.RowUsage {
	return c.acc.Clone()
}

// IsOk reports whether the running total is within capacity
func (c *Checker) IsOk() bool {
	return c.acc.IsOk
}

// Reset clears the running total
func (c *Checker) Reset() {
	c.acc = c.table.Empty()
}

// ApplyTransaction estimates the tx at txIndex and adds it to the running total if it fits.
// ErrTxRowUsageOverflow means the tx doesn't fit even on its own, ErrBlockRowUsageOverflow
// that it doesn't fit on top of the running total. In both cases the running total is
// left untouched.
func (c *Checker) ApplyTransaction(trace *witness.BlockTrace, txIndex int) (*rowusage.RowUsage, error) {
	usage, err := c.EstimateTx(trace, txIndex)
	if err != nil {
		return nil, err
	}
	if !usage.IsOk {
		return usage, fmt.Errorf("%w: %s", ErrTxRowUsageOverflow, usage)
	}
	return usage, c.apply(usage)
}

// ApplyBlock estimates the whole block and adds it to the running total if it fits.
// On ErrBlockRowUsageOverflow the running total is left untouched.
func (c *Checker) ApplyBlock(trace *witness.BlockTrace) (*rowusage.RowUsage, error) {
	usage, err := c.Estimate(trace)
	if err != nil {
		return nil, err
	}
	return usage, c.apply(usage)
}

func (c *Checker) apply(usage *rowusage.RowUsage) error {
	tentative, err := c.Tentative(usage)
	if err != nil {
		return err
	}
	if !tentative.IsOk {
		return fmt.Errorf("%w: %s", ErrBlockRowUsageOverflow, tentative)
	}
	c.acc = tentative
	return nil
}
