package pipeline

import (
	"context"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/0xPolygon/zkbatcher/batch"
	"github.com/0xPolygon/zkbatcher/batchstore"
	"github.com/0xPolygon/zkbatcher/capacitychecker"
	"github.com/0xPolygon/zkbatcher/chunk"
	zkcommon "github.com/0xPolygon/zkbatcher/common"
	"github.com/0xPolygon/zkbatcher/config/types"
	"github.com/0xPolygon/zkbatcher/log"
	"github.com/0xPolygon/zkbatcher/pipeline/mocks"
	"github.com/0xPolygon/zkbatcher/rowusage"
	"github.com/0xPolygon/zkbatcher/sync"
	"github.com/0xPolygon/zkbatcher/witness"
	"github.com/0xPolygon/zkbatcher/witness/tracetest"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testChainID = 1

type testSetup struct {
	cfg       Config
	commonCfg zkcommon.Config
	chunkCfg  chunk.Config
	table     rowusage.Table
	mode      witness.Mode
	source    TraceSource
	store     *batchstore.BatchStore
}

func newTestSetup(t *testing.T, source TraceSource) *testSetup {
	t.Helper()
	store, err := batchstore.New(log.WithFields("module", "batchstore"), path.Join(t.TempDir(), "pipeline.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	return &testSetup{
		cfg: Config{
			StartBlock:                 1,
			WaitPeriodNextBlock:        types.NewDuration(10 * time.Millisecond),
			OversizedUnitPolicy:        OversizedIsolate,
			RetryAfterErrorPeriod:      types.NewDuration(time.Millisecond),
			MaxRetryAttemptsAfterError: 3,
		},
		commonCfg: zkcommon.Config{ChainID: testChainID, MaxChunksPerBatch: 2},
		chunkCfg:  chunk.Config{MaxBlocksPerChunk: 2},
		table:     rowusage.TableV010(),
		mode:      witness.ModeFull,
		source:    source,
		store:     store,
	}
}

func (s *testSetup) newPipeline(t *testing.T) *Pipeline {
	t.Helper()
	logger := log.WithFields("module", "pipeline")

	checker, err := capacitychecker.NewDefault(s.table, s.mode, s.commonCfg.RowsPerRound)
	require.NoError(t, err)
	chunkBuilder := chunk.NewBuilder(logger, s.chunkCfg, checker)
	batchBuilder, err := batch.NewBuilder(logger, batch.Config{}, s.commonCfg, batch.NoopCompressor{})
	require.NoError(t, err)

	p, err := New(logger, s.cfg, s.commonCfg, s.source, checker, witness.NewTraceBuilder(),
		chunkBuilder, batchBuilder, batch.NoopCompressor{}, s.store)
	require.NoError(t, err)
	return p
}

func writeTraces(t *testing.T, dir string, traces []*witness.BlockTrace) {
	t.Helper()
	for _, trace := range traces {
		require.NoError(t, WriteTraceFile(dir, trace))
	}
}

func expectedChunkInfo(t *testing.T, traces []*witness.BlockTrace) *chunk.ChunkInfo {
	t.Helper()
	block, err := witness.NewTraceBuilder().BuildWitness(traces, witness.ModeFull)
	require.NoError(t, err)
	info, err := chunk.FromWitness(block, testChainID)
	require.NoError(t, err)
	return info
}

func TestPipelineFromFiles(t *testing.T) {
	dir := t.TempDir()
	traces := tracetest.NewGenerator(testChainID).Blocks(8, 3, 10)
	writeTraces(t, dir, traces)

	s := newTestSetup(t, NewFileTraceSource(dir))
	s.cfg.StopAtBlock = 8
	s.cfg.LookAheadBlocks = 3
	s.cfg.ComputePointEvaluation = true
	p := s.newPipeline(t)

	require.NoError(t, p.Start(context.Background()))
	require.Equal(t, uint64(9), p.NextBlock())

	lastBlock, err := s.store.GetLastProcessedBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(8), lastBlock)

	for i := 0; i < 4; i++ {
		rec, err := s.store.GetChunk(uint64(i))
		require.NoError(t, err)
		require.Equal(t, uint64(2*i+1), rec.StartBlock)
		require.Equal(t, uint64(2*i+2), rec.EndBlock)
		require.Equal(t, uint64(6), rec.NumTxs)
		require.False(t, rec.Oversized)
		require.Equal(t, expectedChunkInfo(t, traces[2*i:2*i+2]).PIHash(), rec.PIHash)
	}

	for i := 0; i < 2; i++ {
		rec, err := s.store.GetBatch(uint64(i))
		require.NoError(t, err)
		require.Equal(t, uint64(2*i), rec.StartChunk)
		require.Equal(t, uint64(2*i+1), rec.EndChunk)
		require.NotNil(t, rec.PointEvaluation)

		expected, err := batch.Construct([]*chunk.ChunkInfo{
			expectedChunkInfo(t, traces[4*i:4*i+2]),
			expectedChunkInfo(t, traces[4*i+2:4*i+4]),
		}, 2)
		require.NoError(t, err)
		require.Equal(t, expected.PublicInputHash, rec.PublicInputHash)
		require.Equal(t, expected.DataHash, rec.DataHash)
	}

	unbatched, err := s.store.GetUnbatchedChunks()
	require.NoError(t, err)
	require.Empty(t, unbatched)
}

func TestPipelineChunkRowUsage(t *testing.T) {
	traces := tracetest.NewGenerator(testChainID).Blocks(4, 2, 6)

	expectedUsage := func(t *testing.T, mode witness.Mode, blocks []*witness.BlockTrace) *rowusage.RowUsage {
		t.Helper()
		checker, err := capacitychecker.NewDefault(rowusage.TableV010(), mode, 0)
		require.NoError(t, err)
		for _, trace := range blocks {
			usage, err := checker.Estimate(trace)
			require.NoError(t, err)
			require.NoError(t, checker.Accumulate(usage))
		}
		return checker.Accumulated()
	}

	for _, mode := range []witness.Mode{witness.ModeFull, witness.ModeLight} {
		t.Run(string(mode), func(t *testing.T) {
			dir := t.TempDir()
			writeTraces(t, dir, traces)
			s := newTestSetup(t, NewFileTraceSource(dir))
			s.mode = mode
			s.cfg.StopAtBlock = 4
			require.NoError(t, s.newPipeline(t).Start(context.Background()))

			for i := 0; i < 2; i++ {
				rec, err := s.store.GetChunk(uint64(i))
				require.NoError(t, err)
				expected := expectedUsage(t, mode, traces[2*i:2*i+2])
				require.Equal(t, expected.RowUsageDetails, rec.RowUsage)
				require.Equal(t, expected.RowNumber, rec.MaxRowUsage)
			}
		})
	}

	// light never reports fewer rows than full
	full := expectedUsage(t, witness.ModeFull, traces[:2])
	light := expectedUsage(t, witness.ModeLight, traces[:2])
	for i, d := range full.RowUsageDetails {
		require.LessOrEqual(t, d.RowNumber, light.RowUsageDetails[i].RowNumber, d.Name)
	}
}

func TestPipelineResume(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	traces := tracetest.NewGenerator(testChainID).Blocks(6, 2, 4)
	writeTraces(t, dir, traces)

	s := newTestSetup(t, NewFileTraceSource(dir))
	s.commonCfg.MaxChunksPerBatch = 3
	p := s.newPipeline(t)
	require.NoError(t, p.Resume(ctx))
	for _, trace := range traces[:5] {
		require.NoError(t, p.ProcessBlock(ctx, trace))
	}
	// chunks 0 and 1 are stored, block 5 is pending and gets lost
	require.Equal(t, 2, p.batchBuilder.Pending())
	require.Equal(t, 1, p.chunkBuilder.Pending())

	restarted := s.newPipeline(t)
	require.NoError(t, restarted.Resume(ctx))
	require.Equal(t, uint64(5), restarted.NextBlock())
	require.Equal(t, 2, restarted.batchBuilder.Pending())

	for _, trace := range traces[4:6] {
		require.NoError(t, restarted.ProcessBlock(ctx, trace))
	}
	require.NoError(t, restarted.Flush(ctx))

	rec, err := s.store.GetBatch(0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), rec.StartChunk)
	require.Equal(t, uint64(2), rec.EndChunk)

	chunks, err := s.store.GetChunksByBatch(0)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	require.Equal(t, uint64(6), chunks[2].EndBlock)

	err = restarted.ProcessBlock(ctx, traces[0])
	require.ErrorIs(t, err, witness.ErrMalformedTrace)
}

func TestOversizedUnitPolicy(t *testing.T) {
	gen := tracetest.NewGenerator(testChainID)
	traces := gen.Blocks(2, 1, 4)
	traces = append(traces, gen.NextBlock(1, 2000))
	traces = append(traces, gen.Blocks(2, 1, 4)...)

	table, err := rowusage.TableV010().WithOverrides([]rowusage.SubCircuit{{Name: rowusage.EVM, MaxRows: 1000}})
	require.NoError(t, err)

	run := func(t *testing.T, policy OversizedUnitPolicy) (*testSetup, error) {
		t.Helper()
		dir := t.TempDir()
		writeTraces(t, dir, traces)
		s := newTestSetup(t, NewFileTraceSource(dir))
		s.table = table
		s.commonCfg.MaxChunksPerBatch = 15
		s.cfg.StopAtBlock = 5
		s.cfg.OversizedUnitPolicy = policy
		return s, s.newPipeline(t).Start(context.Background())
	}

	t.Run("isolate", func(t *testing.T) {
		s, err := run(t, OversizedIsolate)
		require.NoError(t, err)

		rec, err := s.store.GetChunk(1)
		require.NoError(t, err)
		require.True(t, rec.Oversized)
		require.Equal(t, uint64(3), rec.StartBlock)
		require.Equal(t, uint64(3), rec.EndBlock)

		chunks, err := s.store.GetChunksByBatch(0)
		require.NoError(t, err)
		require.Len(t, chunks, 3)
	})

	t.Run("skip", func(t *testing.T) {
		s, err := run(t, OversizedSkip)
		require.NoError(t, err)

		last, err := s.store.GetLastChunk()
		require.NoError(t, err)
		require.Equal(t, uint64(1), last.Index)
		require.Equal(t, uint64(4), last.StartBlock)

		first, err := s.store.GetChunksByBatch(0)
		require.NoError(t, err)
		require.Len(t, first, 1)
		second, err := s.store.GetChunksByBatch(1)
		require.NoError(t, err)
		require.Len(t, second, 1)
		require.Equal(t, uint64(1), second[0].Index)
	})

	t.Run("fail", func(t *testing.T) {
		s, err := run(t, OversizedFail)
		require.ErrorIs(t, err, ErrOversizedUnit)

		last, err := s.store.GetLastChunk()
		require.NoError(t, err)
		require.Equal(t, uint64(0), last.Index)
	})
}

func TestEstimationFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	trace := tracetest.NewGenerator(testChainID).NextBlock(2, 4)
	bad := *trace
	bad.ExecutionResults = nil

	t.Run("fetched again", func(t *testing.T) {
		source := mocks.NewTraceSource(t)
		source.EXPECT().GetBlockTrace(mock.Anything, uint64(1)).Return(trace, nil).Once()

		s := newTestSetup(t, source)
		p := s.newPipeline(t)
		require.NoError(t, p.Resume(ctx))
		require.NoError(t, p.ProcessBlock(ctx, &bad))
		require.Equal(t, uint64(2), p.NextBlock())
		require.Equal(t, 1, p.chunkBuilder.Pending())
	})

	t.Run("never masked", func(t *testing.T) {
		source := mocks.NewTraceSource(t)
		source.EXPECT().GetBlockTrace(mock.Anything, uint64(1)).Return(&bad, nil)

		s := newTestSetup(t, source)
		p := s.newPipeline(t)
		require.NoError(t, p.Resume(ctx))
		err := p.ProcessBlock(ctx, &bad)
		require.ErrorIs(t, err, capacitychecker.ErrCapacityEstimation)
		require.ErrorIs(t, err, sync.ErrTooManyAttempts)
		require.Equal(t, uint64(1), p.NextBlock())
		require.Equal(t, 0, p.chunkBuilder.Pending())
	})
}

func TestFetchStopsAtMissingBlock(t *testing.T) {
	ctx := context.Background()
	traces := tracetest.NewGenerator(testChainID).Blocks(3, 1, 1)
	errBoom := errors.New("boom")

	source := mocks.NewTraceSource(t)
	source.EXPECT().GetBlockTrace(mock.Anything, uint64(1)).Return(traces[0], nil).Once()
	source.EXPECT().GetBlockTrace(mock.Anything, uint64(2)).Return(nil, errBoom).Once()
	source.EXPECT().GetBlockTrace(mock.Anything, uint64(2)).Return(traces[1], nil).Once()
	source.EXPECT().GetBlockTrace(mock.Anything, uint64(3)).Return(traces[2], nil).Once()
	source.EXPECT().GetBlockTrace(mock.Anything, uint64(4)).Return(nil, ErrBlockNotAvailable).Once()

	s := newTestSetup(t, source)
	p := s.newPipeline(t)

	got, err := p.fetch(ctx, 1, 4)
	require.NoError(t, err)
	require.Equal(t, traces, got)
}

func TestNewValidatesPolicy(t *testing.T) {
	s := newTestSetup(t, NewFileTraceSource(t.TempDir()))
	s.cfg.OversizedUnitPolicy = "drop"
	_, err := New(log.GetDefaultLogger(), s.cfg, s.commonCfg, s.source, nil, nil, nil, nil, nil, s.store)
	require.Error(t, err)
}
