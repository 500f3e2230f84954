package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/0xPolygon/zkbatcher/batch"
	"github.com/0xPolygon/zkbatcher/bundle"
	"github.com/0xPolygon/zkbatcher/capacitychecker"
	"github.com/0xPolygon/zkbatcher/chunk"
	"github.com/0xPolygon/zkbatcher/config"
	"github.com/0xPolygon/zkbatcher/pipeline"
	"github.com/0xPolygon/zkbatcher/rowusage"
	"github.com/0xPolygon/zkbatcher/witness"
	"github.com/0xPolygon/zkbatcher/witness/tracetest"
	"github.com/stretchr/testify/require"
)

const testChainID = 1337

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.LoadFile(nil, "")
	require.NoError(t, err)
	cfg.Common.ChainID = testChainID
	return *cfg
}

func rowusageTable(t *testing.T, cfg config.Config) rowusage.Table {
	t.Helper()
	table, err := cfg.CapacityChecker.Table()
	require.NoError(t, err)
	return table
}

func TestEstimateBlocks(t *testing.T) {
	cfg := testConfig(t)
	traces := tracetest.NewGenerator(testChainID).Blocks(2, 3, 10)

	var buf bytes.Buffer
	require.NoError(t, estimateBlocks(&buf, cfg, true, traces))

	dec := json.NewDecoder(&buf)
	for _, trace := range traces {
		var out blockEstimate
		require.NoError(t, dec.Decode(&out))
		require.Equal(t, uint64(trace.Header.Number), out.Block)
		require.Equal(t, 3, out.NumTxs)
		require.True(t, out.RowUsage.IsOk)
		require.Len(t, out.RowUsage.RowUsageDetails, 14)
		require.Len(t, out.Normalized.RowUsageDetails, 14)
	}
	require.False(t, dec.More())
}

func TestEstimateBlocksMode(t *testing.T) {
	cfg := testConfig(t)
	require.Equal(t, witness.ModeFull, cfg.CapacityChecker.Mode)
	cfg.CapacityChecker.Mode = witness.ModeLight
	trace := tracetest.NewGenerator(testChainID).Blocks(1, 2, 4)[0]

	for _, light := range []bool{false, true} {
		mode := witness.ModeFull
		if light {
			mode = witness.ModeLight
		}
		checker, err := capacitychecker.NewDefault(rowusageTable(t, cfg), mode, cfg.Common.RowsPerRound)
		require.NoError(t, err)
		expected, err := checker.Estimate(trace)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, estimateBlocks(&buf, cfg, light, []*witness.BlockTrace{trace}))
		var out blockEstimate
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		require.Equal(t, expected.RowUsageDetails, out.RowUsage.RowUsageDetails, "light=%v", light)
	}
}

func TestChunkInfoThenBatchHash(t *testing.T) {
	cfg := testConfig(t)
	traces := tracetest.NewGenerator(testChainID).Blocks(4, 2, 5)
	dir := t.TempDir()

	files := make([]string, 0, 2)
	expected := make([]*chunk.ChunkInfo, 0, 2)
	for i := 0; i < 2; i++ {
		chunkTraces := traces[2*i : 2*i+2]

		var buf bytes.Buffer
		require.NoError(t, buildChunkInfo(&buf, cfg, chunkTraces))

		var out chunkInfoOutput
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		block, err := witness.NewTraceBuilder().BuildWitness(chunkTraces, witness.ModeFull)
		require.NoError(t, err)
		info, err := chunk.FromWitness(block, testChainID)
		require.NoError(t, err)
		require.Equal(t, info.PIHash(), out.PIHash)
		require.Equal(t, info.DataHash, out.ChunkInfo.DataHash)
		require.NotNil(t, out.RowUsage)

		file := filepath.Join(dir, fmt.Sprintf("chunk%d.json", i))
		require.NoError(t, os.WriteFile(file, buf.Bytes(), 0600))
		files = append(files, file)
		expected = append(expected, info)
	}

	infos := make([]*chunk.ChunkInfo, 0, len(files))
	for _, file := range files {
		info, err := readChunkInfo(file)
		require.NoError(t, err)
		infos = append(infos, info)
	}

	var buf bytes.Buffer
	require.NoError(t, buildBatchHash(&buf, cfg, infos, true))

	var out batch.BatchHash
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	want, err := batch.Construct(expected, 15)
	require.NoError(t, err)
	require.Equal(t, want.DataHash, out.DataHash)
	require.Equal(t, want.PublicInputHash, out.PublicInputHash)
	require.Equal(t, 2, out.NumValidChunks)
	require.Len(t, out.ChunksWithPadding, 15)
	require.NotNil(t, out.PointEvaluation)
}

func TestReadBareChunkInfo(t *testing.T) {
	cfg := testConfig(t)
	traces := tracetest.NewGenerator(testChainID).Blocks(1, 1, 1)
	block, err := witness.NewTraceBuilder().BuildWitness(traces, witness.ModeFull)
	require.NoError(t, err)
	info, err := chunk.FromWitness(block, cfg.Common.ChainID)
	require.NoError(t, err)

	data, err := json.Marshal(info)
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "bare.json")
	require.NoError(t, os.WriteFile(file, data, 0600))

	read, err := readChunkInfo(file)
	require.NoError(t, err)
	require.Equal(t, info.PIHash(), read.PIHash())
}

func TestBatchHashRejectsBrokenChain(t *testing.T) {
	cfg := testConfig(t)
	gen := tracetest.NewGenerator(testChainID)
	first := gen.Blocks(1, 1, 1)
	gen.Blocks(1, 1, 1)
	third := gen.Blocks(1, 1, 1)

	infos := make([]*chunk.ChunkInfo, 0, 2)
	for _, traces := range [][]*witness.BlockTrace{first, third} {
		block, err := witness.NewTraceBuilder().BuildWitness(traces, witness.ModeFull)
		require.NoError(t, err)
		info, err := chunk.FromWitness(block, testChainID)
		require.NoError(t, err)
		infos = append(infos, info)
	}

	var buf bytes.Buffer
	require.ErrorIs(t, buildBatchHash(&buf, cfg, infos, false), batch.ErrBrokenChain)
}

func TestReadTraces(t *testing.T) {
	dir := t.TempDir()
	traces := tracetest.NewGenerator(testChainID).Blocks(2, 1, 1)
	for _, trace := range traces {
		require.NoError(t, pipeline.WriteTraceFile(dir, trace))
	}
	source := pipeline.NewFileTraceSource(dir)

	read, err := readTraces([]string{source.Path(1), source.Path(2)})
	require.NoError(t, err)
	require.Len(t, read, 2)
	require.Equal(t, traces[1].Header.Hash, read[1].Header.Hash)

	_, err = readTraces([]string{source.Path(3)})
	require.ErrorIs(t, err, pipeline.ErrBlockNotAvailable)
}

func TestBundleHashFromBatchFiles(t *testing.T) {
	cfg := testConfig(t)
	traces := tracetest.NewGenerator(testChainID).Blocks(2, 1, 2)
	dir := t.TempDir()

	files := make([]string, 0, len(traces))
	expected := make([]*batch.BatchHash, 0, len(traces))
	for i, trace := range traces {
		block, err := witness.NewTraceBuilder().BuildWitness([]*witness.BlockTrace{trace}, witness.ModeFull)
		require.NoError(t, err)
		info, err := chunk.FromWitness(block, testChainID)
		require.NoError(t, err)

		var buf bytes.Buffer
		require.NoError(t, buildBatchHash(&buf, cfg, []*chunk.ChunkInfo{info}, false))
		file := filepath.Join(dir, fmt.Sprintf("batch%d.json", i))
		require.NoError(t, os.WriteFile(file, buf.Bytes(), 0600))
		files = append(files, file)

		hash, err := batch.Construct([]*chunk.ChunkInfo{info}, 15)
		require.NoError(t, err)
		expected = append(expected, hash)
	}

	batches := make([]*batch.BatchHash, 0, len(files))
	for _, file := range files {
		hash, err := readBatchHash(file)
		require.NoError(t, err)
		batches = append(batches, hash)
	}

	var buf bytes.Buffer
	require.NoError(t, buildBundleHash(&buf, batches))

	var out bundle.Info
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	want, err := bundle.Construct(expected)
	require.NoError(t, err)
	require.Equal(t, want.PublicInputHash, out.PublicInputHash)
	require.Equal(t, 2, out.NumBatches)

	require.ErrorIs(t, buildBundleHash(&buf, []*batch.BatchHash{batches[1], batches[0]}), bundle.ErrBrokenChain)
}
