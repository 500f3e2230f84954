package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/0xPolygon/zkbatcher/batch"
	"github.com/0xPolygon/zkbatcher/bundle"
	"github.com/0xPolygon/zkbatcher/capacitychecker"
	"github.com/0xPolygon/zkbatcher/chunk"
	zkcommon "github.com/0xPolygon/zkbatcher/common"
	"github.com/0xPolygon/zkbatcher/config"
	"github.com/0xPolygon/zkbatcher/pipeline"
	"github.com/0xPolygon/zkbatcher/rowusage"
	"github.com/0xPolygon/zkbatcher/witness"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
)

type blockEstimate struct {
	Block      uint64             `json:"block"`
	NumTxs     int                `json:"num_txs"`
	RowUsage   *rowusage.RowUsage `json:"row_usage"`
	Normalized *rowusage.RowUsage `json:"normalized"`
}

type chunkInfoOutput struct {
	ChunkInfo *chunk.ChunkInfo   `json:"chunk_info"`
	PIHash    common.Hash        `json:"pi_hash"`
	RowUsage  *rowusage.RowUsage `json:"row_usage"`
}

func estimateCmd(cliCtx *cli.Context) error {
	c, err := config.Load(cliCtx)
	if err != nil {
		return err
	}
	traces, err := readTraces(cliCtx.StringSlice(config.FlagTrace))
	if err != nil {
		return err
	}
	return estimateBlocks(os.Stdout, *c, cliCtx.Bool(config.FlagLight), traces)
}

func chunkInfoCmd(cliCtx *cli.Context) error {
	c, err := config.Load(cliCtx)
	if err != nil {
		return err
	}
	traces, err := readTraces(cliCtx.StringSlice(config.FlagTrace))
	if err != nil {
		return err
	}
	return buildChunkInfo(os.Stdout, *c, traces)
}

func batchHashCmd(cliCtx *cli.Context) error {
	c, err := config.Load(cliCtx)
	if err != nil {
		return err
	}
	infos := make([]*chunk.ChunkInfo, 0)
	for _, file := range cliCtx.StringSlice(config.FlagChunk) {
		info, err := readChunkInfo(file)
		if err != nil {
			return err
		}
		infos = append(infos, info)
	}
	return buildBatchHash(os.Stdout, *c, infos, cliCtx.Bool(config.FlagBlob))
}

func bundleHashCmd(cliCtx *cli.Context) error {
	batches := make([]*batch.BatchHash, 0)
	for _, file := range cliCtx.StringSlice(config.FlagBatch) {
		hash, err := readBatchHash(file)
		if err != nil {
			return err
		}
		batches = append(batches, hash)
	}
	return buildBundleHash(os.Stdout, batches)
}

// estimateBlocks writes the row usage of every block, one JSON document per block.
// Blocks are estimated in full mode unless light is set.
func estimateBlocks(w io.Writer, c config.Config, light bool, traces []*witness.BlockTrace) error {
	c.CapacityChecker.Mode = witness.ModeFull
	if light {
		c.CapacityChecker.Mode = witness.ModeLight
	}
	checker, err := capacitychecker.NewFromConfig(c.CapacityChecker, c.Common.RowsPerRound)
	if err != nil {
		return err
	}
	enc := newEncoder(w)
	for _, trace := range traces {
		usage, err := checker.Estimate(trace)
		if err != nil {
			return fmt.Errorf("error estimating block %d: %w", uint64(trace.Header.Number), err)
		}
		err = enc.Encode(blockEstimate{
			Block:      uint64(trace.Header.Number),
			NumTxs:     len(trace.Transactions),
			RowUsage:   usage,
			Normalized: usage.Normalize(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// buildChunkInfo writes the commitment of the chunk made of traces, validated in full mode
func buildChunkInfo(w io.Writer, c config.Config, traces []*witness.BlockTrace) error {
	c.CapacityChecker.Mode = witness.ModeFull
	checker, err := capacitychecker.NewFromConfig(c.CapacityChecker, c.Common.RowsPerRound)
	if err != nil {
		return err
	}
	block, err := witness.NewTraceBuilder().BuildWitness(traces, witness.ModeFull)
	if err != nil {
		return err
	}
	usage, err := checker.EstimateWitness(block)
	if err != nil {
		return err
	}
	info, err := chunk.FromWitness(block, c.Common.ChainID)
	if err != nil {
		return err
	}
	return newEncoder(w).Encode(chunkInfoOutput{
		ChunkInfo: info,
		PIHash:    info.PIHash(),
		RowUsage:  usage,
	})
}

// buildBatchHash writes the commitment of the batch made of infos
func buildBatchHash(w io.Writer, c config.Config, infos []*chunk.ChunkInfo, blob bool) error {
	maxAggSnarks := int(c.Common.MaxChunksPerBatch)
	if maxAggSnarks == 0 {
		maxAggSnarks = zkcommon.DefaultMaxAggSnarks
	}
	hash, err := batch.Construct(infos, maxAggSnarks)
	if err != nil {
		return err
	}
	if blob {
		compressor, err := batch.NewCompressor(c.BatchBuilder.CompressionEnabled)
		if err != nil {
			return err
		}
		if err := hash.WithPointEvaluation(compressor); err != nil {
			return err
		}
	}
	return newEncoder(w).Encode(hash)
}

// buildBundleHash writes the commitment of the bundle made of batches
func buildBundleHash(w io.Writer, batches []*batch.BatchHash) error {
	info, err := bundle.Construct(batches)
	if err != nil {
		return err
	}
	return newEncoder(w).Encode(info)
}

func readTraces(files []string) ([]*witness.BlockTrace, error) {
	traces := make([]*witness.BlockTrace, 0, len(files))
	for _, file := range files {
		trace, err := pipeline.ReadTraceFile(file)
		if err != nil {
			return nil, err
		}
		traces = append(traces, trace)
	}
	return traces, nil
}

// readChunkInfo accepts both the output of chunk-info and a bare chunk info
func readChunkInfo(file string) (*chunk.ChunkInfo, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var out chunkInfoOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("error decoding chunk info %s: %w", file, err)
	}
	if out.ChunkInfo != nil {
		return out.ChunkInfo, nil
	}
	var info chunk.ChunkInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("error decoding chunk info %s: %w", file, err)
	}
	return &info, nil
}

func readBatchHash(file string) (*batch.BatchHash, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var hash batch.BatchHash
	if err := json.Unmarshal(data, &hash); err != nil {
		return nil, fmt.Errorf("error decoding batch hash %s: %w", file, err)
	}
	return &hash, nil
}

func newEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc
}
