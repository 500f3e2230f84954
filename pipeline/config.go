package pipeline

import (
	"fmt"

	"github.com/0xPolygon/zkbatcher/config/types"
)

// OversizedUnitPolicy decides what happens to a chunk or batch that overflows its
// capacity on its own
type OversizedUnitPolicy string

const (
	// OversizedIsolate keeps the unit alone in its own chunk or batch, flagged as oversized
	OversizedIsolate OversizedUnitPolicy = "isolate"
	// OversizedSkip drops the unit with a warning
	OversizedSkip OversizedUnitPolicy = "skip"
	// OversizedFail stops the pipeline with ErrOversizedUnit
	OversizedFail OversizedUnitPolicy = "fail"

	// TraceSourceRPC reads block traces from an l2 node
	TraceSourceRPC = "rpc"
	// TraceSourceFile reads block traces from <number>.json files
	TraceSourceFile = "file"
)

// Config is the configuration of the pipeline
type Config struct {
	// TraceSource is where block traces come from: "rpc" or "file"
	TraceSource string `mapstructure:"TraceSource" jsonschema:"enum=rpc,enum=file"`
	// L2URL is the url of the l2 node serving block traces
	L2URL string `mapstructure:"L2URL"`
	// TraceMethod is the json rpc method returning the trace of a block
	TraceMethod string `mapstructure:"TraceMethod"`
	// TraceDir is the directory of the trace files
	TraceDir string `mapstructure:"TraceDir"`
	// StartBlock is the first block processed when the database is empty
	StartBlock uint64 `mapstructure:"StartBlock"`
	// StopAtBlock, when not 0, makes the pipeline close every open unit and stop once
	// this block is processed
	StopAtBlock uint64 `mapstructure:"StopAtBlock"`
	// WaitPeriodNextBlock is the time to wait when the next block isn't available yet
	WaitPeriodNextBlock types.Duration `mapstructure:"WaitPeriodNextBlock"`
	// OversizedUnitPolicy is one of "isolate", "skip" and "fail"
	OversizedUnitPolicy OversizedUnitPolicy `mapstructure:"OversizedUnitPolicy" jsonschema:"enum=isolate,enum=skip,enum=fail"`
	// ComputePointEvaluation enables the blob point evaluation of every batch
	ComputePointEvaluation bool `mapstructure:"ComputePointEvaluation"`
	// LookAheadBlocks is the number of blocks fetched and estimated in parallel
	LookAheadBlocks uint64 `mapstructure:"LookAheadBlocks"`
	// RetryAfterErrorPeriod is the time to wait before retrying a failed fetch or estimation
	RetryAfterErrorPeriod types.Duration `mapstructure:"RetryAfterErrorPeriod"`
	// MaxRetryAttemptsAfterError is the number of attempts before giving up, below 1 retries forever
	MaxRetryAttemptsAfterError int `mapstructure:"MaxRetryAttemptsAfterError"`
	// DBPath is the path of the sqlite database storing chunks and batches
	DBPath string `mapstructure:"DBPath"`
}

// Validate checks the enumerated fields
func (c Config) Validate() error {
	switch c.OversizedUnitPolicy {
	case OversizedIsolate, OversizedSkip, OversizedFail:
	default:
		return fmt.Errorf("unknown OversizedUnitPolicy %q", c.OversizedUnitPolicy)
	}
	switch c.TraceSource {
	case TraceSourceRPC:
		if c.L2URL == "" {
			return fmt.Errorf("L2URL is required by the %s trace source", TraceSourceRPC)
		}
	case TraceSourceFile:
		if c.TraceDir == "" {
			return fmt.Errorf("TraceDir is required by the %s trace source", TraceSourceFile)
		}
	default:
		return fmt.Errorf("unknown TraceSource %q", c.TraceSource)
	}
	return nil
}
