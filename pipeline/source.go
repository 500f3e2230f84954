package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/0xPolygon/cdk-rpc/rpc"
	"github.com/0xPolygon/zkbatcher/witness"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// DefaultTraceMethod is the json rpc method of the l2 node returning block traces
const DefaultTraceMethod = "scroll_getBlockTraceByNumberOrHash"

// ErrBlockNotAvailable is returned when the trace of a block isn't available yet
var ErrBlockNotAvailable = errors.New("block trace not available")

// TraceSource returns the execution trace of l2 blocks
type TraceSource interface {
	GetBlockTrace(ctx context.Context, number uint64) (*witness.BlockTrace, error)
}

// RPCTraceSource requests block traces to an l2 node over json rpc
type RPCTraceSource struct {
	url    string
	method string
}

var _ TraceSource = (*RPCTraceSource)(nil)

// NewRPCTraceSource returns a trace source calling method on url. An empty method means DefaultTraceMethod.
func NewRPCTraceSource(url, method string) *RPCTraceSource {
	if method == "" {
		method = DefaultTraceMethod
	}
	return &RPCTraceSource{url: url, method: method}
}

// GetBlockTrace returns the trace of the block, ErrBlockNotAvailable if the node returns null
func (s *RPCTraceSource) GetBlockTrace(ctx context.Context, number uint64) (*witness.BlockTrace, error) {
	response, err := rpc.JSONRPCCall(s.url, s.method, hexutil.EncodeUint64(number))
	if err != nil {
		return nil, err
	}

	if response.Error != nil {
		return nil, fmt.Errorf("error in the response calling %s: %v", s.method, response.Error)
	}

	if len(response.Result) == 0 || string(response.Result) == "null" {
		return nil, fmt.Errorf("%w: block %d", ErrBlockNotAvailable, number)
	}

	var trace witness.BlockTrace
	if err := json.Unmarshal(response.Result, &trace); err != nil {
		return nil, fmt.Errorf("error unmarshalling the trace of block %d from the response calling %s: %w",
			number, s.method, err)
	}
	return &trace, nil
}

// FileTraceSource reads block traces from <number>.json files of a directory
type FileTraceSource struct {
	dir string
}

var _ TraceSource = (*FileTraceSource)(nil)

// NewFileTraceSource returns a trace source reading from dir
func NewFileTraceSource(dir string) *FileTraceSource {
	return &FileTraceSource{dir: dir}
}

// GetBlockTrace returns the trace of the block, ErrBlockNotAvailable if its file doesn't exist
func (s *FileTraceSource) GetBlockTrace(ctx context.Context, number uint64) (*witness.BlockTrace, error) {
	return ReadTraceFile(s.Path(number))
}

// Path returns the file of the trace of the block
func (s *FileTraceSource) Path(number uint64) string {
	return filepath.Join(s.dir, strconv.FormatUint(number, 10)+".json")
}

// ReadTraceFile decodes the block trace stored in file
func ReadTraceFile(file string) (*witness.BlockTrace, error) {
	data, err := os.ReadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrBlockNotAvailable, file)
	}
	if err != nil {
		return nil, err
	}
	var trace witness.BlockTrace
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("error decoding block trace %s: %w", file, err)
	}
	return &trace, nil
}

// WriteTraceFile stores trace as the file of its block in dir
func WriteTraceFile(dir string, trace *witness.BlockTrace) error {
	data, err := json.Marshal(trace)
	if err != nil {
		return err
	}
	s := NewFileTraceSource(dir)
	return os.WriteFile(s.Path(uint64(trace.Header.Number)), data, 0o600) //nolint:mnd
}
