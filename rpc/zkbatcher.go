package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/0xPolygon/cdk-rpc/rpc"
	"github.com/0xPolygon/zkbatcher/batchstore"
	"github.com/0xPolygon/zkbatcher/db"
	"github.com/0xPolygon/zkbatcher/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	// ZKBATCHER is the namespace of the zkbatcher service
	ZKBATCHER = "zkbatcher"
	meterName = "github.com/0xPolygon/zkbatcher/rpc"
)

// BatchStorer is the read side of the chunk and batch storage
type BatchStorer interface {
	GetChunk(index uint64) (*batchstore.ChunkRecord, error)
	GetBatch(index uint64) (*batchstore.BatchRecord, error)
	GetLastBatch() (*batchstore.BatchRecord, error)
	GetChunksByBatch(batchIndex uint64) ([]*batchstore.ChunkRecord, error)
}

// ZKBatcherEndpoints contains implementations for the "zkbatcher" RPC endpoints
type ZKBatcherEndpoints struct {
	logger      *log.Logger
	meter       metric.Meter
	readTimeout time.Duration
	store       BatchStorer
}

// NewZKBatcherEndpoints returns ZKBatcherEndpoints
func NewZKBatcherEndpoints(logger *log.Logger, readTimeout time.Duration, store BatchStorer) *ZKBatcherEndpoints {
	return &ZKBatcherEndpoints{
		logger:      logger,
		meter:       otel.Meter(meterName),
		readTimeout: readTimeout,
		store:       store,
	}
}

// GetChunk returns the stored chunk with the given index
//
// curl -X POST http://localhost:5576/ -H "Content-Type: application/json" \
// -d '{"method":"zkbatcher_getChunk", "params":[0], "id":1}'
func (z *ZKBatcherEndpoints) GetChunk(index uint64) (interface{}, rpc.Error) {
	z.count("get_chunk")
	rec, err := z.store.GetChunk(index)
	if err != nil {
		return nil, z.storeError(fmt.Sprintf("chunk %d", index), err)
	}
	return rec, nil
}

// GetBatch returns the stored batch with the given index
func (z *ZKBatcherEndpoints) GetBatch(index uint64) (interface{}, rpc.Error) {
	z.count("get_batch")
	rec, err := z.store.GetBatch(index)
	if err != nil {
		return nil, z.storeError(fmt.Sprintf("batch %d", index), err)
	}
	return rec, nil
}

// GetLatestBatch returns the stored batch with the highest index
func (z *ZKBatcherEndpoints) GetLatestBatch() (interface{}, rpc.Error) {
	z.count("get_latest_batch")
	rec, err := z.store.GetLastBatch()
	if err != nil {
		return nil, z.storeError("latest batch", err)
	}
	return rec, nil
}

// GetBatchChunks returns the chunks of the batch with the given index, in order
func (z *ZKBatcherEndpoints) GetBatchChunks(index uint64) (interface{}, rpc.Error) {
	z.count("get_batch_chunks")
	recs, err := z.store.GetChunksByBatch(index)
	if err != nil {
		return nil, z.storeError(fmt.Sprintf("chunks of batch %d", index), err)
	}
	return recs, nil
}

func (z *ZKBatcherEndpoints) count(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), z.readTimeout)
	defer cancel()

	c, merr := z.meter.Int64Counter(name)
	if merr != nil {
		z.logger.Warnf("failed to create %s counter: %s", name, merr)
		return
	}
	c.Add(ctx, 1)
}

func (z *ZKBatcherEndpoints) storeError(what string, err error) rpc.Error {
	if errors.Is(err, db.ErrNotFound) {
		return rpc.NewRPCError(rpc.NotFoundErrorCode, fmt.Sprintf("%s not found", what))
	}
	z.logger.Errorf("error getting %s: %v", what, err)
	return rpc.NewRPCError(rpc.DefaultErrorCode, fmt.Sprintf("failed to get %s, error: %s", what, err))
}
