package batchstore

import (
	"context"
	"path"
	"testing"

	"github.com/0xPolygon/zkbatcher/batch"
	"github.com/0xPolygon/zkbatcher/chunk"
	zkcommon "github.com/0xPolygon/zkbatcher/common"
	"github.com/0xPolygon/zkbatcher/db"
	"github.com/0xPolygon/zkbatcher/log"
	"github.com/0xPolygon/zkbatcher/rowusage"
	"github.com/0xPolygon/zkbatcher/witness"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *BatchStore {
	t.Helper()
	store, err := New(log.WithFields("module", "batchstore"), path.Join(t.TempDir(), "batchstore.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func testChunkRecords(t *testing.T, n int) []*ChunkRecord {
	t.Helper()
	table := rowusage.TableV010()
	prev := crypto.Keccak256Hash([]byte("genesis"))
	res := make([]*ChunkRecord, n)
	for i := range res {
		key := zkcommon.Uint64ToBytes(uint64(i))
		info := &chunk.ChunkInfo{
			ChainID:       3,
			PrevStateRoot: prev,
			PostStateRoot: crypto.Keccak256Hash([]byte("root"), key),
			WithdrawRoot:  crypto.Keccak256Hash([]byte("withdraw"), key),
			DataHash:      crypto.Keccak256Hash([]byte("data"), key),
			TxBytes:       append([]byte{0xaa}, key...),
		}
		prev = info.PostStateRoot

		rows := make([]rowusage.SubCircuitRowUsage, len(table.SubCircuits))
		for j, sc := range table.SubCircuits {
			rows[j] = rowusage.SubCircuitRowUsage{Name: sc.Name, RowNumber: uint64(100*i + j)}
		}
		usage, err := table.FromRows(rows)
		require.NoError(t, err)

		c := &chunk.Chunk{
			Blocks: []*witness.BlockTrace{
				{Header: &witness.BlockHeader{Number: hexutil.Uint64(10 * i)}},
				{Header: &witness.BlockHeader{Number: hexutil.Uint64(10*i + 9)}},
			},
			RowUsage: usage,
		}
		res[i] = NewChunkRecord(uint64(i), c, info, 2)
	}
	return res
}

func batchRecordFor(t *testing.T, index uint64, chunks []*ChunkRecord) *BatchRecord {
	t.Helper()
	infos := make([]*chunk.ChunkInfo, len(chunks))
	for i, c := range chunks {
		infos[i] = c.ChunkInfo()
	}
	hash, err := batch.Construct(infos, zkcommon.DefaultMaxAggSnarks)
	require.NoError(t, err)
	b := &batch.Batch{Chunks: infos, CompressedSize: 100, UncompressedSize: 200}
	return NewBatchRecord(index, chunks[0].Index, b, hash)
}

func TestChunks(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetLastChunk()
	require.ErrorIs(t, err, db.ErrNotFound)
	_, err = store.GetLastProcessedBlock()
	require.ErrorIs(t, err, db.ErrNotFound)

	recs := testChunkRecords(t, 3)
	for _, rec := range recs {
		require.NoError(t, store.AddChunk(ctx, rec))
	}
	require.ErrorIs(t, store.AddChunk(ctx, recs[1]), db.ErrAlreadyExists)

	got, err := store.GetChunk(1)
	require.NoError(t, err)
	require.Equal(t, recs[1], got)
	require.Equal(t, uint64(10), got.StartBlock)
	require.Equal(t, uint64(19), got.EndBlock)
	require.Equal(t, recs[1].ChunkInfo().PIHash(), got.PIHash)

	last, err := store.GetLastChunk()
	require.NoError(t, err)
	require.Equal(t, recs[2], last)

	block, err := store.GetLastProcessedBlock()
	require.NoError(t, err)
	require.Equal(t, uint64(29), block)

	_, err = store.GetChunk(7)
	require.ErrorIs(t, err, db.ErrNotFound)

	unbatched, err := store.GetUnbatchedChunks()
	require.NoError(t, err)
	require.Equal(t, recs, unbatched)
}

func TestBatches(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.GetLastBatch()
	require.ErrorIs(t, err, db.ErrNotFound)

	recs := testChunkRecords(t, 5)
	for _, rec := range recs {
		require.NoError(t, store.AddChunk(ctx, rec))
	}

	first := batchRecordFor(t, 0, recs[:2])
	require.NoError(t, store.AddBatch(ctx, first))
	second := batchRecordFor(t, 1, recs[2:4])
	require.NoError(t, store.AddBatch(ctx, second))

	got, err := store.GetBatch(0)
	require.NoError(t, err)
	require.Equal(t, first, got)

	last, err := store.GetLastBatch()
	require.NoError(t, err)
	require.Equal(t, second, last)
	require.Equal(t, uint64(3), last.EndChunk)

	chunks, err := store.GetChunksByBatch(1)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for i, c := range chunks {
		require.Equal(t, recs[2+i].Index, c.Index)
		require.NotNil(t, c.BatchIndex)
		require.Equal(t, uint64(1), *c.BatchIndex)
	}

	unbatched, err := store.GetUnbatchedChunks()
	require.NoError(t, err)
	require.Len(t, unbatched, 1)
	require.Equal(t, uint64(4), unbatched[0].Index)

	_, err = store.GetChunksByBatch(5)
	require.ErrorIs(t, err, db.ErrNotFound)
}

func TestAddBatchRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	recs := testChunkRecords(t, 3)
	for _, rec := range recs[:2] {
		require.NoError(t, store.AddChunk(ctx, rec))
	}

	// chunk 2 isn't stored
	rec := batchRecordFor(t, 0, recs)
	require.ErrorIs(t, store.AddBatch(ctx, rec), ErrChunksNotAvailable)
	_, err := store.GetBatch(0)
	require.ErrorIs(t, err, db.ErrNotFound)
	unbatched, err := store.GetUnbatchedChunks()
	require.NoError(t, err)
	require.Len(t, unbatched, 2)

	require.NoError(t, store.AddBatch(ctx, batchRecordFor(t, 0, recs[:2])))
	// chunks 0 and 1 already belong to batch 0
	require.ErrorIs(t, store.AddBatch(ctx, batchRecordFor(t, 1, recs[:2])), ErrChunksNotAvailable)
	require.ErrorIs(t, store.AddBatch(ctx, batchRecordFor(t, 0, recs[:2])), db.ErrAlreadyExists)
}

func TestPointEvaluationIsStored(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	recs := testChunkRecords(t, 1)
	require.NoError(t, store.AddChunk(ctx, recs[0]))

	rec := batchRecordFor(t, 0, recs)
	rec.PointEvaluation = &batch.PointEvaluation{
		VersionedHash: crypto.Keccak256Hash([]byte("versioned")),
		Challenge:     crypto.Keccak256Hash([]byte("z")),
		Evaluation:    crypto.Keccak256Hash([]byte("y")),
	}
	require.NoError(t, store.AddBatch(ctx, rec))

	got, err := store.GetBatch(0)
	require.NoError(t, err)
	require.Equal(t, rec.PointEvaluation, got.PointEvaluation)
}
