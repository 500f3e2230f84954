package batchstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/0xPolygon/zkbatcher/batchstore/migrations"
	"github.com/0xPolygon/zkbatcher/db"
	"github.com/0xPolygon/zkbatcher/log"
	"github.com/russross/meddler"
)

// ErrChunksNotAvailable is returned when a batch refers to chunks that aren't stored
// or already belong to another batch
var ErrChunksNotAvailable = errors.New("chunks not available for the batch")

// BatchStore persists the chunks and batches emitted by the pipeline in sqlite
type BatchStore struct {
	logger *log.Logger
	db     *sql.DB
}

// New runs the migrations and opens the sqlite file at dbPath
func New(logger *log.Logger, dbPath string) (*BatchStore, error) {
	if err := migrations.RunMigrations(dbPath); err != nil {
		return nil, err
	}

	database, err := db.Open(dbPath, db.WithMaxOpenConns(1))
	if err != nil {
		return nil, err
	}

	return &BatchStore{
		logger: logger,
		db:     database,
	}, nil
}

// Close closes the underlying database
func (s *BatchStore) Close() error {
	return s.db.Close()
}

// AddChunk stores a chunk not yet assigned to a batch
func (s *BatchStore) AddChunk(ctx context.Context, rec *ChunkRecord) error {
	rec.BatchIndex = nil
	if err := meddler.Insert(s.db, "chunk", rec); err != nil {
		return fmt.Errorf("error inserting chunk %d: %w", rec.Index, db.ReturnErrAlreadyExists(err))
	}
	s.logger.Debugf("inserted chunk %d: blocks %d-%d, pi hash %s",
		rec.Index, rec.StartBlock, rec.EndBlock, rec.PIHash)
	return nil
}

// AddBatch stores a batch and assigns its chunk range to it, atomically
func (s *BatchStore) AddBatch(ctx context.Context, rec *BatchRecord) error {
	if rec.EndChunk < rec.StartChunk {
		return fmt.Errorf("%w: batch %d has chunk range %d-%d",
			ErrChunksNotAvailable, rec.Index, rec.StartChunk, rec.EndChunk)
	}

	err := db.RunInTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := meddler.Insert(tx, "batch", rec); err != nil {
			return fmt.Errorf("error inserting batch %d: %w", rec.Index, db.ReturnErrAlreadyExists(err))
		}

		res, err := tx.ExecContext(ctx, `UPDATE chunk SET batch_index = $1
			WHERE chunk_index >= $2 AND chunk_index <= $3 AND batch_index IS NULL;`,
			rec.Index, rec.StartChunk, rec.EndChunk)
		if err != nil {
			return fmt.Errorf("error assigning chunks to batch %d: %w", rec.Index, err)
		}
		updated, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if expected := rec.EndChunk - rec.StartChunk + 1; uint64(updated) != expected {
			return fmt.Errorf("%w: batch %d expects %d chunks from %d, %d are available",
				ErrChunksNotAvailable, rec.Index, expected, rec.StartChunk, updated)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debugf("inserted batch %d: chunks %d-%d, public input hash %s",
		rec.Index, rec.StartChunk, rec.EndChunk, rec.PublicInputHash)
	return nil
}

// GetChunk returns the chunk with the given index
func (s *BatchStore) GetChunk(index uint64) (*ChunkRecord, error) {
	rec := &ChunkRecord{}
	if err := meddler.QueryRow(s.db, rec, "SELECT * FROM chunk WHERE chunk_index = $1;", index); err != nil {
		return nil, db.ReturnErrNotFound(err)
	}
	return rec, nil
}

// GetLastChunk returns the chunk with the highest index
func (s *BatchStore) GetLastChunk() (*ChunkRecord, error) {
	rec := &ChunkRecord{}
	if err := meddler.QueryRow(s.db, rec, "SELECT * FROM chunk ORDER BY chunk_index DESC LIMIT 1;"); err != nil {
		return nil, db.ReturnErrNotFound(err)
	}
	return rec, nil
}

// GetChunksByBatch returns the chunks of a batch, in order
func (s *BatchStore) GetChunksByBatch(batchIndex uint64) ([]*ChunkRecord, error) {
	var recs []*ChunkRecord
	if err := meddler.QueryAll(s.db, &recs,
		"SELECT * FROM chunk WHERE batch_index = $1 ORDER BY chunk_index ASC;", batchIndex); err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, db.ErrNotFound
	}
	return recs, nil
}

// GetUnbatchedChunks returns the chunks not yet assigned to a batch, in order
func (s *BatchStore) GetUnbatchedChunks() ([]*ChunkRecord, error) {
	var recs []*ChunkRecord
	if err := meddler.QueryAll(s.db, &recs,
		"SELECT * FROM chunk WHERE batch_index IS NULL ORDER BY chunk_index ASC;"); err != nil {
		return nil, err
	}
	return recs, nil
}

// GetBatch returns the batch with the given index
func (s *BatchStore) GetBatch(index uint64) (*BatchRecord, error) {
	rec := &BatchRecord{}
	if err := meddler.QueryRow(s.db, rec, "SELECT * FROM batch WHERE batch_index = $1;", index); err != nil {
		return nil, db.ReturnErrNotFound(err)
	}
	return rec, nil
}

// GetLastBatch returns the batch with the highest index
func (s *BatchStore) GetLastBatch() (*BatchRecord, error) {
	rec := &BatchRecord{}
	if err := meddler.QueryRow(s.db, rec, "SELECT * FROM batch ORDER BY batch_index DESC LIMIT 1;"); err != nil {
		return nil, db.ReturnErrNotFound(err)
	}
	return rec, nil
}

// GetLastProcessedBlock returns the last block included in a stored chunk, or
// db.ErrNotFound when nothing has been stored yet
func (s *BatchStore) GetLastProcessedBlock() (uint64, error) {
	last, err := s.GetLastChunk()
	if err != nil {
		return 0, err
	}
	return last.EndBlock, nil
}
