package db

import (
	"context"
	"database/sql"
	"errors"
	"math/big"
	"path"
	"testing"

	"github.com/0xPolygon/zkbatcher/db/types"
	"github.com/0xPolygon/zkbatcher/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
	"github.com/stretchr/testify/require"
)

const testMigration = `
-- +migrate Down
DROP TABLE IF EXISTS /*dbprefix*/item;

-- +migrate Up
CREATE TABLE /*dbprefix*/item (
	id     INTEGER PRIMARY KEY,
	hash   VARCHAR NOT NULL,
	amount TEXT
);
`

type item struct {
	ID     uint64      `meddler:"id"`
	Hash   common.Hash `meddler:"hash,hash"`
	Amount *big.Int    `meddler:"amount,bigint"`
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := path.Join(t.TempDir(), "dbTest.sqlite")
	require.NoError(t, RunMigrations(dbPath, []types.Migration{{ID: "0001", SQL: testMigration, Prefix: "test_"}}))
	database, err := Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestMeddlersRoundTrip(t *testing.T) {
	database := newTestDB(t)

	in := &item{ID: 1, Hash: common.HexToHash("0xabcdef"), Amount: big.NewInt(123456789)}
	require.NoError(t, meddler.Insert(database, "test_item", in))

	out := &item{}
	require.NoError(t, meddler.QueryRow(database, out, "SELECT * FROM test_item WHERE id = $1;", 1))
	require.Equal(t, in, out)

	err := meddler.QueryRow(database, out, "SELECT * FROM test_item WHERE id = $1;", 2)
	require.ErrorIs(t, ReturnErrNotFound(err), ErrNotFound)

	err = meddler.Insert(database, "test_item", in)
	require.ErrorIs(t, ReturnErrAlreadyExists(err), ErrAlreadyExists)
}

func TestRunInTx(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	err := RunInTx(ctx, database, func(tx *sql.Tx) error {
		return meddler.Insert(tx, "test_item", &item{ID: 7, Hash: common.HexToHash("0x07"), Amount: big.NewInt(7)})
	})
	require.NoError(t, err)

	errAbort := errors.New("abort")
	err = RunInTx(ctx, database, func(tx *sql.Tx) error {
		require.NoError(t, meddler.Insert(tx, "test_item", &item{ID: 8, Hash: common.HexToHash("0x08"), Amount: big.NewInt(8)}))
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	out := &item{}
	require.NoError(t, meddler.QueryRow(database, out, "SELECT * FROM test_item WHERE id = $1;", 7))
	err = meddler.QueryRow(database, out, "SELECT * FROM test_item WHERE id = $1;", 8)
	require.ErrorIs(t, ReturnErrNotFound(err), ErrNotFound)
}

func TestOpenAppliesPragmas(t *testing.T) {
	database, err := Open(path.Join(t.TempDir(), "pragmas.sqlite"), WithBusyTimeout(1234))
	require.NoError(t, err)
	defer database.Close()

	var journal string
	require.NoError(t, database.QueryRow("PRAGMA journal_mode;").Scan(&journal))
	require.Equal(t, "wal", journal)

	var timeout int
	require.NoError(t, database.QueryRow("PRAGMA busy_timeout;").Scan(&timeout))
	require.Equal(t, 1234, timeout)
}

func TestMigrationWithoutSeparator(t *testing.T) {
	database, err := Open(path.Join(t.TempDir(), "bad.sqlite"))
	require.NoError(t, err)
	defer database.Close()

	err = RunMigrationsDB(log.GetDefaultLogger(), database, []types.Migration{{ID: "0001", SQL: "CREATE TABLE x (id INTEGER);"}})
	require.Error(t, err)
}
