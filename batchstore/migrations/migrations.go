package migrations

import (
	_ "embed"

	"github.com/0xPolygon/zkbatcher/db"
	"github.com/0xPolygon/zkbatcher/db/types"
)

//go:embed batchstore0001.sql
var mig001 string

// RunMigrations creates or upgrades the chunk and batch tables of the sqlite file at dbPath
func RunMigrations(dbPath string) error {
	migrations := []types.Migration{
		{
			ID:  "batchstore0001",
			SQL: mig001,
		},
	}
	return db.RunMigrations(dbPath, migrations)
}
