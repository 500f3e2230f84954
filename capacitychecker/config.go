package capacitychecker

import (
	"fmt"

	"github.com/0xPolygon/zkbatcher/rowusage"
	"github.com/0xPolygon/zkbatcher/witness"
)

// Config is the configuration of the capacity checker
type Config struct {
	// TableVersion selects the sub-circuit layout: "v0.10" or "legacy"
	TableVersion string `mapstructure:"TableVersion" jsonschema:"enum=v0.10,enum=legacy"`
	// Mode is the witness mode used to estimate blocks while filling a chunk: "light" or "full"
	Mode witness.Mode `mapstructure:"Mode" jsonschema:"enum=light,enum=full"`
	// SubCircuits overrides the row limit of some sub-circuits of the table
	SubCircuits []rowusage.SubCircuit `mapstructure:"SubCircuits"`
}

// Table returns the sub-circuit table selected by the config, overrides applied
func (c Config) Table() (rowusage.Table, error) {
	table, err := rowusage.TableByVersion(c.TableVersion)
	if err != nil {
		return rowusage.Table{}, err
	}
	if len(c.SubCircuits) == 0 {
		return table, nil
	}
	return table.WithOverrides(c.SubCircuits)
}

// NewFromConfig returns a checker with the default witness builder and estimator.
// rowsPerRound is the number of keccak rows of one keccak-f round.
func NewFromConfig(cfg Config, rowsPerRound uint64) (*Checker, error) {
	table, err := cfg.Table()
	if err != nil {
		return nil, fmt.Errorf("error building sub-circuit table: %w", err)
	}
	return NewDefault(table, cfg.Mode, rowsPerRound)
}
