package rowusage

import (
	"errors"
	"fmt"
)

const (
	// TableVersionV010 is the 14 sub-circuit layout (signature, ecc, modexp and mpt circuits included)
	TableVersionV010 = "v0.10"
	// TableVersionLegacy is the 10 sub-circuit layout used before the signature and trie circuits
	TableVersionLegacy = "legacy"
)

// Sub-circuit names
const (
	EVM      = "evm"
	State    = "state"
	Bytecode = "bytecode"
	Copy     = "copy"
	Keccak   = "keccak"
	Tx       = "tx"
	RLP      = "rlp"
	Exp      = "exp"
	ModExp   = "modexp"
	PI       = "pi"
	Poseidon = "poseidon"
	Sig      = "sig"
	ECC      = "ecc"
	MPT      = "mpt"
)

var (
	// ErrUnknownTableVersion is returned when no built-in table matches the requested version
	ErrUnknownTableVersion = errors.New("unknown sub-circuit table version")
	// ErrInvalidTable is returned by Validate on empty tables, duplicated names or zero limits
	ErrInvalidTable = errors.New("invalid sub-circuit table")
)

// SubCircuit is one entry of a Table: a named sub-circuit and the maximum number of rows it can hold
type SubCircuit struct {
	Name    string `mapstructure:"Name" json:"name"`
	MaxRows uint64 `mapstructure:"MaxRows" json:"max_rows"`
}

// Table is an explicitly versioned, ordered list of sub-circuits. The order fixes the
// layout of every RowUsage built from it.
type Table struct {
	Version     string
	SubCircuits []SubCircuit
}

// TableV010 returns the 14 entries layout
func TableV010() Table {
	return Table{
		Version: TableVersionV010,
		SubCircuits: []SubCircuit{
			{Name: EVM, MaxRows: 1_000_000},
			{Name: State, MaxRows: 1_000_000},
			{Name: Bytecode, MaxRows: 400_000},
			{Name: Copy, MaxRows: 1_000_000},
			{Name: Keccak, MaxRows: 524_000},
			{Name: Tx, MaxRows: 400_000},
			{Name: RLP, MaxRows: 1_000_000},
			{Name: Exp, MaxRows: 1_000_000},
			{Name: ModExp, MaxRows: 1_000_000},
			{Name: PI, MaxRows: 1_000_000},
			{Name: Poseidon, MaxRows: 1_000_000},
			{Name: Sig, MaxRows: 1_000_000},
			{Name: ECC, MaxRows: 1_000_000},
			{Name: MPT, MaxRows: 400_000},
		},
	}
}

// TableLegacy returns the 10 entries layout
func TableLegacy() Table {
	return Table{
		Version: TableVersionLegacy,
		SubCircuits: []SubCircuit{
			{Name: EVM, MaxRows: 1_000_000},
			{Name: State, MaxRows: 1_000_000},
			{Name: Bytecode, MaxRows: 400_000},
			{Name: Copy, MaxRows: 1_000_000},
			{Name: Keccak, MaxRows: 524_000},
			{Name: Tx, MaxRows: 400_000},
			{Name: RLP, MaxRows: 1_000_000},
			{Name: Exp, MaxRows: 1_000_000},
			{Name: PI, MaxRows: 1_000_000},
			{Name: Poseidon, MaxRows: 1_000_000},
		},
	}
}

// TableByVersion returns the built-in table for version
func TableByVersion(version string) (Table, error) {
	switch version {
	case TableVersionV010:
		return TableV010(), nil
	case TableVersionLegacy:
		return TableLegacy(), nil
	default:
		return Table{}, fmt.Errorf("%w: %q", ErrUnknownTableVersion, version)
	}
}

// WithOverrides returns a copy of the table where the limits of the named sub-circuits
// are replaced. Overriding an unknown sub-circuit is an error: the layout is fixed by the version.
func (t Table) WithOverrides(overrides []SubCircuit) (Table, error) {
	res := Table{
		Version:     t.Version,
		SubCircuits: make([]SubCircuit, len(t.SubCircuits)),
	}
	copy(res.SubCircuits, t.SubCircuits)

	for _, o := range overrides {
		idx := res.index(o.Name)
		if idx < 0 {
			return Table{}, fmt.Errorf("%w: sub-circuit %q not present in table %s", ErrInvalidTable, o.Name, t.Version)
		}
		res.SubCircuits[idx].MaxRows = o.MaxRows
	}

	return res, res.Validate()
}

// Validate checks the table can be used to build row usages
func (t Table) Validate() error {
	if len(t.SubCircuits) == 0 {
		return fmt.Errorf("%w: no sub-circuits", ErrInvalidTable)
	}
	seen := make(map[string]struct{}, len(t.SubCircuits))
	for _, sc := range t.SubCircuits {
		if sc.Name == "" {
			return fmt.Errorf("%w: empty sub-circuit name", ErrInvalidTable)
		}
		if sc.MaxRows == 0 {
			return fmt.Errorf("%w: sub-circuit %q has no rows", ErrInvalidTable, sc.Name)
		}
		if _, ok := seen[sc.Name]; ok {
			return fmt.Errorf("%w: sub-circuit %q is duplicated", ErrInvalidTable, sc.Name)
		}
		seen[sc.Name] = struct{}{}
	}
	return nil
}

// Names returns the sub-circuit names in layout order
func (t Table) Names() []string {
	names := make([]string, len(t.SubCircuits))
	for i, sc := range t.SubCircuits {
		names[i] = sc.Name
	}
	return names
}

func (t Table) index(name string) int {
	for i, sc := range t.SubCircuits {
		if sc.Name == name {
			return i
		}
	}
	return -1
}

// Empty returns a zeroed RowUsage with the table layout
func (t Table) Empty() *RowUsage {
	details := make([]SubCircuitRowUsage, len(t.SubCircuits))
	limits := make([]uint64, len(t.SubCircuits))
	for i, sc := range t.SubCircuits {
		details[i] = SubCircuitRowUsage{Name: sc.Name}
		limits[i] = sc.MaxRows
	}
	r := &RowUsage{RowUsageDetails: details, limits: limits}
	r.update()
	return r
}

// FromRows projects the given (name, rows) pairs onto the table layout. Sub-circuits the
// table does not know about are rejected; sub-circuits missing from rows count as zero.
func (t Table) FromRows(rows []SubCircuitRowUsage) (*RowUsage, error) {
	r := t.Empty()
	for _, row := range rows {
		idx := t.index(row.Name)
		if idx < 0 {
			return nil, fmt.Errorf("%w: sub-circuit %q not present in table %s", ErrLayoutMismatch, row.Name, t.Version)
		}
		r.RowUsageDetails[idx].RowNumber += row.RowNumber
	}
	r.update()
	return r, nil
}
