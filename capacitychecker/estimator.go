package capacitychecker

import (
	"errors"
	"fmt"

	zkcommon "github.com/0xPolygon/zkbatcher/common"
	"github.com/0xPolygon/zkbatcher/rowusage"
	"github.com/0xPolygon/zkbatcher/witness"
	"github.com/ethereum/go-ethereum/common"
)

const (
	// keccakRoundsPerPermutation is the 24 rounds of keccak-f plus the absorb round
	keccakRoundsPerPermutation = 25
	keccakRate                 = 136

	evmRowsPerTx         = 2
	evmRowsPerBlock      = 1
	stateRowsPerTx       = 12
	stateRowsPerAccess   = 4
	copyRowsPerByte      = 2
	copyRowsPerCopyOp    = 64
	txRowsPerTx          = 18
	expRowsPerOp         = 8
	poseidonRowsPerPerm  = 12
	poseidonBytesPerPerm = 31
	poseidonPermsPerNode = 2
	mptRowsPerNode       = 12
	sigRowsPerTx         = 7_000
)

// ErrUnknownSubCircuit is returned when a table names a sub-circuit the estimator can't compute
var ErrUnknownSubCircuit = errors.New("unknown sub-circuit")

// RowEstimator maps a witness to its fixed-order row usage
type RowEstimator interface {
	EstimateRowUsage(block *witness.Block) ([]rowusage.SubCircuitRowUsage, error)
}

var _ RowEstimator = (*DefaultEstimator)(nil)

// DefaultEstimator derives the row usage of every known sub-circuit from the witness alone.
// Every cost is additive over transactions: per-block costs are charged by the block
// contexts, bytecodes and proofs, which witness.Block.ForTx only attaches to the first tx.
type DefaultEstimator struct {
	names        []string
	rowsPerRound uint64
}

// NewDefaultEstimator returns an estimator producing the layout of table
func NewDefaultEstimator(table rowusage.Table, rowsPerRound uint64) (*DefaultEstimator, error) {
	if rowsPerRound == 0 {
		rowsPerRound = zkcommon.DefaultRowsPerRound
	}
	for _, name := range table.Names() {
		if _, ok := estimators[name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSubCircuit, name)
		}
	}
	return &DefaultEstimator{
		names:        table.Names(),
		rowsPerRound: rowsPerRound,
	}, nil
}

// EstimateRowUsage returns the rows used by block, one entry per sub-circuit of the table
func (e *DefaultEstimator) EstimateRowUsage(block *witness.Block) ([]rowusage.SubCircuitRowUsage, error) {
	if block == nil {
		return nil, fmt.Errorf("%w: nil witness", witness.ErrMalformedTrace)
	}
	res := make([]rowusage.SubCircuitRowUsage, len(e.names))
	for i, name := range e.names {
		res[i] = rowusage.SubCircuitRowUsage{
			Name:      name,
			RowNumber: estimators[name](e, block),
		}
	}
	return res, nil
}

var estimators = map[string]func(e *DefaultEstimator, b *witness.Block) uint64{
	rowusage.EVM:      (*DefaultEstimator).evmRows,
	rowusage.State:    (*DefaultEstimator).stateRows,
	rowusage.Bytecode: (*DefaultEstimator).bytecodeRows,
	rowusage.Copy:     (*DefaultEstimator).copyRows,
	rowusage.Keccak:   (*DefaultEstimator).keccakRows,
	rowusage.Tx:       (*DefaultEstimator).txRows,
	rowusage.RLP:      (*DefaultEstimator).rlpRows,
	rowusage.Exp:      (*DefaultEstimator).expRows,
	rowusage.PI:       (*DefaultEstimator).piRows,
	rowusage.Poseidon: (*DefaultEstimator).poseidonRows,
	rowusage.Sig:      (*DefaultEstimator).sigRows,
	rowusage.MPT:      (*DefaultEstimator).mptRows,
	// precompile calls are not visible in struct logs
	rowusage.ModExp: func(*DefaultEstimator, *witness.Block) uint64 { return 0 },
	rowusage.ECC:    func(*DefaultEstimator, *witness.Block) uint64 { return 0 },
}

var evmHeavyOps = map[string]uint64{
	"CALL":         3,
	"CALLCODE":     3,
	"DELEGATECALL": 3,
	"STATICCALL":   3,
	"CREATE":       3,
	"CREATE2":      3,
	"SHA3":         2,
	"KECCAK256":    2,
}

var copyOps = []string{
	"CALLDATACOPY", "CODECOPY", "EXTCODECOPY", "RETURNDATACOPY", "MCOPY",
	"LOG0", "LOG1", "LOG2", "LOG3", "LOG4", "RETURN", "REVERT",
}

func (e *DefaultEstimator) evmRows(b *witness.Block) uint64 {
	rows := uint64(len(b.Contexts)) * evmRowsPerBlock
	for _, tx := range b.Txs {
		rows += evmRowsPerTx + tx.Steps
		for op, height := range evmHeavyOps {
			rows += tx.OpCounts[op] * (height - 1)
		}
	}
	return rows
}

func (e *DefaultEstimator) stateRows(b *witness.Block) uint64 {
	rows := b.StateAccesses * stateRowsPerAccess
	for _, tx := range b.Txs {
		rows += stateRowsPerTx + tx.StateAccesses*stateRowsPerAccess
	}
	return rows
}

func (e *DefaultEstimator) bytecodeRows(b *witness.Block) uint64 {
	var rows uint64
	for _, code := range b.Codes {
		rows += uint64(len(code)) + 1
	}
	return rows
}

func (e *DefaultEstimator) copyRows(b *witness.Block) uint64 {
	var rows uint64
	for _, tx := range b.Txs {
		rows += copyRowsPerByte * uint64(len(tx.CallData)+len(tx.ReturnData))
		for _, op := range copyOps {
			rows += tx.OpCounts[op] * copyRowsPerCopyOp
		}
	}
	return rows
}

// keccakPermutations is ceil((len+1)/rate): the padding always adds at least one byte
func keccakPermutations(length int) uint64 {
	return uint64(length/keccakRate) + 1
}

func (e *DefaultEstimator) keccakRows(b *witness.Block) uint64 {
	var perms uint64
	if len(b.Contexts) > 0 {
		preimage := len(b.Contexts)*witness.BlockContextBytes + int(b.NumTxsInContexts())*common.HashLength
		perms += keccakPermutations(preimage)
	}
	for _, code := range b.Codes {
		perms += keccakPermutations(len(code))
	}
	for _, tx := range b.Txs {
		if tx.IsL1Msg {
			perms += keccakPermutations(len(tx.CallData))
		} else {
			perms += keccakPermutations(len(tx.RLP))
		}
		perms += tx.OpCounts["SHA3"] + tx.OpCounts["KECCAK256"]
	}
	return perms * keccakRoundsPerPermutation * e.rowsPerRound
}

func (e *DefaultEstimator) txRows(b *witness.Block) uint64 {
	var rows uint64
	for _, tx := range b.Txs {
		rows += txRowsPerTx + uint64(len(tx.CallData))
	}
	return rows
}

func (e *DefaultEstimator) rlpRows(b *witness.Block) uint64 {
	var rows uint64
	for _, tx := range b.Txs {
		if tx.IsL1Msg {
			rows += uint64(len(tx.CallData)) + txRowsPerTx
		} else {
			rows += uint64(len(tx.RLP))
		}
	}
	return rows
}

func (e *DefaultEstimator) expRows(b *witness.Block) uint64 {
	var rows uint64
	for _, tx := range b.Txs {
		rows += tx.OpCounts["EXP"] * expRowsPerOp
	}
	return rows
}

func (e *DefaultEstimator) piRows(b *witness.Block) uint64 {
	return uint64(len(b.Contexts)*witness.BlockContextBytes + len(b.Txs)*common.HashLength)
}

func (e *DefaultEstimator) poseidonRows(b *witness.Block) uint64 {
	var perms uint64
	for _, code := range b.Codes {
		perms += uint64(len(code)/poseidonBytesPerPerm) + 1
	}
	perms += e.trieNodes(b) * poseidonPermsPerNode
	return perms * poseidonRowsPerPerm
}

func (e *DefaultEstimator) sigRows(b *witness.Block) uint64 {
	var rows uint64
	for _, tx := range b.Txs {
		if !tx.IsL1Msg {
			rows += sigRowsPerTx
		}
	}
	return rows
}

func (e *DefaultEstimator) mptRows(b *witness.Block) uint64 {
	return e.trieNodes(b) * mptRowsPerNode
}

// trieNodes is the number of state trie nodes to hash. In light mode the proofs are
// not walked: every proof and every possible state access is charged at the maximum
// depth, which never under-reports against the full walk.
func (e *DefaultEstimator) trieNodes(b *witness.Block) uint64 {
	if b.Mode == witness.ModeFull {
		return b.NumProofNodes
	}
	accesses := b.NumProofs + b.StateAccesses
	for _, tx := range b.Txs {
		accesses += tx.StateAccesses
	}
	return accesses * witness.MaxProofDepth
}
