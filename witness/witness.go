package witness

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	zkcommon "github.com/0xPolygon/zkbatcher/common"
	"github.com/ethereum/go-ethereum/common"
)

// Mode selects how much of the state trie witness is built
type Mode string

const (
	// ModeFull walks every state trie proof node. Used for final validation of a chunk.
	ModeFull Mode = "full"
	// ModeLight skips the state trie walk and bounds its cost instead
	ModeLight Mode = "light"
)

const (
	// MaxProofDepth is the deepest state trie proof accepted
	MaxProofDepth = 64
	// BlockContextBytes is the size of a serialized BlockContext
	BlockContextBytes = 60
)

var (
	// ErrMalformedTrace is returned when a trace lacks required fields or is inconsistent
	ErrMalformedTrace = errors.New("malformed block trace")
	// ErrUnknownMode is returned by ParseMode
	ErrUnknownMode = errors.New("unknown witness mode")
)

// ParseMode parses "full" or "light"
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFull, ModeLight:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// BlockContext is the per-block part of the chunk data hash preimage
type BlockContext struct {
	Number    uint64
	Timestamp uint64
	BaseFee   *big.Int
	GasLimit  uint64
	NumTxs    uint16
	NumL1Msgs uint16
}

// Bytes returns number(8) || timestamp(8) || baseFee(32) || gasLimit(8) || numTxs(2) || numL1Msgs(2)
func (c BlockContext) Bytes() []byte {
	res := make([]byte, 0, BlockContextBytes)
	res = append(res, zkcommon.Uint64ToBytes(c.Number)...)
	res = append(res, zkcommon.Uint64ToBytes(c.Timestamp)...)
	baseFee := common.Hash{}
	if c.BaseFee != nil {
		baseFee = common.BigToHash(c.BaseFee)
	}
	res = append(res, baseFee.Bytes()...)
	res = append(res, zkcommon.Uint64ToBytes(c.GasLimit)...)
	res = append(res, zkcommon.Uint16ToBytes(c.NumTxs)...)
	res = append(res, zkcommon.Uint16ToBytes(c.NumL1Msgs)...)
	return res
}

// Tx is the witness of one transaction
type Tx struct {
	BlockNumber uint64
	Hash        common.Hash
	// RLP is the typed envelope encoding, empty for L1 messages
	RLP        []byte
	CallData   []byte
	ReturnData []byte
	IsL1Msg    bool
	Failed     bool
	// Steps is the number of executed opcodes, OpCounts the same broken down by opcode name
	Steps    uint64
	OpCounts map[string]uint64
	// StateAccesses is the number of accounts and slots the transaction may touch
	StateAccesses uint64
}

// Block is the witness of a contiguous run of blocks
type Block struct {
	ChainID       uint64
	Mode          Mode
	PrevStateRoot common.Hash
	PostStateRoot common.Hash
	WithdrawRoot  common.Hash
	Contexts      []BlockContext
	Txs           []*Tx
	Codes         [][]byte
	// NumProofs is the number of account and storage proofs in the storage traces
	NumProofs uint64
	// NumProofNodes is the number of trie nodes walked. Only filled in full mode.
	NumProofNodes uint64
	// StateAccesses not attributable to a single transaction (coinbase)
	StateAccesses uint64
}

// DataHashPreimage returns every block context followed by every tx hash, in order
func (b *Block) DataHashPreimage() []byte {
	res := make([]byte, 0, len(b.Contexts)*BlockContextBytes+len(b.Txs)*common.HashLength)
	for _, c := range b.Contexts {
		res = append(res, c.Bytes()...)
	}
	for _, tx := range b.Txs {
		res = append(res, tx.Hash.Bytes()...)
	}
	return res
}

// TxBytes returns the concatenation of the encoded L2 transactions, L1 messages excluded
func (b *Block) TxBytes() []byte {
	size := 0
	for _, tx := range b.Txs {
		size += len(tx.RLP)
	}
	res := make([]byte, 0, size)
	for _, tx := range b.Txs {
		if tx.IsL1Msg {
			continue
		}
		res = append(res, tx.RLP...)
	}
	return res
}

// NumTxsInContexts returns the tx count declared by the block contexts
func (b *Block) NumTxsInContexts() uint64 {
	var n uint64
	for _, c := range b.Contexts {
		n += uint64(c.NumTxs)
	}
	return n
}

// ForTx returns a block holding only the tx at index i. Block level data (contexts,
// bytecodes, proofs) is attached to the first tx only, so the estimates of every
// ForTx(i) add up to the estimate of the whole block.
func (b *Block) ForTx(i int) (*Block, error) {
	if i < 0 || i >= len(b.Txs) {
		return nil, fmt.Errorf("%w: tx index %d out of range [0, %d)", ErrMalformedTrace, i, len(b.Txs))
	}
	res := &Block{
		ChainID:       b.ChainID,
		Mode:          b.Mode,
		PrevStateRoot: b.PrevStateRoot,
		PostStateRoot: b.PostStateRoot,
		WithdrawRoot:  b.WithdrawRoot,
		Txs:           []*Tx{b.Txs[i]},
	}
	if i == 0 {
		res.Contexts = b.Contexts
		res.Codes = b.Codes
		res.NumProofs = b.NumProofs
		res.NumProofNodes = b.NumProofNodes
		res.StateAccesses = b.StateAccesses
	}
	return res, nil
}

// Builder builds the witness of a run of block traces
type Builder interface {
	BuildWitness(traces []*BlockTrace, mode Mode) (*Block, error)
}

var _ Builder = (*TraceBuilder)(nil)

// TraceBuilder builds witnesses straight from the l2 node traces
type TraceBuilder struct{}

// NewTraceBuilder returns a TraceBuilder
func NewTraceBuilder() *TraceBuilder {
	return &TraceBuilder{}
}

// BuildWitness validates the traces and builds their witness
func (tb *TraceBuilder) BuildWitness(traces []*BlockTrace, mode Mode) (*Block, error) {
	if mode != ModeFull && mode != ModeLight {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if len(traces) == 0 {
		return nil, fmt.Errorf("%w: no traces", ErrMalformedTrace)
	}

	res := &Block{Mode: mode}
	for i, trace := range traces {
		if err := checkTrace(trace, mode); err != nil {
			return nil, err
		}
		if i == 0 {
			res.ChainID = trace.ChainID
			if trace.StorageTrace != nil {
				res.PrevStateRoot = trace.StorageTrace.RootBefore
			}
		} else {
			prev := traces[i-1]
			if err := checkContiguous(prev, trace, mode); err != nil {
				return nil, err
			}
		}

		if err := tb.addTrace(res, trace, mode); err != nil {
			return nil, err
		}
	}

	last := traces[len(traces)-1]
	res.PostStateRoot = last.Header.StateRoot
	res.WithdrawRoot = last.WithdrawTrieRoot
	return res, nil
}

func checkTrace(trace *BlockTrace, mode Mode) error {
	if trace == nil {
		return fmt.Errorf("%w: nil trace", ErrMalformedTrace)
	}
	if trace.Header == nil {
		return fmt.Errorf("%w: missing header", ErrMalformedTrace)
	}
	number := uint64(trace.Header.Number)
	if len(trace.Transactions) != len(trace.ExecutionResults) {
		return fmt.Errorf("%w: block %d has %d txs and %d execution results",
			ErrMalformedTrace, number, len(trace.Transactions), len(trace.ExecutionResults))
	}
	if len(trace.Transactions) > math.MaxUint16 {
		return fmt.Errorf("%w: block %d has %d txs", ErrMalformedTrace, number, len(trace.Transactions))
	}
	if trace.Header.BaseFee != nil && trace.Header.BaseFee.ToInt().BitLen() > 256 { //nolint:mnd
		return fmt.Errorf("%w: block %d base fee overflows 256 bits", ErrMalformedTrace, number)
	}
	if mode == ModeFull {
		if trace.StorageTrace == nil {
			return fmt.Errorf("%w: block %d has no storage trace", ErrMalformedTrace, number)
		}
		if trace.StorageTrace.RootAfter != trace.Header.StateRoot {
			return fmt.Errorf("%w: block %d storage trace root %s doesn't match state root %s",
				ErrMalformedTrace, number, trace.StorageTrace.RootAfter, trace.Header.StateRoot)
		}
	}
	return nil
}

func checkContiguous(prev, next *BlockTrace, mode Mode) error {
	if next.ChainID != prev.ChainID {
		return fmt.Errorf("%w: chain id %d after %d", ErrMalformedTrace, next.ChainID, prev.ChainID)
	}
	if uint64(next.Header.Number) != uint64(prev.Header.Number)+1 {
		return fmt.Errorf("%w: block %d after block %d", ErrMalformedTrace, next.Header.Number, prev.Header.Number)
	}
	if next.Header.ParentHash != prev.Header.Hash {
		return fmt.Errorf("%w: block %d parent hash %s doesn't match %s",
			ErrMalformedTrace, next.Header.Number, next.Header.ParentHash, prev.Header.Hash)
	}
	if mode == ModeFull && next.StorageTrace.RootBefore != prev.Header.StateRoot {
		return fmt.Errorf("%w: block %d starts from root %s, previous block ends at %s",
			ErrMalformedTrace, next.Header.Number, next.StorageTrace.RootBefore, prev.Header.StateRoot)
	}
	return nil
}

func (tb *TraceBuilder) addTrace(res *Block, trace *BlockTrace, mode Mode) error {
	number := uint64(trace.Header.Number)
	ctx := BlockContext{
		Number:    number,
		Timestamp: uint64(trace.Header.Timestamp),
		GasLimit:  uint64(trace.Header.GasLimit),
		NumTxs:    uint16(len(trace.Transactions)),
	}
	if trace.Header.BaseFee != nil {
		ctx.BaseFee = new(big.Int).Set(trace.Header.BaseFee.ToInt())
	}

	for i, txData := range trace.Transactions {
		if txData == nil || trace.ExecutionResults[i] == nil {
			return fmt.Errorf("%w: block %d tx %d is empty", ErrMalformedTrace, number, i)
		}
		tx, err := buildTx(number, txData, trace.ExecutionResults[i])
		if err != nil {
			return fmt.Errorf("block %d tx %d: %w", number, i, err)
		}
		if tx.IsL1Msg {
			ctx.NumL1Msgs++
		}
		res.Txs = append(res.Txs, tx)
	}
	res.Contexts = append(res.Contexts, ctx)

	for _, code := range trace.Codes {
		res.Codes = append(res.Codes, []byte(code))
	}
	// coinbase
	res.StateAccesses++

	if trace.StorageTrace != nil {
		proofs, nodes, err := proofStats(number, trace.StorageTrace)
		if err != nil {
			return err
		}
		res.NumProofs += proofs
		if mode == ModeFull {
			res.NumProofNodes += nodes
		}
	}
	return nil
}

func buildTx(number uint64, data *TransactionData, result *ExecutionResult) (*Tx, error) {
	tx := &Tx{
		BlockNumber: number,
		CallData:    data.Data,
		ReturnData:  result.ReturnValue,
		IsL1Msg:     data.IsL1Msg(),
		Failed:      result.Failed,
		OpCounts:    make(map[string]uint64),
		// sender and receiver
		StateAccesses: 2, //nolint:mnd
	}

	if tx.IsL1Msg {
		if data.TxHash == (common.Hash{}) {
			return nil, fmt.Errorf("%w: l1 message without hash", ErrMalformedTrace)
		}
		tx.Hash = data.TxHash
	} else {
		signed, err := data.ToTransaction()
		if err != nil {
			return nil, err
		}
		if data.TxHash != (common.Hash{}) && data.TxHash != signed.Hash() {
			return nil, fmt.Errorf("%w: tx hash %s doesn't match the encoded tx %s",
				ErrMalformedTrace, data.TxHash, signed.Hash())
		}
		tx.Hash = signed.Hash()
		tx.RLP, err = signed.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("%w: encoding tx: %w", ErrMalformedTrace, err)
		}
	}

	for _, l := range result.StructLogs {
		if l.Op == "" {
			return nil, fmt.Errorf("%w: struct log without op", ErrMalformedTrace)
		}
		tx.Steps++
		tx.OpCounts[l.Op]++
		if _, ok := stateAccessOps[l.Op]; ok {
			tx.StateAccesses++
		}
	}
	return tx, nil
}

func proofStats(number uint64, st *StorageTrace) (proofs uint64, nodes uint64, err error) {
	check := func(depth int) error {
		if depth > MaxProofDepth {
			return fmt.Errorf("%w: block %d has a proof of depth %d, max is %d",
				ErrMalformedTrace, number, depth, MaxProofDepth)
		}
		proofs++
		nodes += uint64(depth)
		return nil
	}
	for _, proof := range st.Proofs {
		if err := check(len(proof)); err != nil {
			return 0, 0, err
		}
	}
	for _, slots := range st.StorageProofs {
		for _, proof := range slots {
			if err := check(len(proof)); err != nil {
				return 0, 0, err
			}
		}
	}
	return proofs, nodes, nil
}

var stateAccessOps = map[string]struct{}{
	"SLOAD":        {},
	"SSTORE":       {},
	"BALANCE":      {},
	"SELFBALANCE":  {},
	"EXTCODESIZE":  {},
	"EXTCODEHASH":  {},
	"EXTCODECOPY":  {},
	"CALL":         {},
	"CALLCODE":     {},
	"DELEGATECALL": {},
	"STATICCALL":   {},
	"CREATE":       {},
	"CREATE2":      {},
	"SELFDESTRUCT": {},
}
