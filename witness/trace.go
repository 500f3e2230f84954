package witness

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// L1MessageTxType is the type of the transactions relayed from L1. They carry no signature
// and are not part of the payload posted to the data availability layer.
const L1MessageTxType = 0x7E

// BlockTrace is the execution trace of one L2 block as returned by the l2 node
type BlockTrace struct {
	ChainID          uint64             `json:"chainID"`
	Header           *BlockHeader       `json:"header"`
	Transactions     []*TransactionData `json:"transactions"`
	ExecutionResults []*ExecutionResult `json:"executionResults"`
	StorageTrace     *StorageTrace      `json:"storageTrace,omitempty"`
	Codes            []hexutil.Bytes    `json:"codes"`
	WithdrawTrieRoot common.Hash        `json:"withdraw_trie_root"`
}

// BlockHeader is the subset of the block header the witness needs
type BlockHeader struct {
	Number     hexutil.Uint64 `json:"number"`
	Hash       common.Hash    `json:"hash"`
	ParentHash common.Hash    `json:"parentHash"`
	StateRoot  common.Hash    `json:"stateRoot"`
	Timestamp  hexutil.Uint64 `json:"timestamp"`
	GasLimit   hexutil.Uint64 `json:"gasLimit"`
	BaseFee    *hexutil.Big   `json:"baseFeePerGas"`
}

// TransactionData is a transaction as it appears in a block trace
type TransactionData struct {
	Type       uint8            `json:"type"`
	Nonce      uint64           `json:"nonce"`
	TxHash     common.Hash      `json:"txHash"`
	Gas        uint64           `json:"gas"`
	GasPrice   *hexutil.Big     `json:"gasPrice"`
	GasTipCap  *hexutil.Big     `json:"gasTipCap,omitempty"`
	GasFeeCap  *hexutil.Big     `json:"gasFeeCap,omitempty"`
	From       common.Address   `json:"from"`
	To         *common.Address  `json:"to"`
	ChainID    *hexutil.Big     `json:"chainId,omitempty"`
	Value      *hexutil.Big     `json:"value"`
	Data       hexutil.Bytes    `json:"data"`
	AccessList types.AccessList `json:"accessList,omitempty"`
	V          *hexutil.Big     `json:"v"`
	R          *hexutil.Big     `json:"r"`
	S          *hexutil.Big     `json:"s"`
}

// ExecutionResult is the result of executing one transaction of the block
type ExecutionResult struct {
	Gas         uint64        `json:"gas"`
	Failed      bool          `json:"failed"`
	ReturnValue hexutil.Bytes `json:"returnValue"`
	StructLogs  []StructLog   `json:"structLogs"`
}

// StructLog is one executed opcode
type StructLog struct {
	Op    string `json:"op"`
	Depth int    `json:"depth"`
}

// StorageTrace holds the state trie proofs touched by the block
type StorageTrace struct {
	RootBefore    common.Hash                                        `json:"rootBefore"`
	RootAfter     common.Hash                                        `json:"rootAfter"`
	Proofs        map[common.Address][]hexutil.Bytes                 `json:"proofs"`
	StorageProofs map[common.Address]map[common.Hash][]hexutil.Bytes `json:"storageProofs"`
}

// IsL1Msg reports whether the transaction was relayed from L1
func (t *TransactionData) IsL1Msg() bool {
	return t.Type == L1MessageTxType
}

// ToTransaction rebuilds the signed transaction. L1 messages can't be represented
// and return an error.
func (t *TransactionData) ToTransaction() (*types.Transaction, error) {
	var inner types.TxData
	switch t.Type {
	case types.LegacyTxType:
		inner = &types.LegacyTx{
			Nonce:    t.Nonce,
			GasPrice: toBig(t.GasPrice),
			Gas:      t.Gas,
			To:       t.To,
			Value:    toBig(t.Value),
			Data:     t.Data,
			V:        toBig(t.V),
			R:        toBig(t.R),
			S:        toBig(t.S),
		}
	case types.AccessListTxType:
		inner = &types.AccessListTx{
			ChainID:    toBig(t.ChainID),
			Nonce:      t.Nonce,
			GasPrice:   toBig(t.GasPrice),
			Gas:        t.Gas,
			To:         t.To,
			Value:      toBig(t.Value),
			Data:       t.Data,
			AccessList: t.AccessList,
			V:          toBig(t.V),
			R:          toBig(t.R),
			S:          toBig(t.S),
		}
	case types.DynamicFeeTxType:
		inner = &types.DynamicFeeTx{
			ChainID:    toBig(t.ChainID),
			Nonce:      t.Nonce,
			GasTipCap:  toBig(t.GasTipCap),
			GasFeeCap:  toBig(t.GasFeeCap),
			Gas:        t.Gas,
			To:         t.To,
			Value:      toBig(t.Value),
			Data:       t.Data,
			AccessList: t.AccessList,
			V:          toBig(t.V),
			R:          toBig(t.R),
			S:          toBig(t.S),
		}
	default:
		return nil, fmt.Errorf("%w: unsupported tx type %d", ErrMalformedTrace, t.Type)
	}
	return types.NewTx(inner), nil
}

// NewTransactionData fills the trace representation of a signed transaction
func NewTransactionData(tx *types.Transaction, from common.Address) *TransactionData {
	v, r, s := tx.RawSignatureValues()
	data := &TransactionData{
		Type:       tx.Type(),
		Nonce:      tx.Nonce(),
		TxHash:     tx.Hash(),
		Gas:        tx.Gas(),
		GasPrice:   (*hexutil.Big)(tx.GasPrice()),
		From:       from,
		To:         tx.To(),
		Value:      (*hexutil.Big)(tx.Value()),
		Data:       tx.Data(),
		AccessList: tx.AccessList(),
		V:          (*hexutil.Big)(v),
		R:          (*hexutil.Big)(r),
		S:          (*hexutil.Big)(s),
	}
	if tx.Type() != types.LegacyTxType {
		data.ChainID = (*hexutil.Big)(tx.ChainId())
		data.GasTipCap = (*hexutil.Big)(tx.GasTipCap())
		data.GasFeeCap = (*hexutil.Big)(tx.GasFeeCap())
	}
	return data
}

func toBig(b *hexutil.Big) *big.Int {
	if b == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.ToInt())
}
