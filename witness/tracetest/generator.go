// Package tracetest generates contiguous, internally consistent block traces for tests
package tracetest

import (
	"crypto/ecdsa"
	"math/big"

	zkcommon "github.com/0xPolygon/zkbatcher/common"
	"github.com/0xPolygon/zkbatcher/witness"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"
	// ProofDepth is the depth of every generated trie proof
	ProofDepth = 8
)

var defaultOps = []string{"PUSH1", "SLOAD", "ADD", "SHA3", "EXP", "SSTORE", "CALL", "MSTORE"}

// Generator produces a chain of block traces: numbers, parent hashes and state roots link up
type Generator struct {
	ChainID uint64
	// L1MsgsPerBlock is the number of L1 messages prepended to every block
	L1MsgsPerBlock int
	// CallDataSize is the size of the calldata of every L2 tx
	CallDataSize int

	key       *ecdsa.PrivateKey
	signer    types.Signer
	nonce     uint64
	l1Queue   uint64
	number    uint64
	lastHash  common.Hash
	lastRoot  common.Hash
	withdraws common.Hash
}

// NewGenerator returns a generator whose first block is number 1
func NewGenerator(chainID uint64) *Generator {
	key, err := crypto.HexToECDSA(testKey)
	if err != nil {
		panic(err)
	}
	return &Generator{
		ChainID:      chainID,
		CallDataSize: 16, //nolint:mnd
		key:          key,
		signer:       types.LatestSignerForChainID(new(big.Int).SetUint64(chainID)),
		lastHash:     crypto.Keccak256Hash([]byte("genesis")),
		lastRoot:     crypto.Keccak256Hash([]byte("genesis-root")),
	}
}

// Blocks returns the next n blocks
func (g *Generator) Blocks(n, txsPerBlock, opsPerTx int) []*witness.BlockTrace {
	res := make([]*witness.BlockTrace, n)
	for i := range res {
		res[i] = g.NextBlock(txsPerBlock, opsPerTx)
	}
	return res
}

// NextBlock returns the next block with txs L2 transactions, each executing ops opcodes
func (g *Generator) NextBlock(txs, ops int) *witness.BlockTrace {
	g.number++
	number := zkcommon.Uint64ToBytes(g.number)
	root := crypto.Keccak256Hash([]byte("root"), number)
	hash := crypto.Keccak256Hash([]byte("block"), number)
	g.withdraws = crypto.Keccak256Hash([]byte("withdraw"), number)

	trace := &witness.BlockTrace{
		ChainID: g.ChainID,
		Header: &witness.BlockHeader{
			Number:     hexutil.Uint64(g.number),
			Hash:       hash,
			ParentHash: g.lastHash,
			StateRoot:  root,
			Timestamp:  hexutil.Uint64(1_700_000_000 + g.number*3), //nolint:mnd
			GasLimit:   hexutil.Uint64(10_000_000),                 //nolint:mnd
			BaseFee:    (*hexutil.Big)(big.NewInt(1_000_000)),      //nolint:mnd
		},
		Codes:            []hexutil.Bytes{{0x60, 0x00, 0x60, 0x00, 0xf3}},
		WithdrawTrieRoot: g.withdraws,
		StorageTrace: &witness.StorageTrace{
			RootBefore:    g.lastRoot,
			RootAfter:     root,
			Proofs:        map[common.Address][]hexutil.Bytes{},
			StorageProofs: map[common.Address]map[common.Hash][]hexutil.Bytes{},
		},
	}

	for i := 0; i < g.L1MsgsPerBlock; i++ {
		g.l1Queue++
		trace.Transactions = append(trace.Transactions, &witness.TransactionData{
			Type:   witness.L1MessageTxType,
			Nonce:  g.l1Queue,
			TxHash: crypto.Keccak256Hash([]byte("l1msg"), zkcommon.Uint64ToBytes(g.l1Queue)),
			Gas:    100_000, //nolint:mnd
			Data:   make([]byte, g.CallDataSize),
		})
		trace.ExecutionResults = append(trace.ExecutionResults, g.result(ops))
	}

	for i := 0; i < txs; i++ {
		to := common.BigToAddress(new(big.Int).SetUint64(g.number*1000 + uint64(i))) //nolint:mnd
		data := make([]byte, g.CallDataSize)
		data[0] = byte(i)
		tx, err := types.SignNewTx(g.key, g.signer, &types.DynamicFeeTx{
			ChainID:   new(big.Int).SetUint64(g.ChainID),
			Nonce:     g.nonce,
			GasTipCap: big.NewInt(1),
			GasFeeCap: big.NewInt(2_000_000), //nolint:mnd
			Gas:       100_000,               //nolint:mnd
			To:        &to,
			Value:     big.NewInt(1),
			Data:      data,
		})
		if err != nil {
			panic(err)
		}
		g.nonce++
		trace.Transactions = append(trace.Transactions,
			witness.NewTransactionData(tx, crypto.PubkeyToAddress(g.key.PublicKey)))
		trace.ExecutionResults = append(trace.ExecutionResults, g.result(ops))

		proof := make([]hexutil.Bytes, ProofDepth)
		for j := range proof {
			proof[j] = crypto.Keccak256(to.Bytes(), []byte{byte(j)})
		}
		trace.StorageTrace.Proofs[to] = proof
	}

	g.lastHash = hash
	g.lastRoot = root
	return trace
}

func (g *Generator) result(ops int) *witness.ExecutionResult {
	res := &witness.ExecutionResult{Gas: 21_000} //nolint:mnd
	for i := 0; i < ops; i++ {
		res.StructLogs = append(res.StructLogs, witness.StructLog{Op: defaultOps[i%len(defaultOps)], Depth: 1})
	}
	return res
}
