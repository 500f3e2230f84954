package batch

import (
	"github.com/0xPolygon/zkbatcher/chunk"
	zkcommon "github.com/0xPolygon/zkbatcher/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// chainedChunks returns n chunks of chain 1 linked by their state roots, each one
// carrying payloadSize bytes of incompressible tx data
func chainedChunks(n, payloadSize int) []*chunk.ChunkInfo {
	res := make([]*chunk.ChunkInfo, n)
	prev := crypto.Keccak256Hash([]byte("genesis"))
	for i := range res {
		idx := zkcommon.Uint64ToBytes(uint64(i))
		post := crypto.Keccak256Hash([]byte("root"), idx)
		res[i] = &chunk.ChunkInfo{
			ChainID:       1,
			PrevStateRoot: prev,
			PostStateRoot: post,
			WithdrawRoot:  crypto.Keccak256Hash([]byte("withdraw"), idx),
			DataHash:      crypto.Keccak256Hash([]byte("data"), idx),
			TxBytes:       pseudoRandomBytes(payloadSize, uint64(i)),
		}
		prev = post
	}
	return res
}

func pseudoRandomBytes(n int, seed uint64) []byte {
	res := make([]byte, 0, n+32)
	h := crypto.Keccak256(zkcommon.Uint64ToBytes(seed))
	for len(res) < n {
		res = append(res, h...)
		h = crypto.Keccak256(h)
	}
	return res[:n]
}
