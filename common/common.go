package common

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/iden3/go-iden3-crypto/keccak256"
)

// Uint64ToBytes converts a uint64 to a byte slice
func Uint64ToBytes(num uint64) []byte {
	const uint64ByteSize = 8

	bytes := make([]byte, uint64ByteSize)
	binary.BigEndian.PutUint64(bytes, num)

	return bytes
}

// BytesToUint64 converts a byte slice to a uint64
func BytesToUint64(bytes []byte) uint64 {
	return binary.BigEndian.Uint64(bytes)
}

// Uint32ToBytes converts a uint32 to a byte slice in big-endian order
func Uint32ToBytes(num uint32) []byte {
	const uint32ByteSize = 4

	key := make([]byte, uint32ByteSize)
	binary.BigEndian.PutUint32(key, num)

	return key
}

// BytesToUint32 converts a byte slice to a uint32
func BytesToUint32(bytes []byte) uint32 {
	return binary.BigEndian.Uint32(bytes)
}

// Uint16ToBytes converts a uint16 to a byte slice in big-endian order
func Uint16ToBytes(num uint16) []byte {
	const uint16ByteSize = 2

	key := make([]byte, uint16ByteSize)
	binary.BigEndian.PutUint16(key, num)

	return key
}

// HashConcat returns keccak256 over the concatenation of the given hashes, in order.
func HashConcat(hashes ...common.Hash) common.Hash {
	parts := make([][]byte, 0, len(hashes))
	for _, h := range hashes {
		parts = append(parts, h.Bytes())
	}
	return common.BytesToHash(keccak256.Hash(parts...))
}

// CalculatePublicInputHash computes the public input hash that binds a state
// transition to its data:
// keccak256(chainID (8 bytes BE) || prevStateRoot || postStateRoot || withdrawRoot || dataHash).
// The same preimage layout is used for chunks, batches and bundles.
func CalculatePublicInputHash(
	chainID uint64,
	prevStateRoot common.Hash,
	postStateRoot common.Hash,
	withdrawRoot common.Hash,
	dataHash common.Hash,
) common.Hash {
	return common.BytesToHash(keccak256.Hash(
		Uint64ToBytes(chainID),
		prevStateRoot.Bytes(),
		postStateRoot.Bytes(),
		withdrawRoot.Bytes(),
		dataHash.Bytes(),
	))
}
