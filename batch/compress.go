package batch

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compressor compresses the blob payload. It must be deterministic: the same input
// always produces the same output.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// ZstdCompressor compresses with zstd, without checksum and with frames for empty input
type ZstdCompressor struct {
	encoder *zstd.Encoder
}

var _ Compressor = (*ZstdCompressor)(nil)

// NewZstdCompressor returns a ZstdCompressor. It is safe for concurrent use.
func NewZstdCompressor() (*ZstdCompressor, error) {
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression),
		zstd.WithEncoderCRC(false),
		zstd.WithZeroFrames(true),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("error creating zstd encoder: %w", err)
	}
	return &ZstdCompressor{encoder: encoder}, nil
}

// Compress returns the zstd frame of data
func (z *ZstdCompressor) Compress(data []byte) ([]byte, error) {
	return z.encoder.EncodeAll(data, make([]byte, 0, len(data))), nil
}

// Decompress is the inverse of ZstdCompressor.Compress
func Decompress(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	defer decoder.Close()
	return decoder.DecodeAll(data, nil)
}

// NoopCompressor returns its input untouched, used when compression is disabled
type NoopCompressor struct{}

var _ Compressor = NoopCompressor{}

// Compress returns a copy of data
func (NoopCompressor) Compress(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

// NewCompressor returns a zstd compressor if enabled, a NoopCompressor otherwise
func NewCompressor(enabled bool) (Compressor, error) {
	if !enabled {
		return NoopCompressor{}, nil
	}
	return NewZstdCompressor()
}
