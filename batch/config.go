package batch

// Config is the configuration of the batch builder
type Config struct {
	// MaxUncompressedBytes is the maximum size of the batch payload before compression. 0 means no limit
	MaxUncompressedBytes uint64 `mapstructure:"MaxUncompressedBytes"`
	// CompressionEnabled compresses the payload with zstd before measuring it against the blob budget
	CompressionEnabled bool `mapstructure:"CompressionEnabled"`
}
