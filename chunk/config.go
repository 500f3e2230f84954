package chunk

// Config is the configuration of the chunk builder
type Config struct {
	// MaxBlocksPerChunk closes a chunk as soon as it holds this many blocks. 0 means no limit
	MaxBlocksPerChunk uint64 `mapstructure:"MaxBlocksPerChunk"`
}
