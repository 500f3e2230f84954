package common

const (
	// DefaultMaxAggSnarks is the number of chunk slots an aggregation circuit consumes
	DefaultMaxAggSnarks = 15
	// DefaultRowsPerRound is the number of keccak circuit rows used by one round of keccak-f
	DefaultRowsPerRound = 12
)

// Config is the circuit-shape configuration shared by every component
type Config struct {
	// ChainID of the L2 whose blocks are being committed
	ChainID uint64 `mapstructure:"ChainID"`
	// RowsPerRound is the number of rows a keccak-f round consumes in the keccak sub-circuit
	RowsPerRound uint64 `mapstructure:"RowsPerRound"`
	// MaxChunksPerBatch is the number of chunk slots of a batch (MAX_AGG_SNARKS)
	MaxChunksPerBatch uint64 `mapstructure:"MaxChunksPerBatch"`
	// BlobByteBudget is the maximum size, in bytes, of the compressed batch payload.
	// It can't be greater than 4096 * 31 bytes
	BlobByteBudget uint64 `mapstructure:"BlobByteBudget"`
}
