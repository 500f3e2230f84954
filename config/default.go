package config

// DefaultMandatoryVars are the values that depend on the deployment, so they have no
// sensible default
const DefaultMandatoryVars = `
# ChainID is the chain id of the L2 whose blocks are committed
L2ChainID = 534352

# L2URL is the URL of the L2 node serving the block traces
L2URL = "http://localhost:8545"
`

// DefaultVars are not part of the config, they avoid repetitions in the config files
const DefaultVars = `
PathRWData = "/tmp/zkbatcher"
`

// DefaultValues is the default configuration
const DefaultValues = `
# Log configuration
[Log]
  # Environment is the environment where the node is running
  Environment = "development" # "production" or "development"
  # Level is the log level
  Level = "info"
  # Outputs are the outputs where the logs will be written
  Outputs = ["stderr"]

# Common configuration, the shape of the circuits shared by every component
[Common]
  # ChainID is the chain id committed in every chunk and batch
  ChainID = {{L2ChainID}}
  # RowsPerRound is the number of rows a keccak-f round consumes in the keccak sub-circuit
  RowsPerRound = 12
  # MaxChunksPerBatch is the number of chunk slots of a batch
  MaxChunksPerBatch = 15
  # BlobByteBudget is the maximum size of the compressed batch payload. 4096 * 31 bytes
  BlobByteBudget = 126976

[CapacityChecker]
  # TableVersion selects the sub-circuit layout: "v0.10" or "legacy"
  TableVersion = "v0.10"
  # Mode is the witness mode used to estimate the blocks filling a chunk: "full" or "light".
  # Light mode never underestimates but packs fewer blocks per chunk
  Mode = "full"
  # SubCircuits overrides the row limit of some sub-circuits, example:
  # SubCircuits = [{Name = "keccak", MaxRows = 500000}]
  SubCircuits = []

[ChunkBuilder]
  # MaxBlocksPerChunk closes a chunk once it holds this many blocks. 0 means no limit
  MaxBlocksPerChunk = 0

[BatchBuilder]
  # MaxUncompressedBytes is the maximum size of the batch payload before compression. 0 means no limit
  MaxUncompressedBytes = 0
  # CompressionEnabled compresses the payload with zstd before checking the blob budget
  CompressionEnabled = true

[Pipeline]
  # TraceSource is where the block traces come from: "rpc" or "file"
  TraceSource = "rpc"
  # L2URL is the URL of the L2 node serving the block traces
  L2URL = "{{L2URL}}"
  # TraceMethod is the JSON-RPC method returning the trace of a block
  TraceMethod = "scroll_getBlockTraceByNumberOrHash"
  # TraceDir is the directory of the <number>.json trace files, used by the "file" source
  TraceDir = "{{PathRWData}}/traces"
  # StartBlock is the first block processed when the database is empty
  StartBlock = 1
  # StopAtBlock closes every open chunk and batch and stops once this block is processed. 0 means never
  StopAtBlock = 0
  # WaitPeriodNextBlock is the time to wait when the next block is not available yet
  WaitPeriodNextBlock = "1s"
  # OversizedUnitPolicy is what happens to a chunk or batch that overflows on its own:
  # "isolate" keeps it alone and flagged, "skip" drops it, "fail" stops the pipeline
  OversizedUnitPolicy = "isolate"
  # ComputePointEvaluation binds every batch to its blob with a KZG point evaluation
  ComputePointEvaluation = true
  # LookAheadBlocks is the number of blocks fetched and estimated in parallel
  LookAheadBlocks = 4
  # RetryAfterErrorPeriod is the time to wait before retrying a failed fetch or estimation
  RetryAfterErrorPeriod = "1s"
  # MaxRetryAttemptsAfterError is the number of attempts before giving up. Below 1 retries forever
  MaxRetryAttemptsAfterError = 10
  # DBPath is the path of the database storing chunks and batches
  DBPath = "{{PathRWData}}/zkbatcher.sqlite"

[RPC]
  # Host defines the network adapter that will be used to serve the HTTP requests
  Host = "0.0.0.0"
  # Port defines the port to serve the endpoints via HTTP
  Port = 5576
  # ReadTimeout is the HTTP server read timeout
  # check net/http.server.ReadTimeout and net/http.server.ReadHeaderTimeout
  ReadTimeout = "2s"
  # WriteTimeout is the HTTP server write timeout
  # check net/http.server.WriteTimeout
  WriteTimeout = "2s"
  # MaxRequestsPerIPAndSecond defines how much requests a single IP can
  # send within a single second
  MaxRequestsPerIPAndSecond = 10
`
