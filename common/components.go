package common

const (
	// PIPELINE name to identify the pipeline component (trace source, chunk and batch builders)
	PIPELINE = "pipeline"
	// RPC name to identify the rpc component
	RPC = "rpc"
)
