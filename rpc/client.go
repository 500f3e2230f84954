package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/0xPolygon/cdk-rpc/rpc"
	"github.com/0xPolygon/zkbatcher/batchstore"
)

// ClientInterface is the interface that defines the implementation of all the endpoints
type ClientInterface interface {
	GetChunk(index uint64) (*batchstore.ChunkRecord, error)
	GetBatch(index uint64) (*batchstore.BatchRecord, error)
	GetLatestBatch() (*batchstore.BatchRecord, error)
	GetBatchChunks(index uint64) ([]*batchstore.ChunkRecord, error)
}

var _ ClientInterface = (*Client)(nil)

// Client wraps all the available endpoints of the zkbatcher server
type Client struct {
	url string
}

// NewClient returns a client ready to be used
func NewClient(url string) *Client {
	return &Client{
		url: url,
	}
}

// GetChunk calls zkbatcher_getChunk
func (c *Client) GetChunk(index uint64) (*batchstore.ChunkRecord, error) {
	var result batchstore.ChunkRecord
	if err := c.call(&result, "zkbatcher_getChunk", index); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetBatch calls zkbatcher_getBatch
func (c *Client) GetBatch(index uint64) (*batchstore.BatchRecord, error) {
	var result batchstore.BatchRecord
	if err := c.call(&result, "zkbatcher_getBatch", index); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetLatestBatch calls zkbatcher_getLatestBatch
func (c *Client) GetLatestBatch() (*batchstore.BatchRecord, error) {
	var result batchstore.BatchRecord
	if err := c.call(&result, "zkbatcher_getLatestBatch"); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetBatchChunks calls zkbatcher_getBatchChunks
func (c *Client) GetBatchChunks(index uint64) ([]*batchstore.ChunkRecord, error) {
	var result []*batchstore.ChunkRecord
	if err := c.call(&result, "zkbatcher_getBatchChunks", index); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) call(result interface{}, method string, params ...interface{}) error {
	response, err := rpc.JSONRPCCall(c.url, method, params...)
	if err != nil {
		return err
	}
	if response.Error != nil {
		return fmt.Errorf("%v %v", response.Error.Code, response.Error.Message)
	}
	return json.Unmarshal(response.Result, result)
}
