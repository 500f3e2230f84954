package pipeline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/0xPolygon/cdk-rpc/rpc"
	"github.com/0xPolygon/zkbatcher/witness/tracetest"
	"github.com/stretchr/testify/require"
)

func newTraceServer(t *testing.T, handle func(req rpc.Request) string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpc.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(handle(req)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRPCTraceSource(t *testing.T) {
	trace := tracetest.NewGenerator(1).Blocks(1, 2, 3)[0]
	encoded, err := json.Marshal(trace)
	require.NoError(t, err)

	var gotMethod string
	var gotParams []string
	srv := newTraceServer(t, func(req rpc.Request) string {
		gotMethod = req.Method
		gotParams = nil
		_ = json.Unmarshal(req.Params, &gotParams)
		if len(gotParams) == 1 && gotParams[0] == "0x1" {
			return `{"jsonrpc":"2.0","id":1,"result":` + string(encoded) + `}`
		}
		return `{"jsonrpc":"2.0","id":1,"result":null}`
	})

	source := NewRPCTraceSource(srv.URL, "")
	got, err := source.GetBlockTrace(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, DefaultTraceMethod, gotMethod)
	require.Equal(t, []string{"0x1"}, gotParams)
	require.Equal(t, trace.Header.Hash, got.Header.Hash)
	require.Len(t, got.Transactions, 2)

	_, err = source.GetBlockTrace(context.Background(), 2)
	require.ErrorIs(t, err, ErrBlockNotAvailable)
}

func TestRPCTraceSourceErrorResponse(t *testing.T) {
	srv := newTraceServer(t, func(req rpc.Request) string {
		return `{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"trace unavailable"}}`
	})

	_, err := NewRPCTraceSource(srv.URL, "debug_traceBlock").GetBlockTrace(context.Background(), 5)
	require.ErrorContains(t, err, "debug_traceBlock")
	require.NotErrorIs(t, err, ErrBlockNotAvailable)
}

func TestFileTraceSource(t *testing.T) {
	dir := t.TempDir()
	trace := tracetest.NewGenerator(1).Blocks(1, 1, 1)[0]
	require.NoError(t, WriteTraceFile(dir, trace))

	source := NewFileTraceSource(dir)
	got, err := source.GetBlockTrace(context.Background(), uint64(trace.Header.Number))
	require.NoError(t, err)
	require.Equal(t, trace.Header.Hash, got.Header.Hash)

	_, err = source.GetBlockTrace(context.Background(), uint64(trace.Header.Number)+1)
	require.ErrorIs(t, err, ErrBlockNotAvailable)
}
