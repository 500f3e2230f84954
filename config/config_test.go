package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/0xPolygon/zkbatcher/log"
	"github.com/0xPolygon/zkbatcher/pipeline"
	"github.com/0xPolygon/zkbatcher/rowusage"
	"github.com/0xPolygon/zkbatcher/witness"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultConfig(t *testing.T) {
	cfg, err := LoadFile(nil, "")
	require.NoError(t, err)

	require.Equal(t, log.EnvironmentDevelopment, cfg.Log.Environment)
	require.Equal(t, uint64(534352), cfg.Common.ChainID)
	require.Equal(t, uint64(12), cfg.Common.RowsPerRound)
	require.Equal(t, uint64(15), cfg.Common.MaxChunksPerBatch)
	require.Equal(t, uint64(126976), cfg.Common.BlobByteBudget)
	require.Equal(t, rowusage.TableVersionV010, cfg.CapacityChecker.TableVersion)
	require.Equal(t, witness.ModeFull, cfg.CapacityChecker.Mode)
	require.Empty(t, cfg.CapacityChecker.SubCircuits)
	require.True(t, cfg.BatchBuilder.CompressionEnabled)
	require.Equal(t, pipeline.TraceSourceRPC, cfg.Pipeline.TraceSource)
	require.Equal(t, "http://localhost:8545", cfg.Pipeline.L2URL)
	require.Equal(t, pipeline.OversizedIsolate, cfg.Pipeline.OversizedUnitPolicy)
	require.Equal(t, time.Second, cfg.Pipeline.WaitPeriodNextBlock.Duration)
	require.Equal(t, "/tmp/zkbatcher/zkbatcher.sqlite", cfg.Pipeline.DBPath)
	require.Equal(t, "/tmp/zkbatcher/traces", cfg.Pipeline.TraceDir)
	require.Equal(t, 5576, cfg.RPC.Port)
	require.NoError(t, cfg.Pipeline.Validate())
}

func TestLoadFileOverrides(t *testing.T) {
	file := FileData{Name: "node.toml", Content: `
L2ChainID = 7
PathRWData = "/data"

[CapacityChecker]
SubCircuits = [{Name = "keccak", MaxRows = 500000}]

[Pipeline]
TraceSource = "file"
LookAheadBlocks = 8
OversizedUnitPolicy = "fail"
`}
	cfg, err := LoadFile([]FileData{file}, "")
	require.NoError(t, err)

	require.Equal(t, uint64(7), cfg.Common.ChainID)
	require.Equal(t, pipeline.TraceSourceFile, cfg.Pipeline.TraceSource)
	require.Equal(t, uint64(8), cfg.Pipeline.LookAheadBlocks)
	require.Equal(t, pipeline.OversizedFail, cfg.Pipeline.OversizedUnitPolicy)
	require.Equal(t, "/data/zkbatcher.sqlite", cfg.Pipeline.DBPath)
	require.Equal(t, []rowusage.SubCircuit{{Name: rowusage.Keccak, MaxRows: 500000}}, cfg.CapacityChecker.SubCircuits)

	table, err := cfg.CapacityChecker.Table()
	require.NoError(t, err)
	maxRows := uint64(0)
	for _, sc := range table.SubCircuits {
		if sc.Name == rowusage.Keccak {
			maxRows = sc.MaxRows
		}
	}
	require.Equal(t, uint64(500000), maxRows)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("ZKBATCHER_L2ChainID", "9")
	t.Setenv("ZKBATCHER_PIPELINE_DBPATH", "/var/lib/zkbatcher.sqlite")

	cfg, err := LoadFile(nil, "")
	require.NoError(t, err)
	require.Equal(t, uint64(9), cfg.Common.ChainID)
	require.Equal(t, "/var/lib/zkbatcher.sqlite", cfg.Pipeline.DBPath)
}

func TestLoadMissingVar(t *testing.T) {
	_, err := LoadFile([]FileData{{Name: "bad.toml", Content: "[Pipeline]\nL2URL = {{NotDefined}}\n"}}, "")
	require.ErrorIs(t, err, ErrMissingVars)
}

func TestSaveRenderedConfig(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadFile(nil, dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, SaveConfigFileName))
	require.NoError(t, err)
	require.Contains(t, string(data), "[Pipeline]")
	require.NotContains(t, string(data), "{{")

	_, err = LoadFile(nil, filepath.Join(dir, "not-a-dir"))
	require.Error(t, err)
}

func TestReadFiles(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "a.toml")
	jsonPath := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(tomlPath, []byte("[Pipeline]\nStartBlock = 10\n"), 0600))
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"Pipeline": {"LookAheadBlocks": 2}}`), 0600))

	files, err := readFiles([]string{tomlPath, jsonPath})
	require.NoError(t, err)
	require.Len(t, files, 2)

	cfg, err := LoadFile(files, "")
	require.NoError(t, err)
	require.Equal(t, uint64(10), cfg.Pipeline.StartBlock)
	require.Equal(t, uint64(2), cfg.Pipeline.LookAheadBlocks)

	_, err = readFiles([]string{filepath.Join(dir, "missing.toml")})
	require.Error(t, err)
}

func TestSaveConfigToString(t *testing.T) {
	cfg, err := LoadFile(nil, "")
	require.NoError(t, err)

	out, err := SaveConfigToString(*cfg)
	require.NoError(t, err)
	require.Contains(t, out, "[Pipeline]")
	require.Contains(t, out, "isolate")
}

func TestJSONSchema(t *testing.T) {
	out, err := JSONSchema()
	require.NoError(t, err)

	var schema struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	for _, section := range []string{"Log", "Common", "CapacityChecker", "ChunkBuilder", "BatchBuilder", "Pipeline", "RPC"} {
		require.Contains(t, schema.Properties, section)
	}
	require.Contains(t, out, "isolate")
}
