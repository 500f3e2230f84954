package config

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type renderTestCase struct {
	name           string
	contents       []string
	envVars        map[string]string
	expectedMerged string
	expectedRender string
	expectedError  error
}

func TestRenderMerge(t *testing.T) {
	runRenderCases(t, []renderTestCase{
		{
			name:           "two files",
			contents:       []string{"A=1\n", "B=2\n"},
			expectedRender: "A = 1\nB = 2\n",
		},
		{
			name:           "later files override earlier ones",
			contents:       []string{"A=1\n", "A=2\nB=2\n", "A=3\nC=3\n"},
			expectedRender: "A = 3\nB = 2\nC = 3\n",
		},
		{
			name:           "override with an undefined var",
			contents:       []string{"A=1\n", "A=2\nB=2\n", "A={{VAR}}\nC=3\n"},
			expectedRender: "A = {{VAR}}\nB = 2\nC = 3\n",
			expectedError:  ErrMissingVars,
		},
	})
}

func TestRenderDetectCycle(t *testing.T) {
	runRenderCases(t, []renderTestCase{
		{
			name:           "three vars",
			contents:       []string{"A= {{B}}\n", "B= {{C}}\nC={{A}}\n"},
			expectedMerged: "A = {{B}}\nB = {{C}}\nC = {{A}}\n",
			expectedRender: "A = {{B}}\nB = {{C}}\nC = {{A}}\n",
			expectedError:  ErrCycleVars,
		},
		{
			name:           "two vars",
			contents:       []string{"A= {{B}}\n", "B= {{A}}\n"},
			expectedRender: "A = {{B}}\nB = {{A}}\n",
			expectedError:  ErrCycleVars,
		},
		{
			name:           "self reference",
			contents:       []string{"A= {{A}}\n", ""},
			expectedRender: "A = {{A}}\n",
			expectedError:  ErrCycleVars,
		},
	})
}

func TestRenderChainedVars(t *testing.T) {
	runRenderCases(t, []renderTestCase{
		{
			name:           "chain is resolved",
			contents:       []string{"A= {{B}}\n", "B= {{C}}\nC=7\n"},
			expectedRender: "A = 7\nB = 7\nC = 7\n",
		},
		{
			name:           "composed string",
			contents:       []string{"PathRWData=\"/tmp/zkbatcher\"\n", "DBPath= \"{{PathRWData}}/batches.sqlite\"\n"},
			expectedRender: "DBPath = \"/tmp/zkbatcher/batches.sqlite\"\nPathRWData = \"/tmp/zkbatcher\"\n",
		},
	})
}

func TestRenderTypes(t *testing.T) {
	runRenderCases(t, []renderTestCase{
		{
			name: "bare vars keep the type of their value",
			contents: []string{"INT_VALUE={{MY_INT}}\n STR_VALUE= \"{{MY_STR}}\"\n MYBOOL={{MY_BOOL}}\n",
				"MY_STR=\"a string\"\nMY_INT=4\nMY_BOOL=true\nNO_RESOLVED={{NOT_DEFINED_VAR}}\n"},
			expectedError: ErrMissingVars,
			expectedRender: "INT_VALUE = 4\nMYBOOL = true\nMY_BOOL = true\nMY_INT = 4\nMY_STR = \"a string\"\n" +
				"NO_RESOLVED = {{NOT_DEFINED_VAR}}\nSTR_VALUE = \"a string\"\n",
		},
	})
}

func TestRenderEnvVars(t *testing.T) {
	runRenderCases(t, []renderTestCase{
		{
			name:           "env var breaks a cycle",
			contents:       []string{"A= {{B}}\n", "B= {{C}}\nC={{A}}\n"},
			envVars:        map[string]string{"UTCR_B": "4"},
			expectedRender: "A = 4\nB = 4\nC = 4\n",
		},
		{
			name:           "env var defines a missing var",
			contents:       []string{"A={{C}}\n"},
			envVars:        map[string]string{"UTCR_C": "4"},
			expectedRender: "A = 4\n",
		},
		{
			name:           "env var keeps its quotes",
			contents:       []string{"A={{C}}\n"},
			envVars:        map[string]string{"UTCR_C": "\"4\""},
			expectedRender: "A = \"4\"\n",
		},
		{
			name:           "env var wins over the defined value",
			contents:       []string{"A=\"hello\"\n", "B=\"{{A}}\"\n"},
			envVars:        map[string]string{"UTCR_A": "you"},
			expectedRender: "A = \"hello\"\nB = \"you\"\n",
		},
	})
}

func TestRenderNestedTables(t *testing.T) {
	defaults := `
	[Pipeline]
	L2URL="http://generic_url"
	LookAheadBlocks=100
	[Pipeline.Source]
		URL="http://localhost:8545"
`
	file := `
	[Pipeline.Source]
	URL="{{Pipeline.L2URL}}"
`
	runRenderCases(t, []renderTestCase{
		{
			name:     "dotted var",
			contents: []string{defaults, file},
			expectedRender: "\n[Pipeline]\n  L2URL = \"http://generic_url\"\n  LookAheadBlocks = 100\n\n" +
				"  [Pipeline.Source]\n    URL = \"http://generic_url\"\n",
		},
		{
			name:     "dotted var from env",
			contents: []string{defaults, file},
			envVars:  map[string]string{"UTCR_Pipeline_L2URL": "env"},
			expectedRender: "\n[Pipeline]\n  L2URL = \"http://generic_url\"\n  LookAheadBlocks = 100\n\n" +
				"  [Pipeline.Source]\n    URL = \"env\"\n",
		},
	})
}

func TestConvertFileToToml(t *testing.T) {
	jsonFile := `{
  "StartBlock": 63,
  "Pipeline": {
    "L2URL": "http://localhost:8545",
    "LookAheadBlocks": 4
  }
}
`
	data, err := convertFileToToml(jsonFile, "json")
	require.NoError(t, err)
	require.Equal(t, "StartBlock = 63.0\n\n[Pipeline]\n  L2URL = \"http://localhost:8545\"\n  LookAheadBlocks = 4.0\n", data)

	_, err = convertFileToToml("a: 1", "yaml")
	require.ErrorIs(t, err, ErrUnsupportedConfigFileType)

	data, err = convertFileToToml("A = 1", "conf")
	require.NoError(t, err)
	require.Equal(t, "A = 1", data)
}

func runRenderCases(t *testing.T, tests []renderTestCase) {
	t.Helper()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := tt.envVars
			files := make([]FileData, len(tt.contents))
			for i, c := range tt.contents {
				files[i] = FileData{Name: fmt.Sprintf("file%d", i), Content: c}
			}
			r := &Renderer{
				Files: files,
				LookupEnv: func(key string) (string, bool) {
					v, ok := env[key]
					return v, ok
				},
				EnvPrefix: "UTCR",
			}

			if tt.expectedMerged != "" {
				merged, err := r.Merge()
				require.NoError(t, err)
				require.Equal(t, tt.expectedMerged, merged)
			}
			res, err := r.Render()
			if tt.expectedError != nil {
				require.ErrorIs(t, err, tt.expectedError)
			} else {
				require.NoError(t, err)
			}
			if tt.expectedRender != "" {
				require.Equal(t, tt.expectedRender, res)
			}
		})
	}
}
