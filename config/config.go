package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jRPC "github.com/0xPolygon/cdk-rpc/rpc"
	"github.com/0xPolygon/zkbatcher/batch"
	"github.com/0xPolygon/zkbatcher/capacitychecker"
	"github.com/0xPolygon/zkbatcher/chunk"
	"github.com/0xPolygon/zkbatcher/common"
	"github.com/0xPolygon/zkbatcher/log"
	"github.com/0xPolygon/zkbatcher/pipeline"
	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
)

const (
	// FlagCfg is the flag for cfg.
	FlagCfg = "cfg"
	// FlagComponents is the flag for components.
	FlagComponents = "components"
	// FlagSaveConfigPath is the flag to save the final configuration file
	FlagSaveConfigPath = "save-config-path"
	// FlagMinConfig is the flag to print only the mandatory vars of the default config
	FlagMinConfig = "min"
	// FlagSchema is the flag to print the JSON schema of the config
	FlagSchema = "schema"
	// FlagTrace is the flag for a block trace file
	FlagTrace = "trace"
	// FlagChunk is the flag for a chunk info file
	FlagChunk = "chunk"
	// FlagBatch is the flag for a batch hash file
	FlagBatch = "batch"
	// FlagLight is the flag to estimate in light mode
	FlagLight = "light"
	// FlagBlob is the flag to compute the blob point evaluation
	FlagBlob = "blob"

	// EnvVarPrefix is the prefix of the environment variables overriding config values
	EnvVarPrefix = "ZKBATCHER"
	// ConfigType is the format of the rendered config
	ConfigType = "toml"
	// SaveConfigFileName is the name of the rendered config written to FlagSaveConfigPath
	SaveConfigFileName = "zkbatcher_config.toml"

	// DefaultCreationFilePermissions are the permissions of the files written by the config package
	DefaultCreationFilePermissions = os.FileMode(0600)
)

/*
Config represents the configuration of the zkbatcher node
The file is [TOML format]

[TOML format]: https://en.wikipedia.org/wiki/TOML
*/
type Config struct {
	// Configure Log level for all the services, allow also to store the logs in a file
	Log log.Config
	// Common Config, the shape of the circuits shared by every component
	Common common.Config
	// CapacityChecker selects the sub-circuit table and the estimation mode
	CapacityChecker capacitychecker.Config
	// ChunkBuilder is the configuration of the chunk builder
	ChunkBuilder chunk.Config
	// BatchBuilder is the configuration of the batch builder
	BatchBuilder batch.Config
	// Pipeline is the configuration of the trace source and the orchestration loop
	Pipeline pipeline.Config
	// RPC is the config for the RPC server
	RPC jRPC.Config
}

// Load loads the configuration from the files passed with FlagCfg
func Load(ctx *cli.Context) (*Config, error) {
	files, err := readFiles(ctx.StringSlice(FlagCfg))
	if err != nil {
		return nil, fmt.Errorf("error reading files: %w", err)
	}
	return LoadFile(files, ctx.String(FlagSaveConfigPath))
}

func readFiles(paths []string) ([]FileData, error) {
	result := make([]FileData, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading file content: %s. Err: %w", path, err)
		}
		data := string(content)
		if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != ConfigType {
			data, err = convertFileToToml(data, ext)
			if err != nil {
				return nil, fmt.Errorf("error converting file: %s from %s to TOML. Err: %w", path, ext, err)
			}
		}
		result = append(result, FileData{Name: path, Content: data})
	}
	return result, nil
}

// LoadFile renders the default config overridden by files and decodes it.
// When saveConfigPath is not empty the rendered config is written there.
func LoadFile(files []FileData, saveConfigPath string) (*Config, error) {
	rendered, err := NewRenderer(append(defaultFiles(), files...), EnvVarPrefix).Render()
	if err != nil {
		return nil, err
	}
	if saveConfigPath != "" {
		fullPath := filepath.Join(saveConfigPath, SaveConfigFileName)
		if err := os.WriteFile(fullPath, []byte(rendered), DefaultCreationFilePermissions); err != nil {
			err = fmt.Errorf("error writing config file: %s. Err: %w", fullPath, err)
			log.Error(err)
			return nil, err
		}
	}
	return LoadFileFromString(rendered, ConfigType)
}

// LoadFileFromString decodes an already rendered config. Values can be overridden with
// ZKBATCHER_<Section>_<Field> environment variables.
func LoadFileFromString(data string, configType string) (*Config, error) {
	expectedKeys, err := defaultKeys()
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := loadString(cfg, data, configType, EnvVarPrefix, expectedKeys); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultFiles() []FileData {
	return []FileData{
		{Name: "default_mandatory_vars", Content: DefaultMandatoryVars},
		{Name: "default_vars", Content: DefaultVars},
		{Name: "default_values", Content: DefaultValues},
	}
}

// defaultKeys returns the keys defined by the default config
func defaultKeys() ([]string, error) {
	rendered, err := NewRenderer(defaultFiles(), EnvVarPrefix).Render()
	if err != nil {
		return nil, fmt.Errorf("error rendering default config: %w", err)
	}
	v := viper.New()
	v.SetConfigType(ConfigType)
	if err := v.ReadConfig(bytes.NewBufferString(rendered)); err != nil {
		return nil, fmt.Errorf("error reading default config: %w", err)
	}
	return v.AllKeys(), nil
}

func loadString(cfg *Config, data string, configType string, envPrefix string, expectedKeys []string) error {
	v := viper.New()
	v.SetConfigType(configType)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadConfig(bytes.NewBufferString(data)); err != nil {
		return err
	}
	decodeHooks := []viper.DecoderConfigOption{
		// this allows arrays to be decoded from env var separated by ",", example: MY_VAR="value1,value2,value3"
		viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(), mapstructure.StringToSliceHookFunc(","))),
	}
	if err := v.Unmarshal(cfg, decodeHooks...); err != nil {
		return err
	}

	for _, field := range unexpectedFields(v.AllKeys(), expectedKeys) {
		log.Warnf("field %s in config file is unknown, it is ignored", field)
	}
	return nil
}

func unexpectedFields(keys, expectedKeys []string) []string {
	res := make([]string, 0)
	for _, key := range keys {
		if !containsString(expectedKeys, key) {
			res = append(res, key)
		}
	}
	return res
}

// SaveConfigToString renders cfg as TOML
func SaveConfigToString(cfg Config) (string, error) {
	b, err := toml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// JSONSchema returns the JSON schema of Config, indented
func JSONSchema() (string, error) {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := r.Reflect(&Config{})
	schema.Title = "zkbatcher config"
	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
