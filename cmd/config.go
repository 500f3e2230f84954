package main

import (
	"os"
	"strings"

	zkbatcher "github.com/0xPolygon/zkbatcher"
	"github.com/0xPolygon/zkbatcher/config"
	"github.com/urfave/cli/v2"
)

func configCmd(cliCtx *cli.Context) error {
	if cliCtx.Bool(config.FlagSchema) {
		schema, err := config.JSONSchema()
		if err != nil {
			return err
		}
		_, err = os.Stdout.WriteString(schema + "\n")
		return err
	}

	// String buffer to concatenate all the default config vars
	defaultConfig := strings.Builder{}
	defaultConfig.WriteString(config.DefaultMandatoryVars)
	if !cliCtx.Bool(config.FlagMinConfig) {
		defaultConfig.WriteString(config.DefaultVars)
		defaultConfig.WriteString(config.DefaultValues)
	}

	_, err := os.Stdout.WriteString(defaultConfig.String())
	return err
}

func versionCmd(*cli.Context) error {
	zkbatcher.PrintVersion(os.Stdout)
	return nil
}
