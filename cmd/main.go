package main

import (
	"os"

	zkbatcher "github.com/0xPolygon/zkbatcher"
	"github.com/0xPolygon/zkbatcher/common"
	"github.com/0xPolygon/zkbatcher/config"
	"github.com/0xPolygon/zkbatcher/log"
	"github.com/urfave/cli/v2"
)

const appName = "zkbatcher"

var (
	configFileFlag = cli.StringSliceFlag{
		Name:     config.FlagCfg,
		Aliases:  []string{"c"},
		Usage:    "Configuration file(s)",
		Required: true,
	}
	componentsFlag = cli.StringSliceFlag{
		Name:     config.FlagComponents,
		Aliases:  []string{"co"},
		Usage:    "List of components to run",
		Required: false,
		Value:    cli.NewStringSlice(common.PIPELINE, common.RPC),
	}
	saveConfigFlag = cli.StringFlag{
		Name:     config.FlagSaveConfigPath,
		Aliases:  []string{"s"},
		Usage:    "Save final configuration into to the indicated path (name: zkbatcher_config.toml)",
		Required: false,
	}
	minConfigFlag = cli.BoolFlag{
		Name:     config.FlagMinConfig,
		Usage:    "Print only the mandatory vars of the default configuration",
		Required: false,
	}
	schemaFlag = cli.BoolFlag{
		Name:     config.FlagSchema,
		Usage:    "Print the JSON schema of the configuration",
		Required: false,
	}
	traceFlag = cli.StringSliceFlag{
		Name:     config.FlagTrace,
		Aliases:  []string{"t"},
		Usage:    "Block trace `FILE`(s), in block order",
		Required: true,
	}
	chunkFlag = cli.StringSliceFlag{
		Name:     config.FlagChunk,
		Usage:    "Chunk info `FILE`(s), in chunk order",
		Required: true,
	}
	batchFlag = cli.StringSliceFlag{
		Name:     config.FlagBatch,
		Usage:    "Batch hash `FILE`(s), as printed by batch-hash, in batch order",
		Required: true,
	}
	lightFlag = cli.BoolFlag{
		Name:     config.FlagLight,
		Usage:    "Estimate in light mode instead of full mode",
		Required: false,
	}
	blobFlag = cli.BoolFlag{
		Name:     config.FlagBlob,
		Usage:    "Compute the blob point evaluation of the batch",
		Required: false,
	}
)

func main() {
	app := cli.NewApp()
	app.Name = appName
	app.Usage = "Packs L2 blocks into chunks and batches that fit the prover circuits"
	app.Version = zkbatcher.Version
	app.Commands = []*cli.Command{
		{
			Name:    "version",
			Aliases: []string{},
			Usage:   "Application version and build",
			Action:  versionCmd,
		},
		{
			Name:    "run",
			Aliases: []string{},
			Usage:   "Run the zkbatcher node",
			Action:  start,
			Flags:   []cli.Flag{&configFileFlag, &componentsFlag, &saveConfigFlag},
		},
		{
			Name:    "config",
			Aliases: []string{},
			Usage:   "Print the default configuration",
			Action:  configCmd,
			Flags:   []cli.Flag{&minConfigFlag, &schemaFlag},
		},
		{
			Name:    "estimate",
			Aliases: []string{},
			Usage:   "Print the row usage of a block",
			Action:  estimateCmd,
			Flags:   []cli.Flag{&configFileFlag, &traceFlag, &lightFlag},
		},
		{
			Name:    "chunk-info",
			Aliases: []string{},
			Usage:   "Build the chunk of consecutive blocks and print its commitment",
			Action:  chunkInfoCmd,
			Flags:   []cli.Flag{&configFileFlag, &traceFlag},
		},
		{
			Name:    "batch-hash",
			Aliases: []string{},
			Usage:   "Print the commitment of a batch of chunks",
			Action:  batchHashCmd,
			Flags:   []cli.Flag{&configFileFlag, &chunkFlag, &blobFlag},
		},
		{
			Name:    "bundle-hash",
			Aliases: []string{},
			Usage:   "Print the commitment of a bundle of batches",
			Action:  bundleHashCmd,
			Flags:   []cli.Flag{&batchFlag},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
		os.Exit(1)
	}
}
