package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	jRPC "github.com/0xPolygon/cdk-rpc/rpc"
	zkbatcher "github.com/0xPolygon/zkbatcher"
	"github.com/0xPolygon/zkbatcher/batch"
	"github.com/0xPolygon/zkbatcher/batchstore"
	"github.com/0xPolygon/zkbatcher/capacitychecker"
	"github.com/0xPolygon/zkbatcher/chunk"
	zkcommon "github.com/0xPolygon/zkbatcher/common"
	"github.com/0xPolygon/zkbatcher/config"
	"github.com/0xPolygon/zkbatcher/log"
	"github.com/0xPolygon/zkbatcher/pipeline"
	"github.com/0xPolygon/zkbatcher/rpc"
	"github.com/0xPolygon/zkbatcher/witness"
	"github.com/urfave/cli/v2"
)

func start(cliCtx *cli.Context) error {
	c, err := config.Load(cliCtx)
	if err != nil {
		return err
	}

	log.Init(c.Log)

	if c.Log.Environment == log.EnvironmentDevelopment {
		zkbatcher.PrintVersion(os.Stdout)
		log.Info("Starting application")
	} else if c.Log.Environment == log.EnvironmentProduction {
		logVersion()
	}

	store, err := batchstore.New(log.WithFields("module", "batchstore"), c.Pipeline.DBPath)
	if err != nil {
		return fmt.Errorf("error opening batch store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf("error closing batch store: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(cliCtx.Context)
	defer cancel()
	var (
		done    []<-chan struct{}
		serving bool
	)

	components := cliCtx.StringSlice(config.FlagComponents)
	for _, component := range components {
		switch component {
		case zkcommon.PIPELINE:
			p, err := createPipeline(*c, store)
			if err != nil {
				return err
			}
			finished := make(chan struct{})
			done = append(done, finished)
			go func() {
				defer close(finished)
				if err := p.Start(ctx); err != nil {
					log.Fatal(err)
				}
			}()
		case zkcommon.RPC:
			server := createRPC(c.RPC, store)
			serving = true
			go func() {
				if err := server.Start(); err != nil {
					log.Fatal(err)
				}
			}()
		default:
			return fmt.Errorf("unknown component %q", component)
		}
	}

	waitSignal([]context.CancelFunc{cancel}, done, serving)

	return nil
}

func createPipeline(c config.Config, store *batchstore.BatchStore) (*pipeline.Pipeline, error) {
	if err := c.Pipeline.Validate(); err != nil {
		return nil, err
	}
	logger := log.WithFields("module", zkcommon.PIPELINE)

	checker, err := capacitychecker.NewFromConfig(c.CapacityChecker, c.Common.RowsPerRound)
	if err != nil {
		return nil, err
	}
	compressor, err := batch.NewCompressor(c.BatchBuilder.CompressionEnabled)
	if err != nil {
		return nil, err
	}
	chunkBuilder := chunk.NewBuilder(log.WithFields("module", "chunkbuilder"), c.ChunkBuilder, checker)
	batchBuilder, err := batch.NewBuilder(log.WithFields("module", "batchbuilder"), c.BatchBuilder, c.Common, compressor)
	if err != nil {
		return nil, err
	}

	return pipeline.New(logger, c.Pipeline, c.Common, newTraceSource(c.Pipeline), checker,
		witness.NewTraceBuilder(), chunkBuilder, batchBuilder, compressor, store)
}

func newTraceSource(cfg pipeline.Config) pipeline.TraceSource {
	if cfg.TraceSource == pipeline.TraceSourceFile {
		return pipeline.NewFileTraceSource(cfg.TraceDir)
	}
	return pipeline.NewRPCTraceSource(cfg.L2URL, cfg.TraceMethod)
}

func createRPC(cfg jRPC.Config, store *batchstore.BatchStore) *jRPC.Server {
	logger := log.WithFields("module", zkcommon.RPC)
	services := []jRPC.Service{
		{
			Name:    rpc.ZKBATCHER,
			Service: rpc.NewZKBatcherEndpoints(logger, cfg.ReadTimeout.Duration, store),
		},
	}

	return jRPC.NewServer(cfg, services, jRPC.WithLogger(logger.GetSugaredLogger()))
}

func logVersion() {
	log.Infow("Starting application", zkbatcher.GetBuildInfo().LogFields()...)
}

// waitSignal blocks until an interrupt arrives or, when nothing is being served, until
// every component in done has finished. On interrupt the cancel funcs are called and
// the components are awaited.
func waitSignal(cancelFuncs []context.CancelFunc, done []<-chan struct{}, serving bool) {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	defer signal.Stop(signals)

	var allDone chan struct{}
	if !serving && len(done) > 0 {
		allDone = make(chan struct{})
		go func() {
			for _, d := range done {
				<-d
			}
			close(allDone)
		}()
	}

	select {
	case <-signals:
		log.Info("terminating application gracefully...")
		for _, cancel := range cancelFuncs {
			cancel()
		}
		for _, d := range done {
			<-d
		}
	case <-allDone:
		log.Info("every component finished")
	}
}
