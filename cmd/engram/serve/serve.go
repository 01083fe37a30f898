// Package servecmder provides the serve command for running the engram
// memory API.
package servecmder

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/api"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/engram/pkg/embeddings/utils"
	"github.com/papercomputeco/engram/pkg/engine"
	"github.com/papercomputeco/engram/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/engram/pkg/eventstream/utils"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/storage"
	"github.com/papercomputeco/engram/pkg/storage/inmemory"
	"github.com/papercomputeco/engram/pkg/storage/sqlite"
	"github.com/papercomputeco/engram/pkg/vector"
	vectorutils "github.com/papercomputeco/engram/pkg/vector/utils"
)

const serveLongDesc string = `Run the engram memory API.

Serves event ingestion, memory inspection, retrieval, feedback, and the MCP
endpoint on a single address. With --maintain-interval, decay and
consolidation passes run on a background ticker so memories age while the
server is up.

Examples:
  engram serve
  engram serve --api-listen :9090 --sqlite ./engram.sqlite
  engram serve --maintain-interval 30m
  engram serve --no-mcp`

const serveShortDesc string = "Run the engram memory API"

// serveFlags is the flag registry for the serve command. Names, shorthands,
// and viper keys live here so they cannot drift from the config layer.
var serveFlags = config.FlagSet{
	config.FlagAPIListen:       {Name: "api-listen", Shorthand: "a", ViperKey: "api.listen", Description: "Address for the API server to listen on"},
	config.FlagSQLite:          {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to the SQLite database (empty: in-memory)"},
	config.FlagVectorStoreProv: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector store provider (sqlite|chroma|qdrant|none)"},
	config.FlagVectorStoreTgt:  {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Vector store target (path or URL)"},
	config.FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (ollama|none)"},
	config.FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding provider URL"},
	config.FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	config.FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensions"},
	config.FlagEventsTopic:     {Name: "events-topic", ViperKey: "events.topic", Description: "Kafka topic for memory lifecycle events"},
}

var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagSQLite,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagEventsTopic,
}

type ServeCommander struct {
	listen           string
	sqlitePath       string
	vectorProvider   string
	vectorTarget     string
	embedProvider    string
	embedTarget      string
	embedModel       string
	embedDims        uint
	eventsTopic      string
	maintainInterval string
	noMCP            bool

	configDir string
	debug     bool
	viper     *viper.Viper
	logger    *zap.Logger
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.viper, err = config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(cmder.viper, cmd, serveFlags, serveFlagKeys)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, serveFlags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, serveFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingProv, &cmder.embedProvider)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingTgt, &cmder.embedTarget)
	config.AddStringFlag(cmd, serveFlags, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddUintFlag(cmd, serveFlags, config.FlagEmbeddingDims, &cmder.embedDims)
	config.AddStringFlag(cmd, serveFlags, config.FlagEventsTopic, &cmder.eventsTopic)
	cmd.Flags().StringVar(&cmder.maintainInterval, "maintain-interval", "", "Run decay+consolidation on this interval (e.g. 30m; empty: config value, 0: off)")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Disable the MCP endpoint")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	v := c.viper

	storer, err := c.newStorageDriver(v.GetString("storage.sqlite_path"))
	if err != nil {
		return err
	}
	defer storer.Close()

	vectorDriver, embedder, err := c.newVectorAndEmbedder(v)
	if err != nil {
		return err
	}
	if vectorDriver != nil {
		defer vectorDriver.Close()
	}
	if embedder != nil {
		defer embedder.Close()
	}

	publisher, err := c.newPublisher(v)
	if err != nil {
		return err
	}
	defer publisher.Close()

	eng, err := engine.New(engine.Options{
		Storer:        storer,
		Vectors:       vectorDriver,
		Embedder:      embedder,
		Publisher:     publisher,
		Logger:        c.logger,
		EnrichWorkers: v.GetUint("engine.enrich_workers"),
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	apiConfig := api.Config{
		ListenAddr:   v.GetString("api.listen"),
		VectorDriver: vectorDriver,
		Embedder:     embedder,
		MCPNoop:      c.noMCP,
	}
	apiServer, err := api.NewServer(apiConfig, storer, eng, c.logger)
	if err != nil {
		return fmt.Errorf("creating api server: %w", err)
	}
	defer func() { _ = apiServer.Shutdown() }()

	errChan := make(chan error, 2)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("api error: %w", err)
		}
	}()

	maintainCtx, cancelMaintain := context.WithCancel(ctx)
	defer cancelMaintain()
	if interval, err := c.resolveMaintainInterval(v); err != nil {
		return err
	} else if interval > 0 {
		go c.runMaintenance(maintainCtx, eng, interval)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return nil
	}
}

// runMaintenance ages the store on a fixed interval. Failures are logged
// and the ticker keeps going; a broken pass must not stop the server.
func (c *ServeCommander) runMaintenance(ctx context.Context, eng *engine.Engine, interval time.Duration) {
	c.logger.Info("maintenance ticker started", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := eng.ApplyDecay(ctx); err != nil {
				c.logger.Warn("decay pass failed", zap.Error(err))
			}
			if _, err := eng.RunConsolidation(ctx); err != nil {
				c.logger.Warn("consolidation pass failed", zap.Error(err))
			}
		}
	}
}

func (c *ServeCommander) resolveMaintainInterval(v *viper.Viper) (time.Duration, error) {
	raw := c.maintainInterval
	if raw == "" {
		raw = v.GetString("engine.maintain_interval")
	}
	if raw == "" || raw == "0" {
		return 0, nil
	}

	interval, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid maintain interval %q: %w", raw, err)
	}
	return interval, nil
}

func (c *ServeCommander) newStorageDriver(sqlitePath string) (storage.Driver, error) {
	if sqlitePath != "" {
		driver, err := sqlite.NewSQLiteDriver(sqlitePath, c.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storer: %w", err)
		}
		c.logger.Info("using SQLite storage", zap.String("path", sqlitePath))
		return driver, nil
	}

	c.logger.Info("using in-memory storage")
	return inmemory.NewDriver(), nil
}

// newVectorAndEmbedder builds the optional semantic search collaborators.
// Provider "none" (or empty) on either side disables both; the engine falls
// back to lexical-only retrieval.
func (c *ServeCommander) newVectorAndEmbedder(v *viper.Viper) (vector.Driver, embeddings.Embedder, error) {
	vectorProvider := v.GetString("vector_store.provider")
	embedProvider := v.GetString("embedding.provider")
	if vectorProvider == "" || vectorProvider == "none" || embedProvider == "" || embedProvider == "none" {
		c.logger.Info("semantic search disabled")
		return nil, nil, nil
	}

	vectorDriver, err := vectorutils.NewVectorDriver(&vectorutils.NewVectorDriverOpts{
		ProviderType: vectorProvider,
		TargetURL:    v.GetString("vector_store.target"),
		Dimensions:   v.GetUint("embedding.dimensions"),
		Logger:       c.logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating vector driver: %w", err)
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: embedProvider,
		TargetURL:    v.GetString("embedding.target"),
		Model:        v.GetString("embedding.model"),
	})
	if err != nil {
		_ = vectorDriver.Close()
		return nil, nil, fmt.Errorf("creating embedder: %w", err)
	}

	return vectorDriver, embedder, nil
}

func (c *ServeCommander) newPublisher(v *viper.Viper) (eventstream.Publisher, error) {
	provider := "nop"
	if v.GetBool("events.enabled") {
		provider = "kafka"
	}

	pub, err := eventstreamutils.NewPublisher(eventstreamutils.NewPublisherOpts{
		ProviderType: provider,
		Brokers:      v.GetStringSlice("events.brokers"),
		Topic:        v.GetString("events.topic"),
		Logger:       c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}
	return pub, nil
}
