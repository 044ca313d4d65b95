// Command tendervec manages the tender vector store: indexing, search,
// recommendations and index maintenance.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bidwerx/tendervec/internal/chunking"
	"github.com/bidwerx/tendervec/internal/config"
	"github.com/bidwerx/tendervec/internal/embeddings"
	"github.com/bidwerx/tendervec/internal/logging"
	"github.com/bidwerx/tendervec/internal/rag"
	"github.com/bidwerx/tendervec/internal/tender"
	"github.com/bidwerx/tendervec/internal/tender/sqlite"
	"github.com/bidwerx/tendervec/internal/vectorstore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "tendervec",
		Short:         "Semantic search over tender opportunities, proposals and past wins",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	cmd.AddCommand(
		newStatsCmd(&configPath),
		newSearchCmd(&configPath),
		newRecommendCmd(&configPath),
		newReindexCmd(&configPath),
		newRebuildCmd(&configPath),
		newAddCmd(&configPath),
	)
	return cmd
}

// app holds the wired component graph behind every command.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	provider embeddings.Provider
	engine   *vectorstore.Engine
	rag      *rag.Service
	repo     *sqlite.Repository
	tender   *tender.Service
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Fields: map[string]string{"service": "tendervec"},
	})
	if err != nil {
		return nil, err
	}

	provider, _, err := embeddings.NewProviderWithFallback(cfg.Embeddings, logger)
	if err != nil {
		return nil, err
	}

	engine, err := vectorstore.NewEngine(vectorstore.IndexConfig{
		Dimension:    cfg.Index.Dimension,
		Algorithm:    cfg.Index.Algorithm,
		Metric:       cfg.Index.Metric,
		NList:        cfg.Index.NList,
		NProbe:       cfg.Index.NProbe,
		StoreOnDisk:  cfg.Index.StoreOnDisk,
		IndexPath:    cfg.Index.IndexPath,
		MetadataPath: cfg.Index.MetadataPath,
		BatchSize:    cfg.Index.BatchSize,
	}, provider, logger)
	if err != nil {
		provider.Close()
		return nil, err
	}

	chunker, err := chunking.New(chunking.Config{
		ChunkSize:    cfg.Chunking.MaxSize,
		ChunkOverlap: cfg.Chunking.Overlap,
	})
	if err != nil {
		return nil, err
	}
	ragSvc, err := rag.New(engine, chunker, logger)
	if err != nil {
		return nil, err
	}

	repo, err := sqlite.Open(cfg.Database.Path, logger)
	if err != nil {
		engine.Close()
		provider.Close()
		return nil, err
	}
	tenderSvc, err := tender.NewService(repo, engine, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		engine:   engine,
		rag:      ragSvc,
		repo:     repo,
		tender:   tenderSvc,
	}, nil
}

// opContext applies the configured embedding request timeout to a command
// context. Providers impose no timeout of their own.
func (a *app) opContext(parent context.Context) (context.Context, context.CancelFunc) {
	d := a.cfg.Embeddings.RequestTimeout.Duration()
	if d <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, d)
}

func (a *app) Close() {
	if err := a.engine.Close(); err != nil {
		a.logger.Warn("closing vector store", zap.Error(err))
	}
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("closing database", zap.Error(err))
	}
	if err := a.provider.Close(); err != nil {
		a.logger.Warn("closing embedding provider", zap.Error(err))
	}
	_ = a.logger.Sync()
}
