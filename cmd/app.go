package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"document-embed/internal/config"
	"document-embed/internal/db"
	"document-embed/internal/embedding"
	"document-embed/internal/helper"
	"document-embed/internal/llmservice"
	"document-embed/internal/logging"
	"document-embed/internal/parser"
	"document-embed/internal/rag"
	"document-embed/internal/settings"
)

const (
	configFilePath   = "./configs/config.yaml"
	settingsFileName = "settings.db"
)

// app holds what every command shares. It is built once per invocation in
// the root command's PersistentPreRunE and closed by execute.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	settings *settings.Store
	store    *db.DocumentStore
}

func (a *app) setup(ctx context.Context, cfgPath, logLevel string) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	a.cfg = cfg
	a.log = logging.New(cfg.Log, os.Stderr)
	a.log.Debug().Interface("config", cfg).Msg("Loaded config")

	if err := helper.CreateFolder(cfg.DataDir); err != nil {
		return err
	}
	a.settings, err = settings.Open(ctx, filepath.Join(cfg.DataDir, settingsFileName), cfg.Debug, logging.Component(a.log, "settings"))
	return err
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Error().Err(err).Msg("Error closing document store")
		}
		a.store = nil
	}
	if a.settings != nil {
		if err := a.settings.Close(); err != nil {
			a.log.Error().Err(err).Msg("Error closing settings")
		}
		a.settings = nil
	}
}

// documents opens the collection named by the collection_name setting.
func (a *app) documents(ctx context.Context) (*db.DocumentStore, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := db.Open(ctx, db.Options{
		DSN:        a.cfg.DatabaseDSN,
		DataDir:    a.cfg.DataDir,
		Collection: a.settings.Get(settings.KeyCollectionName, ""),
		Debug:      a.cfg.Debug,
	}, logging.Component(a.log, "store"))
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

func (a *app) embedder() (*embedding.Client, error) {
	provider := a.settings.Get(settings.KeyEmbeddingProvider, embedding.ProviderOllama)
	opts := embedding.Options{
		Provider: provider,
		Model:    a.settings.Get(settings.KeyEmbeddingModel, ""),
		APIKey:   a.cfg.OpenAIKey,
	}
	if provider != embedding.ProviderOpenAI {
		opts.BaseURL = a.settings.Get(settings.KeyOllamaURL, "")
	}
	return embedding.New(opts, logging.Component(a.log, "embedding"))
}

func (a *app) pipeline(ctx context.Context) (*rag.Pipeline, error) {
	store, err := a.documents(ctx)
	if err != nil {
		return nil, err
	}
	emb, err := a.embedder()
	if err != nil {
		return nil, err
	}
	a.log.Debug().Str("embedding_model", emb.Model()).Msg("Embedding client ready")
	splitter, err := parser.NewSplitter(
		a.settings.Get(settings.KeyChunkStrategy, parser.StrategyFixed),
		a.settings.Int(settings.KeyChunkSize, 500),
	)
	if err != nil {
		return nil, err
	}
	return rag.NewPipeline(store, emb, splitter, logging.Component(a.log, "pipeline")), nil
}

func (a *app) agent() (*llmservice.Agent, error) {
	provider := a.settings.Get(settings.KeyEmbeddingProvider, embedding.ProviderOllama)
	opts := llmservice.Options{
		Provider: provider,
		Model:    a.settings.Get(settings.KeyBaseModelName, ""),
		APIKey:   a.cfg.OpenAIKey,
	}
	if provider != embedding.ProviderOpenAI {
		opts.BaseURL = a.settings.Get(settings.KeyOllamaURL, "")
	}
	return llmservice.NewAgent(opts, logging.Component(a.log, "agent"))
}

func newRootCmd(a *app) *cobra.Command {
	var (
		cfgPath  string
		logLevel string
	)

	root := &cobra.Command{
		Use:           "document-embed",
		Short:         "Embed local documents and query them by vector distance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context(), cfgPath, logLevel)
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", configFilePath, "path to the YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newRunCmd(a),
		newIngestCmd(a),
		newQueryCmd(a),
		newAskCmd(a),
		newSearchCmd(a),
		newCountCmd(a),
		newClearCmd(a),
		newExportCmd(a),
		newSettingsCmd(a),
	)
	return root
}
