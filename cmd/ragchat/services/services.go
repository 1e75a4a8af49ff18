// Package services builds the ragchat component graph from a resolved
// config.Config for the commands that need it.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragchat/pkg/config"
	"github.com/papercomputeco/ragchat/pkg/coreerr"
	"github.com/papercomputeco/ragchat/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/ragchat/pkg/embeddings/utils"
	"github.com/papercomputeco/ragchat/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/ragchat/pkg/eventstream/utils"
	"github.com/papercomputeco/ragchat/pkg/eventstream/worker"
	"github.com/papercomputeco/ragchat/pkg/logger"
	"github.com/papercomputeco/ragchat/pkg/retrieval"
	"github.com/papercomputeco/ragchat/pkg/vector"
	vectorutils "github.com/papercomputeco/ragchat/pkg/vector/utils"
)

// Services is the wired retrieval stack. Close releases everything in
// reverse construction order.
type Services struct {
	Retriever *retrieval.Retriever

	embedder  embeddings.Embedder
	driver    vector.Driver
	publisher eventstream.Publisher
	pool      *worker.Pool
	logger    *slog.Logger
}

// New builds the embedder, vector driver, event publisher and retriever
// described by cfg.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Services, error) {
	embeddingTimeout, err := config.ParseDuration("embedding.timeout", cfg.Embedding.Timeout)
	if err != nil {
		return nil, err
	}
	storeTimeout, err := config.ParseDuration("vector_store.timeout", cfg.VectorStore.Timeout)
	if err != nil {
		return nil, err
	}

	s := &Services{logger: log}

	s.embedder, err = embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Timeout:      embeddingTimeout,
		Logger:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	s.driver, err = vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType:     cfg.VectorStore.Provider,
		TargetURL:        cfg.VectorStore.Target,
		Collection:       cfg.VectorStore.Collection,
		Dimensions:       cfg.VectorStore.Dimensions,
		Timeout:          storeTimeout,
		EnsureCollection: true,
		Logger:           log,
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating vector driver: %w", err)
	}

	s.publisher, err = eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.Events.Provider,
		Brokers:      cfg.Events.Brokers,
		Topic:        cfg.Events.Topic,
		Logger:       log,
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}

	s.pool, err = worker.NewPool(&worker.Config{
		Publisher: s.publisher,
		Logger:    log,
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating event worker pool: %w", err)
	}

	s.Retriever, err = retrieval.New(retrieval.Config{
		Embedder: s.embedder,
		Driver:   s.driver,
		Events:   s.pool,
		Store: eventstream.StoreMeta{
			Provider:   cfg.VectorStore.Provider,
			Collection: cfg.VectorStore.Collection,
		},
		Logger: log,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	log.Info("retrieval stack ready",
		"embedding_provider", cfg.Embedding.Provider,
		"embedding_model", cfg.Embedding.Model,
		"vector_store", cfg.VectorStore.Provider,
		"collection", cfg.VectorStore.Collection,
		"events", cfg.Events.Provider,
	)

	return s, nil
}

// Close drains queued events before closing the publisher, then closes the
// store and the embedder.
func (s *Services) Close() error {
	var errs []error

	if s.pool != nil {
		s.pool.Close()
	}
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	if s.driver != nil {
		errs = append(errs, s.driver.Close())
	}
	if s.embedder != nil {
		errs = append(errs, s.embedder.Close())
	}

	return errors.Join(errs...)
}

// RetrievalFlagKeys are the registry flags of every command that builds
// Services.
var RetrievalFlagKeys = []string{
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingTO,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagCollection,
	config.FlagDimensions,
	config.FlagTopK,
	config.FlagVectorStoreTO,
	config.FlagEventsProv,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

// AddFlags registers the registry flags named by keys on cmd. Values are
// read back through viper by Load, so the flag targets are discarded.
func AddFlags(cmd *cobra.Command, keys []string) {
	for _, key := range keys {
		switch key {
		case config.FlagDimensions, config.FlagTopK:
			config.AddUintFlag(cmd, config.Flags, key, new(uint))
		default:
			config.AddStringFlag(cmd, config.Flags, key, new(string))
		}
	}
}

// APIKey returns the --api-key flag, falling back to OPENAI_API_KEY. Only
// the openai provider requires a key.
func APIKey(cmd *cobra.Command, provider string) (string, error) {
	key, _ := cmd.Flags().GetString("api-key")
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}
	if key == "" && provider == "openai" {
		return "", coreerr.WithMessage(coreerr.EmbeddingKeyNotFound, "set --api-key or OPENAI_API_KEY")
	}
	return key, nil
}

// Load resolves the config for cmd: InitViper on the --config-dir flag with
// the given registry flags bound on top.
func Load(cmd *cobra.Command, flagKeys []string) (*config.Config, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}

	config.BindRegisteredFlags(v, cmd, config.Flags, flagKeys)

	return config.Unmarshal(v)
}

// Logger builds the logger selected by the persistent --debug and
// --log-format flags. Records go to the command's stderr so that command
// output on stdout stays pipeable.
func Logger(cmd *cobra.Command) (*slog.Logger, error) {
	debug, err := cmd.Flags().GetBool("debug")
	if err != nil {
		return nil, fmt.Errorf("could not get debug flag: %w", err)
	}

	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return nil, fmt.Errorf("could not get log-format flag: %w", err)
	}

	opts := []logger.Option{
		logger.WithDebug(debug),
		logger.WithWriter(cmd.ErrOrStderr()),
	}
	switch format {
	case "", "text":
	case "json":
		opts = append(opts, logger.WithJSON(true))
	case "pretty":
		opts = append(opts, logger.WithPretty(true))
	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}

	return logger.New(opts...), nil
}
