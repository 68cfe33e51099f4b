package main

import (
	"context"
	"fmt"
	"os"

	"articlesync/pkg/auth"
	"articlesync/pkg/config"
	"articlesync/pkg/federation"
	"articlesync/pkg/storage"
	"articlesync/pkg/transport"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "v0.1.0"

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "articlesync",
		Short: "Federated article collection sync",
		Long: `Publishes an instance's locally authored articles as a collection and
imports the article collections of peer instances.`,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(
		serveCmd(),
		exportCmd(),
		fetchCmd(),
		statusCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("articlesync %s\n", version)
		},
	}
}

func setupLogger(verbose bool) *zap.Logger {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, _ := config.Build()
	return logger
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}
	return config.LoadFromEnv()
}

// instance is one running articlesync participant.
type instance struct {
	cfg        *config.Config
	logger     *zap.Logger
	registry   *prometheus.Registry
	metrics    *federation.SyncMetrics
	store      *storage.MemoryStore
	directory  *federation.PeerDirectory
	sync       *federation.Synchronizer
	dispatcher *federation.Dispatcher
	tls        *auth.TLSConfigBuilder
	client     *transport.Client
}

func newInstance(cfg *config.Config, logger *zap.Logger) (*instance, error) {
	directory, err := federation.NewPeerDirectory(cfg.FederationPeers())
	if err != nil {
		return nil, err
	}

	tlsBuilder, err := auth.NewTLSConfigBuilder(cfg.TLS)
	if err != nil {
		return nil, err
	}
	clientCreds, err := tlsBuilder.ClientCredentials()
	if err != nil {
		return nil, fmt.Errorf("failed to build client credentials: %w", err)
	}

	msgSize, err := cfg.MessageSize()
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}

	client := transport.NewClient(transport.ClientOptions{
		Timeout:        timeout,
		MaxMessageSize: msgSize,
		Compress:       cfg.Compress,
		Credentials:    clientCreds,
	}, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := federation.NewSyncMetrics(registry)

	store := storage.NewMemoryStore(cfg.Policy(), logger)
	if cfg.ArticlesFile != "" {
		articles, err := config.LoadSeedArticles(cfg.ArticlesFile, cfg.Instance())
		if err != nil {
			return nil, err
		}
		for _, a := range articles {
			if err := store.Add(a); err != nil {
				return nil, fmt.Errorf("failed to seed %s: %w", a.ID, err)
			}
		}
		logger.Info("Seeded local articles", zap.Int("count", len(articles)))
	}

	codec := federation.NewCollectionCodec(federation.NewMarkdownConverter(directory),
		federation.WithConcurrency(cfg.Concurrency))
	sync := federation.NewSynchronizer(store, codec, nil,
		federation.WithFetcher(client),
		federation.WithMetrics(metrics),
		federation.WithLogger(logger))

	dispatcher := federation.NewDispatcher(cfg.Instance())
	dispatcher.RegisterArticles(sync)

	return &instance{
		cfg:        cfg,
		logger:     logger,
		registry:   registry,
		metrics:    metrics,
		store:      store,
		directory:  directory,
		sync:       sync,
		dispatcher: dispatcher,
		tls:        tlsBuilder,
		client:     client,
	}, nil
}

// syncPeers pulls every configured peer's collection. Failures are logged
// per peer and do not stop the round.
func (in *instance) syncPeers(ctx context.Context) map[string]error {
	results := make(map[string]error)
	for _, peer := range in.directory.Peers() {
		merged, err := in.sync.Sync(ctx, peer)
		results[peer.Instance.ID] = err
		if err != nil {
			in.logger.Warn("Peer sync failed",
				zap.String("peer", peer.Instance.ID),
				zap.String("address", peer.Address),
				zap.Error(err))
			continue
		}
		in.logger.Info("Peer synced",
			zap.String("peer", peer.Instance.ID),
			zap.Int("merged", len(merged)))
	}
	return results
}
