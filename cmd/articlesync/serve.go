package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"articlesync/pkg/federation"
	"articlesync/pkg/transport"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	var (
		listenAddress string
		syncInterval  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local collection and sync from peers",
		Long: `Start the federation server for this instance. Configured peers are
synced once at startup and then every --sync-interval (0 disables periodic sync).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(verbose)
			defer logger.Sync()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listenAddress != "" {
				cfg.ListenAddress = listenAddress
			}

			in, err := newInstance(cfg, logger)
			if err != nil {
				return err
			}
			defer in.client.Close()

			serverCreds, err := in.tls.ServerCredentials()
			if err != nil {
				return fmt.Errorf("failed to build server credentials: %w", err)
			}
			msgSize, _ := cfg.MessageSize()

			gs := transport.NewGRPCServer(transport.NewServer(in.dispatcher, logger), transport.ServerOptions{
				MaxMessageSize: msgSize,
				Credentials:    serverCreds,
			})

			if cfg.MetricsAddress != "" {
				metricsServer := federation.StartMetricsServer(cfg.MetricsAddress, in.registry, logger)
				defer metricsServer.Close()
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			errCh := make(chan error, 1)
			go func() {
				errCh <- transport.Serve(gs, cfg.ListenAddress, logger)
			}()

			go in.runSync(ctx, syncInterval)

			logger.Info("Instance started",
				zap.String("instance", cfg.InstanceID),
				zap.String("merge_policy", cfg.Policy().String()),
				zap.Int("peers", len(cfg.Peers)))

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-sigChan:
				logger.Info("Shutting down instance")
				cancel()
				gs.GracefulStop()
				return nil
			case err := <-errCh:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&listenAddress, "address", "a", "", "listen address (overrides config)")
	cmd.Flags().DurationVar(&syncInterval, "sync-interval", 5*time.Minute, "interval between peer sync rounds")

	return cmd
}

func (in *instance) runSync(ctx context.Context, interval time.Duration) {
	in.syncPeers(ctx)
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			in.syncPeers(ctx)
			in.logger.Debug("Sync round complete", zap.Int("articles", in.store.Len()))
		}
	}
}
