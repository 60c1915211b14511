package commands

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/sujala/deuce/internal/logger"
	"github.com/sujala/deuce/pkg/api"
	"github.com/sujala/deuce/pkg/config"
	"github.com/sujala/deuce/pkg/metadata"
	"github.com/sujala/deuce/pkg/metrics"
	"github.com/sujala/deuce/pkg/store/block"
	blockmemory "github.com/sujala/deuce/pkg/store/block/memory"
	blocks3 "github.com/sujala/deuce/pkg/store/block/s3"
	metadatamemory "github.com/sujala/deuce/pkg/store/metadata/memory"
	"github.com/sujala/deuce/pkg/store/metadata/postgres"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Deuce HTTP API server",
	Long: `Start the Deuce block storage HTTP API against the configured
metadata and block stores.

Examples:
  # Start with default (in-memory) stores
  deuced serve

  # Start against postgres and S3, with a custom config file
  deuced serve --config /etc/deuce/config.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	metrics.SetEnabled(cfg.Metrics.IsEnabled())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metadataStore, closeMetadata, err := buildMetadataStore(ctx, cfg.Metadata)
	if err != nil {
		return fmt.Errorf("failed to initialize metadata store: %w", err)
	}
	defer closeMetadata()

	blockStore, err := buildBlockStore(ctx, cfg.BlockStore)
	if err != nil {
		return fmt.Errorf("failed to initialize block store: %w", err)
	}

	deps := api.Deps{
		Metadata:     metadataStore,
		Blocks:       blockStore,
		Pagination:   cfg.Server.Pagination,
		MaxBlockSize: int64(cfg.BlockStore.MaxBlockSizeBytes()),
	}
	server := api.NewServer(cfg.Server, deps)

	logger.Info("starting deuced",
		"metadata_driver", cfg.Metadata.Driver,
		"block_store_driver", cfg.BlockStore.Driver,
		logger.KeyPort, server.Port())

	if cfg.Metrics.IsEnabled() {
		go serveMetrics(ctx, cfg.Metrics.Port)
	}

	// Start blocks until ctx is cancelled (shutdown signal) or the
	// listener fails, performing its own graceful shutdown on the way out.
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("API server error: %w", err)
	}

	logger.Info("deuced stopped gracefully")
	return nil
}

func serveMetrics(ctx context.Context, port int) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: metrics.Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", logger.KeyPort, port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server error", logger.KeyError, err)
	}
}

func buildMetadataStore(ctx context.Context, cfg config.MetadataConfig) (metadata.Store, func(), error) {
	switch cfg.Driver {
	case "postgres":
		store, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return metadatamemory.New(nil), func() {}, nil
	}
}

func buildBlockStore(ctx context.Context, cfg config.BlockStoreConfig) (block.Store, error) {
	switch cfg.Driver {
	case "s3":
		return buildS3BlockStore(ctx, cfg.S3)
	default:
		return blockmemory.New(), nil
	}
}

func buildS3BlockStore(ctx context.Context, cfg config.S3Config) (block.Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return blocks3.New(ctx, blocks3.Config{
		Client:            client,
		Bucket:            cfg.Bucket,
		KeyPrefix:         cfg.KeyPrefix,
		MaxRetries:        cfg.MaxRetries,
		InitialBackoff:    cfg.InitialBackoff,
		MaxBackoff:        cfg.MaxBackoff,
		BackoffMultiplier: cfg.BackoffMultiplier,
	})
}
