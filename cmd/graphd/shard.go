package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/cuemby/graphd/pkg/api"
	"github.com/cuemby/graphd/pkg/blobstore"
	"github.com/cuemby/graphd/pkg/config"
	"github.com/cuemby/graphd/pkg/kv"
	"github.com/cuemby/graphd/pkg/log"
	"github.com/cuemby/graphd/pkg/shard"
)

var shardCmd = &cobra.Command{
	Use:   "shard",
	Short: "Shard process operations",
}

var shardServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve one shard's data plane",
	Long: `Start a shard: opens the local bbolt KV and embedded SQLite
index database, binds the configured blob store, and serves the
data-plane Go APIs used by an external front-end (MCP dispatch,
SPARQL, or a plain HTTP router).`,
	RunE: runShardServe,
}

func init() {
	shardCmd.AddCommand(shardServeCmd)

	addShardFlags(shardServeCmd)
	shardServeCmd.Flags().String("health-addr", ":9090", "Address for /health, /ready, /metrics")
	_ = shardServeCmd.MarkFlagRequired("namespace")
}

// addShardFlags registers the flags every subcommand that opens a
// Shard needs (serve, import, compact, sync).
func addShardFlags(cmd *cobra.Command) {
	cmd.Flags().String("namespace", "", "Namespace this shard serves (required)")
	cmd.Flags().String("data-dir", "./graphd-data", "Data directory for bbolt and SQLite files")
	cmd.Flags().String("locality", "us-east", "Placement region this shard is assigned to")
	cmd.Flags().String("blob-store", "mem", "Blob store backend: \"s3\" or \"mem\"")
	cmd.Flags().String("s3-bucket", "", "S3 bucket name (required when --blob-store=s3)")
}

// openShard builds a Shard from a subcommand's shard flags (plus the
// root --config flag), the way each of serve/import/compact/sync
// needs to before doing its own work.
func openShard(cmd *cobra.Command) (*shard.Shard, error) {
	namespace, _ := cmd.Flags().GetString("namespace")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	locality, _ := cmd.Flags().GetString("locality")
	blobKind, _ := cmd.Flags().GetString("blob-store")
	s3Bucket, _ := cmd.Flags().GetString("s3-bucket")
	configPath, _ := cmd.Flags().GetString("config")

	shardLog := log.WithShard(locality).With().Str("component", "cmd.shard").Logger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Namespace = namespace
	cfg.DataDir = dataDir
	cfg.Locality = locality

	blobs, err := openBlobStore(context.Background(), blobKind, s3Bucket)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	kvStore, err := kv.NewBoltKV(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open durable kv: %w", err)
	}

	sqlitePath := dataDir + "/" + namespace + ".sqlite"
	shardCfg := cfg.ShardConfig(sqlitePath)

	return shard.New(shardCfg, blobs, kvStore, shard.NewStaticLocality(locality, ""), shardLog)
}

func runShardServe(cmd *cobra.Command, args []string) error {
	healthAddr, _ := cmd.Flags().GetString("health-addr")
	namespace, _ := cmd.Flags().GetString("namespace")
	dataDir, _ := cmd.Flags().GetString("data-dir")

	s, err := openShard(cmd)
	if err != nil {
		return fmt.Errorf("open shard: %w", err)
	}
	shardLog := log.WithNamespace(namespace)
	defer func() {
		if cerr := s.Close(); cerr != nil {
			shardLog.Error().Err(cerr).Msg("error closing shard")
		}
	}()

	collector := shard.NewMetricsCollector(s)
	collector.Start()
	defer collector.Stop()

	hs := api.NewHealthServer(s)
	go func() {
		if err := hs.Start(healthAddr); err != nil && err != http.ErrServerClosed {
			shardLog.Error().Err(err).Msg("health server error")
		}
	}()

	shardLog.Info().
		Str("namespace", namespace).
		Str("dataDir", dataDir).
		Str("healthAddr", healthAddr).
		Msg("shard serving")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	shardLog.Info().Msg("shutting down")
	return nil
}

// openBlobStore constructs the configured blobstore.Store
// implementation. "mem" is useful for local trials since it needs no
// external bucket; "s3" is the production target, addressed via the
// S3 API against an R2-compatible endpoint.
func openBlobStore(ctx context.Context, kind, bucket string) (blobstore.Store, error) {
	switch kind {
	case "mem":
		return blobstore.NewMemStore(), nil
	case "s3":
		if bucket == "" {
			return nil, fmt.Errorf("--s3-bucket is required when --blob-store=s3")
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := s3.NewFromConfig(awsCfg)
		return blobstore.NewS3Store(client, bucket), nil
	default:
		return nil, fmt.Errorf("unknown --blob-store %q (want \"s3\" or \"mem\")", kind)
	}
}
