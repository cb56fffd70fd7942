package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/graphd/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "graphd",
	Short: "graphd - edge-deployed knowledge-graph shard agent",
	Long: `graphd serves one shard of a distributed knowledge graph: a
columnar chunk store backed by an object store, a manifest-backed
entity lookup, a per-shard write buffer with compaction, a
streaming/resumable import pipeline, and an HNSW vector index for
hybrid search.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("graphd version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "graphd.yaml", "Path to graphd.yaml config file")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(shardCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(compactCmd)
	rootCmd.AddCommand(syncCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
