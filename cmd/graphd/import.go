package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/graphd/pkg/log"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Run the streaming import pipeline against one source",
	Long: `Range-fetches --source-url, frames it into triples, and writes
them into --namespace's chunk store, resuming from any existing
checkpoint for --job-id.`,
	RunE: runImport,
}

func init() {
	addShardFlags(importCmd)
	importCmd.Flags().String("source-url", "", "Source URL to import from (required)")
	importCmd.Flags().String("job-id", "", "Import job id, for checkpoint resume (required)")
	_ = importCmd.MarkFlagRequired("namespace")
	_ = importCmd.MarkFlagRequired("source-url")
	_ = importCmd.MarkFlagRequired("job-id")
}

func runImport(cmd *cobra.Command, args []string) error {
	sourceURL, _ := cmd.Flags().GetString("source-url")
	jobID, _ := cmd.Flags().GetString("job-id")
	namespace, _ := cmd.Flags().GetString("namespace")

	importLog := log.WithJobID(jobID)

	s, err := openShard(cmd)
	if err != nil {
		return fmt.Errorf("open shard: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			importLog.Error().Err(cerr).Msg("error closing shard")
		}
	}()

	importLog.Info().Str("namespace", namespace).Str("sourceUrl", sourceURL).Msg("starting import")

	if err := s.Import(context.Background(), jobID, sourceURL); err != nil {
		return fmt.Errorf("import job %s: %w", jobID, err)
	}

	importLog.Info().Msg("import complete")
	return nil
}
