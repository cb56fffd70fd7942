package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/graphd/pkg/log"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile one namespace's manifest against the blob store",
	Long: `Runs one manifest sync pass: compares this shard's local
manifest against the authoritative blob-store copy and pulls, pushes,
or resolves conflicts in R2's favor, as appropriate.`,
	RunE: runSync,
}

func init() {
	addShardFlags(syncCmd)
	syncCmd.Flags().String("direction", "auto", "Sync direction hint: \"auto\", \"push\", or \"pull\" (informational; FullSync resolves the actual direction from manifest state)")
	_ = syncCmd.MarkFlagRequired("namespace")
}

func runSync(cmd *cobra.Command, args []string) error {
	namespace, _ := cmd.Flags().GetString("namespace")
	direction, _ := cmd.Flags().GetString("direction")
	syncLog := log.WithNamespace(namespace)

	s, err := openShard(cmd)
	if err != nil {
		return fmt.Errorf("open shard: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			syncLog.Error().Err(cerr).Msg("error closing shard")
		}
	}()

	result := s.Sync(context.Background(), namespace)
	if !result.Success {
		return fmt.Errorf("sync failed: %s (%s)", result.Error, result.ErrorCode)
	}

	syncLog.Info().
		Str("requestedDirection", direction).
		Str("actualDirection", string(result.Direction)).
		Int("entriesUpdated", result.EntriesUpdated).
		Int("conflicts", result.Conflicts).
		Msg("sync complete")
	return nil
}
