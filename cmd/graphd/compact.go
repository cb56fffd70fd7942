package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/graphd/pkg/log"
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Run chunk-store compaction for one namespace",
	Long: `Merges small persisted chunks into fewer larger ones, as an
offline maintenance pass outside the serve loop.`,
	RunE: runCompact,
}

func init() {
	addShardFlags(compactCmd)
	_ = compactCmd.MarkFlagRequired("namespace")
}

func runCompact(cmd *cobra.Command, args []string) error {
	namespace, _ := cmd.Flags().GetString("namespace")
	compactLog := log.WithNamespace(namespace)

	s, err := openShard(cmd)
	if err != nil {
		return fmt.Errorf("open shard: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			compactLog.Error().Err(cerr).Msg("error closing shard")
		}
	}()

	merged, err := s.Compact(context.Background())
	if err != nil {
		return fmt.Errorf("compact: %w", err)
	}

	compactLog.Info().Int("merged", merged).Msg("compaction complete")
	return nil
}
