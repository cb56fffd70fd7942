package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesSchema(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	tables := []string{
		"chunks", "triples_mirror", "idx_pos", "idx_osp",
		"idx_fts", "idx_fts_doclen", "idx_geo",
		"hnsw_nodes", "hnsw_edges", "hnsw_meta",
	}
	for _, tbl := range tables {
		var name string
		err := s.DB.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, tbl).Scan(&name)
		require.NoError(t, err, "table %s should exist", tbl)
		assert.Equal(t, tbl, name)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	// Re-running migrate (e.g. reopening an existing file) must not
	// fail on the "IF NOT EXISTS" schema statements.
	path := t.TempDir() + "/shard.sqlite"

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
}

func TestSingleWriterConnectionLimit(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 1, s.DB.Stats().MaxOpenConnections)
}
