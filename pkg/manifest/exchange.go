package manifest

import (
	"context"

	"github.com/cuemby/graphd/pkg/graphdberr"
)

func cachedManifestKey(namespace string) string {
	return "r2manifest:" + namespace
}

// ImportFromR2Manifest persists m as this shard's local cached copy
// of the authoritative R2 manifest for its namespace.
func (s *Store) ImportFromR2Manifest(ctx context.Context, m Manifest) error {
	if m.Namespace == "" {
		return graphdberr.New(graphdberr.CodeInvalidManifest, "manifest missing namespace")
	}
	if err := s.kv.Put(ctx, cachedManifestKey(m.Namespace), m); err != nil {
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "import r2 manifest", err)
	}
	return nil
}

// ExportToR2Manifest returns this shard's locally cached manifest for
// namespace, ready to be serialized and uploaded to the blob store.
func (s *Store) ExportToR2Manifest(ctx context.Context, namespace string) (Manifest, bool, error) {
	var m Manifest
	ok, err := s.kv.Get(ctx, cachedManifestKey(namespace), &m)
	if err != nil {
		return Manifest{}, false, graphdberr.Wrap(graphdberr.CodeStorageRead, "export r2 manifest", err)
	}
	return m, ok, nil
}
