package index

import (
	"context"
	"encoding/json"

	"github.com/klauspost/compress/zstd"

	"github.com/cuemby/graphd/pkg/blobstore"
	"github.com/cuemby/graphd/pkg/graphdberr"
)

// Snapshot is the cold JSON shape of all four indexes of one
// namespace, persisted to the blob store as one zstd-compressed blob.
type Snapshot struct {
	Namespace string              `json:"namespace"`
	POS       map[string][]string `json:"pos"`       // "predicate|valueHash" -> subjects
	OSP       map[string][]string `json:"osp"`       // "objectRef|predicate" -> subjects
	FTS       []ftsPosting        `json:"fts"`
	GEO       []geoPosting        `json:"geo"`
}

type ftsPosting struct {
	Term      string  `json:"term"`
	EntityID  string  `json:"entityId"`
	Predicate string  `json:"predicate"`
	Score     float64 `json:"score"`
}

type geoPosting struct {
	Geohash  string  `json:"geohash"`
	EntityID string  `json:"entityId"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

func snapshotPath(namespace, indexName string) string {
	return namespace + "/_indexes/" + indexName + ".json.zst"
}

// SnapshotTo builds a full snapshot of every sub-index for namespace
// and uploads it, zstd-compressed, to the blob store.
func (s *Store) SnapshotTo(ctx context.Context, blobs blobstore.Store, namespace string) error {
	snap := Snapshot{Namespace: namespace, POS: make(map[string][]string), OSP: make(map[string][]string)}

	if err := s.collectPOS(ctx, &snap); err != nil {
		return err
	}
	if err := s.collectOSP(ctx, &snap); err != nil {
		return err
	}
	if err := s.collectFTS(ctx, &snap); err != nil {
		return err
	}
	if err := s.collectGEO(ctx, &snap); err != nil {
		return err
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return graphdberr.Wrap(graphdberr.CodeExportFailed, "index: marshal snapshot", err)
	}
	compressed, err := zstdCompress(raw)
	if err != nil {
		return err
	}
	if err := blobs.Put(ctx, snapshotPath(namespace, "secondary"), compressed, blobstore.PutOptions{ContentType: "application/zstd"}); err != nil {
		return graphdberr.Wrap(graphdberr.CodeExportFailed, "index: upload snapshot", err)
	}
	return nil
}

// RestoreFrom fetches a namespace's snapshot and repopulates every
// sub-index's hot SQL tables from it.
func (s *Store) RestoreFrom(ctx context.Context, blobs blobstore.Store, namespace string) (bool, error) {
	_, compressed, err := blobs.Get(ctx, snapshotPath(namespace, "secondary"), nil)
	if err == blobstore.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, graphdberr.Wrap(graphdberr.CodeImportFailed, "index: fetch snapshot", err)
	}
	raw, err := zstdDecompress(compressed)
	if err != nil {
		return false, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return false, graphdberr.Wrap(graphdberr.CodeInvalidManifest, "index: unmarshal snapshot", err)
	}
	if err := s.restore(ctx, snap); err != nil {
		return false, err
	}
	return true, nil
}

func zstdCompress(raw []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, graphdberr.Wrap(graphdberr.CodeExportFailed, "index: init zstd encoder", err)
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

func zstdDecompress(compressed []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, graphdberr.Wrap(graphdberr.CodeImportFailed, "index: init zstd decoder", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, graphdberr.Wrap(graphdberr.CodeImportFailed, "index: zstd decode", err)
	}
	return out, nil
}
