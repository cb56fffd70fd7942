package hnsw

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cuemby/graphd/pkg/blobstore"
	"github.com/cuemby/graphd/pkg/graphdberr"
)

// BlobVectorStore persists each node's vector as a little-endian
// float32 payload in the blob store, namespaced by predicate. It is
// the default VectorStore backing.
type BlobVectorStore struct {
	blobs blobstore.Store
}

func NewBlobVectorStore(blobs blobstore.Store) *BlobVectorStore {
	return &BlobVectorStore{blobs: blobs}
}

func vectorPath(predicate string, id uint32) string {
	return fmt.Sprintf("_vectors/%s/%d.f32", predicate, id)
}

func (v *BlobVectorStore) PutVector(ctx context.Context, predicate string, id uint32, vec []float32) error {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	if err := v.blobs.Put(ctx, vectorPath(predicate, id), buf, blobstore.PutOptions{ContentType: "application/octet-stream"}); err != nil {
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "hnsw: put vector", err)
	}
	return nil
}

func (v *BlobVectorStore) GetVector(ctx context.Context, predicate string, id uint32) ([]float32, bool, error) {
	_, data, err := v.blobs.Get(ctx, vectorPath(predicate, id), nil)
	if err == blobstore.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, graphdberr.Wrap(graphdberr.CodeStorageRead, "hnsw: get vector", err)
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, true, nil
}
