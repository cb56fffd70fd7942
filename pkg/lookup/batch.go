package lookup

import (
	"context"

	"github.com/cuemby/graphd/pkg/types"
)

// BatchResult pairs a requested entity id with its lookup outcome,
// preserving request order.
type BatchResult struct {
	EntityID string
	Entity   Entity
	Found    bool
	Err      error
}

// GetBatch resolves multiple entities by calling Get once per id,
// visiting the ids grouped by namespace. Each Get does its own
// manifest load and chunk fetches; nothing is shared between ids of
// the same namespace or chunk. Result order matches the input order.
func (l *Lookup) GetBatch(ctx context.Context, entityIDs []string) []BatchResult {
	results := make([]BatchResult, len(entityIDs))
	byNamespace := make(map[string][]int)
	for i, id := range entityIDs {
		ns := types.Namespace(types.EntityId(id))
		byNamespace[ns] = append(byNamespace[ns], i)
	}

	for _, idxs := range byNamespace {
		for _, i := range idxs {
			e, found, _, err := l.Get(ctx, entityIDs[i])
			results[i] = BatchResult{EntityID: entityIDs[i], Entity: e, Found: found, Err: err}
		}
	}
	return results
}
