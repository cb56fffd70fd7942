package traverse

import (
	"sort"

	"github.com/cuemby/graphd/pkg/types"
)

// sortedEdgeValues returns an entity's edge objects ordered by
// predicate name, so fan-out truncation is deterministic instead of
// depending on Go's randomized map iteration order.
func sortedEdgeValues(edges map[string]types.TypedObject) []types.TypedObject {
	predicates := make([]string, 0, len(edges))
	for p := range edges {
		predicates = append(predicates, p)
	}
	sort.Strings(predicates)

	out := make([]types.TypedObject, 0, len(predicates))
	for _, p := range predicates {
		out = append(out, edges[p])
	}
	return out
}

// edgeTargets extracts the target entity id(s) referenced by one
// edge object, whether it's a single REF or a REF_ARRAY.
func edgeTargets(obj types.TypedObject) []string {
	switch obj.Tag {
	case types.TagRef:
		return []string{string(obj.Ref)}
	case types.TagRefArray:
		out := make([]string, len(obj.RefArray))
		for i, ref := range obj.RefArray {
			out[i] = string(ref)
		}
		return out
	default:
		return nil
	}
}
