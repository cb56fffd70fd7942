// Package lookup implements end-to-end entity resolution: resolving
// an EntityId to a hydrated Entity via the manifest, combined/per-chunk
// bloom filters, and the GraphCol codec.
package lookup

import (
	"strings"

	"github.com/cuemby/graphd/pkg/types"
)

// Entity is the hydrated, materialized view of all triples sharing a
// subject.
type Entity struct {
	ID         string
	Type       string
	Properties map[string]types.TypedObject
	Edges      map[string]types.TypedObject
}

// materialize groups triples for one subject into an Entity, keeping
// only the newest version per predicate (max timestamp wins).
func materialize(entityID string, triples []types.Triple) Entity {
	newest := make(map[types.Predicate]types.Triple)
	for _, t := range triples {
		cur, ok := newest[t.Predicate]
		if !ok || t.Timestamp > cur.Timestamp {
			newest[t.Predicate] = t
		}
	}

	e := Entity{
		ID:         entityID,
		Type:       "Entity",
		Properties: make(map[string]types.TypedObject),
		Edges:      make(map[string]types.TypedObject),
	}
	for pred, t := range newest {
		switch pred {
		case "$type", "type":
			if t.Object.Tag == types.TagString {
				e.Type = t.Object.Str
			}
			continue
		}
		if t.Object.IsRef() {
			e.Edges[string(pred)] = t.Object
		} else {
			e.Properties[string(pred)] = t.Object
		}
	}
	if e.Type == "Entity" {
		e.Type = heuristicType(entityID)
	}
	return e
}

// heuristicType guesses a type label from URL shape when no explicit
// $type/type triple exists, e.g. "https://imdb.com/title/tt123" -> "title".
func heuristicType(entityID string) string {
	path := entityID
	if idx := strings.Index(path, "://"); idx >= 0 {
		path = path[idx+3:]
	}
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		path = path[idx+1:]
	} else {
		return "Entity"
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "Entity"
	}
	return segments[0]
}
