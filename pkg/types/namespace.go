package types

import (
	"net/url"
	"strings"
)

// Namespace is the URL-prefix partitioning key used to lay out
// entities in blob-store paths: reversed host labels followed by the
// first path segment, e.g. "https://imdb.com/title/tt0111161" ->
// ".com/.imdb/title".
func Namespace(entityID EntityId) string {
	u, err := url.Parse(string(entityID))
	if err != nil || u.Host == "" {
		return ""
	}
	labels := strings.Split(u.Hostname(), ".")
	rev := make([]string, 0, len(labels))
	for i := len(labels) - 1; i >= 0; i-- {
		if labels[i] == "" {
			continue
		}
		rev = append(rev, "."+labels[i])
	}
	ns := strings.Join(rev, "/")

	path := strings.Trim(u.EscapedPath(), "/")
	if path == "" {
		return ns
	}
	first := path
	if idx := strings.IndexByte(path, '/'); idx >= 0 {
		first = path[:idx]
	}
	return ns + "/" + first
}

// BlobPath returns the deterministic chunk key for a namespace and
// chunk id: "{reversed-domain}/{path}/_chunks/{chunkId}.gcol".
func BlobPath(namespace, chunkID string) string {
	return namespace + "/_chunks/" + chunkID + ".gcol"
}

// ManifestPath returns the deterministic manifest key for a
// namespace: "{reversed-domain}/{path}/_manifest.json".
func ManifestPath(namespace string) string {
	return namespace + "/_manifest.json"
}
