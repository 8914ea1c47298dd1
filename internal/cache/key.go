package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Logical namespaces sharing one backend. Query answers go stale with the
// corpus so they expire quickly; embeddings of identical text never change.
const (
	NamespaceQuery     = "query"
	NamespaceEmbedding = "embedding"
)

// Key derives a cache key from a namespace, positional arguments and named
// arguments. Arguments are normalized (trimmed, lowercased) and named
// arguments are sorted, so logically equivalent calls map to the same key
// regardless of casing, surrounding whitespace or map iteration order.
func Key(namespace string, args []string, kwargs map[string]string) string {
	parts := make([]string, 0, 1+len(args)+len(kwargs))
	parts = append(parts, namespace)

	for _, a := range args {
		parts = append(parts, normalize(a))
	}

	names := make([]string, 0, len(kwargs))
	for k := range kwargs {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		parts = append(parts, k+":"+normalize(kwargs[k]))
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return namespace + ":" + hex.EncodeToString(sum[:])
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
