package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"slices"
)

// MaxKeyLength bounds the length of keys produced by QueryKey. Longer query
// parts are replaced by their SHA-256 digest.
const MaxKeyLength = 512

// QueryKey derives the key "<kind>:<type>:<canonical-query>" for a request.
//
// Parameter names and the values under each name are sorted before encoding,
// so two requests that differ only in parameter order map to the same key.
// Names listed in omit are excluded.
func QueryKey(kind, typ string, params url.Values, omit ...string) string {
	canon := make(url.Values, len(params))
	for name, values := range params {
		if slices.Contains(omit, name) {
			continue
		}
		sorted := slices.Clone(values)
		slices.Sort(sorted)
		canon[name] = sorted
	}

	prefix := kind + ":" + typ + ":"
	query := canon.Encode()
	if len(prefix)+len(query) > MaxKeyLength {
		sum := sha256.Sum256([]byte(query))
		query = "sha256=" + hex.EncodeToString(sum[:16])
	}
	return prefix + query
}
