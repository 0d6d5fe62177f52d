package cache

import (
	"net/url"
	"strings"
)

// NormalizeQuery serialises query parameters into a stable cache key: keys are
// lower-cased and sorted, empty keys and any key named in exclude (compared
// case-insensitively) are dropped. Values of a repeated key keep request order.
func NormalizeQuery(query url.Values, exclude ...string) string {
	skip := make(map[string]struct{}, len(exclude))
	for _, k := range exclude {
		skip[strings.ToLower(k)] = struct{}{}
	}

	normalized := url.Values{}
	for k, vs := range query {
		lk := strings.ToLower(strings.TrimSpace(k))
		if lk == "" {
			continue
		}
		if _, ok := skip[lk]; ok {
			continue
		}
		for _, v := range vs {
			normalized.Add(lk, strings.TrimSpace(v))
		}
	}
	return normalized.Encode()
}
