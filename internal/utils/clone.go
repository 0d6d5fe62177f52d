package utils

import "encoding/json"

// CloneJSON deep-copies v through its JSON encoding. Values that cannot be
// encoded are returned as the zero value.
func CloneJSON[T any](v T) T {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(data, &out)
	return out
}
