package utils

func Ptr[T any](v T) *T {
	return &v
}

// Copy returns a new pointer to a copy of *v, or nil when v is nil.
func Copy[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
