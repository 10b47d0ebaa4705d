package common

// Toggle flips b in place and returns the new value.
func Toggle(b *bool) bool {
	*b = !*b
	return *b
}
