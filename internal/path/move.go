package path

// Move returns a new slice with the element at from removed and reinserted at
// to, where to is a position in the sequence after removal. The input is never
// modified. Equal or out-of-range indices return an unchanged copy.
func Move[T any](items []T, from, to int) []T {
	out := make([]T, len(items))
	copy(out, items)

	if from == to || from < 0 || to < 0 || from >= len(items) || to >= len(items) {
		return out
	}

	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved
	return out
}
