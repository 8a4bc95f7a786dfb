package loader

import "github.com/pkg/errors"

// toPair expands a scalar or two-element slice into (width, height) form.
// An empty slice falls back to def on both axes.
func toPair(v []int, def int) ([2]int, error) {
	switch len(v) {
	case 0:
		return [2]int{def, def}, nil
	case 1:
		return [2]int{v[0], v[0]}, nil
	case 2:
		return [2]int{v[0], v[1]}, nil
	}
	return [2]int{}, errors.Errorf("loader: expected at most 2 elements, got %d", len(v))
}

// shrinkModScale rounds each axis of size down to the largest value evenly
// divisible by the matching scale axis, so low-res patches keep exact
// integer dimensions.
func shrinkModScale(size, scale [2]int) [2]int {
	return [2]int{size[0] - size[0]%scale[0], size[1] - size[1]%scale[1]}
}

// ceilDiv returns ceil(a / b) for positive b.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
