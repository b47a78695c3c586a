package synthesis

// DefaultMaxSamples caps how many fragments go into one generation prompt.
const DefaultMaxSamples = 20

// Sample picks up to maxSamples items spread evenly across items, in order.
// With n = min(maxSamples, len(items)) and stride = len(items)/n, it returns
// items at 0, stride, 2*stride and so on. A non-positive maxSamples uses
// DefaultMaxSamples.
func Sample[T any](items []T, maxSamples int) []T {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	n := min(maxSamples, len(items))
	if n == 0 {
		return nil
	}

	stride := len(items) / n
	sampled := make([]T, 0, n)
	for i := 0; i < n; i++ {
		sampled = append(sampled, items[i*stride])
	}
	return sampled
}
