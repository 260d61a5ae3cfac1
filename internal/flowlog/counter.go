package flowlog

// ComboKey is the (destination port, protocol keyword) aggregation key.
type ComboKey struct {
	Port     string
	Protocol string
}

// Counter counts occurrences of keys and remembers the order in which
// each key was first seen.
type Counter[K comparable] struct {
	counts map[K]int
	keys   []K
}

// NewCounter returns an empty counter.
func NewCounter[K comparable]() *Counter[K] {
	return &Counter[K]{counts: make(map[K]int)}
}

// Inc adds one to the count of k.
func (c *Counter[K]) Inc(k K) {
	if _, ok := c.counts[k]; !ok {
		c.keys = append(c.keys, k)
	}
	c.counts[k]++
}

// Get returns the count of k, zero if never seen.
func (c *Counter[K]) Get(k K) int {
	return c.counts[k]
}

// Keys returns the keys in order of first occurrence.
func (c *Counter[K]) Keys() []K {
	out := make([]K, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of distinct keys.
func (c *Counter[K]) Len() int {
	return len(c.keys)
}

// Total returns the sum of all counts.
func (c *Counter[K]) Total() int {
	total := 0
	for _, n := range c.counts {
		total += n
	}
	return total
}

// Counts holds the result of one aggregation run.
type Counts struct {
	Combos  *Counter[ComboKey]
	Tags    *Counter[string]
	Lines   int // lines read, including skipped ones
	Skipped int // lines with fewer than MinFields columns
}

// NewCounts returns empty counters.
func NewCounts() *Counts {
	return &Counts{
		Combos: NewCounter[ComboKey](),
		Tags:   NewCounter[string](),
	}
}

// Records returns the number of records that were counted.
func (c *Counts) Records() int {
	return c.Lines - c.Skipped
}
