// Package subseq implements the streaming subsequence counter and MDL
// macro-unit selector.
package subseq

// Table maps a packed byte-sequence key to an observed count. The key is
// simply the literal subsequence bytes used as a Go string.
type Table struct {
	counts map[string]uint64
}

// NewTable returns an empty subsequence table.
func NewTable() *Table {
	return &Table{counts: make(map[string]uint64)}
}

// Len reports the number of distinct subsequences currently tracked.
func (t *Table) Len() int { return len(t.counts) }

// Add increments the count for the subsequence represented by the given
// bytes, cloning the slice so Table never aliases caller-owned memory.
func (t *Table) Add(b []byte) {
	key := string(b)
	t.counts[key]++
}

// Count returns the observed count for a subsequence, or 0 if never seen.
func (t *Table) Count(b []byte) uint64 {
	return t.counts[string(b)]
}

// SetCount installs an exact count for a subsequence, overwriting any
// prior value. Used when rebuilding a table from a checkpoint, where the
// serialised entries already carry final counts rather than individual
// observations.
func (t *Table) SetCount(b []byte, count uint64) {
	t.counts[string(b)] = count
}

// Each calls fn once per (pattern bytes, count) pair. Iteration order is
// unspecified: callers that need determinism must sort.
func (t *Table) Each(fn func(pattern []byte, count uint64)) {
	for k, v := range t.counts {
		fn([]byte(k), v)
	}
}

// pruneAtOrBelow drops every entry whose count is <= threshold. Pruning is
// intentionally lossy: the contract is memory safety, not exact retained
// counts.
func (t *Table) pruneAtOrBelow(threshold uint64) {
	for k, v := range t.counts {
		if v <= threshold {
			delete(t.counts, k)
		}
	}
}
