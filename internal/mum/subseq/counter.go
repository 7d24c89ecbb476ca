package subseq

import (
	"math/rand"

	"mum/internal/config"
	"mum/internal/merr"
)

// state tracks the Counter's lifecycle: Empty -> Counting -> Finalised ->
// Selected. A Counter that has moved past Counting cannot ingest further
// sequences; SelectMacroUnits finalises a Counter that has not reached
// Finalised before selecting from it.
type state int

const (
	stateEmpty state = iota
	stateCounting
	stateFinalised
	stateSelected
)

// SeqSource pulls the next whole byte sequence (e.g. one input record) from
// an upstream stream. It returns ok=false once exhausted, and a non-nil err
// only on a genuine read failure. Counter windows each returned sequence
// into every countable-length substring itself; the source need not (and
// should not) pre-window its records.
type SeqSource func() (seq []byte, ok bool, err error)

// Counter accumulates subsequence observations, periodically pruning
// low-count entries to bound memory, per the CountConfig knobs.
type Counter struct {
	cfg   config.CountConfig
	table *Table
	state state

	observed      uint64 // total Add calls since the Counter was created
	pruneThresh   uint64
	sinceLastSeen uint64 // counter toward the next PruneInterval boundary
	rng           *rand.Rand
}

// NewCounter constructs an empty Counter for the given configuration. rng
// may be nil, in which case sampling uses the package-level default source;
// callers that need determinism (tests, reproducible training runs) should
// pass a seeded *rand.Rand.
func NewCounter(cfg config.CountConfig, rng *rand.Rand) (*Counter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Counter{
		cfg:         cfg,
		table:       NewTable(),
		state:       stateEmpty,
		pruneThresh: cfg.PruneThresholdStart,
		rng:         rng,
	}, nil
}

// Table exposes the underlying subsequence table for read access (e.g. by
// the MDL selector). Calling this before Finalise is allowed but the
// contents may still change.
func (c *Counter) Table() *Table { return c.table }

// Ingest consumes every sequence from src, windowing each one into the
// subsequences it contributes, sampling per SampleRate and pruning every
// PruneInterval observations, until src is exhausted or it returns an
// error. Calling Ingest after Finalise returns a ContentError.
func (c *Counter) Ingest(src SeqSource) error {
	if c.state == stateFinalised || c.state == stateSelected {
		return merr.Content("Counter.Ingest", errCounterFinalised)
	}
	c.state = stateCounting
	for {
		seq, ok, err := src()
		if err != nil {
			return merr.IO("Counter.Ingest", err)
		}
		if !ok {
			return nil
		}
		c.ingestWindows(seq)
	}
}

// ingestWindows enumerates every contiguous substring of seq with length in
// [MinLen, min(MaxLen, MaxSubseqLen, len(seq))], at every start position,
// and counts each as its own subsequence observation: for length l from
// MinLen up to that bound, and start i from 0 while i+l <= len(seq),
// seq[i:i+l] is one candidate.
func (c *Counter) ingestWindows(seq []byte) {
	maxLen := c.cfg.MaxLen
	if c.cfg.MaxSubseqLen < maxLen {
		maxLen = c.cfg.MaxSubseqLen
	}
	if len(seq) < maxLen {
		maxLen = len(seq)
	}
	for l := c.cfg.MinLen; l <= maxLen; l++ {
		for i := 0; i+l <= len(seq); i++ {
			if c.cfg.SampleRate < 1.0 && c.rng.Float64() >= c.cfg.SampleRate {
				continue
			}
			c.table.Add(seq[i : i+l])
			c.observed++
			c.sinceLastSeen++
			if c.sinceLastSeen >= c.cfg.PruneInterval || c.table.Len() > c.cfg.MaxEntries {
				c.prune()
			}
		}
	}
}

// prune drops entries at or below the current threshold, escalating the
// threshold (bounded to PruneThresholdStart..+3) if the table is still over
// MaxEntries afterward.
func (c *Counter) prune() {
	c.table.pruneAtOrBelow(c.pruneThresh)
	maxThresh := c.cfg.PruneThresholdStart + 3
	for c.table.Len() > c.cfg.MaxEntries && c.pruneThresh < maxThresh {
		c.pruneThresh++
		c.table.pruneAtOrBelow(c.pruneThresh)
	}
	c.sinceLastSeen = 0
}

// Finalise performs a last forced prune at MinFrequency-1 (dropping entries
// that could never meet the MDL selector's frequency floor) and moves the
// Counter into the Finalised state, after which SelectMacroUnits may run.
func (c *Counter) Finalise() {
	if c.state == stateFinalised || c.state == stateSelected {
		return
	}
	if c.cfg.MinFrequency > 0 {
		c.table.pruneAtOrBelow(c.cfg.MinFrequency - 1)
	}
	c.state = stateFinalised
}

// markSelected records that MDL selection has consumed this Counter's
// table. A later SelectMacroUnits call is not refused; it scores the same
// table again.
func (c *Counter) markSelected() { c.state = stateSelected }

var errCounterFinalised = counterFinalisedError{}

type counterFinalisedError struct{}

func (counterFinalisedError) Error() string {
	return "counter already finalised, cannot ingest further sequences"
}
