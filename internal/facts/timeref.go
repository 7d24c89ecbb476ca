package facts

// TimeRefType enumerates the four time-reference shapes the time_ref frame
// encoding supports.
type TimeRefType uint8

const (
	TimeInstant TimeRefType = iota + 1
	TimeInterval
	TimeRelative
	TimeUnknown
)

// Precision enumerates how finely a TimeRef is specified. Exact values are
// an implementation choice; only their stability across encode/decode
// matters.
type Precision uint8

const (
	PrecisionNanosecond Precision = iota
	PrecisionSecond
	PrecisionDay
	PrecisionUnspecified
)

// TimeRef is a fact's optional `time` field: a type-code/precision-code/
// payload encoding of an instant, interval, or relative offset.
type TimeRef struct {
	Type      TimeRefType
	Precision Precision

	// Instant: a single i64 (nanoseconds since epoch).
	Instant int64

	// Interval: two optional i64 endpoints, each guarded by a presence flag.
	HasStart bool
	Start    int64
	HasEnd   bool
	End      int64

	// Relative: an opaque string offset description (e.g. "P1D" style),
	// stored and encoded as-is; it is not interpreted or resolved to an
	// instant.
	RelativeOffset string
}

// normalizeTimeRef truncates a TimeRef to its stated precision so that two
// TimeRefs differing only below that precision normalise identically.
func normalizeTimeRef(t *TimeRef) {
	if t == nil {
		return
	}
	switch t.Precision {
	case PrecisionSecond:
		t.Instant -= t.Instant % int64(nanosPerSecond)
		if t.HasStart {
			t.Start -= t.Start % int64(nanosPerSecond)
		}
		if t.HasEnd {
			t.End -= t.End % int64(nanosPerSecond)
		}
	case PrecisionDay:
		t.Instant -= t.Instant % int64(nanosPerDay)
		if t.HasStart {
			t.Start -= t.Start % int64(nanosPerDay)
		}
		if t.HasEnd {
			t.End -= t.End % int64(nanosPerDay)
		}
	}
}

const (
	nanosPerSecond = int64(1_000_000_000)
	nanosPerDay    = int64(24 * 60 * 60 * 1_000_000_000)
)
