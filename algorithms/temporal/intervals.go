package temporal

const (
	// DefaultIntervalLookahead is how many later onsets each onset is paired with
	DefaultIntervalLookahead = 5

	// DefaultMinInterval and DefaultMaxInterval bound candidate beat periods (180-60 BPM)
	DefaultMinInterval = 0.33
	DefaultMaxInterval = 1.0
)

// IntervalCollector turns onset timestamps into candidate beat periods.
//
// Pairing each onset with several successors (not just the next one) lets a missed
// beat still contribute votes through the longer pairs. The range restriction drops
// periods outside a plausible beat span before they can reach the histogram.
type IntervalCollector struct {
	lookahead   int
	minInterval float64
	maxInterval float64
}

// NewIntervalCollector creates a collector with a lookahead of 5 and a [0.33, 1.0]s range
func NewIntervalCollector() *IntervalCollector {
	return NewIntervalCollectorWithParams(DefaultIntervalLookahead, DefaultMinInterval, DefaultMaxInterval)
}

// NewIntervalCollectorWithParams creates a collector with explicit parameters
func NewIntervalCollectorWithParams(lookahead int, minInterval, maxInterval float64) *IntervalCollector {
	if lookahead <= 0 {
		lookahead = DefaultIntervalLookahead
	}
	if minInterval <= 0 || maxInterval <= minInterval {
		minInterval, maxInterval = DefaultMinInterval, DefaultMaxInterval
	}

	return &IntervalCollector{
		lookahead:   lookahead,
		minInterval: minInterval,
		maxInterval: maxInterval,
	}
}

// Collect returns every accepted onset-pair duration. Duplicates are kept: each one is a vote.
func (ic *IntervalCollector) Collect(onsets []float64) []float64 {
	intervals := []float64{}

	for k := range onsets {
		last := min(k+ic.lookahead, len(onsets)-1)
		for j := k + 1; j <= last; j++ {
			delta := onsets[j] - onsets[k]
			if delta >= ic.minInterval && delta <= ic.maxInterval {
				intervals = append(intervals, delta)
			}
		}
	}

	return intervals
}

// Range returns the accepted interval bounds in seconds
func (ic *IntervalCollector) Range() (minInterval, maxInterval float64) {
	return ic.minInterval, ic.maxInterval
}
