package traincycle

import (
	"fmt"
	"time"

	"github.com/lucasjlepore/traincycle/activity"
)

const defaultLastSampleInterval = time.Second

// ZoneConfig parametrizes heart-rate zone binning. Boundaries are
// beats-per-minute thresholds in strictly increasing order; k boundaries
// define k+1 zones, with the lowest and highest zones open-ended below the
// first and above the last boundary. The value is read-only and safe to
// share across concurrent analyses.
type ZoneConfig struct {
	Boundaries []int

	// LastSampleInterval is the time credited to the final sample of each
	// activity, which has no following sample to delimit its interval.
	// Zero means one second.
	LastSampleInterval time.Duration
}

// Validate checks the boundary invariants.
func (c ZoneConfig) Validate() error {
	if len(c.Boundaries) < 1 {
		return fmt.Errorf("%w: at least one boundary required", activity.ErrInvalidZoneConfig)
	}
	for i := 1; i < len(c.Boundaries); i++ {
		if c.Boundaries[i] <= c.Boundaries[i-1] {
			return fmt.Errorf("%w: boundaries must be strictly increasing (%d then %d)",
				activity.ErrInvalidZoneConfig, c.Boundaries[i-1], c.Boundaries[i])
		}
	}
	return nil
}

// ZoneCount reports the number of zones the boundaries define.
func (c ZoneConfig) ZoneCount() int {
	return len(c.Boundaries) + 1
}

// ZoneIndex returns the zone containing a heart-rate reading: the number
// of boundaries at or below it.
func (c ZoneConfig) ZoneIndex(hr int) int {
	idx := 0
	for _, b := range c.Boundaries {
		if hr >= b {
			idx++
		}
	}
	return idx
}

func (c ZoneConfig) lastSampleInterval() float64 {
	if c.LastSampleInterval <= 0 {
		return defaultLastSampleInterval.Seconds()
	}
	return c.LastSampleInterval.Seconds()
}

// zoneBounds returns the inclusive lower and exclusive upper bpm bounds
// of a zone; nil marks an open end.
func (c ZoneConfig) zoneBounds(i int) (lo, hi *int) {
	if i > 0 {
		lo = &c.Boundaries[i-1]
	}
	if i < len(c.Boundaries) {
		hi = &c.Boundaries[i]
	}
	return lo, hi
}
