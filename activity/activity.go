// Package activity defines the normalized per-reading and per-activity
// model shared by every pipeline stage, plus the consolidated dataset
// produced by ingestion.
package activity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"
)

// Format identifies the source encoding of an activity file.
type Format string

const (
	FormatFIT Format = "fit"
	FormatGPX Format = "gpx"
)

// Sample is one timestamped reading within an activity. Optional readings
// are pointers; nil means the source never reported the value, which is
// distinct from a reported zero.
type Sample struct {
	Time      time.Time `json:"time"`
	Lat       *float64  `json:"lat,omitempty"`
	Lon       *float64  `json:"lon,omitempty"`
	Elevation *float64  `json:"elevation_m,omitempty"`
	HeartRate *int      `json:"heart_rate_bpm,omitempty"`
	Distance  float64   `json:"distance_m"`
	Speed     *float64  `json:"speed_mps,omitempty"`
}

// Activity is one recorded session with its ordered sample series.
type Activity struct {
	ID            string    `json:"id"`
	Format        Format    `json:"format"`
	Sport         string    `json:"sport,omitempty"`
	StartTime     time.Time `json:"start_time"`
	DurationS     float64   `json:"duration_s"`
	TotalDistance float64   `json:"total_distance_m"`
	Samples       []Sample  `json:"samples"`
}

// SourceDigest returns the hex SHA-256 of a raw activity file. Parsers feed
// it into New so that re-ingesting the same bytes always yields the same
// activity identity.
func SourceDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// New assembles an Activity from parsed samples. Samples are sorted by
// timestamp, duration is the span from first to last sample, and the
// identity is derived from the start time plus the source digest so that
// repeated runs over the same export produce the same ID.
func New(format Format, sport string, samples []Sample, sourceDigest string) (*Activity, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: activity has no samples", ErrCorruptFile)
	}
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time.Before(samples[j].Time)
	})

	// Cumulative distance is non-decreasing within an activity; clamp any
	// source glitch rather than let a later stage observe a regression.
	maxDist := 0.0
	for i := range samples {
		if samples[i].Distance < maxDist {
			samples[i].Distance = maxDist
		} else {
			maxDist = samples[i].Distance
		}
	}

	start := samples[0].Time
	end := samples[len(samples)-1].Time
	a := &Activity{
		ID:            deriveID(start, sourceDigest),
		Format:        format,
		Sport:         sport,
		StartTime:     start,
		DurationS:     end.Sub(start).Seconds(),
		TotalDistance: samples[len(samples)-1].Distance,
		Samples:       samples,
	}
	return a, nil
}

func deriveID(start time.Time, digest string) string {
	short := digest
	if len(short) > 12 {
		short = short[:12]
	}
	return fmt.Sprintf("%s-%s", start.UTC().Format("20060102T150405Z"), short)
}

// FileDiagnostic records one skipped input file and why it was excluded.
type FileDiagnostic struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
	Detail string `json:"detail"`
}

// Dataset is the consolidated set of activities for one analysis run,
// keyed by derived identity. It is built once per run and read-only
// afterwards.
type Dataset struct {
	order      []string
	activities map[string]*Activity

	// Failures lists inputs that were skipped, with reasons. A failed file
	// never aborts consolidation of the rest of the batch.
	Failures []FileDiagnostic
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{activities: make(map[string]*Activity)}
}

// Put inserts an activity, replacing any earlier activity with the same
// identity (last write wins). It reports whether a replacement happened.
func (d *Dataset) Put(a *Activity) bool {
	_, replaced := d.activities[a.ID]
	if !replaced {
		d.order = append(d.order, a.ID)
	}
	d.activities[a.ID] = a
	return replaced
}

// Get looks up an activity by identity.
func (d *Dataset) Get(id string) (*Activity, bool) {
	a, ok := d.activities[id]
	return a, ok
}

// Len reports the number of distinct activities.
func (d *Dataset) Len() int {
	return len(d.activities)
}

// RecordFailure registers a skipped input with a classified reason.
func (d *Dataset) RecordFailure(name string, err error) {
	d.Failures = append(d.Failures, FileDiagnostic{
		Name:   name,
		Reason: FailureReason(err),
		Detail: err.Error(),
	})
}

// FailureReason classifies a per-file error for diagnostics output.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrCorruptFile):
		return "corrupt_file"
	default:
		return "parse_error"
	}
}

// Activities returns the activities in first-insertion order.
func (d *Dataset) Activities() []*Activity {
	out := make([]*Activity, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.activities[id])
	}
	return out
}
