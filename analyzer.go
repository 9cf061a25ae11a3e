// Package traincycle computes training-cycle analytics over a
// consolidated activity dataset: per-activity summaries, heart-rate
// time-in-zone distribution, and cycle totals.
package traincycle

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/lucasjlepore/traincycle/activity"
)

const (
	metersPerKilometer = 1000.0
	secondsPerHour     = 3600.0
	marathonKM         = 42.195
)

// ActivitySummary is one flat per-activity row of the analysis output.
type ActivitySummary struct {
	ID           string   `json:"id"`
	Format       string   `json:"format"`
	Sport        string   `json:"sport,omitempty"`
	Date         string   `json:"date"`
	DistanceKM   float64  `json:"distance_km"`
	DurationS    float64  `json:"duration_s"`
	PaceSecPerKM *float64 `json:"pace_sec_per_km,omitempty"`
	PaceMinPerKM *float64 `json:"pace_min_per_km,omitempty"`
	AvgHeartRate *float64 `json:"avg_hr_bpm,omitempty"`
	SampleCount  int      `json:"sample_count"`
}

// ZoneSummary is the time spent in one heart-rate zone across the cycle.
type ZoneSummary struct {
	Zone    string  `json:"zone"`
	MinBPM  *int    `json:"min_bpm,omitempty"`
	MaxBPM  *int    `json:"max_bpm,omitempty"`
	Seconds float64 `json:"seconds"`
	Percent float64 `json:"percent"`
}

// CycleTotals aggregates the whole training cycle.
type CycleTotals struct {
	Activities            int      `json:"activities"`
	DistanceKM            float64  `json:"distance_km"`
	DurationHours         float64  `json:"duration_h"`
	OverallPaceMinPerKM   *float64 `json:"overall_pace_min_per_km,omitempty"`
	AvgPacePerRunMinPerKM *float64 `json:"avg_pace_per_run_min_per_km,omitempty"`
	Marathons             int      `json:"marathons"`
	AvgMarathonPaceMinKM  *float64 `json:"avg_marathon_pace_min_per_km,omitempty"`
}

// Summary is the immutable output of one analysis run.
type Summary struct {
	Activities []ActivitySummary `json:"activities"`
	Zones      []ZoneSummary     `json:"zones"`
	Totals     CycleTotals       `json:"totals"`
}

// Analyze computes the summary for a consolidated dataset under the given
// zone configuration. An invalid configuration is fatal; an empty dataset
// yields an all-zero summary rather than an error.
func Analyze(ds *activity.Dataset, cfg ZoneConfig) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	acts := ds.Activities()
	sort.SliceStable(acts, func(i, j int) bool {
		if acts[i].StartTime.Equal(acts[j].StartTime) {
			return acts[i].ID < acts[j].ID
		}
		return acts[i].StartTime.Before(acts[j].StartTime)
	})

	summary := &Summary{
		Activities: make([]ActivitySummary, 0, len(acts)),
	}
	zoneSeconds := make([]float64, cfg.ZoneCount())

	for _, act := range acts {
		summary.Activities = append(summary.Activities, summarizeActivity(act))
		accumulateZoneTime(act, cfg, zoneSeconds)
	}

	summary.Zones = zoneSummaries(cfg, zoneSeconds)
	summary.Totals = cycleTotals(summary.Activities)
	return summary, nil
}

func summarizeActivity(act *activity.Activity) ActivitySummary {
	row := ActivitySummary{
		ID:          act.ID,
		Format:      string(act.Format),
		Sport:       act.Sport,
		Date:        act.StartTime.UTC().Format("2006-01-02"),
		DistanceKM:  act.TotalDistance / metersPerKilometer,
		DurationS:   act.DurationS,
		SampleCount: len(act.Samples),
	}

	if row.DistanceKM > 0 {
		pace := row.DurationS / row.DistanceKM
		row.PaceSecPerKM = &pace
		paceMin := pace / 60.0
		row.PaceMinPerKM = &paceMin
	}

	// Average only over samples that actually report heart rate; absent
	// readings are excluded from both numerator and denominator.
	hr := make([]float64, 0, len(act.Samples))
	for _, s := range act.Samples {
		if s.HeartRate != nil {
			hr = append(hr, float64(*s.HeartRate))
		}
	}
	if len(hr) > 0 {
		avg := stat.Mean(hr, nil)
		row.AvgHeartRate = &avg
	}
	return row
}

// accumulateZoneTime attributes, for each sample with a heart-rate
// reading, the interval from that sample to the next one (or the
// configured default for the last sample) to the zone containing the
// reading. Samples without heart rate contribute no time to any zone.
func accumulateZoneTime(act *activity.Activity, cfg ZoneConfig, zoneSeconds []float64) {
	for i, s := range act.Samples {
		if s.HeartRate == nil {
			continue
		}
		dt := cfg.lastSampleInterval()
		if i+1 < len(act.Samples) {
			dt = act.Samples[i+1].Time.Sub(s.Time).Seconds()
			if dt < 0 {
				dt = 0
			}
		}
		zoneSeconds[cfg.ZoneIndex(*s.HeartRate)] += dt
	}
}

func zoneSummaries(cfg ZoneConfig, zoneSeconds []float64) []ZoneSummary {
	total := 0.0
	for _, s := range zoneSeconds {
		total += s
	}

	zones := make([]ZoneSummary, len(zoneSeconds))
	for i := range zoneSeconds {
		lo, hi := cfg.zoneBounds(i)
		z := ZoneSummary{
			Zone:    zoneLabel(i),
			MinBPM:  lo,
			MaxBPM:  hi,
			Seconds: zoneSeconds[i],
		}
		if total > 0 {
			z.Percent = zoneSeconds[i] / total * 100.0
		}
		zones[i] = z
	}
	return zones
}

func zoneLabel(i int) string {
	return fmt.Sprintf("zone_%d", i+1)
}

func cycleTotals(rows []ActivitySummary) CycleTotals {
	totals := CycleTotals{Activities: len(rows)}

	paces := make([]float64, 0, len(rows))
	marathonPaces := make([]float64, 0, 2)
	for _, r := range rows {
		totals.DistanceKM += r.DistanceKM
		totals.DurationHours += r.DurationS / secondsPerHour
		if r.PaceMinPerKM != nil {
			paces = append(paces, *r.PaceMinPerKM)
		}
		if r.DistanceKM >= marathonKM {
			totals.Marathons++
			if r.PaceMinPerKM != nil {
				marathonPaces = append(marathonPaces, *r.PaceMinPerKM)
			}
		}
	}

	if totals.DistanceKM > 0 {
		totalSeconds := totals.DurationHours * secondsPerHour
		overall := totalSeconds / totals.DistanceKM / 60.0
		totals.OverallPaceMinPerKM = &overall
	}
	if len(paces) > 0 {
		avg := stat.Mean(paces, nil)
		totals.AvgPacePerRunMinPerKM = &avg
	}
	if len(marathonPaces) > 0 {
		avg := stat.Mean(marathonPaces, nil)
		totals.AvgMarathonPaceMinKM = &avg
	}
	return totals
}
