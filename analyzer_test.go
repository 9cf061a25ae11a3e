package traincycle

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lucasjlepore/traincycle/activity"
)

var cycleStart = time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)

func buildActivity(t *testing.T, name string, start time.Time, hrs []*int, stepSeconds int, metersPerStep float64) *activity.Activity {
	t.Helper()
	samples := make([]activity.Sample, 0, len(hrs))
	for i, hr := range hrs {
		samples = append(samples, activity.Sample{
			Time:      start.Add(time.Duration(i*stepSeconds) * time.Second),
			HeartRate: hr,
			Distance:  float64(i) * metersPerStep,
		})
	}
	act, err := activity.New(activity.FormatFIT, "running", samples, activity.SourceDigest([]byte(name)))
	require.NoError(t, err)
	return act
}

func hrPtr(v int) *int { return &v }

func TestZoneConfigValidate(t *testing.T) {
	require.ErrorIs(t, ZoneConfig{}.Validate(), activity.ErrInvalidZoneConfig)
	require.ErrorIs(t, ZoneConfig{Boundaries: []int{120, 120}}.Validate(), activity.ErrInvalidZoneConfig)
	require.ErrorIs(t, ZoneConfig{Boundaries: []int{140, 120}}.Validate(), activity.ErrInvalidZoneConfig)
	require.NoError(t, ZoneConfig{Boundaries: []int{150}}.Validate())
	require.NoError(t, ZoneConfig{Boundaries: []int{120, 140, 160, 180}}.Validate())
}

func TestZoneIndexOpenEndedBuckets(t *testing.T) {
	cfg := ZoneConfig{Boundaries: []int{120, 140, 160, 180}}
	require.Equal(t, 5, cfg.ZoneCount())
	require.Equal(t, 0, cfg.ZoneIndex(110))
	require.Equal(t, 1, cfg.ZoneIndex(120))
	require.Equal(t, 1, cfg.ZoneIndex(139))
	require.Equal(t, 2, cfg.ZoneIndex(150))
	require.Equal(t, 4, cfg.ZoneIndex(180))
	require.Equal(t, 4, cfg.ZoneIndex(250))
}

func TestAnalyzeRejectsInvalidZoneConfig(t *testing.T) {
	_, err := Analyze(activity.NewDataset(), ZoneConfig{Boundaries: []int{160, 150}})
	require.ErrorIs(t, err, activity.ErrInvalidZoneConfig)
}

func TestAnalyzeEmptyDatasetYieldsZeroSummary(t *testing.T) {
	summary, err := Analyze(activity.NewDataset(), ZoneConfig{Boundaries: []int{120, 140, 160, 180}})
	require.NoError(t, err)

	require.Empty(t, summary.Activities)
	require.Equal(t, 0, summary.Totals.Activities)
	require.Len(t, summary.Zones, 5)
	for _, z := range summary.Zones {
		require.Equal(t, 0.0, z.Seconds)
		require.Equal(t, 0.0, z.Percent)
	}
}

// Ten samples alternating 110/150/190 bpm at 60-second spacing: time may
// land only in the zones containing those readings, and the assigned time
// must equal the total elapsed time.
func TestAnalyzeZoneDistributionFixture(t *testing.T) {
	hrs := make([]*int, 10)
	values := []int{110, 150, 190}
	for i := range hrs {
		hrs[i] = hrPtr(values[i%3])
	}
	act := buildActivity(t, "alternating", cycleStart, hrs, 60, 100)

	ds := activity.NewDataset()
	ds.Put(act)

	cfg := ZoneConfig{
		Boundaries:         []int{120, 140, 160, 180},
		LastSampleInterval: 60 * time.Second,
	}
	summary, err := Analyze(ds, cfg)
	require.NoError(t, err)
	require.Len(t, summary.Zones, 5)

	// Zones holding 110, 150, and 190.
	occupied := map[int]bool{0: true, 2: true, 4: true}
	total := 0.0
	for i, z := range summary.Zones {
		if !occupied[i] {
			require.Equal(t, 0.0, z.Seconds, "zone %d must stay empty", i)
		} else {
			require.Greater(t, z.Seconds, 0.0)
		}
		total += z.Seconds
	}
	require.InDelta(t, 600.0, total, 1e-9, "assigned time must equal total elapsed time")

	pctSum := 0.0
	for _, z := range summary.Zones {
		pctSum += z.Percent
	}
	require.InDelta(t, 100.0, pctSum, 1e-9)
}

func TestAnalyzeZoneTimeConservation(t *testing.T) {
	hrs := []*int{hrPtr(100), hrPtr(130), nil, hrPtr(170), hrPtr(200), nil}
	act := buildActivity(t, "gappy", cycleStart, hrs, 30, 50)

	ds := activity.NewDataset()
	ds.Put(act)

	cfg := ZoneConfig{Boundaries: []int{120, 150, 180}, LastSampleInterval: 30 * time.Second}
	summary, err := Analyze(ds, cfg)
	require.NoError(t, err)

	// Samples with heart rate sit at indices 0, 1, 3, 4; each owns the
	// 30 s interval to its successor. The nil samples contribute nothing.
	total := 0.0
	for _, z := range summary.Zones {
		total += z.Seconds
	}
	require.InDelta(t, 120.0, total, 1e-9)
}

func TestAnalyzeActivityWithoutHeartRate(t *testing.T) {
	act := buildActivity(t, "no-hr", cycleStart, []*int{nil, nil, nil}, 60, 500)

	ds := activity.NewDataset()
	ds.Put(act)

	summary, err := Analyze(ds, ZoneConfig{Boundaries: []int{150}})
	require.NoError(t, err)

	require.Len(t, summary.Activities, 1)
	row := summary.Activities[0]
	require.Nil(t, row.AvgHeartRate)
	require.InDelta(t, 1.0, row.DistanceKM, 1e-9)
	require.Equal(t, 120.0, row.DurationS)

	for _, z := range summary.Zones {
		require.Equal(t, 0.0, z.Seconds)
	}
	require.InDelta(t, 1.0, summary.Totals.DistanceKM, 1e-9)
}

func TestAnalyzePaceAndAverageHeartRate(t *testing.T) {
	// 10 samples, 60 s apart, 200 m per step: 9 minutes for 1.8 km.
	hrs := make([]*int, 10)
	for i := range hrs {
		hrs[i] = hrPtr(140 + i) // mean 144.5
	}
	act := buildActivity(t, "steady", cycleStart, hrs, 60, 200)

	ds := activity.NewDataset()
	ds.Put(act)

	summary, err := Analyze(ds, ZoneConfig{Boundaries: []int{150}})
	require.NoError(t, err)
	row := summary.Activities[0]

	require.InDelta(t, 1.8, row.DistanceKM, 1e-9)
	require.Equal(t, 540.0, row.DurationS)
	require.NotNil(t, row.PaceSecPerKM)
	require.InDelta(t, 300.0, *row.PaceSecPerKM, 1e-9)
	require.NotNil(t, row.PaceMinPerKM)
	require.InDelta(t, 5.0, *row.PaceMinPerKM, 1e-9)
	require.NotNil(t, row.AvgHeartRate)
	require.InDelta(t, 144.5, *row.AvgHeartRate, 1e-9)
}

func TestAnalyzeSortsActivitiesByStartTime(t *testing.T) {
	ds := activity.NewDataset()
	for i := 3; i >= 1; i-- {
		ds.Put(buildActivity(t, fmt.Sprintf("run-%d", i), cycleStart.Add(time.Duration(i)*24*time.Hour),
			[]*int{hrPtr(120), hrPtr(125)}, 60, 100))
	}

	summary, err := Analyze(ds, ZoneConfig{Boundaries: []int{150}})
	require.NoError(t, err)
	require.Len(t, summary.Activities, 3)
	for i := 1; i < len(summary.Activities); i++ {
		require.LessOrEqual(t, summary.Activities[i-1].Date, summary.Activities[i].Date)
	}
	require.Equal(t, 3, summary.Totals.Activities)
}

func TestCycleTotalsMarathonDetection(t *testing.T) {
	ds := activity.NewDataset()
	// 43 km in ~4.3 hours.
	long := make([]*int, 44)
	for i := range long {
		long[i] = hrPtr(155)
	}
	ds.Put(buildActivity(t, "marathon", cycleStart, long, 360, 1000))
	ds.Put(buildActivity(t, "short", cycleStart.Add(48*time.Hour), []*int{hrPtr(140), hrPtr(142)}, 60, 500))

	summary, err := Analyze(ds, ZoneConfig{Boundaries: []int{150}})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Totals.Marathons)
	require.NotNil(t, summary.Totals.AvgMarathonPaceMinKM)
	require.NotNil(t, summary.Totals.OverallPaceMinPerKM)
}
