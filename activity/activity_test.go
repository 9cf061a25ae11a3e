package activity

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testSamples(start time.Time, count int) []Sample {
	out := make([]Sample, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, Sample{
			Time:     start.Add(time.Duration(i) * time.Minute),
			Distance: float64(i) * 100,
		})
	}
	return out
}

func TestNewSortsSamplesAndDerivesFields(t *testing.T) {
	start := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	samples := testSamples(start, 5)
	// Shuffle deterministically; New must restore timestamp order.
	samples[0], samples[3] = samples[3], samples[0]

	act, err := New(FormatFIT, "running", samples, SourceDigest([]byte("file-a")))
	require.NoError(t, err)

	require.Equal(t, start, act.StartTime)
	require.Equal(t, 4*time.Minute.Seconds(), act.DurationS)
	require.Equal(t, 400.0, act.TotalDistance)
	for i := 1; i < len(act.Samples); i++ {
		require.False(t, act.Samples[i].Time.Before(act.Samples[i-1].Time), "samples must be time-ordered")
		require.GreaterOrEqual(t, act.Samples[i].Distance, act.Samples[i-1].Distance, "distance must be non-decreasing")
	}
}

func TestNewIdentityIsDeterministic(t *testing.T) {
	start := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	digest := SourceDigest([]byte("same bytes"))

	a, err := New(FormatGPX, "", testSamples(start, 3), digest)
	require.NoError(t, err)
	b, err := New(FormatGPX, "", testSamples(start, 3), digest)
	require.NoError(t, err)

	require.Equal(t, a.ID, b.ID)

	other, err := New(FormatGPX, "", testSamples(start, 3), SourceDigest([]byte("different bytes")))
	require.NoError(t, err)
	require.NotEqual(t, a.ID, other.ID)
}

func TestNewClampsDistanceRegression(t *testing.T) {
	start := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	samples := testSamples(start, 3)
	samples[2].Distance = 50 // below the 100 of sample 1

	act, err := New(FormatFIT, "", samples, SourceDigest([]byte("x")))
	require.NoError(t, err)
	require.Equal(t, 100.0, act.Samples[2].Distance)
	require.Equal(t, 100.0, act.TotalDistance)
}

func TestNewRejectsEmptyActivity(t *testing.T) {
	_, err := New(FormatFIT, "", nil, SourceDigest([]byte("x")))
	require.ErrorIs(t, err, ErrCorruptFile)
}

func TestDatasetDeduplicatesByIdentity(t *testing.T) {
	start := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	digest := SourceDigest([]byte("dup"))

	first, err := New(FormatFIT, "", testSamples(start, 3), digest)
	require.NoError(t, err)
	second, err := New(FormatFIT, "", testSamples(start, 5), digest)
	require.NoError(t, err)

	ds := NewDataset()
	require.False(t, ds.Put(first))
	require.True(t, ds.Put(second), "same identity must replace, not duplicate")
	require.Equal(t, 1, ds.Len())

	got, ok := ds.Get(first.ID)
	require.True(t, ok)
	require.Len(t, got.Samples, 5, "last write wins")
}

func TestDatasetPreservesInsertionOrder(t *testing.T) {
	ds := NewDataset()
	start := time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 4; i++ {
		act, err := New(FormatGPX, "", testSamples(start.Add(time.Duration(i)*time.Hour), 2),
			SourceDigest([]byte(fmt.Sprintf("file-%d", i))))
		require.NoError(t, err)
		ds.Put(act)
		ids = append(ids, act.ID)
	}
	got := ds.Activities()
	require.Len(t, got, 4)
	for i, act := range got {
		require.Equal(t, ids[i], act.ID)
	}
}

func TestRecordFailureClassifiesReasons(t *testing.T) {
	ds := NewDataset()
	ds.RecordFailure("a.xyz", fmt.Errorf("%w: a.xyz", ErrUnsupportedFormat))
	ds.RecordFailure("b.fit", fmt.Errorf("%w: bad crc", ErrCorruptFile))
	ds.RecordFailure("c.gpx", fmt.Errorf("disk on fire"))

	require.Len(t, ds.Failures, 3)
	require.Equal(t, "unsupported_format", ds.Failures[0].Reason)
	require.Equal(t, "corrupt_file", ds.Failures[1].Reason)
	require.Equal(t, "parse_error", ds.Failures[2].Reason)
}
