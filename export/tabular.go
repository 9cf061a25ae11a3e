// Package export serializes an analysis summary to flat tabular files:
// one row per activity and one row per heart-rate zone.
package export

import (
	"encoding/csv"
	"math"
	"os"
	"strconv"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/lucasjlepore/traincycle"
)

// WriteActivitiesCSV writes the per-activity table.
func WriteActivitiesCSV(path string, rows []traincycle.ActivitySummary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"id", "format", "sport", "date", "distance_km", "duration_s",
		"pace_sec_per_km", "pace_min_per_km", "avg_hr_bpm", "sample_count",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		row := []string{
			r.ID,
			r.Format,
			r.Sport,
			r.Date,
			formatFloat(r.DistanceKM),
			formatFloat(r.DurationS),
			formatFloatPtr(r.PaceSecPerKM),
			formatFloatPtr(r.PaceMinPerKM),
			formatFloatPtr(r.AvgHeartRate),
			strconv.Itoa(r.SampleCount),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteZonesCSV writes the per-zone time distribution table.
func WriteZonesCSV(path string, zones []traincycle.ZoneSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"zone", "min_bpm", "max_bpm", "seconds", "percent"}); err != nil {
		return err
	}
	for _, z := range zones {
		row := []string{
			z.Zone,
			formatIntPtr(z.MinBPM),
			formatIntPtr(z.MaxBPM),
			formatFloat(z.Seconds),
			formatFloat(z.Percent),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

type activityParquetRow struct {
	ID           string  `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Format       string  `parquet:"name=format, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Sport        string  `parquet:"name=sport, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Date         string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	DistanceKM   float64 `parquet:"name=distance_km, type=DOUBLE"`
	DurationS    float64 `parquet:"name=duration_s, type=DOUBLE"`
	PaceSecPerKM float64 `parquet:"name=pace_sec_per_km, type=DOUBLE"`
	PaceMinPerKM float64 `parquet:"name=pace_min_per_km, type=DOUBLE"`
	AvgHeartRate float64 `parquet:"name=avg_hr_bpm, type=DOUBLE"`
	SampleCount  int64   `parquet:"name=sample_count, type=INT64"`
}

// WriteActivitiesParquet writes the per-activity table as snappy-compressed
// parquet. Absent optional values become NaN.
func WriteActivitiesParquet(path string, rows []traincycle.ActivitySummary) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	pw, err := writer.NewParquetWriter(fw, new(activityParquetRow), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, r := range rows {
		row := activityParquetRow{
			ID:           r.ID,
			Format:       r.Format,
			Sport:        r.Sport,
			Date:         r.Date,
			DistanceKM:   r.DistanceKM,
			DurationS:    r.DurationS,
			PaceSecPerKM: valueOrNaN(r.PaceSecPerKM),
			PaceMinPerKM: valueOrNaN(r.PaceMinPerKM),
			AvgHeartRate: valueOrNaN(r.AvgHeartRate),
			SampleCount:  int64(r.SampleCount),
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func valueOrNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
