package pipeline

import (
	"time"

	"go.uber.org/zap"
)

// Options configures one analysis run.
type Options struct {
	// InputPaths are activity files or directories to scan for .fit,
	// .gpx, and gzip-compressed variants.
	InputPaths []string

	// OutDir receives the run artifacts.
	OutDir string

	// ZoneBoundaries are heart-rate zone thresholds in bpm, strictly
	// increasing.
	ZoneBoundaries []int

	// LastSampleInterval is the zone time credited to the final sample of
	// each activity. Zero means one second.
	LastSampleInterval time.Duration

	// Format selects the per-activity table encoding: parquet|csv.
	Format string

	// Parallelism bounds concurrent per-file parses.
	Parallelism int

	// Overwrite allows writing into a non-empty output directory.
	Overwrite bool

	Logger *zap.Logger
}

// Result returns generated output paths and run counts.
type Result struct {
	OutputDir       string `json:"output_dir"`
	SummaryPath     string `json:"summary_path"`
	ActivitiesPath  string `json:"activities_path"`
	ZonesPath       string `json:"zones_path"`
	DiagnosticsPath string `json:"diagnostics_path,omitempty"`
	ActivityCount   int    `json:"activity_count"`
	SkippedCount    int    `json:"skipped_count"`
}
