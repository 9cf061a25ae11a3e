// Package pipeline orchestrates a full analysis run: enumerate raw
// activity files, ingest them into one consolidated dataset, compute the
// training-cycle summary, and write the output artifacts.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/lucasjlepore/traincycle"
	"github.com/lucasjlepore/traincycle/export"
	"github.com/lucasjlepore/traincycle/ingest"
)

// Run executes the pipeline over files and directories on disk.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if len(opts.InputPaths) == 0 {
		return nil, fmt.Errorf("at least one input path is required")
	}

	files, err := collectInputs(opts.InputPaths)
	if err != nil {
		return nil, err
	}
	return RunFiles(ctx, files, opts)
}

// RunFiles executes the pipeline over in-memory raw files, the contract
// with the upload/extraction collaborator. A bad zone configuration is
// fatal; per-file failures are reported in diagnostics and never abort
// the batch.
func RunFiles(ctx context.Context, files []ingest.RawFile, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "csv"
	}
	if format != "parquet" && format != "csv" {
		return nil, fmt.Errorf("unsupported format %q (expected parquet|csv)", format)
	}

	cfg := traincycle.ZoneConfig{
		Boundaries:         opts.ZoneBoundaries,
		LastSampleInterval: opts.LastSampleInterval,
	}
	// Fail before any parsing work: no meaningful summary can come out of
	// a bad zone configuration.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := ensureOutputDir(opts.OutDir, opts.Overwrite); err != nil {
		return nil, err
	}

	logger.Info("starting analysis run",
		zap.Int("files", len(files)),
		zap.Ints("zone_boundaries", opts.ZoneBoundaries))

	ds, err := ingest.Ingest(ctx, files, ingest.Options{
		Parallelism: opts.Parallelism,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("ingest batch: %w", err)
	}

	summary, err := traincycle.Analyze(ds, cfg)
	if err != nil {
		return nil, fmt.Errorf("analyze dataset: %w", err)
	}

	summaryPath := filepath.Join(opts.OutDir, "summary.json")
	if err := writeJSON(summaryPath, summary); err != nil {
		return nil, fmt.Errorf("write summary.json: %w", err)
	}

	activitiesPath := filepath.Join(opts.OutDir, "activities."+format)
	switch format {
	case "csv":
		err = export.WriteActivitiesCSV(activitiesPath, summary.Activities)
	case "parquet":
		err = export.WriteActivitiesParquet(activitiesPath, summary.Activities)
	}
	if err != nil {
		return nil, fmt.Errorf("write activities table: %w", err)
	}

	zonesPath := filepath.Join(opts.OutDir, "zones.csv")
	if err := export.WriteZonesCSV(zonesPath, summary.Zones); err != nil {
		return nil, fmt.Errorf("write zones table: %w", err)
	}

	result := &Result{
		OutputDir:      opts.OutDir,
		SummaryPath:    summaryPath,
		ActivitiesPath: activitiesPath,
		ZonesPath:      zonesPath,
		ActivityCount:  ds.Len(),
		SkippedCount:   len(ds.Failures),
	}

	// Every skipped file is accounted for in the run output.
	if len(ds.Failures) > 0 {
		result.DiagnosticsPath = filepath.Join(opts.OutDir, "diagnostics.json")
		if err := writeJSON(result.DiagnosticsPath, ds.Failures); err != nil {
			return nil, fmt.Errorf("write diagnostics.json: %w", err)
		}
	}

	logger.Info("analysis run complete",
		zap.Int("activities", result.ActivityCount),
		zap.Int("skipped", result.SkippedCount),
		zap.String("output_dir", result.OutputDir))
	return result, nil
}

func collectInputs(paths []string) ([]ingest.RawFile, error) {
	var names []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat input: %w", err)
		}
		if !info.IsDir() {
			names = append(names, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read input directory: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if hasActivityExt(e.Name()) {
				names = append(names, filepath.Join(p, e.Name()))
			}
		}
	}

	files := make([]ingest.RawFile, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read activity file: %w", err)
		}
		files = append(files, ingest.RawFile{Name: filepath.Base(name), Data: data})
	}
	return files, nil
}

func hasActivityExt(name string) bool {
	lower := strings.ToLower(strings.TrimSuffix(name, ".gz"))
	switch filepath.Ext(lower) {
	case ".fit", ".gpx":
		return true
	}
	return false
}

func ensureOutputDir(path string, overwrite bool) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read output directory: %w", err)
	}
	if len(entries) > 0 && !overwrite {
		return fmt.Errorf("output directory is not empty: %s (set Overwrite to allow)", path)
	}
	return nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
