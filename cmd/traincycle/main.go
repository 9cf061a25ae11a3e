package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lucasjlepore/traincycle/pipeline"
)

func main() {
	var (
		outDir    = flag.String("out", "", "Output directory")
		zones     = flag.String("zones", "120,140,160,180", "Heart-rate zone boundaries in bpm, comma separated, strictly increasing")
		format    = flag.String("format", "csv", "Per-activity table format: csv|parquet")
		parallel  = flag.Int("parallel", 0, "Max concurrent file parses (0 = default)")
		overwrite = flag.Bool("overwrite", true, "Allow writing into non-empty output directories")
		verbose   = flag.Bool("v", false, "Verbose logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s --out outdir [--zones 120,140,160,180] [--format csv|parquet] input.fit input.gpx dir/...\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if strings.TrimSpace(*outDir) == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	boundaries, err := parseBoundaries(*zones)
	if err != nil {
		fmt.Fprintf(os.Stderr, "traincycle: %v\n", err)
		os.Exit(2)
	}

	logger := zap.NewNop()
	if *verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "traincycle: init logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
	}

	result, err := pipeline.Run(context.Background(), pipeline.Options{
		InputPaths:     flag.Args(),
		OutDir:         *outDir,
		ZoneBoundaries: boundaries,
		Format:         *format,
		Parallelism:    *parallel,
		Overwrite:      *overwrite,
		Logger:         logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "traincycle failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("traincycle complete\n")
	fmt.Printf("Output dir:       %s\n", result.OutputDir)
	fmt.Printf("summary.json:     %s\n", result.SummaryPath)
	fmt.Printf("activities table: %s\n", result.ActivitiesPath)
	fmt.Printf("zones table:      %s\n", result.ZonesPath)
	fmt.Printf("activities:       %d\n", result.ActivityCount)
	if result.SkippedCount > 0 {
		fmt.Printf("skipped files:    %d (see %s)\n", result.SkippedCount, result.DiagnosticsPath)
	}
}

func parseBoundaries(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid zone boundary %q", p)
		}
		out = append(out, v)
	}
	return out, nil
}
