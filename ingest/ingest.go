// Package ingest turns a batch of raw activity files into one
// consolidated dataset: it dispatches each file to the parser for its
// format, runs the per-file parses concurrently, and joins the results
// into a deduplicated dataset with per-file diagnostics.
package ingest

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lucasjlepore/traincycle/activity"
	"github.com/lucasjlepore/traincycle/fitparse"
	"github.com/lucasjlepore/traincycle/gpxparse"
)

const defaultParallelism = 4

// RawFile is one input from the upload/extraction collaborator: a file
// name (used for format hints and diagnostics) and its bytes.
type RawFile struct {
	Name string
	Data []byte
}

// Options configures a batch ingest.
type Options struct {
	// Parallelism bounds concurrent per-file parses; zero means the
	// default.
	Parallelism int

	Logger *zap.Logger
}

type parseResult struct {
	act *activity.Activity
	err error
}

// Ingest parses every file in the batch and consolidates the survivors
// into a dataset. Per-file failures are recorded as diagnostics and never
// abort the batch; the only returned error is context cancellation.
//
// Parses are independent tasks writing to disjoint result slots, gathered
// once the whole group completes, so result order is input order
// regardless of scheduling.
func Ingest(ctx context.Context, files []RawFile, opts Options) (*activity.Dataset, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}

	results := make([]parseResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = parseOne(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return consolidate(files, results, logger), nil
}

func parseOne(f RawFile) parseResult {
	format, data, err := Detect(f.Name, f.Data)
	if err != nil {
		return parseResult{err: err}
	}
	var act *activity.Activity
	switch format {
	case activity.FormatFIT:
		act, err = fitparse.Parse(data)
	case activity.FormatGPX:
		act, err = gpxparse.Parse(data)
	}
	return parseResult{act: act, err: err}
}
