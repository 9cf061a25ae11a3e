package ingest

import (
	"go.uber.org/zap"

	"github.com/lucasjlepore/traincycle/activity"
)

// consolidate assembles parsed activities into one dataset in input
// order. Activities are keyed by derived identity, so re-ingesting the
// same file replaces the earlier entry instead of duplicating it; the
// parsers have already normalized field differences between formats, so
// nothing is re-derived here. Failures are recorded alongside.
func consolidate(files []RawFile, results []parseResult, logger *zap.Logger) *activity.Dataset {
	ds := activity.NewDataset()
	for i, res := range results {
		if res.err != nil {
			ds.RecordFailure(files[i].Name, res.err)
			logger.Warn("skipping activity file",
				zap.String("file", files[i].Name),
				zap.String("reason", activity.FailureReason(res.err)),
				zap.Error(res.err))
			continue
		}
		replaced := ds.Put(res.act)
		logger.Info("ingested activity",
			zap.String("file", files[i].Name),
			zap.String("activity_id", res.act.ID),
			zap.String("format", string(res.act.Format)),
			zap.Int("samples", len(res.act.Samples)),
			zap.Bool("replaced_duplicate", replaced))
	}
	return ds
}
