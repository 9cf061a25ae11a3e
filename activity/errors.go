package activity

import "errors"

// Pipeline error taxonomy. Per-file errors (unsupported format, corrupt
// file) are recovered within a batch; configuration errors are fatal to
// the run. Callers classify with errors.Is.
var (
	ErrUnsupportedFormat = errors.New("unsupported activity format")
	ErrCorruptFile       = errors.New("corrupt activity file")
	ErrInvalidZoneConfig = errors.New("invalid zone configuration")
)
