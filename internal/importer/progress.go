package importer

import "github.com/chattrace/chattrace/internal/logger"

// Stage identifies where an import currently is.
type Stage string

const (
	StageDetecting Stage = "detecting"
	StageParsing   Stage = "parsing"
	StageImporting Stage = "importing"
	StageDone      Stage = "done"
	StageError     Stage = "error"
)

// Progress is purely observational; it is never authoritative for
// control flow.
type Progress struct {
	Stage             Stage
	BytesRead         int64
	TotalBytes        int64
	MessagesProcessed int64
	Message           string
}

// ProgressFunc receives progress events. Callbacks are best-effort:
// whatever they do must never abort the import.
type ProgressFunc func(Progress)

// guard wraps a ProgressFunc so panics are swallowed and logged.
func (f ProgressFunc) guard() ProgressFunc {
	if f == nil {
		return func(Progress) {}
	}
	return func(p Progress) {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn("progress callback panicked", "stage", p.Stage, "panic", r)
			}
		}()
		f(p)
	}
}
