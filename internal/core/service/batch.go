package service

import "log/slog"

// BatchReport summarises a reactor batch or poller sweep. Errors are keyed by
// order number, or by transaction id when the order could not be loaded.
type BatchReport struct {
	Processed  int                 `json:"processed"`
	Reconciled int                 `json:"reconciled"`
	Skipped    int                 `json:"skipped"`
	Errors     map[string][]string `json:"errors,omitempty"`
}

func newBatchReport() *BatchReport {
	return &BatchReport{Errors: make(map[string][]string)}
}

func (r *BatchReport) add(key string, outcome Outcome, err error) {
	r.Processed++
	switch {
	case err != nil:
		r.Errors[key] = append(r.Errors[key], err.Error())
	case outcome.Reconciled:
		r.Reconciled++
	default:
		r.Skipped++
	}
}

func (r *BatchReport) HasErrors() bool {
	return len(r.Errors) > 0
}

func (r *BatchReport) log(logger *slog.Logger, msg string) {
	if r.HasErrors() {
		logger.Error(msg,
			"processed", r.Processed,
			"reconciled", r.Reconciled,
			"skipped", r.Skipped,
			"errors", r.Errors,
		)
		return
	}
	logger.Info(msg,
		"processed", r.Processed,
		"reconciled", r.Reconciled,
		"skipped", r.Skipped,
	)
}
