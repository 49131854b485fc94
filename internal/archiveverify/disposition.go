package archiveverify

import "github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/reconcile"

// Disposition is the three-way contract returned to the task scheduler.
type Disposition string

const (
	// Success: the archive verifiably holds the dataset and the ledger
	// records it.
	Success Disposition = "SUCCESS"

	// NotReady: nothing is wrong yet, but verification cannot complete
	// now. The scheduler re-invokes later with its own backoff.
	NotReady Disposition = "NOT_READY"

	// Failed: the pass hit a terminal condition. AllowRetry on the
	// result distinguishes retryable failures from do-not-retry ones.
	Failed Disposition = "FAILED"
)

// Result is the outcome of one verification pass.
type Result struct {
	Disposition Disposition

	// AllowRetry is meaningful only for Failed: content mismatches and
	// configuration errors will reproduce identically, so retrying is
	// pointless for those.
	AllowRetry bool

	// Message is a short operator-facing evaluation note.
	Message string

	// Outcome carries reconciliation counts when the pass got that far.
	Outcome *reconcile.Outcome

	// PassID correlates log lines and the pass-history record.
	PassID string
}

func (r *Result) success(msg string) *Result {
	r.Disposition = Success
	r.Message = msg
	return r
}

func (r *Result) notReady(msg string) *Result {
	r.Disposition = NotReady
	r.AllowRetry = true
	r.Message = msg
	return r
}

func (r *Result) failed(msg string, allowRetry bool) *Result {
	r.Disposition = Failed
	r.AllowRetry = allowRetry
	r.Message = msg
	return r
}
