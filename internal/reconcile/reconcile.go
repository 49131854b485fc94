// Package reconcile matches the expected file set of a dataset against
// the revisions the archive reports, and selects the consensus upload
// transaction among the matches.
package reconcile

import (
	"log/slog"
	"strings"

	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/dataset"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/myemsl"
)

// MismatchReason classifies why an expected file failed verification.
type MismatchReason string

const (
	ReasonMissing      MismatchReason = "missing from archive"
	ReasonHashMismatch MismatchReason = "hash mismatch"
)

// Mismatch records one expected file the archive could not verify.
type Mismatch struct {
	Path         string
	Reason       MismatchReason
	ExpectedHash string
	ActualHash   string
}

// Outcome accumulates the result of a single reconciliation pass.
// It carries no state across passes.
type Outcome struct {
	MatchCount    int
	MismatchCount int
	Mismatches    []Mismatch

	// ChosenTransactionID is the upload transaction with the most
	// verified-matching files, 0 when nothing matched.
	ChosenTransactionID int64

	// LedgerChanged is set by the caller after the ledger update step.
	LedgerChanged bool

	// Matched maps each verified relative path to the remote record
	// that confirmed it, for the ledger update.
	Matched map[string]myemsl.RemoteFile
}

// Verified reports whether the pass proved the archive holds the
// dataset. An empty expected set never verifies: zero matches means
// nothing was proven, even with zero mismatches.
func (o *Outcome) Verified() bool {
	return o.MatchCount > 0 && o.MismatchCount == 0
}

// normalizePath makes paths comparable across separator and case
// conventions. Manifests written on instrument workstations carry
// backslashes regardless of where this runs.
func normalizePath(p string) string {
	return strings.ToLower(strings.ReplaceAll(p, `\`, "/"))
}

// Reconcile classifies every expected entry against the archive's
// records. All byte-identical revisions of a matched file count toward
// their transaction's tally, so a file re-uploaded in several batches
// strengthens each of them.
func Reconcile(expected map[string]dataset.ExpectedFile, remote []myemsl.RemoteFile) *Outcome {
	outcome := &Outcome{
		Matched: make(map[string]myemsl.RemoteFile),
	}

	byPath := make(map[string][]myemsl.RemoteFile, len(remote))
	for _, rf := range remote {
		key := normalizePath(rf.RelativePath())
		byPath[key] = append(byPath[key], rf)
	}

	tally := newTxnTally()
	for relPath, exp := range expected {
		candidates := byPath[normalizePath(relPath)]
		if len(candidates) == 0 {
			outcome.MismatchCount++
			outcome.Mismatches = append(outcome.Mismatches, Mismatch{
				Path:         relPath,
				Reason:       ReasonMissing,
				ExpectedHash: exp.Hash,
			})
			slog.Warn("expected file missing from archive", "path", relPath)
			continue
		}

		var matching []myemsl.RemoteFile
		for _, c := range candidates {
			if strings.EqualFold(c.HashSum, exp.Hash) {
				matching = append(matching, c)
			}
		}

		if len(matching) == 0 {
			outcome.MismatchCount++
			outcome.Mismatches = append(outcome.Mismatches, Mismatch{
				Path:         relPath,
				Reason:       ReasonHashMismatch,
				ExpectedHash: exp.Hash,
				ActualHash:   candidates[0].HashSum,
			})
			slog.Warn("archive hash does not match expected",
				"path", relPath, "expected", exp.Hash, "actual", candidates[0].HashSum)
			continue
		}

		outcome.MatchCount++
		outcome.Matched[relPath] = matching[0]
		for _, m := range matching {
			tally.add(m.TransactionID)
		}
	}

	outcome.ChosenTransactionID = tally.consensus()
	return outcome
}
