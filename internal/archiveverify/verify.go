// Package archiveverify sequences one verification pass: confirm the
// archive-side ingest finished, fetch the archive's file records,
// reconcile them against the expected upload set, and fold the
// verified hashes into the dataset's durable ledger.
package archiveverify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/archiveverify/config"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/dataset"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/ledger"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/myemsl"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/passlog"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/reconcile"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/utils"
)

// ArchiveClient is the slice of the MyEMSL client this pass consumes.
type ArchiveClient interface {
	CheckCertificate() error
	GetIngestStatus(ctx context.Context, datasetID int64) (*myemsl.IngestStatus, error)
	FindFiles(ctx context.Context, datasetID int64, subdirFilter string) ([]myemsl.RemoteFile, error)
}

// Task identifies the dataset a single pass verifies.
type Task struct {
	Dataset      string
	DatasetID    int64
	Instrument   string
	Created      time.Time
	SubdirFilter string
}

// Verifier runs verification passes. One pass per dataset at a time;
// the scheduler (or the CLI's dataset lock) enforces that.
type Verifier struct {
	cfg      *config.Config
	archive  ArchiveClient
	resolver *dataset.Resolver
	passes   *passlog.Journal // optional
}

func New(cfg *config.Config, archive ArchiveClient, resolver *dataset.Resolver, passes *passlog.Journal) *Verifier {
	return &Verifier{
		cfg:      cfg,
		archive:  archive,
		resolver: resolver,
		passes:   passes,
	}
}

// Run executes one verification pass for the task. Each step is
// side-effect-free on failure, so the context is only checked between
// steps; a cancelled pass is simply re-run later.
func (v *Verifier) Run(ctx context.Context, task *Task) *Result {
	started := time.Now()
	result := &Result{PassID: uuid.NewString()}
	log := slog.With("pass", result.PassID, "dataset", task.Dataset)

	defer func() {
		v.recordPass(task, result, started)
		log.Info("verification pass finished",
			"disposition", result.Disposition, "message", result.Message,
			"elapsed", time.Since(started).Round(time.Millisecond))
	}()

	if task.Instrument == "" {
		return result.failed("instrument name not configured", false)
	}

	// Credential artifact must exist before any archive query.
	if err := v.archive.CheckCertificate(); err != nil {
		log.Warn("archive certificate unavailable", "error", err)
		return result.notReady(fmt.Sprintf("certificate check: %v", err))
	}

	// Archive-side ingest pipeline must have finished.
	status, err := v.archive.GetIngestStatus(ctx, task.DatasetID)
	if err != nil {
		log.Warn("ingest status unavailable", "error", err)
		return result.notReady(fmt.Sprintf("ingest status: %v", err))
	}
	if status.Failed {
		if status.Permanent {
			return result.failed(fmt.Sprintf("ingest failed permanently: %s", status.Message), false)
		}
		return result.notReady(fmt.Sprintf("ingest failed, will retry: %s", status.Message))
	}
	if !status.Complete {
		return result.notReady("archive ingest not yet complete")
	}
	if ctx.Err() != nil {
		return result.notReady("pass cancelled")
	}

	// Everything the archive tracks for this dataset, all revisions.
	remote, err := v.archive.FindFiles(ctx, task.DatasetID, task.SubdirFilter)
	if err != nil {
		log.Warn("archive file query failed", "error", err)
		return result.notReady(fmt.Sprintf("find files: %v", err))
	}
	if len(remote) == 0 {
		// Could be search-index propagation lag rather than true
		// absence; transient, not corruption.
		return result.notReady("archive reports zero files for dataset")
	}
	if ctx.Err() != nil {
		return result.notReady("pass cancelled")
	}

	expected, err := v.resolver.ResolveExpected(task.Dataset)
	if err != nil {
		switch {
		case errors.Is(err, dataset.ErrNotConfigured):
			return result.failed(err.Error(), false)
		case errors.Is(err, dataset.ErrNoLocalFiles):
			return result.failed(err.Error(), false)
		default:
			return result.notReady(fmt.Sprintf("resolve expected set: %v", err))
		}
	}

	outcome := reconcile.Reconcile(expected, remote)
	result.Outcome = outcome
	log.Info("reconciled expected set against archive",
		"expected", len(expected), "remote", len(remote),
		"matched", outcome.MatchCount, "mismatched", outcome.MismatchCount,
		"transaction", outcome.ChosenTransactionID)

	if outcome.MismatchCount > 0 {
		return result.failed(
			fmt.Sprintf("%d of %d expected files failed verification", outcome.MismatchCount, len(expected)),
			false)
	}
	if outcome.MatchCount == 0 {
		return result.notReady("nothing matched; empty or ambiguous expected set")
	}
	if ctx.Err() != nil {
		return result.notReady("pass cancelled")
	}

	changed, err := v.updateLedger(task, outcome)
	if err != nil {
		// The verification result is still valid; only the durable
		// record failed, so the whole pass retries later.
		log.Warn("ledger update failed", "error", err)
		return result.notReady(fmt.Sprintf("ledger update: %v", err))
	}
	outcome.LedgerChanged = changed

	v.cleanupStaging(task, log)

	return result.success(fmt.Sprintf("%d files verified in transaction %d",
		outcome.MatchCount, outcome.ChosenTransactionID))
}

// updateLedger merges the pass's verified hashes into the dataset's
// ledger and saves only when content actually changed.
func (v *Verifier) updateLedger(task *Task, outcome *reconcile.Outcome) (bool, error) {
	yq := ledger.YearQuarter(task.Created)
	primary := ledger.FilePath(v.cfg.LedgerRoot, task.Instrument, yq, task.Dataset)

	led, err := ledger.Load(primary)
	if err != nil {
		return false, err
	}

	records := make([]ledger.Record, 0, len(outcome.Matched))
	for relPath, rf := range outcome.Matched {
		records = append(records, ledger.Record{
			CanonicalPath: ledger.CanonicalPath(v.cfg.RemoteRoot, task.Instrument, yq, relPath),
			HashCode:      rf.HashSum,
			RemoteFileID:  rf.FileID,
		})
	}

	if !led.Merge(records) {
		slog.Debug("ledger unchanged, skipping write", "path", primary)
		return false, nil
	}

	// Atomic replace once a ledger exists; plain write on first creation.
	if err := led.Save(primary, utils.FileExists(primary)); err != nil {
		return false, err
	}
	slog.Info("ledger saved", "path", primary, "entries", led.Len())

	if v.cfg.BackupRoot != "" {
		backup := ledger.FilePath(v.cfg.BackupRoot, task.Instrument, yq, task.Dataset)
		if err := utils.CopyFile(primary, backup); err != nil {
			slog.Warn("ledger backup copy failed", "path", backup, "error", err)
		}
	}

	return true, nil
}

// cleanupStaging removes the transient upload manifest and its parent
// directory if now empty. Best effort; a leftover manifest is only
// clutter.
func (v *Verifier) cleanupStaging(task *Task, log *slog.Logger) {
	manifestPath := v.resolver.ManifestPath(task.Dataset)
	if !utils.FileExists(manifestPath) {
		return
	}
	if err := os.Remove(manifestPath); err != nil {
		log.Warn("failed to delete upload manifest", "path", manifestPath, "error", err)
		return
	}
	if err := utils.RemoveDirIfEmpty(filepath.Dir(manifestPath)); err != nil {
		log.Warn("failed to remove staging directory", "path", filepath.Dir(manifestPath), "error", err)
	}
}

func (v *Verifier) recordPass(task *Task, result *Result, started time.Time) {
	if v.passes == nil {
		return
	}

	rec := &passlog.PassRecord{
		PassID:      result.PassID,
		Dataset:     task.Dataset,
		Disposition: string(result.Disposition),
		Message:     result.Message,
		StartedAt:   started,
		FinishedAt:  time.Now(),
	}
	if result.Outcome != nil {
		rec.MatchCount = result.Outcome.MatchCount
		rec.MismatchCount = result.Outcome.MismatchCount
		rec.TransactionID = result.Outcome.ChosenTransactionID
	}

	if err := v.passes.Append(rec); err != nil {
		slog.Warn("failed to record pass history", "pass", result.PassID, "error", err)
	}
}
