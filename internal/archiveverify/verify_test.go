package archiveverify

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/archiveverify/config"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/dataset"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/ledger"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/myemsl"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/passlog"
	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/utils"
)

type fakeArchive struct {
	certErr   error
	status    myemsl.IngestStatus
	statusErr error
	files     []myemsl.RemoteFile
	filesErr  error
}

func (f *fakeArchive) CheckCertificate() error { return f.certErr }

func (f *fakeArchive) GetIngestStatus(ctx context.Context, datasetID int64) (*myemsl.IngestStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	s := f.status
	return &s, nil
}

func (f *fakeArchive) FindFiles(ctx context.Context, datasetID int64, subdirFilter string) ([]myemsl.RemoteFile, error) {
	if f.filesErr != nil {
		return nil, f.filesErr
	}
	return f.files, nil
}

type fixture struct {
	cfg      *config.Config
	archive  *fakeArchive
	verifier *Verifier
	task     *Task
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tmp := t.TempDir()

	cfg := &config.Config{
		ArchiveURL:   "http://archive.test",
		LedgerRoot:   filepath.Join(tmp, "ledgers"),
		BackupRoot:   filepath.Join(tmp, "ledger-backup"),
		TransferRoot: filepath.Join(tmp, "transfer"),
		SourceRoot:   filepath.Join(tmp, "source"),
		RemoteRoot:   ledger.DefaultRemoteRoot,
	}

	archive := &fakeArchive{
		status: myemsl.IngestStatus{Complete: true},
	}
	resolver := dataset.NewResolver(cfg.TransferRoot, cfg.SourceRoot, nil)

	return &fixture{
		cfg:      cfg,
		archive:  archive,
		verifier: New(cfg, archive, resolver, nil),
		task: &Task{
			Dataset:    "DS1",
			DatasetID:  42,
			Instrument: "VOrbi05",
			Created:    time.Date(2023, 8, 14, 0, 0, 0, 0, time.UTC),
		},
	}
}

func (f *fixture) writeManifest(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(f.cfg.TransferRoot, "DS1", dataset.ManifestFileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func (f *fixture) ledgerPath() string {
	return ledger.FilePath(f.cfg.LedgerRoot, "VOrbi05", "2023_3", "DS1")
}

const oneFileManifest = `[
	{"destination_table": "file", "valid": true, "sha1_hash": "abc123", "subdir": "data", "file_name": "Data.raw", "size_bytes": 1024}
]`

func TestRun_CleanMatch(t *testing.T) {
	f := newFixture(t)
	f.writeManifest(t, oneFileManifest)
	f.archive.files = []myemsl.RemoteFile{
		{FileID: "9", Filename: "Data.raw", HashSum: "abc123", TransactionID: 1},
	}

	result := f.verifier.Run(context.Background(), f.task)

	assert.Equal(t, Success, result.Disposition)
	require.NotNil(t, result.Outcome)
	assert.Equal(t, 1, result.Outcome.MatchCount)
	assert.Equal(t, 0, result.Outcome.MismatchCount)
	assert.Equal(t, int64(1), result.Outcome.ChosenTransactionID)
	assert.True(t, result.Outcome.LedgerChanged)

	// Ledger holds the canonical-path entry with hash and remote id.
	led, err := ledger.Load(f.ledgerPath())
	require.NoError(t, err)
	require.Equal(t, 1, led.Len())
	e, ok := led.Get("/archive/dms/VOrbi05/2023_3/Data.raw")
	require.True(t, ok)
	assert.Equal(t, "abc123", e.HashCode)
	assert.Equal(t, "9", e.RemoteFileID)

	// Backup mirrors the primary layout.
	backup := ledger.FilePath(f.cfg.BackupRoot, "VOrbi05", "2023_3", "DS1")
	assert.True(t, utils.FileExists(backup))

	// Staging manifest and its directory are cleaned up.
	assert.False(t, utils.FileExists(filepath.Join(f.cfg.TransferRoot, "DS1", dataset.ManifestFileName)))
	assert.False(t, utils.DirExists(filepath.Join(f.cfg.TransferRoot, "DS1")))
}

func TestRun_HashDrift(t *testing.T) {
	f := newFixture(t)
	f.writeManifest(t, oneFileManifest)
	f.archive.files = []myemsl.RemoteFile{
		{FileID: "9", Filename: "Data.raw", HashSum: "zzz999", TransactionID: 1},
	}

	result := f.verifier.Run(context.Background(), f.task)

	assert.Equal(t, Failed, result.Disposition)
	assert.False(t, result.AllowRetry, "content mismatch reproduces identically; retry is pointless")
	assert.False(t, utils.FileExists(f.ledgerPath()), "ledger must stay untouched on mismatch")
}

func TestRun_MissingFile(t *testing.T) {
	f := newFixture(t)
	f.writeManifest(t, `[
		{"destination_table": "file", "valid": true, "sha1_hash": "abc123", "subdir": "data", "file_name": "Data.raw", "size_bytes": 1024},
		{"destination_table": "file", "valid": true, "sha1_hash": "def456", "subdir": "data/QC", "file_name": "index.html", "size_bytes": 64}
	]`)
	f.archive.files = []myemsl.RemoteFile{
		{FileID: "9", Filename: "Data.raw", HashSum: "abc123", TransactionID: 1},
	}

	result := f.verifier.Run(context.Background(), f.task)

	assert.Equal(t, Failed, result.Disposition)
	assert.False(t, result.AllowRetry)
	require.NotNil(t, result.Outcome)
	assert.Equal(t, 1, result.Outcome.MatchCount)
	assert.Equal(t, 1, result.Outcome.MismatchCount)
}

func TestRun_RerunIsNoOp(t *testing.T) {
	f := newFixture(t)

	// No manifest: both passes rebuild the expected set from the local
	// source tree, so the second pass sees identical state.
	raw := []byte("raw instrument data")
	srcPath := filepath.Join(f.cfg.SourceRoot, "DS1", "Data.raw")
	require.NoError(t, os.MkdirAll(filepath.Dir(srcPath), 0o755))
	require.NoError(t, os.WriteFile(srcPath, raw, 0o644))

	hash, err := utils.FileHash(srcPath)
	require.NoError(t, err)
	f.archive.files = []myemsl.RemoteFile{
		{FileID: "9", Filename: "Data.raw", HashSum: hash, TransactionID: 3},
	}

	first := f.verifier.Run(context.Background(), f.task)
	require.Equal(t, Success, first.Disposition)
	assert.True(t, first.Outcome.LedgerChanged)

	before, err := os.ReadFile(f.ledgerPath())
	require.NoError(t, err)

	second := f.verifier.Run(context.Background(), f.task)
	require.Equal(t, Success, second.Disposition)
	assert.False(t, second.Outcome.LedgerChanged, "unchanged pass must not rewrite the ledger")

	_, err = os.Stat(f.ledgerPath() + ".new")
	assert.True(t, os.IsNotExist(err), "no temp file on a no-op pass")

	after, err := os.ReadFile(f.ledgerPath())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_IngestStates(t *testing.T) {
	t.Run("not complete", func(t *testing.T) {
		f := newFixture(t)
		f.archive.status = myemsl.IngestStatus{Complete: false}
		result := f.verifier.Run(context.Background(), f.task)
		assert.Equal(t, NotReady, result.Disposition)
	})

	t.Run("transient failure", func(t *testing.T) {
		f := newFixture(t)
		f.archive.status = myemsl.IngestStatus{Failed: true, Message: "node restarting"}
		result := f.verifier.Run(context.Background(), f.task)
		assert.Equal(t, NotReady, result.Disposition)
	})

	t.Run("permanent failure", func(t *testing.T) {
		f := newFixture(t)
		f.archive.status = myemsl.IngestStatus{Failed: true, Permanent: true, Message: "rejected"}
		result := f.verifier.Run(context.Background(), f.task)
		assert.Equal(t, Failed, result.Disposition)
		assert.False(t, result.AllowRetry)
	})

	t.Run("status unavailable", func(t *testing.T) {
		f := newFixture(t)
		f.archive.statusErr = myemsl.ErrRemoteUnavailable
		result := f.verifier.Run(context.Background(), f.task)
		assert.Equal(t, NotReady, result.Disposition)
	})
}

func TestRun_CertificateMissing(t *testing.T) {
	f := newFixture(t)
	f.archive.certErr = myemsl.ErrNoCertificate

	result := f.verifier.Run(context.Background(), f.task)
	assert.Equal(t, NotReady, result.Disposition)
}

func TestRun_ZeroRemoteFiles(t *testing.T) {
	// Zero files may just be search-index lag; transient, not failure.
	f := newFixture(t)
	f.writeManifest(t, oneFileManifest)
	f.archive.files = nil

	result := f.verifier.Run(context.Background(), f.task)
	assert.Equal(t, NotReady, result.Disposition)
}

func TestRun_RemoteQueryFailure(t *testing.T) {
	f := newFixture(t)
	f.archive.filesErr = myemsl.ErrRemoteUnavailable

	result := f.verifier.Run(context.Background(), f.task)
	assert.Equal(t, NotReady, result.Disposition)
}

func TestRun_ResolverNotConfigured(t *testing.T) {
	f := newFixture(t)
	f.archive.files = []myemsl.RemoteFile{
		{FileID: "9", Filename: "Data.raw", HashSum: "abc123", TransactionID: 1},
	}
	f.verifier = New(f.cfg, f.archive, dataset.NewResolver("", "", nil), nil)

	result := f.verifier.Run(context.Background(), f.task)
	assert.Equal(t, Failed, result.Disposition)
	assert.False(t, result.AllowRetry)
}

func TestRun_NoLocalFiles(t *testing.T) {
	f := newFixture(t)
	f.archive.files = []myemsl.RemoteFile{
		{FileID: "9", Filename: "Data.raw", HashSum: "abc123", TransactionID: 1},
	}
	// No manifest and no source directory for the dataset.

	result := f.verifier.Run(context.Background(), f.task)
	assert.Equal(t, Failed, result.Disposition)
	assert.False(t, result.AllowRetry)
}

func TestRun_LedgerWriteFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.writeManifest(t, oneFileManifest)
	f.archive.files = []myemsl.RemoteFile{
		{FileID: "9", Filename: "Data.raw", HashSum: "abc123", TransactionID: 1},
	}

	// Make the ledger root unusable: a file where a directory must go.
	require.NoError(t, os.WriteFile(f.cfg.LedgerRoot, []byte("in the way"), 0o644))

	result := f.verifier.Run(context.Background(), f.task)
	assert.Equal(t, NotReady, result.Disposition, "verification held, only recording failed; safe to retry")
}

func TestRun_MissingInstrumentFails(t *testing.T) {
	f := newFixture(t)
	f.task.Instrument = ""

	result := f.verifier.Run(context.Background(), f.task)
	assert.Equal(t, Failed, result.Disposition)
	assert.False(t, result.AllowRetry)
}

func TestRun_RecordsPassHistory(t *testing.T) {
	f := newFixture(t)
	f.writeManifest(t, oneFileManifest)
	f.archive.files = []myemsl.RemoteFile{
		{FileID: "9", Filename: "Data.raw", HashSum: "abc123", TransactionID: 1},
	}

	journal, err := passlog.Open(filepath.Join(t.TempDir(), "passes.db"))
	require.NoError(t, err)
	defer journal.Close()

	f.verifier = New(f.cfg, f.archive, dataset.NewResolver(f.cfg.TransferRoot, f.cfg.SourceRoot, nil), journal)
	result := f.verifier.Run(context.Background(), f.task)
	require.Equal(t, Success, result.Disposition)

	history, err := journal.History("DS1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, result.PassID, history[0].PassID)
	assert.Equal(t, string(Success), history[0].Disposition)
	assert.Equal(t, 1, history[0].MatchCount)
	assert.Equal(t, int64(1), history[0].TransactionID)
}
