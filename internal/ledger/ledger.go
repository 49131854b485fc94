// Package ledger maintains the durable per-dataset record of verified
// file hashes and archive file ids. The ledger is a line-oriented text
// file on shared storage, merged in place and replaced atomically so
// partially written state is never observed.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/utils"
)

// ErrIO wraps any failure to read or write the ledger file. The
// verification result itself is still valid when this occurs; only the
// durable recording failed, so the whole pass is safe to retry.
var ErrIO = errors.New("ledger: io error")

// Entry is the verified state of one canonical archive path.
type Entry struct {
	// Path is the canonical archive path as first recorded; key
	// comparison is case-insensitive but the original casing is what
	// gets written back.
	Path         string
	HashCode     string
	RemoteFileID string
}

// Record is a freshly verified (path, hash, id) triple to merge in.
type Record struct {
	CanonicalPath string
	HashCode      string
	RemoteFileID  string
}

// Ledger is an in-memory view of one dataset's ledger file.
type Ledger struct {
	entries map[string]Entry // keyed by lowercase canonical path
}

func New() *Ledger {
	return &Ledger{entries: make(map[string]Entry)}
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Get looks up an entry by canonical path, case-insensitively.
func (l *Ledger) Get(canonicalPath string) (Entry, bool) {
	e, ok := l.entries[strings.ToLower(canonicalPath)]
	return e, ok
}

// Load parses a ledger file. Each line is
// "<hash> <canonicalPath>[\t<remoteFileID>]". Lines without a second
// space-separated token are skipped; duplicate keys within the file
// are resolved with the merge policy so a damaged file still loads.
func Load(path string) (*Ledger, error) {
	l := New()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}

		hash, rest, found := strings.Cut(line, " ")
		if !found || rest == "" {
			continue
		}

		canonicalPath, remoteID, _ := strings.Cut(rest, "\t")
		if canonicalPath == "" {
			continue
		}

		l.mergeOne(Record{
			CanonicalPath: canonicalPath,
			HashCode:      hash,
			RemoteFileID:  remoteID,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, path, err)
	}

	return l, nil
}

// Merge folds freshly verified records into the ledger. It reports
// whether anything actually changed; an unchanged ledger must not be
// rewritten. An existing non-empty remote file id is never replaced by
// an empty one: ids only ever become known, not unknown.
func (l *Ledger) Merge(records []Record) bool {
	changed := false
	for _, r := range records {
		if l.mergeOne(r) {
			changed = true
		}
	}
	return changed
}

func (l *Ledger) mergeOne(r Record) bool {
	key := strings.ToLower(r.CanonicalPath)

	existing, ok := l.entries[key]
	if !ok {
		l.entries[key] = Entry{
			Path:         r.CanonicalPath,
			HashCode:     r.HashCode,
			RemoteFileID: r.RemoteFileID,
		}
		return true
	}

	if existing.HashCode == r.HashCode && existing.RemoteFileID == r.RemoteFileID {
		return false
	}

	if r.RemoteFileID == "" && existing.RemoteFileID != "" {
		// Incoming record knows less than we do; keep the known id.
		return false
	}

	existing.HashCode = r.HashCode
	existing.RemoteFileID = r.RemoteFileID
	l.entries[key] = existing
	return true
}

// Save writes the ledger to targetPath, one entry per line in sorted
// key order. With atomic set, the content goes to targetPath+".new"
// first, is flushed to disk, then copied over the target and the temp
// file removed; older readers of the target never see a torn file.
// Non-atomic saves (first-time creation) write the target directly.
// Parent directories are created as needed.
func (l *Ledger) Save(targetPath string, atomic bool) error {
	var sb strings.Builder
	for _, key := range l.sortedKeys() {
		e := l.entries[key]
		sb.WriteString(e.HashCode)
		sb.WriteByte(' ')
		sb.WriteString(e.Path)
		if e.RemoteFileID != "" {
			sb.WriteByte('\t')
			sb.WriteString(e.RemoteFileID)
		}
		sb.WriteByte('\n')
	}
	data := []byte(sb.String())

	if !atomic {
		if err := utils.WriteFileSync(targetPath, data); err != nil {
			return fmt.Errorf("%w: write %s: %w", ErrIO, targetPath, err)
		}
		return nil
	}

	tempPath := targetPath + ".new"
	if err := utils.WriteFileSync(tempPath, data); err != nil {
		return fmt.Errorf("%w: write temp %s: %w", ErrIO, tempPath, err)
	}
	if err := utils.CopyFile(tempPath, targetPath); err != nil {
		return fmt.Errorf("%w: replace %s: %w", ErrIO, targetPath, err)
	}
	if err := os.Remove(tempPath); err != nil {
		return fmt.Errorf("%w: remove temp %s: %w", ErrIO, tempPath, err)
	}
	return nil
}

func (l *Ledger) sortedKeys() []string {
	keys := make([]string, 0, len(l.entries))
	for k := range l.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
