package ledger

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// DefaultRemoteRoot is the archive-side prefix under which every
// instrument's datasets live.
const DefaultRemoteRoot = "/archive/dms"

// YearQuarter buckets a dataset creation time into the archive's
// year-quarter directory convention, e.g. "2023_3".
func YearQuarter(created time.Time) string {
	quarter := (int(created.Month())-1)/3 + 1
	return fmt.Sprintf("%d_%d", created.Year(), quarter)
}

// CanonicalPath builds the ledger key for a dataset-relative path:
// remoteRoot/instrument/yearQuarter/relPath, forward slashes
// throughout. This is the archive's namespace, not the dataset's.
func CanonicalPath(remoteRoot, instrument, yearQuarter, relPath string) string {
	relPath = strings.ReplaceAll(relPath, `\`, "/")
	return remoteRoot + "/" + instrument + "/" + yearQuarter + "/" + relPath
}

// FileName is the per-dataset ledger file name.
func FileName(datasetName string) string {
	return "results." + datasetName
}

// FilePath locates a dataset's ledger under a ledger root. The backup
// root mirrors the same instrument/yearQuarter layout.
func FilePath(root, instrument, yearQuarter, datasetName string) string {
	return filepath.Join(root, instrument, yearQuarter, FileName(datasetName))
}
