package dataset

import (
	"os"
	"path"
	"strings"

	"github.com/goccy/go-json"
)

const (
	// ManifestFileName is the transient record the uploader leaves on
	// shared storage next to each dataset's transfer directory.
	ManifestFileName = "upload_manifest.json"

	// tableFiles marks manifest records destined for the archive's file
	// table. Other records (dataset metadata, instrument info) are not
	// files and never archived.
	tableFiles = "file"

	// dataPrefix is the subdirectory convention used by the uploader:
	// every archived file is declared under "data" or "data/<subdir>".
	dataPrefix = "data/"
	dataRoot   = "data"
)

// ManifestEntry is one typed record of the upload manifest.
type ManifestEntry struct {
	DestinationTable string `json:"destination_table"`
	Valid            bool   `json:"valid"`
	Sha1Hash         string `json:"sha1_hash"`
	Subdir           string `json:"subdir"`
	FileName         string `json:"file_name"`
	SizeBytes        int64  `json:"size_bytes"`
}

// RelativePath derives the dataset-relative path for a file entry.
// Subdir "data" maps to the dataset root; "data/<x>" maps to <x>; any
// other subdirectory is used as declared.
func (e *ManifestEntry) RelativePath() string {
	switch {
	case e.Subdir == dataRoot || e.Subdir == "":
		return e.FileName
	case strings.HasPrefix(e.Subdir, dataPrefix):
		return path.Join(strings.TrimPrefix(e.Subdir, dataPrefix), e.FileName)
	default:
		return path.Join(e.Subdir, e.FileName)
	}
}

// ReadManifest loads the upload manifest at manifestPath. A missing or
// empty manifest is not an error; it returns no entries and the caller
// falls back to a local scan.
func ReadManifest(manifestPath string) ([]ManifestEntry, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	var entries []ManifestEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
