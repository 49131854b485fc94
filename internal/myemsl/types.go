package myemsl

import "path"

// ===================================================================================================

// RemoteFile is one tracked revision of a file in the archive. A
// dataset may hold several revisions per relative path, one per upload
// transaction.
type RemoteFile struct {
	FileID        string `json:"file_id"`
	Filename      string `json:"filename"`
	Subdir        string `json:"subdir"`
	HashSum       string `json:"hashsum"`
	SizeBytes     int64  `json:"size"`
	TransactionID int64  `json:"transaction_id"`
}

// RelativePath returns the dataset-relative path of the file with
// forward slashes.
func (r *RemoteFile) RelativePath() string {
	if r.Subdir == "" {
		return r.Filename
	}
	return path.Join(r.Subdir, r.Filename)
}

// FindFilesResponse is the payload of the file metadata query.
type FindFilesResponse struct {
	Files []RemoteFile `json:"files"`
}

// ===================================================================================================

// IngestStatus reports whether the archive-side ingest pipeline has
// finished processing a dataset's uploads.
type IngestStatus struct {
	Complete  bool   `json:"complete"`
	Failed    bool   `json:"failed"`
	Permanent bool   `json:"permanent"`
	Message   string `json:"message"`
}
