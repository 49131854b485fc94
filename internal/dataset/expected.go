package dataset

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dustin/go-humanize"
)

// ExpectedFile is what the upload process claims to have archived for
// one relative path. Rebuilt from scratch every verification pass.
type ExpectedFile struct {
	Hash      string
	SizeBytes int64
}

// Resolver produces the authoritative expected set for a dataset,
// preferring the persisted upload manifest and falling back to a fresh
// local scan with the uploader's own selection rule.
type Resolver struct {
	// TransferRoot holds per-dataset transfer directories with the
	// transient upload manifests.
	TransferRoot string

	// SourceRoot holds the datasets' local source directories, used
	// only when no manifest is usable.
	SourceRoot string

	Ignore *IgnoreList
}

func NewResolver(transferRoot, sourceRoot string, ignore *IgnoreList) *Resolver {
	if ignore == nil {
		ignore = NewIgnoreList()
	}
	return &Resolver{
		TransferRoot: transferRoot,
		SourceRoot:   sourceRoot,
		Ignore:       ignore,
	}
}

// ManifestPath returns where the uploader leaves the transient
// manifest for a dataset.
func (r *Resolver) ManifestPath(datasetName string) string {
	return filepath.Join(r.TransferRoot, datasetName, ManifestFileName)
}

// ResolveExpected returns the map of dataset-relative path to expected
// content hash for one dataset.
func (r *Resolver) ResolveExpected(datasetName string) (map[string]ExpectedFile, error) {
	if datasetName == "" {
		return nil, fmt.Errorf("%w: dataset name", ErrNotConfigured)
	}

	expected, err := r.fromManifest(datasetName)
	if err != nil {
		return nil, err
	}
	if len(expected) > 0 {
		slog.Debug("expected set resolved from upload manifest",
			"dataset", datasetName, "files", len(expected))
		return expected, nil
	}

	slog.Info("upload manifest missing or empty, falling back to local scan",
		"dataset", datasetName)
	return r.fromLocalScan(datasetName)
}

func (r *Resolver) fromManifest(datasetName string) (map[string]ExpectedFile, error) {
	if r.TransferRoot == "" {
		return nil, fmt.Errorf("%w: transfer root", ErrNotConfigured)
	}

	entries, err := ReadManifest(r.ManifestPath(datasetName))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	expected := make(map[string]ExpectedFile)
	var totalBytes int64
	for _, e := range entries {
		if e.DestinationTable != tableFiles || !e.Valid {
			continue
		}
		relPath := e.RelativePath()
		if r.Ignore.ShouldIgnore(relPath, e.SizeBytes) {
			continue
		}
		expected[relPath] = ExpectedFile{Hash: e.Sha1Hash, SizeBytes: e.SizeBytes}
		totalBytes += e.SizeBytes
	}

	if len(expected) > 0 {
		slog.Debug("manifest entries selected",
			"files", len(expected), "size", humanize.Bytes(uint64(totalBytes)))
	}
	return expected, nil
}

func (r *Resolver) fromLocalScan(datasetName string) (map[string]ExpectedFile, error) {
	if r.SourceRoot == "" {
		return nil, fmt.Errorf("%w: source root", ErrNotConfigured)
	}

	dir := filepath.Join(r.SourceRoot, datasetName)
	expected, err := ScanLocal(dir, r.Ignore)
	if err != nil {
		return nil, err
	}
	if len(expected) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoLocalFiles, dir)
	}
	return expected, nil
}
