package dataset

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/utils"
)

// ScanLocal rebuilds the expected set by walking a dataset's local
// source directory with the uploader's selection rule and hashing each
// candidate. Hashing is spread across workers; the result map is
// unordered so ordering does not matter.
func ScanLocal(dir string, ignore *IgnoreList) (map[string]ExpectedFile, error) {
	if !utils.DirExists(dir) {
		return nil, fmt.Errorf("%w: %s", ErrNoLocalFiles, dir)
	}

	type candidate struct {
		relPath string
		absPath string
		size    int64
	}

	var candidates []candidate
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			// File vanished mid-walk; it was never part of the upload.
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)
		if ignore.ShouldIgnore(relPath, info.Size()) {
			return nil
		}
		candidates = append(candidates, candidate{relPath: relPath, absPath: path, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	expected := make(map[string]ExpectedFile, len(candidates))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for _, c := range candidates {
		g.Go(func() error {
			hash, err := utils.FileHash(c.absPath)
			if err != nil {
				return fmt.Errorf("hash %s: %w", c.absPath, err)
			}
			mu.Lock()
			expected[c.relPath] = ExpectedFile{Hash: hash, SizeBytes: c.size}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return expected, nil
}
