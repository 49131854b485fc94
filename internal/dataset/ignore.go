package dataset

import (
	gitignore "github.com/sabhiram/go-gitignore"
)

// defaultIgnoreLines are the name heuristics the uploader applies when
// selecting files; anything matched here was never sent to the archive
// and must not be expected back from it.
var defaultIgnoreLines = []string{
	"upload_manifest.json",
	"x_*",
	"*.tmp",
	"*.lock",
	"Thumbs.db",
	".DS_Store",
	"**/.ipynb_checkpoints/",
	"**/__pycache__/",
}

// IgnoreList reproduces the uploader's file-selection heuristics:
// name globs plus a zero-byte size rule.
type IgnoreList struct {
	ignore *gitignore.GitIgnore
}

func NewIgnoreList(extraLines ...string) *IgnoreList {
	lines := append(append([]string{}, defaultIgnoreLines...), extraLines...)
	return &IgnoreList{ignore: gitignore.CompileIgnoreLines(lines...)}
}

// ShouldIgnore reports whether a file at relPath with the given size
// would have been skipped by the uploader.
func (l *IgnoreList) ShouldIgnore(relPath string, sizeBytes int64) bool {
	if sizeBytes == 0 {
		return true
	}
	return l.ignore.MatchesPath(relPath)
}
