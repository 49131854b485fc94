package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestYearQuarter(t *testing.T) {
	tests := []struct {
		month time.Month
		want  string
	}{
		{time.January, "2023_1"},
		{time.March, "2023_1"},
		{time.April, "2023_2"},
		{time.August, "2023_3"},
		{time.December, "2023_4"},
	}
	for _, tc := range tests {
		created := time.Date(2023, tc.month, 15, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, tc.want, YearQuarter(created))
	}
}

func TestCanonicalPath(t *testing.T) {
	got := CanonicalPath("/archive/dms", "VOrbi05", "2023_3", "QC/index.html")
	assert.Equal(t, "/archive/dms/VOrbi05/2023_3/QC/index.html", got)
}

func TestFilePath(t *testing.T) {
	got := FilePath("/ledgers", "VOrbi05", "2023_3", "DS1")
	assert.Equal(t, filepath.Join("/ledgers", "VOrbi05", "2023_3", "results.DS1"), got)
}
