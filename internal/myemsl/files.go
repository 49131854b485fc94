package myemsl

import (
	"context"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	v1Files = "/api/v1/fileinfo/files_for_dataset"
)

// FindFiles returns every retained file revision the archive tracks
// for a dataset. When subdirFilter is non-empty it is applied as a
// doublestar glob against each file's subdirectory.
func (c *Client) FindFiles(ctx context.Context, datasetID int64, subdirFilter string) ([]RemoteFile, error) {
	var result FindFilesResponse
	res, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("dataset_id", strconv.FormatInt(datasetID, 10)).
		SetSuccessResult(&result).
		Get(v1Files)

	if err := handleAPIError(res, err, "find files"); err != nil {
		return nil, err
	}

	if subdirFilter == "" {
		return result.Files, nil
	}

	filtered := make([]RemoteFile, 0, len(result.Files))
	for _, f := range result.Files {
		ok, err := doublestar.Match(subdirFilter, f.Subdir)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered = append(filtered, f)
		}
	}
	return filtered, nil
}
