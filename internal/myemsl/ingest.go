package myemsl

import (
	"context"
	"strconv"
)

const (
	v1IngestStatus = "/api/v1/ingest/status"
)

// GetIngestStatus fetches the archive-side ingest pipeline state for a
// dataset's most recent upload.
func (c *Client) GetIngestStatus(ctx context.Context, datasetID int64) (*IngestStatus, error) {
	var result IngestStatus
	res, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("dataset_id", strconv.FormatInt(datasetID, 10)).
		SetSuccessResult(&result).
		Get(v1IngestStatus)

	if err := handleAPIError(res, err, "ingest status"); err != nil {
		return nil, err
	}

	return &result, nil
}
