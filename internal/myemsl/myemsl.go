package myemsl

import (
	"time"

	"github.com/PNNL-Comp-Mass-Spec/DMS-Capture-Task-Manager-sub010/internal/version"
	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
)

const (
	HeaderUserAgent = "User-Agent"
)

// Client talks to the MyEMSL metadata and ingest-status endpoints for
// a single archive instance. It queries state only; uploads are owned
// by the capture pipeline.
type Client struct {
	client   *req.Client
	baseURL  string
	certPath string
}

// New creates a MyEMSL client rooted at baseURL. certPath points at
// the PEM certificate required before any metadata query.
func New(baseURL, certPath string) *Client {
	client := req.C().
		SetBaseURL(baseURL).
		SetTimeout(2 * time.Minute).
		SetCommonRetryCount(3).
		SetCommonRetryFixedInterval(1 * time.Second).
		SetCommonHeader(HeaderUserAgent, "ArchiveVerify/"+version.Version).
		SetCommonErrorResult(&APIError{}).
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal)

	return &Client{
		client:   client,
		baseURL:  baseURL,
		certPath: certPath,
	}
}

// BaseURL returns the archive endpoint this client is bound to.
func (c *Client) BaseURL() string {
	return c.baseURL
}
