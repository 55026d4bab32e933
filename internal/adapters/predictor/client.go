// Package predictor calls the remote emotion prediction service.
package predictor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/okian/voxmood/internal/domain/analysis"
	"github.com/okian/voxmood/internal/domain/upload"
	"github.com/okian/voxmood/pkg/logger"
)

const (
	predictPath = "/predict"
	fileField   = "file"

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 4 << 20
)

// Analyzer turns an accepted file into an analysis result.
type Analyzer interface {
	Analyze(ctx context.Context, file upload.Candidate) (analysis.Result, error)
}

// Client is the HTTP Analyzer. The endpoint is fixed at construction.
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	log      logger.Logger
}

var _ Analyzer = (*Client)(nil)

// New creates a client posting to baseURL + "/predict".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		endpoint: strings.TrimRight(baseURL, "/") + predictPath,
		http:     &http.Client{},
		log:      logger.Default().Named("predictor"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the resolved prediction URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Analyze uploads file as a single multipart part and decodes the result.
// Errors are *NetworkError, *ServerError or *MalformedResponseError.
func (c *Client) Analyze(ctx context.Context, file upload.Candidate) (analysis.Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, contentType, err := encode(file)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("encode upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	c.log.Debug(ctx, "sending file for analysis",
		logger.String("file", file.Name),
		logger.String("size", humanize.IBytes(uint64(file.Size))),
		logger.String("endpoint", c.endpoint))

	resp, err := c.http.Do(req)
	if err != nil {
		return analysis.Result{}, &NetworkError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return analysis.Result{}, &NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := strings.TrimSpace(string(raw))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return analysis.Result{}, &ServerError{Status: resp.StatusCode, Body: text}
	}

	res, err := analysis.Decode(raw)
	if err != nil {
		return analysis.Result{}, &MalformedResponseError{Err: err}
	}
	if gaps := res.Gaps(); len(gaps) > 0 {
		c.log.Warn(ctx, "prediction payload is inconsistent",
			logger.String("file", file.Name),
			logger.Any("gaps", gaps))
	}
	return res, nil
}

func encode(file upload.Candidate) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(fileField, file.Name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
