package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

// maxErrorBody bounds how much of a failed response is kept for the error message.
const maxErrorBody = 1024

// Request describes one part PUT.
type Request struct {
	// URL is the presigned part URL
	URL string

	// Body is read at [Offset, Offset+Size) on every attempt
	Body   io.ReaderAt
	Offset int64
	Size   int64

	// Header is set on the request verbatim
	Header map[string]string
}

// Response is the outcome of a successful PUT.
type Response struct {
	// ETag is the entity tag without surrounding quotes
	ETag       string
	StatusCode int

	// Attempts is the number of requests sent, including the successful one
	Attempts int
}

// Transport performs part PUTs with retries.
// It is safe for concurrent use.
type Transport struct {
	client *http.Client
	policy uploadtypes.RetryPolicy
	logger *slog.Logger
}

// New creates a Transport. A nil client uses http.DefaultClient and a nil
// logger discards output.
func New(client *http.Client, policy uploadtypes.RetryPolicy, logger *slog.Logger) *Transport {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Transport{
		client: client,
		policy: normalizePolicy(policy),
		logger: logger,
	}
}

// Put sends req until it succeeds, fails permanently or runs out of attempts.
// progress may be invoked from a goroutine owned by the HTTP client and
// restarts from zero on each attempt.
func (t *Transport) Put(ctx context.Context, req *Request, progress ProgressFunc) (*Response, error) {
	if req == nil || req.Body == nil || req.URL == "" || req.Size <= 0 {
		return nil, fmt.Errorf("%w: incomplete part request", errors.ErrInvalidInput)
	}

	var (
		res      *Response
		attempts int
	)
	operation := func() error {
		attempts++
		r, err := t.do(ctx, req, progress)
		if err != nil {
			return err
		}
		res = r
		return nil
	}
	notify := func(err error, wait time.Duration) {
		t.logger.Debug("retrying part upload",
			"attempt", attempts,
			"wait", wait,
			"error", err)
	}

	b := backoff.WithContext(newBackOff(t.policy), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return nil, fmt.Errorf("after %d attempt(s): %w", attempts, err)
	}

	res.Attempts = attempts
	return res, nil
}

// do performs a single attempt. Errors that must not be retried are wrapped
// with backoff.Permanent.
func (t *Transport) do(ctx context.Context, req *Request, progress ProgressFunc) (*Response, error) {
	body := newProgressReader(io.NewSectionReader(req.Body, req.Offset, req.Size), req.Size, progress)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, req.URL, body)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: %w", errors.ErrInvalidInput, err))
	}
	httpReq.ContentLength = req.Size
	for k, v := range req.Header {
		switch http.CanonicalHeaderKey(k) {
		case "Host", "Content-Length":
			continue
		}
		httpReq.Header.Set(k, v)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		se := &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(snippet)),
		}
		if !se.Retryable() {
			return nil, backoff.Permanent(se)
		}
		return nil, se
	}

	etag := strings.Trim(resp.Header.Get("ETag"), "\"")
	if etag == "" {
		return nil, backoff.Permanent(errors.ErrMissingETag)
	}

	return &Response{ETag: etag, StatusCode: resp.StatusCode}, nil
}
