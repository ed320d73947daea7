package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

const maxErrorBody = 4 << 10

// Client talks to an upload service.
type Client struct {
	base   *url.URL
	token  string
	http   *http.Client
	logger *slog.Logger
}

var (
	_ uploadtypes.ControlPlane = (*Client)(nil)
	_ uploadtypes.Aborter      = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.NewError("new", errors.ErrInvalidInput).
			WithMessage(fmt.Sprintf("invalid base url %q", baseURL))
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	c := &Client{
		base:   u,
		http:   &http.Client{},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// StartUpload asks the service to create an upload and presign its parts.
func (c *Client) StartUpload(
	ctx context.Context,
	in *uploadtypes.StartUploadInput,
) (*uploadtypes.StartUploadOutput, error) {
	const op = "startUpload"

	var resp StartResponse
	err := c.do(ctx, http.MethodPost, c.endpoint("v1", "uploads"), &StartRequest{
		ID:          in.ID,
		FileSize:    in.FileSize,
		MaxPartSize: in.MaxPartSize,
		ContentType: in.ContentType,
		Metadata:    in.Metadata,
	}, &resp)
	if err != nil {
		return nil, errors.NewError(op, err).WithID(in.ID)
	}
	if resp.UploadID == "" {
		return nil, errors.NewError(op, errors.ErrInvalidInput).
			WithID(in.ID).
			WithMessage("response has no upload_id")
	}

	c.logger.Debug("upload started", "id", in.ID, "upload_id", resp.UploadID, "parts", len(resp.Parts))
	return &uploadtypes.StartUploadOutput{UploadID: resp.UploadID, Parts: resp.Parts}, nil
}

// CompleteUpload reports every uploaded part to the service.
func (c *Client) CompleteUpload(ctx context.Context, in *uploadtypes.CompleteUploadInput) error {
	err := c.do(ctx, http.MethodPost, c.endpoint("v1", "uploads", in.UploadID, "complete"), &CompleteRequest{
		ID:       in.ID,
		Checksum: in.Checksum,
		Parts:    in.Parts,
		Metadata: in.Metadata,
	}, nil)
	if err != nil {
		return errors.NewError("completeUpload", err).WithID(in.ID).WithUploadID(in.UploadID)
	}
	return nil
}

// AbortUpload asks the service to discard an upload.
func (c *Client) AbortUpload(ctx context.Context, id, uploadID string) error {
	u := c.endpoint("v1", "uploads", uploadID)
	q := u.Query()
	q.Set("id", id)
	u.RawQuery = q.Encode()

	if err := c.do(ctx, http.MethodDelete, u, nil, nil); err != nil {
		return errors.NewError("abortUpload", err).WithID(id).WithUploadID(uploadID)
	}
	return nil
}

func (c *Client) endpoint(segments ...string) *url.URL {
	u := *c.base
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.Path = c.base.Path + "/" + strings.Join(segments, "/")
	u.RawPath = c.base.EscapedPath() + "/" + strings.Join(escaped, "/")
	return &u
}

func (c *Client) do(ctx context.Context, method string, u *url.URL, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError maps a failed response onto the package sentinels.
func statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := strings.TrimSpace(string(raw))
	var er ErrorResponse
	if json.Unmarshal(raw, &er) == nil && er.Error != "" {
		msg = er.Error
	}
	cause := fmt.Errorf("%s: %s", resp.Status, msg)

	var sentinel error
	switch resp.StatusCode {
	case http.StatusNotFound:
		sentinel = errors.ErrUploadNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = errors.ErrAccessDenied
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		sentinel = errors.ErrInvalidInput
	case http.StatusConflict:
		sentinel = errors.ErrChecksumMismatch
	default:
		return cause
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
