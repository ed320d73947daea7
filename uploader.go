package s3upload

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"golang.org/x/sync/semaphore"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/hasher"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/progress"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/transport"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/internal/validation"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

// Uploader drives multipart uploads against a control plane.
// Its configuration is fixed at construction, so a single Uploader can run
// any number of uploads concurrently.
type Uploader struct {
	cp        uploadtypes.ControlPlane
	cfg       uploadtypes.Config
	transport *transport.Transport
	logger    *slog.Logger
	fs        billy.Filesystem

	// mu guards listener
	mu       sync.RWMutex
	listener uploadtypes.ProgressListener
}

// New creates an Uploader backed by cp.
//
// Configuration errors are reported here rather than at upload time; in
// particular any digest algorithm other than sha256 fails with
// errors.ErrUnsupportedAlgorithm.
//
// Example:
//
//	u, err := s3upload.New(backend,
//	    s3upload.WithConcurrency(8),
//	    s3upload.WithMaxPartSize(64<<20),
//	)
func New(cp uploadtypes.ControlPlane, opts ...uploadtypes.Option) (*Uploader, error) {
	if cp == nil {
		return nil, errors.NewError("new", errors.ErrInvalidInput).WithMessage("control plane is required")
	}

	cfg := uploadtypes.Config{
		Algorithm:   uploadtypes.DefaultAlgorithm,
		MaxPartSize: uploadtypes.DefaultMaxPartSize,
		Concurrency: uploadtypes.DefaultConcurrency,
		Retry: uploadtypes.RetryPolicy{
			MaxAttempts:     uploadtypes.DefaultMaxAttempts,
			InitialInterval: uploadtypes.DefaultInitialInterval,
			MaxInterval:     uploadtypes.DefaultMaxInterval,
			Multiplier:      uploadtypes.DefaultMultiplier,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !hasher.Supported(cfg.Algorithm) {
		return nil, errors.NewError("new", errors.ErrUnsupportedAlgorithm).
			WithMessage(fmt.Sprintf("algorithm %q", cfg.Algorithm))
	}
	if cfg.MaxPartSize <= 0 {
		return nil, errors.NewError("new", errors.ErrInvalidInput).WithMessage("max part size must be positive")
	}
	if cfg.Concurrency <= 0 {
		return nil, errors.NewError("new", errors.ErrInvalidInput).WithMessage("concurrency must be positive")
	}
	if cfg.Retry.MaxAttempts <= 0 {
		return nil, errors.NewError("new", errors.ErrInvalidInput).WithMessage("max attempts must be positive")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Filesystem == nil {
		cfg.Filesystem = osfs.New("/")
	}

	return &Uploader{
		cp:        cp,
		cfg:       cfg,
		transport: transport.New(cfg.HTTPClient, cfg.Retry, cfg.Logger),
		logger:    cfg.Logger,
		fs:        cfg.Filesystem,
	}, nil
}

// SetProgressListener registers the listener that receives progress for
// every upload. A later call replaces it; nil removes it.
func (u *Uploader) SetProgressListener(l uploadtypes.ProgressListener) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.listener = l
}

func (u *Uploader) notify(id string, p float64) {
	u.mu.RLock()
	l := u.listener
	u.mu.RUnlock()
	if l != nil {
		l(id, p)
	}
}

// Config returns a copy of the effective configuration.
func (u *Uploader) Config() uploadtypes.Config {
	return u.cfg
}

// session is the state of a single Upload call.
type session struct {
	id          string
	uploadID    string
	src         *uploadtypes.Source
	contentType string
	tracker     *progress.Tracker
	logger      *slog.Logger

	// inflight counts part transfers that may still read src
	inflight sync.WaitGroup
}

// Upload sends src to the object store as a multipart upload identified by id.
//
// The control plane is asked to start the upload, every part is hashed and
// then PUT concurrently with its checksum, and the control plane is asked to
// complete the upload exactly once after all parts succeeded. Progress is
// reported to the registered listener from 0 to 100.
//
// Upload never aborts the backend upload. On failure the returned error is
// an *errors.Error whose UploadID names the upload to abort, if one was started.
// Part transfers already running when another part fails are left to finish
// on their own, so src must stay readable until they do. Parts still waiting
// for a concurrency slot at that point are never sent.
func (u *Uploader) Upload(
	ctx context.Context,
	id string,
	src *uploadtypes.Source,
	md uploadtypes.Metadata,
) (*uploadtypes.UploadResult, error) {
	res, _, err := u.upload(ctx, id, src, md)
	return res, err
}

func (u *Uploader) upload(
	ctx context.Context,
	id string,
	src *uploadtypes.Source,
	md uploadtypes.Metadata,
) (*uploadtypes.UploadResult, *sync.WaitGroup, error) {
	started := time.Now()

	if err := validateSource(id, src); err != nil {
		return nil, nil, err
	}

	s := &session{
		id:          id,
		src:         src,
		contentType: src.ContentType,
		tracker:     progress.NewTracker(id, u.notify),
		logger:      u.logger.With("id", id),
	}
	if s.contentType == "" {
		s.contentType = uploadtypes.DefaultContentType
	}

	parts, err := u.start(ctx, s, md)
	if err != nil {
		return nil, nil, err
	}

	hashed, err := u.hash(s, parts)
	if err != nil {
		return nil, nil, err
	}

	uploaded, err := u.uploadParts(ctx, s, parts, hashed)
	if err != nil {
		return nil, &s.inflight, err
	}

	if err := u.complete(ctx, s, uploaded, hashed.Hash, md); err != nil {
		return nil, nil, err
	}

	s.tracker.Finish()
	res := &uploadtypes.UploadResult{
		ID:       id,
		UploadID: s.uploadID,
		Hash:     hashed.Hash,
		Size:     src.Size,
		Parts:    uploaded,
		Duration: time.Since(started),
	}
	s.logger.Info("upload complete",
		"upload_id", s.uploadID,
		"parts", len(uploaded),
		"size", src.Size,
		"duration", res.Duration)
	return res, nil, nil
}

func validateSource(id string, src *uploadtypes.Source) error {
	const op = "upload"

	if id == "" {
		return errors.NewError(op, errors.ErrInvalidInput).WithMessage("id is required")
	}
	if src == nil || src.Reader == nil {
		return errors.NewError(op, errors.ErrInvalidInput).WithID(id).WithMessage("source is required")
	}
	if src.Size <= 0 {
		return errors.NewError(op, errors.ErrInvalidInput).
			WithID(id).
			WithMessage(fmt.Sprintf("file size must be positive, got %d", src.Size))
	}
	if err := validation.ValidateContentType(src.ContentType); err != nil {
		return err
	}
	return nil
}

// start asks the control plane for an upload and returns its parts sorted
// by part number.
func (u *Uploader) start(ctx context.Context, s *session, md uploadtypes.Metadata) ([]uploadtypes.PresignedPart, error) {
	const op = "startUpload"

	s.tracker.Checkpoint(progress.Initiating)
	out, err := u.cp.StartUpload(ctx, &uploadtypes.StartUploadInput{
		ID:          s.id,
		MaxPartSize: u.cfg.MaxPartSize,
		FileSize:    s.src.Size,
		ContentType: s.contentType,
		Metadata:    md,
	})
	if err != nil {
		return nil, errors.NewError(op, controlPlaneError(err)).WithID(s.id)
	}
	if out == nil || out.UploadID == "" {
		return nil, errors.NewError(op, errors.ErrControlPlane).WithID(s.id).WithMessage("no upload id returned")
	}
	s.uploadID = out.UploadID

	parts := slices.Clone(out.Parts)
	validation.SortParts(parts)
	if err := validation.ValidateParts(parts, s.src.Size); err != nil {
		return nil, withSession(err, s)
	}

	s.tracker.Checkpoint(progress.Initiated)
	s.logger.Debug("upload started", "upload_id", s.uploadID, "parts", len(parts))
	return parts, nil
}

func (u *Uploader) hash(s *session, parts []uploadtypes.PresignedPart) (*uploadtypes.HashedFile, error) {
	descs := make([]uploadtypes.PartDescriptor, len(parts))
	for i, p := range parts {
		descs[i] = p.PartDescriptor
	}

	hashed, err := hasher.HashParts(u.cfg.Algorithm, hasher.FileParts{ID: s.id, Parts: descs, File: s.src.Reader})
	if err != nil {
		return nil, withSession(err, s)
	}

	s.tracker.Checkpoint(progress.Hashed)
	s.logger.Debug("parts hashed", "upload_id", s.uploadID, "hash", hashed.Hash)
	return hashed, nil
}

// partResult carries the outcome of one part transfer back to the join.
type partResult struct {
	index int
	part  uploadtypes.UploadedPart
	err   error
}

// uploadParts transfers every part and returns the uploaded parts in part
// number order. The first failure is returned immediately; transfers already
// running are not cancelled, and their results and progress are discarded.
// Parts that have not started by then are skipped.
func (u *Uploader) uploadParts(
	ctx context.Context,
	s *session,
	parts []uploadtypes.PresignedPart,
	hashed *uploadtypes.HashedFile,
) ([]uploadtypes.UploadedPart, error) {
	sizes := make([]int64, len(parts))
	for i, p := range parts {
		sizes[i] = p.Size()
	}
	s.tracker.BeginTransfer(sizes)

	results := make(chan partResult, len(parts))
	sem := semaphore.NewWeighted(int64(u.cfg.Concurrency))
	var failed atomic.Bool

	for i := range parts {
		s.inflight.Add(1)
		go func(i int) {
			defer s.inflight.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				results <- partResult{index: i, err: u.partError(s, parts[i], err)}
				return
			}
			defer sem.Release(1)

			if failed.Load() {
				results <- partResult{index: i, err: errSkipped}
				return
			}

			part, err := u.uploadPart(ctx, s, i, parts[i], hashed.Parts[i].Hash)
			if err != nil {
				// set before the slot is released so queued parts see it
				failed.Store(true)
			}
			results <- partResult{index: i, part: part, err: err}
		}(i)
	}

	uploaded := make([]uploadtypes.UploadedPart, len(parts))
	for range parts {
		r := <-results
		if r.err != nil {
			failed.Store(true)
			s.tracker.Stop()
			s.logger.Warn("part upload failed",
				"upload_id", s.uploadID,
				"part", parts[r.index].PartNumber,
				"error", r.err)
			return nil, r.err
		}
		uploaded[r.index] = r.part
	}
	return uploaded, nil
}

// errSkipped marks parts not attempted because another part had failed.
// It never reaches the caller since the join returns on the first failure.
var errSkipped = errors.NewError("uploadPart", errors.ErrTransferFailed).WithMessage("skipped after an earlier failure")

func (u *Uploader) uploadPart(
	ctx context.Context,
	s *session,
	index int,
	p uploadtypes.PresignedPart,
	hash string,
) (uploadtypes.UploadedPart, error) {
	header := make(map[string]string, len(p.Headers)+3)
	for k, v := range p.Headers {
		header[http.CanonicalHeaderKey(k)] = v
	}
	header["Content-Type"] = s.contentType
	header[http.CanonicalHeaderKey(uploadtypes.HeaderChecksumAlgorithm)] = uploadtypes.ChecksumAlgorithmSHA256
	header[http.CanonicalHeaderKey(uploadtypes.HeaderChecksumSHA256)] = hash

	resp, err := u.transport.Put(ctx, &transport.Request{
		URL:    p.URL,
		Body:   s.src.Reader,
		Offset: p.Start,
		Size:   p.Size(),
		Header: header,
	}, func(sent, total int64) {
		s.tracker.Update(index, sent, total)
	})
	if err != nil {
		return uploadtypes.UploadedPart{}, u.partError(s, p, err)
	}

	s.tracker.CompletePart(index)
	s.logger.Debug("part uploaded",
		"upload_id", s.uploadID,
		"part", p.PartNumber,
		"size", p.Size(),
		"attempts", resp.Attempts)

	return uploadtypes.UploadedPart{
		PartNumber: p.PartNumber,
		Hash:       hash,
		Size:       p.Size(),
		ETag:       resp.ETag,
	}, nil
}

func (u *Uploader) partError(s *session, p uploadtypes.PresignedPart, err error) error {
	return errors.NewError("uploadPart", fmt.Errorf("%w: %w", errors.ErrTransferFailed, err)).
		WithID(s.id).
		WithUploadID(s.uploadID).
		WithPart(p.PartNumber)
}

func (u *Uploader) complete(
	ctx context.Context,
	s *session,
	parts []uploadtypes.UploadedPart,
	checksum string,
	md uploadtypes.Metadata,
) error {
	err := u.cp.CompleteUpload(ctx, &uploadtypes.CompleteUploadInput{
		ID:       s.id,
		UploadID: s.uploadID,
		Parts:    parts,
		Checksum: checksum,
		Metadata: md,
	})
	if err != nil {
		return errors.NewError("completeUpload", controlPlaneError(err)).
			WithID(s.id).
			WithUploadID(s.uploadID)
	}
	return nil
}

// controlPlaneError marks err as a control plane failure unless it already is.
func controlPlaneError(err error) error {
	if errors.IsControlPlane(err) {
		return err
	}
	return fmt.Errorf("%w: %w", errors.ErrControlPlane, err)
}

// withSession fills in the session identifiers on an *errors.Error, or wraps
// err in one.
func withSession(err error, s *session) error {
	var e *errors.Error
	if !errors.As(err, &e) {
		return errors.NewError("upload", err).WithID(s.id).WithUploadID(s.uploadID)
	}
	if e.ID == "" {
		e.ID = s.id
	}
	e.UploadID = s.uploadID
	return e
}

// UploadFile opens path on the configured filesystem, detects its content
// type and uploads it with Upload.
func (u *Uploader) UploadFile(
	ctx context.Context,
	id, path string,
	md uploadtypes.Metadata,
) (*uploadtypes.UploadResult, error) {
	const op = "uploadFile"

	info, err := u.fs.Stat(path)
	if err != nil {
		return nil, errors.NewError(op, err).WithID(id).WithMessage("stat " + path)
	}
	if info.IsDir() {
		return nil, errors.NewError(op, errors.ErrInvalidInput).WithID(id).WithMessage(path + " is a directory")
	}

	f, err := u.fs.Open(path)
	if err != nil {
		return nil, errors.NewError(op, err).WithID(id).WithMessage("open " + path)
	}

	src := &uploadtypes.Source{
		Name:   path,
		Size:   info.Size(),
		Reader: f,
	}
	src.ContentType = DetectContentType(f, path)

	res, inflight, err := u.upload(ctx, id, src, md)
	if inflight != nil {
		go func() {
			inflight.Wait()
			_ = f.Close()
		}()
	} else {
		_ = f.Close()
	}
	return res, err
}
