package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/errors"
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3upload/uploadtypes"
)

type putOptions struct {
	id             string
	randomID       bool
	abortOnFailure bool
	parallel       int
	metadata       map[string]string
}

func newPutCmd(cfg *Config) *cobra.Command {
	opts := &putOptions{}

	cmd := &cobra.Command{
		Use:   "put FILE...",
		Short: "Upload one or more files",
		Long: "Upload one or more files. Each file is stored under its base name unless --id or\n" +
			"--random-id is given. The composite checksum of every uploaded file is printed.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.id != "" && len(args) > 1 {
				return fmt.Errorf("--id can only be used with a single file")
			}
			return runPut(cmd, cfg, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.id, "id", "", "upload id for a single file")
	f.BoolVar(&opts.randomID, "random-id", false, "store each file under a random id")
	f.BoolVar(&opts.abortOnFailure, "abort-on-failure", false, "abort the backend upload when a file fails")
	f.IntVarP(&opts.parallel, "parallel", "p", 2, "files uploaded at the same time")
	f.StringToStringVarP(&opts.metadata, "metadata", "m", nil, "object metadata as key=value pairs")
	return cmd
}

type putResult struct {
	id  string
	res *uploadtypes.UploadResult
	err error
}

func runPut(cmd *cobra.Command, cfg *Config, opts *putOptions, files []string) error {
	ctx := cmd.Context()
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	cp, err := newControlPlane(ctx, cfg, logger)
	if err != nil {
		return err
	}

	u, err := s3upload.New(cp,
		s3upload.WithMaxPartSize(cfg.PartSize),
		s3upload.WithConcurrency(cfg.Concurrency),
		s3upload.WithMaxAttempts(cfg.MaxAttempts),
		s3upload.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	r := newRenderer(cmd.ErrOrStderr())
	u.SetProgressListener(r.Progress)

	results := make([]putResult, len(files))
	g := errgroup.Group{}
	g.SetLimit(max(opts.parallel, 1))

	for i, file := range files {
		g.Go(func() error {
			id := opts.uploadID(file)
			res, err := uploadOne(ctx, u, cp, opts, id, file)
			results[i] = putResult{id: id, res: res, err: err}

			if err != nil {
				r.Failed(id, err)
			} else {
				r.Done(id, res.Hash)
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	out := cmd.OutOrStdout()
	for _, res := range results {
		if res.err != nil {
			failed++
			continue
		}
		_, _ = fmt.Fprintf(out, "%s  %s\n", res.res.Hash, res.id)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(files))
	}
	return nil
}

func (o *putOptions) uploadID(file string) string {
	switch {
	case o.id != "":
		return o.id
	case o.randomID:
		return uuid.NewString() + "/" + filepath.Base(file)
	}
	return filepath.Base(file)
}

func uploadOne(
	ctx context.Context,
	u *s3upload.Uploader,
	cp uploadtypes.ControlPlane,
	opts *putOptions,
	id, file string,
) (*uploadtypes.UploadResult, error) {
	path, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}

	res, err := u.UploadFile(ctx, id, path, opts.metadata)
	if err == nil || !opts.abortOnFailure {
		return res, err
	}

	aborter, ok := cp.(uploadtypes.Aborter)
	uploadID := errors.UploadIDOf(err)
	if !ok || uploadID == "" {
		return nil, err
	}
	if abortErr := aborter.AbortUpload(context.WithoutCancel(ctx), id, uploadID); abortErr != nil {
		return nil, fmt.Errorf("%w (abort failed: %v)", err, abortErr)
	}
	return nil, err
}
