// Package cmd implements the s3upload command line.
package cmd

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the s3upload command tree.
func NewRootCmd() *cobra.Command {
	cfg := &Config{}

	root := &cobra.Command{
		Use:   "s3upload",
		Short: "Upload files through presigned S3 multipart uploads",
		Long: "s3upload hashes every part of a file, uploads the parts concurrently to presigned URLs\n" +
			"handed out by a control plane and completes the upload with a composite SHA-256 checksum.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd, cfg)
		},
	}
	bindFlags(root, cfg)

	root.AddCommand(newPutCmd(cfg))
	return root
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
