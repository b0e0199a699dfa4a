package gcs

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/packweld/pkg/domain/model"
	"github.com/m-mizutani/packweld/pkg/utils/logging"
	"google.golang.org/api/option"
)

// Client copies weld outputs to a GCS bucket
type Client struct {
	storage *storage.Client
	bucket  string
	prefix  string
}

// NewClient creates a result sink copying weld outputs to a GCS bucket
func NewClient(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*Client, error) {
	if bucket == "" {
		return nil, goerr.New("bucket is required")
	}

	sc, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("bucket", bucket))
	}

	return &Client{
		storage: sc,
		bucket:  bucket,
		prefix:  prefix,
	}, nil
}

func (c *Client) Name() string {
	return "gcs"
}

// Close releases the underlying storage client
func (c *Client) Close() error {
	return c.storage.Close()
}

// ObjectName returns the object key of file for jobID below prefix
func ObjectName(prefix, jobID, file string) string {
	return path.Join(prefix, "jobs", jobID, file)
}

// Publish uploads every output file of result
func (c *Client) Publish(ctx context.Context, result *model.WeldResult) error {
	for _, file := range result.Files {
		if err := c.upload(ctx, filepath.Join(result.WorkDir, file), ObjectName(c.prefix, result.JobID, file)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) upload(ctx context.Context, src, object string) error {
	f, err := os.Open(src)
	if err != nil {
		return goerr.Wrap(err, "failed to open output", goerr.V("path", src))
	}
	defer f.Close()

	w := c.storage.Bucket(c.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/zip"

	n, err := io.Copy(w, f)
	if err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to upload output",
			goerr.V("bucket", c.bucket),
			goerr.V("object", object),
		)
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize upload",
			goerr.V("bucket", c.bucket),
			goerr.V("object", object),
		)
	}

	logging.From(ctx).Debug("Uploaded weld output",
		"bucket", c.bucket,
		"object", object,
		"size_bytes", n,
	)
	return nil
}
