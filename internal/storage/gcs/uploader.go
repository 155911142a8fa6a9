// Package gcs uploads finished corpus files to Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/corpus-crawler/internal/crawler"
)

const ndjsonContentType = "application/x-ndjson"

// Config captures the upload destination.
type Config struct {
	Bucket string
	Prefix string
}

// Uploader copies the raw and filtered files of a run into a bucket. It
// implements crawler.RunReporter.
type Uploader struct {
	client *storage.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// New creates a GCS uploader.
func New(client *storage.Client, cfg Config, logger *zap.Logger) (*Uploader, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}, nil
}

// ObjectPath returns the object name for file within the run's folder:
// <prefix>/<job>/<run_id>/[shard_<i>/]<file>.
func (u *Uploader) ObjectPath(summary crawler.RunSummary, file string) string {
	parts := []string{u.prefix, summary.JobName, summary.RunID}
	if summary.ShardID >= 0 {
		parts = append(parts, fmt.Sprintf("shard_%d", summary.ShardID))
	}
	parts = append(parts, filepath.Base(file))
	return strings.TrimPrefix(path.Join(parts...), "/")
}

// Report uploads both corpus files of summary.
func (u *Uploader) Report(ctx context.Context, summary crawler.RunSummary) error {
	for _, file := range []string{summary.RawPagesPath, summary.FilteredDocsPath} {
		if file == "" {
			continue
		}
		uri, err := u.uploadFile(ctx, file, u.ObjectPath(summary, file))
		if err != nil {
			return err
		}
		u.logger.Info("corpus file uploaded", zap.String("file", file), zap.String("uri", uri))
	}
	return nil
}

func (u *Uploader) uploadFile(ctx context.Context, file, object string) (string, error) {
	f, err := os.Open(file) // #nosec G304 -- path comes from the run's own output config
	if err != nil {
		return "", fmt.Errorf("open %s: %w", file, err)
	}
	defer func() {
		_ = f.Close()
	}()
	return u.PutObject(ctx, object, ndjsonContentType, f)
}

// PutObject uploads data to the configured bucket and returns a gs:// URI.
func (u *Uploader) PutObject(ctx context.Context, object, contentType string, r io.Reader) (string, error) {
	if strings.TrimSpace(object) == "" {
		return "", fmt.Errorf("object path is required")
	}
	writer := u.client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := io.Copy(writer, r); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", u.bucket, object), nil
}
