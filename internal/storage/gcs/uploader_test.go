package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/JakeFAU/corpus-crawler/internal/crawler"
)

type fakeGCS struct {
	mu      sync.Mutex
	objects map[string]string
	fail    bool
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.fail {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	name := r.URL.Query().Get("name")
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.objects[name] = string(body)
	f.mu.Unlock()
	fmt.Fprintf(w, `{"name":%q,"bucket":"corpora"}`, name)
}

func newTestUploader(t *testing.T, handler http.Handler, prefix string) *Uploader {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	u, err := New(client, Config{Bucket: "corpora", Prefix: prefix}, zap.NewNop())
	require.NoError(t, err)
	return u
}

func TestObjectPath(t *testing.T) {
	t.Parallel()

	u := &Uploader{prefix: "corpora"}
	summary := crawler.RunSummary{JobName: "cpi", RunID: "run-1", ShardID: -1}
	require.Equal(t, "corpora/cpi/run-1/raw.jsonl", u.ObjectPath(summary, "/tmp/out/raw.jsonl"))

	summary.ShardID = 2
	require.Equal(t, "corpora/cpi/run-1/shard_2/raw.jsonl", u.ObjectPath(summary, "raw.jsonl"))

	u.prefix = ""
	require.Equal(t, "cpi/run-1/shard_2/raw.jsonl", u.ObjectPath(summary, "raw.jsonl"))
}

func TestReportUploadsBothFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	raw := filepath.Join(dir, "raw_pages.jsonl")
	filtered := filepath.Join(dir, "filtered_docs.jsonl")
	require.NoError(t, os.WriteFile(raw, []byte(`{"url":"https://a.test/"}`+"\n"), 0o600))
	require.NoError(t, os.WriteFile(filtered, []byte(`{"url":"https://a.test/","score_relevance":1}`+"\n"), 0o600))

	fake := &fakeGCS{objects: map[string]string{}}
	u := newTestUploader(t, fake, "/jobs/")

	err := u.Report(context.Background(), crawler.RunSummary{
		JobName:          "cpi",
		RunID:            "run-1",
		ShardID:          0,
		RawPagesPath:     raw,
		FilteredDocsPath: filtered,
	})
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.objects, 2)
	require.Contains(t, fake.objects["jobs/cpi/run-1/shard_0/raw_pages.jsonl"], `"url":"https://a.test/"`)
	require.True(t, strings.Contains(fake.objects["jobs/cpi/run-1/shard_0/filtered_docs.jsonl"], "score_relevance"))
}

func TestReportErrors(t *testing.T) {
	t.Parallel()

	u := newTestUploader(t, &fakeGCS{fail: true}, "")
	file := filepath.Join(t.TempDir(), "raw.jsonl")
	require.NoError(t, os.WriteFile(file, []byte("{}\n"), 0o600))

	err := u.Report(context.Background(), crawler.RunSummary{JobName: "cpi", RunID: "r", RawPagesPath: file})
	require.Error(t, err)

	err = u.Report(context.Background(), crawler.RunSummary{JobName: "cpi", RunID: "r", RawPagesPath: filepath.Join(t.TempDir(), "missing")})
	require.ErrorContains(t, err, "open")

	_, err = u.PutObject(context.Background(), " ", "", strings.NewReader("x"))
	require.Error(t, err)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"}, nil)
	require.Error(t, err)
}
