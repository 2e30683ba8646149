package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audit-sentry/internal/evidence"
)

func TestTarGzArchive(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "20250601-120000_host")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "local"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "local", "uname.txt"), []byte("Linux\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "summary_report.json"), []byte("{}\n"), 0o600))

	path, err := TarGz{}.Archive(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "audit_evidence_20250601-120000_host.tar.gz"), path)

	names := tarNames(t, path)
	assert.Contains(t, names, "20250601-120000_host/local/uname.txt")
	assert.Contains(t, names, "20250601-120000_host/summary_report.json")

	// Manifest records the archive checksum.
	manifest, err := os.ReadFile(filepath.Join(base, "manifest.txt"))
	require.NoError(t, err)
	sum, _, err := evidence.SHA256File(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(path)+" SHA256: "+sum+"\n", string(manifest))
}

func TestTarGzArchiveContentRoundTrip(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "run")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "aws"), 0o755))
	payload := `[{"name":"public-data"}]` + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aws", "s3_buckets.json"), []byte(payload), 0o600))

	path, err := TarGz{}.Archive(context.Background(), dir)
	require.NoError(t, err)

	content := tarContent(t, path, "run/aws/s3_buckets.json")
	assert.Equal(t, payload, content)
}

func TestTarGzCancelledContext(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "run")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("x"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := TarGz{}.Archive(ctx, dir)
	require.Error(t, err)

	// No partial archive left behind.
	entries, readErr := os.ReadDir(base)
	require.NoError(t, readErr)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tar.gz"), "partial archive %s", e.Name())
	}
}

func tarNames(t *testing.T, path string) []string {
	t.Helper()
	var names []string
	walkTar(t, path, func(hdr *tar.Header, r io.Reader) {
		names = append(names, strings.TrimSuffix(hdr.Name, "/"))
	})
	return names
}

func tarContent(t *testing.T, path, name string) string {
	t.Helper()
	var content string
	walkTar(t, path, func(hdr *tar.Header, r io.Reader) {
		if hdr.Name == name {
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			content = string(data)
		}
	})
	return content
}

func walkTar(t *testing.T, path string, fn func(*tar.Header, io.Reader)) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gzR, err := gzip.NewReader(f)
	require.NoError(t, err)
	tarR := tar.NewReader(gzR)
	for {
		hdr, err := tarR.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		fn(hdr, tarR)
	}
}
