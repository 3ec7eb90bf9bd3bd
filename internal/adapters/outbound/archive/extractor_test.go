package archive_test

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/iacscan/iacscan/internal/adapters/outbound/archive"
	"github.com/iacscan/iacscan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func writeTar(t *testing.T, path string, gz bool, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	var w io.Writer = f
	var gzw *gzip.Writer
	if gz {
		gzw = gzip.NewWriter(f)
		w = gzw
	}
	tw := tar.NewWriter(w)
	for name, body := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0644,
			Size:     int64(len(body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := io.WriteString(tw, body)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	if gzw != nil {
		require.NoError(t, gzw.Close())
	}
	require.NoError(t, f.Close())
}

func TestExtract_Zip(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "iac.zip")
	writeZip(t, src, map[string]string{"main.tf": "resource {}", "mod/vars.tf": "variable {}"})

	dest := filepath.Join(tmp, "out")
	require.NoError(t, archive.New().Extract(context.Background(), src, dest))

	data, err := os.ReadFile(filepath.Join(dest, "mod", "vars.tf"))
	require.NoError(t, err)
	assert.Equal(t, "variable {}", string(data))
}

func TestExtract_Tar(t *testing.T) {
	for _, gz := range []bool{false, true} {
		tmp := t.TempDir()
		src := filepath.Join(tmp, "iac.tar")
		writeTar(t, src, gz, map[string]string{"deploy/play.yml": "- hosts: all"})

		dest := filepath.Join(tmp, "out")
		require.NoError(t, archive.New().Extract(context.Background(), src, dest), "gzip=%v", gz)
		assert.FileExists(t, filepath.Join(dest, "deploy", "play.yml"))
	}
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "notes.txt")
	require.NoError(t, os.WriteFile(src, []byte("just text"), 0644))

	dest := filepath.Join(tmp, "out")
	err := archive.New().Extract(context.Background(), src, dest)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindArchiveFormat))
	assert.Contains(t, err.Error(), "unsupported archive format")
	assert.NoDirExists(t, dest, "no partial directory is left behind")
}

func TestExtract_EmptyFileRejected(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "empty.tar")
	require.NoError(t, os.WriteFile(src, nil, 0644))

	err := archive.New().Extract(context.Background(), src, filepath.Join(tmp, "out"))
	assert.True(t, domain.IsKind(err, domain.KindArchiveFormat))
}

func TestExtract_RejectsPathTraversal(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "evil.tar")
	writeTar(t, src, false, map[string]string{"../escape.txt": "x"})

	dest := filepath.Join(tmp, "out")
	err := archive.New().Extract(context.Background(), src, dest)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(tmp, "escape.txt"))
	assert.NoDirExists(t, dest)
}

func TestExtract_EmptyZip(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "empty.zip")
	writeZip(t, src, nil)

	dest := filepath.Join(tmp, "out")
	require.NoError(t, archive.New().Extract(context.Background(), src, dest))
	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
