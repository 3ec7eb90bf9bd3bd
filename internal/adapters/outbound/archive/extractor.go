package archive

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/iacscan/iacscan/internal/domain"
)

const op = "unpack archive"

// Extractor implements domain.ArchiveExtractor for zip and (optionally
// gzipped) tar archives.
type Extractor struct{}

func New() *Extractor { return &Extractor{} }

// Extract unpacks archivePath into dest, creating dest. On failure dest is
// removed so no partial tree is left behind.
func (e *Extractor) Extract(ctx context.Context, archivePath, dest string) (err error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return domain.WrapError(domain.KindArchiveFormat, op, err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(dest)
		}
	}()

	format, err := detect(archivePath)
	if err != nil {
		return err
	}

	switch format {
	case "zip":
		err = extractZip(ctx, archivePath, dest)
	default:
		err = extractTar(ctx, archivePath, dest)
	}
	if err != nil {
		return domain.WrapError(domain.KindArchiveFormat, op, err)
	}
	return nil
}

// detect returns "zip" or "tar".
func detect(path string) (string, error) {
	if zr, err := zip.OpenReader(path); err == nil {
		_ = zr.Close()
		return "zip", nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", domain.WrapError(domain.KindArchiveFormat, op, err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err != nil || fi.Size() == 0 {
		return "", unsupported(path)
	}
	r, err := tarStream(f)
	if err == nil {
		if _, err = tar.NewReader(r).Next(); err == nil || errors.Is(err, io.EOF) {
			return "tar", nil
		}
	}
	return "", unsupported(path)
}

func unsupported(path string) error {
	return domain.NewError(domain.KindArchiveFormat, op,
		fmt.Sprintf("unsupported archive format: %q, the packaging format should be one of: zip, tar", filepath.Base(path)))
}

// tarStream transparently decompresses gzip input.
func tarStream(f io.Reader) (io.Reader, error) {
	br := bufio.NewReader(f)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		return gzip.NewReader(br)
	}
	return br, nil
}

func extractZip(ctx context.Context, path, dest string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := safeJoin(dest, zf.Name)
		if err != nil {
			return err
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := writeZipEntry(zf, target); err != nil {
			return fmt.Errorf("extracting %s: %w", zf.Name, err)
		}
	}
	return nil
}

func writeZipEntry(zf *zip.File, target string) error {
	rc, err := zf.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return writeFile(target, rc, zf.Mode().Perm())
}

func extractTar(ctx context.Context, path, dest string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := tarStream(f)
	if err != nil {
		return err
	}
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(target, tr, hdr.FileInfo().Mode().Perm()); err != nil {
				return fmt.Errorf("extracting %s: %w", hdr.Name, err)
			}
		default:
			// Links and devices are not needed by any check and are skipped.
		}
	}
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// safeJoin rejects entries that would escape dest.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, name)
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes the extraction directory", name)
	}
	return target, nil
}
