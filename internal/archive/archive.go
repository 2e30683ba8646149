// Package archive compresses a finished evidence directory into a
// checksummed tar.gz bundle.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"audit-sentry/internal/evidence"
)

// TarGz writes `audit_evidence_<run_id>.tar.gz` next to the evidence
// directory, plus a manifest.txt with the archive's SHA-256.
type TarGz struct{}

func (TarGz) Archive(ctx context.Context, dir string) (string, error) {
	base := filepath.Base(dir)
	archivePath := filepath.Join(filepath.Dir(dir), "audit_evidence_"+base+".tar.gz")

	if err := writeTarGz(ctx, dir, base, archivePath); err != nil {
		// Leave no partial archive behind.
		_ = os.Remove(archivePath)
		return "", err
	}

	sum, _, err := evidence.SHA256File(archivePath)
	if err != nil {
		return "", errors.Wrap(err, "checksum archive")
	}
	manifest := fmt.Sprintf("%s SHA256: %s\n", filepath.Base(archivePath), sum)
	manifestPath := filepath.Join(filepath.Dir(dir), "manifest.txt")
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o600); err != nil {
		return "", errors.Wrap(err, "write manifest")
	}

	return archivePath, nil
}

func writeTarGz(ctx context.Context, dir, arcRoot, archivePath string) error {
	f, err := os.OpenFile(archivePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return errors.Wrap(err, "create archive")
	}
	defer f.Close()

	gzW := gzip.NewWriter(f)
	tarW := tar.NewWriter(gzW)

	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(filepath.Join(arcRoot, rel))

		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = name
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tarW.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() || !info.Mode().IsRegular() {
			return nil
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tarW, src)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "archive evidence directory")
	}

	if err := tarW.Close(); err != nil {
		return errors.Wrap(err, "close tar stream")
	}
	if err := gzW.Close(); err != nil {
		return errors.Wrap(err, "close gzip stream")
	}
	return f.Close()
}
