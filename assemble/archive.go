package assemble

import (
	"archive/tar"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/veratrix/esg/errors"
)

// createArchive packages the staged directory into a single deterministic
// tar.gz artifact. Entries are sorted by relative path and written with a
// fixed modification time so re-archiving unchanged content is
// byte-identical. Returns the number of files archived.
func createArchive(stagingDir, archivePath string) (int, error) {
	var files []string
	err := filepath.Walk(stagingDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			rel, err := filepath.Rel(stagingDir, path)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to walk staging directory")
	}
	sort.Strings(files)

	out, err := os.Create(archivePath)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create archive")
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	epoch := time.Unix(0, 0)
	for _, rel := range files {
		src := filepath.Join(stagingDir, filepath.FromSlash(rel))
		info, err := os.Stat(src)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to stat %s", rel)
		}

		hdr := &tar.Header{
			Name:    rel,
			Mode:    0644,
			Size:    info.Size(),
			ModTime: epoch,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return 0, errors.Wrapf(err, "failed to write archive header for %s", rel)
		}

		f, err := os.Open(src)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to open %s", rel)
		}
		if _, err := io.Copy(tw, f); err != nil {
			f.Close()
			return 0, errors.Wrapf(err, "failed to archive %s", rel)
		}
		f.Close()
	}

	if err := tw.Close(); err != nil {
		return 0, errors.Wrap(err, "failed to finalize archive")
	}
	if err := gz.Close(); err != nil {
		return 0, errors.Wrap(err, "failed to finalize archive compression")
	}

	return len(files), nil
}
