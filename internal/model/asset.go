package model

import (
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const (
	// DefaultURL is where the 68-point landmark model is published.
	DefaultURL = "http://dlib.net/files/shape_predictor_68_face_landmarks.dat.bz2"
	// DefaultPath is the local file the model is kept in.
	DefaultPath = "shape_predictor_68_face_landmarks.dat"
)

var ErrDecompress = errors.New("model decompression failed")

// Asset is one file the service needs on local disk.
type Asset struct {
	Name string
	Path string
	URL  string
	// Bzip2 marks URL as serving a bzip2 archive of the file.
	Bzip2 bool
}

// Present reports whether the asset file exists.
func (a Asset) Present() bool {
	info, err := os.Stat(a.Path)
	return err == nil && info.Mode().IsRegular()
}

func (a Asset) archivePath() string {
	return a.Path + ".bz2"
}

// Ensure makes the asset file exist, downloading it when absent. It reports
// whether a download happened. An existing file is never touched.
func (a Asset) Ensure(ctx context.Context, f *Fetcher) (bool, error) {
	if a.Present() {
		return false, nil
	}
	if a.URL == "" {
		return false, fmt.Errorf("%s: %s is missing and no download URL is configured", a.Name, a.Path)
	}

	if dir := filepath.Dir(a.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("%s: create directory: %w", a.Name, err)
		}
	}

	if !a.Bzip2 {
		if err := f.Download(ctx, a.URL, a.Path); err != nil {
			return false, fmt.Errorf("%s: %w", a.Name, err)
		}
		return true, nil
	}

	archive := a.archivePath()
	if err := f.Download(ctx, a.URL, archive); err != nil {
		return false, fmt.Errorf("%s: %w", a.Name, err)
	}
	if err := decompress(archive, a.Path); err != nil {
		_ = os.Remove(archive)
		return false, fmt.Errorf("%s: %w", a.Name, err)
	}
	if err := os.Remove(archive); err != nil {
		return true, fmt.Errorf("%s: remove archive: %w", a.Name, err)
	}
	return true, nil
}

// Remove deletes the asset and any leftover archive.
func (a Asset) Remove() error {
	for _, p := range []string{a.Path, a.archivePath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

// decompress expands the bzip2 archive src into dst via a temporary file so
// a partial result is never visible at dst.
func decompress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecompress, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecompress, err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, bzip2.NewReader(in)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: %w", ErrDecompress, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrDecompress, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("%w: %w", ErrDecompress, err)
	}
	return nil
}
