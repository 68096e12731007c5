// Package bundle produces the bundle.tar.gz uploaded by deploy.
package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/gzip"
)

// Root is the directory every archive entry lives under; the remote deploy
// script expects tmp/bundle after extraction.
const Root = "bundle"

// Build runs `meteor build` for the app in appDir and returns the directory
// holding the server bundle.
func Build(ctx context.Context, meteorBinary, appDir, outDir string) (string, error) {
	if _, err := exec.LookPath(meteorBinary); err != nil {
		return "", fmt.Errorf("%s binary not found in PATH: %w", meteorBinary, err)
	}

	slog.Info("building meteor bundle", "app", appDir, "output", outDir)

	cmd := exec.CommandContext(ctx, meteorBinary, "build", "--directory", outDir, "--server-only")
	cmd.Dir = appDir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("meteor build failed: %w\nstderr: %s", err, stderr.String())
	}

	return filepath.Join(outDir, Root), nil
}

// Pack writes srcDir as a gzipped tarball to dest, skipping files that match
// any of the exclude globs (relative to srcDir, doublestar syntax).
func Pack(srcDir, dest string, exclude []string) error {
	files, err := collect(os.DirFS(srcDir), exclude)
	if err != nil {
		return err
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	writeErr := writeArchive(out, srcDir, files)

	if closeErr := out.Close(); closeErr != nil && writeErr == nil {
		writeErr = fmt.Errorf("closing %s: %w", dest, closeErr)
	}
	if writeErr != nil {
		_ = os.Remove(dest)
		return writeErr
	}

	slog.Info("bundle packed", "path", dest, "entries", len(files))
	return nil
}

func collect(fsys fs.FS, exclude []string) ([]string, error) {
	for _, pattern := range exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	var files []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk error at %s: %w", p, err)
		}
		if p == "." {
			return nil
		}
		if excluded(p, exclude) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collecting bundle files: %w", err)
	}

	slices.Sort(files)
	return files, nil
}

func excluded(p string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

func writeArchive(w io.Writer, srcDir string, files []string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	for _, rel := range files {
		if err := addEntry(tw, srcDir, rel); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing tar stream: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("closing gzip stream: %w", err)
	}
	return nil
}

func addEntry(tw *tar.Writer, srcDir, rel string) error {
	abs := filepath.Join(srcDir, filepath.FromSlash(rel))
	info, err := os.Lstat(abs)
	if err != nil {
		return fmt.Errorf("stat %s: %w", abs, err)
	}

	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(abs); err != nil {
			return fmt.Errorf("reading link %s: %w", abs, err)
		}
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return fmt.Errorf("header for %s: %w", rel, err)
	}
	hdr.Name = path.Join(Root, rel)
	if info.IsDir() {
		hdr.Name += "/"
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing header for %s: %w", rel, err)
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(abs)
	if err != nil {
		return fmt.Errorf("opening %s: %w", abs, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	return nil
}
