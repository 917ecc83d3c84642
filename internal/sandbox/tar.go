package sandbox

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/crateship/crateship/internal/paths"
)

// Directory names never shipped into the sandbox. The target directory can
// be enormous and is rebuilt inside anyway; VCS metadata is irrelevant to
// the compiler.
var skippedDirs = map[string]bool{
	"target": true,
	".git":   true,
}

// Writes a directory tree to a tar writer rooted at the given archive
// prefix, skipping build output and VCS directories at the top level.
func writeDirToTar(tw *tar.Writer, hostDir, prefix string) error {
	return filepath.WalkDir(hostDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(hostDir, path)
		if err != nil {
			return err
		}

		if d.IsDir() && skippedDirs[relPath] {
			return filepath.SkipDir
		}
		if relPath == "." {
			return nil
		}

		archivePath := filepath.ToSlash(filepath.Join(prefix, relPath))
		return writeTarEntry(tw, path, archivePath, d)
	})
}

// Writes a single file or directory entry to a tar writer.
func writeTarEntry(tw *tar.Writer, hostPath, archivePath string, d os.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = archivePath

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	if info.Mode().IsRegular() {
		f, err := os.Open(hostPath)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	}

	return nil
}

// Extracts a tar stream into a host directory.
//
// Entry names are validated so a hostile archive cannot write outside dest.
// Only regular files and directories are materialized; other entry types
// are skipped.
func extractTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		name := filepath.Clean(header.Name)
		if filepath.IsAbs(name) || strings.HasPrefix(name, "..") {
			return fmt.Errorf("%w: unsafe tar entry %q", ErrSandbox, header.Name)
		}
		path := filepath.Join(dest, name)

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, paths.DefaultDirMode); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
				return err
			}
			if err := extractFile(tr, path, os.FileMode(header.Mode)); err != nil {
				return err
			}
		}
	}
}

// Writes one regular file from the tar stream.
func extractFile(r io.Reader, path string, mode os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
