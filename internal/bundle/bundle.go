package bundle

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/opencontainers/go-digest"

	"github.com/crateship/crateship/internal/paths"
)

const (

	// Filename the Lambda custom runtime requires for the executable inside
	// the bundle. The platform looks up exactly this name; anything else
	// fails at invoke time.
	EntrypointName = "bootstrap"

	// Permission bits applied to the entrypoint inside the archive. The
	// execute bit must survive the zip round trip or the runtime cannot
	// start the binary.
	entrypointMode = os.FileMode(0755)
)

// Archive entries carry a fixed timestamp so identical binaries produce
// byte-identical bundles.
var epoch = time.Unix(0, 0).UTC()

// A packaged, self-contained deployment artifact.
type Bundle struct {
	Path       string        // Absolute path to the zip archive.
	Entrypoint string        // Entrypoint filename inside the archive.
	Digest     digest.Digest // Content digest of the archive.
	Contents   []string      // Archive entry names.
}

// Packages a compiled binary into a deployment bundle at outPath.
//
// The binary is stored in the archive as the entrypoint name the execution
// environment mandates, with the execute bit set. The archive is written to
// a temporary file and renamed into place, so a partially written bundle is
// never visible at outPath. Fails with [ErrMissingBinary] when the binary
// does not exist and [ErrIOFailure] on any filesystem error; filesystem
// errors are surfaced rather than retried since they typically indicate a
// persistent environment problem.
func Package(binaryPath, outPath string) (*Bundle, error) {
	if _, err := os.Stat(binaryPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingBinary, binaryPath)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), "."+filepath.Base(outPath)+".*")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	digester := digest.Canonical.Digester()
	if err := writeArchive(io.MultiWriter(tmp, digester.Hash()), binaryPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	b := &Bundle{
		Path:       outPath,
		Entrypoint: EntrypointName,
		Digest:     digester.Digest(),
		Contents:   []string{EntrypointName},
	}

	if err := Verify(outPath); err != nil {
		os.Remove(outPath)
		return nil, err
	}

	slog.Debug("bundle written", "path", outPath, "digest", b.Digest)
	return b, nil
}

// Writes the zip archive containing the entrypoint.
func writeArchive(w io.Writer, binaryPath string) error {
	zw := zip.NewWriter(w)

	header := &zip.FileHeader{
		Name:     EntrypointName,
		Method:   zip.Deflate,
		Modified: epoch,
	}
	header.SetMode(entrypointMode)

	entry, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}

	f, err := os.Open(binaryPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(entry, f); err != nil {
		return err
	}

	return zw.Close()
}

// Checks that the archive at path contains exactly the expected entries.
//
// The bundle must hold the entrypoint and nothing else: extraneous files
// would be deployed verbatim, and a missing entrypoint would fail only at
// invoke time.
func Verify(path string) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)

	if len(names) != 1 || names[0] != EntrypointName {
		return fmt.Errorf("%w: got entries %v, want [%s]", ErrBadLayout, names, EntrypointName)
	}
	return nil
}
