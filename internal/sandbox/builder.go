package sandbox

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/containerd/v2/pkg/cio"
	"github.com/containerd/containerd/v2/pkg/oci"
	"github.com/containerd/errdefs"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Sequence counter for generating unique exec process identifiers.
var execSeq uint64

// Returns a unique exec process identifier.
func nextExecID() string {
	return fmt.Sprintf("exec-%d", atomic.AddUint64(&execSeq, 1))
}

// A running build sandbox backed by containerd.
type Builder struct {
	client   *containerd.Client // Containerd client for managing the container.
	id       string             // Unique identifier, used as the containerd container ID.
	platform string             // OCI platform (e.g., "linux/amd64").
}

// Runs a command inside the sandbox, streaming output to the given writers.
//
// Environment variables and working directory override the container's OCI
// spec for this execution only. A non-zero exit code is not treated as an
// error; the caller decides.
func (b *Builder) Exec(ctx context.Context, args, env []string, workdir string, stdout, stderr io.Writer) (int, error) {
	pspec, err := b.buildProcessSpec(ctx, env, workdir, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSandbox, err)
	}
	return b.execProcess(ctx, pspec, nil, stdout, stderr)
}

// Creates a directory inside the sandbox, including parents.
func (b *Builder) MkdirAll(ctx context.Context, path string) error {
	return b.mustExec(ctx, "mkdir", nil, nil, "mkdir", "-p", path)
}

// Copies a tar stream into the sandbox's filesystem.
//
// The contents of r are extracted into destDir by piping them to "tar xf -
// -C destDir" inside the sandbox.
func (b *Builder) CopyTo(ctx context.Context, r io.Reader, destDir string) error {
	return b.mustExec(ctx, "tar extract", r, nil, "tar", "xf", "-", "-C", destDir)
}

// Copies a path out of the sandbox's filesystem as a tar stream.
//
// The file or directory at path is archived by running "tar cf - -C <dir>
// <base>" inside the sandbox and streaming the output to w.
func (b *Builder) CopyFrom(ctx context.Context, w io.Writer, path string) error {
	return b.mustExec(ctx, "tar archive", nil, w, "tar", "cf", "-", "-C", filepath.Dir(path), filepath.Base(path))
}

// Removes the sandbox and its resources.
//
// The task is killed and the container is removed from containerd along
// with its snapshot. After destruction the handle is invalid.
func (b *Builder) Destroy(ctx context.Context) {
	ctr, err := b.client.LoadContainer(ctx, b.id)
	if err != nil {
		if !errdefs.IsNotFound(err) {
			slog.Warn("failed to load sandbox for destruction", "id", b.id, "error", err)
		}
		return
	}

	if task, err := ctr.Task(ctx, nil); err == nil {
		task.Kill(ctx, syscall.SIGKILL)
		task.Delete(ctx, containerd.WithProcessKill)
	}

	if err := ctr.Delete(ctx, containerd.WithSnapshotCleanup); err != nil && !errdefs.IsNotFound(err) {
		slog.Warn("failed to delete sandbox during destruction", "id", b.id, "error", err)
	}
}

// Creates the containerd container with the standard sandbox configuration.
//
// The host network namespace and resolv.conf are shared so cargo can reach
// crate registries without extra network plumbing.
func (b *Builder) create(ctx context.Context, image containerd.Image) (containerd.Container, error) {
	return b.client.NewContainer(ctx, b.id,
		containerd.WithImage(image),
		containerd.WithSnapshotter(snapshotter),
		containerd.WithNewSnapshot(b.id, image),
		containerd.WithRuntime(ociRuntime, nil),
		containerd.WithNewSpec(
			oci.WithDefaultSpecForPlatform(b.platform),
			oci.WithImageConfig(image),
			oci.WithHostNamespace(specs.NetworkNamespace),
			oci.WithHostResolvconf,
			oci.WithProcessArgs("sleep", "infinity"),
		),
	)
}

// Starts the sandbox's long-running task with no attached IO.
func (b *Builder) startTask(ctx context.Context, ctr containerd.Container) error {
	task, err := ctr.NewTask(ctx, cio.NullIO)
	if err != nil {
		return err
	}
	if err := task.Start(ctx); err != nil {
		task.Delete(ctx)
		return err
	}
	return nil
}

// Removes an existing sandbox with this ID, if one exists.
//
// Any running task is killed and the container is deleted along with its
// snapshot. This is a no-op when no container with the ID is found.
func (b *Builder) remove(ctx context.Context) {
	existing, err := b.client.LoadContainer(ctx, b.id)
	if err != nil {
		return
	}
	if task, err := existing.Task(ctx, nil); err == nil {
		task.Kill(ctx, syscall.SIGKILL)
		task.Delete(ctx, containerd.WithProcessKill)
	}
	existing.Delete(ctx, containerd.WithSnapshotCleanup)
}

// Builds an OCI process spec for running a command inside the sandbox.
//
// The base values are copied from the container's own OCI spec, then env and
// workdir are overridden if provided.
func (b *Builder) buildProcessSpec(ctx context.Context, env []string, workdir string, args ...string) (*specs.Process, error) {
	ctr, err := b.client.LoadContainer(ctx, b.id)
	if err != nil {
		return nil, err
	}

	spec, err := ctr.Spec(ctx)
	if err != nil {
		return nil, err
	}

	pspec := *spec.Process
	pspec.Terminal = false
	pspec.Args = args

	if len(env) > 0 {
		pspec.Env = mergeEnv(pspec.Env, env)
	}
	if workdir != "" {
		pspec.Cwd = workdir
	}

	return &pspec, nil
}

// Merges override env vars on top of a base env slice.
//
// Later entries win; the base order is preserved for unoverridden keys so
// the resulting environment is deterministic.
func mergeEnv(base, overrides []string) []string {
	overridden := make(map[string]string, len(overrides))
	for _, entry := range overrides {
		if k, v, ok := strings.Cut(entry, "="); ok {
			overridden[k] = v
		}
	}

	merged := make([]string, 0, len(base)+len(overrides))
	for _, entry := range base {
		k, _, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if v, hit := overridden[k]; hit {
			merged = append(merged, k+"="+v)
			delete(overridden, k)
			continue
		}
		merged = append(merged, entry)
	}
	for _, entry := range overrides {
		if k, _, ok := strings.Cut(entry, "="); ok {
			if v, left := overridden[k]; left {
				merged = append(merged, k+"="+v)
				delete(overridden, k)
			}
		}
	}
	return merged
}

// Runs a command inside the sandbox, returning an error that includes desc
// if the process exits with a non-zero code.
func (b *Builder) mustExec(ctx context.Context, desc string, stdin io.Reader, stdout io.Writer, args ...string) error {
	pspec, err := b.buildProcessSpec(ctx, nil, "", args...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSandbox, err)
	}

	var stderr strings.Builder
	exitCode, err := b.execProcess(ctx, pspec, stdin, stdout, &stderr)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("%w: %s failed with exit code %d (%s)", ErrSandbox, desc, exitCode, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Starts a process inside the sandbox's running task, waits for it to exit,
// and returns the exit code.
//
// The process is attached to the task as an additional exec, not as the
// primary process, so the task started by [Builder.startTask] must be
// running. Nil streams are replaced with io.Discard (stdout/stderr) or left
// disconnected (stdin).
//
// When stdin is provided, the container's stdin is explicitly closed after
// the reader returns EOF so the exec process receives the EOF signal. This
// is required because the containerd shim holds both ends of the stdin FIFO
// open and will not propagate EOF on its own.
func (b *Builder) execProcess(ctx context.Context, pspec *specs.Process, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	ctr, err := b.client.LoadContainer(ctx, b.id)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSandbox, err)
	}

	task, err := ctr.Task(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSandbox, err)
	}

	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	// Wrap stdin to detect when the reader returns EOF.
	var stdinDone <-chan struct{}
	if stdin != nil {
		dr := newDoneReader(stdin)
		stdin = dr
		stdinDone = dr.done
	}

	process, err := task.Exec(ctx, nextExecID(), pspec, cio.NewCreator(
		cio.WithStreams(stdin, stdout, stderr),
	))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSandbox, err)
	}

	return awaitProcess(ctx, process, stdinDone)
}

// Waits for an exec process to exit and returns the exit code.
//
// If stdinDone is non-nil, the process stdin is closed when the channel
// fires so the exec process receives EOF. The process is always deleted
// before returning.
func awaitProcess(ctx context.Context, process containerd.Process, stdinDone <-chan struct{}) (int, error) {
	statusC, err := process.Wait(ctx)
	if err != nil {
		process.Delete(ctx)
		return 0, fmt.Errorf("%w: %v", ErrSandbox, err)
	}

	if err := process.Start(ctx); err != nil {
		process.Delete(ctx)
		return 0, fmt.Errorf("%w: %v", ErrSandbox, err)
	}

	if stdinDone != nil {
		go func() {
			<-stdinDone
			process.CloseIO(ctx, containerd.WithStdinCloser)
		}()
	}

	exitStatus := <-statusC
	process.Delete(ctx)

	code, _, err := exitStatus.Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSandbox, err)
	}

	return int(code), nil
}
