package sandbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"

	containerd "github.com/containerd/containerd/v2/client"
	"github.com/containerd/errdefs"
	"github.com/containerd/platforms"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

const (

	// Snapshotter used for sandbox filesystems. fuse-overlayfs provides
	// overlay semantics without requiring root privileges (no mount(2)),
	// allowing builds to run as a regular user.
	snapshotter = "fuse-overlayfs"

	// OCI runtime shim for running sandbox containers.
	ociRuntime = "io.containerd.runc.v2"

	// Default containerd socket address.
	DefaultAddress = "/run/containerd/containerd.sock"

	// Default containerd namespace for toolchain images and sandboxes.
	DefaultNamespace = "crateship"
)

// Manages the containerd client and provides toolchain sandbox operations.
type Runtime struct {
	client *containerd.Client // Containerd client for managing sandboxes and images.
}

// Creates a runtime connected to the containerd socket at the given address.
//
// The namespace scopes all containerd operations, keeping toolchain images
// and sandbox containers separate from other tenants. The runtime must be
// closed when no longer needed.
func New(address, namespace string) (*Runtime, error) {
	client, err := containerd.New(address, containerd.WithDefaultNamespace(namespace))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSandbox, err)
	}
	return &Runtime{client: client}, nil
}

// Closes the containerd client connection.
func (rt *Runtime) Close() error {
	return rt.client.Close()
}

// Starts a build sandbox from a toolchain image.
//
// The image is resolved locally first and pulled when absent, unpacked for
// the requested platform. A container is created with a fresh snapshot and a
// long-running task (sleep infinity) is started so subsequent Exec calls
// have a running process to attach to. Any stale sandbox with the same ID
// from a previous build is removed first. Building for a platform other than
// the host requires QEMU / binfmt_misc support in the kernel.
func (rt *Runtime) StartBuilder(ctx context.Context, imageRef, id, platform string) (*Builder, error) {
	image, err := rt.ensureImage(ctx, imageRef, platform)
	if err != nil {
		return nil, fmt.Errorf("%w: image %s: %v", ErrSandbox, imageRef, err)
	}

	b := &Builder{
		client:   rt.client,
		id:       id,
		platform: platform,
	}

	b.remove(ctx)

	ctr, err := b.create(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSandbox, err)
	}

	if err := b.startTask(ctx, ctr); err != nil {
		ctr.Delete(ctx, containerd.WithSnapshotCleanup)
		return nil, fmt.Errorf("%w: %v", ErrSandbox, err)
	}

	slog.Debug("sandbox started", "id", id, "image", imageRef, "platform", platform)

	return b, nil
}

// Resolves a toolchain image for the platform, pulling it when not present
// locally.
//
// The pull unpacks layers into the snapshotter so container creation does
// not need network access afterwards.
func (rt *Runtime) ensureImage(ctx context.Context, ref, platform string) (containerd.Image, error) {
	p, err := parsePlatform(platform)
	if err != nil {
		return nil, err
	}
	matcher := platforms.Only(p)

	if img, err := rt.client.ImageService().Get(ctx, ref); err == nil {
		return containerd.NewImageWithPlatform(rt.client, img, matcher), nil
	} else if !errdefs.IsNotFound(err) {
		return nil, err
	}

	slog.Info("pulling toolchain image", "ref", ref, "platform", platform)

	image, err := rt.client.Pull(ctx, ref,
		containerd.WithPlatformMatcher(matcher),
		containerd.WithPullSnapshotter(snapshotter),
		containerd.WithPullUnpack,
	)
	if err != nil {
		return nil, err
	}
	return image, nil
}

// Parses an OCI platform string (e.g., "linux/arm64") into its
// specification form.
func parsePlatform(s string) (ocispec.Platform, error) {
	return platforms.Parse(s)
}

// Produces a deterministic sandbox container ID for a project root.
//
// The root path is hashed so the ID is always a valid containerd identifier
// regardless of which characters the path contains, and so repeated builds
// of the same project reuse (and clean up) the same ID.
func BuilderID(projectRoot string) string {
	h := sha256.Sum256([]byte(projectRoot))
	return fmt.Sprintf("crateship-%s", hex.EncodeToString(h[:6]))
}
