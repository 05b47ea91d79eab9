// Package containerrt is the Container Runner: the only component
// allowed to touch the container runtime. It builds a tool's image,
// creates and starts a container with bind mounts, captures logs, waits
// for exit, and removes the container. All failures are wrapped in
// ContainerBuildError or ContainerRunError.
package containerrt

import (
	"context"
	"time"
)

// RunSpec describes one container invocation.
type RunSpec struct {
	// Name is the container's name, the node's hierarchical name.
	Name string
	// Image is the already-built image tag to run.
	Image string
	// Argv is the rendered command line.
	Argv []string
	// OutputDir is bind-mounted to /mnt/skelet0wn/ inside the container.
	OutputDir string
	// SharedDir is bind-mounted to /mnt/shared inside the container.
	SharedDir string
}

const (
	// MountOutput is the in-container mount point for a node's private
	// output directory.
	MountOutput = "/mnt/skelet0wn"
	// MountShared is the in-container mount point for the workflow's
	// shared directory.
	MountShared = "/mnt/shared"
)

// RunResult is what a finished (or early-stopped) container run reports.
type RunResult struct {
	ContainerID string
	ExitCode    int64
	BuildLog    string
	RunLog      string
}

// Accepted reports whether code is a policy-accepted terminal exit code:
// 0 for normal success, 137 for a SIGKILL delivered by Interrupt.
func Accepted(code int64) bool {
	return code == 0 || code == 137
}

// Runtime is the Container Runner's contract. Build is idempotent on
// tag: building the same context+tag twice must not error and should
// reuse layer cache. Wait blocks until the container exits or ctx is
// canceled; Stop is the cooperative-interrupt path and is safe to call
// concurrently with a blocked Wait.
type Runtime interface {
	// Build builds an image from contextDir, tagged tag, returning the
	// build log.
	Build(ctx context.Context, contextDir, tag string) (buildLog string, err error)

	// Create creates (but does not start) a container per spec, returning
	// its runtime ID.
	Create(ctx context.Context, spec RunSpec) (containerID string, err error)

	// Start starts a previously created container.
	Start(ctx context.Context, containerID string) error

	// Logs streams the container's combined stdout/stderr as they arrive.
	// The returned string is the full log captured up to the point the
	// container stops or ctx is canceled.
	Logs(ctx context.Context, containerID string) (string, error)

	// Wait blocks until the container exits, returning its exit code.
	Wait(ctx context.Context, containerID string) (exitCode int64, err error)

	// Stop sends a termination signal to the container's root process.
	// It does not wait for the container to exit.
	Stop(ctx context.Context, containerID string, timeout time.Duration) error

	// Remove deletes the container. Failure to remove is the caller's to
	// log and swallow, per spec: cleanup failures are never fatal.
	Remove(ctx context.Context, containerID string) error
}
