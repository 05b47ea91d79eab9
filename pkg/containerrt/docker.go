package containerrt

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// DockerRuntime implements Runtime against a local Docker Engine via its
// HTTP API client, the technology the engine uses instead of the
// cluster-membership container runtime its teacher repo carries:
// Dockerfile-context image builds need the Engine's own build endpoint.
type DockerRuntime struct {
	cli *client.Client
}

// NewDockerRuntime connects to the Docker Engine using the standard
// environment (DOCKER_HOST, DOCKER_CERT_PATH, …), negotiating the API
// version against the daemon.
func NewDockerRuntime() (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("connect to docker: %w", err)
	}
	return &DockerRuntime{cli: cli}, nil
}

// Close releases the underlying HTTP client's connections.
func (r *DockerRuntime) Close() error {
	return r.cli.Close()
}

func (r *DockerRuntime) Build(ctx context.Context, contextDir, tag string) (string, error) {
	buildCtx, err := tarDirectory(contextDir)
	if err != nil {
		return "", &ContainerBuildError{Cause: fmt.Errorf("tar build context: %w", err)}
	}

	resp, err := r.cli.ImageBuild(ctx, buildCtx, image.BuildOptions{
		Tags:       []string{tag},
		Dockerfile: "Dockerfile",
		Remove:     true,
	})
	if err != nil {
		return "", &ContainerBuildError{Cause: err}
	}
	defer resp.Body.Close()

	var log bytes.Buffer
	if _, err := io.Copy(&log, resp.Body); err != nil {
		return log.String(), &ContainerBuildError{Cause: fmt.Errorf("read build log: %w", err)}
	}
	return log.String(), nil
}

func (r *DockerRuntime) Create(ctx context.Context, spec RunSpec) (string, error) {
	cfg := &container.Config{
		Image:        spec.Image,
		Cmd:          spec.Argv,
		Env:          []string{"PYTHONUNBUFFERED=1", "STDBUF_UNBUFFERED=1"},
		Tty:          false,
		AttachStdout: true,
		AttachStderr: true,
	}
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{
			{Type: mount.TypeBind, Source: spec.OutputDir, Target: MountOutput},
			{Type: mount.TypeBind, Source: spec.SharedDir, Target: MountShared},
		},
		AutoRemove: false,
	}

	resp, err := r.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return "", &ContainerRunError{Cause: fmt.Errorf("create container %s: %w", spec.Name, err)}
	}
	return resp.ID, nil
}

func (r *DockerRuntime) Start(ctx context.Context, containerID string) error {
	if err := r.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return &ContainerRunError{Cause: fmt.Errorf("start container %s: %w", containerID, err)}
	}
	return nil
}

func (r *DockerRuntime) Logs(ctx context.Context, containerID string) (string, error) {
	rc, err := r.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return "", &ContainerRunError{Cause: fmt.Errorf("stream logs for %s: %w", containerID, err)}
	}
	defer rc.Close()

	var out bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &out, rc); err != nil && err != io.EOF {
		return out.String(), &ContainerRunError{Cause: fmt.Errorf("demux logs for %s: %w", containerID, err)}
	}
	return out.String(), nil
}

func (r *DockerRuntime) Wait(ctx context.Context, containerID string) (int64, error) {
	statusCh, errCh := r.cli.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return -1, &ContainerRunError{Cause: fmt.Errorf("wait for container %s: %w", containerID, err)}
		}
		return -1, nil
	case status := <-statusCh:
		return status.StatusCode, nil
	}
}

// Stop sends SIGKILL to the container and returns without waiting for it
// to exit; the timeout argument is not used by this implementation.
func (r *DockerRuntime) Stop(ctx context.Context, containerID string, _ time.Duration) error {
	if err := r.cli.ContainerKill(ctx, containerID, "SIGKILL"); err != nil {
		return &ContainerRunError{Cause: fmt.Errorf("stop container %s: %w", containerID, err)}
	}
	return nil
}

func (r *DockerRuntime) Remove(ctx context.Context, containerID string) error {
	if err := r.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		return &ContainerRunError{Cause: fmt.Errorf("remove container %s: %w", containerID, err)}
	}
	return nil
}

// tarDirectory packs a build context directory into the tar stream the
// Docker Engine's build endpoint expects.
func tarDirectory(dir string) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		hdr := &tar.Header{
			Name: filepath.ToSlash(rel),
			Mode: int64(info.Mode().Perm()),
			Size: int64(len(data)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		_, err = tw.Write(data)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}
