package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"
)

const (
	// DefaultImage is the interpreter image used by DockerExecutor.
	DefaultImage = "python:3.12-alpine"

	defaultMemoryBytes = 128 * 1024 * 1024
	defaultNanoCPUs    = 500_000_000 // 0.5 CPU
	defaultPidsLimit   = 64
)

// DockerExecutor runs each snippet in a fresh container with networking
// disabled, a read-only root filesystem and tight resource limits.
type DockerExecutor struct {
	cli         *client.Client
	Image       string
	Timeout     time.Duration
	MemoryBytes int64
	NanoCPUs    int64
	PidsLimit   int64
}

// NewDockerExecutor connects to the Docker daemon configured in the
// environment (DOCKER_HOST and friends). An empty image selects
// DefaultImage.
func NewDockerExecutor(image string) (*DockerExecutor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	slog.Info("docker sandbox initialized", "image", image)
	return newDockerExecutor(cli, image), nil
}

func newDockerExecutor(cli *client.Client, img string) *DockerExecutor {
	if img == "" {
		img = DefaultImage
	}
	return &DockerExecutor{
		cli:         cli,
		Image:       img,
		Timeout:     DefaultTimeout,
		MemoryBytes: defaultMemoryBytes,
		NanoCPUs:    defaultNanoCPUs,
		PidsLimit:   defaultPidsLimit,
	}
}

// Ping checks that the daemon is reachable.
func (e *DockerExecutor) Ping(ctx context.Context) error {
	if _, err := e.cli.Ping(ctx); err != nil {
		return fmt.Errorf("ping docker: %w", err)
	}
	return nil
}

// ensureImage pulls Image unless the daemon already has it.
func (e *DockerExecutor) ensureImage(ctx context.Context) error {
	_, err := e.cli.ImageInspect(ctx, e.Image)
	if err == nil {
		return nil
	}
	if !errdefs.IsNotFound(err) {
		return fmt.Errorf("inspect image %s: %w", e.Image, err)
	}

	slog.InfoContext(ctx, "pulling sandbox image", "image", e.Image)
	rc, err := e.cli.ImagePull(ctx, e.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", e.Image, err)
	}
	defer rc.Close()

	// The pull only completes once the progress stream is drained. Failures
	// arrive as messages in the stream.
	dec := json.NewDecoder(rc)
	for {
		var msg struct {
			Error string `json:"error"`
		}
		if err := dec.Decode(&msg); err == io.EOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("pull image %s: %w", e.Image, err)
		}
		if msg.Error != "" {
			return fmt.Errorf("pull image %s: %s", e.Image, msg.Error)
		}
	}
}

// Close releases the Docker client.
func (e *DockerExecutor) Close() error {
	return e.cli.Close()
}

func (e *DockerExecutor) Execute(ctx context.Context, code string) Result {
	if err := Check(ctx, code); err != nil {
		return violationResult(err)
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	res, err := e.run(ctx, code, timeout)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return timeoutResult(timeout)
		}
		slog.WarnContext(ctx, "docker sandbox run failed", "image", e.Image, "error", err)
		return Result{Error: fmt.Sprintf("Sandbox error: %v", err)}
	}
	return res
}

func (e *DockerExecutor) run(ctx context.Context, code string, timeout time.Duration) (Result, error) {
	// The program goes in on stdin; a single argument is capped by the
	// kernel at 128KiB.
	config := &container.Config{
		Image:           e.Image,
		Cmd:             []string{"python3", "-I", "-"},
		User:            "65534",
		NetworkDisabled: true,
		AttachStdin:     true,
		OpenStdin:       true,
		StdinOnce:       true,
		Labels:          map[string]string{"algotutor.sandbox": "true"},
	}
	pids := e.PidsLimit
	hostConfig := &container.HostConfig{
		NetworkMode:    "none",
		ReadonlyRootfs: true,
		CapDrop:        []string{"ALL"},
		SecurityOpt:    []string{"no-new-privileges"},
		Resources: container.Resources{
			Memory:    e.MemoryBytes,
			NanoCPUs:  e.NanoCPUs,
			PidsLimit: &pids,
		},
	}

	name := "algotutor-sandbox-" + uuid.NewString()[:12]
	created, err := e.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, name)
	if errdefs.IsNotFound(err) {
		if err := e.ensureImage(ctx); err != nil {
			return Result{}, err
		}
		created, err = e.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, name)
	}
	if err != nil {
		return Result{}, fmt.Errorf("create container: %w", err)
	}
	defer e.remove(created.ID)

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdin, err := e.cli.ContainerAttach(runCtx, created.ID, container.AttachOptions{Stream: true, Stdin: true})
	if err != nil {
		return Result{}, fmt.Errorf("attach container %s: %w", created.ID, err)
	}
	defer stdin.Close()

	if err := e.cli.ContainerStart(runCtx, created.ID, container.StartOptions{}); err != nil {
		return Result{}, fmt.Errorf("start container %s: %w", created.ID, err)
	}
	if deadline, ok := runCtx.Deadline(); ok {
		_ = stdin.Conn.SetWriteDeadline(deadline)
	}
	if _, err := io.WriteString(stdin.Conn, guardProgram(code)); err != nil {
		if runCtx.Err() != nil || errors.Is(err, os.ErrDeadlineExceeded) {
			return Result{}, context.DeadlineExceeded
		}
		return Result{}, fmt.Errorf("write program %s: %w", created.ID, err)
	}
	if err := stdin.CloseWrite(); err != nil {
		return Result{}, fmt.Errorf("close stdin %s: %w", created.ID, err)
	}

	waitCh, errCh := e.cli.ContainerWait(runCtx, created.ID, container.WaitConditionNotRunning)
	select {
	case <-waitCh:
	case err := <-errCh:
		if runCtx.Err() != nil {
			return Result{}, runCtx.Err()
		}
		return Result{}, fmt.Errorf("wait container %s: %w", created.ID, err)
	case <-runCtx.Done():
		return Result{}, runCtx.Err()
	}

	logs, err := e.cli.ContainerLogs(ctx, created.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return Result{}, fmt.Errorf("read logs %s: %w", created.ID, err)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return Result{}, fmt.Errorf("demultiplex logs %s: %w", created.ID, err)
	}

	if res, ok := parseGuardOutput(stdout.Bytes()); ok {
		return res, nil
	}
	return Result{
		Output: stdout.String(),
		Error:  strings.TrimSpace("Process terminated unexpectedly. " + stderr.String()),
	}, nil
}

// remove force-removes a sandbox container, tolerating one already gone.
func (e *DockerExecutor) remove(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil && !errdefs.IsNotFound(err) {
		slog.Warn("failed to remove sandbox container", "container_id", id, "error", err)
	}
}
