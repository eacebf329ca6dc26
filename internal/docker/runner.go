// runner.go implements the one-shot build container lifecycle behind
// `pybundle build --in-container`.
//
// The container replays the whole workflow from scratch: create a fresh
// environment, install the declared dependencies plus PyInstaller, and
// invoke the selected descriptor. The environment lives in /tmp inside
// the container — NOT in the bind-mounted project — so the host's own
// .venv is never touched and no Linux binaries leak into it. Artifacts
// land in the project's dist/ through the bind mount.
package docker

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/schollz/progressbar/v3"

	"github.com/mmr-tortoise/pybundle/internal/model"
)

// containerVenv is where the build container provisions its throwaway
// environment. Kept outside /src so the bind-mounted project stays clean.
const containerVenv = "/tmp/pybundle-venv"

// BuildRunSpec describes one containerized packaging run.
type BuildRunSpec struct {
	// Image is the container image to run the build in. It must provide
	// `python` on PATH (the official python images do).
	Image string

	// ProjectRoot is the host project directory, bind-mounted at /src.
	ProjectRoot string

	// App is the application name, used for labels and container naming.
	App string

	// Mode is the bundle layout being built.
	Mode model.BundleMode

	// Requirements is the dependency manifest path relative to the
	// project root.
	Requirements string

	// Descriptor is the descriptor file name relative to the project root.
	Descriptor string
}

// script assembles the shell sequence executed inside the container.
// It mirrors the host-side workflow step for step; set -e gives the same
// halt-on-first-failure semantics the host driver enforces in Go.
func (s BuildRunSpec) script() string {
	return strings.Join([]string{
		"set -e",
		"cd /src",
		fmt.Sprintf("python -m venv %s", containerVenv),
		fmt.Sprintf("%s/bin/python -m pip install --no-cache-dir -r %s pyinstaller", containerVenv, shellQuote(s.Requirements)),
		fmt.Sprintf("%s/bin/python -m PyInstaller --noconfirm --distpath dist --workpath build %s", containerVenv, shellQuote(s.Descriptor)),
	}, "\n")
}

// shellQuote single-quotes a path for POSIX sh. Config validation keeps
// paths project-relative, but spaces are still legal in them.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// RunBuild executes one containerized packaging run and returns the
// build's exit code. The container is always removed afterwards; the
// exit code travels back so the CLI can propagate it exactly as it
// would for a host-side PyInstaller failure.
func RunBuild(ctx context.Context, cli *Client, spec BuildRunSpec) (int, error) {
	if err := pullImage(ctx, cli, spec.Image); err != nil {
		return 0, err
	}

	name := fmt.Sprintf("pybundle-build-%s-%d", spec.App, time.Now().Unix())

	created, err := cli.Inner().ContainerCreate(ctx,
		&container.Config{
			Image:      spec.Image,
			Cmd:        []string{"/bin/sh", "-c", spec.script()},
			WorkingDir: "/src",
			Labels:     BuildLabels(spec.App, spec.Mode, time.Now()),
		},
		&container.HostConfig{
			Mounts: []mount.Mount{{
				Type:   mount.TypeBind,
				Source: spec.ProjectRoot,
				Target: "/src",
			}},
		},
		nil, nil, name,
	)
	if err != nil {
		return 0, model.WrapCLIError(model.ExitDockerNotRunning, "failed to create build container", err)
	}

	// Remove the container unconditionally once the run is over, using a
	// fresh context so cleanup still happens after cancellation.
	defer func() {
		_ = cli.Inner().ContainerRemove(context.Background(), created.ID, container.RemoveOptions{Force: true})
	}()

	if err := cli.Inner().ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return 0, model.WrapCLIError(model.ExitDockerNotRunning, "failed to start build container", err)
	}

	// Stream the build output while it runs. pip and PyInstaller output
	// is the operator's only view into a failing containerized build.
	logs, err := cli.Inner().ContainerLogs(ctx, created.ID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err == nil {
		go func() {
			defer logs.Close()
			// Docker multiplexes stdout/stderr into one stream; stdcopy
			// demultiplexes it back onto ours.
			_, _ = stdcopy.StdCopy(os.Stdout, os.Stderr, logs)
		}()
	}

	statusCh, errCh := cli.Inner().ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	select {
	case waitErr := <-errCh:
		return 0, model.WrapCLIError(model.ExitDockerNotRunning, "failed waiting for build container", waitErr)
	case status := <-statusCh:
		return int(status.StatusCode), nil
	}
}

// pullImage fetches the build image, draining the pull stream through a
// byte-progress bar. The pull must be drained completely even when the
// bar is hidden — Docker finishes the pull only when the stream is read
// to EOF.
func pullImage(ctx context.Context, cli *Client, ref string) error {
	reader, err := cli.Inner().ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("failed to pull image %q", ref),
			err,
		)
	}
	defer reader.Close()

	var sink io.Writer = io.Discard
	if os.Getenv("CI") != "true" {
		sink = progressbar.DefaultBytes(-1, "Pulling "+ref)
	}
	if _, err := io.Copy(sink, reader); err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			fmt.Sprintf("image pull for %q was interrupted", ref),
			err,
		)
	}
	return nil
}
