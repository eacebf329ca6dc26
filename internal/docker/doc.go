// Package docker runs containerized packaging builds for the pybundle CLI.
//
// PyInstaller cannot cross-build: a Linux artifact must be produced on
// Linux. `pybundle build --in-container` therefore replays the whole
// provision-and-build sequence inside a disposable Linux container with
// the project bind-mounted, which gives reproducible Linux bundles from
// any host.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Image pulls with progress feedback
//   - One-shot build container lifecycle: create, start, stream logs,
//     wait, remove — surfacing the build's exit code
//   - Label management so stray build containers are identifiable
//
// It uses github.com/docker/docker/client as the underlying Docker SDK,
// with version negotiation enabled for broad compatibility.
package docker
