// cleanup.go removes stray build containers left behind by interrupted
// `pybundle build --in-container` runs.
//
// A build container is created, waited on and force-removed within one
// RunBuild call, so under normal operation none survive it. A killed CLI
// or a daemon hiccup during removal can still leave one behind; those
// are discoverable through the pybundle label set and safe to remove at
// any time because a build container holds no state worth keeping.
package docker

import (
	"context"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"

	"github.com/mmr-tortoise/pybundle/internal/model"
)

// RemoveStrayContainers force-removes every build container carrying the
// pybundle label set, optionally narrowed to one application. It returns
// the names of the containers that were removed.
func RemoveStrayContainers(ctx context.Context, cli *Client, app string) ([]string, error) {
	// Docker filters server-side on the management label; the app filter
	// is applied client-side below so an empty app means "all of ours".
	filterArgs := filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
	)

	containers, err := cli.Inner().ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	var removed []string
	for _, c := range selectStrayContainers(containers, app) {
		if err := cli.Inner().ContainerRemove(ctx, c.ID, container.RemoveOptions{Force: true}); err != nil {
			return removed, model.WrapCLIError(
				model.ExitDockerNotRunning,
				"failed to remove build container "+containerName(c),
				err,
			)
		}
		removed = append(removed, containerName(c))
	}
	return removed, nil
}

// selectStrayContainers keeps the containers that belong to this CLI
// and, when app is non-empty, to the given application. Pure filtering,
// no daemon access; the server-side label filter already narrowed the
// candidates, this re-checks them against the full label contract.
func selectStrayContainers(containers []types.Container, app string) []types.Container {
	var stray []types.Container
	for _, c := range containers {
		if !IsManaged(c.Labels) {
			continue
		}
		if app != "" && c.Labels[LabelApp] != app {
			continue
		}
		stray = append(stray, c)
	}
	return stray
}

// containerName returns a display name for a container. The Docker API
// reports names with a leading "/" which is noise in CLI output.
func containerName(c types.Container) string {
	if len(c.Names) > 0 {
		return strings.TrimPrefix(c.Names[0], "/")
	}
	return c.ID[:12]
}
