package docker

import (
	"testing"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/stretchr/testify/assert"

	"github.com/mmr-tortoise/pybundle/internal/model"
)

// TestSelectStrayContainers verifies that only containers carrying the
// full pybundle label contract are selected, and that the app narrowing
// works. Unmanaged containers must never be touched even if a broad
// server-side filter handed them over.
func TestSelectStrayContainers(t *testing.T) {
	ours := types.Container{
		ID:     "aaaaaaaaaaaaaaaa",
		Names:  []string{"/pybundle-build-demo-1"},
		Labels: BuildLabels("demo", model.ModeOnefile, time.Now()),
	}
	otherApp := types.Container{
		ID:     "bbbbbbbbbbbbbbbb",
		Names:  []string{"/pybundle-build-other-1"},
		Labels: BuildLabels("other", model.ModeOnedir, time.Now()),
	}
	foreign := types.Container{
		ID:     "cccccccccccccccc",
		Names:  []string{"/somebody-elses"},
		Labels: map[string]string{"managed-by": "not-us"},
	}

	all := []types.Container{ours, otherApp, foreign}

	stray := selectStrayContainers(all, "")
	assert.Len(t, stray, 2)

	stray = selectStrayContainers(all, "demo")
	assert.Len(t, stray, 1)
	assert.Equal(t, ours.ID, stray[0].ID)

	assert.Empty(t, selectStrayContainers([]types.Container{foreign}, ""))
}

// TestContainerName strips the Docker API's leading slash and falls back
// to a shortened ID when no name is present.
func TestContainerName(t *testing.T) {
	named := types.Container{ID: "dddddddddddddddd", Names: []string{"/pybundle-build-demo-2"}}
	assert.Equal(t, "pybundle-build-demo-2", containerName(named))

	unnamed := types.Container{ID: "eeeeeeeeeeeeeeee"}
	assert.Equal(t, "eeeeeeeeeeee", containerName(unnamed))
}
