package docker

import (
	"time"

	"github.com/mmr-tortoise/pybundle/internal/model"
)

// Label key constants identify and describe build containers created by
// pybundle. A build container is short-lived, but a crashed CLI can
// leave one behind; labels make strays discoverable and attributable
// (`docker ps -a --filter label=pybundle.managed-by`).
//
// All keys share the "pybundle." prefix to avoid collisions with labels
// set by other tools.
const (
	// LabelPrefix is the common prefix for all pybundle labels.
	LabelPrefix = "pybundle."

	// LabelManagedBy identifies containers created by this CLI.
	// Key: "pybundle.managed-by", Value: always "pybundle".
	LabelManagedBy = LabelPrefix + "managed-by"

	// LabelApp stores the application name being packaged.
	LabelApp = LabelPrefix + "app"

	// LabelMode stores the bundle layout of the run ("onefile"/"onedir").
	LabelMode = LabelPrefix + "mode"

	// LabelCreatedAt stores the RFC3339 UTC timestamp of the run.
	LabelCreatedAt = LabelPrefix + "created-at"
)

// ManagedByValue is the constant value of the LabelManagedBy label.
const ManagedByValue = "pybundle"

// BuildLabels constructs the label set applied to a build container.
func BuildLabels(app string, mode model.BundleMode, createdAt time.Time) map[string]string {
	return map[string]string{
		LabelManagedBy: ManagedByValue,
		LabelApp:       app,
		LabelMode:      mode.String(),
		LabelCreatedAt: createdAt.UTC().Format(time.RFC3339),
	}
}

// IsManaged reports whether a label set belongs to a pybundle build
// container.
func IsManaged(labels map[string]string) bool {
	return labels[LabelManagedBy] == ManagedByValue
}
