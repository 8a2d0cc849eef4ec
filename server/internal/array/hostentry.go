package array

import (
	"slices"

	"github.com/yaroslav/stretchsim/models"
)

// HostEntry grants one host access to a set of volumes on an array.
type HostEntry struct {
	Host    string
	Volumes []string

	// PreferredArrays marks paths to other arrays non-optimized. Empty means
	// uniform access.
	PreferredArrays []string
}

// Maps reports whether the entry maps volume.
func (e *HostEntry) Maps(volume string) bool {
	return slices.Contains(e.Volumes, volume)
}

// Optimized reports whether paths to array are optimized for this host.
func (e *HostEntry) Optimized(array string) bool {
	return len(e.PreferredArrays) == 0 || slices.Contains(e.PreferredArrays, array)
}

func (e *HostEntry) status() models.HostEntryStatus {
	return models.HostEntryStatus{
		Host:            e.Host,
		Volumes:         slices.Clone(e.Volumes),
		PreferredArrays: slices.Clone(e.PreferredArrays),
	}
}
