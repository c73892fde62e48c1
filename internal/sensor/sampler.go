// Package sensor reads the three break-beam water-level detectors. The
// detection primitive is already digitized: each detector is a single
// boolean, surfaced here from GPIO value files or a bench simulator.
package sensor

import (
	"context"

	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/domain"
)

// Sampler produces one detector reading per sampling cycle.
type Sampler interface {
	Sample(ctx context.Context) (domain.Reading, error)
}
