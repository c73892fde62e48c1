package sensor

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/domain"
)

// GPIOSampler reads three sysfs GPIO value files, ordered low to high
// (half-knee, knee, waist). A value of "1" means the beam is interrupted,
// unless activeLow inverts the sense for pull-up wired detectors.
type GPIOSampler struct {
	paths     [3]string
	activeLow bool
}

// NewGPIOSampler validates that all three value files are readable up front,
// so a miswired pin fails at startup instead of mid-flood.
func NewGPIOSampler(paths [3]string, activeLow bool) (*GPIOSampler, error) {
	for i, p := range paths {
		if _, err := os.ReadFile(p); err != nil {
			return nil, fmt.Errorf("probe sensor %d value file: %w", i, err)
		}
	}
	return &GPIOSampler{paths: paths, activeLow: activeLow}, nil
}

// Sample reads all three detectors. A read failure on any channel fails the
// whole sample; the control loop logs it and keeps the previous tier.
func (g *GPIOSampler) Sample(_ context.Context) (domain.Reading, error) {
	var r domain.Reading
	for i, p := range g.paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return domain.Reading{}, fmt.Errorf("read sensor %d: %w", i, err)
		}
		wet := bytes.HasPrefix(bytes.TrimSpace(data), []byte("1"))
		if g.activeLow {
			wet = !wet
		}
		r[i] = wet
	}
	return r, nil
}
