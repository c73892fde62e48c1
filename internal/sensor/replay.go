package sensor

import (
	"context"
	"fmt"
	"strings"

	"github.com/cri-kee-zel/agos-flood-monitoring-sub002/internal/domain"
)

// ReplaySampler cycles through a scripted sequence of readings. Used on the
// bench and in tests; a real station uses the GPIO sampler.
type ReplaySampler struct {
	readings []domain.Reading
	index    int
}

// ParseReplayScript decodes a comma-separated list of three-digit binary
// patterns, low sensor first: "000,100,110,111" walks the station from dry
// to flash flood.
func ParseReplayScript(script string) (*ReplaySampler, error) {
	parts := strings.Split(script, ",")
	readings := make([]domain.Reading, 0, len(parts))
	for _, part := range parts {
		p := strings.TrimSpace(part)
		if len(p) != 3 {
			return nil, fmt.Errorf("replay step %q: want exactly 3 digits", p)
		}
		var r domain.Reading
		for i := 0; i < 3; i++ {
			switch p[i] {
			case '0':
			case '1':
				r[i] = true
			default:
				return nil, fmt.Errorf("replay step %q: want only 0 or 1", p)
			}
		}
		readings = append(readings, r)
	}
	if len(readings) == 0 {
		return nil, fmt.Errorf("empty replay script")
	}
	return &ReplaySampler{readings: readings}, nil
}

// Sample returns the next scripted reading; the final reading repeats
// forever once the script is exhausted.
func (s *ReplaySampler) Sample(_ context.Context) (domain.Reading, error) {
	r := s.readings[s.index]
	if s.index < len(s.readings)-1 {
		s.index++
	}
	return r, nil
}
