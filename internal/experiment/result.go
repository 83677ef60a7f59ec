package experiment

import (
	"fmt"

	"github.com/san-kum/detprop/internal/config"
	"github.com/san-kum/detprop/internal/storage"
)

type Result struct {
	Traces []storage.Trace
	// Metrics holds the per-track metrics averaged over all tracks.
	Metrics     map[string]float64
	Exited      int
	Aborted     int
	Failed      int
	Fingerprint uint64
}

func (r *Result) Hits() int {
	n := 0
	for _, tr := range r.Traces {
		n += len(tr.Hits)
	}
	return n
}

// Metadata describes the run for the trace store.
func (r *Result) Metadata(cfg *config.Config) storage.RunMetadata {
	return storage.RunMetadata{
		Name:        cfg.Name,
		Stepper:     cfg.Stepper.Kind,
		Field:       fmt.Sprintf("%s %v T", cfg.Field.Kind, cfg.Field.Tesla),
		Momentum:    cfg.Track.Momentum,
		Charge:      cfg.Track.Charge,
		Fingerprint: r.Fingerprint,
		Metrics:     r.Metrics,
	}
}
