// Package storage keeps propagation runs on disk: one directory per run with
// a metadata.json summary and the surface hits of every track in hits.csv.
package storage

import (
	"cmp"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/san-kum/detprop/internal/actor"
)

var ErrCorrupt = errors.New("storage: corrupt hits file")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// TrackSummary is the outcome of one propagated track.
type TrackSummary struct {
	Track      int     `json:"track"`
	Outcome    string  `json:"outcome"`
	Iterations int     `json:"iterations"`
	PathLength float64 `json:"path_length"`
	NumHits    int     `json:"num_hits"`
	Error      string  `json:"error,omitempty"`
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Timestamp   time.Time          `json:"timestamp"`
	Stepper     string             `json:"stepper"`
	Field       string             `json:"field"`
	Momentum    float64            `json:"momentum"`
	Charge      float64            `json:"charge"`
	Fingerprint uint64             `json:"fingerprint"`
	Metrics     map[string]float64 `json:"metrics"`
	Tracks      []TrackSummary     `json:"tracks"`
}

// Trace is a track summary together with its hits.
type Trace struct {
	TrackSummary
	Hits []actor.Hit `json:"hits"`
}

var hitsHeader = []string{
	"track", "surface", "volume", "portal",
	"x", "y", "z", "dx", "dy", "dz", "l0", "l1", "s", "t",
}

// Save writes a new run and returns its id. meta.ID and meta.Timestamp are
// filled in; the track summaries are taken from traces.
func (s *Store) Save(meta RunMetadata, traces []Trace) (string, error) {
	meta.ID = fmt.Sprintf("%s_%s", meta.Name, uuid.NewString())
	meta.Timestamp = time.Now()
	meta.Tracks = make([]TrackSummary, len(traces))
	for i, tr := range traces {
		meta.Tracks[i] = tr.TrackSummary
		meta.Tracks[i].NumHits = len(tr.Hits)
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "hits.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := writeHits(csvFile, traces); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func writeHits(out io.Writer, traces []Trace) error {
	w := csv.NewWriter(out)
	if err := w.Write(hitsHeader); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, tr := range traces {
		for _, h := range tr.Hits {
			row := []string{
				strconv.Itoa(tr.Track), strconv.Itoa(h.Surface), strconv.Itoa(h.Volume),
				strconv.FormatBool(h.Portal),
				f(h.Position[0]), f(h.Position[1]), f(h.Position[2]),
				f(h.Direction[0]), f(h.Direction[1]), f(h.Direction[2]),
				f(h.Local[0]), f(h.Local[1]), f(h.PathLength), f(h.Time),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	w.Flush()
	return w.Error()
}

// List returns the stored runs, newest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	slices.SortFunc(runs, func(a, b RunMetadata) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadTraces rebuilds the traces of a run, ordered by track number.
func (s *Store) LoadTraces(runID string) ([]Trace, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.baseDir, runID, "hits.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	hits, err := readHits(file)
	if err != nil {
		return nil, err
	}

	traces := make([]Trace, len(meta.Tracks))
	for i, sum := range meta.Tracks {
		traces[i] = Trace{TrackSummary: sum, Hits: hits[sum.Track]}
	}
	slices.SortFunc(traces, func(a, b Trace) int { return cmp.Compare(a.Track, b.Track) })
	return traces, nil
}

func readHits(in io.Reader) (map[int][]actor.Hit, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = len(hitsHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	out := make(map[int][]actor.Hit)
	for i, rec := range records {
		if i == 0 {
			continue
		}
		ints := make([]int, 3)
		for j := range ints {
			if ints[j], err = strconv.Atoi(rec[j]); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrCorrupt, i+1, err)
			}
		}
		portal, err := strconv.ParseBool(rec[3])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorrupt, i+1, err)
		}
		vals := make([]float64, 10)
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(rec[4+j], 64); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrCorrupt, i+1, err)
			}
		}
		out[ints[0]] = append(out[ints[0]], actor.Hit{
			Surface:    ints[1],
			Volume:     ints[2],
			Portal:     portal,
			Position:   mgl64.Vec3{vals[0], vals[1], vals[2]},
			Direction:  mgl64.Vec3{vals[3], vals[4], vals[5]},
			Local:      mgl64.Vec2{vals[6], vals[7]},
			PathLength: vals[8],
			Time:       vals[9],
		})
	}
	return out, nil
}
