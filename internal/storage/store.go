package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/keplersim/internal/config"
	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/sim"
	"gonum.org/v1/gonum/spatial/r3"
)

// columns per particle in states.csv: x, y, z, vx, vy, vz, m
const particleColumns = 7

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Timestamp   time.Time          `json:"timestamp"`
	Integrator  string             `json:"integrator"`
	Dt          float64            `json:"dt"`
	Duration    float64            `json:"duration"`
	G           float64            `json:"g"`
	Particles   int                `json:"particles"`
	Steps       int                `json:"steps"`
	Flagged     int                `json:"flagged"`
	Aborted     bool               `json:"aborted"`
	EnergyDrift float64            `json:"energy_drift"`
	Metrics     map[string]float64 `json:"metrics"`
	Config      *config.Config     `json:"config,omitempty"`
}

// Save writes a run directory holding metadata.json and states.csv and
// returns the run id.
func (s *Store) Save(name string, cfg *config.Config, result *sim.Result) (string, error) {
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", name, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Name:        name,
		Timestamp:   now,
		Integrator:  result.Integrator,
		Dt:          cfg.Dt,
		Duration:    cfg.Duration,
		G:           cfg.G,
		Steps:       result.StepsTaken,
		Flagged:     len(result.Flagged),
		Aborted:     result.Aborted,
		EnergyDrift: result.EnergyDrift,
		Metrics:     result.Metrics,
		Config:      cfg,
	}
	if len(result.Snapshots) > 0 {
		meta.Particles = len(result.Snapshots[0])
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if err := writeStates(filepath.Join(runDir, "states.csv"), result); err != nil {
		return "", err
	}
	return runID, nil
}

// createFile writes path through write and closes it. A failed close is
// reported, since buffered data may not have reached the disk.
func createFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return writeAndClose(f, write)
}

func writeAndClose(wc io.WriteCloser, write func(io.Writer) error) (err error) {
	defer func() {
		if cerr := wc.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	return write(wc)
}

func writeJSON(path string, v any) error {
	return createFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func writeStates(path string, result *sim.Result) error {
	return createFile(path, func(w io.Writer) error { return encodeStates(w, result) })
}

func encodeStates(out io.Writer, result *sim.Result) error {
	w := csv.NewWriter(out)

	if len(result.Snapshots) > 0 {
		header := []string{"time"}
		for i := range result.Snapshots[0] {
			for _, c := range [...]string{"x", "y", "z", "vx", "vy", "vz", "m"} {
				header = append(header, fmt.Sprintf("%s%d", c, i))
			}
		}
		if err := w.Write(header); err != nil {
			return err
		}
	}

	for i, snap := range result.Snapshots {
		row := make([]string, 0, 1+particleColumns*len(snap))
		row = append(row, formatFloat(result.Times[i]))
		for _, p := range snap {
			for _, v := range [...]float64{p.Pos.X, p.Pos.Y, p.Pos.Z, p.Vel.X, p.Vel.Y, p.Vel.Z, p.Mass} {
				row = append(row, formatFloat(v))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns the runs under the base directory, oldest first.
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

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadStates reads the snapshots of a run back. Accelerations and radii are
// not stored and come back zero.
func (s *Store) LoadStates(runID string) ([][]dynamo.Particle, []float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("run %s: %w", runID, err)
	}

	if len(records) < 2 {
		return [][]dynamo.Particle{}, []float64{}, nil
	}

	if (len(records[0])-1)%particleColumns != 0 {
		return nil, nil, fmt.Errorf("run %s: %d columns is not a whole number of particles", runID, len(records[0]))
	}
	n := (len(records[0]) - 1) / particleColumns

	times := make([]float64, 0, len(records)-1)
	snaps := make([][]dynamo.Particle, 0, len(records)-1)

	for line, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("run %s: line %d: %w", runID, line+2, err)
			}
			vals[j] = v
		}

		snap := make([]dynamo.Particle, n)
		for i := range snap {
			c := vals[1+i*particleColumns:]
			snap[i] = dynamo.Particle{
				Pos:  r3.Vec{X: c[0], Y: c[1], Z: c[2]},
				Vel:  r3.Vec{X: c[3], Y: c[4], Z: c[5]},
				Mass: c[6],
			}
		}
		times = append(times, vals[0])
		snaps = append(snaps, snap)
	}

	return snaps, times, nil
}
