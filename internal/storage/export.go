package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/keplersim/internal/config"
	"github.com/san-kum/keplersim/internal/dynamo"
	"github.com/san-kum/keplersim/internal/sim"
)

type ParticleState struct {
	Pos  [3]float64 `json:"pos"`
	Vel  [3]float64 `json:"vel"`
	Mass float64    `json:"m"`
}

type ExportData struct {
	Integrator string             `json:"integrator"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	G          float64            `json:"g"`
	Steps      int                `json:"steps"`
	Flagged    []FlaggedStep      `json:"flagged,omitempty"`
	Times      []float64          `json:"times"`
	Snapshots  [][]ParticleState  `json:"snapshots"`
	Metrics    map[string]float64 `json:"metrics"`
}

type FlaggedStep struct {
	Index int     `json:"index"`
	Step  int     `json:"step"`
	Time  float64 `json:"t"`
	Err   string  `json:"err"`
}

func newExportData(cfg *config.Config, result *sim.Result) ExportData {
	data := ExportData{
		Integrator: result.Integrator,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		G:          cfg.G,
		Steps:      result.StepsTaken,
		Times:      result.Times,
		Snapshots:  make([][]ParticleState, len(result.Snapshots)),
		Metrics:    result.Metrics,
	}
	for i, snap := range result.Snapshots {
		data.Snapshots[i] = particleStates(snap)
	}
	for _, o := range result.Flagged {
		data.Flagged = append(data.Flagged, FlaggedStep{Index: o.Index, Step: o.Step, Time: o.Time, Err: o.Err.Error()})
	}
	return data
}

func particleStates(ps []dynamo.Particle) []ParticleState {
	out := make([]ParticleState, len(ps))
	for i, p := range ps {
		out[i] = ParticleState{
			Pos:  [3]float64{p.Pos.X, p.Pos.Y, p.Pos.Z},
			Vel:  [3]float64{p.Vel.X, p.Vel.Y, p.Vel.Z},
			Mass: p.Mass,
		}
	}
	return out
}

func ExportJSON(path string, cfg *config.Config, result *sim.Result) error {
	return createFile(path, func(w io.Writer) error { return WriteJSON(w, cfg, result) })
}

// WriteJSON encodes a run to w, indented.
func WriteJSON(w io.Writer, cfg *config.Config, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExportData(cfg, result))
}
