package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/metrics"
	"github.com/san-kum/popdyn/internal/sim"
)

// Run is the JSON document written for a finished run.
type Run struct {
	ID           string                     `json:"id"`
	Model        dynamo.ModelKind           `json:"model"`
	Integrator   string                     `json:"integrator"`
	StepSize     float64                    `json:"step_size"`
	Steps        int                        `json:"steps"`
	ElapsedTime  float64                    `json:"elapsed_time"`
	Parameters   map[string]float64         `json:"parameters"`
	Final        dynamo.State               `json:"final_state"`
	Conservation *metrics.ConservedQuantity `json:"conserved_quantity,omitempty"`
	Warnings     metrics.Warnings           `json:"realism_warnings"`
	Trajectory   []dynamo.TrajectoryPoint   `json:"trajectory"`
}

func NewRun(snap sim.Snapshot, integrator string, stepSize float64) Run {
	return Run{
		ID:           snap.ID,
		Model:        snap.Model,
		Integrator:   integrator,
		StepSize:     stepSize,
		Steps:        snap.Steps,
		ElapsedTime:  snap.ElapsedTime,
		Parameters:   snap.Parameters,
		Final:        snap.State,
		Conservation: snap.Conservation,
		Warnings:     snap.Warnings,
		Trajectory:   snap.History,
	}
}

func WriteJSON(w io.Writer, run Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

// WriteCSV writes the trajectory as t,n1,n2 rows under a header.
func WriteCSV(w io.Writer, points []dynamo.TrajectoryPoint) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"t", "n1", "n2"}); err != nil {
		return err
	}
	for _, p := range points {
		row := []string{
			strconv.FormatFloat(p.Time, 'f', 6, 64),
			strconv.FormatFloat(p.N1, 'g', 10, 64),
			strconv.FormatFloat(p.N2, 'g', 10, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
