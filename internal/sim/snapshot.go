package sim

import (
	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/metrics"
)

// Snapshot is a read-only copy of a session. Mutating it never affects
// the session it came from.
type Snapshot struct {
	ID           string                     `json:"id"`
	Model        dynamo.ModelKind           `json:"model_type"`
	Parameters   map[string]float64         `json:"parameters"`
	Running      bool                       `json:"running"`
	ElapsedTime  float64                    `json:"elapsed_time"`
	Steps        int                        `json:"steps"`
	State        dynamo.State               `json:"current_state"`
	Conservation *metrics.ConservedQuantity `json:"conserved_quantity,omitempty"`
	Warnings     metrics.Warnings           `json:"realism_warnings"`
	History      []dynamo.TrajectoryPoint   `json:"history"`
	HistoryLen   int                        `json:"history_len"`
}

// Series splits the history into N1 and N2 columns.
func (s Snapshot) Series() (times, n1, n2 []float64) {
	times = make([]float64, len(s.History))
	n1 = make([]float64, len(s.History))
	n2 = make([]float64, len(s.History))
	for i, p := range s.History {
		times[i], n1[i], n2[i] = p.Time, p.N1, p.N2
	}
	return times, n1, n2
}
