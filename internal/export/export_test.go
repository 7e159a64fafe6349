package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/sim"
)

var trajectory = []dynamo.TrajectoryPoint{
	{Time: 0, N1: 40, N2: 9},
	{Time: 0.05, N1: 40.5, N2: 8.9},
	{Time: 0.1, N1: 41, N2: 8.85},
}

func TestWriteCSV(t *testing.T) {
	g := NewWithT(t)
	var buf bytes.Buffer
	g.Expect(WriteCSV(&buf, trajectory)).To(Succeed())

	rows, err := csv.NewReader(&buf).ReadAll()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(rows).To(HaveLen(4))
	g.Expect(rows[0]).To(Equal([]string{"t", "n1", "n2"}))
	g.Expect(rows[2]).To(Equal([]string{"0.050000", "40.5", "8.9"}))
}

func TestWriteJSON(t *testing.T) {
	g := NewWithT(t)
	snap := sim.Snapshot{
		ID:         "run-1",
		Model:      dynamo.PredatorPrey,
		Parameters: map[string]float64{"r1": 1},
		Steps:      2,
		State:      trajectory[2].State(),
		History:    trajectory,
	}

	var buf bytes.Buffer
	g.Expect(WriteJSON(&buf, NewRun(snap, "rk4", 0.05))).To(Succeed())

	var decoded map[string]any
	g.Expect(json.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
	g.Expect(decoded).To(HaveKeyWithValue("model", "predator_prey"))
	g.Expect(decoded).To(HaveKeyWithValue("integrator", "rk4"))
	g.Expect(decoded).NotTo(HaveKey("conserved_quantity"))
	g.Expect(decoded["trajectory"]).To(HaveLen(3))
}

func TestSVG(t *testing.T) {
	ts := TimeSeriesSVG(trajectory, 400, 200)
	if !strings.HasPrefix(ts, "<?xml") || strings.Count(ts, "<path") != 2 {
		t.Errorf("time series svg malformed:\n%s", ts)
	}
	ph := PhaseSVG(trajectory, 200, 200)
	if strings.Count(ph, "<path") != 1 || !strings.HasSuffix(ph, "</svg>") {
		t.Errorf("phase svg malformed:\n%s", ph)
	}
	if TimeSeriesSVG(trajectory[:1], 10, 10) != "" {
		t.Error("single point should produce no svg")
	}
}
