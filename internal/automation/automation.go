package automation

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/popdyn/internal/config"
	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/ecology"
	"github.com/san-kum/popdyn/internal/export"
	"github.com/san-kum/popdyn/internal/integrators"
	"github.com/san-kum/popdyn/internal/sim"
)

// Scenario defines a scripted sequence of headless runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. Params are applied on top of Preset, or on
// top of the configured defaults when Preset is empty.
type ScenarioStep struct {
	Model      dynamo.ModelKind   `yaml:"model"`
	Preset     string             `yaml:"preset"`
	Integrator string             `yaml:"integrator"`
	Steps      int                `yaml:"steps"`
	Params     map[string]float64 `yaml:"params"`
	SaveAs     string             `yaml:"save_as"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%s: scenario has no steps", path)
	}
	return &scenario, nil
}

// StepParams resolves the parameter set of one step against cfg.
func StepParams(cfg *config.Config, step ScenarioStep) (ecology.Params, error) {
	p := cfg.Params(step.Model)
	if step.Preset != "" {
		p = config.GetPreset(step.Model, step.Preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q for %s", step.Preset, step.Model)
		}
	}
	if len(step.Params) == 0 {
		return p, nil
	}
	return ecology.ApplyAll(p, step.Params)
}

// RunScenario executes every step in order. Steps with SaveAs write the
// run as JSON into dir.
func RunScenario(ctx context.Context, scenario *Scenario, cfg *config.Config, dir string, log *logrus.Entry) ([]sim.Snapshot, error) {
	results := make([]sim.Snapshot, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		log := log.WithFields(logrus.Fields{"step": i + 1, "model": step.Model})

		p, err := StepParams(cfg, step)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		name := step.Integrator
		if name == "" {
			name = "rk4"
		}
		integ, ok := integrators.ByName(name, cfg.ExtinctionFloor)
		if !ok {
			return results, fmt.Errorf("step %d: unknown integrator %q", i+1, name)
		}
		opts := sim.OptionsFromConfig(cfg)
		opts.Integrator = integ

		n := step.Steps
		if n <= 0 {
			n = config.DefaultFullResolution
		}

		log.WithField("steps", n).Info("running scenario step")
		snap, err := sim.RunHeadless(ctx, p, opts, n)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		results = append(results, snap)

		if step.SaveAs == "" {
			continue
		}
		path := filepath.Join(dir, step.SaveAs)
		if err := saveRun(path, export.NewRun(snap, name, opts.StepSize)); err != nil {
			return results, fmt.Errorf("step %d save: %w", i+1, err)
		}
		log.WithField("path", path).Info("run saved")
	}

	return results, nil
}

func saveRun(path string, run export.Run) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteJSON(f, run); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// MonteCarloConfig perturbs the initial populations of Params.
type MonteCarloConfig struct {
	Params ecology.Params
	// Perturbation is the relative half-width of the uniform jitter
	// applied to N1_0 and N2_0.
	Perturbation float64
	NumTrials    int
	Steps        int
	Seed         int64
}

// Fate classifies where a trial ended up.
type Fate int

const (
	Coexist Fate = iota
	Species1Only
	Species2Only
	BothExtinct
)

func (f Fate) String() string {
	switch f {
	case Coexist:
		return "coexist"
	case Species1Only:
		return "species 1 only"
	case Species2Only:
		return "species 2 only"
	}
	return "both extinct"
}

type MonteCarloResult struct {
	TrialID    int
	InitState  dynamo.State
	FinalState dynamo.State
	Fate       Fate
}

// extinct is the population below which a species counts as lost.
const extinct = 1e-3

func fateOf(x dynamo.State) Fate {
	a, b := x.N1 > extinct, x.N2 > extinct
	switch {
	case a && b:
		return Coexist
	case a:
		return Species1Only
	case b:
		return Species2Only
	}
	return BothExtinct
}

// RunMonteCarlo executes NumTrials runs with jittered initial
// populations. A zero seed draws one from the clock.
func RunMonteCarlo(ctx context.Context, cfg MonteCarloConfig, opts sim.Options) ([]MonteCarloResult, error) {
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	base := cfg.Params.Initial()

	for trial := 0; trial < cfg.NumTrials; trial++ {
		init := dynamo.State{
			N1: base.N1 * (1 + (rng.Float64()-0.5)*2*cfg.Perturbation),
			N2: base.N2 * (1 + (rng.Float64()-0.5)*2*cfg.Perturbation),
		}
		p, err := ecology.ApplyAll(cfg.Params, map[string]float64{"N1_0": init.N1, "N2_0": init.N2})
		if err != nil {
			return nil, err
		}

		snap, err := sim.RunHeadless(ctx, p, opts, cfg.Steps)
		if err != nil {
			return results, err
		}

		results = append(results, MonteCarloResult{
			TrialID:    trial,
			InitState:  init,
			FinalState: snap.State,
			Fate:       fateOf(snap.State),
		})
	}

	return results, nil
}

// MonteCarloStats counts trials per fate.
func MonteCarloStats(results []MonteCarloResult) map[Fate]int {
	counts := make(map[Fate]int)
	for _, r := range results {
		counts[r.Fate]++
	}
	return counts
}
