package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/popdyn/internal/automation"
	"github.com/san-kum/popdyn/internal/config"
	"github.com/san-kum/popdyn/internal/optim"
	"github.com/san-kum/popdyn/internal/sim"
)

func runScenarioFile(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	results, err := automation.RunScenario(ctx, sc, cfg, outDir, log)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tMODEL\tT\tN1\tN2\tWARNINGS")
	for i, snap := range results {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%.6g\t%.6g\t%s\n", i+1, snap.Model, snap.ElapsedTime, snap.State.N1, snap.State.N2, warningFlags(snap))
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	kind, err := modelArg(args)
	if err != nil {
		return err
	}
	p, err := resolveParams(kind)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	results, err := automation.RunMonteCarlo(ctx, automation.MonteCarloConfig{
		Params:       p,
		Perturbation: perturb,
		NumTrials:    trials,
		Steps:        steps,
		Seed:         seed,
	}, sim.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}

	counts := automation.MonteCarloStats(results)
	fates := []automation.Fate{automation.Coexist, automation.Species1Only, automation.Species2Only, automation.BothExtinct}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FATE\tTRIALS\tSHARE")
	for _, f := range fates {
		fmt.Fprintf(w, "%s\t%d\t%.1f%%\n", f, counts[f], 100*float64(counts[f])/float64(len(results)))
	}
	return w.Flush()
}

// parseGrid reads name=lo:hi:n axes.
func parseGrid(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, s := range specs {
		name, raw, ok := strings.Cut(s, "=")
		parts := strings.Split(raw, ":")
		if !ok || len(parts) != 3 {
			return nil, nil, fmt.Errorf("--grid %q: want name=lo:hi:n", s)
		}
		lo, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("--grid %q: %w", s, err)
		}
		hi, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("--grid %q: %w", s, err)
		}
		n, err := strconv.Atoi(parts[2])
		if err != nil || n < 1 {
			return nil, nil, fmt.Errorf("--grid %q: bad point count", s)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, optim.Linspace(lo, hi, n))
	}
	return names, ranges, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	kind, err := modelArg(args)
	if err != nil {
		return err
	}
	p, err := resolveParams(kind)
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(grid)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("at least one --grid axis is required")
	}

	var obj optim.Objective
	switch objective {
	case "drift":
		obj = optim.Drift
	case "persistence":
		obj = optim.Persistence
	default:
		return fmt.Errorf("unknown objective: %s (available: drift, persistence)", objective)
	}

	ctx, cancel := signalContext()
	defer cancel()
	best, score, err := optim.NewGridSearch(names, ranges).Search(ctx, p, sim.OptionsFromConfig(cfg), steps, obj)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := cmd.OutOrStdout()
	for _, k := range keys {
		fmt.Fprintf(out, "%s = %.6g\n", k, best[k])
	}
	fmt.Fprintf(out, "%s score: %.6g\n", objective, score)
	return nil
}

// initConfig writes the active configuration to a file, with the
// model's defaults replaced by --preset and --set when given.
func initConfig(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	kind, err := modelArg(args[1:])
	if err != nil {
		return err
	}
	p, err := resolveParams(kind)
	if err != nil {
		return err
	}

	out := *cfg
	out.Model = kind
	out.SetParams(p)
	if err := out.Validate(); err != nil {
		return err
	}
	if err := config.Save(path, &out); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (model %s)\n", path, kind)
	return nil
}
