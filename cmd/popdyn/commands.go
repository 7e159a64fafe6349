package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/popdyn/internal/analysis"
	"github.com/san-kum/popdyn/internal/config"
	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/ecology"
	"github.com/san-kum/popdyn/internal/export"
	"github.com/san-kum/popdyn/internal/integrators"
	"github.com/san-kum/popdyn/internal/sim"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	kind, err := modelArg(args)
	if err != nil {
		return err
	}
	p, err := resolveParams(kind)
	if err != nil {
		return err
	}
	opts, err := sessionOptions(integrator)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	log.WithFields(logrus.Fields{"model": kind, "steps": steps, "integrator": integrator}).Info("running simulation")
	start := time.Now()
	snap, err := sim.RunHeadless(ctx, p, opts, steps)
	if err != nil {
		return err
	}
	log.WithField("elapsed", time.Since(start)).Debug("simulation finished")

	out := cmd.OutOrStdout()
	if csvPath != "-" && jsonPath != "-" {
		printSummary(out, snap)
	}
	if plot {
		_, n1, n2 := snap.Series()
		fmt.Fprintln(out, asciigraph.PlotMany([][]float64{n1, n2},
			asciigraph.Height(15),
			asciigraph.Width(80),
			asciigraph.SeriesColors(asciigraph.Green, asciigraph.Red),
			asciigraph.Caption("N1 (green)  N2 (red)"),
		))
	}

	if csvPath != "" {
		if err := writeTo(csvPath, out, func(w io.Writer) error { return export.WriteCSV(w, snap.History) }); err != nil {
			return err
		}
	}
	if jsonPath != "" {
		run := export.NewRun(snap, integrator, opts.StepSize)
		if err := writeTo(jsonPath, out, func(w io.Writer) error { return export.WriteJSON(w, run) }); err != nil {
			return err
		}
	}
	if svgPath != "" {
		if err := os.WriteFile(svgPath, []byte(export.TimeSeriesSVG(snap.History, 800, 400)), 0644); err != nil {
			return err
		}
		log.WithField("path", svgPath).Info("svg written")
	}
	if phaseSVGPath != "" {
		if err := os.WriteFile(phaseSVGPath, []byte(export.PhaseSVG(snap.History, 500, 500)), 0644); err != nil {
			return err
		}
		log.WithField("path", phaseSVGPath).Info("phase svg written")
	}
	return nil
}

func writeTo(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	log.WithField("path", path).Info("output written")
	return f.Close()
}

func printSummary(w io.Writer, snap sim.Snapshot) {
	fmt.Fprintf(w, "model: %s\n", snap.Model)
	fmt.Fprintf(w, "steps: %d  t = %.2f\n", snap.Steps, snap.ElapsedTime)
	fmt.Fprintf(w, "final: N1 = %.6g  N2 = %.6g\n", snap.State.N1, snap.State.N2)
	fmt.Fprintf(w, "history points: %d\n", snap.HistoryLen)

	if c := snap.Conservation; c != nil {
		status := "conserved"
		if !c.IsConserved {
			status = "DRIFTING"
		}
		fmt.Fprintf(w, "H: initial %.6f  current %.6f  drift %.4f%%  max %.4f%% (%s)\n", c.Initial, c.Current, c.DriftPercent, c.MaxDriftPercent, status)
	}

	wr := snap.Warnings
	if !wr.Any() {
		fmt.Fprintln(w, "warnings: none")
		return
	}
	if wr.HasErrors() {
		fmt.Fprintln(w, "warnings (implausible parameters, results are not biologically meaningful):")
	} else {
		fmt.Fprintln(w, "warnings:")
	}
	if wr.NearExtinction {
		fmt.Fprintln(w, "  near extinction: a population is at or below 1e-6")
	}
	if wr.AttoFoxProblem {
		fmt.Fprintln(w, "  atto-fox: a population is below one individual")
	}
	for _, m := range wr.Messages {
		fmt.Fprintf(w, "  %s\n", m)
	}
}

func listPresets(cmd *cobra.Command, args []string) error {
	kinds := []dynamo.ModelKind{dynamo.Competition, dynamo.PredatorPrey}
	if len(args) == 1 {
		kind, err := dynamo.ParseModelKind(args[0])
		if err != nil {
			return err
		}
		kinds = []dynamo.ModelKind{kind}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tPRESET\tPARAMETERS\tDESCRIPTION")
	for _, kind := range kinds {
		for _, name := range config.ListPresets(kind) {
			pr := config.Presets[kind][name]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", kind, name, formatParams(pr.Params), pr.Description)
		}
	}
	return w.Flush()
}

func formatParams(p ecology.Params) string {
	values := p.GetParams()
	parts := make([]string, 0, len(values))
	for _, name := range ecology.ParamNames(p.Kind()) {
		parts = append(parts, fmt.Sprintf("%s=%g", name, values[name]))
	}
	return strings.Join(parts, " ")
}

func analyzeModel(cmd *cobra.Command, args []string) error {
	kind, err := modelArg(args)
	if err != nil {
		return err
	}
	p, err := resolveParams(kind)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "model: %s\n", kind)
	fmt.Fprintf(out, "parameters: %s\n", formatParams(p))

	eq, ok := analysis.Equilibrium(p)
	if ok {
		fmt.Fprintf(out, "coexistence equilibrium: N1* = %.6g  N2* = %.6g\n", eq.N1, eq.N2)
	} else {
		fmt.Fprintln(out, "coexistence equilibrium: none")
	}

	opts := sim.OptionsFromConfig(cfg)
	// period estimates need an undecimated series
	opts.FullResolution = analyzeSteps
	ctx, cancel := signalContext()
	defer cancel()
	snap, err := sim.RunHeadless(ctx, p, opts, analyzeSteps)
	if err != nil {
		return err
	}

	switch m := p.(type) {
	case *ecology.Competition:
		fmt.Fprintf(out, "outcome: %s\n", analysis.CompetitionOutcome(m))
		fmt.Fprintf(out, "state after %d steps: N1 = %.6g  N2 = %.6g\n", snap.Steps, snap.State.N1, snap.State.N2)
	case *ecology.PredatorPrey:
		times, n1, _ := snap.Series()
		if period, spread, ok := analysis.PeriodFromPeaks(times, analysis.Peaks(n1)); ok {
			fmt.Fprintf(out, "period (peaks): %.4f  (spread %.2f%%)\n", period, spread*100)
		} else {
			fmt.Fprintln(out, "period (peaks): not enough cycles")
		}
		if period := analysis.DominantPeriod(n1, opts.StepSize); period > 0 {
			fmt.Fprintf(out, "period (spectrum): %.4f\n", period)
		}
		fmt.Fprintf(out, "prey crossings of N1*: %d\n", analysis.Crossings(n1, eq.N1))
		if c := snap.Conservation; c != nil {
			fmt.Fprintf(out, "H drift after %d steps: %.6f%% (max %.6f%%)\n", snap.Steps, c.DriftPercent, c.MaxDriftPercent)
		}
	}

	var mark *dynamo.State
	if ok {
		mark = &eq
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, analysis.PhasePortrait(snap.History, mark, 60, 20))

	if sweepParam == "" {
		return nil
	}
	integ := integrators.NewRK4(cfg.ExtinctionFloor)
	points, err := analysis.Sweep(p, integ, sweepParam, sweepFrom, sweepTo, sweepPoints, cfg.StepSize, analyzeSteps/2, analyzeSteps/2)
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tN1 FINAL\tN1 RANGE\tN2 FINAL\tN2 RANGE\n", strings.ToUpper(sweepParam))
	for _, pt := range points {
		fmt.Fprintf(w, "%.4g\t%.4g\t[%.4g, %.4g]\t%.4g\t[%.4g, %.4g]\n",
			pt.Param, pt.Final.N1, pt.Min.N1, pt.Max.N1, pt.Final.N2, pt.Min.N2, pt.Max.N2)
	}
	return w.Flush()
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "comparing integrators for %s (h=%.4f, %d steps)\n\n", kind, cfg.StepSize, steps)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tN1\tN2\tH DRIFT\tMAX DRIFT\tEQ DISTANCE\tTIME")
	eq, hasEq := analysis.Equilibrium(p)
	for _, name := range []string{"rk4", "euler"} {
		opts, err := sessionOptions(name)
		if err != nil {
			return err
		}
		start := time.Now()
		snap, err := sim.RunHeadless(ctx, p, opts, steps)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		drift, maxDrift, dist := "-", "-", "-"
		if c := snap.Conservation; c != nil {
			drift = fmt.Sprintf("%.4f%%", c.DriftPercent)
			maxDrift = fmt.Sprintf("%.4f%%", c.MaxDriftPercent)
		}
		if hasEq && kind == dynamo.Competition {
			dist = fmt.Sprintf("%.3e", math.Hypot(snap.State.N1-eq.N1, snap.State.N2-eq.N2))
		}
		fmt.Fprintf(w, "%s\t%.6g\t%.6g\t%s\t%s\t%s\t%v\n", name, snap.State.N1, snap.State.N2, drift, maxDrift, dist, elapsed.Round(time.Microsecond))
	}
	return w.Flush()
}

func runBatch(cmd *cobra.Command, args []string) error {
	kind, err := modelArg(args)
	if err != nil {
		return err
	}
	names := config.ListPresets(kind)
	params := make([]ecology.Params, len(names))
	for i, name := range names {
		params[i] = config.GetPreset(kind, name)
	}

	ctx, cancel := signalContext()
	defer cancel()
	results, err := sim.NewBatch(sim.OptionsFromConfig(cfg), steps).Run(ctx, params)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tN1\tN2\tH DRIFT\tWARNINGS")
	for i, snap := range results {
		drift := "-"
		if c := snap.Conservation; c != nil {
			drift = fmt.Sprintf("%.4f%%", c.DriftPercent)
		}
		fmt.Fprintf(w, "%s\t%.6g\t%.6g\t%s\t%s\n", names[i], snap.State.N1, snap.State.N2, drift, warningFlags(snap))
	}
	return w.Flush()
}

func warningFlags(snap sim.Snapshot) string {
	var flags []string
	if snap.Warnings.NearExtinction {
		flags = append(flags, "near-extinction")
	}
	if snap.Warnings.AttoFoxProblem {
		flags = append(flags, "atto-fox")
	}
	if n := len(snap.Warnings.Messages); n > 0 {
		flags = append(flags, fmt.Sprintf("%d parameter", n))
	}
	if len(flags) == 0 {
		return "none"
	}
	return strings.Join(flags, ", ")
}
