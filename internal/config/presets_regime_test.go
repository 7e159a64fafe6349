package config_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/popdyn/internal/analysis"
	"github.com/san-kum/popdyn/internal/config"
	"github.com/san-kum/popdyn/internal/dynamo"
	"github.com/san-kum/popdyn/internal/sim"
)

func runPreset(kind dynamo.ModelKind, name string, steps int) sim.Snapshot {
	p := config.GetPreset(kind, name)
	Expect(p).NotTo(BeNil(), "preset %s", name)
	snap, err := sim.RunHeadless(context.Background(), p, sim.DefaultOptions(), steps)
	Expect(err).NotTo(HaveOccurred())
	return snap
}

var _ = Describe("Competition presets", func() {
	It("settles the coexistence preset on its interior equilibrium", func() {
		eq, ok := analysis.Equilibrium(config.GetPreset(dynamo.Competition, "coexistence"))
		Expect(ok).To(BeTrue())

		snap := runPreset(dynamo.Competition, "coexistence", 4000)
		Expect(snap.State.N1).To(BeNumerically("~", eq.N1, 1e-6))
		Expect(snap.State.N2).To(BeNumerically("~", eq.N2, 1e-6))
		Expect(snap.Warnings.NearExtinction).To(BeFalse())
	})

	It("drives species 2 out under exclusion", func() {
		snap := runPreset(dynamo.Competition, "exclusion", 4000)
		Expect(snap.State.N1).To(BeNumerically("~", 120, 1e-3))
		Expect(snap.State.N2).To(BeNumerically("<=", dynamo.ExtinctionFloor))
		Expect(snap.Warnings.NearExtinction).To(BeTrue())
	})

	DescribeTable("bistable winner follows the head start",
		func(n10, n20 float64, winner func(dynamo.State) float64) {
			p := config.GetPreset(dynamo.Competition, "bistable")
			Expect(p.SetParam("N1_0", n10)).To(Succeed())
			Expect(p.SetParam("N2_0", n20)).To(Succeed())

			snap, err := sim.RunHeadless(context.Background(), p, sim.DefaultOptions(), 4000)
			Expect(err).NotTo(HaveOccurred())
			Expect(winner(snap.State)).To(BeNumerically("~", 100, 1e-3))
		},
		Entry("species 1 ahead", 55.0, 45.0, func(x dynamo.State) float64 { return x.N1 }),
		Entry("species 2 ahead", 45.0, 55.0, func(x dynamo.State) float64 { return x.N2 }),
	)
})

var _ = Describe("Predator-prey presets", func() {
	It("conserves H on shallow orbits and drifts more on the deep one", func() {
		var textbookDrift float64
		for _, name := range []string{"textbook", "gentle"} {
			snap := runPreset(dynamo.PredatorPrey, name, 2000)
			Expect(snap.Conservation).NotTo(BeNil())
			Expect(snap.Conservation.IsConserved).To(BeTrue(), "preset %s drifted %.4f%%", name, snap.Conservation.DriftPercent)
			if name == "textbook" {
				textbookDrift = snap.Conservation.DriftPercent
			}
		}

		atto := runPreset(dynamo.PredatorPrey, "attofox", 2000)
		Expect(atto.Conservation.DriftPercent).To(BeNumerically(">", textbookDrift))
	})

	It("flags the attofox orbit but not the textbook one", func() {
		Expect(runPreset(dynamo.PredatorPrey, "attofox", 2000).Warnings.AttoFoxProblem).To(BeTrue())

		textbook := runPreset(dynamo.PredatorPrey, "textbook", 2000)
		Expect(textbook.Warnings.AttoFoxProblem).To(BeFalse())
		Expect(textbook.Warnings.NearExtinction).To(BeFalse())
	})

	It("hands out independent copies", func() {
		p := config.GetPreset(dynamo.PredatorPrey, "gentle")
		Expect(p.SetParam("r1", 3)).To(Succeed())
		Expect(config.GetPreset(dynamo.PredatorPrey, "gentle").GetParams()).To(HaveKeyWithValue("r1", 1.0))
	})
})
