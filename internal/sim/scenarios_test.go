package sim_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/modsim/internal/dynamo"
	"github.com/san-kum/modsim/internal/library/extra"
	"github.com/san-kum/modsim/internal/library/standard"
	"github.com/san-kum/modsim/internal/module"
	"github.com/san-kum/modsim/internal/sim"
	"github.com/san-kum/modsim/internal/solver"
)

type oscillator struct {
	mass, springConstant, x0, v0 float64
}

func (o oscillator) omega() float64 { return math.Sqrt(o.springConstant / o.mass) }

func (o oscillator) position(t float64) float64 {
	w := o.omega()
	return o.x0*math.Cos(w*t) + o.v0/w*math.Sin(w*t)
}

func (o oscillator) amplitude() float64 {
	return math.Hypot(o.x0, o.v0/o.omega())
}

func (o oscillator) energy() float64 {
	return 0.5*o.mass*o.v0*o.v0 + 0.5*o.springConstant*o.x0*o.x0
}

const harmonicTimestep = 0.01

func (o oscillator) spec(std *module.Library) sim.Spec {
	period := 2 * math.Pi / o.omega()
	n := int(math.Floor(period/harmonicTimestep*5)) + 1
	doy := make([]float64, n)
	for i := range doy {
		doy[i] = float64(i) * harmonicTimestep
	}
	return sim.Spec{
		InitialState: dynamo.State{"position": o.x0, "velocity": o.v0},
		Parameters: dynamo.Parameters{
			"mass":            o.mass,
			"spring_constant": o.springConstant,
			"timestep":        harmonicTimestep,
		},
		Drivers:      dynamo.Drivers{"elapsed": doy},
		Direct:       module.Set{std.MustRetrieve("harmonic_energy")},
		Differential: module.Set{std.MustRetrieve("harmonic_oscillator")},
		Solver:       solver.Config{Method: solver.MethodRK4},
	}
}

func thermalSpec(differential ...*module.Creator) sim.Spec {
	return sim.Spec{
		InitialState: dynamo.State{"TTc": 0},
		Parameters:   dynamo.Parameters{"sowing_time": 0, "tbase": 10, "timestep": 1},
		Drivers: dynamo.Drivers{
			"time": {0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
			"temp": {5, 8, 10, 15, 20, 20, 25, 30, 32, 40},
		},
		Differential: differential,
		Solver:       solver.Config{Method: solver.MethodEuler},
	}
}

var _ = Describe("Simulations", func() {
	var (
		ctx context.Context
		std *module.Library
		ext *module.Library
	)

	BeforeEach(func() {
		ctx = context.Background()
		std = standard.Library()
		ext = extra.Library()
	})

	DescribeTable("a harmonic oscillator",
		func(o oscillator) {
			runner, err := sim.NewResetting(o.spec(std))
			Expect(err).NotTo(HaveOccurred())

			result, err := runner.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			a, e0 := o.amplitude(), o.energy()
			crossings := 0
			for i := 0; i < result.Len(); i++ {
				row := result.Row(i)
				Expect(row["position"]).To(BeNumerically("~", o.position(row["elapsed"]), 3e-3*a))
				Expect(row["total_energy"]).To(BeNumerically("~", e0, 9e-4*e0))
				if i > 0 && math.Signbit(result["position"][i]) != math.Signbit(result["position"][i-1]) {
					crossings++
				}
			}
			By("crossing zero twice per period")
			Expect(crossings).To(Equal(10))
		},
		Entry("released from rest", oscillator{mass: 2, springConstant: 8, x0: 1, v0: 0}),
		Entry("launched off centre", oscillator{mass: 5, springConstant: 1.25, x0: -3, v0: 4}),
	)

	Describe("modules from two libraries with the same name", func() {
		It("accumulates thermal time from a single hourly module", func() {
			result, err := sim.NewRunner(sim.ModeReset, thermalSpec(std.MustRetrieve("thermal_time_linear")))
			Expect(err).NotTo(HaveOccurred())

			out, err := result.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Last()["TTc"]).To(BeNumerically("~", 3+5.0/12.0, 1e-12))
		})

		It("adds the contributions of both differential modules", func() {
			runner, err := sim.NewRunner(sim.ModeReset, thermalSpec(
				std.MustRetrieve("thermal_time_linear"),
				ext.MustRetrieve("thermal_time_linear"),
			))
			Expect(err).NotTo(HaveOccurred())

			out, err := runner.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Last()["TTc"]).To(BeNumerically("~", 25*(3+5.0/12.0), 1e-9))
		})

		It("rejects direct modules with overlapping outputs", func() {
			spec := oscillator{mass: 1, springConstant: 1, x0: 1}.spec(std)
			spec.Direct = append(spec.Direct, ext.MustRetrieve("harmonic_energy"))

			_, err := sim.New(spec)
			Expect(err).To(MatchError(dynamo.ErrDuplicateQuantity))
			Expect(err.Error()).To(ContainSubstring("kinetic_energy, spring_energy, total_energy"))
		})
	})

	Describe("repeated runs", func() {
		DescribeTable("idempotent runners produce identical tables",
			func(mode sim.Mode) {
				runner, err := sim.NewRunner(mode, thermalSpec(std.MustRetrieve("thermal_time_linear")))
				Expect(err).NotTo(HaveOccurred())

				first, err := runner.Run(ctx)
				Expect(err).NotTo(HaveOccurred())
				second, err := runner.Run(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(second).To(Equal(first))
			},
			Entry("reset before run", sim.ModeReset),
			Entry("rebuild per run", sim.ModeRebuild),
		)

		It("refuses a second run of a single-use simulator", func() {
			runner, err := sim.NewRunner(sim.ModeSingle, thermalSpec(std.MustRetrieve("thermal_time_linear")))
			Expect(err).NotTo(HaveOccurred())

			_, err = runner.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			_, err = runner.Run(ctx)
			Expect(err).To(MatchError(dynamo.ErrAlreadyRun))
		})

		It("continues a plain simulator from its last state", func() {
			runner, err := sim.NewRunner(sim.ModeContinue, thermalSpec(std.MustRetrieve("thermal_time_linear")))
			Expect(err).NotTo(HaveOccurred())

			first, err := runner.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			second, err := runner.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(second["temp"]).To(Equal(first["temp"]))
			Expect(second.First()["TTc"]).To(Equal(first.Last()["TTc"]))
			Expect(second.Last()["TTc"]).To(BeNumerically("~", 2*first.Last()["TTc"], 1e-12))
		})
	})

	Describe("an unresolved dependency", func() {
		It("fails at construction, never during a run", func() {
			spec := oscillator{mass: 1, springConstant: 1, x0: 1}.spec(std)
			delete(spec.Parameters, "spring_constant")

			for _, mode := range sim.Modes() {
				_, err := sim.NewRunner(mode, spec)
				Expect(err).To(MatchError(dynamo.ErrUnresolvedInput), "mode %s", mode)
				Expect(err.Error()).To(ContainSubstring("spring_constant (required by"))
			}
		})
	})

	Describe("a differential module run twice", func() {
		It("doubles its contribution", func() {
			tt := std.MustRetrieve("thermal_time_linear")
			single, err := sim.NewRunner(sim.ModeReset, thermalSpec(tt))
			Expect(err).NotTo(HaveOccurred())
			double, err := sim.NewRunner(sim.ModeReset, thermalSpec(tt, tt))
			Expect(err).NotTo(HaveOccurred())

			one, err := single.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			two, err := double.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			for i := range one["TTc"] {
				Expect(two["TTc"][i]).To(BeNumerically("~", 2*one["TTc"][i], 1e-12))
			}
		})
	})
})
