package env_test

import (
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/abfsim/internal/dynamo"
	"github.com/san-kum/abfsim/internal/env"
	"github.com/san-kum/abfsim/internal/integrators"
	"github.com/san-kum/abfsim/internal/swimmer"
)

func newEnv(cfg env.Config, bmb, cmb []float64, seed int64, opts ...env.Option) *env.Environment {
	coeffs, err := swimmer.NewCoefficients(bmb, cmb)
	Expect(err).NotTo(HaveOccurred())
	e, err := env.New(cfg, coeffs, rand.New(rand.NewSource(seed)), opts...)
	Expect(err).NotTo(HaveOccurred())
	return e
}

func sumAbs(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += math.Abs(v)
	}
	return s
}

var _ = Describe("Environment", func() {
	var cfg env.Config

	BeforeEach(func() {
		cfg = env.DefaultConfig()
	})

	Describe("construction", func() {
		It("rejects a non-positive dt", func() {
			cfg.Dt = 0
			coeffs, _ := swimmer.NewCoefficients([]float64{1}, []float64{1})
			_, err := env.New(cfg, coeffs, rand.New(rand.NewSource(1)))
			Expect(err).To(MatchError(dynamo.ErrConfig))
		})

		DescribeTable("rejects a malformed box or radius",
			func(modify func(*env.Config)) {
				modify(&cfg)
				Expect(cfg.Validate()).To(MatchError(dynamo.ErrConfig))
			},
			Entry("negative box", func(c *env.Config) { c.BoxLength = -1 }),
			Entry("NaN box", func(c *env.Config) { c.BoxLength = math.NaN() }),
			Entry("infinite box", func(c *env.Config) { c.BoxLength = math.Inf(1) }),
			Entry("negative radius", func(c *env.Config) { c.SuccessRadius = -1 }),
			Entry("NaN radius", func(c *env.Config) { c.SuccessRadius = math.NaN() }),
			Entry("infinite radius", func(c *env.Config) { c.SuccessRadius = math.Inf(1) }),
		)

		It("requires a random source", func() {
			coeffs, _ := swimmer.NewCoefficients([]float64{1}, []float64{1})
			_, err := env.New(cfg, coeffs, nil)
			Expect(err).To(MatchError(dynamo.ErrConfig))
		})

		It("starts uninitialized and refuses to advance", func() {
			e := newEnv(cfg, []float64{1}, []float64{1}, 1)
			Expect(e.Status()).To(Equal(env.Uninitialized))
			_, err := e.Advance([]float64{0})
			Expect(err).To(MatchError(dynamo.ErrProtocol))
		})
	})

	Describe("Reset", func() {
		It("draws positions inside the box with zero orientations", func() {
			cfg.BoxLength = 40
			e := newEnv(cfg, []float64{1, 1, 1}, []float64{1, 2, 3}, 7)
			e.Reset()

			s := e.State()
			Expect(s.X).To(HaveLen(3))
			for i := range s.X {
				Expect(s.X[i]).To(BeNumerically(">=", -20))
				Expect(s.X[i]).To(BeNumerically("<=", 20))
				Expect(s.Theta[i]).To(BeZero())
			}
			Expect(s.ThetaB).To(BeZero())
			Expect(e.Steps()).To(BeZero())
			Expect(e.Status()).To(Equal(env.Running))
		})

		It("is reproducible for a given seed", func() {
			a := newEnv(cfg, []float64{1, 1}, []float64{1, 2}, 42)
			b := newEnv(cfg, []float64{1, 1}, []float64{1, 2}, 42)
			for i := 0; i < 3; i++ {
				a.Reset()
				b.Reset()
				Expect(a.Observation()).To(Equal(b.Observation()))
			}
		})

		It("replaces a terminated episode", func() {
			e := newEnv(cfg, []float64{1}, []float64{2}, 1)
			Expect(e.ResetTo([]float64{0})).To(Succeed())
			status, err := e.Advance([]float64{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(env.Success))

			e.Reset()
			Expect(e.Status()).To(Equal(env.Running))
			Expect(e.Steps()).To(BeZero())
		})

		It("rejects explicit positions of the wrong length", func() {
			e := newEnv(cfg, []float64{1}, []float64{2}, 1)
			Expect(e.ResetTo([]float64{0, 1})).To(MatchError(dynamo.ErrConfig))
		})
	})

	Describe("termination", func() {
		BeforeEach(func() {
			cfg.Dt = 0.1
		})

		It("succeeds on the first step when already inside the radius", func() {
			e := newEnv(cfg, []float64{1}, []float64{2}, 1)
			Expect(e.ResetTo([]float64{0})).To(Succeed())

			status, err := e.Advance([]float64{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(env.Success))
			Expect(e.Steps()).To(Equal(1))
		})

		It("fails at exactly max steps when the target is never reached", func() {
			cfg.SuccessRadius = 0
			e := newEnv(cfg, []float64{1}, []float64{2}, 1)
			Expect(e.ResetTo([]float64{0})).To(Succeed())

			var status env.Status
			for status = env.Running; status == env.Running; {
				var err error
				status, err = e.Advance([]float64{0})
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(status).To(Equal(env.Failure))
			Expect(e.Steps()).To(Equal(500))
			Expect(e.Observation()).To(Equal([]float64{0}))
		})

		It("prefers failure when the limit and the target coincide", func() {
			cfg.MaxSteps = 1
			e := newEnv(cfg, []float64{1}, []float64{2}, 1)
			Expect(e.ResetTo([]float64{0})).To(Succeed())

			status, err := e.Advance([]float64{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(env.Failure))
		})

		It("is sticky until the next reset", func() {
			e := newEnv(cfg, []float64{1}, []float64{2}, 1)
			Expect(e.ResetTo([]float64{0})).To(Succeed())
			_, err := e.Advance([]float64{0})
			Expect(err).NotTo(HaveOccurred())

			status, err := e.Advance([]float64{0})
			Expect(err).To(MatchError(dynamo.ErrProtocol))
			Expect(status).To(Equal(env.Success))
		})

		It("rejects a malformed action", func() {
			e := newEnv(cfg, []float64{1}, []float64{2}, 1)
			e.Reset()
			_, err := e.Advance([]float64{1, 2})
			Expect(err).To(MatchError(dynamo.ErrProtocol))
			Expect(e.Status()).To(Equal(env.Running))
		})

		It("fails the episode on an integration error", func() {
			solver := integrators.NewRK45()
			solver.MaxSteps = 1
			cfg.Dt = 50
			e := newEnv(cfg, []float64{1}, []float64{1}, 1, env.WithSolver(solver))
			Expect(e.ResetTo([]float64{10})).To(Succeed())

			status, err := e.Advance([]float64{5})
			Expect(err).To(MatchError(dynamo.ErrIntegration))
			Expect(status).To(Equal(env.Failure))

			_, err = e.Advance([]float64{5})
			Expect(err).To(MatchError(dynamo.ErrProtocol))
		})
	})

	Describe("Observation", func() {
		It("returns a copy of the positions only", func() {
			e := newEnv(cfg, []float64{1, 1}, []float64{1, 2}, 3)
			e.Reset()
			obs := e.Observation()
			Expect(obs).To(HaveLen(2))
			obs[0] = 1e9
			Expect(e.Observation()[0]).NotTo(Equal(1e9))
		})
	})

	Describe("Reward", func() {
		It("adds the success bonus on the terminal step", func() {
			cfg.Dt = 0.1
			e := newEnv(cfg, []float64{1}, []float64{2}, 1)
			Expect(e.ResetTo([]float64{0.5})).To(Succeed())

			status, err := e.Advance([]float64{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(env.Success))
			Expect(e.Reward()).To(BeNumerically("~", -0.1+10, 1e-12))
		})

		It("is stable when read twice in one step", func() {
			cfg.Dt = 0.1
			e := newEnv(cfg, []float64{1}, []float64{2}, 1)
			Expect(e.ResetTo([]float64{3})).To(Succeed())

			_, err := e.Advance([]float64{1})
			Expect(err).NotTo(HaveOccurred())
			first := e.Reward()
			Expect(e.Reward()).To(Equal(first))
			Expect(first).To(BeNumerically("~", -0.1+3-math.Abs(e.Observation()[0]), 1e-12))

			Expect(e.ResetTo([]float64{0.5})).To(Succeed())
			status, err := e.Advance([]float64{0})
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(env.Success))
			bonus := e.Reward()
			Expect(bonus).To(BeNumerically(">", 9))
			Expect(e.Reward()).To(Equal(bonus))
		})

		DescribeTable("telescopes over an episode",
			func(seed int64, maxSteps int, radius float64) {
				cfg.MaxSteps = maxSteps
				cfg.SuccessRadius = radius
				cfg.BoxLength = 10
				e := newEnv(cfg, []float64{1, 0.8}, []float64{1, 2}, seed)
				e.Reset()
				initial := sumAbs(e.Observation())

				policy := rand.New(rand.NewSource(seed + 1))
				total := 0.0
				status := env.Running
				for status == env.Running {
					var err error
					status, err = e.Advance([]float64{-5 + 10*policy.Float64()})
					Expect(err).NotTo(HaveOccurred())
					total += e.Reward()
				}

				want := -cfg.Dt*float64(e.Steps()) + initial - sumAbs(e.Observation())
				if status == env.Success {
					want += cfg.SuccessBonus
				}
				Expect(total).To(BeNumerically("~", want, 1e-9))
			},
			Entry("short episode", int64(1), 20, 1.0),
			Entry("full horizon", int64(2), 60, 0.0),
			Entry("large radius", int64(3), 50, 6.0),
		)
	})
})
