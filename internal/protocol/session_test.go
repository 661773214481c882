package protocol_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/abfsim/internal/dynamo"
	"github.com/san-kum/abfsim/internal/env"
	"github.com/san-kum/abfsim/internal/integrators"
	"github.com/san-kum/abfsim/internal/ledger"
	"github.com/san-kum/abfsim/internal/protocol"
	"github.com/san-kum/abfsim/internal/swimmer"
)

func newEnv(cfg env.Config, opts ...env.Option) *env.Environment {
	coeffs, err := swimmer.NewCoefficients([]float64{1, 2}, []float64{2, 3})
	Expect(err).NotTo(HaveOccurred())
	e, err := env.New(cfg, coeffs, rand.New(rand.NewSource(7)), opts...)
	Expect(err).NotTo(HaveOccurred())
	return e
}

var _ = Describe("Session", func() {
	var (
		cfg env.Config
		ctx context.Context
	)

	BeforeEach(func() {
		cfg = env.DefaultConfig()
		cfg.MaxSteps = 5
		cfg.SuccessRadius = 0
		ctx = context.Background()
	})

	It("plays episodes against a scripted agent and records them", func() {
		agent := protocol.NewScripted(protocol.Constant(0.5))
		s := protocol.NewSession(newEnv(cfg), protocol.NewConn(agent))
		s.MaxEpisodes = 3
		s.Ledger = ledger.NewMemoryLedger()
		Expect(s.Ledger.Init(ctx)).To(Succeed())

		Expect(s.Run(ctx)).To(Succeed())
		Expect(s.Episodes()).To(Equal(3))

		Expect(agent.Sent[0].Kind).To(Equal(protocol.KindDimensions))
		Expect(agent.Sent[0].Observations).To(Equal(2))
		Expect(agent.Sent[0].Actions).To(Equal(1))
		Expect(agent.Sent[1].Lower).To(Equal([]float64{cfg.ActionLow}))
		Expect(agent.Sent[1].Upper).To(Equal([]float64{cfg.ActionHigh}))
		Expect(agent.Sent[1].Bounded).To(BeTrue())
		Expect(agent.Sent[2].Mask).To(Equal([]bool{true, true}))

		episodes := agent.Episodes()
		Expect(episodes).To(HaveLen(3))
		for _, ep := range episodes {
			Expect(ep).To(HaveLen(cfg.MaxSteps + 1))
			Expect(ep[0].Kind).To(Equal(protocol.KindInitialState))
			Expect(ep[len(ep)-1].Kind).To(Equal(protocol.KindFinalState))
		}

		recorded, err := s.Ledger.Episodes(ctx, s.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(recorded).To(HaveLen(3))
		for i, ep := range recorded {
			Expect(ep.Index).To(Equal(i))
			Expect(ep.Status).To(Equal("failure"))
			Expect(ep.Steps).To(Equal(cfg.MaxSteps))
		}
	})

	It("sums rewards into the episode return", func() {
		agent := protocol.NewScripted(protocol.Constant(-1))
		s := protocol.NewSession(newEnv(cfg), protocol.NewConn(agent))
		s.MaxEpisodes = 1
		s.Ledger = ledger.NewMemoryLedger()
		Expect(s.Ledger.Init(ctx)).To(Succeed())
		Expect(s.Run(ctx)).To(Succeed())

		sum := 0.0
		for _, m := range agent.Episodes()[0][1:] {
			sum += m.Reward
		}
		recorded, err := s.Ledger.Episodes(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(recorded[0].Return).To(BeNumerically("~", sum, 1e-12))
	})

	It("ends with a terminal state on success", func() {
		cfg.SuccessRadius = 1e6
		agent := protocol.NewScripted(protocol.Constant(0))
		s := protocol.NewSession(newEnv(cfg), protocol.NewConn(agent))
		s.MaxEpisodes = 1
		Expect(s.Run(ctx)).To(Succeed())

		ep := agent.Episodes()[0]
		Expect(ep).To(HaveLen(2))
		Expect(ep[1].Kind).To(Equal(protocol.KindTerminalState))
		Expect(ep[1].Reward).To(BeNumerically("~", cfg.SuccessBonus-cfg.TimePenalty*cfg.Dt, 1e-9))
	})

	It("treats an agent disconnect as a clean exit", func() {
		agent := protocol.NewScripted(protocol.Constant(0.5))
		agent.MaxActions = 7
		s := protocol.NewSession(newEnv(cfg), protocol.NewConn(agent))

		Expect(s.Run(ctx)).To(Succeed())
		Expect(s.Episodes()).To(Equal(1))
	})

	It("stops when the context is canceled", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		s := protocol.NewSession(newEnv(cfg), protocol.NewConn(protocol.NewScripted(protocol.Constant(0))))
		Expect(s.Run(cctx)).To(MatchError(context.Canceled))
	})

	It("surfaces integration failures", func() {
		rk := integrators.NewRK45()
		rk.MaxSteps = 1
		cfg.Dt = 50
		s := protocol.NewSession(newEnv(cfg, env.WithSolver(rk)), protocol.NewConn(protocol.NewScripted(protocol.Constant(5))))

		err := s.Run(ctx)
		Expect(err).To(MatchError(dynamo.ErrIntegration))
	})

	It("serves an agent over a JSON stream", func() {
		toAgentR, toAgentW := io.Pipe()
		fromAgentR, fromAgentW := io.Pipe()

		go func() {
			defer GinkgoRecover()
			sc := bufio.NewScanner(toAgentR)
			enc := json.NewEncoder(fromAgentW)
			episodes := 0
			for sc.Scan() {
				var m protocol.Message
				Expect(json.Unmarshal(sc.Bytes(), &m)).To(Succeed())
				if m.EndsEpisode() {
					episodes++
					if episodes == 2 {
						fromAgentW.Close()
						_, _ = io.Copy(io.Discard, toAgentR)
						return
					}
				}
				if m.RequestsAction() {
					Expect(enc.Encode(protocol.Message{Kind: protocol.KindAction, Seq: m.Seq, Action: []float64{0.5}})).To(Succeed())
				}
			}
		}()

		s := protocol.NewSession(newEnv(cfg), protocol.NewConn(protocol.NewStream(fromAgentR, toAgentW)))
		err := s.Run(ctx)
		toAgentW.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Episodes()).To(Equal(2))
	})
})
