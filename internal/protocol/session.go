package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/san-kum/abfsim/internal/env"
	"github.com/san-kum/abfsim/internal/ledger"
)

// Session serves one agent: a single handshake followed by episodes until
// the agent disconnects, the context ends or MaxEpisodes is reached.
type Session struct {
	ID          string
	Env         *env.Environment
	Agent       Agent
	Ledger      ledger.Ledger
	Logger      *log.Logger // tagged with the session ID by the caller
	MaxEpisodes int

	episodes int
}

func NewSession(e *env.Environment, a Agent) *Session {
	return &Session{
		ID:     uuid.NewString(),
		Env:    e,
		Agent:  a,
		Logger: log.New(io.Discard),
	}
}

// Episodes is the number of episodes completed so far.
func (s *Session) Episodes() int { return s.episodes }

// Run performs the handshake and plays episodes. An agent closing the
// stream between or during episodes is a clean exit and returns nil.
func (s *Session) Run(ctx context.Context) error {
	if err := s.handshake(); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	s.Logger.Info("session started", "swimmers", s.Env.Coefficients().Len(), "max_steps", s.Env.Config().MaxSteps)

	for s.MaxEpisodes <= 0 || s.episodes < s.MaxEpisodes {
		if err := ctx.Err(); err != nil {
			return err
		}

		ep, err := s.playEpisode(ctx)
		if errors.Is(err, io.EOF) {
			s.Logger.Info("agent disconnected", "episodes", s.episodes)
			return nil
		}
		if err != nil {
			return fmt.Errorf("episode %d: %w", s.episodes, err)
		}

		s.episodes++
		s.Logger.Info("episode finished",
			"index", ep.Index, "status", ep.Status, "steps", ep.Steps, "return", ep.Return)
		if s.Ledger != nil {
			if err := s.Ledger.Record(ctx, ep); err != nil {
				return fmt.Errorf("record episode %d: %w", ep.Index, err)
			}
		}
	}
	return nil
}

func (s *Session) handshake() error {
	n := s.Env.Coefficients().Len()
	cfg := s.Env.Config()

	if err := s.Agent.DeclareDimensions(n, 1); err != nil {
		return err
	}
	if err := s.Agent.DeclareActionBounds([]float64{cfg.ActionLow}, []float64{cfg.ActionHigh}, true); err != nil {
		return err
	}
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = true
	}
	return s.Agent.DeclareObservationMask(mask)
}

func (s *Session) playEpisode(ctx context.Context) (ledger.Episode, error) {
	started := time.Now()
	s.Env.Reset()

	ep := ledger.Episode{
		SessionID:       s.ID,
		Index:           s.episodes,
		StartedAt:       started,
		InitialDistance: maxAbs(s.Env.Observation()),
	}

	if err := s.Agent.SendInitialState(s.Env.Observation()); err != nil {
		return ep, err
	}

	for {
		action, err := s.Agent.ReceiveAction(ctx)
		if err != nil {
			return ep, err
		}

		status, err := s.Env.Advance(action)
		if err != nil {
			return ep, err
		}

		obs := s.Env.Observation()
		r := s.Env.Reward()
		ep.Return += r
		s.Logger.Debug("step", "episode", ep.Index, "step", s.Env.Steps(), "w", action[0], "reward", r)

		switch status {
		case env.Success:
			err = s.Agent.SendTerminalState(obs, r)
		case env.Failure:
			err = s.Agent.SendFinalState(obs, r)
		default:
			err = s.Agent.SendStep(obs, r)
		}
		if err != nil {
			return ep, err
		}

		if status.Terminal() {
			ep.Status = status.String()
			ep.Steps = s.Env.Steps()
			ep.FinalDistance = maxAbs(obs)
			ep.Elapsed = time.Since(started)
			return ep, nil
		}
	}
}

func maxAbs(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return m
}
