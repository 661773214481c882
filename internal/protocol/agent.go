package protocol

import (
	"context"

	"github.com/san-kum/abfsim/internal/dynamo"
)

// Agent is the environment's view of the external learner.
type Agent interface {
	DeclareDimensions(nObservations, nActions int) error
	DeclareActionBounds(lower, upper []float64, hard bool) error
	DeclareObservationMask(mask []bool) error

	SendInitialState(obs []float64) error
	ReceiveAction(ctx context.Context) ([]float64, error)
	SendStep(obs []float64, reward float64) error
	SendFinalState(obs []float64, reward float64) error
	SendTerminalState(obs []float64, reward float64) error
}

type phase int

const (
	phaseHandshake phase = iota
	phaseIdle
	phaseAwaitingAction
	phaseActing
)

func (p phase) String() string {
	switch p {
	case phaseHandshake:
		return "handshake"
	case phaseIdle:
		return "idle"
	case phaseAwaitingAction:
		return "awaiting action"
	case phaseActing:
		return "acting"
	default:
		return "unknown"
	}
}

// Conn is an Agent over a Transport. It enforces the exchange order:
// dimensions first, bounds and mask only before the first episode, one
// action per state request, and no state without a received action except
// the initial state of an episode. Violations return ErrProtocol.
type Conn struct {
	t Transport

	phase   phase
	started bool
	nObs    int
	nAct    int
	seq     uint64
}

func NewConn(t Transport) *Conn {
	return &Conn{t: t}
}

func (c *Conn) DeclareDimensions(nObservations, nActions int) error {
	if c.phase != phaseHandshake {
		return dynamo.Protocolf("dimensions already declared")
	}
	if nObservations <= 0 || nActions <= 0 {
		return dynamo.Protocolf("dimensions must be positive, got (%d, %d)", nObservations, nActions)
	}
	if err := c.t.Send(Message{Kind: KindDimensions, Observations: nObservations, Actions: nActions}); err != nil {
		return err
	}
	c.nObs, c.nAct = nObservations, nActions
	c.phase = phaseIdle
	return nil
}

func (c *Conn) DeclareActionBounds(lower, upper []float64, hard bool) error {
	if err := c.declaring(); err != nil {
		return err
	}
	if len(lower) != c.nAct || len(upper) != c.nAct {
		return dynamo.Protocolf("action bounds need %d components, got (%d, %d)", c.nAct, len(lower), len(upper))
	}
	return c.t.Send(Message{Kind: KindActionBounds, Lower: lower, Upper: upper, Bounded: hard})
}

func (c *Conn) DeclareObservationMask(mask []bool) error {
	if err := c.declaring(); err != nil {
		return err
	}
	if len(mask) != c.nObs {
		return dynamo.Protocolf("observation mask needs %d entries, got %d", c.nObs, len(mask))
	}
	return c.t.Send(Message{Kind: KindObservationMask, Mask: mask})
}

func (c *Conn) declaring() error {
	if c.phase == phaseHandshake {
		return dynamo.Protocolf("dimensions must be declared first")
	}
	if c.started || c.phase != phaseIdle {
		return dynamo.Protocolf("handshake after the first episode started")
	}
	return nil
}

func (c *Conn) SendInitialState(obs []float64) error {
	if c.phase != phaseIdle {
		return dynamo.Protocolf("initial state while %s", c.phase)
	}
	if err := c.checkObs(obs); err != nil {
		return err
	}
	c.started = true
	return c.sendState(KindInitialState, obs, 0, phaseAwaitingAction)
}

func (c *Conn) ReceiveAction(ctx context.Context) ([]float64, error) {
	if c.phase != phaseAwaitingAction {
		return nil, dynamo.Protocolf("action requested while %s", c.phase)
	}

	m, err := c.t.Receive(ctx)
	if err != nil {
		return nil, err
	}
	if m.Kind != KindAction {
		return nil, dynamo.Protocolf("expected action, got %q", m.Kind)
	}
	if m.Seq != c.seq {
		return nil, dynamo.Protocolf("action answers request %d, pending request is %d", m.Seq, c.seq)
	}
	if len(m.Action) != c.nAct {
		return nil, dynamo.Protocolf("action has %d components, want %d", len(m.Action), c.nAct)
	}

	c.phase = phaseActing
	return m.Action, nil
}

func (c *Conn) SendStep(obs []float64, reward float64) error {
	return c.sendAfterAction(KindStep, obs, reward, phaseAwaitingAction)
}

func (c *Conn) SendFinalState(obs []float64, reward float64) error {
	return c.sendAfterAction(KindFinalState, obs, reward, phaseIdle)
}

func (c *Conn) SendTerminalState(obs []float64, reward float64) error {
	return c.sendAfterAction(KindTerminalState, obs, reward, phaseIdle)
}

func (c *Conn) sendAfterAction(kind Kind, obs []float64, reward float64, next phase) error {
	if c.phase != phaseActing {
		return dynamo.Protocolf("%s while %s", kind, c.phase)
	}
	if err := c.checkObs(obs); err != nil {
		return err
	}
	return c.sendState(kind, obs, reward, next)
}

func (c *Conn) sendState(kind Kind, obs []float64, reward float64, next phase) error {
	c.seq++
	if err := c.t.Send(Message{Kind: kind, Seq: c.seq, State: obs, Reward: reward}); err != nil {
		return err
	}
	c.phase = next
	return nil
}

func (c *Conn) checkObs(obs []float64) error {
	if len(obs) != c.nObs {
		return dynamo.Protocolf("observation has %d entries, want %d", len(obs), c.nObs)
	}
	return nil
}
