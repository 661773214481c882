package protocol

type Kind string

const (
	KindDimensions      Kind = "dimensions"
	KindActionBounds    Kind = "action_bounds"
	KindObservationMask Kind = "observation_mask"
	KindInitialState    Kind = "initial_state"
	KindStep            Kind = "step"
	KindFinalState      Kind = "final_state"
	KindTerminalState   Kind = "terminal_state"
	KindAction          Kind = "action"
)

// Message is the single wire type. Only the fields relevant to Kind are
// populated.
type Message struct {
	Kind Kind   `json:"kind"`
	Seq  uint64 `json:"seq,omitempty"`

	Observations int       `json:"observations,omitempty"`
	Actions      int       `json:"actions,omitempty"`
	Lower        []float64 `json:"lower,omitempty"`
	Upper        []float64 `json:"upper,omitempty"`
	Bounded      bool      `json:"bounded,omitempty"`
	Mask         []bool    `json:"mask,omitempty"`

	State  []float64 `json:"state,omitempty"`
	Reward float64   `json:"reward"`
	Action []float64 `json:"action,omitempty"`
}

// RequestsAction reports whether the environment expects an action reply.
func (m Message) RequestsAction() bool {
	return m.Kind == KindInitialState || m.Kind == KindStep
}

// EndsEpisode reports whether m closes an episode.
func (m Message) EndsEpisode() bool {
	return m.Kind == KindFinalState || m.Kind == KindTerminalState
}
