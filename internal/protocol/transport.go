package protocol

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Transport moves messages between the environment and the agent.
type Transport interface {
	Send(m Message) error
	Receive(ctx context.Context) (Message, error)
}

// Stream is a Transport of newline-delimited JSON messages. It serves an
// agent over stdin/stdout or a network connection.
type Stream struct {
	enc *json.Encoder
	w   *bufio.Writer

	r    io.Reader
	once sync.Once
	in   chan received

	done      chan struct{}
	closeOnce sync.Once
}

type received struct {
	msg Message
	err error
}

func NewStream(r io.Reader, w io.Writer) *Stream {
	bw := bufio.NewWriter(w)
	return &Stream{
		enc:  json.NewEncoder(bw),
		w:    bw,
		r:    r,
		in:   make(chan received),
		done: make(chan struct{}),
	}
}

// Close releases the background reader. It does not close the underlying
// reader; a reader blocked in a read exits once that read returns.
// Receive after Close reports io.ErrClosedPipe.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *Stream) Send(m Message) error {
	if err := s.enc.Encode(m); err != nil {
		return fmt.Errorf("send %s: %w", m.Kind, err)
	}
	return s.w.Flush()
}

// Receive blocks for the next message or until ctx is done. Reads happen on
// a background goroutine so a canceled context does not lose a message
// that is already in flight; it is delivered to the next Receive.
func (s *Stream) Receive(ctx context.Context) (Message, error) {
	select {
	case <-s.done:
		return Message{}, io.ErrClosedPipe
	default:
	}
	s.once.Do(func() { go s.readLoop() })

	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-s.done:
		return Message{}, io.ErrClosedPipe
	case rec, ok := <-s.in:
		if !ok {
			return Message{}, io.EOF
		}
		return rec.msg, rec.err
	}
}

func (s *Stream) readLoop() {
	defer close(s.in)
	dec := json.NewDecoder(s.r)
	for {
		var m Message
		err := dec.Decode(&m)
		if err == io.EOF {
			return
		}
		if err != nil {
			s.deliver(received{err: fmt.Errorf("decode message: %w", err)})
			return
		}
		if !s.deliver(received{msg: m}) {
			return
		}
	}
}

func (s *Stream) deliver(rec received) bool {
	select {
	case s.in <- rec:
		return true
	case <-s.done:
		return false
	}
}

// Policy maps an observation to an action.
type Policy func(obs []float64) []float64

// Constant always answers with the same drive frequency.
func Constant(w float64) Policy {
	return func([]float64) []float64 { return []float64{w} }
}

// Scripted is an in-process Transport standing in for an agent. It answers
// every state with the policy's action and records all traffic. After
// MaxActions actions (when positive) it reports io.EOF, which ends a
// Session cleanly.
type Scripted struct {
	Policy     Policy
	MaxActions int

	Sent     []Message
	Received []Message

	last Message
}

func NewScripted(p Policy) *Scripted {
	return &Scripted{Policy: p}
}

func (s *Scripted) Send(m Message) error {
	s.Sent = append(s.Sent, m)
	s.last = m
	return nil
}

func (s *Scripted) Receive(ctx context.Context) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	if s.MaxActions > 0 && len(s.Received) >= s.MaxActions {
		return Message{}, io.EOF
	}
	m := Message{Kind: KindAction, Seq: s.last.Seq, Action: s.Policy(s.last.State)}
	s.Received = append(s.Received, m)
	return m, nil
}

// Episodes groups the recorded state messages by episode.
func (s *Scripted) Episodes() [][]Message {
	var out [][]Message
	var cur []Message
	for _, m := range s.Sent {
		switch {
		case m.Kind == KindInitialState:
			cur = []Message{m}
		case m.Kind == KindStep:
			cur = append(cur, m)
		case m.EndsEpisode():
			out = append(out, append(cur, m))
			cur = nil
		}
	}
	return out
}
