package protocol_test

import (
	"context"
	"io"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/abfsim/internal/dynamo"
	"github.com/san-kum/abfsim/internal/protocol"
)

// replay is a Transport whose Receive returns queued messages in order.
type replay struct {
	sent  []protocol.Message
	queue []protocol.Message
}

func (r *replay) Send(m protocol.Message) error {
	r.sent = append(r.sent, m)
	return nil
}

func (r *replay) Receive(context.Context) (protocol.Message, error) {
	if len(r.queue) == 0 {
		return protocol.Message{}, io.EOF
	}
	m := r.queue[0]
	r.queue = r.queue[1:]
	return m, nil
}

var _ = Describe("Conn", func() {
	var (
		t    *replay
		conn *protocol.Conn
		ctx  context.Context
	)

	BeforeEach(func() {
		t = &replay{}
		conn = protocol.NewConn(t)
		ctx = context.Background()
	})

	handshake := func() {
		Expect(conn.DeclareDimensions(2, 1)).To(Succeed())
		Expect(conn.DeclareActionBounds([]float64{-5}, []float64{5}, true)).To(Succeed())
		Expect(conn.DeclareObservationMask([]bool{true, true})).To(Succeed())
	}

	It("requires dimensions before anything else", func() {
		Expect(conn.DeclareActionBounds([]float64{-1}, []float64{1}, true)).To(MatchError(dynamo.ErrProtocol))
		Expect(conn.SendInitialState([]float64{0, 0})).To(MatchError(dynamo.ErrProtocol))
		Expect(t.sent).To(BeEmpty())
	})

	It("rejects a second dimensions declaration", func() {
		Expect(conn.DeclareDimensions(2, 1)).To(Succeed())
		Expect(conn.DeclareDimensions(2, 1)).To(MatchError(dynamo.ErrProtocol))
	})

	It("rejects bounds and masks of the wrong size", func() {
		Expect(conn.DeclareDimensions(2, 1)).To(Succeed())
		Expect(conn.DeclareActionBounds([]float64{-1, -1}, []float64{1, 1}, true)).To(MatchError(dynamo.ErrProtocol))
		Expect(conn.DeclareObservationMask([]bool{true})).To(MatchError(dynamo.ErrProtocol))
	})

	It("runs an episode in strict alternation", func() {
		handshake()
		t.queue = []protocol.Message{
			{Kind: protocol.KindAction, Seq: 1, Action: []float64{1}},
			{Kind: protocol.KindAction, Seq: 2, Action: []float64{2}},
		}

		Expect(conn.SendInitialState([]float64{3, 4})).To(Succeed())
		a, err := conn.ReceiveAction(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal([]float64{1}))

		Expect(conn.SendStep([]float64{2, 3}, -1)).To(Succeed())
		a, err = conn.ReceiveAction(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal([]float64{2}))

		Expect(conn.SendFinalState([]float64{1, 2}, -0.5)).To(Succeed())

		kinds := make([]protocol.Kind, len(t.sent))
		for i, m := range t.sent {
			kinds[i] = m.Kind
		}
		Expect(kinds).To(Equal([]protocol.Kind{
			protocol.KindDimensions, protocol.KindActionBounds, protocol.KindObservationMask,
			protocol.KindInitialState, protocol.KindStep, protocol.KindFinalState,
		}))
		Expect(t.sent[5].Reward).To(Equal(-0.5))
	})

	It("rejects a state while an action is pending", func() {
		handshake()
		Expect(conn.SendInitialState([]float64{0, 0})).To(Succeed())
		Expect(conn.SendStep([]float64{0, 0}, 0)).To(MatchError(dynamo.ErrProtocol))
		Expect(conn.SendInitialState([]float64{0, 0})).To(MatchError(dynamo.ErrProtocol))
	})

	It("rejects an action request with no pending state", func() {
		handshake()
		_, err := conn.ReceiveAction(ctx)
		Expect(err).To(MatchError(dynamo.ErrProtocol))
	})

	It("rejects a stale sequence number", func() {
		handshake()
		t.queue = []protocol.Message{{Kind: protocol.KindAction, Seq: 7, Action: []float64{1}}}
		Expect(conn.SendInitialState([]float64{0, 0})).To(Succeed())
		_, err := conn.ReceiveAction(ctx)
		Expect(err).To(MatchError(dynamo.ErrProtocol))
	})

	It("rejects malformed replies", func() {
		handshake()
		t.queue = []protocol.Message{{Kind: protocol.KindAction, Seq: 1, Action: []float64{1, 2}}}
		Expect(conn.SendInitialState([]float64{0, 0})).To(Succeed())
		_, err := conn.ReceiveAction(ctx)
		Expect(err).To(MatchError(dynamo.ErrProtocol))
	})

	It("forbids handshake messages after the first episode", func() {
		handshake()
		t.queue = []protocol.Message{{Kind: protocol.KindAction, Seq: 1, Action: []float64{0}}}
		Expect(conn.SendInitialState([]float64{0, 0})).To(Succeed())
		_, err := conn.ReceiveAction(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(conn.SendTerminalState([]float64{0, 0}, 10)).To(Succeed())

		Expect(conn.DeclareObservationMask([]bool{true, false})).To(MatchError(dynamo.ErrProtocol))
		Expect(conn.SendInitialState([]float64{1, 1})).To(Succeed())
	})

	It("passes transport errors through", func() {
		handshake()
		Expect(conn.SendInitialState([]float64{0, 0})).To(Succeed())
		_, err := conn.ReceiveAction(ctx)
		Expect(err).To(MatchError(io.EOF))
	})
})
