package protocol_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"runtime"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/abfsim/internal/protocol"
)

func actionLines(n int) *bytes.Buffer {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := 1; i <= n; i++ {
		Expect(enc.Encode(protocol.Message{Kind: protocol.KindAction, Seq: uint64(i), Action: []float64{1}})).To(Succeed())
	}
	return &buf
}

var _ = Describe("Stream", func() {
	It("delivers messages in order and then EOF", func() {
		st := protocol.NewStream(actionLines(2), io.Discard)
		defer st.Close()

		for i := uint64(1); i <= 2; i++ {
			m, err := st.Receive(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Seq).To(Equal(i))
		}
		_, err := st.Receive(context.Background())
		Expect(err).To(MatchError(io.EOF))
	})

	It("fails Receive after Close", func() {
		st := protocol.NewStream(actionLines(1), io.Discard)
		Expect(st.Close()).To(Succeed())
		Expect(st.Close()).To(Succeed())

		_, err := st.Receive(context.Background())
		Expect(err).To(MatchError(io.ErrClosedPipe))
	})

	It("releases the reader when a session stops receiving", func() {
		before := runtime.NumGoroutine()

		canceled, cancel := context.WithCancel(context.Background())
		cancel()
		for i := 0; i < 20; i++ {
			// A pending message nobody receives.
			st := protocol.NewStream(actionLines(2), io.Discard)
			_, _ = st.Receive(canceled)
			Expect(st.Close()).To(Succeed())

			// A reader blocked on a connection that is then closed.
			server, client := net.Pipe()
			st = protocol.NewStream(server, server)
			_, err := st.Receive(canceled)
			Expect(err).To(MatchError(context.Canceled))
			Expect(server.Close()).To(Succeed())
			Expect(client.Close()).To(Succeed())
			Expect(st.Close()).To(Succeed())
		}

		Eventually(runtime.NumGoroutine, 2*time.Second, 10*time.Millisecond).Should(BeNumerically("<=", before))
	})
})
