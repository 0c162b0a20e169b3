package chat

import (
	"bufio"
	"errors"
	"net"
)

// StartOutboundWriter drains the client's outbound queue, framing each
// payload. It exits when the channel is closed or the connection breaks.
// The returned channel closes once the writer has finished, so callers can
// let queued frames flush before closing the connection.
func StartOutboundWriter(conn net.Conn, out <-chan []byte, max uint32) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w := bufio.NewWriter(conn)
		for payload := range out {
			if err := WriteFrame(w, payload, max); err != nil {
				if errors.Is(err, ErrFrameTooLarge) {
					// Reject this payload only; the connection stays usable.
					continue
				}
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}()
	return done
}
