package canadensis

import "testing"

// captureHandler records everything a Receiver delivers.
type captureHandler struct {
	msgs   []*Transfer
	reqs   []*Transfer
	tokens []ResponseToken
	resps  []*Transfer
}

func (h *captureHandler) HandleMessage(t *Transfer) { h.msgs = append(h.msgs, t) }
func (h *captureHandler) HandleRequest(t *Transfer, token ResponseToken) {
	h.reqs = append(h.reqs, t)
	h.tokens = append(h.tokens, token)
}
func (h *captureHandler) HandleResponse(t *Transfer) { h.resps = append(h.resps, t) }

func (h *captureHandler) delivered() int { return len(h.msgs) + len(h.reqs) + len(h.resps) }

// drainFrames pops every frame off the transmitter queue.
func drainFrames(t *testing.T, tx *Transmitter) []Frame {
	t.Helper()
	var frames []Frame
	for {
		f, ok := tx.Queue().Pop()
		if !ok {
			return frames
		}
		frames = append(frames, f)
	}
}

// feedFrames stamps each frame with an increasing timestamp starting at now
// and feeds them to the receiver in order.
func feedFrames(t *testing.T, rx *Receiver, now Microsecond, frames []Frame) {
	t.Helper()
	for i := range frames {
		frames[i].Timestamp = now + Microsecond(i)
		if err := rx.Accept(&frames[i]); err != nil {
			t.Fatalf("accept frame %d: %v", i, err)
		}
	}
}

func patternPayload(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i & 0xff)
	}
	return p
}
