package canadensis

import (
	"bytes"
	"io"
	"testing"
)

func TestCaptureRoundTrip(t *testing.T) {
	frames := []Frame{
		{Timestamp: 1, ID: 0x107d552a, Payload: []byte{1, 2, 3, 0xE0}},
		{Timestamp: 2, ID: 0x136b951a, Payload: []byte{0xC0}},
		{Timestamp: 3, ID: 0x107d552a, Payload: []byte{4, 5, 6, 7, 8, 9, 10, 0x85}},
	}
	var buf bytes.Buffer
	rec := NewRecorder(&buf)
	for _, f := range frames {
		if err := rec.Record(f); err != nil {
			t.Fatal(err)
		}
	}

	rep := NewReplayer(&buf)
	for i, want := range frames {
		got, err := rep.Next()
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if got.Timestamp != want.Timestamp || got.ID != want.ID || !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("record %d mismatch: got %+v want %+v", i, got, want)
		}
	}
	if _, err := rep.Next(); err != io.EOF {
		t.Errorf("expected io.EOF at end of capture, got %v", err)
	}
}

func TestCaptureReplayIntoReceiver(t *testing.T) {
	// Capture a transfer's frames, replay them into a receiver.
	tx := NewTransmitter(42, MTUCanClassic, 64)
	meta := Metadata{Priority: PriorityNominal, TxKind: TxKindMessage, Port: 0xccc, Remote: NodeIDUnset}
	if err := tx.Push(0, &meta, patternPayload(19)); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	rec := NewRecorder(&buf)
	for i, f := range drainFrames(t, tx) {
		f.Timestamp = Microsecond(100 + i)
		if err := rec.Record(f); err != nil {
			t.Fatal(err)
		}
	}

	h := &captureHandler{}
	rx := NewReceiver(7, h)
	rx.Subscribe(TxKindMessage, 0xccc, 64, testTimeout)
	rep := NewReplayer(&buf)
	for {
		f, err := rep.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if err := rx.Accept(&f); err != nil {
			t.Fatal(err)
		}
	}
	if len(h.msgs) != 1 {
		t.Fatalf("replayed capture delivered %d transfers, expected 1", len(h.msgs))
	}
}
