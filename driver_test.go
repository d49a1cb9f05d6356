package canadensis

import "testing"

func TestQueueOnlyDriverReceiveFIFO(t *testing.T) {
	d := NewQueueOnlyDriver(4, 4)
	if _, err := d.Receive(0); err != ErrWouldBlock {
		t.Fatalf("empty driver must report ErrWouldBlock, got %v", err)
	}
	for mark := byte(0); mark < 4; mark++ {
		if err := d.PushRxFrame(frameWithID(0x100, mark)); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.PushRxFrame(frameWithID(0x100, 9)); err != ErrOutOfMemory {
		t.Fatalf("full receive queue must report ErrOutOfMemory, got %v", err)
	}
	for want := byte(0); want < 4; want++ {
		f, err := d.Receive(0)
		if err != nil {
			t.Fatal(err)
		}
		if f.Payload[0] != want {
			t.Errorf("reception order must be arrival order, got %d before %d", f.Payload[0], want)
		}
	}
	// The ring wraps around.
	d.PushRxFrame(frameWithID(0x100, 42))
	f, err := d.Receive(0)
	if err != nil || f.Payload[0] != 42 {
		t.Errorf("ring wrap-around broken: %v %v", f, err)
	}
}

func TestQueueOnlyDriverTransmitSide(t *testing.T) {
	d := NewQueueOnlyDriver(2, 2)
	if err := d.TryReserve(3); err != ErrOutOfMemory {
		t.Fatal("reservation beyond capacity must fail, got", err)
	}
	if err := d.Transmit(frameWithID(0x200, 0), 0); err != nil {
		t.Fatal(err)
	}
	if err := d.Transmit(frameWithID(0x100, 1), 0); err != nil {
		t.Fatal(err)
	}
	if err := d.Transmit(frameWithID(0x300, 2), 0); err != ErrWouldBlock {
		t.Fatalf("full transmit queue must report ErrWouldBlock, got %v", err)
	}
	f, ok := d.PopTxFrame()
	if !ok || f.ID != 0x100 {
		t.Error("transmit queue must pop in arbitration order")
	}
	// Frame fails to send; returning it keeps its priority slot.
	if err := d.ReturnTxFrame(f); err != nil {
		t.Fatal(err)
	}
	f, _ = d.PopTxFrame()
	if f.ID != 0x100 {
		t.Error("returned frame must come back first among equal and lower priorities")
	}
}

func TestQueueOnlyDriverFiltersFailOpen(t *testing.T) {
	d := NewQueueOnlyDriver(2, 2)
	small := []Filter{subjectFilter(1), subjectFilter(2)}
	d.ApplyFilters(7, small)
	if len(d.Filters()) != 2 {
		t.Fatalf("expected 2 stored filters, got %d", len(d.Filters()))
	}
	// Overflowing the filter storage clears the whole set: the driver
	// fails open and receives everything rather than keeping a partial
	// subscription list.
	big := make([]Filter, 65)
	for i := range big {
		big[i] = subjectFilter(PortID(i))
	}
	d.ApplyFilters(7, big)
	if len(d.Filters()) != 0 {
		t.Errorf("overflow must clear the filter set, got %d entries", len(d.Filters()))
	}
	d.ApplyFilters(7, small)
	if len(d.Filters()) != 2 {
		t.Error("filter storage must recover after an overflow")
	}
}
