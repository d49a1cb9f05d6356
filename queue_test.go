package canadensis

import "testing"

func frameWithID(id CanID, mark byte) Frame {
	return Frame{ID: id, Payload: []byte{mark, byte(tailByte(true, true, initialToggle, 0))}}
}

func TestQueueArbitrationOrder(t *testing.T) {
	q := NewFrameQueue(16)
	ids := []CanID{0x1400cc42, 0x0400cc42, 0x1c00cc42, 0x0000cc42, 0x1000cc42}
	for i, id := range ids {
		if err := q.Push(frameWithID(id, byte(i))); err != nil {
			t.Fatal(err)
		}
	}
	var prev CanID
	for i := 0; i < len(ids); i++ {
		f, ok := q.Pop()
		if !ok {
			t.Fatalf("queue empty after %d pops, expected %d frames", i, len(ids))
		}
		if i > 0 && f.ID < prev {
			t.Errorf("pop %d: id %#x dequeued after %#x", i, f.ID, prev)
		}
		prev = f.ID
	}
	if _, ok := q.Pop(); ok {
		t.Error("pop on empty queue must report no frame")
	}
}

func TestQueueFIFOWithinPriority(t *testing.T) {
	q := NewFrameQueue(8)
	const id CanID = 0x1060cc2a
	for mark := byte(0); mark < 5; mark++ {
		if err := q.Push(frameWithID(id, mark)); err != nil {
			t.Fatal(err)
		}
	}
	for want := byte(0); want < 5; want++ {
		f, _ := q.Pop()
		if f.Payload[0] != want {
			t.Errorf("expected insertion order preserved, got mark %d before %d", f.Payload[0], want)
		}
	}
}

func TestQueueFullPushLeavesContentsIntact(t *testing.T) {
	q := NewFrameQueue(3)
	for mark := byte(0); mark < 3; mark++ {
		if err := q.Push(frameWithID(0x1060cc01, mark)); err != nil {
			t.Fatal(err)
		}
	}
	if err := q.Push(frameWithID(0x0060cc01, 99)); err != ErrOutOfMemory {
		t.Fatalf("push on full queue: expected ErrOutOfMemory, got %v", err)
	}
	if q.Len() != 3 {
		t.Fatalf("failed push changed queue length to %d", q.Len())
	}
	for want := byte(0); want < 3; want++ {
		f, _ := q.Pop()
		if f.Payload[0] != want {
			t.Errorf("failed push corrupted contents: got mark %d, expected %d", f.Payload[0], want)
		}
	}
}

func TestQueueReturnFrame(t *testing.T) {
	q := NewFrameQueue(8)
	q.Push(frameWithID(0x1060cc02, 0))
	q.Push(frameWithID(0x1060cc02, 1))

	f, _ := q.Pop()
	if f.Payload[0] != 0 {
		t.Fatal("expected first-pushed frame first")
	}
	// A higher-priority frame arrives while the popped frame waits.
	q.Push(frameWithID(0x0060cc02, 7))
	if err := q.ReturnFrame(f); err != nil {
		t.Fatal(err)
	}

	got, _ := q.Pop()
	if got.Payload[0] != 7 {
		t.Error("returned frame must not outrank strictly higher priority traffic")
	}
	got, _ = q.Pop()
	if got.Payload[0] != 0 {
		t.Error("returned frame must precede equal-priority frames")
	}
	got, _ = q.Pop()
	if got.Payload[0] != 1 {
		t.Error("original order of remaining frames lost")
	}
}

func TestQueueTryReserve(t *testing.T) {
	q := NewFrameQueue(4)
	if err := q.TryReserve(4); err != nil {
		t.Fatal("empty queue must accept reservation up to capacity:", err)
	}
	if err := q.TryReserve(5); err != ErrOutOfMemory {
		t.Fatal("reservation above capacity must fail, got", err)
	}
	q.Push(frameWithID(0x1060cc03, 0))
	q.Push(frameWithID(0x1060cc03, 1))
	if err := q.TryReserve(3); err != ErrOutOfMemory {
		t.Fatal("reservation must account for queued frames, got", err)
	}
	if err := q.TryReserve(2); err != nil {
		t.Fatal(err)
	}
}

func TestQueueInterleavedPushPop(t *testing.T) {
	// Exercise tree rebalancing with a long arbitrary push/pop sequence.
	q := NewFrameQueue(64)
	pushed := 0
	popped := 0
	var prev CanID
	havePrev := false
	for step := 0; step < 1000; step++ {
		if step%3 != 0 && q.Len() < 64 {
			id := CanID(uint32(step)*2654435761) & canExtIDMask
			if err := q.Push(frameWithID(id, byte(step))); err != nil {
				t.Fatal(err)
			}
			pushed++
			havePrev = false // new frame may outrank previous pops
		} else if f, ok := q.Pop(); ok {
			if havePrev && f.ID < prev {
				t.Fatalf("step %d: order violation %#x after %#x", step, f.ID, prev)
			}
			prev, havePrev = f.ID, true
			popped++
		}
	}
	if popped+q.Len() != pushed {
		t.Errorf("frames leaked: pushed %d, popped %d, queued %d", pushed, popped, q.Len())
	}
}
