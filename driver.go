package canadensis

// Driver capability contracts. A concrete driver implements either or both;
// the split lets transmit-only and receive-only hardware be modeled without
// stub methods.

// TransmitDriver accepts outgoing frames for physical transmission.
type TransmitDriver interface {
	// TryReserve verifies that the driver can queue n more frames, so a
	// multi-frame send either fully succeeds or fully fails.
	TryReserve(frames int) error
	// Transmit hands one frame to the driver. ErrWouldBlock means the
	// driver transiently cannot accept it and the caller should retry on
	// the next poll; any other error is a hardware error surfaced
	// verbatim.
	Transmit(frame Frame, now Microsecond) error
	// Flush pushes any internally queued frames toward the bus.
	Flush(now Microsecond) error
}

// ReceiveDriver produces frames received from the bus.
type ReceiveDriver interface {
	// Receive returns the next received frame, timestamped by the
	// driver's clock. ErrWouldBlock means no frame is waiting.
	Receive(now Microsecond) (Frame, error)
	// ApplyFilters installs the acceptance filter list computed by the
	// Receiver. Drivers without hardware filtering may ignore it.
	ApplyFilters(local NodeID, filters []Filter)
}

// Clock is the monotonic time source drivers and poll loops run on.
type Clock interface {
	Now() Microsecond
}

// QueueOnlyDriver contains frame queues only and requires external code to
// move frames to and from the actual bus. This suits embedded setups where a
// high-priority interrupt handler exchanges frames with the CAN peripheral
// and passes them to this driver between interrupts, and it doubles as an
// in-memory test double.
type QueueOnlyDriver struct {
	tx *FrameQueue
	// Receive side is a FIFO ring: reception order is arrival order,
	// priority only matters for transmission.
	rx      []Frame
	rxHead  int
	rxLen   int
	filters []Filter
	// Filter storage bound; see ApplyFilters.
	maxFilters int
}

// NewQueueOnlyDriver creates a driver with the given transmit and receive
// queue capacities, in frames.
func NewQueueOnlyDriver(txCap, rxCap int) *QueueOnlyDriver {
	if rxCap < 1 {
		rxCap = 1
	}
	return &QueueOnlyDriver{
		tx:         NewFrameQueue(txCap),
		rx:         make([]Frame, rxCap),
		maxFilters: 64,
	}
}

// PushRxFrame appends a frame received from the bus to the receive queue.
func (d *QueueOnlyDriver) PushRxFrame(frame Frame) error {
	if d.rxLen == len(d.rx) {
		return ErrOutOfMemory
	}
	d.rx[(d.rxHead+d.rxLen)%len(d.rx)] = frame
	d.rxLen++
	return nil
}

// PopTxFrame removes and returns the highest-priority outgoing frame for
// external code to put on the bus.
func (d *QueueOnlyDriver) PopTxFrame() (Frame, bool) {
	return d.tx.Pop()
}

// ReturnTxFrame puts back a popped frame that could not be sent. It keeps its
// priority position: ahead of equal-priority frames, behind strictly
// higher-priority ones.
func (d *QueueOnlyDriver) ReturnTxFrame(frame Frame) error {
	return d.tx.ReturnFrame(frame)
}

// Filters returns the acceptance filters stored by the last ApplyFilters
// call, for external code to forward to the peripheral. The slice is empty
// if ApplyFilters has not been called, was called with nothing, or overflowed
// the filter storage.
func (d *QueueOnlyDriver) Filters() []Filter { return d.filters }

// TryReserve implements TransmitDriver.
func (d *QueueOnlyDriver) TryReserve(frames int) error { return d.tx.TryReserve(frames) }

// Transmit implements TransmitDriver by queueing the frame. A full queue is
// reported as ErrWouldBlock: the frame is not lost, the caller returns it on
// the next poll.
func (d *QueueOnlyDriver) Transmit(frame Frame, _ Microsecond) error {
	if err := d.tx.Push(frame); err != nil {
		return ErrWouldBlock
	}
	return nil
}

// Flush implements TransmitDriver. Frames leave only via PopTxFrame, so
// there is nothing to do.
func (d *QueueOnlyDriver) Flush(_ Microsecond) error { return nil }

// Receive implements ReceiveDriver.
func (d *QueueOnlyDriver) Receive(_ Microsecond) (Frame, error) {
	if d.rxLen == 0 {
		return Frame{}, ErrWouldBlock
	}
	frame := d.rx[d.rxHead]
	d.rx[d.rxHead] = Frame{}
	d.rxHead = (d.rxHead + 1) % len(d.rx)
	d.rxLen--
	return frame, nil
}

// ApplyFilters implements ReceiveDriver by storing a copy of the list. If the
// list exceeds the filter storage bound the stored set is cleared entirely:
// the driver fails open and receives everything rather than keeping a partial
// set that would silently drop subscribed traffic. The receiver re-validates
// every frame, so failing open costs CPU, not correctness.
func (d *QueueOnlyDriver) ApplyFilters(_ NodeID, filters []Filter) {
	if len(filters) > d.maxFilters {
		d.filters = nil
		return
	}
	d.filters = append(d.filters[:0], filters...)
}
