package canadensis

// Contains transfer segmentation and transmission logic.

// Transmitter splits outgoing transfers into CAN frames and enqueues them on
// a bounded priority queue, from which a driver drains them.
type Transmitter struct {
	// Local is the node ID used as the source of all outgoing frames.
	// While unset, only anonymous single-frame messages can be sent.
	Local NodeID
	// MTU defines the maximum number of bytes per CAN frame, tail byte
	// included. The value can be changed arbitrarily between pushes and is
	// clamped to the nearest valid CAN data length.
	MTU   int
	queue *FrameQueue
}

// NewTransmitter creates a transmitter with the given frame queue capacity.
func NewTransmitter(local NodeID, mtu, capacity int) *Transmitter {
	return &Transmitter{Local: local, MTU: mtu, queue: NewFrameQueue(capacity)}
}

// Queue exposes the frame queue for the driver to drain.
func (t *Transmitter) Queue() *FrameQueue { return t.queue }

// Push segments one transfer into frames and enqueues all of them, or none.
// deadline becomes the timestamp of every emitted frame; a driver may discard
// frames whose deadline has passed. The whole transfer is reserved on the
// queue up front, so an ErrOutOfMemory result means nothing was enqueued.
func (t *Transmitter) Push(deadline Microsecond, meta *Metadata, payload []byte) error {
	if meta == nil {
		return ErrInvalidArgument
	}
	plMTU := adjustPresentationLayerMTU(t.MTU)
	canID, err := meta.makeCanID(payload, t.Local, plMTU)
	if err != nil {
		return err
	}
	if len(payload) > plMTU {
		return t.pushMultiFrame(deadline, canID, meta.TID, plMTU, payload)
	}
	return t.pushSingleFrame(deadline, canID, meta.TID, payload)
}

// adjustPresentationLayerMTU clamps the configured MTU to a valid CAN data
// length and subtracts the tail byte.
func adjustPresentationLayerMTU(mtuBytes int) (mtu int) {
	switch {
	case mtuBytes < MTUCanClassic:
		mtu = MTUCanClassic
	case mtuBytes <= len(canLengthToDLC)-1:
		mtu = int(canDLCToLength[canLengthToDLC[mtuBytes]])
	default:
		mtu = int(canDLCToLength[canLengthToDLC[len(canLengthToDLC)-1]])
	}
	return mtu - 1
}

func (t *Transmitter) pushSingleFrame(deadline Microsecond, canID CanID, tid TID, payload []byte) error {
	if err := t.queue.TryReserve(1); err != nil {
		return err
	}
	framePayloadSize := roundPayloadSizeUp(len(payload) + 1)
	buf := make([]byte, framePayloadSize)
	copy(buf, payload)
	// Padding bytes between the payload and the tail byte stay zero.
	buf[framePayloadSize-1] = byte(tailByte(true, true, initialToggle, tid))
	return t.queue.Push(Frame{Timestamp: deadline, ID: canID, Payload: buf})
}

func (t *Transmitter) pushMultiFrame(deadline Microsecond, canID CanID, tid TID, plMTU int, payload []byte) error {
	payloadSize := len(payload)
	payloadSizeWithCRC := payloadSize + crcSize
	numFrames := (payloadSizeWithCRC + plMTU - 1) / plMTU
	if err := t.queue.TryReserve(numFrames); err != nil {
		return err
	}
	crc := newCRC().Add(payload)
	toggle := initialToggle
	offset := 0 // Position in the logical payload-plus-CRC stream.
	rest := payload
	first := true
	for offset < payloadSizeWithCRC {
		var frameWithTailSize int
		if payloadSizeWithCRC-offset < plMTU {
			frameWithTailSize = roundPayloadSizeUp(payloadSizeWithCRC - offset + 1)
		} else {
			frameWithTailSize = plMTU + 1
		}
		buf := make([]byte, frameWithTailSize)
		framePayloadSize := frameWithTailSize - 1
		frameOffset := 0
		if offset < payloadSize {
			moveSize := payloadSize - offset
			if moveSize > framePayloadSize {
				moveSize = framePayloadSize
			}
			copy(buf, rest[:moveSize])
			frameOffset += moveSize
			offset += moveSize
			rest = rest[moveSize:]
		}
		if offset >= payloadSize {
			// Last frame of the transfer: padding, then the CRC.
			for frameOffset+crcSize < framePayloadSize {
				// Padding is included in the CRC so the receiver
				// verifies it without knowing the true length.
				buf[frameOffset] = 0
				frameOffset++
				crc = crc.AddByte(0)
			}
			if frameOffset < framePayloadSize && offset == payloadSize {
				buf[frameOffset] = byte(crc >> 8)
				frameOffset++
				offset++
			}
			if frameOffset < framePayloadSize && offset > payloadSize {
				buf[frameOffset] = byte(crc & 0xff)
				frameOffset++
				offset++
			}
		}
		buf[frameOffset] = byte(tailByte(first, offset >= payloadSizeWithCRC, toggle, tid))
		toggle = !toggle
		first = false
		// Reserved above; a failure here would mean the queue was
		// mutated concurrently, which the ownership model forbids.
		if err := t.queue.Push(Frame{Timestamp: deadline, ID: canID, Payload: buf}); err != nil {
			return err
		}
	}
	return nil
}

func roundPayloadSizeUp(x int) int {
	return int(canDLCToLength[canLengthToDLC[x]])
}
