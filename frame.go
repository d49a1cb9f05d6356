package canadensis

// Microsecond is a monotonic timestamp. The epoch is arbitrary; the core only
// ever compares and subtracts values produced by the same clock.
type Microsecond uint64

// NodeID identifies a node on the bus. Valid IDs are 0..NODE_ID_MAX; the
// value 255 means unset (anonymous source or broadcast destination).
type NodeID uint8

const NodeIDUnset NodeID = 255

//go:inline
func (n NodeID) IsValid() bool { return n.IsSet() || n.IsUnset() }

//go:inline
func (n NodeID) IsUnset() bool { return n == NodeIDUnset }

//go:inline
func (n NodeID) IsSet() bool { return n <= NODE_ID_MAX }

//go:inline
func (n *NodeID) Unset() { *n = NodeIDUnset }

// PortID is a subject ID (messages) or service ID (requests and responses).
type PortID uint32

// TID is a transfer ID, a modulo-32 sequence number distinguishing successive
// transfers between the same source, destination and kind.
type TID uint8

// Priority of a transfer. Lower numeric value wins bus arbitration.
type Priority uint8

// TxKind discriminates message, request and response transfers.
type TxKind uint8

// Tail is the last byte of every frame's payload. It carries transfer control
// flow: start and end of transfer flags, the toggle bit and the transfer ID.
type Tail byte

func (t Tail) IsToggled() bool { return t&TAIL_TOGGLE != 0 }
func (t Tail) IsStart() bool   { return t&TAIL_START_OF_TRANSFER != 0 }
func (t Tail) IsEnd() bool     { return t&TAIL_END_OF_TRANSFER != 0 }
func (t Tail) TransferID() TID { return TID(t & TRANSFER_ID_MAX) }

func tailByte(start, end, toggle bool, tid TID) (tail Tail) {
	tail = Tail(tid & TRANSFER_ID_MAX)
	tail |= Tail(b2i(toggle)) << 5
	tail |= Tail(b2i(end)) << 6
	tail |= Tail(b2i(start)) << 7
	return tail
}

// Frame is a single CAN packet: an extended 29-bit identifier and up to MTU
// payload bytes, the last of which is the tail byte. Frames are immutable
// once constructed and owned exclusively by whichever queue or buffer holds
// them; ownership moves on every hand-off.
type Frame struct {
	// Timestamp is the reception time for incoming frames and the
	// transmission deadline for outgoing frames.
	Timestamp Microsecond
	ID        CanID
	Payload   []byte
}

// Tail returns the frame's tail byte.
func (f *Frame) Tail() Tail {
	if len(f.Payload) == 0 {
		return 0
	}
	return Tail(f.Payload[len(f.Payload)-1])
}

// frameModel is the parsed form of a received frame.
type frameModel struct {
	timestamp Microsecond
	priority  Priority
	txKind    TxKind
	port      PortID
	srcNode   NodeID
	dstNode   NodeID
	tid       TID
	txStart   bool
	txEnd     bool
	toggle    bool
	payload   []byte // tail byte cut off
}

// parseFrame validates a raw frame against the wire format and fills out.
func parseFrame(frame *Frame, out *frameModel) error {
	switch {
	case frame == nil || out == nil:
		return ErrInvalidArgument
	case len(frame.Payload) == 0:
		return errEmptyPayload
	}
	canID := frame.ID
	out.timestamp = frame.Timestamp
	out.priority = canID.Priority()
	out.srcNode = canID.Source()
	valid := false
	if canID.IsMessage() {
		out.txKind = TxKindMessage
		out.port = canID.Port()
		if canID.IsAnonymous() {
			out.srcNode.Unset()
		}
		out.dstNode.Unset()
		// Reserved bits may be unreserved in the future.
		valid = canID&FLAG_RESERVED_23 == 0 && canID&FLAG_RESERVED_07 == 0
	} else {
		if canID.IsRequest() {
			out.txKind = TxKindRequest
		} else {
			out.txKind = TxKindResponse
		}
		out.port = canID.Port()
		out.dstNode = canID.Destination()
		// Per Specification, source cannot be the same as the destination.
		valid = canID&FLAG_RESERVED_23 == 0 && out.srcNode != out.dstNode
	}

	// Cut off the tail byte.
	payloadSize := len(frame.Payload) - 1
	out.payload = frame.Payload[:payloadSize]
	tail := Tail(frame.Payload[payloadSize])
	out.tid = tail.TransferID()
	out.txStart = tail.IsStart()
	out.txEnd = tail.IsEnd()
	out.toggle = tail.IsToggled()

	// Protocol version check: on start of transfer the toggle shall hold the initial value.
	valid = valid && (!out.txStart || out.toggle == initialToggle)
	// Anonymous transfers can be only single-frame transfers.
	valid = valid && ((out.txStart && out.txEnd) || out.srcNode.IsSet())
	// Non-last frames of a multi-frame transfer shall utilize the MTU fully.
	valid = valid && (payloadSize >= MFT_NON_LAST_FRAME_PAYLOAD_MIN || out.txEnd)
	// A frame that is part of a multi-frame transfer cannot be empty (tail byte not included).
	valid = valid && (payloadSize > 0 || (out.txStart && out.txEnd))
	if !valid {
		return errInvalidFrame
	}
	return nil
}

//go:inline
func bsign(b bool) int8 {
	if b {
		return 1
	}
	return -1
}

//go:inline
func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
