package canadensis

// CanID is an extended 29-bit CAN identifier. From most to least significant
// it encodes the transfer priority (arbitration precedence), the transfer
// kind discriminator, the subject ID (messages) or service ID plus
// destination node ID (requests and responses), and the source node ID.
type CanID uint32

const canExtIDMask = (1 << 29) - 1

func (can CanID) Priority() Priority  { return Priority(can>>offset_Priority) & priorityMask }
func (can CanID) Source() NodeID      { return NodeID(can & NODE_ID_MAX) }
func (can CanID) Destination() NodeID { return NodeID(can>>offset_DstNodeID) & NODE_ID_MAX }
func (can CanID) IsMessage() bool     { return can&FLAG_SERVICE_NOT_MESSAGE == 0 }
func (can CanID) IsRequest() bool {
	return !can.IsMessage() && can&FLAG_REQUEST_NOT_RESPONSE != 0
}
func (can CanID) IsAnonymous() bool { return can.IsMessage() && can&FLAG_ANONYMOUS_MESSAGE != 0 }
func (can CanID) Port() PortID {
	if can.IsMessage() {
		return PortID(can>>offset_SubjectID) & SUBJECT_ID_MAX
	}
	return PortID(can>>offset_ServiceID) & SERVICE_ID_MAX
}

// Metadata is the header of a transfer: everything except the payload and
// the timestamp. For received transfers Remote is the source node; for
// outgoing requests and responses it is the destination.
type Metadata struct {
	Priority Priority
	TxKind   TxKind
	Port     PortID
	Remote   NodeID
	TID      TID
}

func (m *Metadata) fromRxFrame(frame *frameModel) {
	m.Priority = frame.priority
	m.TxKind = frame.txKind
	m.Port = frame.port
	m.Remote = frame.srcNode
	m.TID = frame.tid
}

// Transfer is an application-level unit of communication, possibly spanning
// multiple frames.
type Transfer struct {
	Metadata Metadata
	// The timestamp of the first received CAN frame of this transfer, or
	// the transmission deadline for outgoing transfers. The time system
	// may be arbitrary as long as the clock is monotonic (steady).
	Timestamp Microsecond
	Payload   []byte
}

// makeCanID builds the extended CAN identifier for one frame of an outgoing
// transfer. Anonymous message transfers derive a pseudo source node ID from
// the payload so that mutually conflicting frames are unlikely on the bus.
func (m *Metadata) makeCanID(payload []byte, local NodeID, plMTU int) (CanID, error) {
	if plMTU <= 0 {
		return 0, ErrInvalidArgument
	}
	var out CanID
	switch {
	case m.TxKind == TxKindMessage && m.Remote.IsUnset() && m.Port <= SUBJECT_ID_MAX:
		if local.IsSet() {
			out = makeMessageSessionSpecifier(m.Port, local)
		} else if len(payload) <= plMTU {
			out = makeMessageSessionSpecifier(m.Port, pseudoNodeID(payload)) | FLAG_ANONYMOUS_MESSAGE
		} else {
			// Anonymous transfers cannot be multi-frame.
			return 0, ErrInvalidArgument
		}
	case (m.TxKind == TxKindRequest || m.TxKind == TxKindResponse) && m.Remote.IsSet() && m.Port <= SERVICE_ID_MAX:
		if !local.IsSet() || local == m.Remote {
			return 0, ErrInvalidArgument
		}
		out = makeServiceSessionSpecifier(m.Port, m.TxKind, local, m.Remote)
	default:
		return 0, ErrInvalidArgument
	}
	if m.Priority >= numOfPriorities {
		return 0, ErrInvalidArgument
	}
	out |= CanID(m.Priority) << offset_Priority
	return out & canExtIDMask, nil
}

// pseudoNodeID hashes the payload into the source node ID field of an
// anonymous message.
func pseudoNodeID(payload []byte) NodeID {
	return NodeID(newCRC().Add(payload)) & NODE_ID_MAX
}

func makeMessageSessionSpecifier(subject PortID, src NodeID) CanID {
	// Bits 21 and 22 above the subject ID are reserved and transmitted as one.
	aux := subject | (SUBJECT_ID_MAX + 1) | ((SUBJECT_ID_MAX + 1) * 2)
	return CanID(src) | CanID(aux)<<offset_SubjectID
}

func makeServiceSessionSpecifier(service PortID, kind TxKind, src, dst NodeID) CanID {
	spec := CanID(src) | CanID(dst)<<offset_DstNodeID
	spec |= CanID(service) << offset_ServiceID
	if kind == TxKindRequest {
		spec |= FLAG_REQUEST_NOT_RESPONSE
	}
	spec |= FLAG_SERVICE_NOT_MESSAGE
	return spec
}
