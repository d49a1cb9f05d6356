package canadensis

// Requester assembles service request transfers and manages their transfer
// IDs, one sequence per destination node.
type Requester struct {
	// Local is the ID of this node.
	Local NodeID
	// Priority of transfers from this requester.
	Priority Priority
	// Timeout bounds how long queued request frames stay valid; the frame
	// deadline is the current time plus this value.
	Timeout Microsecond

	next TransferIDLedger
}

// NewRequester creates a request transmitter for the given node.
func NewRequester(local NodeID, timeout Microsecond, priority Priority) *Requester {
	return &Requester{Local: local, Priority: priority, Timeout: timeout}
}

// Send composes a request transfer with a fresh transfer ID for the
// destination and hands it to the transmitter. The payload must already be
// serialized. On ErrOutOfMemory nothing is enqueued and the transfer ID is
// still consumed, so the peer observes a gap rather than a duplicate.
func (r *Requester) Send(now Microsecond, service PortID, payload []byte, destination NodeID, tx *Transmitter) error {
	if tx == nil {
		return ErrInvalidArgument
	}
	if !destination.IsSet() {
		return ErrInvalidNodeID
	}
	meta := Metadata{
		Priority: r.Priority,
		TxKind:   TxKindRequest,
		Port:     service,
		Remote:   destination,
		TID:      r.next.GetAndIncrement(destination),
	}
	return tx.Push(now+r.Timeout, &meta, payload)
}
