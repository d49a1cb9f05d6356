package canadensis

// Publisher assembles message transfers on one subject. Messages are
// broadcast, so a single modulo-32 transfer-ID counter per publisher is
// enough; no per-destination ledger is needed.
type Publisher struct {
	// Subject the messages are published on.
	Subject PortID
	// Priority of published transfers.
	Priority Priority
	// Timeout bounds how long queued frames stay valid.
	Timeout Microsecond

	nextTID TID
}

// NewPublisher creates a publisher for one subject.
func NewPublisher(subject PortID, timeout Microsecond, priority Priority) *Publisher {
	return &Publisher{Subject: subject, Priority: priority, Timeout: timeout}
}

// Publish composes a message transfer with the next transfer ID and hands it
// to the transmitter. The transfer ID advances even when the push fails with
// ErrOutOfMemory, so subscribers observe a gap rather than a duplicate.
func (p *Publisher) Publish(now Microsecond, payload []byte, tx *Transmitter) error {
	if tx == nil {
		return ErrInvalidArgument
	}
	meta := Metadata{
		Priority: p.Priority,
		TxKind:   TxKindMessage,
		Port:     p.Subject,
		Remote:   NodeIDUnset,
		TID:      p.nextTID,
	}
	p.nextTID = (p.nextTID + 1) & TRANSFER_ID_MAX
	return tx.Push(now+p.Timeout, &meta, payload)
}
