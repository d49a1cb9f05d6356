package canadensis

// ResponseToken correlates a response with the request it answers. The
// Receiver issues one for every delivered request; it carries the request's
// identifying fields so the response transfer is addressed and sequenced
// correctly without the handler juggling raw header fields.
type ResponseToken struct {
	service  PortID
	client   NodeID
	tid      TID
	priority Priority
}

// Service returns the service ID the request was sent on.
func (t ResponseToken) Service() PortID { return t.service }

// Client returns the node that sent the request.
func (t ResponseToken) Client() NodeID { return t.client }

// Responder assembles service response transfers. Responses reuse the
// request's transfer ID and priority, so no ledger is involved.
type Responder struct {
	// Local is the ID of this node.
	Local NodeID
	// Timeout bounds how long queued response frames stay valid.
	Timeout Microsecond
}

// SendResponse composes the response transfer identified by token and hands
// it to the transmitter.
func (r *Responder) SendResponse(now Microsecond, token ResponseToken, payload []byte, tx *Transmitter) error {
	if tx == nil {
		return ErrInvalidArgument
	}
	meta := Metadata{
		Priority: token.priority,
		TxKind:   TxKindResponse,
		Port:     token.service,
		Remote:   token.client,
		TID:      token.tid,
	}
	return tx.Push(now+r.Timeout, &meta, payload)
}
