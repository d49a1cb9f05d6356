package canadensis

// Contains receive-side reassembly logic. Exported API first.

// Handler receives completed transfers from a Receiver. Each transfer is
// delivered at most once. Requests come with a ResponseToken that a Responder
// uses to address the reply.
type Handler interface {
	HandleMessage(t *Transfer)
	HandleRequest(t *Transfer, token ResponseToken)
	HandleResponse(t *Transfer)
}

// SessionPolicy decides what happens when a subscription's live-session limit
// is reached and a frame starts yet another transfer.
type SessionPolicy uint8

const (
	// PolicyRejectNew refuses the new session and counts the discard.
	// Live sessions are never sacrificed. This is the default.
	PolicyRejectNew SessionPolicy = iota
	// PolicyEvictOldest evicts the least recently active session to make
	// room for the new one.
	PolicyEvictOldest
)

// RxStats counts frames discarded by the receive pipeline, by cause.
// Protocol violations and checksum failures are not surfaced as errors;
// these counters are the only way they are observable.
type RxStats struct {
	Transfers        uint64 // completed transfers delivered
	Malformed        uint64 // frames that violate the wire format
	WrongDestination uint64 // service frames addressed to another node
	NoSubscription   uint64 // frames with no matching subscription
	Duplicates       uint64 // repeated frames of an already seen transfer
	Violations       uint64 // toggle mismatch, stray or out-of-order frames
	BadChecksums     uint64 // multi-frame transfers with an invalid CRC
	SessionLimit     uint64 // session starts refused by the capacity policy
}

// Subscription is one (kind, port) the receiver listens on. At most one
// reassembly session exists per source node; the sessions array is indexed by
// source node ID, bounding memory at configuration time.
type Subscription struct {
	kind    TxKind
	port    PortID
	extent  int
	timeout Microsecond

	policy      SessionPolicy
	maxSessions int
	live        int
	sessions    [nodeCount]*rxSession
}

// SetSessionLimit bounds the number of concurrently accumulating sessions and
// sets the policy applied when the bound is hit. A limit of zero or less
// restores the default of one session per possible source node.
func (s *Subscription) SetSessionLimit(n int, policy SessionPolicy) {
	if n <= 0 || n > nodeCount {
		n = nodeCount
	}
	s.maxSessions = n
	s.policy = policy
}

// Receiver reassembles transfers from incoming frames and hands them to a
// Handler. It owns the session table exclusively; all methods must be called
// from the driving poll loop.
type Receiver struct {
	// Local is the node ID service transfers must be addressed to.
	Local   NodeID
	handler Handler
	subs    [numberOfTxKinds]map[PortID]*Subscription
	stats   RxStats
	// Filter list rebuilt on the next Filters call after a subscription change.
	filters      []Filter
	filtersStale bool
}

func NewReceiver(local NodeID, handler Handler) *Receiver {
	r := &Receiver{Local: local, handler: handler, filtersStale: true}
	for k := range r.subs {
		r.subs[k] = make(map[PortID]*Subscription)
	}
	return r
}

// Stats returns a copy of the discard counters.
func (r *Receiver) Stats() RxStats { return r.stats }

// Subscribe starts listening for transfers of the given kind on the given
// port. extent bounds the reassembled payload size; longer transfers are
// truncated (their CRC still verifies). timeout is both the transfer-ID
// timeout and the idle bound used by Sweep. Subscribing to an already
// subscribed port replaces the subscription and drops its sessions.
func (r *Receiver) Subscribe(kind TxKind, port PortID, extent int, timeout Microsecond) (*Subscription, error) {
	switch {
	case kind >= numberOfTxKinds:
		return nil, ErrTransferKind
	case kind == TxKindMessage && port > SUBJECT_ID_MAX,
		kind != TxKindMessage && port > SERVICE_ID_MAX:
		return nil, ErrInvalidArgument
	case extent < 0:
		return nil, ErrInvalidArgument
	}
	sub := &Subscription{
		kind:        kind,
		port:        port,
		extent:      extent,
		timeout:     timeout,
		maxSessions: nodeCount,
	}
	r.subs[kind][port] = sub
	r.filtersStale = true
	return sub, nil
}

// Unsubscribe stops listening on the given port. In-progress sessions for it
// are dropped.
func (r *Receiver) Unsubscribe(kind TxKind, port PortID) error {
	if kind >= numberOfTxKinds {
		return ErrTransferKind
	}
	if _, ok := r.subs[kind][port]; ok {
		delete(r.subs[kind], port)
		r.filtersStale = true
	}
	return nil
}

// Accept processes one received frame. Completed transfers are delivered to
// the handler before Accept returns. Frames that are malformed, duplicated,
// out of order or unwanted are discarded and counted; only caller errors
// (nil or empty frames) are reported.
func (r *Receiver) Accept(frame *Frame) error {
	if frame == nil {
		return ErrInvalidArgument
	}
	if len(frame.Payload) == 0 {
		return errEmptyPayload
	}
	var model frameModel
	if err := parseFrame(frame, &model); err != nil {
		r.stats.Malformed++
		return nil
	}
	if !model.dstNode.IsUnset() && model.dstNode != r.Local {
		r.stats.WrongDestination++
		return nil
	}
	sub, ok := r.subs[model.txKind][model.port]
	if !ok {
		r.stats.NoSubscription++
		return nil
	}
	if model.srcNode.IsUnset() {
		// Anonymous transfers are always single-frame and carry no
		// session state.
		r.deliver(&model, truncate(model.payload, sub.extent), model.timestamp)
		return nil
	}
	r.acceptFrame(sub, &model)
	return nil
}

// Sweep evicts sessions that have been inactive longer than their
// subscription's timeout, reclaiming their buffers. The core never runs
// timers of its own; the driving loop must call Sweep periodically with the
// current time. Calling it again immediately is a no-op.
func (r *Receiver) Sweep(now Microsecond) {
	for kind := range r.subs {
		for _, sub := range r.subs[kind] {
			for src, rxs := range &sub.sessions {
				if rxs == nil {
					continue
				}
				if now > rxs.lastActivity && now-rxs.lastActivity > sub.timeout {
					sub.evict(NodeID(src))
				}
			}
		}
	}
}

// Below is private API.

type rxSession struct {
	// Timestamp of the first frame of the current transfer.
	start Microsecond
	// Timestamp of the last accepted frame; drives Sweep eviction.
	lastActivity     Microsecond
	payload          []byte
	payloadSize      int
	totalPayloadSize int
	crc              CRC
	tid              TID
	toggle           bool
	// True while a transfer is accumulating. After completion or failure
	// the session stays as an idle shell so that duplicates of the
	// finished transfer are still recognized, but it holds no buffer.
	active bool
}

// reset returns the session to the idle shell state expecting tid next.
func (rxs *rxSession) reset(tid TID) {
	rxs.totalPayloadSize = 0
	rxs.payloadSize = 0
	rxs.payload = nil
	rxs.crc = newCRC()
	rxs.tid = tid & TRANSFER_ID_MAX
	rxs.toggle = initialToggle
	rxs.active = false
}

func (s *Subscription) evict(src NodeID) {
	rxs := s.sessions[src]
	if rxs == nil {
		return
	}
	if rxs.active {
		s.live--
	}
	s.sessions[src] = nil
}

// deactivate resets the session shell to expect the transfer after the
// current one.
func (s *Subscription) deactivate(rxs *rxSession, now Microsecond) {
	if rxs.active {
		s.live--
	}
	rxs.reset((rxs.tid + 1) & TRANSFER_ID_MAX)
	rxs.lastActivity = now
}

// forwardDistance computes (a-b) mod 32, the number of increments that take b
// to a in transfer-ID space.
func forwardDistance(a, b TID) uint8 {
	diff := int16(a) - int16(b)
	if diff < 0 {
		diff += 1 << TRANSFER_ID_BIT_LENGTH
	}
	return uint8(diff)
}

func (r *Receiver) acceptFrame(sub *Subscription, frame *frameModel) {
	src := frame.srcNode
	rxs := sub.sessions[src]
	created := false
	if rxs == nil {
		if !frame.txStart {
			// Continuation of a transfer we never saw the start of.
			r.stats.Violations++
			return
		}
		rxs = &rxSession{lastActivity: frame.timestamp}
		rxs.reset(frame.tid)
		sub.sessions[src] = rxs
		created = true
	}

	tidTimedOut := frame.timestamp > rxs.lastActivity && frame.timestamp-rxs.lastActivity > sub.timeout
	notAdjacentTID := forwardDistance(rxs.tid, frame.tid) > 1
	if tidTimedOut || (frame.txStart && notAdjacentTID) {
		if !frame.txStart {
			// The start of the newer transfer was missed; resign
			// and wait for the next start frame.
			if rxs.active {
				sub.live--
			}
			rxs.reset((rxs.tid + 1) & TRANSFER_ID_MAX)
			r.stats.Violations++
			return
		}
		if rxs.active {
			sub.live--
		}
		rxs.reset(frame.tid)
	}

	if frame.txStart && !rxs.active {
		if frame.tid != rxs.tid {
			// Not timed out and not newer: a duplicate of a
			// transfer already completed. No state change.
			r.stats.Duplicates++
			return
		}
		if sub.live >= sub.maxSessions && !r.makeRoom(sub, src) {
			if created {
				// Never started; do not leave an empty shell behind.
				sub.sessions[src] = nil
			}
			return
		}
		rxs.active = true
		sub.live++
		rxs.start = frame.timestamp
		rxs.lastActivity = frame.timestamp
		r.ingest(sub, rxs, frame)
		return
	}

	if !rxs.active {
		// Continuation frame for an idle session: the matching start
		// was never accepted.
		r.stats.Violations++
		return
	}
	if frame.txStart {
		// Duplicate start frame of the transfer in progress. No state change.
		r.stats.Duplicates++
		return
	}
	if frame.tid != rxs.tid || frame.toggle != rxs.toggle {
		// Out-of-order or foreign continuation corrupts the session
		// beyond repair; evict so a fresh start frame is accepted cleanly.
		sub.evict(src)
		r.stats.Violations++
		return
	}
	rxs.lastActivity = frame.timestamp
	r.ingest(sub, rxs, frame)
}

// makeRoom applies the capacity policy when a new transfer would exceed the
// live-session limit. It reports whether a slot was freed.
func (r *Receiver) makeRoom(sub *Subscription, newcomer NodeID) bool {
	r.stats.SessionLimit++
	if sub.policy == PolicyRejectNew {
		return false
	}
	oldest := NodeIDUnset
	var oldestTime Microsecond
	for src, rxs := range &sub.sessions {
		if rxs == nil || !rxs.active || NodeID(src) == newcomer {
			continue
		}
		if oldest.IsUnset() || rxs.lastActivity < oldestTime {
			oldest = NodeID(src)
			oldestTime = rxs.lastActivity
		}
	}
	if oldest.IsUnset() {
		return false
	}
	sub.evict(oldest)
	return true
}

// ingest appends a validated frame to the session and finishes the transfer
// on an end frame.
func (r *Receiver) ingest(sub *Subscription, rxs *rxSession, frame *frameModel) {
	singleFrame := frame.txStart && frame.txEnd
	if !singleFrame {
		rxs.crc = rxs.crc.Add(frame.payload)
	}
	rxs.writePayload(sub.extent, frame.payload)
	if !frame.txEnd {
		rxs.toggle = !rxs.toggle
		return
	}
	if !singleFrame && rxs.crc != 0 {
		r.stats.BadChecksums++
		sub.deactivate(rxs, frame.timestamp)
		return
	}
	payload := rxs.payload[:rxs.payloadSize]
	if !singleFrame {
		// Strip the CRC unless extent truncation already swallowed it.
		truncated := rxs.totalPayloadSize - rxs.payloadSize
		if truncated < crcSize {
			payload = payload[:len(payload)-(crcSize-truncated)]
		}
	}
	start := rxs.start
	// Ownership of the buffer passes to the application.
	rxs.payload = nil
	sub.deactivate(rxs, frame.timestamp)
	r.deliver(frame, payload, start)
}

func (r *Receiver) deliver(frame *frameModel, payload []byte, start Microsecond) {
	r.stats.Transfers++
	if r.handler == nil {
		return
	}
	t := &Transfer{Timestamp: start, Payload: payload}
	t.Metadata.fromRxFrame(frame)
	switch frame.txKind {
	case TxKindMessage:
		r.handler.HandleMessage(t)
	case TxKindRequest:
		r.handler.HandleRequest(t, ResponseToken{
			service:  frame.port,
			client:   frame.srcNode,
			tid:      frame.tid,
			priority: frame.priority,
		})
	case TxKindResponse:
		r.handler.HandleResponse(t)
	}
}

// writePayload appends frame payload bytes, truncating at the subscription
// extent. The buffer is allocated lazily on the first frame.
func (rxs *rxSession) writePayload(extent int, payload []byte) {
	rxs.totalPayloadSize += len(payload)
	if rxs.payload == nil && extent > 0 {
		rxs.payload = make([]byte, 0, min(extent, rxs.totalPayloadSize))
	}
	room := extent - rxs.payloadSize
	if room <= 0 {
		return
	}
	n := min(room, len(payload))
	rxs.payload = append(rxs.payload[:rxs.payloadSize], payload[:n]...)
	rxs.payloadSize += n
}

func truncate(p []byte, extent int) []byte {
	if extent > len(p) {
		extent = len(p)
	}
	out := make([]byte, extent)
	copy(out, p[:extent])
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
