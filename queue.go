package canadensis

// txItem is one enqueued frame together with its ordering sequence number.
type txItem struct {
	node  avlNode
	seq   int64
	frame Frame
}

// txItemCompare defines the total order of the transmit queue: ascending
// extended CAN ID (the frame that wins bus arbitration dequeues first), then
// ascending sequence so that equal-priority frames keep FIFO order. Sequence
// numbers are unique, so the result is never zero for distinct items.
func txItemCompare(a, b *txItem) int {
	switch {
	case a.frame.ID != b.frame.ID:
		return int(bsign(a.frame.ID > b.frame.ID))
	case a.seq != b.seq:
		return int(bsign(a.seq > b.seq))
	}
	return 0
}

// FrameQueue is a bounded priority queue of outgoing CAN frames. Frames
// dequeue in ascending arbitration order; among frames of equal identifier,
// first enqueued dequeues first. The queue owns every enqueued frame until it
// is popped.
//
// Capacity is fixed at construction. Push and ReturnFrame fail with
// ErrOutOfMemory when the queue is full; a failed insertion leaves the queue
// contents untouched. The queue never drops frames on its own.
type FrameQueue struct {
	capacity int
	size     int
	root     *avlNode
	// Ascending counter for Push, descending counter for ReturnFrame.
	// A returned frame must precede queued frames of equal identifier
	// without jumping ahead of strictly higher-priority traffic.
	backSeq  int64
	frontSeq int64
}

// NewFrameQueue creates a queue that holds at most capacity frames.
func NewFrameQueue(capacity int) *FrameQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameQueue{capacity: capacity, frontSeq: -1}
}

func (q *FrameQueue) Len() int      { return q.size }
func (q *FrameQueue) Capacity() int { return q.capacity }

// TryReserve reports whether n additional frames fit in the queue. It lets a
// caller verify that a whole multi-frame transfer can be enqueued before
// emitting any of it, so segmentation either fully succeeds or fully fails.
func (q *FrameQueue) TryReserve(n int) error {
	if n < 0 {
		return ErrInvalidArgument
	}
	if q.size+n > q.capacity {
		return ErrOutOfMemory
	}
	return nil
}

// Push enqueues a frame behind all frames of equal or higher priority.
func (q *FrameQueue) Push(frame Frame) error {
	if q.size >= q.capacity {
		return ErrOutOfMemory
	}
	item := &txItem{seq: q.backSeq, frame: frame}
	q.backSeq++
	item.node.item = item
	avlInsert(&q.root, &item.node)
	q.size++
	return nil
}

// ReturnFrame re-inserts a frame that was popped but could not be
// transmitted. It lands ahead of every queued frame of equal identifier but
// keeps losing to strictly higher-priority frames enqueued meanwhile.
func (q *FrameQueue) ReturnFrame(frame Frame) error {
	if q.size >= q.capacity {
		return ErrOutOfMemory
	}
	item := &txItem{seq: q.frontSeq, frame: frame}
	q.frontSeq--
	item.node.item = item
	avlInsert(&q.root, &item.node)
	q.size++
	return nil
}

// Peek returns the highest-priority frame without removing it.
func (q *FrameQueue) Peek() (Frame, bool) {
	n := avlMin(q.root)
	if n == nil {
		return Frame{}, false
	}
	return n.item.frame, true
}

// Pop removes and returns the highest-priority frame. Ownership of the frame
// moves to the caller.
func (q *FrameQueue) Pop() (Frame, bool) {
	n := avlMin(q.root)
	if n == nil {
		return Frame{}, false
	}
	avlRemove(&q.root, n)
	q.size--
	return n.item.frame, true
}
