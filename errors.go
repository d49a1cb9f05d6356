package canadensis

import (
	"errors"
	"strconv"
)

var (
	ErrInvalidArgument = errors.New("invalid arg")
	errEmptyPayload    = errors.New("empty or nil payload")
	errInvalidFrame    = errors.New("invalid frame")
	ErrBadDstAddr      = errors.New("bad destination address on frame")
	ErrInvalidNodeID   = errors.New("node id must be in 0.." + strconv.FormatUint(NODE_ID_MAX, 10))
	ErrNoMatchingSub   = errors.New("no matching subscription")
	ErrBadTransferID   = errors.New("transfer id must be in 0.." + strconv.FormatUint(TRANSFER_ID_MAX, 10))
	ErrTransferKind    = errors.New("undefined transfer kind")

	// ErrOutOfMemory reports that a bounded queue or session table is at
	// capacity. The failed operation leaves existing state untouched.
	ErrOutOfMemory = errors.New("out of memory")

	// ErrWouldBlock reports that a driver transiently cannot transmit or
	// receive. The caller retries on the next poll.
	ErrWouldBlock = errors.New("would block")
)
