// Package canadensis implements the CAN transport layer of a UAVCAN-style
// publish/subscribe and request/response protocol stack.
//
// The package turns application-level transfers (priority, addressing, a
// payload of arbitrary length) into bounded, priority-ordered CAN frames for
// transmission, and reassembles multi-frame transfers from lossy, reordered,
// multi-source frame traffic on reception.
//
// The core is single-threaded and non-blocking: all operations run to
// completion and report inability to proceed as a result value, never by
// blocking. An external poll loop drains the transmit queue, feeds received
// frames to the Receiver and periodically invokes the session sweep with the
// current time.
package canadensis
