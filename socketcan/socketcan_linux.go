//go:build linux

// Package socketcan implements the transport driver interfaces over Linux
// SocketCAN raw sockets. It speaks classical CAN (8-byte MTU); CAN FD frames
// are not produced or accepted.
package socketcan

import (
	"encoding/binary"
	"net"

	canadensis "github.com/NikBel3476/canadensis"
	logging "github.com/op/go-logging"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

var log, _ = logging.GetLogger("socketcan")

// frameSize is the size of the kernel can_frame struct for classical CAN.
const frameSize = 16

// Driver is a non-blocking SocketCAN driver. It implements both
// canadensis.TransmitDriver and canadensis.ReceiveDriver.
type Driver struct {
	fd    int
	iface string
}

// Dial opens a raw CAN socket bound to the named interface (e.g. "can0") in
// non-blocking mode.
func Dial(iface string) (*Driver, error) {
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, errors.Wrap(err, "socketcan: socket")
	}
	netIf, err := net.InterfaceByName(iface)
	if err != nil {
		unix.Close(fd)
		return nil, errors.Wrapf(err, "socketcan: interface %q", iface)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: netIf.Index}); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "socketcan: bind")
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "socketcan: set nonblock")
	}
	log.Infof("opened %s", iface)
	return &Driver{fd: fd, iface: iface}, nil
}

// Close releases the socket.
func (d *Driver) Close() error {
	return unix.Close(d.fd)
}

// TryReserve implements canadensis.TransmitDriver. The kernel socket buffer
// does the queueing; there is nothing to reserve.
func (d *Driver) TryReserve(frames int) error { return nil }

// Transmit writes one frame to the socket. A full socket buffer is reported
// as canadensis.ErrWouldBlock so the caller returns the frame to its queue
// and retries on the next poll.
func (d *Driver) Transmit(frame canadensis.Frame, _ canadensis.Microsecond) error {
	if len(frame.Payload) > canadensis.MTUCanClassic {
		return errors.Errorf("socketcan: frame payload %d exceeds classic CAN MTU", len(frame.Payload))
	}
	var buf [frameSize]byte
	id := uint32(frame.ID) | unix.CAN_EFF_FLAG
	binary.LittleEndian.PutUint32(buf[0:4], id)
	buf[4] = byte(len(frame.Payload))
	copy(buf[8:], frame.Payload)
	_, err := unix.Write(d.fd, buf[:])
	if err == unix.EAGAIN || err == unix.ENOBUFS {
		return canadensis.ErrWouldBlock
	}
	if err != nil {
		return errors.Wrap(err, "socketcan: write")
	}
	return nil
}

// Flush implements canadensis.TransmitDriver. The kernel flushes on its own.
func (d *Driver) Flush(_ canadensis.Microsecond) error { return nil }

// Receive reads one frame from the socket, timestamping it with now.
func (d *Driver) Receive(now canadensis.Microsecond) (canadensis.Frame, error) {
	var buf [frameSize]byte
	n, err := unix.Read(d.fd, buf[:])
	if err == unix.EAGAIN {
		return canadensis.Frame{}, canadensis.ErrWouldBlock
	}
	if err != nil {
		return canadensis.Frame{}, errors.Wrap(err, "socketcan: read")
	}
	if n < frameSize {
		return canadensis.Frame{}, errors.Errorf("socketcan: short read of %d bytes", n)
	}
	id := binary.LittleEndian.Uint32(buf[0:4])
	if id&unix.CAN_EFF_FLAG == 0 || id&(unix.CAN_RTR_FLAG|unix.CAN_ERR_FLAG) != 0 {
		// Standard-ID, RTR and error frames are not part of the
		// transport; report no frame waiting.
		return canadensis.Frame{}, canadensis.ErrWouldBlock
	}
	length := int(buf[4])
	if length > canadensis.MTUCanClassic {
		length = canadensis.MTUCanClassic
	}
	payload := make([]byte, length)
	copy(payload, buf[8:8+length])
	return canadensis.Frame{
		Timestamp: now,
		ID:        canadensis.CanID(id & unix.CAN_EFF_MASK),
		Payload:   payload,
	}, nil
}

// ApplyFilters installs the acceptance filter list on the socket. An empty
// list installs a match-nothing filter; passing the computed list anew after
// every subscription change is the caller's job. Kernel rejection is logged
// and otherwise ignored: the socket then stays unfiltered and the receiver
// discards the excess.
func (d *Driver) ApplyFilters(_ canadensis.NodeID, filters []canadensis.Filter) {
	kf := make([]unix.CanFilter, len(filters))
	for i, f := range filters {
		// Transport frames always use extended IDs.
		kf[i].Id = f.ID | unix.CAN_EFF_FLAG
		kf[i].Mask = f.Mask | unix.CAN_EFF_FLAG | unix.CAN_RTR_FLAG
	}
	if len(kf) == 0 {
		kf = []unix.CanFilter{{Id: 0, Mask: ^uint32(0)}}
	}
	if err := unix.SetsockoptCanRawFilter(d.fd, unix.SOL_CAN_RAW, unix.CAN_RAW_FILTER, kf); err != nil {
		log.Warningf("apply %d filters on %s: %v", len(filters), d.iface, err)
	}
}
