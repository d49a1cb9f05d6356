//go:build linux

// Command basicnode runs a minimal transport node over SocketCAN: it
// publishes a heartbeat once per second and answers node-info requests.
//
// Testing against a virtual CAN device:
//
//	sudo modprobe vcan
//	sudo ip link add dev vcan0 type vcan
//	sudo ip link set up vcan0
//	basicnode -i vcan0 -n 42
package main

import (
	"crypto/rand"
	"encoding/binary"
	"os"
	"time"

	"github.com/akamensky/argparse"
	logging "github.com/op/go-logging"
	"github.com/pkg/errors"

	canadensis "github.com/NikBel3476/canadensis"
	"github.com/NikBel3476/canadensis/socketcan"
)

var log, _ = logging.GetLogger("basicnode")

const (
	heartbeatSubject canadensis.PortID = 7509
	getInfoService   canadensis.PortID = 430

	txQueueCap     = 64
	sessionTimeout = canadensis.Microsecond(2e6)
	frameDeadline  = canadensis.Microsecond(1e6)
)

type systemClock struct {
	start time.Time
}

func (c *systemClock) Now() canadensis.Microsecond {
	return canadensis.Microsecond(time.Since(c.start).Microseconds())
}

type node struct {
	local     canadensis.NodeID
	clock     *systemClock
	tx        *canadensis.Transmitter
	responder canadensis.Responder
	uniqueID  [16]byte
}

func (n *node) HandleMessage(t *canadensis.Transfer) {
	// Not subscribed to any subjects.
}

func (n *node) HandleRequest(t *canadensis.Transfer, token canadensis.ResponseToken) {
	if token.Service() != getInfoService {
		return
	}
	// Node info: protocol 1.0, versions zero, unique ID, node name.
	info := make([]byte, 0, 64)
	info = append(info, 1, 0, 0, 0, 0, 1)
	info = append(info, make([]byte, 8)...) // VCS revision
	info = append(info, n.uniqueID[:]...)
	name := []byte("org.canadensis.basicnode")
	info = append(info, byte(len(name)))
	info = append(info, name...)
	err := n.responder.SendResponse(n.clock.Now(), token, info, n.tx)
	if err != nil {
		log.Warningf("node info response dropped: %v", err)
	}
}

func (n *node) HandleResponse(t *canadensis.Transfer) {
	// This node sends no requests.
}

func (n *node) heartbeat(uptimeSeconds uint32) []byte {
	// uptime, health nominal, mode operational, vendor status zero.
	payload := make([]byte, 7)
	binary.LittleEndian.PutUint32(payload, uptimeSeconds)
	return payload
}

func main() {
	parser := argparse.NewParser("basicnode", "Run a minimal transport node on a CAN interface")
	argIface := parser.String("i", "interface", &argparse.Options{
		Required: true,
		Help:     "SocketCAN interface name, e.g. can0 or vcan0",
	})
	argNodeID := parser.Int("n", "node-id", &argparse.Options{
		Required: true,
		Help:     "Node ID in 0..127",
	})
	argRecord := parser.String("r", "record", &argparse.Options{
		Help: "Write received frames to this CBOR capture file",
	})
	argDebug := parser.Flag("d", "debug", &argparse.Options{
		Help: "Verbose logging",
	})
	if err := parser.Parse(os.Args); err != nil {
		os.Stderr.WriteString(parser.Usage(err))
		os.Exit(2)
	}

	backend := logging.AddModuleLevel(logging.NewLogBackend(os.Stderr, "", 0))
	if *argDebug {
		backend.SetLevel(logging.DEBUG, "")
	} else {
		backend.SetLevel(logging.INFO, "")
	}
	logging.SetBackend(backend)

	if err := run(*argIface, *argNodeID, *argRecord); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(iface string, nodeID int, recordPath string) error {
	if nodeID < 0 || nodeID > canadensis.NODE_ID_MAX {
		return errors.Errorf("node ID %d out of range 0..%d", nodeID, canadensis.NODE_ID_MAX)
	}
	local := canadensis.NodeID(nodeID)

	driver, err := socketcan.Dial(iface)
	if err != nil {
		return err
	}
	defer driver.Close()

	var recorder *canadensis.Recorder
	if recordPath != "" {
		f, err := os.Create(recordPath)
		if err != nil {
			return errors.Wrap(err, "open capture file")
		}
		defer f.Close()
		recorder = canadensis.NewRecorder(f)
	}

	clock := &systemClock{start: time.Now()}
	n := &node{
		local:     local,
		clock:     clock,
		tx:        canadensis.NewTransmitter(local, canadensis.MTUCanClassic, txQueueCap),
		responder: canadensis.Responder{Local: local, Timeout: frameDeadline},
	}
	if _, err := rand.Read(n.uniqueID[:]); err != nil {
		return errors.Wrap(err, "generate unique ID")
	}

	rx := canadensis.NewReceiver(local, n)
	if _, err := rx.Subscribe(canadensis.TxKindRequest, getInfoService, 0, sessionTimeout); err != nil {
		return err
	}
	driver.ApplyFilters(local, rx.Filters())

	heartbeat := canadensis.NewPublisher(heartbeatSubject, frameDeadline, canadensis.PriorityLow)
	log.Infof("node %d up on %s", local, iface)

	var lastBeat canadensis.Microsecond
	for {
		now := clock.Now()

		// Drain received frames into the receiver.
		for {
			frame, err := driver.Receive(now)
			if err == canadensis.ErrWouldBlock {
				break
			}
			if err != nil {
				return err
			}
			if recorder != nil {
				if err := recorder.Record(frame); err != nil {
					log.Warningf("capture write failed: %v", err)
					recorder = nil
				}
			}
			if err := rx.Accept(&frame); err != nil {
				log.Debugf("frame rejected: %v", err)
			}
		}

		if now-lastBeat >= 1e6 {
			lastBeat = now
			err := heartbeat.Publish(now, n.heartbeat(uint32(now/1e6)), n.tx)
			if err != nil {
				log.Warningf("heartbeat dropped: %v", err)
			}
		}

		// Drain the transmit queue toward the bus.
		for {
			frame, ok := n.tx.Queue().Pop()
			if !ok {
				break
			}
			err := driver.Transmit(frame, now)
			if err == canadensis.ErrWouldBlock {
				// Full socket buffer; retry on the next poll.
				if err := n.tx.Queue().ReturnFrame(frame); err != nil {
					log.Warningf("tx frame dropped: %v", err)
				}
				break
			}
			if err != nil {
				return err
			}
		}

		rx.Sweep(now)
		time.Sleep(time.Millisecond)
	}
}
