package canadensis

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Frame capture for bus diagnostics and test replay. Frames are written as a
// stream of self-delimiting CBOR records, one per frame, so a capture can be
// tailed while it grows and truncated captures lose at most one record.

// FrameRecord is the on-disk form of one captured frame.
type FrameRecord struct {
	Timestamp uint64 `cbor:"1,keyasint"`
	ID        uint32 `cbor:"2,keyasint"`
	Payload   []byte `cbor:"3,keyasint"`
}

// Recorder writes captured frames to a CBOR stream.
type Recorder struct {
	enc *cbor.Encoder
}

// NewRecorder creates a recorder writing to w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{enc: cbor.NewEncoder(w)}
}

// Record appends one frame to the capture.
func (r *Recorder) Record(frame Frame) error {
	return r.enc.Encode(FrameRecord{
		Timestamp: uint64(frame.Timestamp),
		ID:        uint32(frame.ID),
		Payload:   frame.Payload,
	})
}

// Replayer reads frames back from a CBOR capture stream.
type Replayer struct {
	dec *cbor.Decoder
}

// NewReplayer creates a replayer reading from rd.
func NewReplayer(rd io.Reader) *Replayer {
	return &Replayer{dec: cbor.NewDecoder(rd)}
}

// Next returns the next captured frame. It returns io.EOF at the end of the
// capture.
func (r *Replayer) Next() (Frame, error) {
	var rec FrameRecord
	if err := r.dec.Decode(&rec); err != nil {
		return Frame{}, err
	}
	return Frame{
		Timestamp: Microsecond(rec.Timestamp),
		ID:        CanID(rec.ID),
		Payload:   rec.Payload,
	}, nil
}
