package protocol

import "fmt"

// Protocol control characters.
const (
	SOH byte = 0x01
	STX byte = 0x02
	ETX byte = 0x03
)

// MinFrameLen is the shortest valid wire image (empty payload).
const MinFrameLen = 5

// FrameErrorKind classifies frame decode failures.
type FrameErrorKind int

const (
	ErrTooShort FrameErrorKind = iota
	ErrBadStart
	ErrBadFrameStart
	ErrBadFrameEnd
	ErrChecksumMismatch
)

// String returns a human-readable representation of the kind.
func (k FrameErrorKind) String() string {
	switch k {
	case ErrTooShort:
		return "TooShort"
	case ErrBadStart:
		return "BadStart"
	case ErrBadFrameStart:
		return "BadFrameStart"
	case ErrBadFrameEnd:
		return "BadFrameEnd"
	case ErrChecksumMismatch:
		return "ChecksumMismatch"
	default:
		return "Unknown"
	}
}

// FrameError reports why a byte chunk failed frame validation.
type FrameError struct {
	Kind FrameErrorKind
	// Want/Got carry the expected and received byte for sentinel and
	// checksum failures; both are zero for TooShort.
	Want byte
	Got  byte
}

func (e *FrameError) Error() string {
	switch e.Kind {
	case ErrTooShort:
		return "frame too short"
	case ErrChecksumMismatch:
		return fmt.Sprintf("checksum mismatch: want %#02x, got %#02x", e.Want, e.Got)
	default:
		return fmt.Sprintf("%s: want %#02x, got %#02x", e.Kind, e.Want, e.Got)
	}
}

// Frame is one validated protocol unit as received off the wire.
// It is built fresh per decode and consumed once by the message dispatcher.
type Frame struct {
	Address  byte   // participates in checksum
	Control  byte   // participates in checksum
	Payload  []byte // variable-length message body
	Checksum byte   // as transmitted
}

// Checksum computes the LRC-style checksum over bytes: XOR-fold into an
// 8-bit accumulator, mask with 0x7F, then add 32 if the masked value is
// below 32. The result always lies in [32, 127].
func Checksum(bytes []byte) byte {
	var acc byte
	for _, b := range bytes {
		acc ^= b
	}
	lrc := acc & 0x7F
	if lrc < 32 {
		lrc += 32
	}
	return lrc
}

// checksumInput assembles the bytes covered by the checksum:
// address, STX, control, payload, ETX. SOH is excluded.
func checksumInput(address, control byte, payload []byte) []byte {
	in := make([]byte, 0, 3+len(payload)+1)
	in = append(in, address, STX, control)
	in = append(in, payload...)
	in = append(in, ETX)
	return in
}

// DecodeFrame validates one raw chunk as a complete frame. Each check
// short-circuits; the returned error is always a *FrameError.
func DecodeFrame(data []byte) (Frame, error) {
	if len(data) < MinFrameLen {
		return Frame{}, &FrameError{Kind: ErrTooShort}
	}
	if data[0] != SOH {
		return Frame{}, &FrameError{Kind: ErrBadStart, Want: SOH, Got: data[0]}
	}
	if data[2] != STX {
		return Frame{}, &FrameError{Kind: ErrBadFrameStart, Want: STX, Got: data[2]}
	}
	if data[len(data)-2] != ETX {
		return Frame{}, &FrameError{Kind: ErrBadFrameEnd, Want: ETX, Got: data[len(data)-2]}
	}

	f := Frame{
		Address:  data[1],
		Control:  data[3],
		Payload:  data[4 : len(data)-2],
		Checksum: data[len(data)-1],
	}

	want := Checksum(checksumInput(f.Address, f.Control, f.Payload))
	if want != f.Checksum {
		return Frame{}, &FrameError{Kind: ErrChecksumMismatch, Want: want, Got: f.Checksum}
	}
	return f, nil
}

// EncodeFrame builds the wire image for the given fields, computing the
// checksum with the same function DecodeFrame validates with.
func EncodeFrame(address, control byte, payload []byte) []byte {
	out := make([]byte, 0, 4+len(payload)+2)
	out = append(out, SOH, address, STX, control)
	out = append(out, payload...)
	out = append(out, ETX)
	out = append(out, Checksum(checksumInput(address, control, payload)))
	return out
}
