// Package frame defines the link-layer frame that travels on the simulated
// wires, together with its binary codec.
package frame

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// HeaderSize is the number of fixed bytes in front of the payload.
const HeaderSize = 7

// MaxFieldValue is the largest value a single header byte can carry.
const MaxFieldValue = 0xFF

// Control codes carried in the control byte when the payload size is zero.
const (
	CodeResendRequest uint8 = 0x00
	CodeNak           uint8 = 0x01
	CodeFirewallAck   uint8 = 0x02
	CodeAck           uint8 = 0x03
	CodeRule          uint8 = 0x07
)

// DefaultMarker is the placeholder written into the control byte of message
// frames. It is never used for classification.
const DefaultMarker uint8 = 100

var (
	// ErrMalformedFrame is returned when bytes cannot be decoded into a Frame.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnclassifiedControl is returned when a control frame carries a code
	// that is none of the known control codes.
	ErrUnclassifiedControl = fmt.Errorf("%w: unclassified control code",
		ErrMalformedFrame)

	// ErrPayloadTooLong is returned when a message payload does not fit in the
	// one-byte size field.
	ErrPayloadTooLong = errors.New("payload longer than 255 bytes")

	// ErrAddressOutOfRange is returned when an address does not fit in the
	// one-byte header fields.
	ErrAddressOutOfRange = errors.New("address out of range")
)

// Type is the kind of a frame. It is derived from the frame, never stored.
type Type int

// All the frame types.
const (
	TypeUnknown Type = iota
	TypeMessage
	TypeAck
	TypeNak
	TypeFirewallAck
	TypeResendRequest
	TypeRule
)

var typeNames = map[Type]string{
	TypeUnknown:       "UNKNOWN",
	TypeMessage:       "MSG",
	TypeAck:           "ACK",
	TypeNak:           "NAK",
	TypeFirewallAck:   "FAK",
	TypeResendRequest: "RCK",
	TypeRule:          "RULE",
}

func (t Type) String() string {
	return typeNames[t]
}

// A Frame is the unit of transfer on a wire.
type Frame struct {
	DestNet     uint8
	DestID      uint8
	SrcNet      uint8
	SrcID       uint8
	Checksum    uint8
	PayloadSize uint8
	Control     uint8
	Payload     string
}

// Dest returns the destination address of the frame.
func (f Frame) Dest() Address {
	return Address{Network: int(f.DestNet), ID: int(f.DestID)}
}

// Src returns the source address of the frame.
func (f Frame) Src() Address {
	return Address{Network: int(f.SrcNet), ID: int(f.SrcID)}
}

// Type classifies the frame. A frame with a payload size is a message;
// otherwise the control byte selects the type.
func (f Frame) Type() Type {
	if f.PayloadSize > 0 {
		return TypeMessage
	}

	switch f.Control {
	case CodeResendRequest:
		return TypeResendRequest
	case CodeNak:
		return TypeNak
	case CodeFirewallAck:
		return TypeFirewallAck
	case CodeAck:
		return TypeAck
	case CodeRule:
		return TypeRule
	default:
		return TypeUnknown
	}
}

// IsValid tells if the stored checksum matches the frame content.
func (f Frame) IsValid() bool {
	return ComputeChecksum(f) == f.Checksum
}

func (f Frame) String() string {
	return fmt.Sprintf("%d_%d SENT '%s' [%d] TO %d_%d IN MODE %s WITH CRC %d (%t)",
		f.SrcNet, f.SrcID, f.Payload, f.PayloadSize,
		f.DestNet, f.DestID, f.Type(), f.Checksum, f.IsValid())
}

// ComputeChecksum sums every encoded byte except the checksum byte, modulo
// 256.
func ComputeChecksum(f Frame) uint8 {
	var sum uint8

	for _, b := range EncodeWithChecksum(f, 0) {
		sum += b
	}

	return sum
}

// Encode serializes the frame with a freshly computed checksum.
func Encode(f Frame) []byte {
	return EncodeWithChecksum(f, ComputeChecksum(f))
}

// EncodeWithChecksum serializes the frame writing the given checksum
// verbatim.
func EncodeWithChecksum(f Frame, checksum uint8) []byte {
	buf := make([]byte, 0, HeaderSize+len(f.Payload))
	buf = append(buf,
		f.DestNet, f.DestID,
		f.SrcNet, f.SrcID,
		checksum,
		f.PayloadSize,
		f.Control,
	)
	buf = append(buf, f.Payload...)

	return buf
}

// Decode is the inverse of the encode functions.
func Decode(b []byte) (Frame, error) {
	if len(b) < HeaderSize {
		return Frame{}, fmt.Errorf("%w: %d bytes, need at least %d",
			ErrMalformedFrame, len(b), HeaderSize)
	}

	payload := b[HeaderSize:]
	if !utf8.Valid(payload) {
		return Frame{}, fmt.Errorf("%w: payload is not valid UTF-8",
			ErrMalformedFrame)
	}

	f := Frame{
		DestNet:     b[0],
		DestID:      b[1],
		SrcNet:      b[2],
		SrcID:       b[3],
		Checksum:    b[4],
		PayloadSize: b[5],
		Control:     b[6],
		Payload:     string(payload),
	}

	if f.PayloadSize > 0 && int(f.PayloadSize) != len(payload) {
		return Frame{}, fmt.Errorf("%w: payload size %d, got %d bytes",
			ErrMalformedFrame, f.PayloadSize, len(payload))
	}

	if f.Type() == TypeUnknown {
		return Frame{}, fmt.Errorf("%w: 0x%02x", ErrUnclassifiedControl,
			f.Control)
	}

	return f, nil
}
