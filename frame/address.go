package frame

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// ErrEmptyPayload is returned when a message is built without any text. A
// message must carry at least one byte, or it would classify as control.
var ErrEmptyPayload = errors.New("message payload is empty")

// ErrInvalidPayload is returned when a message text is not valid UTF-8.
// Decode would drop such a frame at every hop.
var ErrInvalidPayload = errors.New("message payload is not valid UTF-8")

// An Address identifies a device. Node ids are non-negative and switch ids
// are negative.
type Address struct {
	Network int
	ID      int
}

// RuleAddress is the placeholder address written on both ends of firewall
// rule frames.
var RuleAddress = Address{Network: 100, ID: 100}

// IsSwitch tells if the address belongs to a switch.
func (a Address) IsSwitch() bool {
	return a.ID < 0
}

// IsNode tells if the address belongs to a node.
func (a Address) IsNode() bool {
	return a.ID >= 0
}

func (a Address) String() string {
	if a.IsSwitch() {
		return fmt.Sprintf("%d_SWITCH%d", a.Network, -a.ID)
	}

	return strconv.Itoa(a.Network) + "_" + strconv.Itoa(a.ID)
}

// FitsHeader tells if the address can be written into the one-byte header
// fields.
func (a Address) FitsHeader() bool {
	return a.Network >= 0 && a.Network <= MaxFieldValue &&
		a.ID >= 0 && a.ID <= MaxFieldValue
}

// MakeMessage creates a message frame from src to dst with a computed
// checksum.
func MakeMessage(
	dst, src Address,
	marker uint8,
	payload string,
) (Frame, error) {
	if !dst.FitsHeader() || !src.FitsHeader() {
		return Frame{}, fmt.Errorf("%w: %s -> %s",
			ErrAddressOutOfRange, src, dst)
	}

	if len(payload) == 0 {
		return Frame{}, ErrEmptyPayload
	}

	if !utf8.ValidString(payload) {
		return Frame{}, ErrInvalidPayload
	}

	if len(payload) > MaxFieldValue {
		return Frame{}, fmt.Errorf("%w: %d bytes",
			ErrPayloadTooLong, len(payload))
	}

	f := Frame{
		DestNet:     uint8(dst.Network),
		DestID:      uint8(dst.ID),
		SrcNet:      uint8(src.Network),
		SrcID:       uint8(src.ID),
		PayloadSize: uint8(len(payload)),
		Control:     marker,
		Payload:     payload,
	}
	f.Checksum = ComputeChecksum(f)

	return f, nil
}

// MakeControl creates a control frame. The payload size stays zero so the
// code decides the type, but the payload is still carried so that the
// receiver can correlate the frame with a message.
func MakeControl(dst, src Address, code uint8, payload string) Frame {
	f := Frame{
		DestNet: uint8(dst.Network),
		DestID:  uint8(dst.ID),
		SrcNet:  uint8(src.Network),
		SrcID:   uint8(src.ID),
		Control: code,
		Payload: payload,
	}
	f.Checksum = ComputeChecksum(f)

	return f
}

// MakeReply creates a control frame that answers f, sent back from f's
// destination to f's source.
func MakeReply(f Frame, code uint8) Frame {
	return MakeControl(f.Src(), f.Dest(), code, f.Payload)
}
