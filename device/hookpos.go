package device

import (
	"fmt"
	"log"

	"github.com/sarchlab/bridgesim/frame"
	"github.com/sarchlab/bridgesim/hooking"
	"github.com/sarchlab/bridgesim/wiring"
)

// Hook positions fired by devices. Item is the frame involved, when there is
// one. Detail is the wire or a short reason.
var (
	HookPosFrameRecv      = &hooking.HookPos{Name: "FrameRecv"}
	HookPosFrameDrop      = &hooking.HookPos{Name: "FrameDrop"}
	HookPosFrameIgnored   = &hooking.HookPos{Name: "FrameIgnored"}
	HookPosFrameBlocked   = &hooking.HookPos{Name: "FrameBlocked"}
	HookPosFrameForward   = &hooking.HookPos{Name: "FrameForward"}
	HookPosFrameFlood     = &hooking.HookPos{Name: "FrameFlood"}
	HookPosFrameMalformed = &hooking.HookPos{Name: "FrameMalformed"}
	HookPosSend           = &hooking.HookPos{Name: "Send"}
	HookPosSettle         = &hooking.HookPos{Name: "Settle"}
	HookPosDeliver        = &hooking.HookPos{Name: "Deliver"}
	HookPosReply          = &hooking.HookPos{Name: "Reply"}
	HookPosResend         = &hooking.HookPos{Name: "Resend"}
	HookPosRetransmit     = &hooking.HookPos{Name: "Retransmit"}
	HookPosRuleLearned    = &hooking.HookPos{Name: "RuleLearned"}
	HookPosTableFlush     = &hooking.HookPos{Name: "TableFlush"}
	HookPosDeviceDone     = &hooking.HookPos{Name: "DeviceDone"}
)

// FrameLogger is a hook that writes one line for every device event.
type FrameLogger struct {
	hooking.LogHookBase
}

// NewFrameLogger returns a new FrameLogger which will write into the logger.
func NewFrameLogger(logger *log.Logger) *FrameLogger {
	h := new(FrameLogger)
	h.Logger = logger

	return h
}

// Func writes the event into the logger.
func (h *FrameLogger) Func(ctx hooking.HookCtx) {
	name := "?"
	if named, ok := ctx.Domain.(interface{ Name() string }); ok {
		name = named.Name()
	}

	switch item := ctx.Item.(type) {
	case frame.Frame:
		h.Logger.Printf("%s,%s,%s%s",
			name, ctx.Pos.Name, item, detailString(ctx.Detail))
	case nil:
		h.Logger.Printf("%s,%s%s", name, ctx.Pos.Name, detailString(ctx.Detail))
	default:
		h.Logger.Printf("%s,%s,%v%s",
			name, ctx.Pos.Name, item, detailString(ctx.Detail))
	}
}

func detailString(detail interface{}) string {
	switch d := detail.(type) {
	case nil:
		return ""
	case *wiring.Wire:
		return ",VIA " + d.Name()
	case error:
		return "," + d.Error()
	default:
		return fmt.Sprintf(",%v", d)
	}
}
