package tracing

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/rs/xid"

	"github.com/sarchlab/bridgesim/device"
	"github.com/sarchlab/bridgesim/frame"
	"github.com/sarchlab/bridgesim/hooking"
	"github.com/sarchlab/bridgesim/timing"
)

// Task kinds and step names.
const (
	KindMessage      = "message"
	StepResend       = "resend"
	StepRetransmit   = "retransmit"
	StepCorruptedOut = "corrupted"
)

// NamedHookable represent something both have a name and can be hooked.
type NamedHookable interface {
	hooking.Hookable
	Name() string
}

// CollectTrace lets the tracer follow the messages sent by a node.
func CollectTrace(
	domain NamedHookable,
	tracer Tracer,
	timeTeller timing.TimeTeller,
) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	h := &traceHook{
		t:          tracer,
		timeTeller: timeTeller,
		where:      domain.Name(),
		inflight:   make(map[msgKey][]string),
	}
	domain.AcceptHook(h)
}

type msgKey struct {
	dst  frame.Address
	data string
}

// A traceHook turns the ARQ events of a node into task events.
type traceHook struct {
	t          Tracer
	timeTeller timing.TimeTeller
	where      string

	lock sync.Mutex
	// Identical messages settle oldest first, so their ids queue up.
	inflight map[msgKey][]string
}

// Func calls the tracer interfaces when the hook is triggered.
func (h *traceHook) Func(ctx hooking.HookCtx) {
	f, ok := ctx.Item.(frame.Frame)
	if !ok {
		return
	}

	switch ctx.Pos {
	case device.HookPosSend:
		h.start(f, ctx.Detail)
	case device.HookPosResend:
		h.step(f, StepResend)
	case device.HookPosRetransmit:
		h.step(f, StepRetransmit)
	case device.HookPosSettle:
		h.end(f, ctx.Detail)
	}
}

func (h *traceHook) start(f frame.Frame, detail interface{}) {
	now := h.timeTeller.CurrentTime()
	id := xid.New().String()

	key := msgKey{f.Dest(), f.Payload}

	h.lock.Lock()
	h.inflight[key] = append(h.inflight[key], id)
	h.lock.Unlock()

	task := Task{
		ID:        id,
		Kind:      KindMessage,
		What:      fmt.Sprintf("%s->%s", f.Src(), f.Dest()),
		Where:     h.where,
		StartTime: now,
	}

	if detail != nil {
		task.Steps = []TaskStep{{Time: now, What: StepCorruptedOut}}
	}

	h.t.StartTask(task)
}

func (h *traceHook) lookup(f frame.Frame) (string, bool) {
	h.lock.Lock()
	defer h.lock.Unlock()

	ids := h.inflight[msgKey{f.Dest(), f.Payload}]
	if len(ids) == 0 {
		return "", false
	}

	return ids[0], true
}

func (h *traceHook) step(f frame.Frame, what string) {
	id, ok := h.lookup(f)
	if !ok {
		return
	}

	h.t.StepTask(Task{
		ID:    id,
		Steps: []TaskStep{{Time: h.timeTeller.CurrentTime(), What: what}},
	})
}

func (h *traceHook) end(f frame.Frame, detail interface{}) {
	key := msgKey{f.Dest(), f.Payload}

	h.lock.Lock()
	ids := h.inflight[key]
	if len(ids) == 0 {
		h.lock.Unlock()
		return
	}

	id := ids[0]
	if len(ids) == 1 {
		delete(h.inflight, key)
	} else {
		h.inflight[key] = ids[1:]
	}
	h.lock.Unlock()

	task := Task{ID: id, EndTime: h.timeTeller.CurrentTime()}
	if t, ok := detail.(frame.Type); ok {
		task.Steps = []TaskStep{{Time: task.EndTime, What: t.String()}}
	}

	h.t.EndTask(task)
}
