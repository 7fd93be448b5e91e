package monitoring

import (
	"sync"
	"time"

	"github.com/sarchlab/bridgesim/device"
	"github.com/sarchlab/bridgesim/hooking"
)

// A ProgressBar is a tracker of the progress
type ProgressBar struct {
	sync.Mutex
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// IncrementInProgress adds the number of in-progress element.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress += amount
}

// IncrementFinished add a certain amount to finished element.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.Finished += amount
}

// MoveInProgressToFinished reduces the number of in progress item by a certain
// amount and increase the finished item by the same amount.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.Lock()
	defer b.Unlock()

	b.InProgress -= amount
	b.Finished += amount
}

// Snapshot returns the counters under the lock.
func (b *ProgressBar) Snapshot() (finished, inProgress, total uint64) {
	b.Lock()
	defer b.Unlock()

	return b.Finished, b.InProgress, b.Total
}

// ProgressHook moves a progress bar as nodes send and settle messages.
type ProgressHook struct {
	bar *ProgressBar
}

// NewProgressHook creates a hook that updates the bar.
func NewProgressHook(bar *ProgressBar) *ProgressHook {
	return &ProgressHook{bar: bar}
}

// Func updates the bar.
func (h *ProgressHook) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case device.HookPosSend:
		h.bar.IncrementInProgress(1)
	case device.HookPosSettle:
		h.bar.MoveInProgressToFinished(1)
	}
}
