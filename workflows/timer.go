package workflows

import (
	"time"

	"go.temporal.io/sdk/workflow"
)

// cancellableTimer runs a callback once after a delay unless stopped first.
// Starting it again replaces the pending run, so a controller never has two
// scheduled runs of the same timer.
type cancellableTimer struct {
	cancel  workflow.CancelFunc
	pending bool
	seq     int
}

// start schedules fn after d. fn runs under ctx, not under the timer's own
// context, so work it starts survives a later stop or restart of the timer.
func (t *cancellableTimer) start(ctx workflow.Context, d time.Duration, fn func(ctx workflow.Context)) {
	t.stop()
	t.seq++
	seq := t.seq

	timerCtx, cancel := workflow.WithCancel(ctx)
	t.cancel = cancel
	t.pending = true
	future := workflow.NewTimer(timerCtx, d)

	workflow.Go(ctx, func(ctx workflow.Context) {
		err := future.Get(ctx, nil)
		if seq != t.seq {
			return
		}
		t.pending = false
		t.cancel = nil
		if err != nil || ctx.Err() != nil {
			return
		}
		fn(ctx)
	})
}

// stop cancels the pending run, if any.
func (t *cancellableTimer) stop() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.pending = false
}
