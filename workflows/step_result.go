package workflows

import (
	"fmt"

	"go.temporal.io/sdk/workflow"

	"temporal-fiscal-request/shared"
)

// resultStep is step 4: poll the request until it reaches a final status,
// then resolve the fiscal process created for it.
//
// Poll states:
//
//	AWAITING_RESULT → first fetch of a cycle is in flight
//	POLLING         → request pending, next fetch scheduled
//	RESOLVED        → request succeeded
//	FAILED          → request failed or could not be fetched
//	EXHAUSTED       → still pending after MaxRequestPollAttempts fetches
type resultStep struct {
	s   *fiscalSession
	ctx workflow.Context

	consulted bool
	loading   bool
	err       string
	pollState shared.PollState
	attempts  int
	poll      cancellableTimer

	lookupCancel   workflow.CancelFunc
	lookupSeq      int
	loadingProcess bool
}

func (r *resultStep) mount(ctx workflow.Context) {
	r.ctx = ctx
	r.pollState = shared.PollIdle
	if r.s.requestID != 0 && !r.consulted {
		r.consulted = true
		r.consult(false)
	}
}

// unmount clears every scheduled fetch and the running lookup. Answers of
// fetches still in flight are dropped when they arrive.
func (r *resultStep) unmount() {
	r.poll.stop()
	r.stopLookup()
	r.ctx = nil
	r.consulted = false
	r.loading = false
	r.err = ""
	r.pollState = shared.PollIdle
	r.attempts = 0
}

func (r *resultStep) view() shared.ResultView {
	state := r.pollState
	if state == "" {
		state = shared.PollIdle
	}
	return shared.ResultView{
		Loading:        r.loading,
		Error:          r.err,
		PollState:      state,
		Attempts:       r.attempts,
		PollScheduled:  r.poll.pending,
		LoadingProcess: r.loadingProcess,
	}
}

// consult fetches the request once. A fresh consult (not a scheduled retry)
// drops the cached records and starts a new poll budget.
func (r *resultStep) consult(isRetry bool) {
	s := r.s
	if s.requestID == 0 || r.ctx == nil {
		return
	}

	r.poll.stop()
	if !isRetry {
		s.requestDetail = nil
		s.fiscalProcess = nil
		r.stopLookup()
		r.err = ""
		r.attempts = 0
		r.pollState = shared.PollAwaitingResult
	}
	r.attempts++
	r.loading = true

	ctx := r.ctx
	requestID := s.requestID
	attempt := r.attempts
	s.logger.Info("Consulting request result", "requestId", requestID, "attempt", attempt)

	workflow.Go(ctx, func(gctx workflow.Context) {
		resp, err := s.fetchRequest(gctx, requestID)
		if ctx.Err() != nil {
			return
		}
		r.loading = false

		if err != nil {
			r.err = gatewayMessage(err, shared.MsgRequestLookupError)
			r.fail(r.err)
			return
		}

		s.requestDetail = &resp
		switch shared.ClassifyDetail(resp) {
		case shared.OutcomeSuccess:
			r.poll.stop()
			r.pollState = shared.PollResolved
			s.steps.Update(shared.StepFinalResult, shared.StepApproved, "")
			if resp.Data.ID != 0 {
				r.startLookup(resp.Data.ID)
			}
		case shared.OutcomeError:
			r.fail(shared.BestErrorMessage(resp))
		default:
			s.steps.Update(shared.StepFinalResult, shared.StepPending, "")
			if r.attempts >= shared.MaxRequestPollAttempts {
				s.logger.Info("Request still pending, polling stopped",
					"requestId", requestID,
					"attempts", r.attempts,
				)
				r.poll.stop()
				r.pollState = shared.PollExhausted
				return
			}
			r.pollState = shared.PollPolling
			r.poll.start(ctx, shared.RequestPollDelay, func(workflow.Context) {
				r.consult(true)
			})
		}
	})
}

func (r *resultStep) fail(reason string) {
	r.poll.stop()
	r.stopLookup()
	r.pollState = shared.PollFailed
	r.s.steps.Update(shared.StepFinalResult, shared.StepRejected, reason)
}

// startLookup resolves the fiscal process id in a child workflow that keeps
// asking until the backend has one.
func (r *resultStep) startLookup(requestID int64) {
	s := r.s
	r.stopLookup()
	r.lookupSeq++
	seq := r.lookupSeq

	lookupCtx, cancel := workflow.WithCancel(r.ctx)
	r.lookupCancel = cancel
	r.loadingProcess = true

	parentID := workflow.GetInfo(lookupCtx).WorkflowExecution.ID
	opts := workflow.ChildWorkflowOptions{
		WorkflowID: fmt.Sprintf("%s/fiscal-process/%d/%d", parentID, requestID, seq),
		TaskQueue:  shared.SessionWorkflowTaskQueue,
	}
	future := workflow.ExecuteChildWorkflow(workflow.WithChildOptions(lookupCtx, opts), FiscalProcessWorkflow, requestID)

	workflow.Go(lookupCtx, func(gctx workflow.Context) {
		var resp shared.FiscalProcessResponse
		err := future.Get(gctx, &resp)
		if seq != r.lookupSeq || lookupCtx.Err() != nil {
			return
		}
		r.lookupCancel = nil
		r.loadingProcess = false
		if err != nil {
			s.logger.Error("Fiscal process lookup failed", "requestId", requestID, "error", err)
			return
		}
		s.fiscalProcess = &resp
	})
}

func (r *resultStep) stopLookup() {
	if r.lookupCancel != nil {
		r.lookupCancel()
		r.lookupCancel = nil
	}
	r.loadingProcess = false
}

func (r *resultStep) refresh() {
	r.consult(false)
}

// correct goes back to the order form, which reseeds from the saved form data.
func (r *resultStep) correct() {
	r.s.setCurrentStep(shared.StepOrderData)
}
