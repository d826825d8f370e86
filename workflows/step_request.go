package workflows

import (
	"go.temporal.io/sdk/workflow"

	"temporal-fiscal-request/shared"
)

// requestStep is step 3: one lookup of the submitted request. It never
// polls; the user retries by hand.
type requestStep struct {
	s   *fiscalSession
	ctx workflow.Context

	loading    bool
	err        string
	canAdvance bool
}

func (r *requestStep) mount(ctx workflow.Context) {
	r.ctx = ctx
	r.consult()
}

func (r *requestStep) unmount() {
	r.ctx = nil
	r.loading = false
	r.err = ""
	r.canAdvance = false
}

func (r *requestStep) view() shared.RequestView {
	return shared.RequestView{Loading: r.loading, Error: r.err, CanAdvance: r.canAdvance}
}

// consult fetches the request and classifies it. Any answer that is not an
// error lets the user move on to the final result.
func (r *requestStep) consult() {
	s := r.s
	if s.requestID == 0 {
		return
	}

	s.steps.Update(shared.StepRequestResult, shared.StepPending, "")
	r.loading = true
	r.err = ""

	ctx := r.ctx
	requestID := s.requestID
	workflow.Go(ctx, func(gctx workflow.Context) {
		resp, err := s.fetchRequest(gctx, requestID)
		if ctx.Err() != nil {
			return
		}
		r.loading = false

		if err != nil {
			r.err = gatewayMessage(err, shared.MsgRequestLookupError)
			r.canAdvance = false
			s.steps.Update(shared.StepRequestResult, shared.StepRejected, r.err)
			return
		}

		s.requestDetail = &resp
		switch shared.ClassifyDetail(resp) {
		case shared.OutcomeSuccess:
			s.steps.Update(shared.StepRequestResult, shared.StepApproved, "")
			r.canAdvance = true
		case shared.OutcomeError:
			s.steps.Update(shared.StepRequestResult, shared.StepRejected, shared.BestErrorMessage(resp))
			r.canAdvance = false
		default:
			r.canAdvance = true
		}
	})
}

func (r *requestStep) retry() {
	r.consult()
}

func (r *requestStep) next() {
	if r.loading || !r.canAdvance {
		r.s.logger.Warn("Request result does not allow advancing",
			"loading", r.loading,
			"canAdvance", r.canAdvance,
		)
		return
	}
	r.s.setCurrentStep(shared.StepFinalResult)
}
