package workflows

import (
	"strings"

	"go.temporal.io/sdk/workflow"

	"temporal-fiscal-request/shared"
)

// orderStep is step 2: the order data form, the divergence gate and the
// request submission.
type orderStep struct {
	s   *fiscalSession
	ctx workflow.Context

	form           shared.OrderForm
	loading        bool
	divergences    []string
	divergenceOpen bool
	sending        bool
	errors         []string
	errorOpen      bool

	indicator cancellableTimer
}

// mount seeds the form once per visit from the saved form data, the
// extracted document and fresh placeholders.
func (o *orderStep) mount(ctx workflow.Context) {
	o.ctx = ctx
	o.form = shared.SeedOrderForm(o.s.formData, o.s.xmlData, o.s.newPlaceholders(ctx))
}

func (o *orderStep) unmount() {
	o.indicator.stop()
	o.ctx = nil
	o.form = shared.OrderForm{}
	o.loading = false
	o.divergences = nil
	o.divergenceOpen = false
	o.sending = false
	o.errors = nil
	o.errorOpen = false
}

func (o *orderStep) view() shared.OrderView {
	return shared.OrderView{
		Form:                 o.form,
		Loading:              o.loading,
		Divergences:          append([]string(nil), o.divergences...),
		DivergenceDialogOpen: o.divergenceOpen,
		SendingIndicator:     o.sending,
		Errors:               append([]string(nil), o.errors...),
		ErrorDialogOpen:      o.errorOpen,
	}
}

func (o *orderStep) updateForm(form shared.OrderForm) {
	if o.loading {
		o.s.logger.Warn("Ignoring form edit during submission")
		return
	}
	o.form = form
}

// validate opens the divergence dialog when the form disagrees with the
// extracted document, and submits otherwise.
func (o *orderStep) validate() {
	if o.loading {
		return
	}
	if divs := shared.CheckDivergences(o.form, o.s.xmlData); len(divs) > 0 {
		o.s.logger.Info("Order form diverges from invoice", "divergences", divs)
		o.divergences = divs
		o.divergenceOpen = true
		return
	}
	o.submit()
}

func (o *orderStep) fixDivergences() {
	o.divergenceOpen = false
}

// requestReview only shows the sending indicator for a moment. Nothing is
// sent.
func (o *orderStep) requestReview() {
	o.divergenceOpen = false
	o.sending = true
	o.indicator.start(o.ctx, shared.ReviewIndicatorDuration, func(workflow.Context) {
		o.sending = false
	})
}

func (o *orderStep) submit() {
	s := o.s
	o.indicator.stop()
	o.divergenceOpen = false
	o.sending = true
	o.loading = true

	body := shared.BuildRequestBody(o.form, s.xmlData)
	s.formData = &body

	ctx := o.ctx
	workflow.Go(ctx, func(gctx workflow.Context) {
		resp, err := s.createRequest(gctx, body)
		if ctx.Err() != nil {
			return
		}
		o.sending = false
		o.loading = false

		if err != nil {
			msg := shared.MsgSubmitFailed
			if isTransportFailure(err) {
				s.logger.Warn("Fiscal request submission got no answer", "error", err)
			} else {
				msg = gatewayMessage(err, shared.MsgSubmitFailed)
				s.steps.Update(shared.StepOrderData, shared.StepRejected, msg)
			}
			o.errors = []string{msg}
			o.errorOpen = true
			return
		}

		if !resp.Success || resp.Data == nil {
			errs := resp.Errors
			if len(errs) == 0 {
				errs = []string{firstNonEmpty(resp.Message, shared.MsgUnknownError)}
			}
			s.logger.Info("Fiscal request refused", "errors", errs)
			s.steps.Update(shared.StepOrderData, shared.StepRejected, strings.Join(errs, ", "))
			o.errors = errs
			o.errorOpen = true
			return
		}

		s.requestID = resp.Data.ID
		s.steps.Update(shared.StepOrderData, shared.StepApproved, "")
		s.steps.Update(shared.StepRequestResult, shared.StepPending, "")
		s.setCurrentStep(shared.StepRequestResult)
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
