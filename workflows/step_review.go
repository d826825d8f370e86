package workflows

import (
	"go.temporal.io/sdk/workflow"

	"temporal-fiscal-request/shared"
)

// reviewStep is step 1: display only. The cancel dialog is handled by the
// session.
type reviewStep struct {
	s *fiscalSession
}

func (r *reviewStep) mount(workflow.Context) {}

func (r *reviewStep) unmount() {}

func (r *reviewStep) approve() {
	if r.s.xmlData == nil {
		r.s.logger.Warn("No extracted document to approve")
		return
	}
	r.s.steps.Update(shared.StepReviewXML, shared.StepApproved, "")
	r.s.setCurrentStep(shared.StepOrderData)
}
