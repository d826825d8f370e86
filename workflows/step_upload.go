package workflows

import (
	"strings"

	"go.temporal.io/sdk/workflow"

	"temporal-fiscal-request/shared"
)

// uploadStep is step 0: send the invoice XML to the document backend.
type uploadStep struct {
	s   *fiscalSession
	ctx workflow.Context

	loading     bool
	errorDialog string
}

func (u *uploadStep) mount(ctx workflow.Context) {
	u.ctx = ctx
}

func (u *uploadStep) unmount() {
	u.ctx = nil
	u.loading = false
	u.errorDialog = ""
}

func (u *uploadStep) view() shared.UploadView {
	return shared.UploadView{Loading: u.loading, ErrorDialog: u.errorDialog}
}

// submit validates the file name and uploads the file. A structured failure
// rejects the step; a transport failure only shows the dialog.
func (u *uploadStep) submit(in shared.UploadXMLInput) {
	s := u.s
	if !strings.HasSuffix(in.FileName, ".xml") {
		s.logger.Warn("Rejected non-XML upload", "fileName", in.FileName)
		u.errorDialog = shared.MsgInvalidFile
		return
	}
	if u.loading {
		s.logger.Warn("Upload already in progress", "fileName", in.FileName)
		return
	}

	u.loading = true
	u.errorDialog = ""
	ctx := u.ctx
	workflow.Go(ctx, func(gctx workflow.Context) {
		resp, err := s.processXML(gctx, in)
		if ctx.Err() != nil {
			return
		}
		u.loading = false

		if err != nil {
			if isTransportFailure(err) {
				s.logger.Warn("Invoice XML upload got no answer", "fileName", in.FileName, "error", err)
				u.errorDialog = shared.MsgConnectionFailed
				return
			}
			msg := gatewayMessage(err, shared.MsgXMLProcessFailed)
			s.steps.Update(shared.StepUploadXML, shared.StepRejected, msg)
			u.errorDialog = msg
			return
		}

		if !resp.Success || resp.Data == nil {
			msg := resp.Message
			if msg == "" {
				msg = shared.MsgXMLProcessFailed
			}
			s.logger.Info("Invoice XML refused", "fileName", in.FileName, "message", msg)
			s.steps.Update(shared.StepUploadXML, shared.StepRejected, msg)
			u.errorDialog = msg
			return
		}

		s.xmlData = resp.Data
		s.fileName = in.FileName
		s.steps.Update(shared.StepUploadXML, shared.StepApproved, "")
		s.setCurrentStep(shared.StepReviewXML)
	})
}
