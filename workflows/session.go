package workflows

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"temporal-fiscal-request/shared"
)

const anyStep = -1

// stepController owns the transient state of one wizard step. mount runs
// when the step becomes visible, with a context that is cancelled right
// before unmount; unmount clears the transient state.
type stepController interface {
	mount(ctx workflow.Context)
	unmount()
}

// fiscalSession is the session aggregate: step records, navigator, extracted
// document, saved form data and the cached remote records. Only the workflow
// creates it; controllers hold a pointer back to it.
type fiscalSession struct {
	id                string
	steps             shared.StepRecords
	currentStep       int
	xmlData           *shared.XMLData
	fileName          string
	formData          *shared.FiscalRequestBody
	requestID         int64
	requestDetail     *shared.RequestDetailResponse
	fiscalProcess     *shared.FiscalProcessResponse
	confirmCancelOpen bool
	closed            bool
	final             *shared.SessionState

	upload  *uploadStep
	review  *reviewStep
	order   *orderStep
	request *requestStep
	result  *resultStep

	controllers [shared.StepCount]stepController
	unmountCtx  workflow.CancelFunc

	rootCtx workflow.Context
	logger  log.Logger
}

// newFiscalSession builds the aggregate, registers the state query and
// mounts the first step.
func newFiscalSession(ctx workflow.Context, req shared.SessionRequest) (*fiscalSession, error) {
	s := &fiscalSession{
		id:      req.SessionID,
		steps:   shared.NewStepRecords(),
		rootCtx: ctx,
		logger:  workflow.GetLogger(ctx),
	}
	if s.id == "" {
		s.id = workflow.GetInfo(ctx).WorkflowExecution.ID
	}

	s.upload = &uploadStep{s: s}
	s.review = &reviewStep{s: s}
	s.order = &orderStep{s: s}
	s.request = &requestStep{s: s}
	s.result = &resultStep{s: s}
	s.controllers = [shared.StepCount]stepController{s.upload, s.review, s.order, s.request, s.result}

	err := workflow.SetQueryHandler(ctx, shared.QuerySessionState, func() (shared.SessionState, error) {
		return s.snapshot(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set query handler: %w", err)
	}

	s.mount(s.currentStep)
	return s, nil
}

// setCurrentStep moves the visible step. The step being left is torn down
// before the new one mounts. Controllers decide when a move is legal.
func (s *fiscalSession) setCurrentStep(step int) {
	if step < 0 || step >= shared.StepCount {
		s.logger.Warn("Ignoring move to unknown step", "step", step)
		return
	}
	if step == s.currentStep {
		return
	}
	s.logger.Info("Moving to step", "from", s.currentStep, "to", step)
	s.unmount(s.currentStep)
	s.currentStep = step
	s.mount(step)
}

// resetAll restores the wizard to its initial state and drops every cached
// record. Pending timers and lookups die with the unmounted controller.
func (s *fiscalSession) resetAll() {
	s.logger.Info("Resetting session", "sessionId", s.id, "fromStep", s.currentStep)
	s.unmount(s.currentStep)
	s.currentStep = shared.StepUploadXML
	s.steps.Reset()
	s.xmlData = nil
	s.fileName = ""
	s.formData = nil
	s.requestID = 0
	s.requestDetail = nil
	s.fiscalProcess = nil
	s.mount(s.currentStep)
}

// close tears down the visible step and ends the session loop. The state
// is captured before teardown so the result and later queries still show
// the step the session closed on.
func (s *fiscalSession) close() {
	if s.closed {
		return
	}
	final := s.snapshot()
	final.Closed = true
	s.unmount(s.currentStep)
	s.closed = true
	s.final = &final
}

func (s *fiscalSession) mount(step int) {
	ctx, cancel := workflow.WithCancel(s.rootCtx)
	s.unmountCtx = cancel
	s.controllers[step].mount(ctx)
}

func (s *fiscalSession) unmount(step int) {
	if s.unmountCtx != nil {
		s.unmountCtx()
		s.unmountCtx = nil
	}
	s.controllers[step].unmount()
	s.confirmCancelOpen = false
}

// run is the event loop. Each iteration handles exactly one signal, or the
// idle timeout.
func (s *fiscalSession) run(ctx workflow.Context) {
	for !s.closed {
		selector := workflow.NewSelector(ctx)
		s.addSignalHandlers(selector)

		idleCtx, cancelIdle := workflow.WithCancel(ctx)
		idle := false
		selector.AddFuture(workflow.NewTimer(idleCtx, shared.SessionIdleTimeout), func(f workflow.Future) {
			idle = f.Get(ctx, nil) == nil
		})

		selector.Select(ctx)
		cancelIdle()

		if idle {
			s.logger.Info("Session idle, closing", "sessionId", s.id, "timeout", shared.SessionIdleTimeout)
			s.close()
		}
	}
}

func (s *fiscalSession) addSignalHandlers(sel workflow.Selector) {
	addSignal(s, sel, shared.SignalUploadXML, shared.StepUploadXML, s.upload.submit)
	s.onSignal(sel, shared.SignalApproveXML, shared.StepReviewXML, s.review.approve)

	s.onSignal(sel, shared.SignalCancel, anyStep, s.openCancelDialog)
	s.onSignal(sel, shared.SignalConfirmCancel, anyStep, s.confirmCancel)
	s.onSignal(sel, shared.SignalDismissCancel, anyStep, func() { s.confirmCancelOpen = false })

	addSignal(s, sel, shared.SignalUpdateOrderForm, shared.StepOrderData, s.order.updateForm)
	s.onSignal(sel, shared.SignalValidateOrder, shared.StepOrderData, s.order.validate)
	s.onSignal(sel, shared.SignalFixDivergences, shared.StepOrderData, s.order.fixDivergences)
	s.onSignal(sel, shared.SignalRequestReview, shared.StepOrderData, s.order.requestReview)
	s.onSignal(sel, shared.SignalDismissError, anyStep, s.dismissError)

	s.onSignal(sel, shared.SignalRetryRequest, shared.StepRequestResult, s.request.retry)
	s.onSignal(sel, shared.SignalNextStep, shared.StepRequestResult, s.request.next)

	s.onSignal(sel, shared.SignalRefreshResult, shared.StepFinalResult, s.result.refresh)
	s.onSignal(sel, shared.SignalCorrectOrder, shared.StepFinalResult, s.result.correct)
	s.onSignal(sel, shared.SignalRestart, shared.StepFinalResult, s.resetAll)

	s.onSignal(sel, shared.SignalCloseSession, anyStep, s.close)
}

// onSignal registers a signal without payload. Signals meant for a step
// other than the visible one are dropped.
func (s *fiscalSession) onSignal(sel workflow.Selector, name string, step int, fn func()) {
	sel.AddReceive(workflow.GetSignalChannel(s.rootCtx, name), func(c workflow.ReceiveChannel, more bool) {
		c.Receive(s.rootCtx, nil)
		if !s.visible(name, step) {
			return
		}
		fn()
	})
}

// addSignal registers a signal carrying a payload of type T.
func addSignal[T any](s *fiscalSession, sel workflow.Selector, name string, step int, fn func(T)) {
	sel.AddReceive(workflow.GetSignalChannel(s.rootCtx, name), func(c workflow.ReceiveChannel, more bool) {
		var payload T
		c.Receive(s.rootCtx, &payload)
		if !s.visible(name, step) {
			return
		}
		fn(payload)
	})
}

func (s *fiscalSession) visible(signal string, step int) bool {
	if step == anyStep || step == s.currentStep {
		return true
	}
	s.logger.Warn("Ignoring signal for a step that is not visible",
		"signal", signal,
		"step", step,
		"currentStep", s.currentStep,
	)
	return false
}

func (s *fiscalSession) openCancelDialog() {
	if s.currentStep != shared.StepReviewXML && s.currentStep != shared.StepOrderData {
		s.logger.Warn("Cancel is not offered on this step", "currentStep", s.currentStep)
		return
	}
	s.confirmCancelOpen = true
}

func (s *fiscalSession) confirmCancel() {
	if !s.confirmCancelOpen {
		return
	}
	s.resetAll()
}

func (s *fiscalSession) dismissError() {
	switch s.currentStep {
	case shared.StepUploadXML:
		s.upload.errorDialog = ""
	case shared.StepOrderData:
		s.order.errorOpen = false
	}
}

func (s *fiscalSession) snapshot() shared.SessionState {
	if s.final != nil {
		return *s.final
	}
	return shared.SessionState{
		SessionID:         s.id,
		CurrentStep:       s.currentStep,
		Steps:             s.steps.Clone(),
		XMLData:           s.xmlData,
		FileName:          s.fileName,
		FormData:          s.formData,
		RequestID:         s.requestID,
		RequestDetail:     s.requestDetail,
		FiscalProcess:     s.fiscalProcess,
		ConfirmCancelOpen: s.confirmCancelOpen,
		Closed:            s.closed,
		Upload:            s.upload.view(),
		Order:             s.order.view(),
		Request:           s.request.view(),
		Result:            s.result.view(),
	}
}

// newPlaceholders generates stand-in identifiers for the order form. They
// are recorded once in history so replays see the same values.
func (s *fiscalSession) newPlaceholders(ctx workflow.Context) shared.Placeholders {
	var ph shared.Placeholders
	encoded := workflow.SideEffect(ctx, func(ctx workflow.Context) interface{} {
		return shared.Placeholders{
			PersonCode:    uuid.NewString(),
			IssuerCode:    uuid.NewString(),
			BankAccountID: uuid.NewString(),
			OrderNumber:   rand.Int63n(shared.MaxPlaceholderOrderNumber-1) + 1,
		}
	})
	if err := encoded.Get(&ph); err != nil {
		s.logger.Error("Failed to decode placeholders", "error", err)
	}
	return ph
}

func (s *fiscalSession) processXML(ctx workflow.Context, in shared.UploadXMLInput) (shared.XMLProcessResponse, error) {
	var out shared.XMLProcessResponse
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, gatewayActivityOptions()), a.ProcessXML, in).Get(ctx, &out)
	return out, err
}

func (s *fiscalSession) createRequest(ctx workflow.Context, body shared.FiscalRequestBody) (shared.CreateRequestResponse, error) {
	var out shared.CreateRequestResponse
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, gatewayActivityOptions()), a.CreateRequest, body).Get(ctx, &out)
	return out, err
}

func (s *fiscalSession) fetchRequest(ctx workflow.Context, requestID int64) (shared.RequestDetailResponse, error) {
	var out shared.RequestDetailResponse
	err := workflow.ExecuteActivity(workflow.WithActivityOptions(ctx, gatewayActivityOptions()), a.FetchRequest, requestID).Get(ctx, &out)
	return out, err
}

// gatewayMessage extracts the user-facing text of a failed gateway call.
// Errors raised by the SDK itself (timeouts, cancellation) get the fallback.
func gatewayMessage(err error, fallback string) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Message() != "" {
		return appErr.Message()
	}
	return fallback
}

// isTransportFailure reports a gateway call that produced no usable answer
// from the backend. Only a GatewayFailure carries a message the backend sent;
// activity timeouts, cancellations and worker failures count as transport.
func isTransportFailure(err error) bool {
	var appErr *temporal.ApplicationError
	return !errors.As(err, &appErr) || appErr.Type() != shared.ErrTypeGatewayFailure
}

// FiscalSessionWorkflow runs one fiscal request wizard session.
//
// Steps:
//
//	0 → Upload the invoice XML (document backend extracts it)
//	1 → Review the extracted data
//	2 → Fill in order data, check divergences, submit the request
//	3 → Show the request submission result
//	4 → Poll the request until final, then resolve the fiscal process
//
// Every user action arrives as a signal; the session state is served by the
// query-session-state query and returned when the session closes.
func FiscalSessionWorkflow(ctx workflow.Context, req shared.SessionRequest) (shared.SessionState, error) {
	s, err := newFiscalSession(ctx, req)
	if err != nil {
		return shared.SessionState{}, err
	}

	s.logger.Info("Fiscal session started", "sessionId", s.id)
	s.run(ctx)
	s.logger.Info("Fiscal session closed",
		"sessionId", s.id,
		"currentStep", s.currentStep,
		"requestId", s.requestID,
	)

	return s.snapshot(), nil
}
