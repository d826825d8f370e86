package workflows

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"temporal-fiscal-request/activities"
	"temporal-fiscal-request/shared"
)

func sampleXMLData() *shared.XMLData {
	return &shared.XMLData{
		ID:             "doc-1",
		FileName:       "nota.xml",
		AccessKey:      "35240512345678000199550010000012341000012345",
		IssueDate:      "2024-05-10T10:00:00",
		IssuerTaxID:    "12345678000199",
		IssuerName:     "Fornecedor Teste LTDA",
		RecipientTaxID: "11122233344",
		TotalValue:     150,
		Validated:      true,
	}
}

func requestDetail(id int64, code shared.StatusCode) shared.RequestDetailResponse {
	return shared.RequestDetailResponse{
		Success: true,
		Data:    &shared.RequestDetail{ID: id, Status: shared.RequestStatus{Code: code}},
	}
}

func registerMockActivities(env *testsuite.TestWorkflowEnvironment) *activities.Activities {
	a := &activities.Activities{}
	env.RegisterActivity(a)
	env.RegisterWorkflow(FiscalProcessWorkflow)
	return a
}

func newSessionEnv() (*testsuite.TestWorkflowEnvironment, *activities.Activities) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()
	return env, registerMockActivities(env)
}

func mockUploadOK(env *testsuite.TestWorkflowEnvironment, a *activities.Activities) {
	env.OnActivity(a.ProcessXML, mock.Anything, mock.Anything).Return(
		shared.XMLProcessResponse{Success: true, Data: sampleXMLData()}, nil,
	)
}

func mockCreateOK(env *testsuite.TestWorkflowEnvironment, a *activities.Activities, id int64) {
	env.OnActivity(a.CreateRequest, mock.Anything, mock.Anything).Return(
		shared.CreateRequestResponse{Success: true, Data: &shared.CreatedRequest{ID: id}}, nil,
	)
}

func signalAt(env *testsuite.TestWorkflowEnvironment, d time.Duration, name string, arg interface{}) {
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(name, arg)
	}, d)
}

// driveToOrderData uploads and approves: step 2 is visible from 2s on.
func driveToOrderData(env *testsuite.TestWorkflowEnvironment) {
	signalAt(env, time.Second, shared.SignalUploadXML, shared.UploadXMLInput{FileName: "nota.xml", Content: []byte("<nfeProc/>")})
	signalAt(env, 2*time.Second, shared.SignalApproveXML, nil)
}

// driveToFinalResult submits at 3s and moves to step 4 at 4s.
func driveToFinalResult(env *testsuite.TestWorkflowEnvironment) {
	driveToOrderData(env)
	signalAt(env, 3*time.Second, shared.SignalValidateOrder, nil)
	signalAt(env, 4*time.Second, shared.SignalNextStep, nil)
}

func closeAt(env *testsuite.TestWorkflowEnvironment, d time.Duration) {
	signalAt(env, d, shared.SignalCloseSession, nil)
}

func queryAt(t *testing.T, env *testsuite.TestWorkflowEnvironment, d time.Duration, check func(shared.SessionState)) {
	env.RegisterDelayedCallback(func() {
		val, err := env.QueryWorkflow(shared.QuerySessionState)
		if !assert.NoError(t, err) {
			return
		}
		var state shared.SessionState
		if assert.NoError(t, val.Get(&state)) {
			check(state)
		}
	}, d)
}

func executeSession(t *testing.T, env *testsuite.TestWorkflowEnvironment) shared.SessionState {
	t.Helper()
	env.ExecuteWorkflow(FiscalSessionWorkflow, shared.SessionRequest{SessionID: "session-1"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var state shared.SessionState
	require.NoError(t, env.GetWorkflowResult(&state))
	return state
}

func TestFiscalSession_UploadXML_ApprovesAndAdvances(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)

	signalAt(env, time.Second, shared.SignalUploadXML, shared.UploadXMLInput{FileName: "nota.xml", Content: []byte("<nfeProc/>")})
	closeAt(env, time.Minute)

	state := executeSession(t, env)

	assert.Equal(t, shared.StepReviewXML, state.CurrentStep)
	assert.Equal(t, shared.StepApproved, state.Steps[shared.StepUploadXML].Status)
	assert.Equal(t, "nota.xml", state.FileName)
	require.NotNil(t, state.XMLData)
	assert.Equal(t, "doc-1", state.XMLData.ID)
	assert.True(t, state.Closed)
}

func TestFiscalSession_UploadNonXML_NoGatewayCall(t *testing.T) {
	env, a := newSessionEnv()
	var calls atomic.Int32
	env.OnActivity(a.ProcessXML, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, in shared.UploadXMLInput) (shared.XMLProcessResponse, error) {
			calls.Add(1)
			return shared.XMLProcessResponse{Success: true, Data: sampleXMLData()}, nil
		},
	)

	signalAt(env, time.Second, shared.SignalUploadXML, shared.UploadXMLInput{FileName: "nota.pdf", Content: []byte("%PDF")})
	closeAt(env, time.Minute)

	state := executeSession(t, env)

	assert.Zero(t, calls.Load())
	assert.Equal(t, shared.StepUploadXML, state.CurrentStep)
	assert.Equal(t, shared.StepPending, state.Steps[shared.StepUploadXML].Status)
	assert.Empty(t, state.Steps[shared.StepUploadXML].Reason)
	assert.Nil(t, state.XMLData)
}

func TestFiscalSession_UploadNonXML_ShowsDialog(t *testing.T) {
	env, _ := newSessionEnv()

	signalAt(env, time.Second, shared.SignalUploadXML, shared.UploadXMLInput{FileName: "nota.pdf"})
	queryAt(t, env, 2*time.Second, func(state shared.SessionState) {
		assert.Equal(t, shared.MsgInvalidFile, state.Upload.ErrorDialog)
	})
	signalAt(env, 3*time.Second, shared.SignalDismissError, nil)
	closeAt(env, time.Minute)

	state := executeSession(t, env)
	assert.Empty(t, state.Upload.ErrorDialog)
}

func TestFiscalSession_UploadRefused_RejectsStep(t *testing.T) {
	env, a := newSessionEnv()
	env.OnActivity(a.ProcessXML, mock.Anything, mock.Anything).Return(
		shared.XMLProcessResponse{Success: false, Message: "XML fora do padrão NF-e"}, nil,
	)

	signalAt(env, time.Second, shared.SignalUploadXML, shared.UploadXMLInput{FileName: "nota.xml"})
	queryAt(t, env, 2*time.Second, func(state shared.SessionState) {
		assert.Equal(t, "XML fora do padrão NF-e", state.Upload.ErrorDialog)
		assert.False(t, state.Upload.Loading)
	})
	closeAt(env, time.Minute)

	state := executeSession(t, env)

	assert.Equal(t, shared.StepUploadXML, state.CurrentStep)
	assert.Equal(t, shared.StepRejected, state.Steps[shared.StepUploadXML].Status)
	assert.Equal(t, "XML fora do padrão NF-e", state.Steps[shared.StepUploadXML].Reason)
}

func TestFiscalSession_UploadWithoutAnswer_KeepsStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"connection refused", temporal.NewNonRetryableApplicationError("dial tcp: connection refused", shared.ErrTypeTransportFailure, nil)},
		{"activity timeout", temporal.NewTimeoutError(enumspb.TIMEOUT_TYPE_START_TO_CLOSE, nil)},
		{"unclassified error", errors.New("worker lost")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, a := newSessionEnv()
			env.OnActivity(a.ProcessXML, mock.Anything, mock.Anything).Return(shared.XMLProcessResponse{}, tt.err)

			signalAt(env, time.Second, shared.SignalUploadXML, shared.UploadXMLInput{FileName: "nota.xml"})
			closeAt(env, time.Minute)

			state := executeSession(t, env)

			assert.Equal(t, shared.MsgConnectionFailed, state.Upload.ErrorDialog)
			assert.False(t, state.Upload.Loading)
			assert.Equal(t, shared.StepPending, state.Steps[shared.StepUploadXML].Status)
			assert.Empty(t, state.Steps[shared.StepUploadXML].Reason)
			assert.Equal(t, shared.StepUploadXML, state.CurrentStep)
		})
	}
}

func TestFiscalSession_UploadGatewayFailure_RejectsStep(t *testing.T) {
	env, a := newSessionEnv()
	env.OnActivity(a.ProcessXML, mock.Anything, mock.Anything).Return(
		shared.XMLProcessResponse{},
		temporal.NewNonRetryableApplicationError("Arquivo corrompido", shared.ErrTypeGatewayFailure, nil),
	)

	signalAt(env, time.Second, shared.SignalUploadXML, shared.UploadXMLInput{FileName: "nota.xml"})
	closeAt(env, time.Minute)

	state := executeSession(t, env)

	assert.Equal(t, "Arquivo corrompido", state.Upload.ErrorDialog)
	assert.Equal(t, shared.StepRejected, state.Steps[shared.StepUploadXML].Status)
	assert.Equal(t, "Arquivo corrompido", state.Steps[shared.StepUploadXML].Reason)
}

func TestFiscalSession_SignalForHiddenStepIgnored(t *testing.T) {
	env, _ := newSessionEnv()

	signalAt(env, time.Second, shared.SignalApproveXML, nil)
	signalAt(env, 2*time.Second, shared.SignalNextStep, nil)
	closeAt(env, time.Minute)

	state := executeSession(t, env)

	assert.Equal(t, shared.StepUploadXML, state.CurrentStep)
	for _, step := range state.Steps {
		assert.Equal(t, shared.StepPending, step.Status)
	}
}

func TestFiscalSession_OrderFormSeededFromInvoice(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)

	driveToOrderData(env)
	closeAt(env, time.Minute)

	state := executeSession(t, env)

	require.Equal(t, shared.StepOrderData, state.CurrentStep)
	form := state.Order.Form
	assert.Equal(t, shared.DefaultOrigin, form.Origin)
	assert.Equal(t, 150.0, form.TotalValue)
	assert.Equal(t, "12345678000199", form.IssuerTaxID)
	assert.Equal(t, "11122233344", form.BeneficiaryTaxID)
	assert.NotEmpty(t, form.PersonCode)
	assert.NotEmpty(t, form.IssuerCode)
	assert.NotEmpty(t, form.BankAccountID)
	assert.Positive(t, form.OrderNumber)
	assert.Less(t, form.OrderNumber, int64(shared.MaxPlaceholderOrderNumber))
	assert.Equal(t, shared.StepApproved, state.Steps[shared.StepReviewXML].Status)
}

func TestFiscalSession_SubmitRequest_StoresID(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)
	mockCreateOK(env, a, 42)
	env.OnActivity(a.FetchRequest, mock.Anything, mock.Anything).Return(requestDetail(42, shared.StatusCreated), nil)

	driveToOrderData(env)
	signalAt(env, 3*time.Second, shared.SignalValidateOrder, nil)
	closeAt(env, time.Minute)

	state := executeSession(t, env)

	assert.Equal(t, int64(42), state.RequestID)
	assert.Equal(t, shared.StepRequestResult, state.CurrentStep)
	assert.Equal(t, shared.StepApproved, state.Steps[shared.StepOrderData].Status)
	assert.Equal(t, shared.StepPending, state.Steps[shared.StepRequestResult].Status)
	require.NotNil(t, state.FormData)
	require.Len(t, state.FormData.FiscalDocuments, 1)
	assert.Equal(t, "doc-1", state.FormData.FiscalDocuments[0].ExternalDocumentID)
	assert.Equal(t, shared.DocumentTypeInvoice, state.FormData.FiscalDocuments[0].DocumentType)
	assert.True(t, state.Request.CanAdvance)
}

func TestFiscalSession_SubmitRefused_RejectsOrderStep(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)
	env.OnActivity(a.CreateRequest, mock.Anything, mock.Anything).Return(
		shared.CreateRequestResponse{Success: false, Errors: []string{"Projeto inválido", "Rubrica obrigatória"}}, nil,
	)

	driveToOrderData(env)
	signalAt(env, 3*time.Second, shared.SignalValidateOrder, nil)
	queryAt(t, env, 4*time.Second, func(state shared.SessionState) {
		assert.True(t, state.Order.ErrorDialogOpen)
		assert.Equal(t, []string{"Projeto inválido", "Rubrica obrigatória"}, state.Order.Errors)
	})
	signalAt(env, 5*time.Second, shared.SignalDismissError, nil)
	closeAt(env, time.Minute)

	state := executeSession(t, env)

	assert.Equal(t, shared.StepOrderData, state.CurrentStep)
	assert.Equal(t, shared.StepRejected, state.Steps[shared.StepOrderData].Status)
	assert.Equal(t, "Projeto inválido, Rubrica obrigatória", state.Steps[shared.StepOrderData].Reason)
	assert.False(t, state.Order.ErrorDialogOpen)
	assert.NotNil(t, state.FormData)
	assert.Zero(t, state.RequestID)
}

func TestFiscalSession_SubmitWithoutAnswer_KeepsStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"connection reset", temporal.NewNonRetryableApplicationError("connection reset by peer", shared.ErrTypeTransportFailure, nil)},
		{"activity timeout", temporal.NewTimeoutError(enumspb.TIMEOUT_TYPE_START_TO_CLOSE, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, a := newSessionEnv()
			mockUploadOK(env, a)
			env.OnActivity(a.CreateRequest, mock.Anything, mock.Anything).Return(shared.CreateRequestResponse{}, tt.err)

			driveToOrderData(env)
			signalAt(env, 3*time.Second, shared.SignalValidateOrder, nil)
			closeAt(env, time.Minute)

			state := executeSession(t, env)

			assert.Equal(t, shared.StepOrderData, state.CurrentStep)
			assert.Equal(t, shared.StepPending, state.Steps[shared.StepOrderData].Status)
			assert.Equal(t, []string{shared.MsgSubmitFailed}, state.Order.Errors)
			assert.True(t, state.Order.ErrorDialogOpen)
			assert.Zero(t, state.RequestID)
		})
	}
}

func TestFiscalSession_ResultKeepsVisibleStepAfterClose(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)

	form := shared.SeedOrderForm(nil, sampleXMLData(), shared.Placeholders{
		PersonCode:    "person-1",
		IssuerCode:    "issuer-1",
		BankAccountID: "account-1",
		OrderNumber:   1234,
	})
	form.Justification = "Material de escritório"

	driveToOrderData(env)
	signalAt(env, 3*time.Second, shared.SignalUpdateOrderForm, form)
	var before shared.SessionState
	queryAt(t, env, 4*time.Second, func(state shared.SessionState) {
		before = state
	})
	closeAt(env, time.Minute)

	state := executeSession(t, env)

	assert.True(t, state.Closed)
	assert.Equal(t, form, state.Order.Form)
	assert.Equal(t, before.Order, state.Order)
	assert.Equal(t, before.Steps, state.Steps)

	val, err := env.QueryWorkflow(shared.QuerySessionState)
	require.NoError(t, err)
	var queried shared.SessionState
	require.NoError(t, val.Get(&queried))
	assert.Equal(t, state, queried)
}

func TestFiscalSession_Divergence_BlocksSubmission(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)
	var creates atomic.Int32
	env.OnActivity(a.CreateRequest, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, body shared.FiscalRequestBody) (shared.CreateRequestResponse, error) {
			creates.Add(1)
			return shared.CreateRequestResponse{Success: true, Data: &shared.CreatedRequest{ID: 7}}, nil
		},
	)

	form := shared.SeedOrderForm(nil, sampleXMLData(), shared.Placeholders{
		PersonCode:    "person-1",
		IssuerCode:    "issuer-1",
		BankAccountID: "account-1",
		OrderNumber:   1234,
	})
	form.TotalValue = 100

	driveToOrderData(env)
	signalAt(env, 3*time.Second, shared.SignalUpdateOrderForm, form)
	signalAt(env, 4*time.Second, shared.SignalValidateOrder, nil)
	queryAt(t, env, 5*time.Second, func(state shared.SessionState) {
		assert.True(t, state.Order.DivergenceDialogOpen)
		require.Len(t, state.Order.Divergences, 1)
		assert.Contains(t, state.Order.Divergences[0], "100")
		assert.Contains(t, state.Order.Divergences[0], "150")
	})
	signalAt(env, 6*time.Second, shared.SignalRequestReview, nil)
	queryAt(t, env, 7*time.Second, func(state shared.SessionState) {
		assert.False(t, state.Order.DivergenceDialogOpen)
		assert.True(t, state.Order.SendingIndicator)
	})
	queryAt(t, env, 9*time.Second, func(state shared.SessionState) {
		assert.False(t, state.Order.SendingIndicator)
	})
	signalAt(env, 10*time.Second, shared.SignalValidateOrder, nil)
	signalAt(env, 11*time.Second, shared.SignalFixDivergences, nil)
	closeAt(env, time.Minute)

	state := executeSession(t, env)

	assert.Zero(t, creates.Load())
	assert.Equal(t, shared.StepOrderData, state.CurrentStep)
	assert.Equal(t, shared.StepPending, state.Steps[shared.StepOrderData].Status)
	assert.False(t, state.Order.DivergenceDialogOpen)
	assert.Equal(t, 100.0, state.Order.Form.TotalValue)
}

func TestFiscalSession_CancelConfirmed_ResetsEverything(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)

	driveToOrderData(env)
	signalAt(env, 3*time.Second, shared.SignalCancel, nil)
	queryAt(t, env, 4*time.Second, func(state shared.SessionState) {
		assert.True(t, state.ConfirmCancelOpen)
	})
	signalAt(env, 5*time.Second, shared.SignalConfirmCancel, nil)
	closeAt(env, time.Minute)

	state := executeSession(t, env)

	assert.Equal(t, shared.StepUploadXML, state.CurrentStep)
	assert.Equal(t, shared.NewStepRecords(), state.Steps)
	assert.Nil(t, state.XMLData)
	assert.Nil(t, state.FormData)
	assert.Empty(t, state.FileName)
	assert.False(t, state.ConfirmCancelOpen)
}

func TestFiscalSession_CancelDismissed_KeepsStep(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)

	signalAt(env, time.Second, shared.SignalUploadXML, shared.UploadXMLInput{FileName: "nota.xml"})
	signalAt(env, 2*time.Second, shared.SignalCancel, nil)
	signalAt(env, 3*time.Second, shared.SignalDismissCancel, nil)
	signalAt(env, 4*time.Second, shared.SignalConfirmCancel, nil)
	closeAt(env, time.Minute)

	state := executeSession(t, env)

	assert.Equal(t, shared.StepReviewXML, state.CurrentStep)
	assert.NotNil(t, state.XMLData)
	assert.Equal(t, shared.StepApproved, state.Steps[shared.StepUploadXML].Status)
}

func TestFiscalSession_RequestResult_ErrorEvidenceRejects(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)
	mockCreateOK(env, a, 42)
	resp := requestDetail(42, shared.StatusValidated)
	resp.Success = false
	resp.Message = "Solicitação inconsistente"
	env.OnActivity(a.FetchRequest, mock.Anything, mock.Anything).Return(resp, nil)

	driveToFinalResult(env)
	closeAt(env, time.Minute)

	state := executeSession(t, env)

	assert.Equal(t, shared.StepRequestResult, state.CurrentStep)
	assert.Equal(t, shared.StepRejected, state.Steps[shared.StepRequestResult].Status)
	assert.Equal(t, "Solicitação inconsistente", state.Steps[shared.StepRequestResult].Reason)
	assert.False(t, state.Request.CanAdvance)
}

func TestFiscalSession_RequestResult_RetryRefetches(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)
	mockCreateOK(env, a, 42)
	env.OnActivity(a.FetchRequest, mock.Anything, mock.Anything).Return(
		shared.RequestDetailResponse{},
		temporal.NewNonRetryableApplicationError("Erro ao consultar solicitação: Bad Gateway", shared.ErrTypeGatewayFailure, nil),
	).Once()
	env.OnActivity(a.FetchRequest, mock.Anything, mock.Anything).Return(requestDetail(42, shared.StatusValidated), nil).Once()

	driveToOrderData(env)
	signalAt(env, 3*time.Second, shared.SignalValidateOrder, nil)
	queryAt(t, env, 4*time.Second, func(state shared.SessionState) {
		assert.Equal(t, shared.StepRejected, state.Steps[shared.StepRequestResult].Status)
		assert.Equal(t, "Erro ao consultar solicitação: Bad Gateway", state.Request.Error)
		assert.False(t, state.Request.CanAdvance)
	})
	signalAt(env, 5*time.Second, shared.SignalRetryRequest, nil)
	closeAt(env, time.Minute)

	state := executeSession(t, env)

	assert.Equal(t, shared.StepApproved, state.Steps[shared.StepRequestResult].Status)
	assert.Empty(t, state.Request.Error)
	assert.True(t, state.Request.CanAdvance)
}

func TestFiscalSession_FinalResult_BoundedPollingStopsPending(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)
	mockCreateOK(env, a, 42)
	var fetches atomic.Int32
	env.OnActivity(a.FetchRequest, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, id int64) (shared.RequestDetailResponse, error) {
			// One fetch on step 3, then six pending answers on step 4.
			if fetches.Add(1) <= 1+shared.MaxRequestPollAttempts {
				return requestDetail(id, shared.StatusCreated), nil
			}
			return requestDetail(id, shared.StatusConcluded), nil
		},
	)

	driveToFinalResult(env)
	queryAt(t, env, 5500*time.Millisecond, func(state shared.SessionState) {
		assert.Equal(t, shared.PollPolling, state.Result.PollState)
		assert.True(t, state.Result.PollScheduled)
		assert.Equal(t, 1, state.Result.Attempts)
	})
	closeAt(env, 10*time.Minute)

	queryAt(t, env, 9*time.Minute, func(state shared.SessionState) {
		assert.Equal(t, shared.PollExhausted, state.Result.PollState)
		assert.False(t, state.Result.PollScheduled)
		assert.Equal(t, shared.MaxRequestPollAttempts, state.Result.Attempts)
	})

	state := executeSession(t, env)

	assert.Equal(t, int32(1+shared.MaxRequestPollAttempts), fetches.Load())
	assert.Equal(t, shared.StepFinalResult, state.CurrentStep)
	assert.Equal(t, shared.StepPending, state.Steps[shared.StepFinalResult].Status)
}

func TestFiscalSession_FinalResult_RefreshRestartsBudget(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)
	mockCreateOK(env, a, 42)
	var fetches atomic.Int32
	env.OnActivity(a.FetchRequest, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, id int64) (shared.RequestDetailResponse, error) {
			fetches.Add(1)
			return requestDetail(id, shared.StatusCreated), nil
		},
	)

	driveToFinalResult(env)
	signalAt(env, 5*time.Minute, shared.SignalRefreshResult, nil)
	closeAt(env, 10*time.Minute)

	state := executeSession(t, env)

	assert.Equal(t, int32(1+2*shared.MaxRequestPollAttempts), fetches.Load())
	assert.Equal(t, shared.PollExhausted, state.Result.PollState)
	assert.Equal(t, shared.MaxRequestPollAttempts, state.Result.Attempts)
}

func TestFiscalSession_FinalResult_SuccessResolvesFiscalProcess(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)
	mockCreateOK(env, a, 42)
	var fetches atomic.Int32
	env.OnActivity(a.FetchRequest, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, id int64) (shared.RequestDetailResponse, error) {
			if fetches.Add(1) <= 3 {
				return requestDetail(id, shared.StatusCreated), nil
			}
			return requestDetail(id, shared.StatusConcluded), nil
		},
	)
	env.OnWorkflow(FiscalProcessWorkflow, mock.Anything, int64(42)).Return(
		shared.FiscalProcessResponse{
			Success: true,
			Data:    &shared.FiscalProcessData{ID: "PF-2024-0042", RequestID: 42},
		}, nil,
	)

	driveToFinalResult(env)
	closeAt(env, 10*time.Minute)

	state := executeSession(t, env)

	assert.Equal(t, int32(4), fetches.Load())
	assert.Equal(t, shared.StepApproved, state.Steps[shared.StepFinalResult].Status)
	assert.Equal(t, shared.PollResolved, state.Result.PollState)
	assert.False(t, state.Result.PollScheduled)
	assert.False(t, state.Result.LoadingProcess)
	require.NotNil(t, state.FiscalProcess)
	require.NotNil(t, state.FiscalProcess.Data)
	assert.Equal(t, shared.FlexString("PF-2024-0042"), state.FiscalProcess.Data.ID)
}

func TestFiscalSession_FinalResult_ErrorEvidenceOverridesSuccessCode(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)
	mockCreateOK(env, a, 42)
	var fetches atomic.Int32
	env.OnActivity(a.FetchRequest, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, id int64) (shared.RequestDetailResponse, error) {
			if fetches.Add(1) == 1 {
				return requestDetail(id, shared.StatusCreated), nil
			}
			resp := requestDetail(id, shared.StatusConcluded)
			resp.Data.Errors = "Centro de custo bloqueado"
			return resp, nil
		},
	)

	driveToFinalResult(env)
	closeAt(env, 10*time.Minute)

	state := executeSession(t, env)

	assert.Equal(t, int32(2), fetches.Load())
	assert.Equal(t, shared.StepRejected, state.Steps[shared.StepFinalResult].Status)
	assert.Equal(t, "Centro de custo bloqueado", state.Steps[shared.StepFinalResult].Reason)
	assert.Equal(t, shared.PollFailed, state.Result.PollState)
	assert.Nil(t, state.FiscalProcess)
}

func TestFiscalSession_FinalResult_TransportFailureStopsPolling(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)
	mockCreateOK(env, a, 42)
	var fetches atomic.Int32
	env.OnActivity(a.FetchRequest, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, id int64) (shared.RequestDetailResponse, error) {
			if fetches.Add(1) <= 2 {
				return requestDetail(id, shared.StatusCreated), nil
			}
			return shared.RequestDetailResponse{},
				temporal.NewNonRetryableApplicationError("i/o timeout", shared.ErrTypeTransportFailure, nil)
		},
	)

	driveToFinalResult(env)
	closeAt(env, 10*time.Minute)

	state := executeSession(t, env)

	assert.Equal(t, int32(3), fetches.Load())
	assert.Equal(t, shared.StepRejected, state.Steps[shared.StepFinalResult].Status)
	assert.Equal(t, "i/o timeout", state.Steps[shared.StepFinalResult].Reason)
	assert.Equal(t, "i/o timeout", state.Result.Error)
	assert.Equal(t, shared.PollFailed, state.Result.PollState)
	assert.False(t, state.Result.PollScheduled)
}

func TestFiscalSession_FinalResult_TeardownCancelsScheduledPoll(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)
	mockCreateOK(env, a, 42)
	var fetches atomic.Int32
	env.OnActivity(a.FetchRequest, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, id int64) (shared.RequestDetailResponse, error) {
			fetches.Add(1)
			return requestDetail(id, shared.StatusCreated), nil
		},
	)

	driveToFinalResult(env)
	queryAt(t, env, 5*time.Second, func(state shared.SessionState) {
		assert.True(t, state.Result.PollScheduled)
		assert.Equal(t, int32(2), fetches.Load())
	})
	// Leave step 4 before the poll scheduled for 7s fires.
	signalAt(env, 6*time.Second, shared.SignalCorrectOrder, nil)
	closeAt(env, 10*time.Minute)

	state := executeSession(t, env)

	assert.Equal(t, int32(2), fetches.Load())
	assert.Equal(t, shared.StepOrderData, state.CurrentStep)
	assert.False(t, state.Result.PollScheduled)
	assert.Equal(t, shared.PollIdle, state.Result.PollState)
	assert.Equal(t, int64(42), state.RequestID)
	assert.Equal(t, state.FormData.OrderForm, state.Order.Form)
}

func TestFiscalSession_FinalResult_RestartResetsSession(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)
	mockCreateOK(env, a, 42)
	var fetches atomic.Int32
	env.OnActivity(a.FetchRequest, mock.Anything, mock.Anything).Return(
		func(ctx context.Context, id int64) (shared.RequestDetailResponse, error) {
			fetches.Add(1)
			return requestDetail(id, shared.StatusCreated), nil
		},
	)

	driveToFinalResult(env)
	signalAt(env, 6*time.Second, shared.SignalRestart, nil)
	closeAt(env, 10*time.Minute)

	state := executeSession(t, env)

	assert.Equal(t, int32(2), fetches.Load())
	assert.Equal(t, shared.StepUploadXML, state.CurrentStep)
	assert.Equal(t, shared.NewStepRecords(), state.Steps)
	assert.Zero(t, state.RequestID)
	assert.Nil(t, state.RequestDetail)
	assert.Nil(t, state.FiscalProcess)
	assert.Nil(t, state.XMLData)
	assert.Nil(t, state.FormData)
}

func TestFiscalSession_FinalResult_LaterResolutionWins(t *testing.T) {
	env, a := newSessionEnv()
	mockUploadOK(env, a)
	mockCreateOK(env, a, 42)

	stale := requestDetail(42, shared.StatusError)
	stale.Data.Errors = "Documento recusado pela SEFAZ"

	// Step 3 lookup, then a slow first lookup on step 4, then the refresh.
	env.OnActivity(a.FetchRequest, mock.Anything, mock.Anything).Return(requestDetail(42, shared.StatusCreated), nil).Once()
	env.OnActivity(a.FetchRequest, mock.Anything, mock.Anything).Return(stale, nil).After(10 * time.Second).Once()
	env.OnActivity(a.FetchRequest, mock.Anything, mock.Anything).Return(requestDetail(42, shared.StatusConcluded), nil).Once()
	env.OnWorkflow(FiscalProcessWorkflow, mock.Anything, int64(42)).Return(
		shared.FiscalProcessResponse{Success: true, Data: &shared.FiscalProcessData{ID: "77"}}, nil,
	)

	driveToFinalResult(env)
	signalAt(env, 5*time.Second, shared.SignalRefreshResult, nil)
	queryAt(t, env, 8*time.Second, func(state shared.SessionState) {
		assert.Equal(t, shared.StepApproved, state.Steps[shared.StepFinalResult].Status)
		assert.Equal(t, shared.PollResolved, state.Result.PollState)
	})
	closeAt(env, 10*time.Minute)

	state := executeSession(t, env)

	assert.Equal(t, shared.StepRejected, state.Steps[shared.StepFinalResult].Status)
	assert.Equal(t, "Documento recusado pela SEFAZ", state.Steps[shared.StepFinalResult].Reason)
	assert.Equal(t, shared.PollFailed, state.Result.PollState)
	require.NotNil(t, state.RequestDetail)
	assert.Equal(t, shared.StatusError, state.RequestDetail.Data.Status.Code)
}

func TestFiscalSession_IdleTimeoutCloses(t *testing.T) {
	env, _ := newSessionEnv()

	state := executeSession(t, env)

	assert.True(t, state.Closed)
	assert.Equal(t, "session-1", state.SessionID)
	assert.Equal(t, shared.StepUploadXML, state.CurrentStep)
}

func TestFiscalSession_FinalResult_TeardownStopsFiscalProcessLookup(t *testing.T) {
	tests := []struct {
		name     string
		signal   string
		wantStep int
	}{
		{"restart", shared.SignalRestart, shared.StepUploadXML},
		{"correct order", shared.SignalCorrectOrder, shared.StepOrderData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, a := newSessionEnv()
			mockUploadOK(env, a)
			mockCreateOK(env, a, 42)
			env.OnActivity(a.FetchRequest, mock.Anything, mock.Anything).Return(requestDetail(42, shared.StatusConcluded), nil)
			var lookups atomic.Int32
			env.OnActivity(a.FetchFiscalProcess, mock.Anything, int64(42)).Return(
				func(ctx context.Context, requestID int64) (shared.FiscalProcessResponse, error) {
					lookups.Add(1)
					return shared.FiscalProcessResponse{Success: true}, nil
				},
			)

			driveToFinalResult(env)
			queryAt(t, env, 20*time.Second, func(state shared.SessionState) {
				assert.True(t, state.Result.LoadingProcess)
			})
			signalAt(env, 21*time.Second, tt.signal, nil)
			var atTeardown int32
			env.RegisterDelayedCallback(func() {
				atTeardown = lookups.Load()
			}, 22*time.Second)
			closeAt(env, 10*time.Minute)

			state := executeSession(t, env)

			assert.GreaterOrEqual(t, atTeardown, int32(5))
			assert.Equal(t, atTeardown, lookups.Load(), "no lookup after the result step is gone")
			assert.Equal(t, tt.wantStep, state.CurrentStep)
			assert.False(t, state.Result.LoadingProcess)
			assert.Nil(t, state.FiscalProcess)
		})
	}
}
