package shared

// PollState tracks the step 4 result polling.
type PollState string

const (
	PollIdle           PollState = "IDLE"
	PollAwaitingResult PollState = "AWAITING_RESULT"
	PollPolling        PollState = "POLLING"
	PollResolved       PollState = "RESOLVED"
	PollFailed         PollState = "FAILED"
	PollExhausted      PollState = "EXHAUSTED"
)

// SessionRequest is the input to FiscalSessionWorkflow.
type SessionRequest struct {
	SessionID string `json:"sessionId"`
}

// UploadView is the transient state of the upload step.
type UploadView struct {
	Loading     bool   `json:"loading"`
	ErrorDialog string `json:"errorDialog,omitempty"`
}

// OrderView is the transient state of the order data step.
type OrderView struct {
	Form                 OrderForm `json:"form"`
	Loading              bool      `json:"loading"`
	Divergences          []string  `json:"divergences,omitempty"`
	DivergenceDialogOpen bool      `json:"divergenceDialogOpen"`
	SendingIndicator     bool      `json:"sendingIndicator"`
	Errors               []string  `json:"errors,omitempty"`
	ErrorDialogOpen      bool      `json:"errorDialogOpen"`
}

// RequestView is the transient state of the request result step.
type RequestView struct {
	Loading    bool   `json:"loading"`
	Error      string `json:"error,omitempty"`
	CanAdvance bool   `json:"canAdvance"`
}

// ResultView is the transient state of the final result step.
type ResultView struct {
	Loading        bool      `json:"loading"`
	Error          string    `json:"error,omitempty"`
	PollState      PollState `json:"pollState"`
	Attempts       int       `json:"attempts"`
	PollScheduled  bool      `json:"pollScheduled"`
	LoadingProcess bool      `json:"loadingProcess"`
}

// SessionState is the whole wizard as seen by a client. It is returned by
// the session query and as the workflow result.
type SessionState struct {
	SessionID         string                 `json:"sessionId"`
	CurrentStep       int                    `json:"currentStep"`
	Steps             StepRecords            `json:"steps"`
	XMLData           *XMLData               `json:"xmlData,omitempty"`
	FileName          string                 `json:"fileName,omitempty"`
	FormData          *FiscalRequestBody     `json:"formData,omitempty"`
	RequestID         int64                  `json:"requestId,omitempty"`
	RequestDetail     *RequestDetailResponse `json:"requestDetail,omitempty"`
	FiscalProcess     *FiscalProcessResponse `json:"fiscalProcess,omitempty"`
	ConfirmCancelOpen bool                   `json:"confirmCancelOpen"`
	Closed            bool                   `json:"closed"`

	Upload  UploadView  `json:"upload"`
	Order   OrderView   `json:"order"`
	Request RequestView `json:"request"`
	Result  ResultView  `json:"result"`
}
