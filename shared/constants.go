package shared

import "time"

// Task queue names.
const (
	SessionWorkflowTaskQueue = "fiscal-session-tq"
	ActivityTaskQueue        = "fiscal-gateway-tq"
)

// Signal names. Each one is a user action on the wizard.
const (
	SignalUploadXML       = "signal-upload-xml"
	SignalApproveXML      = "signal-approve-xml"
	SignalCancel          = "signal-cancel"
	SignalConfirmCancel   = "signal-confirm-cancel"
	SignalDismissCancel   = "signal-dismiss-cancel"
	SignalUpdateOrderForm = "signal-update-order-form"
	SignalValidateOrder   = "signal-validate-order"
	SignalFixDivergences  = "signal-fix-divergences"
	SignalRequestReview   = "signal-request-review"
	SignalDismissError    = "signal-dismiss-error"
	SignalRetryRequest    = "signal-retry-request"
	SignalNextStep        = "signal-next-step"
	SignalRefreshResult   = "signal-refresh-result"
	SignalCorrectOrder    = "signal-correct-order"
	SignalRestart         = "signal-restart"
	SignalCloseSession    = "signal-close-session"
)

// Query names.
const (
	QuerySessionState = "query-session-state"
)

// Wizard timing.
const (
	// RequestPollDelay is the wait between two fetches of a pending request.
	RequestPollDelay = 3 * time.Second
	// MaxRequestPollAttempts bounds the fetches of one polling cycle,
	// the initial fetch included.
	MaxRequestPollAttempts = 6
	// FiscalProcessRetryDelay is the wait after a lookup that returned no id yet.
	FiscalProcessRetryDelay = 2 * time.Second
	// FiscalProcessErrorDelay is the wait after a lookup that failed in transport.
	FiscalProcessErrorDelay = 3 * time.Second
	// FiscalProcessLookupsPerRun is the number of lookups before the lookup
	// workflow continues as new.
	FiscalProcessLookupsPerRun = 200
	// ReviewIndicatorDuration is how long the local "sending" indicator stays up
	// after the user asks for a divergence review.
	ReviewIndicatorDuration = 2 * time.Second
	// SessionIdleTimeout closes a session that received no signal.
	SessionIdleTimeout = 2 * time.Hour
)

// Error types for non-retryable failures.
const (
	// ErrTypeGatewayFailure is a non-2xx answer whose body carries an error
	// message (message, error or errors[0]).
	ErrTypeGatewayFailure = "GatewayFailure"
	// ErrTypeTransportFailure is a call that got no usable answer: no
	// response, an unreadable body, or a body that does not decode.
	ErrTypeTransportFailure = "TransportFailure"
)

// User-facing fallback messages.
const (
	MsgInvalidFile        = "Selecione um arquivo XML."
	MsgXMLProcessFailed   = "Erro ao processar"
	MsgConnectionFailed   = "Não foi possível conectar ao servidor."
	MsgSubmitFailed       = "Erro de conexão com o servidor"
	MsgRequestLookupError = "Não foi possível consultar a solicitação."
	MsgUnknownError       = "Erro desconhecido"
)
