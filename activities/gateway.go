package activities

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/temporal"

	"temporal-fiscal-request/shared"
)

// operation names one gateway call for metrics, logs and fallback messages.
type operation struct {
	name          string
	failurePrefix string
}

var (
	opProcessXML         = operation{"process_xml", "Erro ao processar XML"}
	opCreateRequest      = operation{"create_request", "Erro ao enviar solicitação"}
	opFetchRequest       = operation{"fetch_request", "Erro ao consultar solicitação"}
	opFetchFiscalProcess = operation{"fetch_fiscal_process", "Erro ao consultar processo fiscal"}
)

// errorBody is the failure shape shared by both backends.
type errorBody struct {
	Message string   `json:"message"`
	Error   string   `json:"error"`
	Errors  []string `json:"errors"`
}

// do sends req and decodes a 2xx JSON body into out. Every failure comes
// back as a non-retryable application error whose message is the text shown
// to the user.
func (a *Activities) do(ctx context.Context, logger log.Logger, op operation, req *http.Request, out any, succeeded func() bool) error {
	start := time.Now()
	req.Header.Set("Accept", "application/json; charset=utf-8")

	resp, err := a.client().Do(req.WithContext(ctx))
	if err != nil {
		a.Metrics.observe(op.name, outcomeTransportError, start)
		logger.Error("Gateway request failed", "operation", op.name, "error", err)
		return transportError(err.Error(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		a.Metrics.observe(op.name, outcomeTransportError, start)
		logger.Error("Gateway response unreadable", "operation", op.name, "error", err)
		return transportError(err.Error(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		a.Metrics.observe(op.name, outcomeHTTPError, start)
		msg, ok := httpErrorMessage(statusText(resp), body)
		if !ok {
			msg = fmt.Sprintf("%s: %s", op.failurePrefix, statusText(resp))
		}
		logger.Warn("Gateway returned HTTP error",
			"operation", op.name,
			"statusCode", resp.StatusCode,
			"message", msg,
		)
		if !ok {
			return transportError(msg, nil)
		}
		return gatewayError(msg, nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		a.Metrics.observe(op.name, outcomeDecodeError, start)
		logger.Error("Gateway response is not valid JSON", "operation", op.name, "error", err)
		return transportError(fmt.Sprintf("%s: resposta inválida do servidor", op.failurePrefix), err)
	}

	outcome := outcomeSuccess
	if !succeeded() {
		outcome = outcomeRejected
	}
	a.Metrics.observe(op.name, outcome, start)
	return nil
}

// httpErrorMessage picks message, error or errors[0] from a JSON error body.
// It reports false when the body is not JSON or carries none of them, or
// only echoes the HTTP status text.
func httpErrorMessage(statusText string, body []byte) (string, bool) {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return "", false
	}
	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}
	if msg == "" && len(eb.Errors) > 0 {
		msg = eb.Errors[0]
	}
	if msg == "" || msg == statusText {
		return "", false
	}
	return msg, true
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func gatewayError(msg string, cause error) error {
	return temporal.NewNonRetryableApplicationError(msg, shared.ErrTypeGatewayFailure, cause)
}

func transportError(msg string, cause error) error {
	return temporal.NewNonRetryableApplicationError(msg, shared.ErrTypeTransportFailure, cause)
}
