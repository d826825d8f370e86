package activities

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.temporal.io/sdk/activity"

	"temporal-fiscal-request/shared"
)

// CreateRequest submits a fiscal request built from the order form and the
// extracted document.
// Idempotency: not idempotent, every call creates a request.
func (a *Activities) CreateRequest(ctx context.Context, body shared.FiscalRequestBody) (shared.CreateRequestResponse, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Submitting fiscal request",
		"orderNumber", body.OrderNumber,
		"totalValue", body.TotalValue,
		"documents", len(body.FiscalDocuments),
	)

	payload, err := json.Marshal(body)
	if err != nil {
		return shared.CreateRequestResponse{}, transportError(err.Error(), err)
	}
	req, err := http.NewRequest(http.MethodPost, a.FiscalBaseURL+"/SolicitacaoProcessoFiscal", bytes.NewReader(payload))
	if err != nil {
		return shared.CreateRequestResponse{}, transportError(err.Error(), err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	var out shared.CreateRequestResponse
	if err := a.do(ctx, logger, opCreateRequest, req, &out, func() bool { return out.Success }); err != nil {
		return shared.CreateRequestResponse{}, err
	}

	if out.Data != nil {
		logger.Info("Fiscal request created", "requestId", out.Data.ID)
	} else {
		logger.Info("Fiscal request refused", "message", out.Message, "errors", out.Errors)
	}
	return out, nil
}

// FetchRequest reads the current state of a request.
// Idempotency: naturally idempotent.
func (a *Activities) FetchRequest(ctx context.Context, requestID int64) (shared.RequestDetailResponse, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Fetching fiscal request", "requestId", requestID)

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/SolicitacaoProcessoFiscal/%d", a.FiscalBaseURL, requestID), nil)
	if err != nil {
		return shared.RequestDetailResponse{}, transportError(err.Error(), err)
	}

	var out shared.RequestDetailResponse
	if err := a.do(ctx, logger, opFetchRequest, req, &out, func() bool { return out.Success }); err != nil {
		return shared.RequestDetailResponse{}, err
	}

	status := ""
	if out.Data != nil {
		status = out.Data.Status.String()
	}
	logger.Info("Fiscal request fetched", "requestId", requestID, "status", status)
	return out, nil
}

// FetchFiscalProcess looks up the fiscal process created for a request. Data
// stays empty until the backend has created it.
// Idempotency: naturally idempotent.
func (a *Activities) FetchFiscalProcess(ctx context.Context, requestID int64) (shared.FiscalProcessResponse, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Looking up fiscal process", "requestId", requestID)

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/ProcessoFiscal/solicitacao/%d", a.FiscalBaseURL, requestID), nil)
	if err != nil {
		return shared.FiscalProcessResponse{}, transportError(err.Error(), err)
	}

	var out shared.FiscalProcessResponse
	if err := a.do(ctx, logger, opFetchFiscalProcess, req, &out, func() bool { return out.HasID() }); err != nil {
		return shared.FiscalProcessResponse{}, err
	}
	return out, nil
}
