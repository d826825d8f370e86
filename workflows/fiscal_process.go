package workflows

import (
	"go.temporal.io/sdk/workflow"

	"temporal-fiscal-request/shared"
)

// FiscalProcessWorkflow looks up the fiscal process of an approved request
// until the backend returns its id. It waits FiscalProcessRetryDelay after an
// empty answer and FiscalProcessErrorDelay after a failed call, with no
// attempt limit; the parent cancels it when the result step goes away.
// It continues as new every FiscalProcessLookupsPerRun lookups.
func FiscalProcessWorkflow(ctx workflow.Context, requestID int64) (shared.FiscalProcessResponse, error) {
	logger := workflow.GetLogger(ctx)
	ctx = workflow.WithActivityOptions(ctx, gatewayActivityOptions())

	for lookup := 1; lookup <= shared.FiscalProcessLookupsPerRun; lookup++ {
		var resp shared.FiscalProcessResponse
		err := workflow.ExecuteActivity(ctx, a.FetchFiscalProcess, requestID).Get(ctx, &resp)
		if ctx.Err() != nil {
			return shared.FiscalProcessResponse{}, ctx.Err()
		}

		delay := shared.FiscalProcessRetryDelay
		switch {
		case err != nil:
			logger.Warn("Fiscal process lookup failed, retrying",
				"requestId", requestID,
				"lookup", lookup,
				"error", err,
			)
			delay = shared.FiscalProcessErrorDelay
		case resp.HasID():
			logger.Info("Fiscal process resolved",
				"requestId", requestID,
				"fiscalProcessId", resp.Data.ID,
				"lookup", lookup,
			)
			return resp, nil
		default:
			logger.Debug("Fiscal process not created yet", "requestId", requestID, "lookup", lookup)
		}

		if err := workflow.Sleep(ctx, delay); err != nil {
			return shared.FiscalProcessResponse{}, err
		}
	}

	logger.Info("Fiscal process lookup continuing as new", "requestId", requestID)
	return shared.FiscalProcessResponse{}, workflow.NewContinueAsNewError(ctx, FiscalProcessWorkflow, requestID)
}
