package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"temporal-fiscal-request/activities"
	"temporal-fiscal-request/shared"
)

// a is the activities struct used by workflows to reference activity methods.
// The actual struct is registered with the worker; this variable is only used
// to provide method references for workflow.ExecuteActivity calls.
var a *activities.Activities

// gatewayActivityOptions runs every gateway call exactly once. Retrying is a
// decision of the step controllers, never of the gateway.
func gatewayActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		TaskQueue:           shared.ActivityTaskQueue,
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
}
