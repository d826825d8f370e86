package display

import (
	"fmt"
	"strings"

	"temporal-fiscal-request/shared"
)

var statusMarks = map[shared.StepStatus]string{
	shared.StepPending:  "[ ]",
	shared.StepApproved: "[✓]",
	shared.StepRejected: "[✗]",
}

// RenderStepper draws one line per step with its status mark. The visible
// step is pointed at and a rejected step shows its reason.
func RenderStepper(steps shared.StepRecords, current int) string {
	var b strings.Builder
	for i, step := range steps {
		pointer := "  "
		if i == current {
			pointer = "> "
		}
		mark, ok := statusMarks[step.Status]
		if !ok {
			mark = "[?]"
		}
		fmt.Fprintf(&b, "%s%s %d. %s", pointer, mark, i+1, step.Label)
		if step.Status == shared.StepRejected && step.Reason != "" {
			fmt.Fprintf(&b, " (%s)", step.Reason)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
