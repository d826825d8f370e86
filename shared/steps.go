package shared

// StepStatus is the approval state attached to a wizard step.
type StepStatus string

const (
	StepPending  StepStatus = "PENDENTE"
	StepApproved StepStatus = "APROVADO"
	StepRejected StepStatus = "RECUSADO"
)

// Step indices, in wizard order.
const (
	StepUploadXML = iota
	StepReviewXML
	StepOrderData
	StepRequestResult
	StepFinalResult

	StepCount
)

var stepLabels = [StepCount]string{
	"Inserir XML",
	"Dados XML",
	"Dados Pedido",
	"Resultado Solicitacao",
	"Resultado Final",
}

// StepRecord is the status of one wizard step, independent of which step is visible.
type StepRecord struct {
	Label  string     `json:"label"`
	Status StepStatus `json:"status"`
	Reason string     `json:"motivo,omitempty"`
}

// StepRecords always holds exactly StepCount records in wizard order.
type StepRecords []StepRecord

// NewStepRecords returns the five steps, all pending.
func NewStepRecords() StepRecords {
	records := make(StepRecords, StepCount)
	for i := range records {
		records[i] = StepRecord{Label: stepLabels[i], Status: StepPending}
	}
	return records
}

// Update sets the status and reason of one step. Out-of-range indices are ignored.
func (r StepRecords) Update(index int, status StepStatus, reason string) {
	if index < 0 || index >= len(r) {
		return
	}
	r[index].Status = status
	r[index].Reason = reason
}

// Reset puts every step back to pending with no reason.
func (r StepRecords) Reset() {
	for i := range r {
		r[i] = StepRecord{Label: stepLabels[i], Status: StepPending}
	}
}

// Clone returns a copy that does not share storage with r.
func (r StepRecords) Clone() StepRecords {
	out := make(StepRecords, len(r))
	copy(out, r)
	return out
}
