package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// StatusCode is the numeric request status used by the fiscal backend.
type StatusCode int

const (
	StatusCreated   StatusCode = 0 // Criado
	StatusValidated StatusCode = 1 // Validado
	StatusError     StatusCode = 2 // Erro
	StatusConcluded StatusCode = 3 // Concluido
)

var statusLabels = map[StatusCode]string{
	StatusCreated:   "Criado",
	StatusValidated: "Validado",
	StatusError:     "Erro",
	StatusConcluded: "Concluido",
}

// StatusFromLabel maps a label to its code with an exact, case-sensitive
// match. Unknown labels map to StatusCreated.
func StatusFromLabel(label string) StatusCode {
	for code, l := range statusLabels {
		if l == label {
			return code
		}
	}
	return StatusCreated
}

// RequestStatus is the status of a remote request. The backend sends either
// the integer code or its label; both decode here.
type RequestStatus struct {
	Code  StatusCode
	Label string
}

func (s *RequestStatus) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		*s = RequestStatus{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var label string
		if err := json.Unmarshal(data, &label); err != nil {
			return err
		}
		*s = RequestStatus{Code: StatusFromLabel(label), Label: label}
		return nil
	}
	var code int
	if err := json.Unmarshal(data, &code); err != nil {
		return fmt.Errorf("request status: %w", err)
	}
	*s = RequestStatus{Code: StatusCode(code)}
	return nil
}

func (s RequestStatus) MarshalJSON() ([]byte, error) {
	if s.Label != "" {
		return json.Marshal(s.Label)
	}
	return json.Marshal(int(s.Code))
}

// String returns the label the backend sent, or the canonical label of the code.
func (s RequestStatus) String() string {
	if s.Label != "" {
		return s.Label
	}
	if l, ok := statusLabels[s.Code]; ok {
		return l
	}
	return fmt.Sprintf("%d", s.Code)
}

// IsSuccess reports a validated or concluded request.
func (s RequestStatus) IsSuccess() bool {
	return s.Code == StatusValidated || s.Code == StatusConcluded
}

// IsError reports a request the backend marked as failed.
func (s RequestStatus) IsError() bool {
	return s.Code == StatusError
}

// IsPending reports a request still being processed. Codes outside the
// known range count as pending, like unknown labels.
func (s RequestStatus) IsPending() bool {
	return !s.IsSuccess() && !s.IsError()
}

// Outcome is the bucket a request lookup falls into.
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
)

// HasErrorEvidence reports whether the response carries any failure signal:
// success=false, an error status, a per-record error text or a top-level
// error list.
func (r RequestDetailResponse) HasErrorEvidence() bool {
	if !r.Success || len(r.Errors) > 0 {
		return true
	}
	if r.Data == nil {
		return false
	}
	return r.Data.Status.IsError() || strings.TrimSpace(string(r.Data.Errors)) != ""
}

// ClassifyDetail buckets a request lookup. Error evidence wins over a
// success code.
func ClassifyDetail(r RequestDetailResponse) Outcome {
	if r.HasErrorEvidence() {
		return OutcomeError
	}
	if r.Data != nil && r.Data.Status.IsSuccess() {
		return OutcomeSuccess
	}
	return OutcomePending
}

// BestErrorMessage picks the most specific failure text of a response:
// the error list, then the record's error text, then the message, then a
// fallback literal.
func BestErrorMessage(r RequestDetailResponse) string {
	if len(r.Errors) > 0 {
		return strings.Join(r.Errors, ", ")
	}
	if r.Data != nil && r.Data.Errors != "" {
		return string(r.Data.Errors)
	}
	if r.Message != "" {
		return r.Message
	}
	return MsgUnknownError
}
