package fakebackend

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"temporal-fiscal-request/shared"
)

const rejectedJustification = "Justificativa rejeitada pela validação fiscal"

type requestRecord struct {
	detail  shared.RequestDetail
	reads   int
	lookups int
	process *shared.FiscalProcessData
}

// Store keeps documents and requests in memory. A request stays Criado for
// pollsUntilDone reads, then becomes Concluido, or Erro when its
// justification mentions "erro".
type Store struct {
	mu             sync.Mutex
	documents      map[string]*shared.XMLData
	requests       map[int64]*requestRecord
	nextID         int64
	pollsUntilDone int
	now            func() time.Time
}

// NewStore returns an empty store.
func NewStore(pollsUntilDone int) *Store {
	return &Store{
		documents:      make(map[string]*shared.XMLData),
		requests:       make(map[int64]*requestRecord),
		pollsUntilDone: pollsUntilDone,
		now:            time.Now,
	}
}

// AddDocument stores an extracted invoice under a new id.
func (s *Store) AddDocument(fileName string, content []byte, d *shared.XMLData) *shared.XMLData {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.ID = uuid.NewString()
	d.FileName = fileName
	d.Hash = uuid.NewSHA1(uuid.NameSpaceOID, content).String()
	s.documents[d.ID] = d
	return d
}

// CreateRequest validates and stores a request. It returns the validation
// messages when the body is refused.
func (s *Store) CreateRequest(body shared.FiscalRequestBody) (*shared.CreatedRequest, []string) {
	var errs []string
	if body.TotalValue <= 0 {
		errs = append(errs, "Valor total deve ser maior que zero")
	}
	if len(body.FiscalDocuments) == 0 {
		errs = append(errs, "Informe ao menos um documento fiscal")
	}
	if strings.TrimSpace(body.PersonCode) == "" {
		errs = append(errs, "Código da pessoa é obrigatório")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ref := range body.FiscalDocuments {
		if ref.ExternalDocumentID == "" {
			continue
		}
		if _, ok := s.documents[ref.ExternalDocumentID]; !ok {
			errs = append(errs, fmt.Sprintf("Documento fiscal %s não encontrado", ref.ExternalDocumentID))
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	s.nextID++
	id := s.nextID
	docs := make([]shared.RequestDocument, 0, len(body.FiscalDocuments))
	for i, ref := range body.FiscalDocuments {
		docs = append(docs, shared.RequestDocument{
			ID:                 int64(i + 1),
			DocumentType:       shared.FlexString(fmt.Sprint(ref.DocumentType)),
			ExternalDocumentID: ref.ExternalDocumentID,
			AccessKey:          ref.AccessKey,
			IssueDate:          ref.IssueDate,
		})
	}

	s.requests[id] = &requestRecord{detail: shared.RequestDetail{
		ID:            id,
		Origin:        shared.FlexString(fmt.Sprint(body.Origin)),
		ProcessType:   shared.FlexString(fmt.Sprint(body.ProcessType)),
		Status:        shared.RequestStatus{Code: shared.StatusCreated, Label: "Criado"},
		CreatedAt:     s.now().Format(time.RFC3339),
		TotalValue:    body.TotalValue,
		OrderNumber:   body.OrderNumber,
		Justification: body.Justification,
		Beneficiary: shared.Beneficiary{
			PersonCode:    body.PersonCode,
			BankAccountID: body.BankAccountID,
			TaxID:         body.BeneficiaryTaxID,
		},
		Issuer: shared.Issuer{
			Code:     body.IssuerCode,
			TaxID:    body.IssuerTaxID,
			CNAECode: body.IssuerCNAECode,
		},
		Accounting: shared.AccountingData{
			ProjectCode:   body.ProjectCode,
			SubProject:    body.SubProject,
			Rubric:        body.Rubric,
			LedgerAccount: body.LedgerAccount,
			CostCenter:    body.CostCenter,
		},
		FiscalDocuments: docs,
	}}

	return &shared.CreatedRequest{
		ID:          id,
		ProcessType: shared.FlexString(fmt.Sprint(body.ProcessType)),
		Origin:      shared.FlexString(fmt.Sprint(body.Origin)),
		TotalValue:  body.TotalValue,
		OrderNumber: body.OrderNumber,
	}, nil
}

// ReadRequest returns the request and advances its status.
func (s *Store) ReadRequest(id int64) (shared.RequestDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.requests[id]
	if !ok {
		return shared.RequestDetail{}, false
	}
	rec.reads++
	if rec.detail.Status.Code == shared.StatusCreated && rec.reads > s.pollsUntilDone {
		if strings.Contains(strings.ToLower(rec.detail.Justification), "erro") {
			rec.detail.Status = shared.RequestStatus{Code: shared.StatusError, Label: "Erro"}
			rec.detail.Errors = rejectedJustification
		} else {
			rec.detail.Status = shared.RequestStatus{Code: shared.StatusConcluded, Label: "Concluido"}
		}
	}
	return rec.detail, true
}

// LookupFiscalProcess returns the fiscal process of a concluded request. The
// process is created on the first lookup and only returned from the second
// on, like a backend that creates it asynchronously.
func (s *Store) LookupFiscalProcess(requestID int64) (*shared.FiscalProcessData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.requests[requestID]
	if !ok {
		return nil, false
	}
	if !rec.detail.Status.IsSuccess() {
		return nil, true
	}
	rec.lookups++
	if rec.process == nil {
		rec.process = &shared.FiscalProcessData{
			ID:          shared.FlexString(fmt.Sprintf("PF-%d-%06d", s.now().Year(), requestID)),
			RequestID:   requestID,
			Status:      "Aberto",
			CreatedAt:   s.now().Format(time.RFC3339),
			TotalValue:  rec.detail.TotalValue,
			OrderNumber: rec.detail.OrderNumber,
		}
		return nil, true
	}
	p := *rec.process
	return &p, true
}
