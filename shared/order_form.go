package shared

import (
	"fmt"
	"strconv"
)

// Defaults of a fresh order form.
const (
	DefaultOrigin      = 1
	DefaultProcessType = 0
	// DocumentTypeInvoice is the document type sent for an uploaded NF-e.
	DocumentTypeInvoice = 0
	// MaxPlaceholderOrderNumber bounds generated order numbers.
	MaxPlaceholderOrderNumber = 1000000
)

// Placeholders stand in for identifiers the upstream registry does not
// provide yet. They are only used when neither saved form data nor the
// extracted document carries a value.
type Placeholders struct {
	PersonCode    string `json:"personCode"`
	IssuerCode    string `json:"issuerCode"`
	BankAccountID string `json:"bankAccountId"`
	OrderNumber   int64  `json:"orderNumber"`
}

// SeedOrderForm builds the form shown on step 2. Each field takes the first
// non-empty value of: saved form data, extracted document, placeholder or default.
func SeedOrderForm(saved *FiscalRequestBody, doc *XMLData, ph Placeholders) OrderForm {
	var s OrderForm
	if saved != nil {
		s = saved.OrderForm
	}
	var d XMLData
	if doc != nil {
		d = *doc
	}

	return OrderForm{
		Origin:           firstInt(s.Origin, DefaultOrigin),
		ProcessType:      firstInt(s.ProcessType, DefaultProcessType),
		TotalValue:       firstFloat(s.TotalValue, d.TotalValue),
		PersonCode:       firstString(s.PersonCode, ph.PersonCode),
		BankAccountID:    firstString(s.BankAccountID, ph.BankAccountID),
		BeneficiaryTaxID: firstString(s.BeneficiaryTaxID, d.RecipientTaxID),
		IssuerCode:       firstString(s.IssuerCode, ph.IssuerCode),
		IssuerTaxID:      firstString(s.IssuerTaxID, d.IssuerTaxID),
		IssuerCNAECode:   s.IssuerCNAECode,
		ProjectCode:      s.ProjectCode,
		SubProject:       s.SubProject,
		Rubric:           s.Rubric,
		LedgerAccount:    s.LedgerAccount,
		CostCenter:       s.CostCenter,
		OrderNumber:      firstInt64(s.OrderNumber, ph.OrderNumber),
		Justification:    s.Justification,
	}
}

// BuildRequestBody attaches the extracted document reference to the form.
func BuildRequestBody(form OrderForm, doc *XMLData) FiscalRequestBody {
	ref := FiscalDocumentRef{DocumentType: DocumentTypeInvoice}
	if doc != nil {
		ref.ExternalDocumentID = doc.ID
		ref.AccessKey = doc.AccessKey
		ref.IssueDate = doc.IssueDate
	}
	return FiscalRequestBody{
		OrderForm:       form,
		FiscalDocuments: []FiscalDocumentRef{ref},
	}
}

// CheckDivergences compares the form against the extracted document and
// returns one message per mismatch. The issuer tax id is only compared when
// the form has one.
func CheckDivergences(form OrderForm, doc *XMLData) []string {
	if doc == nil {
		return nil
	}
	var divs []string
	if form.TotalValue != doc.TotalValue {
		divs = append(divs, fmt.Sprintf("Valor Total divergente: Formulário R$ %s ≠ XML R$ %s",
			formatNumber(form.TotalValue), formatNumber(doc.TotalValue)))
	}
	if form.IssuerTaxID != "" && form.IssuerTaxID != doc.IssuerTaxID {
		divs = append(divs, fmt.Sprintf("CNPJ Emissor divergente: %s ≠ %s", form.IssuerTaxID, doc.IssuerTaxID))
	}
	return divs
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstInt64(vals ...int64) int64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstFloat(vals ...float64) float64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}
