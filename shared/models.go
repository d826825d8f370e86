package shared

// UploadXMLInput is the payload of SignalUploadXML and the input to the
// ProcessXML activity.
type UploadXMLInput struct {
	FileName string `json:"fileName"`
	Content  []byte `json:"content"`
}

// XMLProcessResponse is returned by the document extraction backend.
type XMLProcessResponse struct {
	Success   bool     `json:"success"`
	Data      *XMLData `json:"data"`
	Message   string   `json:"message"`
	Errors    []string `json:"errors"`
	Timestamp string   `json:"timestamp"`
}

// FederalTaxes groups the federal taxes of an invoice.
type FederalTaxes struct {
	IPI           float64 `json:"valorIPI"`
	PIS           float64 `json:"valorPIS"`
	COFINS        float64 `json:"valorCOFINS"`
	INSS          float64 `json:"valorINSS"`
	IR            float64 `json:"valorIR"`
	CSLL          float64 `json:"valorCSLL"`
	Total         float64 `json:"total"`
	TotalWithheld float64 `json:"totalRetencoes"`
}

// StateTaxes groups the state taxes of an invoice.
type StateTaxes struct {
	ICMS       float64  `json:"valorICMS"`
	ICMSBase   *float64 `json:"baseCalculoICMS"`
	ICMSSTBase *float64 `json:"baseCalculoICMSST"`
	ICMSST     float64  `json:"valorICMSST"`
	Total      float64  `json:"total"`
}

// MunicipalTaxes groups the municipal taxes of an invoice.
type MunicipalTaxes struct {
	ISS   float64 `json:"valorISS"`
	Total float64 `json:"total"`
}

// XMLData is the document extracted from an uploaded invoice. The session
// replaces it wholesale and never edits single fields.
type XMLData struct {
	ID                string   `json:"id"`
	FileName          string   `json:"nomeArquivo"`
	Hash              string   `json:"hash"`
	InvoiceType       string   `json:"tipoNota"`
	AccessKey         string   `json:"chaveAcesso"`
	Number            int64    `json:"numero"`
	Series            int      `json:"serie"`
	Model             string   `json:"modelo"`
	IssueDate         string   `json:"dataEmissao"`
	IssuerTaxID       string   `json:"cnpjCpfEmitente"`
	IssuerName        string   `json:"nomeEmitente"`
	IssuerTradeName   string   `json:"nomeFantasiaEmitente"`
	IssuerStateReg    string   `json:"inscricaoEstadualEmitente"`
	IssuerState       string   `json:"ufEmitente"`
	IssuerCity        string   `json:"municipioEmitente"`
	RecipientTaxID    string   `json:"cnpjCpfDestinatario"`
	RecipientName     string   `json:"nomeDestinatario"`
	RecipientStateReg string   `json:"inscricaoEstadualDestinatario"`
	RecipientState    string   `json:"ufDestinatario"`
	RecipientCity     string   `json:"municipioDestinatario"`
	TotalValue        float64  `json:"valorTotal"`
	ProductsValue     *float64 `json:"valorProdutos"`
	ServicesValue     *float64 `json:"valorServicos"`

	FederalTaxes   FederalTaxes   `json:"tributosFederais"`
	StateTaxes     StateTaxes     `json:"tributosEstaduais"`
	MunicipalTaxes MunicipalTaxes `json:"tributosMunicipais"`

	Status             string   `json:"status"`
	StatusDescription  string   `json:"statusDescricao"`
	EmissionType       string   `json:"tipoEmissao"`
	ItemCount          int      `json:"quantidadeItens"`
	TaxAuthorityInfo   string   `json:"informacoesFisco"`
	Purpose            string   `json:"finalidadeEmissao"`
	OperationType      string   `json:"tipoOperacao"`
	OperationNature    string   `json:"naturezaOperacao"`
	CompetenceDate     string   `json:"dataCompetencia"`
	ServiceListItem    string   `json:"itemListaServicos"`
	CNAECode           string   `json:"codigoCNAE"`
	ServiceDetail      string   `json:"discriminacaoServico"`
	CityServiceCode    string   `json:"codigoServicoMunicipio"`
	IncidenceCity      string   `json:"municipioIncidencia"`
	Deductions         *float64 `json:"valorDeducoes"`
	ISSRate            *float64 `json:"aliquotaISS"`
	NetValue           *float64 `json:"valorLiquido"`
	FederalWithholding *bool    `json:"retencaoFederal"`
	Validated          bool     `json:"documentoValidado"`
}

// OrderForm is the order data the user edits on step 2.
type OrderForm struct {
	Origin           int     `json:"origem"`
	ProcessType      int     `json:"tipoProcesso"`
	TotalValue       float64 `json:"valorTotal"`
	PersonCode       string  `json:"codigoPessoa"`
	BankAccountID    string  `json:"idContaBancaria"`
	BeneficiaryTaxID string  `json:"cpfBeneficiario"`
	IssuerCode       string  `json:"codigoEmissor"`
	IssuerTaxID      string  `json:"cnpjEmissor"`
	IssuerCNAECode   string  `json:"codigoCnaeEmissor"`
	ProjectCode      string  `json:"codigoProjeto"`
	SubProject       int     `json:"subProjeto"`
	Rubric           string  `json:"rubrica"`
	LedgerAccount    string  `json:"contaRazao"`
	CostCenter       string  `json:"centroDeCusto"`
	OrderNumber      int64   `json:"numeroPedido"`
	Justification    string  `json:"justificativa"`
}

// FiscalDocumentRef points a request at an extracted invoice.
type FiscalDocumentRef struct {
	DocumentType       int    `json:"tipoDocumento"`
	ExternalDocumentID string `json:"idDocumentoFiscalExterno"`
	AccessKey          string `json:"chaveAcessoNf"`
	IssueDate          string `json:"dataEmissao"`
}

// FiscalRequestBody is the payload sent to the request creation backend.
type FiscalRequestBody struct {
	OrderForm
	FiscalDocuments []FiscalDocumentRef `json:"documentosFiscais"`
}

// CreatedRequest is the data returned when a request is created.
type CreatedRequest struct {
	ID          int64      `json:"id"`
	ProcessType FlexString `json:"tipoProcesso"`
	Origin      FlexString `json:"origem"`
	TotalValue  float64    `json:"valorTotal"`
	OrderNumber int64      `json:"numeroPedido"`
}

// CreateRequestResponse is returned by the request creation backend.
type CreateRequestResponse struct {
	Success   bool            `json:"success"`
	Data      *CreatedRequest `json:"data"`
	Message   string          `json:"message"`
	Errors    []string        `json:"errors"`
	Timestamp string          `json:"timestamp"`
}

// Beneficiary of a request.
type Beneficiary struct {
	PersonCode    string `json:"codigoPessoa"`
	BankAccountID string `json:"idContaBancaria"`
	TaxID         string `json:"cpfBeneficiario"`
}

// Issuer of the invoice attached to a request.
type Issuer struct {
	Code     string `json:"codigoEmissor"`
	TaxID    string `json:"cnpjEmissor"`
	CNAECode string `json:"codigoCnaeEmissor"`
}

// AccountingData of a request.
type AccountingData struct {
	ProjectCode   string `json:"codigoProjeto"`
	SubProject    int    `json:"subProjeto"`
	Rubric        string `json:"rubrica"`
	LedgerAccount string `json:"contaRazao"`
	CostCenter    string `json:"centroDeCusto"`
}

// RequestDocument is a fiscal document as stored by the request backend.
type RequestDocument struct {
	ID                 int64      `json:"id"`
	DocumentType       FlexString `json:"tipoDocumento"`
	ExternalDocumentID string     `json:"idDocumentoFiscalExterno"`
	AccessKey          string     `json:"chaveAcessoNf"`
	IssueDate          string     `json:"dataEmissao"`
}

// RequestDetail is the remote request record.
type RequestDetail struct {
	ID              int64             `json:"id"`
	Origin          FlexString        `json:"origem"`
	ProcessType     FlexString        `json:"tipoProcesso"`
	Status          RequestStatus     `json:"status"`
	CreatedAt       string            `json:"dataCriacao"`
	TotalValue      float64           `json:"valorTotal"`
	OrderNumber     int64             `json:"numeroPedido"`
	Justification   string            `json:"justificativa"`
	Errors          ErrorText         `json:"erros"`
	Beneficiary     Beneficiary       `json:"beneficiario"`
	Issuer          Issuer            `json:"emissor"`
	Accounting      AccountingData    `json:"dadosContabeis"`
	FiscalDocuments []RequestDocument `json:"documentosFiscais"`
}

// RequestDetailResponse is returned by the request lookup backend. The
// session keeps the last one and replaces it on every fetch.
type RequestDetailResponse struct {
	Success   bool           `json:"success"`
	Data      *RequestDetail `json:"data"`
	Message   string         `json:"message"`
	Errors    []string       `json:"errors"`
	Timestamp string         `json:"timestamp"`
}

// FiscalProcessData is the downstream process created for an approved request.
type FiscalProcessData struct {
	ID          FlexString `json:"id"`
	RequestID   int64      `json:"solicitacaoId"`
	Status      FlexString `json:"status"`
	CreatedAt   string     `json:"dataCriacao"`
	TotalValue  float64    `json:"valorTotal"`
	OrderNumber int64      `json:"numeroPedido"`
}

// FiscalProcessResponse is returned by the fiscal process lookup backend.
// Data is nil, or has an empty ID, until the process exists.
type FiscalProcessResponse struct {
	Success   bool               `json:"success"`
	Data      *FiscalProcessData `json:"data"`
	Message   string             `json:"message"`
	Timestamp string             `json:"timestamp"`
}

// HasID reports whether the lookup resolved a process id.
func (r FiscalProcessResponse) HasID() bool {
	return r.Data != nil && r.Data.ID != "" && r.Data.ID != "0"
}
