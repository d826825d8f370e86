package display

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"temporal-fiscal-request/shared"
)

// WriteXMLData prints the extracted invoice as label/value rows.
func WriteXMLData(w io.Writer, d *shared.XMLData) {
	if d == nil {
		fmt.Fprintln(w, "Nenhum XML processado.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(label, value string) { fmt.Fprintf(tw, "%s\t%s\n", label, value) }

	row("Arquivo", OrDash(d.FileName))
	row("Tipo", OrDash(d.InvoiceType))
	row("Chave de acesso", OrDash(d.AccessKey))
	row("Número / Série", fmt.Sprintf("%d / %d", d.Number, d.Series))
	row("Emissão", FormatDateTime(d.IssueDate))
	row("Emitente", fmt.Sprintf("%s (%s)", OrDash(d.IssuerName), OrDash(d.IssuerTaxID)))
	row("Destinatário", fmt.Sprintf("%s (%s)", OrDash(d.RecipientName), OrDash(d.RecipientTaxID)))
	row("Valor total", FormatBRL(d.TotalValue))
	row("Valor produtos", FormatOptionalBRL(d.ProductsValue))
	row("Valor serviços", FormatOptionalBRL(d.ServicesValue))
	row("Tributos federais", FormatBRL(d.FederalTaxes.Total))
	row("Tributos estaduais", FormatBRL(d.StateTaxes.Total))
	row("Tributos municipais", FormatBRL(d.MunicipalTaxes.Total))
	row("Situação", OrDash(d.StatusDescription))
	row("Documento", ValidationBadge(d.Validated))
	_ = tw.Flush()
}

// WriteOrderForm prints the order form with one numbered line per editable
// field, matching OrderFormFields.
func WriteOrderForm(w io.Writer, f shared.OrderForm) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, field := range OrderFormFields {
		fmt.Fprintf(tw, "%2d\t%s\t%s\n", i+1, field.Label, field.Get(f))
	}
	_ = tw.Flush()
}

// WriteRequestDetail prints the last fetched request.
func WriteRequestDetail(w io.Writer, r *shared.RequestDetailResponse) {
	if r == nil || r.Data == nil {
		fmt.Fprintln(w, "Solicitação ainda não consultada.")
		return
	}
	d := r.Data
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Solicitação\t%d\n", d.ID)
	fmt.Fprintf(tw, "Status\t%s\n", d.Status)
	fmt.Fprintf(tw, "Criada em\t%s\n", FormatDateTime(d.CreatedAt))
	fmt.Fprintf(tw, "Valor total\t%s\n", FormatBRL(d.TotalValue))
	fmt.Fprintf(tw, "Pedido\t%d\n", d.OrderNumber)
	fmt.Fprintf(tw, "Justificativa\t%s\n", OrDash(d.Justification))
	if d.Errors != "" {
		fmt.Fprintf(tw, "Erros\t%s\n", d.Errors)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(tw, "Erros da API\t%s\n", strings.Join(r.Errors, ", "))
	}
	_ = tw.Flush()
}

// WriteFiscalProcess prints the resolved fiscal process.
func WriteFiscalProcess(w io.Writer, p *shared.FiscalProcessResponse, loading bool) {
	switch {
	case p != nil && p.HasID():
		fmt.Fprintf(w, "Processo fiscal: %s (status %s, criado em %s)\n",
			p.Data.ID, OrDash(string(p.Data.Status)), FormatDateTime(p.Data.CreatedAt))
	case loading:
		fmt.Fprintln(w, "Processo fiscal: gerando ID...")
	default:
		fmt.Fprintln(w, "Processo fiscal: -")
	}
}
