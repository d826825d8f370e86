package display

import (
	"fmt"
	"strconv"
	"strings"

	"temporal-fiscal-request/shared"
)

// FormField is one editable field of the order form.
type FormField struct {
	Label string
	Get   func(shared.OrderForm) string
	Set   func(*shared.OrderForm, string) error
}

func textField(label string, ptr func(*shared.OrderForm) *string) FormField {
	return FormField{
		Label: label,
		Get:   func(f shared.OrderForm) string { return OrDash(*ptr(&f)) },
		Set: func(f *shared.OrderForm, v string) error {
			*ptr(f) = strings.TrimSpace(v)
			return nil
		},
	}
}

func intField(label string, ptr func(*shared.OrderForm) *int) FormField {
	return FormField{
		Label: label,
		Get:   func(f shared.OrderForm) string { return strconv.Itoa(*ptr(&f)) },
		Set: func(f *shared.OrderForm, v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: número inválido %q", label, v)
			}
			*ptr(f) = n
			return nil
		},
	}
}

// OrderFormFields lists the form fields in display order.
var OrderFormFields = []FormField{
	intField("Origem", func(f *shared.OrderForm) *int { return &f.Origin }),
	intField("Tipo de processo", func(f *shared.OrderForm) *int { return &f.ProcessType }),
	{
		Label: "Valor total",
		Get:   func(f shared.OrderForm) string { return FormatBRL(f.TotalValue) },
		Set: func(f *shared.OrderForm, v string) error {
			n, err := ParseAmount(v)
			if err != nil {
				return err
			}
			f.TotalValue = n
			return nil
		},
	},
	textField("Código pessoa", func(f *shared.OrderForm) *string { return &f.PersonCode }),
	textField("Conta bancária", func(f *shared.OrderForm) *string { return &f.BankAccountID }),
	textField("CPF beneficiário", func(f *shared.OrderForm) *string { return &f.BeneficiaryTaxID }),
	textField("Código emissor", func(f *shared.OrderForm) *string { return &f.IssuerCode }),
	textField("CNPJ emissor", func(f *shared.OrderForm) *string { return &f.IssuerTaxID }),
	textField("CNAE emissor", func(f *shared.OrderForm) *string { return &f.IssuerCNAECode }),
	textField("Projeto", func(f *shared.OrderForm) *string { return &f.ProjectCode }),
	intField("Subprojeto", func(f *shared.OrderForm) *int { return &f.SubProject }),
	textField("Rubrica", func(f *shared.OrderForm) *string { return &f.Rubric }),
	textField("Conta razão", func(f *shared.OrderForm) *string { return &f.LedgerAccount }),
	textField("Centro de custo", func(f *shared.OrderForm) *string { return &f.CostCenter }),
	{
		Label: "Número do pedido",
		Get:   func(f shared.OrderForm) string { return strconv.FormatInt(f.OrderNumber, 10) },
		Set: func(f *shared.OrderForm, v string) error {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return fmt.Errorf("Número do pedido: número inválido %q", v)
			}
			f.OrderNumber = n
			return nil
		},
	},
	textField("Justificativa", func(f *shared.OrderForm) *string { return &f.Justification }),
}

// ParseAmount reads an amount typed either as 1234.50 or as 1.234,50.
func ParseAmount(v string) (float64, error) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(v), "R$"))
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("valor inválido %q", v)
	}
	return n, nil
}
