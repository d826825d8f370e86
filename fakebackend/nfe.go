package fakebackend

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"temporal-fiscal-request/shared"
)

// nfeProc is the authorized NF-e envelope: the signed invoice plus the tax
// authority protocol.
type nfeProc struct {
	XMLName xml.Name `xml:"nfeProc"`
	NFe     nfe      `xml:"NFe"`
	ProtNFe struct {
		InfProt struct {
			ChNFe   string `xml:"chNFe"`
			CStat   string `xml:"cStat"`
			XMotivo string `xml:"xMotivo"`
		} `xml:"infProt"`
	} `xml:"protNFe"`
}

type nfeAddress struct {
	UF   string `xml:"UF"`
	XMun string `xml:"xMun"`
}

type nfe struct {
	InfNFe struct {
		ID  string `xml:"Id,attr"`
		Ide struct {
			NatOp  string `xml:"natOp"`
			Mod    string `xml:"mod"`
			Serie  string `xml:"serie"`
			NNF    string `xml:"nNF"`
			DhEmi  string `xml:"dhEmi"`
			DEmi   string `xml:"dEmi"`
			TpNF   string `xml:"tpNF"`
			TpEmis string `xml:"tpEmis"`
			FinNFe string `xml:"finNFe"`
		} `xml:"ide"`
		Emit struct {
			CNPJ      string     `xml:"CNPJ"`
			CPF       string     `xml:"CPF"`
			XNome     string     `xml:"xNome"`
			XFant     string     `xml:"xFant"`
			IE        string     `xml:"IE"`
			EnderEmit nfeAddress `xml:"enderEmit"`
		} `xml:"emit"`
		Dest struct {
			CNPJ      string     `xml:"CNPJ"`
			CPF       string     `xml:"CPF"`
			XNome     string     `xml:"xNome"`
			IE        string     `xml:"IE"`
			EnderDest nfeAddress `xml:"enderDest"`
		} `xml:"dest"`
		Det   []struct{} `xml:"det"`
		Total struct {
			ICMSTot struct {
				VBC     string `xml:"vBC"`
				VICMS   string `xml:"vICMS"`
				VBCST   string `xml:"vBCST"`
				VST     string `xml:"vST"`
				VProd   string `xml:"vProd"`
				VIPI    string `xml:"vIPI"`
				VPIS    string `xml:"vPIS"`
				VCOFINS string `xml:"vCOFINS"`
				VNF     string `xml:"vNF"`
			} `xml:"ICMSTot"`
			ISSQNtot struct {
				VServ string `xml:"vServ"`
				VISS  string `xml:"vISS"`
			} `xml:"ISSQNtot"`
			RetTrib struct {
				VRetPIS    string `xml:"vRetPIS"`
				VRetCOFINS string `xml:"vRetCOFINS"`
				VRetCSLL   string `xml:"vRetCSLL"`
				VIRRF      string `xml:"vIRRF"`
				VRetPrev   string `xml:"vRetPrev"`
			} `xml:"retTrib"`
		} `xml:"total"`
		InfAdic struct {
			InfAdFisco string `xml:"infAdFisco"`
		} `xml:"infAdic"`
	} `xml:"infNFe"`
}

// ErrNotNFe is returned for well-formed XML that is not an NF-e.
var ErrNotNFe = errors.New("arquivo não é uma NF-e")

// charsetReader lets the decoder read NF-e files saved as ISO-8859-1 or
// Windows-1252, which older emitters still produce.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	case "utf-8", "utf8", "":
		return input, nil
	}
	return nil, fmt.Errorf("codificação não suportada: %s", label)
}

// ParseNFe extracts the invoice fields from an authorized NF-e (nfeProc) or
// a bare NFe document.
func ParseNFe(data []byte) (*shared.XMLData, error) {
	var proc nfeProc
	if err := decode(data, &proc); err != nil {
		var bare nfe
		if errBare := decode(data, &bare); errBare != nil {
			return nil, fmt.Errorf("falha ao fazer parse do XML: %w", err)
		}
		proc.NFe = bare
	}

	inf := proc.NFe.InfNFe
	if inf.Ide.NNF == "" {
		return nil, ErrNotNFe
	}

	tot := inf.Total.ICMSTot
	ret := inf.Total.RetTrib
	accessKey := proc.ProtNFe.InfProt.ChNFe
	if accessKey == "" {
		accessKey = strings.TrimPrefix(inf.ID, "NFe")
	}
	issueDate := inf.Ide.DhEmi
	if issueDate == "" {
		issueDate = inf.Ide.DEmi
	}

	d := &shared.XMLData{
		InvoiceType:       invoiceType(inf.Ide.Mod),
		AccessKey:         accessKey,
		Number:            parseInt64(inf.Ide.NNF),
		Series:            int(parseInt64(inf.Ide.Serie)),
		Model:             inf.Ide.Mod,
		IssueDate:         issueDate,
		IssuerTaxID:       firstNonEmpty(inf.Emit.CNPJ, inf.Emit.CPF),
		IssuerName:        inf.Emit.XNome,
		IssuerTradeName:   inf.Emit.XFant,
		IssuerStateReg:    inf.Emit.IE,
		IssuerState:       inf.Emit.EnderEmit.UF,
		IssuerCity:        inf.Emit.EnderEmit.XMun,
		RecipientTaxID:    firstNonEmpty(inf.Dest.CNPJ, inf.Dest.CPF),
		RecipientName:     inf.Dest.XNome,
		RecipientStateReg: inf.Dest.IE,
		RecipientState:    inf.Dest.EnderDest.UF,
		RecipientCity:     inf.Dest.EnderDest.XMun,
		TotalValue:        parseAmount(tot.VNF),
		ProductsValue:     optionalAmount(tot.VProd),
		ServicesValue:     optionalAmount(inf.Total.ISSQNtot.VServ),
		EmissionType:      inf.Ide.TpEmis,
		ItemCount:         len(inf.Det),
		TaxAuthorityInfo:  inf.InfAdic.InfAdFisco,
		Purpose:           inf.Ide.FinNFe,
		OperationType:     inf.Ide.TpNF,
		OperationNature:   inf.Ide.NatOp,
		Status:            proc.ProtNFe.InfProt.CStat,
		StatusDescription: proc.ProtNFe.InfProt.XMotivo,
		Validated:         proc.ProtNFe.InfProt.CStat == "100",
	}

	d.FederalTaxes = shared.FederalTaxes{
		IPI:    parseAmount(tot.VIPI),
		PIS:    parseAmount(tot.VPIS),
		COFINS: parseAmount(tot.VCOFINS),
		INSS:   parseAmount(ret.VRetPrev),
		IR:     parseAmount(ret.VIRRF),
		CSLL:   parseAmount(ret.VRetCSLL),
	}
	d.FederalTaxes.Total = d.FederalTaxes.IPI + d.FederalTaxes.PIS + d.FederalTaxes.COFINS
	d.FederalTaxes.TotalWithheld = parseAmount(ret.VRetPIS) + parseAmount(ret.VRetCOFINS) +
		d.FederalTaxes.CSLL + d.FederalTaxes.IR + d.FederalTaxes.INSS

	d.StateTaxes = shared.StateTaxes{
		ICMS:       parseAmount(tot.VICMS),
		ICMSBase:   optionalAmount(tot.VBC),
		ICMSSTBase: optionalAmount(tot.VBCST),
		ICMSST:     parseAmount(tot.VST),
	}
	d.StateTaxes.Total = d.StateTaxes.ICMS + d.StateTaxes.ICMSST

	d.MunicipalTaxes = shared.MunicipalTaxes{ISS: parseAmount(inf.Total.ISSQNtot.VISS)}
	d.MunicipalTaxes.Total = d.MunicipalTaxes.ISS

	return d, nil
}

func decode(data []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader
	return dec.Decode(v)
}

func invoiceType(model string) string {
	switch model {
	case "55":
		return "NF-e"
	case "65":
		return "NFC-e"
	}
	return model
}

func parseAmount(s string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

func optionalAmount(s string) *float64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	v := parseAmount(s)
	return &v
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
