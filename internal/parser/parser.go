// Package parser extracts structured fields from the plain-text body of a
// gazette procurement announcement.
package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/starford/tenderwatch/internal/models"
)

// Field names produced by Parse.
const (
	FieldEntity              = "entity"
	FieldTaxID               = "tax_id"
	FieldDistrict            = "district"
	FieldMunicipality        = "municipality"
	FieldParish              = "parish"
	FieldSite                = "site"
	FieldEmail               = "email"
	FieldContractDesignation = "contract_designation"
	FieldDescription         = "description"
	FieldBasePrice           = "base_price"
	FieldExecutionDeadline   = "execution_deadline"
	FieldSubmissionDeadline  = "submission_deadline"
	FieldEUFunds             = "eu_funds"
	FieldPlatform            = "platform_name"
	FieldProcedureURL        = "procedure_url"
	FieldAuthorName          = "author_name"
	FieldAuthorRole          = "author_role"
)

var fieldPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{FieldEntity, regexp.MustCompile(`Designação da entidade adjudicante:\s*(.+?)(?:\n|$)`)},
	{FieldTaxID, regexp.MustCompile(`NIPC:\s*(\d+)`)},
	{FieldDistrict, regexp.MustCompile(`Distrito:\s*(.+?)(?:\n|$)`)},
	{FieldMunicipality, regexp.MustCompile(`Concelho:\s*(.+?)(?:\n|$)`)},
	{FieldParish, regexp.MustCompile(`Freguesia:\s*(.+?)(?:\n|$)`)},
	{FieldSite, regexp.MustCompile(`Endereço da Entidade \(URL\):\s*(.+?)(?:\n|$)`)},
	{FieldEmail, regexp.MustCompile(`Endereço Eletrónico:\s*(.+?)(?:\n|$)`)},
	{FieldContractDesignation, regexp.MustCompile(`Designação do contrato:\s*(.+?)(?:\n|$)`)},
	{FieldDescription, regexp.MustCompile(`Descrição:\s*(.+?)(?:\n|$)`)},
	{FieldBasePrice, regexp.MustCompile(`Preço base s/IVA:\s*(.+?)(?:\n|$)`)},
	{FieldExecutionDeadline, regexp.MustCompile(`Prazo de execução do contrato:\s*(.+?)(?:\n|$)`)},
	{FieldSubmissionDeadline, regexp.MustCompile(`Prazo para apresentação das propostas:\s*(.+?)(?:\n|$)`)},
	{FieldEUFunds, regexp.MustCompile(`Têm fundos EU\?\s*(.+?)(?:\n|$)`)},
	{FieldPlatform, regexp.MustCompile(`Plataforma eletrónica utilizada pela entidade adjudicante:\s*(.+?)(?:\n|$)`)},
	{FieldProcedureURL, regexp.MustCompile(`URL para Apresentação:\s*(.+?)(?:\n|$)`)},
	{FieldAuthorName, regexp.MustCompile(`28 - IDENTIFICAÇÃO DO\(S\) AUTOR\(ES\) DE ANÚNCIO\nNome:\s*(.+?)(?:\n|$)`)},
	{FieldAuthorRole, regexp.MustCompile(`Cargo:\s*(.+?)(?:\n|$)`)},
}

var (
	spaceRe           = regexp.MustCompile(`\s+`)
	procedureNumberRe = regexp.MustCompile(`n\.º\s*(\d+)/\d+`)
	sentDateRe        = regexp.MustCompile(`Data de Envio do Anúncio:\s*(\d{1,2}-\d{1,2}-\d{4})`)
)

// Result holds the fields found in a details body. Missing fields are absent.
type Result struct {
	Fields map[string]string
}

// Get returns the field value or models.Unknown.
func (r *Result) Get(name string) string {
	if v, ok := r.Fields[name]; ok && v != "" {
		return v
	}
	return models.Unknown
}

// Parse runs every field pattern over text. Values are whitespace-collapsed.
func Parse(text string) *Result {
	res := &Result{Fields: make(map[string]string, len(fieldPatterns))}
	for _, p := range fieldPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v := collapse(m[1])
		if v == "" {
			continue
		}
		res.Fields[p.name] = v
	}
	return res
}

// Apply copies the parsed fields into n. Fields not found become models.Unknown.
func (r *Result) Apply(n *models.Notice) {
	n.AwardingEntityName = r.Get(FieldEntity)
	n.TaxID = r.Get(FieldTaxID)
	n.District = r.Get(FieldDistrict)
	n.Municipality = r.Get(FieldMunicipality)
	n.Parish = r.Get(FieldParish)
	n.Site = r.Get(FieldSite)
	n.Email = r.Get(FieldEmail)
	n.ContractDesignation = r.Get(FieldContractDesignation)
	n.Description = r.Get(FieldDescription)
	n.BasePrice = r.Get(FieldBasePrice)
	n.ExecutionDeadline = r.Get(FieldExecutionDeadline)
	n.SubmissionDeadline = r.Get(FieldSubmissionDeadline)
	n.EUFunds = r.Get(FieldEUFunds)
	n.PlatformName = r.Get(FieldPlatform)
	n.ProcedureURL = r.Get(FieldProcedureURL)
	n.AuthorName = r.Get(FieldAuthorName)
	n.AuthorRole = r.Get(FieldAuthorRole)
}

// ProcedureNumber returns the "n.º 123/2026" number from a listing title, or models.Unknown.
func ProcedureNumber(title string) string {
	if m := procedureNumberRe.FindStringSubmatch(title); m != nil {
		return m[1]
	}
	return models.Unknown
}

// PublicationDate returns the announcement's send date from a details body.
func PublicationDate(details string, loc *time.Location) (time.Time, bool) {
	m := sentDateRe.FindStringSubmatch(details)
	if m == nil {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2-1-2006", m[1], loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
