// Package models defines the domain types for tenderwatch.
package models

import "strings"

// Unknown is the placeholder stored for fields the scraper could not extract.
const Unknown = "N/A"

// Notice is one procurement announcement. Link is its identity.
type Notice struct {
	Link                string `json:"link"`
	ProcedureNumber     string `json:"procedure_number,omitempty"`
	Entity              string `json:"entity,omitempty"`
	AwardingEntityName  string `json:"awarding_entity_name,omitempty"`
	TaxID               string `json:"tax_id,omitempty"`
	District            string `json:"district,omitempty"`
	Municipality        string `json:"municipality,omitempty"`
	Parish              string `json:"parish,omitempty"`
	Site                string `json:"site,omitempty"`
	Email               string `json:"email,omitempty"`
	ContractDesignation string `json:"contract_designation,omitempty"`
	Description         string `json:"description,omitempty"`
	BasePrice           string `json:"base_price,omitempty"`
	ExecutionDeadline   string `json:"execution_deadline,omitempty"`
	SubmissionDeadline  string `json:"submission_deadline,omitempty"`
	EUFunds             string `json:"eu_funds,omitempty"`
	PlatformName        string `json:"platform_name,omitempty"`
	ProcedureURL        string `json:"procedure_url,omitempty"`
	AuthorName          string `json:"author_name,omitempty"`
	AuthorRole          string `json:"author_role,omitempty"`
	PublicationDate     string `json:"publication_date,omitempty"`
	FullDetails         string `json:"full_details,omitempty"`

	// MatchedSeed is set by the matcher on every pass and is not ground truth.
	MatchedSeed string `json:"matched_seed,omitempty"`
}

// Title returns the description, falling back to the contract designation.
func (n Notice) Title() string {
	return FirstKnown(n.Description, n.ContractDesignation)
}

// AwardingEntity returns the awarding entity name, falling back to the listing entity.
func (n Notice) AwardingEntity() string {
	return FirstKnown(n.AwardingEntityName, n.Entity)
}

// Known reports whether v carries a real value (not empty, not Unknown).
func Known(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != Unknown
}

// FirstKnown returns the first value that is Known, or "".
func FirstKnown(vals ...string) string {
	for _, v := range vals {
		if Known(v) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Links returns the set of links present in ns.
func Links(ns []Notice) map[string]struct{} {
	out := make(map[string]struct{}, len(ns))
	for _, n := range ns {
		if n.Link == "" {
			continue
		}
		out[n.Link] = struct{}{}
	}
	return out
}
