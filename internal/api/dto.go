package api

import (
	"github.com/go-playground/validator/v10"

	"github.com/starford/tenderwatch/internal/index"
	"github.com/starford/tenderwatch/internal/models"
	"github.com/starford/tenderwatch/internal/noticeservice"
	"github.com/starford/tenderwatch/internal/pipeline"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateSeedRequest is the request body for creating a seed. Code is
// generated when empty. A request with no district and no tags creates a
// wildcard seed.
type CreateSeedRequest struct {
	Code      string   `json:"code,omitempty" example:"RESIDUOS" validate:"omitempty,max=64"`
	Name      string   `json:"name,omitempty" example:"Resíduos urbanos" validate:"omitempty,max=200"`
	District  string   `json:"district,omitempty" example:"Lisboa" validate:"omitempty,max=100"`
	TitleTags []string `json:"title_tags,omitempty" example:"contentores" validate:"omitempty,max=50,dive,required,max=100"`
	Tags      []string `json:"tags,omitempty" example:"resíduos,recolha" validate:"omitempty,max=50,dive,required,max=100"`
}

// NoticeListResponse wraps a page of the active set.
type NoticeListResponse = noticeservice.ActivePage

// ArchiveListResponse wraps a page of archived notices.
type ArchiveListResponse struct {
	Notices []index.NoticeRow `json:"notices" validate:"required"`
	Total   int               `json:"total" example:"42" validate:"required"`
}

// MatchResponse reports the seed a notice matches.
type MatchResponse = noticeservice.Match

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// SeedListResponse wraps the seed list.
type SeedListResponse struct {
	Seeds []models.Seed `json:"seeds" validate:"required"`
}

// RunListResponse wraps the run log.
type RunListResponse struct {
	Runs []models.Run `json:"runs" validate:"required"`
}

// RunResponse is the summary of a triggered batch.
type RunResponse = pipeline.Summary

// StatsResponse summarises the archive.
type StatsResponse = index.Stats
