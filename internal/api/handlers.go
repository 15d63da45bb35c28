package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/starford/tenderwatch/internal/index"
	"github.com/starford/tenderwatch/internal/noticeservice"
	"github.com/starford/tenderwatch/internal/seeds"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noticeservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noticeservice.Service) *Handler {
	return &Handler{svc: svc}
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// ListNotices handles GET /api/notices.
//
//	@Summary		List the active set, labelled with the current seeds
//	@Tags			notices
//	@Produce		json
//	@Param			district	query		string	false	"Filter by district (case-insensitive)"
//	@Param			seed		query		string	false	"Filter by seed code"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	NoticeListResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notices [get]
func (h *Handler) ListNotices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.svc.ListActive(r.Context(), noticeservice.ActiveQuery{
		District: q.Get("district"),
		Seed:     q.Get("seed"),
		Limit:    queryInt(r, "limit"),
		Offset:   queryInt(r, "offset"),
	})
	if err != nil {
		writeServiceError(w, "list notices", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// MatchNotice handles GET /api/notices/match.
//
//	@Summary		Report the first seed an active notice matches
//	@Tags			notices
//	@Produce		json
//	@Param			link	query		string	true	"Notice link"
//	@Success		200		{object}	MatchResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notices/match [get]
func (h *Handler) MatchNotice(w http.ResponseWriter, r *http.Request) {
	link := strings.TrimSpace(r.URL.Query().Get("link"))
	if link == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'link' is required"))
		return
	}
	m, err := h.svc.MatchNotice(r.Context(), link)
	if err != nil {
		writeServiceError(w, "match notice", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ListArchived handles GET /api/notices/archive.
//
//	@Summary		List archived notices, including expired ones
//	@Tags			notices
//	@Produce		json
//	@Param			district	query		string	false	"Filter by district"
//	@Param			seed		query		string	false	"Filter by matched seed label"
//	@Param			active		query		bool	false	"Only notices still active"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Success		200			{object}	ArchiveListResponse
//	@Security		BearerAuth
//	@Router			/notices/archive [get]
func (h *Handler) ListArchived(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	activeOnly, _ := strconv.ParseBool(q.Get("active"))
	rows, total, err := h.svc.Archived(r.Context(), index.ListQuery{
		District:   q.Get("district"),
		Seed:       q.Get("seed"),
		ActiveOnly: activeOnly,
		Limit:      queryInt(r, "limit"),
		Offset:     queryInt(r, "offset"),
	})
	if err != nil {
		writeServiceError(w, "list archive", err)
		return
	}
	writeJSON(w, http.StatusOK, ArchiveListResponse{Notices: rows, Total: total})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search over archived notices
//	@Tags			notices
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notices/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	results, err := h.svc.Search(r.Context(), q, queryInt(r, "limit"))
	if err != nil {
		writeServiceError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// ListSeeds handles GET /api/seeds.
//
//	@Summary		List seeds, optionally filtered by a search term
//	@Tags			seeds
//	@Produce		json
//	@Param			q	query		string	false	"Substring of code, name, district or tags"
//	@Success		200	{object}	SeedListResponse
//	@Security		BearerAuth
//	@Router			/seeds [get]
func (h *Handler) ListSeeds(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.SearchSeeds(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, "list seeds", err)
		return
	}
	writeJSON(w, http.StatusOK, SeedListResponse{Seeds: list})
}

// GetSeed handles GET /api/seeds/{code}.
//
//	@Summary		Get one seed
//	@Tags			seeds
//	@Produce		json
//	@Param			code	path		string	true	"Seed code"
//	@Success		200		{object}	models.Seed
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/seeds/{code} [get]
func (h *Handler) GetSeed(w http.ResponseWriter, r *http.Request) {
	seed, err := h.svc.GetSeed(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, "get seed", err)
		return
	}
	writeJSON(w, http.StatusOK, seed)
}

// CreateSeed handles POST /api/seeds.
//
//	@Summary		Create a seed
//	@Tags			seeds
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateSeedRequest	true	"Seed to create"
//	@Success		201		{object}	models.Seed
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/seeds [post]
func (h *Handler) CreateSeed(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateSeedRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		if errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, errorBody("empty body"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	seed, err := h.svc.AddSeed(r.Context(), seeds.Input{
		Code:      req.Code,
		Name:      req.Name,
		District:  req.District,
		TitleTags: req.TitleTags,
		Tags:      req.Tags,
	})
	if err != nil {
		writeServiceError(w, "create seed", err)
		return
	}
	writeJSON(w, http.StatusCreated, seed)
}

// DeleteSeed handles DELETE /api/seeds/{code}.
//
//	@Summary		Delete a seed
//	@Tags			seeds
//	@Param			code	path	string	true	"Seed code"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/seeds/{code} [delete]
func (h *Handler) DeleteSeed(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveSeed(r.Context(), chi.URLParam(r, "code")); err != nil {
		writeServiceError(w, "delete seed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRuns handles GET /api/runs.
//
//	@Summary		List recent batch runs, newest first
//	@Tags			runs
//	@Produce		json
//	@Param			limit	query		int	false	"Max runs"
//	@Success		200		{object}	RunListResponse
//	@Security		BearerAuth
//	@Router			/runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.svc.Runs(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeServiceError(w, "list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs})
}

// TriggerRun handles POST /api/runs. The request blocks until the batch
// finishes.
//
//	@Summary		Run one batch now
//	@Tags			runs
//	@Produce		json
//	@Success		200	{object}	RunResponse
//	@Failure		409	{object}	errResponse
//	@Failure		502	{object}	RunResponse
//	@Security		BearerAuth
//	@Router			/runs [post]
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.TriggerRun(r.Context())
	if err != nil {
		if sum.Run.ID != "" {
			// The batch ran and failed; the summary carries the reason.
			writeJSON(w, http.StatusBadGateway, sum)
			return
		}
		writeServiceError(w, "trigger run", err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Stats handles GET /api/stats.
//
//	@Summary		Archive statistics
//	@Tags			runs
//	@Produce		json
//	@Success		200	{object}	StatsResponse
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Feed handles GET /feeds/{name}.xml.
//
//	@Summary		RSS feed of the active set ("all") or of seed matches ("seeds")
//	@Tags			feeds
//	@Produce		xml
//	@Param			name	path	string	true	"Feed name"	Enums(all, seeds)
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Router			/feeds/{name}.xml [get]
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Feed(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, "render feed", err)
		return
	}
	render.XML(w, r, doc.FeedXml())
}
