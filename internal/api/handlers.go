package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/FocuswithJustin/verbum/core/corpus"
	coreerrors "github.com/FocuswithJustin/verbum/core/errors"
	"github.com/FocuswithJustin/verbum/core/navigate"
	"github.com/FocuswithJustin/verbum/core/ref"
	"github.com/FocuswithJustin/verbum/core/resolve"
	"github.com/FocuswithJustin/verbum/internal/logging"
	"github.com/FocuswithJustin/verbum/internal/search"
	"github.com/FocuswithJustin/verbum/internal/server"
	"github.com/FocuswithJustin/verbum/internal/session"
)

// Error codes returned in APIError.Code.
const (
	CodeUnknownBook        = "UNKNOWN_BOOK"
	CodeMalformedReference = "MALFORMED_REFERENCE"
	CodeInvalidRange       = "INVALID_RANGE"
	CodeOutOfRange         = "OUT_OF_RANGE"
	CodeAtStart            = "AT_START"
	CodeAtEnd              = "AT_END"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeRateLimited        = "RATE_LIMITED"
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInternal           = "INTERNAL_ERROR"
)

// maxParamBytes bounds query parameters before validation.
const maxParamBytes = 1024

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	Timestamp string `json:"timestamp"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Uptime      string `json:"uptime"`
	Title       string `json:"title,omitempty"`
	Books       int    `json:"books"`
	Verses      int    `json:"verses"`
	Fingerprint string `json:"fingerprint"`
}

// BookInfo describes one book of the loaded corpus.
type BookInfo struct {
	Name     string `json:"name"`
	Chapters int    `json:"chapters"`
}

// PassageInfo is a resolved passage.
type PassageInfo struct {
	Reference  string              `json:"reference"`
	Locator    ref.Locator         `json:"locator"`
	Verses     []corpus.Verse      `json:"verses"`
	Correction *session.Correction `json:"correction,omitempty"`
}

// SearchInfo is one page of keyword search results.
type SearchInfo struct {
	Query string      `json:"query"`
	Mode  search.Mode `json:"mode"`
	Book  string      `json:"book,omitempty"`
	search.Page
}

// LookupInfo is the /lookup response: a passage when the query is a
// reference, keyword results otherwise.
type LookupInfo struct {
	Mode   string       `json:"mode"`
	Query  string       `json:"query"`
	Result *PassageInfo `json:"result,omitempty"`
	Search *SearchInfo  `json:"search,omitempty"`
}

type refParams struct {
	Ref string `query:"ref" validate:"required,max=200"`
}

type searchParams struct {
	Query   string `query:"query" validate:"required,min=2,max=200"`
	Mode    string `query:"mode" validate:"omitempty,oneof=substring word"`
	Book    string `query:"book" validate:"max=64"`
	Page    int    `query:"page"`
	PerPage int    `query:"per_page" validate:"omitempty,min=1,max=100"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, CodeNotFound, "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, map[string]any{
		"name":    "Verbum API",
		"version": s.cfg.Version,
		"endpoints": []string{
			"GET /health",
			"GET /books",
			"GET /lookup?query=",
			"GET /read?ref=",
			"GET /next?ref=",
			"GET /prev?ref=",
			"GET /search?query=&mode=&book=&page=&per_page=",
			"GET /metrics",
			"WS /ws",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, HealthInfo{
		Status:      "healthy",
		Version:     s.cfg.Version,
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		Title:       s.title,
		Books:       len(s.acc.Books()),
		Verses:      s.verses,
		Fingerprint: s.fingerprint,
	})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	names := s.acc.Books()
	books := make([]BookInfo, len(names))
	for i, name := range names {
		books[i] = BookInfo{Name: name, Chapters: s.acc.ChapterCount(name)}
	}

	w.Header().Set("ETag", `"`+s.fingerprint+`"`)
	if match := r.Header.Get("If-None-Match"); match != "" && match == w.Header().Get("ETag") {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	respondList(w, books, len(books))
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	var p refParams
	if !s.bind(w, r, &p) {
		return
	}

	passage, err := s.passageFor(r, p.Ref)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, passage)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	s.handleStep(w, r, navigate.Next)
}

func (s *Server) handlePrev(w http.ResponseWriter, r *http.Request) {
	s.handleStep(w, r, navigate.Prev)
}

// handleStep is stateless: the client sends the reference it is showing and
// receives the adjacent verse.
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request, dir navigate.Direction) {
	var p refParams
	if !s.bind(w, r, &p) {
		return
	}

	res, err := s.parse(p.Ref)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	loc, err := navigate.Advance(s.acc, res.Locator, dir)
	s.metrics.NavigationsTotal.WithLabelValues(dir.String(), navigationResult(err)).Inc()
	if err != nil {
		respondErr(w, r, err)
		return
	}

	verses, err := ref.Passage(s.acc, loc)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, PassageInfo{Reference: loc.String(), Locator: loc, Verses: verses})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var p searchParams
	if !s.bind(w, r, &p) {
		return
	}

	info, err := s.search(r, p)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, info, info.Total)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var p searchParams
	if !s.bind(w, r, &p) {
		return
	}

	passage, err := s.passageFor(r, p.Query)
	if err == nil {
		respond(w, http.StatusOK, LookupInfo{Mode: "reference", Query: p.Query, Result: passage})
		return
	}
	if !errors.Is(err, ref.ErrUnknownBook) && !errors.Is(err, ref.ErrMalformedReference) {
		respondErr(w, r, err)
		return
	}
	logging.InfoContext(r.Context(), "lookup_fallback", "query", p.Query, "reason", err.Error())

	info, err := s.search(r, p)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, LookupInfo{Mode: "keyword", Query: p.Query, Search: info}, info.Total)
}

// parse parses raw and records how the book was resolved.
func (s *Server) parse(raw string) (ref.Result, error) {
	res, err := s.parser.Parse(raw)
	switch {
	case err == nil:
		s.metrics.ResolutionsTotal.WithLabelValues(res.Match.String()).Inc()
	case errors.Is(err, ref.ErrUnknownBook):
		s.metrics.ResolutionsTotal.WithLabelValues(resolve.MatchNone.String()).Inc()
	}
	return res, err
}

func (s *Server) passageFor(r *http.Request, raw string) (*PassageInfo, error) {
	res, err := s.parse(raw)
	if err != nil {
		return nil, err
	}

	verses, err := ref.Passage(s.acc, res.Locator)
	if err != nil {
		return nil, err
	}

	info := &PassageInfo{Reference: res.Locator.String(), Locator: res.Locator, Verses: verses}
	if res.Corrected() {
		info.Correction = &session.Correction{Canonical: res.Locator.Book, Entered: res.Input}
		logging.Autocorrect(r.Context(), res.Input, res.Locator.Book, res.Match.String())
	}
	return info, nil
}

func (s *Server) search(r *http.Request, p searchParams) (*SearchInfo, error) {
	mode, err := search.ParseMode(p.Mode)
	if err != nil {
		return nil, err
	}

	results, err := s.searcher.Search(r.Context(), search.Query{Term: p.Query, Mode: mode, Book: p.Book})
	if err != nil {
		return nil, err
	}
	s.metrics.SearchResults.Observe(float64(len(results.Hits)))

	return &SearchInfo{
		Query: p.Query,
		Mode:  mode,
		Book:  p.Book,
		Page:  search.Paginate(results, p.Page, p.PerPage),
	}, nil
}

// bind decodes query parameters into dst and validates it. On failure it
// writes the error response and returns false.
func (s *Server) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	q := r.URL.Query()
	var err error
	switch p := dst.(type) {
	case *refParams:
		p.Ref = param(q, "ref")
	case *searchParams:
		p.Query = param(q, "query")
		p.Mode = param(q, "mode")
		p.Book = param(q, "book")
		if p.Page, err = intParam(q, "page"); err == nil {
			p.PerPage, err = intParam(q, "per_page")
		}
	}
	if err == nil {
		err = s.validate.Validate(dst)
	}
	if err != nil {
		respondErr(w, r, err)
		return false
	}
	return true
}

func param(q url.Values, name string) string {
	return server.LimitStringLength(server.SanitizeUserInput(q.Get(name)), maxParamBytes)
}

func intParam(q url.Values, name string) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, coreerrors.NewValidation(name, "must be an integer")
	}
	return n, nil
}

func navigationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, navigate.ErrAtStart):
		return "at_start"
	case errors.Is(err, navigate.ErrAtEnd):
		return "at_end"
	}
	return "error"
}

// errorStatus maps an error onto an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ref.ErrUnknownBook):
		return http.StatusNotFound, CodeUnknownBook
	case errors.Is(err, ref.ErrMalformedReference):
		return http.StatusBadRequest, CodeMalformedReference
	case errors.Is(err, ref.ErrInvalidRange):
		return http.StatusBadRequest, CodeInvalidRange
	case errors.Is(err, ref.ErrOutOfRange):
		return http.StatusNotFound, CodeOutOfRange
	case errors.Is(err, navigate.ErrAtStart):
		return http.StatusNotFound, CodeAtStart
	case errors.Is(err, navigate.ErrAtEnd):
		return http.StatusNotFound, CodeAtEnd
	case errors.Is(err, coreerrors.ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, coreerrors.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	}
	return http.StatusInternalServerError, CodeInternal
}

func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	msg, hint := session.Describe(err)
	if status == http.StatusInternalServerError {
		logging.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		msg, hint = "Internal server error", ""
	}

	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg, Hint: hint},
		Meta:    &APIMeta{Timestamp: timestamp()},
	})
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta:    &APIMeta{Timestamp: timestamp()},
	})
}

func respondList(w http.ResponseWriter, data any, total int) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    &APIMeta{Total: total, Timestamp: timestamp()},
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
		Meta:    &APIMeta{Timestamp: timestamp()},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
