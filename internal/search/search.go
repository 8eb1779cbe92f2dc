// Package search finds verses containing a term and pages through the hits.
package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/FocuswithJustin/verbum/core/corpus"
	"github.com/FocuswithJustin/verbum/core/errors"
	"github.com/FocuswithJustin/verbum/core/resolve"
	"github.com/FocuswithJustin/verbum/internal/cache"
)

// Limits shared by the CLI and the HTTP API.
const (
	MaxResults     = 5000
	DefaultPerPage = 20
	MaxPerPage     = 100
	MinTermLength  = 2
)

// Mode selects how a term is matched against verse text.
type Mode string

const (
	// ModeSubstring matches the term anywhere, ignoring case.
	ModeSubstring Mode = "substring"
	// ModeWord matches the term only as a whole word, ignoring case.
	ModeWord Mode = "word"
)

// ParseMode maps a query parameter onto a Mode. Empty means ModeSubstring.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSubstring:
		return ModeSubstring, nil
	case ModeWord:
		return ModeWord, nil
	}
	return "", errors.NewValidation("mode", fmt.Sprintf("unknown search mode %q", s))
}

// Query describes one search.
type Query struct {
	Term string
	Mode Mode
	// Book restricts the search to one book. Abbreviations and misspellings
	// are resolved the same way references are.
	Book string
}

// Hit is one matching verse.
type Hit struct {
	Book      string `json:"book"`
	Chapter   int    `json:"chapter"`
	Verse     int    `json:"verse"`
	Text      string `json:"text"`
	Reference string `json:"reference"`
}

// Results holds every hit for a query, in canonical order.
type Results struct {
	Hits []Hit
	// Truncated is set when the search stopped at MaxResults.
	Truncated bool
}

type key struct {
	term string
	mode Mode
	book string
}

// Searcher runs queries over one corpus and caches the results.
type Searcher struct {
	acc      corpus.Accessor
	resolver *resolve.Resolver
	results  *cache.TTLCache[key, Results]
	max      int

	// OnCacheHit is called when a query is answered from the cache.
	OnCacheHit func()
}

// New returns a Searcher over acc keeping up to cacheSize result sets for ttl.
func New(acc corpus.Accessor, ttl time.Duration, cacheSize int) *Searcher {
	return &Searcher{
		acc:      acc,
		resolver: resolve.New(acc),
		results:  cache.New[key, Results](ttl, cacheSize),
		max:      MaxResults,
	}
}

// Search returns every verse matching q, up to MaxResults.
func (s *Searcher) Search(ctx context.Context, q Query) (Results, error) {
	term := strings.TrimSpace(q.Term)
	if len([]rune(term)) < MinTermLength {
		return Results{}, errors.NewValidation("query",
			fmt.Sprintf("search term must be at least %d characters", MinTermLength))
	}

	mode := q.Mode
	if mode == "" {
		mode = ModeSubstring
	}

	book := ""
	if strings.TrimSpace(q.Book) != "" {
		res := s.resolver.Resolve(q.Book)
		if !res.Found() {
			return Results{}, errors.NewNotFound("book", q.Book)
		}
		book = res.Canonical
	}

	k := key{term: cases.Fold().String(term), mode: mode, book: book}
	if r, ok := s.results.Get(k); ok {
		if s.OnCacheHit != nil {
			s.OnCacheHit()
		}
		return r, nil
	}

	match, err := matcher(term, mode)
	if err != nil {
		return Results{}, err
	}

	books := s.acc.Books()
	if book != "" {
		books = []string{book}
	}

	var r Results
	for _, b := range books {
		if err := ctx.Err(); err != nil {
			return Results{}, err
		}
		if s.scanBook(b, match, &r) {
			break
		}
	}

	s.results.Set(k, r)
	return r, nil
}

// scanBook appends matches from book and reports whether the cap was hit.
func (s *Searcher) scanBook(book string, match func(string) bool, r *Results) bool {
	chapters := s.acc.ChapterCount(book)
	for ch := 1; ch <= chapters; ch++ {
		verses := s.acc.VerseCount(book, ch)
		for v := 1; v <= verses; v++ {
			text, _ := s.acc.VerseText(book, ch, v)
			if !match(text) {
				continue
			}
			if len(r.Hits) == s.max {
				r.Truncated = true
				return true
			}
			r.Hits = append(r.Hits, Hit{
				Book:      book,
				Chapter:   ch,
				Verse:     v,
				Text:      text,
				Reference: fmt.Sprintf("%s %d:%d", book, ch, v),
			})
		}
	}
	return false
}

func matcher(term string, mode Mode) (func(string) bool, error) {
	switch mode {
	case ModeSubstring:
		caser := cases.Fold()
		needle := caser.String(term)
		return func(text string) bool {
			return strings.Contains(caser.String(text), needle)
		}, nil
	case ModeWord:
		re, err := regexp.Compile(`(?i)(?:^|[^\pL\pN_])` + regexp.QuoteMeta(term) + `(?:$|[^\pL\pN_])`)
		if err != nil {
			return nil, errors.Wrap(err, "compile word pattern")
		}
		return re.MatchString, nil
	}
	return nil, errors.NewValidation("mode", fmt.Sprintf("unknown search mode %q", mode))
}

// Group is the hits of one book.
type Group struct {
	Book   string `json:"book"`
	Count  int    `json:"count"`
	Verses []Hit  `json:"verses"`
}

// GroupByBook groups hits by book, keeping the order books first appear in.
func GroupByBook(hits []Hit) []Group {
	groups := make([]Group, 0)
	for _, h := range hits {
		if n := len(groups); n > 0 && groups[n-1].Book == h.Book {
			groups[n-1].Verses = append(groups[n-1].Verses, h)
			groups[n-1].Count++
			continue
		}
		groups = append(groups, Group{Book: h.Book, Count: 1, Verses: []Hit{h}})
	}
	return groups
}

// Page is one page of grouped results.
type Page struct {
	Page       int     `json:"page"`
	PerPage    int     `json:"per_page"`
	Total      int     `json:"total"`
	TotalPages int     `json:"total_pages"`
	Truncated  bool    `json:"truncated,omitempty"`
	Groups     []Group `json:"results"`
}

// Paginate returns the requested page of r. perPage is clamped to
// [1, MaxPerPage] (zero means DefaultPerPage) and page to [1, TotalPages].
func Paginate(r Results, page, perPage int) Page {
	switch {
	case perPage == 0:
		perPage = DefaultPerPage
	case perPage < 1:
		perPage = 1
	case perPage > MaxPerPage:
		perPage = MaxPerPage
	}

	total := len(r.Hits)
	totalPages := 1
	if total > 0 {
		totalPages = (total + perPage - 1) / perPage
	}
	page = max(1, min(page, totalPages))

	start := (page - 1) * perPage
	end := min(start+perPage, total)

	return Page{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
		Truncated:  r.Truncated,
		Groups:     GroupByBook(r.Hits[start:end]),
	}
}
