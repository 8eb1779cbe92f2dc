package ref

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/verbum/core/corpus"
	"github.com/FocuswithJustin/verbum/core/resolve"
)

// tail is the numeric part of a reference: "3", "3:16", "3:16-18".
// A second colon after the dash ("3:36-4:2") parses so it can be rejected
// as a cross-chapter range rather than as junk. Numbers are captured as text
// so that an overflowing numeral still reads as a number (see number).
type tail struct {
	Chapter string       `parser:"@Number"`
	Verses  *verseClause `parser:"( \":\" @@ )?"`
}

type verseClause struct {
	Start string     `parser:"@Number"`
	End   *rangeTail `parser:"( \"-\" @@ )?"`
}

type rangeTail struct {
	Number string  `parser:"@Number"`
	Verse  *string `parser:"( \":\" @Number )?"`
}

var tailLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `\d+`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Dash", Pattern: `-`},
})

var tailParser = participle.MustBuild[tail](
	participle.Lexer(tailLexer),
)

var (
	colonSpace = regexp.MustCompile(`[\s\p{Z}]*:[\s\p{Z}]*`)
	dashSpace  = regexp.MustCompile(`[\s\p{Z}]*-[\s\p{Z}]*`)
)

// BookResolver maps free-form book text to a canonical name.
type BookResolver interface {
	Resolve(raw string) resolve.Result
}

// Result is a successfully parsed reference.
type Result struct {
	Locator Locator
	// Match is how the book text was resolved.
	Match resolve.MatchKind
	// Input is the book text as the user typed it.
	Input string
}

// Corrected reports whether the book was resolved by alias or fuzzy match.
func (r Result) Corrected() bool {
	return r.Match == resolve.MatchAlias || r.Match == resolve.MatchFuzzy
}

// Parser turns reference text into Locators checked against a corpus.
// A Parser holds no mutable state and is safe for concurrent use.
type Parser struct {
	acc      corpus.Accessor
	resolver BookResolver
}

// NewParser returns a Parser over acc. A nil resolver uses resolve.New(acc).
func NewParser(acc corpus.Accessor, resolver BookResolver) *Parser {
	if resolver == nil {
		resolver = resolve.New(acc)
	}
	return &Parser{acc: acc, resolver: resolver}
}

// Parse parses raw as "Book Chapter", "Book Chapter:Verse" or
// "Book Chapter:Start-End". Errors are always *ParseError.
func (p *Parser) Parse(raw string) (Result, error) {
	s := normalize(raw)
	head, last := cutLast(s)
	if s == "" || (head == "" && startsWithDigit(last)) {
		return Result{}, &ParseError{Kind: MalformedReference, Input: raw, Detail: "missing book"}
	}
	if !startsWithDigit(last) {
		return Result{}, p.noTail(raw, s, head)
	}

	res := p.resolver.Resolve(head)
	if !res.Found() {
		return Result{}, &ParseError{Kind: UnknownBook, Input: raw, Entered: head}
	}
	book := res.Canonical

	t, err := tailParser.ParseString("", last)
	if err != nil {
		return Result{}, &ParseError{Kind: MalformedReference, Input: raw, Book: book,
			Detail: "expected chapter[:verse[-verse]]"}
	}

	loc := Locator{Book: book, Chapter: number(t.Chapter)}
	if v := t.Verses; v != nil {
		start := number(v.Start)
		loc.Verses = VerseSpan{Start: start, End: start}
		if v.End != nil {
			if v.End.Verse != nil {
				return Result{}, &ParseError{Kind: MalformedReference, Input: raw, Book: book,
					Detail: "ranges may not cross chapters"}
			}
			loc.Verses.End = number(v.End.Number)
		}
		if loc.Verses.Start > loc.Verses.End {
			return Result{}, &ParseError{Kind: InvalidRange, Input: raw, Book: book,
				Detail: "range end precedes start"}
		}
	}

	if err := Check(p.acc, loc); err != nil {
		err.Input = raw
		return Result{}, err
	}

	return Result{Locator: loc, Match: res.Match, Input: head}, nil
}

// noTail classifies input without a numeric tail: a recognizable book means
// the chapter is missing or not a number, anything else is an unknown book.
func (p *Parser) noTail(raw, s, head string) *ParseError {
	if res := p.resolver.Resolve(s); res.Found() {
		return &ParseError{Kind: MalformedReference, Input: raw, Book: res.Canonical, Detail: "missing chapter"}
	}
	if head != "" {
		if res := p.resolver.Resolve(head); res.Found() {
			return &ParseError{Kind: MalformedReference, Input: raw, Book: res.Canonical, Detail: "chapter must be a number"}
		}
	}
	return &ParseError{Kind: UnknownBook, Input: raw, Entered: s}
}

// Check verifies that loc lies within the bounds of acc. Unknown books report
// a chapter bound of zero.
func Check(acc corpus.Accessor, loc Locator) *ParseError {
	chapters := acc.ChapterCount(loc.Book)
	if loc.Chapter < 1 || loc.Chapter > chapters {
		return &ParseError{Kind: OutOfRange, Input: loc.String(), Book: loc.Book,
			Bound: BoundChapter, Value: loc.Chapter, Max: chapters}
	}
	if loc.Verses.IsZero() {
		return nil
	}

	verses := acc.VerseCount(loc.Book, loc.Chapter)
	for _, v := range []int{loc.Verses.Start, loc.Verses.End} {
		if v < 1 || v > verses {
			return &ParseError{Kind: OutOfRange, Input: loc.String(), Book: loc.Book,
				Bound: BoundVerse, Chapter: loc.Chapter, Value: v, Max: verses}
		}
	}
	return nil
}

// normalize trims raw, removes whitespace around ":" and "-" and drops
// trailing punctuation.
func normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = colonSpace.ReplaceAllString(s, ":")
	s = dashSpace.ReplaceAllString(s, "-")
	return strings.TrimSpace(strings.TrimRight(s, ",.;:"))
}

// cutLast splits s at its last run of whitespace. Book names such as
// "Song of Solomon" keep their internal spacing in head.
func cutLast(s string) (head, last string) {
	i := strings.LastIndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return "", s
	}
	_, width := utf8.DecodeRuneInString(s[i:])
	return strings.TrimSpace(s[:i]), s[i+width:]
}

// number converts a lexed run of digits. Runs too long for an int saturate
// at math.MaxInt, which every bound check rejects as out of range.
func number(digits string) int {
	n, err := strconv.Atoi(digits)
	if err != nil {
		return math.MaxInt
	}
	return n
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
