// Package ref parses scripture references such as "John 3:16" or
// "Psalm 23:1-4" into validated Locators.
package ref

import (
	"strconv"
	"strings"
)

// VerseSpan is an inclusive range of verse numbers within one chapter.
// The zero value means the whole chapter.
type VerseSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// IsZero reports whether the span denotes the whole chapter.
func (s VerseSpan) IsZero() bool {
	return s.Start == 0 && s.End == 0
}

// Locator identifies a whole chapter, a single verse or a verse range.
// Locators are plain values and compare with ==.
type Locator struct {
	Book    string    `json:"book"`
	Chapter int       `json:"chapter"`
	Verses  VerseSpan `json:"verses,omitzero"`
}

// Chapter returns a whole-chapter locator.
func Chapter(book string, chapter int) Locator {
	return Locator{Book: book, Chapter: chapter}
}

// Verse returns a single-verse locator.
func Verse(book string, chapter, verse int) Locator {
	return Locator{Book: book, Chapter: chapter, Verses: VerseSpan{Start: verse, End: verse}}
}

// Range returns a locator for verses start through end.
func Range(book string, chapter, start, end int) Locator {
	return Locator{Book: book, Chapter: chapter, Verses: VerseSpan{Start: start, End: end}}
}

// IsWholeChapter reports whether l names a chapter without a verse clause.
func (l Locator) IsWholeChapter() bool {
	return l.Verses.IsZero()
}

// IsSingle reports whether l names exactly one verse.
func (l Locator) IsSingle() bool {
	return !l.Verses.IsZero() && l.Verses.Start == l.Verses.End
}

// String renders l as "Book C", "Book C:V" or "Book C:S-E".
func (l Locator) String() string {
	var sb strings.Builder
	sb.WriteString(l.Book)
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(l.Chapter))
	if l.Verses.IsZero() {
		return sb.String()
	}
	sb.WriteByte(':')
	sb.WriteString(strconv.Itoa(l.Verses.Start))
	if l.Verses.End != l.Verses.Start {
		sb.WriteByte('-')
		sb.WriteString(strconv.Itoa(l.Verses.End))
	}
	return sb.String()
}
