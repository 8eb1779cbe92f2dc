// Package navigate steps from one verse to the next or previous verse,
// crossing chapter and book boundaries.
package navigate

import (
	"errors"

	"github.com/FocuswithJustin/verbum/core/corpus"
	"github.com/FocuswithJustin/verbum/core/ref"
)

// Navigation errors.
var (
	// ErrAtStart means there is no verse before the first verse of the first book.
	ErrAtStart = errors.New("at the beginning of the corpus")
	// ErrAtEnd means there is no verse after the last verse of the last book.
	ErrAtEnd = errors.New("at the end of the corpus")
	// ErrNoHistory is returned by session owners asked to navigate before any
	// reference was loaded. Advance never returns it.
	ErrNoHistory = errors.New("no prior passage")
)

// Direction selects which neighbour Advance returns.
type Direction int

const (
	Next Direction = iota
	Prev
)

func (d Direction) String() string {
	if d == Prev {
		return "prev"
	}
	return "next"
}

// Advance returns the single verse adjacent to loc in direction dir.
//
// Moving forward starts from the last verse loc covers (the final verse of
// the chapter for a whole-chapter locator); moving back starts from the first.
// loc must already be valid for acc.
func Advance(acc corpus.Accessor, loc ref.Locator, dir Direction) (ref.Locator, error) {
	if dir == Prev {
		return prev(acc, loc)
	}
	return next(acc, loc)
}

func next(acc corpus.Accessor, loc ref.Locator) (ref.Locator, error) {
	book, chapter := loc.Book, loc.Chapter
	verses := acc.VerseCount(book, chapter)

	anchor := loc.Verses.End
	if loc.IsWholeChapter() {
		anchor = verses
	}

	if anchor+1 <= verses {
		return ref.Verse(book, chapter, anchor+1), nil
	}
	if chapter+1 <= acc.ChapterCount(book) {
		return ref.Verse(book, chapter+1, 1), nil
	}
	if nb, ok := acc.NextBook(book); ok {
		return ref.Verse(nb, 1, 1), nil
	}
	return ref.Locator{}, ErrAtEnd
}

func prev(acc corpus.Accessor, loc ref.Locator) (ref.Locator, error) {
	book, chapter := loc.Book, loc.Chapter

	anchor := loc.Verses.Start
	if loc.IsWholeChapter() {
		anchor = 1
	}

	if anchor > 1 {
		return ref.Verse(book, chapter, anchor-1), nil
	}
	if chapter > 1 {
		return ref.Verse(book, chapter-1, acc.VerseCount(book, chapter-1)), nil
	}
	if pb, ok := acc.PrevBook(book); ok {
		last := acc.ChapterCount(pb)
		return ref.Verse(pb, last, acc.VerseCount(pb, last)), nil
	}
	return ref.Locator{}, ErrAtStart
}
