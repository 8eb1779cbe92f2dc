// Package corpus provides the read-only book → chapter → verse view that
// reference resolution and navigation are computed against.
//
// A Corpus is built once (usually by Load) and never mutated afterwards, so a
// single instance may be shared by any number of goroutines without locking.
package corpus

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/verbum/core/errors"
)

// Accessor is the query contract the reference parser and navigator depend on.
// Unknown books or chapters report zero counts and ok=false; callers treat
// those identically to out-of-range positions.
type Accessor interface {
	// Books returns canonical book names in canonical order.
	Books() []string
	ChapterCount(book string) int
	VerseCount(book string, chapter int) int
	VerseText(book string, chapter, verse int) (string, bool)
	NextBook(book string) (string, bool)
	PrevBook(book string) (string, bool)
}

// Book is one book of a corpus. Chapters[i][j] holds the text of verse j+1 of
// chapter i+1.
type Book struct {
	Name     string
	Chapters [][]string
}

// Verse is a numbered verse text.
type Verse struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Corpus is an in-memory Accessor.
type Corpus struct {
	title string
	books []Book
	names []string
	index map[string]int
}

// New builds a Corpus from books in canonical order. Every book must have a
// unique, non-empty name and at least one chapter; every chapter must have at
// least one verse.
func New(title string, books []Book) (*Corpus, error) {
	if len(books) == 0 {
		return nil, errors.NewValidation("books", "corpus contains no books")
	}

	c := &Corpus{
		title: title,
		books: make([]Book, len(books)),
		names: make([]string, len(books)),
		index: make(map[string]int, len(books)),
	}

	for i, b := range books {
		name := strings.TrimSpace(b.Name)
		if name == "" {
			return nil, errors.NewValidation("books", fmt.Sprintf("book at position %d has no name", i+1))
		}
		if _, dup := c.index[name]; dup {
			return nil, errors.NewValidation("books", fmt.Sprintf("duplicate book %q", name))
		}
		if len(b.Chapters) == 0 {
			return nil, errors.NewValidation("books", fmt.Sprintf("%s has no chapters", name))
		}
		for ch, verses := range b.Chapters {
			if len(verses) == 0 {
				return nil, errors.NewValidation("books", fmt.Sprintf("%s %d has no verses", name, ch+1))
			}
		}

		c.books[i] = Book{Name: name, Chapters: b.Chapters}
		c.names[i] = name
		c.index[name] = i
	}

	return c, nil
}

// Title returns the dataset title, if one was recorded.
func (c *Corpus) Title() string {
	return c.title
}

// Books returns a copy of the canonical book names.
func (c *Corpus) Books() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Book returns the book with the given canonical name.
func (c *Corpus) Book(name string) (Book, bool) {
	i, ok := c.index[name]
	if !ok {
		return Book{}, false
	}
	return c.books[i], true
}

func (c *Corpus) ChapterCount(book string) int {
	i, ok := c.index[book]
	if !ok {
		return 0
	}
	return len(c.books[i].Chapters)
}

func (c *Corpus) VerseCount(book string, chapter int) int {
	verses, ok := c.chapter(book, chapter)
	if !ok {
		return 0
	}
	return len(verses)
}

func (c *Corpus) VerseText(book string, chapter, verse int) (string, bool) {
	verses, ok := c.chapter(book, chapter)
	if !ok || verse < 1 || verse > len(verses) {
		return "", false
	}
	return verses[verse-1], true
}

func (c *Corpus) NextBook(book string) (string, bool) {
	i, ok := c.index[book]
	if !ok || i+1 >= len(c.names) {
		return "", false
	}
	return c.names[i+1], true
}

func (c *Corpus) PrevBook(book string) (string, bool) {
	i, ok := c.index[book]
	if !ok || i == 0 {
		return "", false
	}
	return c.names[i-1], true
}

// VerseTotal returns the number of verses in the corpus.
func (c *Corpus) VerseTotal() int {
	n := 0
	for _, b := range c.books {
		for _, ch := range b.Chapters {
			n += len(ch)
		}
	}
	return n
}

func (c *Corpus) chapter(book string, chapter int) ([]string, bool) {
	i, ok := c.index[book]
	if !ok || chapter < 1 || chapter > len(c.books[i].Chapters) {
		return nil, false
	}
	return c.books[i].Chapters[chapter-1], true
}

// Walk calls fn for every verse in canonical order until fn returns false.
func Walk(acc Accessor, fn func(book string, chapter, verse int, text string) bool) {
	for _, book := range acc.Books() {
		chapters := acc.ChapterCount(book)
		for ch := 1; ch <= chapters; ch++ {
			verses := acc.VerseCount(book, ch)
			for v := 1; v <= verses; v++ {
				text, _ := acc.VerseText(book, ch, v)
				if !fn(book, ch, v, text) {
					return
				}
			}
		}
	}
}
