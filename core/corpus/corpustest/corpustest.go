// Package corpustest provides a small deterministic corpus for tests.
package corpustest

import (
	"fmt"

	"github.com/FocuswithJustin/verbum/core/corpus"
)

// Shape lists the books of the fixture and the verse count of each chapter.
var Shape = []struct {
	Name   string
	Verses []int
}{
	{"Genesis", []int{31, 25, 24}},
	{"Exodus", []int{22, 25}},
	{"Psalms", psalms()},
	{"Song of Solomon", []int{17, 17}},
	{"John", []int{51, 25, 36, 54}},
	{"1 Corinthians", []int{31, 16}},
	{"1 John", []int{10, 29}},
	{"Jude", []int{25}},
	{"Revelation", revelation()},
}

// Known verse texts; everything else is "Text of Book c:v.".
var known = map[string]string{
	"Genesis 1:1":      "In the beginning God created the heaven and the earth.",
	"Genesis 1:3":      "And God said, Let there be light: and there was light.",
	"John 1:1":         "In the beginning was the Word, and the Word was with God, and the Word was God.",
	"John 3:16":        "For God so loved the world, that he gave his only begotten Son.",
	"Psalms 23:1":      "The LORD is my shepherd; I shall not want.",
	"Revelation 22:21": "The grace of our Lord Jesus Christ be with you all. Amen.",
}

func psalms() []int {
	v := make([]int, 150)
	for i := range v {
		v[i] = 6
	}
	return v
}

func revelation() []int {
	v := make([]int, 22)
	for i := range v {
		v[i] = 20
	}
	v[21] = 21
	return v
}

// Text returns the fixture text of a verse.
func Text(book string, chapter, verse int) string {
	key := fmt.Sprintf("%s %d:%d", book, chapter, verse)
	if t, ok := known[key]; ok {
		return t
	}
	return "Text of " + key + "."
}

// Books returns the fixture books.
func Books() []corpus.Book {
	books := make([]corpus.Book, len(Shape))
	for i, s := range Shape {
		b := corpus.Book{Name: s.Name, Chapters: make([][]string, len(s.Verses))}
		for ch, n := range s.Verses {
			verses := make([]string, n)
			for v := range verses {
				verses[v] = Text(s.Name, ch+1, v+1)
			}
			b.Chapters[ch] = verses
		}
		books[i] = b
	}
	return books
}

// New returns the fixture corpus. It panics if the fixture is invalid.
func New() *corpus.Corpus {
	c, err := corpus.New("Fixture Bible", Books())
	if err != nil {
		panic(err)
	}
	return c
}
