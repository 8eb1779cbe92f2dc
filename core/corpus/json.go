package corpus

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/verbum/core/errors"
)

// juniperBible is the JuniperBible JSON export layout.
type juniperBible struct {
	Meta struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	} `json:"meta"`
	Books []juniperBook `json:"books"`
}

type juniperBook struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Order    int              `json:"order"`
	Chapters []juniperChapter `json:"chapters"`
}

type juniperChapter struct {
	Number int            `json:"number"`
	Verses []juniperVerse `json:"verses"`
}

type juniperVerse struct {
	Verse int    `json:"verse"`
	Text  string `json:"text"`
}

// DecodeJSON reads either the flat {"Book": {"1": ["..."]}} layout or the
// JuniperBible export layout. In the flat layout book order follows the
// order of keys in the document.
func DecodeJSON(r io.Reader) (*Corpus, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIO("read", "", err)
	}

	var jb juniperBible
	if err := json.Unmarshal(data, &jb); err == nil && len(jb.Books) > 0 {
		return decodeJuniper(&jb)
	}

	return decodeFlatJSON(data)
}

func decodeFlatJSON(data []byte) (*Corpus, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, &errors.ParseError{Format: "JSON", Message: err.Error(), Err: err}
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.NewParse("JSON", "", "expected an object of books")
	}

	var books []Book
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &errors.ParseError{Format: "JSON", Message: err.Error(), Err: err}
		}
		name, _ := keyTok.(string)

		var chapters map[string][]string
		if err := dec.Decode(&chapters); err != nil {
			return nil, &errors.ParseError{Format: "JSON", Message: fmt.Sprintf("book %q: %v", name, err), Err: err}
		}

		book, err := flatBook(name, chapters)
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	if _, err := dec.Token(); err != nil {
		return nil, &errors.ParseError{Format: "JSON", Message: err.Error(), Err: err}
	}

	return New("", books)
}

func flatBook(name string, chapters map[string][]string) (Book, error) {
	numbered := make(map[int][]string, len(chapters))
	for key, lines := range chapters {
		n, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || n < 1 {
			return Book{}, errors.NewParse("JSON", "", fmt.Sprintf("book %q: invalid chapter key %q", name, key))
		}
		numbered[n] = lines
	}

	book := Book{Name: name, Chapters: make([][]string, len(numbered))}
	for ch := 1; ch <= len(numbered); ch++ {
		lines, ok := numbered[ch]
		if !ok {
			return Book{}, errors.NewParse("JSON", "", fmt.Sprintf("book %q: chapter %d missing", name, ch))
		}
		verses := make([]string, len(lines))
		for i, line := range lines {
			verses[i] = StripVersePrefix(name, ch, i+1, line)
		}
		book.Chapters[ch-1] = verses
	}
	return book, nil
}

// StripVersePrefix removes a leading "Book c:v" label from a verse line, as
// found in KJV-style datasets ("Genesis 1:1\tIn the beginning...").
func StripVersePrefix(book string, chapter, verse int, line string) string {
	if i := strings.IndexByte(line, '\t'); i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	prefix := fmt.Sprintf("%s %d:%d ", book, chapter, verse)
	if len(line) >= len(prefix) && strings.EqualFold(line[:len(prefix)], prefix) {
		return strings.TrimSpace(line[len(prefix):])
	}
	return strings.TrimSpace(line)
}

func decodeJuniper(jb *juniperBible) (*Corpus, error) {
	src := make([]juniperBook, len(jb.Books))
	copy(src, jb.Books)
	sort.SliceStable(src, func(i, j int) bool { return src[i].Order < src[j].Order })

	books := make([]Book, 0, len(src))
	for _, jbk := range src {
		name := jbk.Name
		if name == "" {
			name = NameForOSIS(jbk.ID)
		}

		byNumber := make(map[int]juniperChapter, len(jbk.Chapters))
		for _, ch := range jbk.Chapters {
			byNumber[ch.Number] = ch
		}

		book := Book{Name: name, Chapters: make([][]string, len(byNumber))}
		for n := 1; n <= len(byNumber); n++ {
			ch, ok := byNumber[n]
			if !ok {
				return nil, errors.NewParse("JSON", "", fmt.Sprintf("book %q: chapter %d missing", name, n))
			}
			verses, err := juniperVerses(name, ch)
			if err != nil {
				return nil, err
			}
			book.Chapters[n-1] = verses
		}
		books = append(books, book)
	}

	return New(jb.Meta.Title, books)
}

func juniperVerses(book string, ch juniperChapter) ([]string, error) {
	byNumber := make(map[int]string, len(ch.Verses))
	for _, v := range ch.Verses {
		byNumber[v.Verse] = strings.TrimSpace(v.Text)
	}
	verses := make([]string, len(byNumber))
	for n := 1; n <= len(byNumber); n++ {
		text, ok := byNumber[n]
		if !ok {
			return nil, errors.NewParse("JSON", "", fmt.Sprintf("%s %d: verse %d missing", book, ch.Number, n))
		}
		verses[n-1] = text
	}
	return verses, nil
}
