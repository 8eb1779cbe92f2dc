package corpus

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/verbum/core/errors"
)

// Pre-compiled expressions. local-name() keeps them independent of the OSIS
// namespace declaration.
var (
	osisBookExpr  = xpath.MustCompile(`//*[local-name()='div' and @type='book']`)
	osisTitleExpr = xpath.MustCompile(`//*[local-name()='work']/*[local-name()='title']`)
)

// DecodeOSIS reads an OSIS XML document. Both container verses
// (<verse osisID="Gen.1.1">text</verse>) and milestone verses
// (<verse sID="..." osisID="..."/>text<verse eID="..."/>) are supported.
// Notes are dropped.
func DecodeOSIS(r io.Reader) (*Corpus, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, &errors.ParseError{Format: "OSIS", Message: err.Error(), Err: err}
	}

	bookNodes := xmlquery.QuerySelectorAll(doc, osisBookExpr)
	if len(bookNodes) == 0 {
		return nil, errors.NewParse("OSIS", "", "no book divisions found")
	}

	var title string
	if t := xmlquery.QuerySelector(doc, osisTitleExpr); t != nil {
		title = strings.TrimSpace(t.InnerText())
	}

	books := make([]Book, 0, len(bookNodes))
	for _, node := range bookNodes {
		osisID := node.SelectAttr("osisID")
		b := &osisBuilder{verses: make(map[int]map[int]string)}
		b.walk(node)
		b.flush()
		if b.err != nil {
			return nil, b.err
		}

		book, err := b.book(NameForOSIS(osisID))
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}

	return New(title, books)
}

type osisBuilder struct {
	open   string
	buf    strings.Builder
	verses map[int]map[int]string
	err    error
}

func (b *osisBuilder) walk(n *xmlquery.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if b.open != "" {
				b.buf.WriteString(c.Data)
			}
		case xmlquery.ElementNode:
			if c.Data == "note" {
				continue
			}
			if c.Data == "verse" {
				b.verse(c)
				continue
			}
			b.walk(c)
		}
	}
}

func (b *osisBuilder) verse(n *xmlquery.Node) {
	switch {
	case n.SelectAttr("sID") != "":
		b.flush()
		b.open = n.SelectAttr("osisID")
		if b.open == "" {
			b.open = n.SelectAttr("sID")
		}
	case n.SelectAttr("eID") != "":
		b.flush()
	case n.SelectAttr("osisID") != "":
		b.flush()
		b.open = n.SelectAttr("osisID")
		b.walk(n)
		b.flush()
	}
}

func (b *osisBuilder) flush() {
	if b.open == "" {
		return
	}
	id := strings.Fields(b.open)[0]
	text := strings.Join(strings.Fields(b.buf.String()), " ")
	b.open = ""
	b.buf.Reset()

	chapter, verse, err := splitOSISRef(id)
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return
	}
	if b.verses[chapter] == nil {
		b.verses[chapter] = make(map[int]string)
	}
	b.verses[chapter][verse] = text
}

func (b *osisBuilder) book(name string) (Book, error) {
	book := Book{Name: name, Chapters: make([][]string, len(b.verses))}
	for ch := 1; ch <= len(b.verses); ch++ {
		verses, ok := b.verses[ch]
		if !ok {
			return Book{}, errors.NewParse("OSIS", "", fmt.Sprintf("%s: chapter %d missing", name, ch))
		}
		texts := make([]string, len(verses))
		for v := 1; v <= len(verses); v++ {
			text, ok := verses[v]
			if !ok {
				return Book{}, errors.NewParse("OSIS", "", fmt.Sprintf("%s %d: verse %d missing", name, ch, v))
			}
			texts[v-1] = text
		}
		book.Chapters[ch-1] = texts
	}
	return book, nil
}

// splitOSISRef extracts chapter and verse from an ID like "Gen.1.1".
func splitOSISRef(id string) (int, int, error) {
	parts := strings.Split(id, ".")
	if len(parts) < 3 {
		return 0, 0, errors.NewParse("OSIS", "", fmt.Sprintf("verse osisID %q is not Book.Chapter.Verse", id))
	}
	chapter, err1 := strconv.Atoi(parts[len(parts)-2])
	verse, err2 := strconv.Atoi(parts[len(parts)-1])
	if err1 != nil || err2 != nil || chapter < 1 || verse < 1 {
		return 0, 0, errors.NewParse("OSIS", "", fmt.Sprintf("verse osisID %q has invalid numbers", id))
	}
	return chapter, verse, nil
}
