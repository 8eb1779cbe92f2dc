package corpus

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/verbum/core/errors"
)

const flatJSON = `{
	"Genesis": {
		"1": ["Genesis 1:1\tIn the beginning God created the heaven and the earth.", "Genesis 1:2\tAnd the earth was without form."],
		"2": ["Genesis 2:1 Thus the heavens and the earth were finished."]
	},
	"Exodus": {
		"1": ["Now these are the names."]
	},
	"Abdias": {
		"1": ["The vision of Obadiah."]
	}
}`

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name  string
		books []Book
	}{
		{"no books", nil},
		{"empty name", []Book{{Name: " ", Chapters: [][]string{{"a"}}}}},
		{"duplicate", []Book{{Name: "John", Chapters: [][]string{{"a"}}}, {Name: "John", Chapters: [][]string{{"b"}}}}},
		{"no chapters", []Book{{Name: "John"}}},
		{"empty chapter", []Book{{Name: "John", Chapters: [][]string{{"a"}, {}}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("", tt.books)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestCorpusQueries(t *testing.T) {
	c, err := New("Test", []Book{
		{Name: "Genesis", Chapters: [][]string{{"g1", "g2"}, {"g3"}}},
		{Name: "Exodus", Chapters: [][]string{{"e1"}}},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if got := c.ChapterCount("Genesis"); got != 2 {
		t.Errorf("ChapterCount(Genesis) = %d, want 2", got)
	}
	if got := c.ChapterCount("Leviticus"); got != 0 {
		t.Errorf("ChapterCount(Leviticus) = %d, want 0", got)
	}
	if got := c.VerseCount("Genesis", 1); got != 2 {
		t.Errorf("VerseCount(Genesis, 1) = %d, want 2", got)
	}
	if got := c.VerseCount("Genesis", 3); got != 0 {
		t.Errorf("VerseCount(Genesis, 3) = %d, want 0", got)
	}
	if text, ok := c.VerseText("Genesis", 2, 1); !ok || text != "g3" {
		t.Errorf("VerseText(Genesis 2:1) = %q, %v", text, ok)
	}
	if _, ok := c.VerseText("Genesis", 1, 0); ok {
		t.Error("VerseText(Genesis 1:0) should not exist")
	}
	if next, ok := c.NextBook("Genesis"); !ok || next != "Exodus" {
		t.Errorf("NextBook(Genesis) = %q, %v", next, ok)
	}
	if _, ok := c.NextBook("Exodus"); ok {
		t.Error("NextBook(Exodus) should not exist")
	}
	if _, ok := c.PrevBook("Genesis"); ok {
		t.Error("PrevBook(Genesis) should not exist")
	}
	if got := c.VerseTotal(); got != 4 {
		t.Errorf("VerseTotal = %d, want 4", got)
	}

	books := c.Books()
	books[0] = "Changed"
	if c.Books()[0] != "Genesis" {
		t.Error("Books must return a copy")
	}
}

func TestStripVersePrefix(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"Genesis 1:1\tIn the beginning", "In the beginning"},
		{"Genesis 1:1 In the beginning", "In the beginning"},
		{"GENESIS 1:1 In the beginning", "In the beginning"},
		{"  In the beginning  ", "In the beginning"},
		{"Genesis 1:2 wrong verse", "Genesis 1:2 wrong verse"},
	}

	for _, tt := range tests {
		if got := StripVersePrefix("Genesis", 1, 1, tt.line); got != tt.want {
			t.Errorf("StripVersePrefix(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestDecodeFlatJSONKeepsKeyOrder(t *testing.T) {
	c, err := DecodeJSON(strings.NewReader(flatJSON))
	if err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}

	want := []string{"Genesis", "Exodus", "Abdias"}
	got := c.Books()
	if len(got) != len(want) {
		t.Fatalf("Books() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Books()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if text, _ := c.VerseText("Genesis", 1, 1); text != "In the beginning God created the heaven and the earth." {
		t.Errorf("tab prefix not stripped: %q", text)
	}
	if text, _ := c.VerseText("Genesis", 2, 1); text != "Thus the heavens and the earth were finished." {
		t.Errorf("label prefix not stripped: %q", text)
	}
}

func TestDecodeFlatJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not an object", `["Genesis"]`},
		{"bad chapter key", `{"Genesis": {"one": ["a"]}}`},
		{"gap in chapters", `{"Genesis": {"1": ["a"], "3": ["b"]}}`},
		{"truncated", `{"Genesis": {"1": ["a"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeJSON(strings.NewReader(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDecodeJuniperJSON(t *testing.T) {
	data := `{
		"meta": {"id": "kjv", "title": "King James Version"},
		"books": [
			{"id": "Exod", "name": "Exodus", "order": 2, "chapters": [
				{"number": 1, "verses": [{"verse": 1, "text": "Now these are the names."}]}
			]},
			{"id": "Gen", "order": 1, "chapters": [
				{"number": 2, "verses": [{"verse": 1, "text": "Thus the heavens."}]},
				{"number": 1, "verses": [
					{"verse": 2, "text": "And the earth."},
					{"verse": 1, "text": " In the beginning. "}
				]}
			]}
		]
	}`

	c, err := DecodeJSON(strings.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if c.Title() != "King James Version" {
		t.Errorf("Title = %q", c.Title())
	}
	if books := c.Books(); books[0] != "Genesis" || books[1] != "Exodus" {
		t.Errorf("Books() = %v, want [Genesis Exodus]", books)
	}
	if text, _ := c.VerseText("Genesis", 1, 1); text != "In the beginning." {
		t.Errorf("VerseText(Genesis 1:1) = %q", text)
	}
	if got := c.ChapterCount("Genesis"); got != 2 {
		t.Errorf("ChapterCount(Genesis) = %d, want 2", got)
	}
}

func TestDecodeJuniperJSONMissingVerse(t *testing.T) {
	data := `{"meta": {}, "books": [{"name": "Jude", "order": 1, "chapters": [
		{"number": 1, "verses": [{"verse": 1, "text": "a"}, {"verse": 3, "text": "c"}]}
	]}]}`
	if _, err := DecodeJSON(strings.NewReader(data)); err == nil {
		t.Error("expected error for missing verse 2")
	}
}

const containerOSIS = `<?xml version="1.0" encoding="UTF-8"?>
<osis xmlns="http://www.bibletechnologies.net/2003/OSIS/namespace">
  <osisText osisIDWork="KJV">
    <header><work osisWork="KJV"><title>King James Version</title></work></header>
    <div type="book" osisID="Gen">
      <chapter osisID="Gen.1">
        <verse osisID="Gen.1.1">In the beginning God created
          the heaven and the earth.</verse>
        <verse osisID="Gen.1.2">And the earth was without form<note>Or, empty</note>.</verse>
      </chapter>
    </div>
    <div type="book" osisID="Ps">
      <chapter osisID="Ps.1">
        <verse osisID="Ps.1.1">Blessed is the man.</verse>
      </chapter>
    </div>
  </osisText>
</osis>`

const milestoneOSIS = `<?xml version="1.0" encoding="UTF-8"?>
<osis>
  <osisText>
    <div type="book" osisID="John">
      <chapter sID="John.1" osisID="John.1"/>
      <verse sID="John.1.1" osisID="John.1.1"/>In the beginning was the Word,<verse eID="John.1.1"/>
      <verse sID="John.1.2" osisID="John.1.2"/>The same was <w lemma="x">in</w> the beginning.<verse eID="John.1.2"/>
      <chapter eID="John.1"/>
      <chapter sID="John.2" osisID="John.2"/>
      <verse sID="John.2.1" osisID="John.2.1"/>And the third day.<verse eID="John.2.1"/>
      <chapter eID="John.2"/>
    </div>
  </osisText>
</osis>`

func TestDecodeOSISContainer(t *testing.T) {
	c, err := DecodeOSIS(strings.NewReader(containerOSIS))
	if err != nil {
		t.Fatalf("DecodeOSIS failed: %v", err)
	}
	if c.Title() != "King James Version" {
		t.Errorf("Title = %q", c.Title())
	}
	if books := c.Books(); len(books) != 2 || books[0] != "Genesis" || books[1] != "Psalms" {
		t.Errorf("Books() = %v", books)
	}
	if text, _ := c.VerseText("Genesis", 1, 1); text != "In the beginning God created the heaven and the earth." {
		t.Errorf("whitespace not collapsed: %q", text)
	}
	if text, _ := c.VerseText("Genesis", 1, 2); text != "And the earth was without form." {
		t.Errorf("note not dropped: %q", text)
	}
}

func TestDecodeOSISMilestones(t *testing.T) {
	c, err := DecodeOSIS(strings.NewReader(milestoneOSIS))
	if err != nil {
		t.Fatalf("DecodeOSIS failed: %v", err)
	}
	if got := c.ChapterCount("John"); got != 2 {
		t.Errorf("ChapterCount(John) = %d, want 2", got)
	}
	if text, _ := c.VerseText("John", 1, 2); text != "The same was in the beginning." {
		t.Errorf("VerseText(John 1:2) = %q", text)
	}
	if text, _ := c.VerseText("John", 2, 1); text != "And the third day." {
		t.Errorf("VerseText(John 2:1) = %q", text)
	}
}

func TestDecodeOSISErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no books", `<osis><osisText></osisText></osis>`},
		{"bad id", `<osis><div type="book" osisID="Gen"><verse osisID="Gen.one.1">x</verse></div></osis>`},
		{"gap", `<osis><div type="book" osisID="Gen"><verse osisID="Gen.1.1">x</verse><verse osisID="Gen.1.3">y</verse></div></osis>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOSIS(strings.NewReader(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			var pe *errors.ParseError
			if !errors.As(err, &pe) {
				t.Errorf("expected ParseError, got %T: %v", err, err)
			}
		})
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path       string
		format     Format
		compressed bool
		wantErr    bool
	}{
		{"kjv.json", FormatJSON, false, false},
		{"/data/KJV.JSON.xz", FormatJSON, true, false},
		{"kjv.osis.xml", FormatOSIS, false, false},
		{"kjv.osis", FormatOSIS, false, false},
		{"kjv.xml.xz", FormatOSIS, true, false},
		{"kjv.db", FormatSQLite, false, false},
		{"kjv.sqlite3", FormatSQLite, false, false},
		{"kjv.db.xz", "", false, true},
		{"kjv.txt", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			format, compressed, err := DetectFormat(tt.path)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrUnsupported) {
					t.Errorf("expected ErrUnsupported, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if format != tt.format || compressed != tt.compressed {
				t.Errorf("DetectFormat = (%s, %v), want (%s, %v)", format, compressed, tt.format, tt.compressed)
			}
		})
	}
}

func writeXZ(t *testing.T, path, data string) {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("xz.NewWriter failed: %v", err)
	}
	if _, err := io.WriteString(w, data); err != nil {
		t.Fatalf("xz write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("xz close failed: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestLoadCompressed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kjv.json.xz")
	writeXZ(t, path, flatJSON)

	c, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := c.ChapterCount("Genesis"); got != 2 {
		t.Errorf("ChapterCount(Genesis) = %d, want 2", got)
	}
}

func TestLoadDecompressFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kjv.json.xz")
	writeXZ(t, path, flatJSON)

	orig := xzNewReader
	xzNewReader = func(io.Reader) (*xz.Reader, error) {
		return nil, io.ErrUnexpectedEOF
	}
	defer func() { xzNewReader = orig }()

	_, err := Load(context.Background(), path)
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) || ioErr.Operation != "decompress" {
		t.Fatalf("expected decompress IOError, got %v", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected wrapped io.ErrUnexpectedEOF, got %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	var nf *errors.NotFoundError
	if !errors.As(err, &nf) || nf.Resource != "dataset" {
		t.Errorf("expected dataset NotFoundError, got %v", err)
	}
}

func TestLoadParseErrorCarriesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte(`{"Genesis": {"x": []}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(context.Background(), path)
	var pe *errors.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if pe.Path != path {
		t.Errorf("ParseError.Path = %q, want %q", pe.Path, path)
	}
}

func TestNameForOSIS(t *testing.T) {
	tests := map[string]string{
		"Gen":  "Genesis",
		"ps":   "Psalms",
		"1Cor": "1 Corinthians",
		"Rev":  "Revelation",
		"Zzz":  "Zzz",
	}
	for id, want := range tests {
		if got := NameForOSIS(id); got != want {
			t.Errorf("NameForOSIS(%q) = %q, want %q", id, got, want)
		}
	}
}

func TestSaveSQLiteRemovesPartialFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "partial.db")

	// Bypasses New so the books table rejects the second insert.
	dup := &Corpus{books: []Book{
		{Name: "Genesis", Chapters: [][]string{{"In the beginning."}}},
		{Name: "Genesis", Chapters: [][]string{{"Again."}}},
	}}
	if err := SaveSQLite(ctx, dup, path); err == nil {
		t.Fatal("expected duplicate book insert to fail")
	}
	for _, p := range []string{path, path + "-journal", path + "-wal"} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s left behind after failed import (stat err %v)", filepath.Base(p), err)
		}
	}

	good, err := New("", []Book{{Name: "Genesis", Chapters: [][]string{{"In the beginning."}}}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := SaveSQLite(ctx, good, path); err != nil {
		t.Fatalf("retry after failed import: %v", err)
	}
	got, err := LoadSQLite(ctx, path)
	if err != nil {
		t.Fatalf("LoadSQLite failed: %v", err)
	}
	if got.VerseTotal() != 1 {
		t.Errorf("VerseTotal = %d, want 1", got.VerseTotal())
	}
}
