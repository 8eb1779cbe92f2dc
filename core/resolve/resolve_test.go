package resolve

import (
	"math"
	"strings"
	"testing"

	"github.com/FocuswithJustin/verbum/core/corpus"
	"github.com/FocuswithJustin/verbum/core/corpus/corpustest"
)

func TestResolveExactAnyCasing(t *testing.T) {
	r := New(corpustest.New())

	for _, book := range r.Books() {
		for _, input := range []string{book, strings.ToUpper(book), strings.ToLower(book), "  " + book + " "} {
			got := r.Resolve(input)
			if got.Canonical != book || got.Match != MatchExact {
				t.Errorf("Resolve(%q) = %+v, want exact %q", input, got, book)
			}
			if got.Corrected() {
				t.Errorf("Resolve(%q) should not be corrected", input)
			}
		}
	}
}

func TestResolveMultiWordCollapsesWhitespace(t *testing.T) {
	r := New(corpustest.New())

	got := r.Resolve("song   of\tsolomon")
	if got.Canonical != "Song of Solomon" || got.Match != MatchExact {
		t.Errorf("Resolve = %+v, want exact Song of Solomon", got)
	}
}

func TestResolvePartialTokenIsNotExact(t *testing.T) {
	r := New(corpustest.New())

	got := r.Resolve("Song")
	if got.Match == MatchExact {
		t.Errorf("Resolve(Song) must not be exact, got %+v", got)
	}
	if got.Canonical != "Song of Solomon" {
		t.Errorf("Resolve(Song) = %q, want Song of Solomon", got.Canonical)
	}
}

func TestResolveAliases(t *testing.T) {
	r := New(corpustest.New())

	tests := []struct {
		input string
		want  string
	}{
		{"Jn", "John"},
		{"gen", "Genesis"},
		{"Gen.", "Genesis"},
		{"1cor", "1 Corinthians"},
		{"1 Cor", "1 Corinthians"},
		{"ps", "Psalms"},
		{"Psalm", "Psalms"},
		{"rev", "Revelation"},
		{"1jn", "1 John"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := r.Resolve(tt.input)
			if got.Canonical != tt.want || got.Match != MatchAlias {
				t.Errorf("Resolve(%q) = %+v, want alias %q", tt.input, got, tt.want)
			}
			if !got.Corrected() {
				t.Error("alias match should be flagged corrected")
			}
		})
	}
}

func TestResolveAliasRequiresBookInCorpus(t *testing.T) {
	c, err := corpus.New("", []corpus.Book{{Name: "Genesis", Chapters: [][]string{{"a"}}}})
	if err != nil {
		t.Fatal(err)
	}
	r := New(c)

	if got := r.Resolve("jn"); got.Canonical == "John" {
		t.Errorf("alias resolved to a book missing from the corpus: %+v", got)
	}
}

func TestResolveAliasSpaceInsensitiveTarget(t *testing.T) {
	c, err := corpus.New("", []corpus.Book{{Name: "1Corinthians", Chapters: [][]string{{"a"}}}})
	if err != nil {
		t.Fatal(err)
	}
	r := New(c)

	if got := r.Resolve("1 cor"); got.Canonical != "1Corinthians" || got.Match != MatchAlias {
		t.Errorf("Resolve(1 cor) = %+v, want alias 1Corinthians", got)
	}
}

// canonCorpus holds every book of the 66-book canon, one verse each.
func canonCorpus(t *testing.T) *corpus.Corpus {
	t.Helper()
	books := make([]corpus.Book, len(corpus.Canon))
	for i, cb := range corpus.Canon {
		books[i] = corpus.Book{Name: cb.Name, Chapters: [][]string{{cb.Name}}}
	}
	c, err := corpus.New("canon", books)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// edits returns every string one insertion, deletion or substitution away
// from s, drawing new characters from alphabet.
func edits(s, alphabet string) []string {
	rs := []rune(s)
	var out []string
	for i := 0; i <= len(rs); i++ {
		head, tail := string(rs[:i]), string(rs[i:])
		for _, c := range alphabet {
			out = append(out, head+string(c)+tail)
		}
		if i < len(rs) {
			out = append(out, head+string(rs[i+1:]))
			for _, c := range alphabet {
				if c != rs[i] {
					out = append(out, head+string(c)+string(rs[i+1:]))
				}
			}
		}
	}
	return out
}

func TestResolveSingleTypos(t *testing.T) {
	if testing.Short() {
		t.Skip("exhaustive typo sweep")
	}
	r := New(canonCorpus(t))
	folded := make([][]rune, len(r.books))
	for i, b := range r.books {
		folded[i] = []rune(fold(b))
	}

	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789 "
	checked := 0
	for _, book := range r.Books() {
		for _, typo := range edits(fold(book), alphabet) {
			in := []rune(fold(typo))

			// Only typos that can be read one way: a single book within
			// one edit, similar enough to clear the threshold.
			near, nearest := 0, ""
			for i, f := range folded {
				if editDistance(in, f) <= 1 {
					near, nearest = near+1, r.books[i]
				}
			}
			if near != 1 || nearest != book || SequenceRatio(string(in), fold(book)) < DefaultThreshold {
				continue
			}

			checked++
			got := r.Resolve(typo)
			if got.Canonical != book {
				t.Errorf("Resolve(%q) = %q (%s), want %q", typo, got.Canonical, got.Match, book)
				continue
			}
			if string(in) != fold(book) && !got.Corrected() {
				t.Errorf("Resolve(%q) should be flagged corrected", typo)
			}
		}
	}
	if checked == 0 {
		t.Fatal("no typos checked")
	}
}

func TestResolveTypoBeatsOtherBooksAlias(t *testing.T) {
	r := New(canonCorpus(t))

	tests := []struct {
		input string
		want  string
		match MatchKind
	}{
		{"ob", "Job", MatchFuzzy},
		{"jo n", "John", MatchFuzzy},
		{"jon", "Jonah", MatchAlias}, // one edit from both Job and John
		{"joh", "John", MatchAlias},
		{"jnh", "Jonah", MatchAlias},
		{"oba", "Obadiah", MatchAlias},
		{"joha", "John", MatchFuzzy},
		{"joln", "John", MatchFuzzy},
		{"juge", "Jude", MatchFuzzy},
		{"aots", "Acts", MatchFuzzy},
		{"21samuel", "2 Samuel", MatchFuzzy},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := r.Resolve(tt.input)
			if got.Canonical != tt.want || got.Match != tt.match {
				t.Errorf("Resolve(%q) = %+v, want %s %q", tt.input, got, tt.match, tt.want)
			}
		})
	}
}

func TestWithinOneEdit(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"john", "john", true},
		{"jon", "john", true},
		{"johnx", "john", true},
		{"jahn", "john", true},
		{"jhon", "john", false},
		{"jo", "john", false},
		{"", "a", true},
		{"", "ab", false},
	}

	for _, tt := range tests {
		if got := withinOneEdit([]rune(tt.a), []rune(tt.b)); got != tt.want {
			t.Errorf("withinOneEdit(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if got := withinOneEdit([]rune(tt.b), []rune(tt.a)); got != tt.want {
			t.Errorf("withinOneEdit(%q, %q) = %v, want %v", tt.b, tt.a, got, tt.want)
		}
	}
}

func TestResolveFuzzy(t *testing.T) {
	r := New(corpustest.New())

	tests := []struct {
		input string
		want  string
	}{
		{"genesiss", "Genesis"},
		{"Exdus", "Exodus"},
		{"Revelaton", "Revelation"},
		{"Jhon", "John"},
		{"1 Corinthains", "1 Corinthians"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := r.Resolve(tt.input)
			if got.Canonical != tt.want || got.Match != MatchFuzzy {
				t.Errorf("Resolve(%q) = %+v, want fuzzy %q", tt.input, got, tt.want)
			}
			if got.Score < DefaultThreshold || got.Score > 1 {
				t.Errorf("score %v out of range", got.Score)
			}
		})
	}
}

func TestResolveNoMatch(t *testing.T) {
	r := New(corpustest.New())

	for _, input := range []string{"", "   ", "Hezekiah", "xyzzy", "12345", "::::"} {
		got := r.Resolve(input)
		if got.Found() || got.Canonical != "" {
			t.Errorf("Resolve(%q) = %+v, want no match", input, got)
		}
	}
}

func TestResolveTieGoesToEarliestBook(t *testing.T) {
	c, err := corpus.New("", []corpus.Book{
		{Name: "Abca", Chapters: [][]string{{"a"}}},
		{Name: "Abcb", Chapters: [][]string{{"b"}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	r := New(c)

	for i := 0; i < 10; i++ {
		got := r.Resolve("abcc")
		if got.Canonical != "Abca" {
			t.Fatalf("Resolve(abcc) = %q, want Abca", got.Canonical)
		}
	}
}

func TestResolveCustomSimilarity(t *testing.T) {
	r := New(corpustest.New())
	r.Similarity = SimilarityFunc(Levenshtein)
	r.Threshold = 0.8

	if got := r.Resolve("Genesix"); got.Canonical != "Genesis" {
		t.Errorf("Resolve(Genesix) with Levenshtein = %+v", got)
	}
	if got := r.Resolve("Gnss"); got.Found() {
		t.Errorf("Resolve(Gnss) should fall below 0.8, got %+v", got)
	}
}

func TestSequenceRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "", 0},
		{"john", "john", 1},
		{"abcd", "bcde", 0.75},
		{"jn", "john", 2 * 2.0 / 6},
		{"jhon", "john", 0.75},
	}

	for _, tt := range tests {
		if got := SequenceRatio(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("SequenceRatio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "", 0},
		{"kitten", "sitting", 1 - 3.0/7},
		{"genesis", "genesiss", 1 - 1.0/8},
		{"jn", "john", 0.5},
	}

	for _, tt := range tests {
		if got := Levenshtein(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Levenshtein(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestMatchKindString(t *testing.T) {
	kinds := map[MatchKind]string{
		MatchNone:  "none",
		MatchExact: "exact",
		MatchAlias: "alias",
		MatchFuzzy: "fuzzy",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("%d.String() = %q, want %q", k, k.String(), want)
		}
	}
}
