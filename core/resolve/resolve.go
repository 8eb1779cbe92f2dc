// Package resolve maps free-form book names ("jn", "genesiss", "song of
// solomon") onto the canonical book names of a corpus.
//
// Resolution runs three passes: an exact case-insensitive comparison, an
// abbreviation table, and finally a fuzzy comparison against every canonical
// name. The first pass that produces a candidate wins, with one exception: an
// input that is a single edit away from exactly one book is read as a typo of
// that book, even when it is also an abbreviation of another ("ob" is Job,
// not Obadiah).
package resolve

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/FocuswithJustin/verbum/core/corpus"
)

// DefaultThreshold is the minimum fuzzy score accepted as a suggestion.
const DefaultThreshold = 0.6

// MatchKind describes how a book name was resolved.
type MatchKind int

const (
	// MatchNone means no book cleared the threshold.
	MatchNone MatchKind = iota
	// MatchExact is a case-insensitive whole-name match.
	MatchExact
	// MatchAlias is a known abbreviation such as "jn" or "1cor".
	MatchAlias
	// MatchFuzzy is the best-scoring similar name.
	MatchFuzzy
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchAlias:
		return "alias"
	case MatchFuzzy:
		return "fuzzy"
	}
	return "none"
}

// Result is the outcome of a single resolution.
type Result struct {
	// Canonical is the resolved book name, empty when Match is MatchNone.
	Canonical string
	Match     MatchKind
	// Score is the similarity of the input to Canonical (1 for exact and
	// alias matches).
	Score float64
}

// Found reports whether a book was resolved.
func (r Result) Found() bool {
	return r.Match != MatchNone
}

// Corrected reports whether the input differed from the canonical name.
func (r Result) Corrected() bool {
	return r.Match == MatchAlias || r.Match == MatchFuzzy
}

// Resolver resolves book names against a fixed list of canonical names.
// It is safe for concurrent use once constructed; Threshold and Similarity
// must not be changed while it is in use.
type Resolver struct {
	// Threshold is the minimum accepted fuzzy score.
	Threshold float64
	// Similarity scores fuzzy candidates.
	Similarity Similarity

	books   []string
	folded  []string
	runes   [][]rune
	aliases map[string]string
}

// New returns a Resolver over the books of acc using SequenceRatio and
// DefaultThreshold.
func New(acc corpus.Accessor) *Resolver {
	books := acc.Books()
	r := &Resolver{
		Threshold:  DefaultThreshold,
		Similarity: SimilarityFunc(SequenceRatio),
		books:      books,
		folded:     make([]string, len(books)),
		runes:      make([][]rune, len(books)),
		aliases:    make(map[string]string),
	}
	for i, b := range books {
		r.folded[i] = fold(b)
		r.runes[i] = []rune(r.folded[i])
	}
	r.buildAliases()
	return r
}

// buildAliases maps abbreviations to the corpus book they name. An alias is
// dropped when its target is not in the corpus.
func (r *Resolver) buildAliases() {
	present := make(map[string]string, len(r.books))
	for i, b := range r.books {
		present[compact(r.folded[i])] = b
	}

	for _, cb := range corpus.Canon {
		target, ok := present[compact(fold(cb.Name))]
		if !ok {
			continue
		}
		keys := append([]string{cb.OSIS, cb.Name}, cb.Aliases...)
		for _, k := range keys {
			k = compact(fold(k))
			if _, taken := r.aliases[k]; !taken {
				r.aliases[k] = target
			}
		}
	}
}

// Books returns the canonical names the resolver matches against.
func (r *Resolver) Books() []string {
	out := make([]string, len(r.books))
	copy(out, r.books)
	return out
}

// Resolve maps raw onto a canonical book name. It never fails; an empty or
// unrecognizable input yields a Result with Match == MatchNone.
func (r *Resolver) Resolve(raw string) Result {
	in := fold(raw)
	if in == "" {
		return Result{}
	}

	for i, f := range r.folded {
		if f == in {
			return Result{Canonical: r.books[i], Match: MatchExact, Score: 1}
		}
	}

	sim := r.Similarity
	if sim == nil {
		sim = SimilarityFunc(SequenceRatio)
	}

	rin := []rune(in)
	typoOf := -1
	for i, rb := range r.runes {
		if withinOneEdit(rin, rb) {
			if typoOf >= 0 {
				typoOf = -1
				break
			}
			typoOf = i
		}
	}

	if target, ok := r.aliases[compact(in)]; ok {
		if typoOf < 0 || r.books[typoOf] == target {
			return Result{Canonical: target, Match: MatchAlias, Score: 1}
		}
	}

	if typoOf >= 0 {
		if s := sim.Score(in, r.folded[typoOf]); s >= r.Threshold {
			return Result{Canonical: r.books[typoOf], Match: MatchFuzzy, Score: s}
		}
	}

	best, bestScore, bestDist := -1, 0.0, 0
	for i, f := range r.folded {
		s := sim.Score(in, f)
		switch {
		case s > bestScore:
			best, bestScore, bestDist = i, s, -1
		case s == bestScore && best >= 0:
			// Equal scores go to the closer spelling, then to canonical order.
			if bestDist < 0 {
				bestDist = editDistance(rin, r.runes[best])
			}
			if d := editDistance(rin, r.runes[i]); d < bestDist {
				best, bestDist = i, d
			}
		}
	}
	if best < 0 || bestScore < r.Threshold {
		return Result{}
	}
	return Result{Canonical: r.books[best], Match: MatchFuzzy, Score: bestScore}
}

// withinOneEdit reports whether a and b differ by at most one insertion,
// deletion or substitution.
func withinOneEdit(a, b []rune) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	if len(b)-len(a) > 1 {
		return false
	}
	i := 0
	for i < len(a) && a[i] == b[i] {
		i++
	}
	if i == len(a) {
		return true
	}
	if len(a) == len(b) {
		return string(a[i+1:]) == string(b[i+1:])
	}
	return string(a[i:]) == string(b[i+1:])
}

// fold trims, collapses internal whitespace and case-folds s. A new Caser is
// used per call because Casers are not safe for concurrent use.
func fold(s string) string {
	return cases.Fold().String(strings.Join(strings.Fields(s), " "))
}

// compact removes spaces and periods so "1 Cor." and "1cor" compare equal.
func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '.' {
			return -1
		}
		return r
	}, s)
}
