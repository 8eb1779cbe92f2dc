package ref

import "github.com/FocuswithJustin/verbum/core/corpus"

// Passage returns the verses loc names: the whole chapter, a range or a
// single verse.
func Passage(acc corpus.Accessor, loc Locator) ([]corpus.Verse, error) {
	if err := Check(acc, loc); err != nil {
		return nil, err
	}

	start, end := loc.Verses.Start, loc.Verses.End
	if loc.Verses.IsZero() {
		start, end = 1, acc.VerseCount(loc.Book, loc.Chapter)
	}

	verses := make([]corpus.Verse, 0, end-start+1)
	for v := start; v <= end; v++ {
		text, ok := acc.VerseText(loc.Book, loc.Chapter, v)
		if !ok {
			return nil, &ParseError{Kind: OutOfRange, Input: loc.String(), Book: loc.Book,
				Bound: BoundVerse, Value: v, Max: acc.VerseCount(loc.Book, loc.Chapter)}
		}
		verses = append(verses, corpus.Verse{Number: v, Text: text})
	}
	return verses, nil
}
