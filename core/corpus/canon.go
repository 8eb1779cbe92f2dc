package corpus

import "strings"

// CanonBook describes one book of the 66-book Protestant canon.
type CanonBook struct {
	// OSIS is the OSIS book identifier (e.g., "Gen", "1Cor").
	OSIS string
	// Name is the display name used by KJV-style datasets.
	Name string
	// Aliases are lowercase abbreviations accepted for the book.
	Aliases []string
}

// Canon lists the books of the Protestant canon in canonical order.
var Canon = []CanonBook{
	{"Gen", "Genesis", []string{"gen", "ge", "gn"}},
	{"Exod", "Exodus", []string{"exod", "exo", "ex"}},
	{"Lev", "Leviticus", []string{"lev", "le", "lv"}},
	{"Num", "Numbers", []string{"num", "nu", "nm"}},
	{"Deut", "Deuteronomy", []string{"deut", "deu", "dt"}},
	{"Josh", "Joshua", []string{"josh", "jos"}},
	{"Judg", "Judges", []string{"judg", "jdg"}},
	{"Ruth", "Ruth", []string{"rth", "ru"}},
	{"1Sam", "1 Samuel", []string{"1sam", "1sa", "1 sam"}},
	{"2Sam", "2 Samuel", []string{"2sam", "2sa", "2 sam"}},
	{"1Kgs", "1 Kings", []string{"1kgs", "1ki", "1 kgs"}},
	{"2Kgs", "2 Kings", []string{"2kgs", "2ki", "2 kgs"}},
	{"1Chr", "1 Chronicles", []string{"1chr", "1ch", "1 chr"}},
	{"2Chr", "2 Chronicles", []string{"2chr", "2ch", "2 chr"}},
	{"Ezra", "Ezra", []string{"ezr"}},
	{"Neh", "Nehemiah", []string{"neh", "ne"}},
	{"Esth", "Esther", []string{"esth", "est"}},
	{"Job", "Job", []string{"jb"}},
	{"Ps", "Psalms", []string{"ps", "psa", "psalm", "pss"}},
	{"Prov", "Proverbs", []string{"prov", "pro", "prv"}},
	{"Eccl", "Ecclesiastes", []string{"eccl", "ecc", "qoh"}},
	{"Song", "Song of Solomon", []string{"song", "sos", "song of songs", "canticles"}},
	{"Isa", "Isaiah", []string{"isa", "is"}},
	{"Jer", "Jeremiah", []string{"jer", "je"}},
	{"Lam", "Lamentations", []string{"lam", "la"}},
	{"Ezek", "Ezekiel", []string{"ezek", "eze", "ezk"}},
	{"Dan", "Daniel", []string{"dan", "da", "dn"}},
	{"Hos", "Hosea", []string{"hos", "ho"}},
	{"Joel", "Joel", []string{"jl"}},
	{"Amos", "Amos", []string{"am"}},
	{"Obad", "Obadiah", []string{"obad", "oba", "ob"}},
	{"Jonah", "Jonah", []string{"jon", "jnh"}},
	{"Mic", "Micah", []string{"mic", "mi"}},
	{"Nah", "Nahum", []string{"nah", "na"}},
	{"Hab", "Habakkuk", []string{"hab", "hb"}},
	{"Zeph", "Zephaniah", []string{"zeph", "zep"}},
	{"Hag", "Haggai", []string{"hag", "hg"}},
	{"Zech", "Zechariah", []string{"zech", "zec"}},
	{"Mal", "Malachi", []string{"mal", "ml"}},
	{"Matt", "Matthew", []string{"matt", "mat", "mt"}},
	{"Mark", "Mark", []string{"mrk", "mk", "mr"}},
	{"Luke", "Luke", []string{"luk", "lk"}},
	{"John", "John", []string{"joh", "jn", "jhn"}},
	{"Acts", "Acts", []string{"act", "ac"}},
	{"Rom", "Romans", []string{"rom", "ro", "rm"}},
	{"1Cor", "1 Corinthians", []string{"1cor", "1co", "1 cor"}},
	{"2Cor", "2 Corinthians", []string{"2cor", "2co", "2 cor"}},
	{"Gal", "Galatians", []string{"gal", "ga"}},
	{"Eph", "Ephesians", []string{"eph", "ephes"}},
	{"Phil", "Philippians", []string{"phil", "php"}},
	{"Col", "Colossians", []string{"col"}},
	{"1Thess", "1 Thessalonians", []string{"1thess", "1th", "1 thess"}},
	{"2Thess", "2 Thessalonians", []string{"2thess", "2th", "2 thess"}},
	{"1Tim", "1 Timothy", []string{"1tim", "1ti", "1 tim"}},
	{"2Tim", "2 Timothy", []string{"2tim", "2ti", "2 tim"}},
	{"Titus", "Titus", []string{"tit"}},
	{"Phlm", "Philemon", []string{"phlm", "phm"}},
	{"Heb", "Hebrews", []string{"heb"}},
	{"Jas", "James", []string{"jas", "jm"}},
	{"1Pet", "1 Peter", []string{"1pet", "1pe", "1 pet"}},
	{"2Pet", "2 Peter", []string{"2pet", "2pe", "2 pet"}},
	{"1John", "1 John", []string{"1john", "1jn", "1 jn"}},
	{"2John", "2 John", []string{"2john", "2jn", "2 jn"}},
	{"3John", "3 John", []string{"3john", "3jn", "3 jn"}},
	{"Jude", "Jude", []string{"jud"}},
	{"Rev", "Revelation", []string{"rev", "re", "rv", "revelations"}},
}

// osisIndex maps lowercase OSIS IDs to their canon entry.
var osisIndex = func() map[string]int {
	m := make(map[string]int, len(Canon))
	for i, b := range Canon {
		m[strings.ToLower(b.OSIS)] = i
	}
	return m
}()

// NameForOSIS returns the display name for an OSIS book ID.
// Unknown IDs are returned unchanged.
func NameForOSIS(osisID string) string {
	if i, ok := osisIndex[strings.ToLower(osisID)]; ok {
		return Canon[i].Name
	}
	return osisID
}
