package corpus

import (
	"encoding/hex"
	"strconv"

	"github.com/zeebo/blake3"
)

// Fingerprint returns the hex BLAKE3 digest of the corpus content in canonical
// order. Two datasets with the same books, numbering and text share a
// fingerprint regardless of their on-disk format.
func Fingerprint(acc Accessor) string {
	h := blake3.New()
	var num []byte

	Walk(acc, func(book string, chapter, verse int, text string) bool {
		h.WriteString(book)
		h.Write([]byte{0})
		num = strconv.AppendInt(num[:0], int64(chapter), 10)
		num = append(num, ':')
		num = strconv.AppendInt(num, int64(verse), 10)
		num = append(num, 0)
		h.Write(num)
		h.WriteString(text)
		h.Write([]byte{'\n'})
		return true
	})

	return hex.EncodeToString(h.Sum(nil))
}
