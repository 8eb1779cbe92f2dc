package resolve

// Similarity scores how alike two strings are, from 0 (unrelated) to 1
// (identical). Implementations must be deterministic.
type Similarity interface {
	Score(a, b string) float64
}

// SimilarityFunc adapts an ordinary function to the Similarity interface.
type SimilarityFunc func(a, b string) float64

// Score calls f(a, b).
func (f SimilarityFunc) Score(a, b string) float64 {
	return f(a, b)
}

// SequenceRatio returns the Ratcliff/Obershelp ratio 2*M/T, where M is the
// number of characters in matching blocks and T the combined length.
func SequenceRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1
	}
	return 2 * float64(matchingRunes(ra, rb)) / float64(total)
}

// matchingRunes counts characters in the longest common block of a and b plus,
// recursively, those left and right of it.
func matchingRunes(a, b []rune) int {
	i, j, k := longestBlock(a, b)
	if k == 0 {
		return 0
	}
	return k + matchingRunes(a[:i], b[:j]) + matchingRunes(a[i+k:], b[j+k:])
}

// longestBlock finds the longest common substring of a and b. Among equally
// long blocks the one starting earliest in a, then earliest in b, wins.
func longestBlock(a, b []rune) (besti, bestj, bestk int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] != b[j-1] {
				cur[j] = 0
				continue
			}
			cur[j] = prev[j-1] + 1
			k := cur[j]
			si, sj := i-k, j-k
			if k > bestk || (k == bestk && (si < besti || (si == besti && sj < bestj))) {
				besti, bestj, bestk = si, sj, k
			}
		}
		prev, cur = cur, prev
	}
	return besti, bestj, bestk
}

// Levenshtein returns 1 - d/max(len(a), len(b)) where d is the edit distance
// between a and b.
func Levenshtein(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(editDistance(ra, rb))/float64(longest)
}

func editDistance(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
