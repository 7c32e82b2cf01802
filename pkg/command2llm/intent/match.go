// Package intent implements the interceptor plugin that watches every
// inbound chat message, decides whether the user implicitly asked for
// another plugin's command, and executes that command by forging a
// synthetic event through the host.
//
// match.go implements the fuzzy command matcher: the first whitespace
// token of a message is scored against every known command name with a
// longest-matching-blocks similarity ratio in [0,1].
package intent

import "strings"

// Match is a fuzzy-match result: a command name and its similarity ratio.
type Match struct {
	Command string
	Ratio   float64
}

// BestMatch extracts the first whitespace-delimited token of message and
// returns the command with the highest similarity ratio against it.
// Ties keep the first command in input order. Returns ok=false when the
// message has no tokens or the command list is empty.
func BestMatch(message string, commands []string) (Match, bool) {
	fields := strings.Fields(message)
	if len(fields) == 0 || len(commands) == 0 {
		return Match{}, false
	}

	candidate := fields[0]

	best := Match{Command: commands[0], Ratio: Ratio(candidate, commands[0])}
	for _, cmd := range commands[1:] {
		if r := Ratio(candidate, cmd); r > best.Ratio {
			best = Match{Command: cmd, Ratio: r}
		}
	}
	return best, true
}

// Ratio computes the similarity of two strings as 2*M/T, where M is the
// total size of all matching blocks (longest-common-block recursion) and
// T is the combined length. Operates on runes so multi-byte scripts score
// the same as ASCII. Identical strings score 1.0; two empty strings are
// considered identical.
func Ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(matchingSize(ra, rb)) / float64(total)
}

// matchingSize sums the sizes of all matching blocks between a and b:
// find the longest common block, then recurse on the pieces to its left
// and right (iteratively, with an explicit stack).
func matchingSize(a, b []rune) int {
	// b2j maps each rune in b to its positions, ascending.
	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	type span struct{ alo, ahi, blo, bhi int }
	stack := []span{{0, len(a), 0, len(b)}}

	total := 0
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		i, j, k := longestMatch(a, s.alo, s.ahi, s.blo, s.bhi, b2j)
		if k == 0 {
			continue
		}
		total += k
		stack = append(stack,
			span{s.alo, i, s.blo, j},
			span{i + k, s.ahi, j + k, s.bhi},
		)
	}
	return total
}

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] with
// alo <= i < i+k <= ahi and blo <= j < j+k <= bhi. Among equally long
// blocks the earliest in a (then in b) wins, which keeps results stable.
func longestMatch(a []rune, alo, ahi, blo, bhi int, b2j map[rune][]int) (besti, bestj, size int) {
	besti, bestj = alo, blo

	// j2len[j] is the length of the matching block ending at a[i-1], b[j].
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newj2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > size {
				besti, bestj, size = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, size
}
