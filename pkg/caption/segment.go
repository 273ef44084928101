package caption

import (
	"strings"
	"unicode/utf8"
)

// SegmentBudget is the maximum caption segment length in characters.
const SegmentBudget = 120

// Common abbreviations that end with a period but do not end a sentence.
var abbreviations = map[string]struct{}{
	"dr":   {},
	"mr":   {},
	"mrs":  {},
	"ms":   {},
	"prof": {},
	"sr":   {},
	"jr":   {},
	"st":   {},
	"vs":   {},
	"etc":  {},
	"e.g":  {},
	"i.e":  {},
	"approx": {},
	"dept":   {},
}

// Segment splits text into display-sized caption segments.
// Text within the budget is returned whole; longer text is split at
// sentence boundaries, short sentences are merged back up to the budget,
// and anything still oversized is split at word boundaries.
// Empty input yields an empty (nil) slice.
func Segment(text string) []string {
	s := Sanitize(text)
	if s == "" {
		return nil
	}
	if len(s) <= SegmentBudget {
		return []string{s}
	}

	sentences := splitSentences(s)
	merged := mergeShort(sentences, SegmentBudget)

	var out []string
	for _, m := range merged {
		out = append(out, splitWords(m, SegmentBudget)...)
	}
	return out
}

// splitSentences splits at terminal punctuation followed by a space,
// skipping false boundaries after known abbreviations.
func splitSentences(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(s) && s[i+1] != ' ' {
			continue
		}
		if c == '.' && endsWithAbbreviation(s[start:i]) {
			continue
		}
		if sentence := strings.TrimSpace(s[start : i+1]); sentence != "" {
			out = append(out, sentence)
		}
		start = i + 1
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func endsWithAbbreviation(prefix string) bool {
	idx := strings.LastIndexByte(prefix, ' ')
	word := strings.ToLower(prefix[idx+1:])
	_, ok := abbreviations[word]
	return ok
}

// mergeShort joins adjacent sentences while they fit within the budget.
func mergeShort(sentences []string, budget int) []string {
	var out []string
	cur := ""
	for _, s := range sentences {
		switch {
		case cur == "":
			cur = s
		case len(cur)+1+len(s) <= budget:
			cur = cur + " " + s
		default:
			out = append(out, cur)
			cur = s
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

// splitWords splits an oversized sentence at word boundaries.
// A single word longer than the budget is chopped at the budget,
// never inside a multibyte rune.
func splitWords(s string, budget int) []string {
	if len(s) <= budget {
		return []string{s}
	}

	var out []string
	cur := ""
	for _, w := range strings.Fields(s) {
		for len(w) > budget {
			if cur != "" {
				out = append(out, cur)
				cur = ""
			}
			cut := runeCut(w, budget)
			out = append(out, w[:cut])
			w = w[cut:]
		}
		switch {
		case cur == "":
			cur = w
		case len(cur)+1+len(w) <= budget:
			cur = cur + " " + w
		default:
			out = append(out, cur)
			cur = w
		}
	}
	if cur != "" {
		out = append(out, cur)
	}
	return out
}

// runeCut returns the largest byte index <= budget that does not land
// inside a multibyte rune.
func runeCut(s string, budget int) int {
	cut := budget
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		// A single rune wider than the budget; emit it whole.
		_, size := utf8.DecodeRuneInString(s)
		return size
	}
	return cut
}
