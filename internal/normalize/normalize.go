// Package normalize performs deterministic query cleanup ahead of intent
// classification and embedding: lowercasing, whitespace collapse, duplicate
// word removal, and an ordered table of literal corrections for spoken-number
// artifacts and domain phrasing that survives kiosk-side speech-to-text.
package normalize

import "strings"

// correction is one literal substring replacement. Order matters: earlier
// rules may produce text later rules match on.
type correction struct {
	from string
	to   string
}

var corrections = []correction{
	{"twelve noon", "12 noon"},
	{"seven am", "7 am"},
	{"seven a m", "7 am"},
	{"six pm", "6 pm"},
	{"six p m", "6 pm"},
	{"nine am", "9 am"},
	{"nine pm", "9 pm"},
	{"eight am", "8 am"},
	{"eight pm", "8 pm"},
	// Domain phrasing canonicalizations: align spoken and translated variants
	// with how knowledge entries are titled.
	{"where is food being served", "where is food served"},
	{"where is the food being served", "where is food served"},
	{"where do we eat", "where is food served"},
	{"where can i eat", "where is food served"},
	{"where is food served here", "where is food served"},
	{"how do i register", "how do i register for the shelter"},
	{"how do i sign up", "how do i register for the shelter"},
	{"where do i sign up", "how do i register for the shelter"},
	{"where is registration", "where do i register"},
	{"where is medical", "where is the medical area"},
	{"where is the clinic", "where is the medical area"},
	{"i need medical", "i need medical help"},
	{"i need a doctor", "i need medical help"},
	{"where can i sleep", "where is the sleeping area"},
	{"where do we sleep", "where is the sleeping area"},
	{"where are the beds", "where is the sleeping area"},
}

// Query lowercases, collapses whitespace and immediately repeated words, then
// applies the correction table. It is idempotent and never fails; empty or
// whitespace-only input returns the empty string. The language parameter is
// accepted for call-site symmetry with the rest of the pipeline; corrections
// apply to the English-normalized transcript regardless.
func Query(text, language string) string {
	_ = language

	if strings.TrimSpace(text) == "" {
		return ""
	}

	words := strings.Fields(strings.ToLower(text))
	words = collapseRepeats(words)
	result := strings.Join(words, " ")
	for _, c := range corrections {
		// Expansion rules keep their trigger as a prefix of the replacement;
		// skip them when the expanded form is already present so repeated
		// normalization is a no-op.
		if strings.Contains(c.to, c.from) && strings.Contains(result, c.to) {
			continue
		}
		result = strings.ReplaceAll(result, c.from, c.to)
	}
	return strings.TrimSpace(strings.Join(strings.Fields(result), " "))
}

// collapseRepeats drops words that immediately repeat the previous word,
// so "where where is the the bus" becomes "where is the bus".
func collapseRepeats(words []string) []string {
	if len(words) < 2 {
		return words
	}
	out := words[:1]
	for _, w := range words[1:] {
		if w == out[len(out)-1] {
			continue
		}
		out = append(out, w)
	}
	return out
}
