package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "whitespace only", input: "   \t ", want: ""},
		{name: "lowercase and collapse", input: "  Where   IS the BUS ", want: "where is the bus"},
		{name: "duplicate words", input: "where where is the the bus", want: "where is the bus"},
		{name: "spoken time", input: "lunch at twelve noon", want: "lunch at 12 noon"},
		{name: "stt time artifact", input: "breakfast at seven a m", want: "breakfast at 7 am"},
		{name: "phrase canonicalization", input: "where do we eat", want: "where is food served"},
		{name: "medical phrasing", input: "I need a doctor", want: "i need medical help"},
		{name: "sleeping phrasing", input: "Where are the beds", want: "where is the sleeping area"},
		{name: "register expansion", input: "how do i register", want: "how do i register for the shelter"},
		{name: "already expanded register", input: "how do i register for the shelter", want: "how do i register for the shelter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Query(tt.input, "en"))
		})
	}
}

func TestQueryIdempotent(t *testing.T) {
	inputs := []string{
		"  Where   IS the BUS ",
		"where where is food being served",
		"how do i register",
		"I need a doctor at seven a m",
		"may pagkain ba",
	}

	for _, input := range inputs {
		once := Query(input, "en")
		assert.Equal(t, once, Query(once, "en"), "normalize must be idempotent for %q", input)
	}
}

func TestQueryCaseAndWhitespaceInsensitive(t *testing.T) {
	assert.Equal(t, Query("where is the bus", "en"), Query("  Where   IS the BUS ", "en"))
}
