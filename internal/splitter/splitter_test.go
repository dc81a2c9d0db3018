package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "multiple sentences",
			text: "Hello there! Welcome to our chat. I'm here to help you.",
			want: []string{"Hello there!", "Welcome to our chat.", "I'm here to help you."},
		},
		{
			name: "single sentence",
			text: "How lovely.",
			want: []string{"How lovely."},
		},
		{
			name: "no terminal punctuation",
			text: "just some words",
			want: []string{"just some words"},
		},
		{
			name: "question and exclamation",
			text: "What brings you here today? Tell me everything!",
			want: []string{"What brings you here today?", "Tell me everything!"},
		},
		{
			name: "punctuation without trailing space is not a boundary",
			text: "v1.2 is out. Try it!",
			want: []string{"v1.2 is out.", "Try it!"},
		},
		{
			name: "repeated punctuation stays attached",
			text: "Really?! Yes. Really.",
			want: []string{"Really?!", "Yes.", "Really."},
		},
		{
			name: "extra whitespace between sentences",
			text: "One.   \n Two.",
			want: []string{"One.", "Two."},
		},
		{
			name: "leading and trailing whitespace trimmed",
			text: "  Hi there. Bye.  ",
			want: []string{"Hi there.", "Bye."},
		},
		{
			name: "whitespace only returns original",
			text: "   ",
			want: []string{"   "},
		},
		{
			name: "empty string returns original",
			text: "",
			want: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.text))
		})
	}
}

func TestSentencesRestartable(t *testing.T) {
	seq := Sentences("One. Two. Three.")

	first := make([]string, 0, 3)
	for s := range seq {
		first = append(first, s)
	}
	second := make([]string, 0, 3)
	for s := range seq {
		second = append(second, s)
	}

	require.Equal(t, first, second)
	assert.Len(t, first, 3)
}

func TestSentencesEarlyStop(t *testing.T) {
	var got []string
	for s := range Sentences("One. Two. Three.") {
		got = append(got, s)
		break
	}
	assert.Equal(t, []string{"One."}, got)
}

func TestSplitPreservesContent(t *testing.T) {
	texts := []string{
		"Thanks for sharing that. I will take it in consideration and find the best solution for you.",
		"That's interesting! Tell me more about it.",
		"I see what you mean. Have you considered trying a different approach?",
		"one fragment only",
	}

	strip := func(s string) string {
		return strings.Join(strings.Fields(s), "")
	}

	for _, text := range texts {
		joined := strings.Join(Split(text), " ")
		assert.Equal(t, strip(text), strip(joined), "content lost for %q", text)
	}
}
