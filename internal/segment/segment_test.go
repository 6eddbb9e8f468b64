package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDefaults = Defaults{SentencePause: 1.5, CommaPause: 0.5}

func TestFallback(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Clause
	}{
		{
			name:  "annotation overrides sentence default",
			input: "Breathe in slowly. (3 sec) Breathe out.",
			want: []Clause{
				{Text: "Breathe in slowly.", PauseAfter: 3, Order: 0},
				{Text: "Breathe out.", PauseAfter: 1.5, Order: 1},
			},
		},
		{
			name:  "plain sentences",
			input: "Notice your breath. Let it slow.",
			want: []Clause{
				{Text: "Notice your breath.", PauseAfter: 1.5, Order: 0},
				{Text: "Let it slow.", PauseAfter: 1.5, Order: 1},
			},
		},
		{
			name:  "annotation in open text splits a clause",
			input: "Hold it (2 sec) and release.",
			want: []Clause{
				{Text: "Hold it", PauseAfter: 2, Order: 0},
				{Text: "and release.", PauseAfter: 1.5, Order: 1},
			},
		},
		{
			name:  "trailing annotation",
			input: "Relax. (4 sec)",
			want: []Clause{
				{Text: "Relax.", PauseAfter: 4, Order: 0},
			},
		},
		{
			name:  "unterminated tail has no pause",
			input: "Breathe in. just be",
			want: []Clause{
				{Text: "Breathe in.", PauseAfter: 1.5, Order: 0},
				{Text: "just be", PauseAfter: 0, Order: 1},
			},
		},
		{
			name:  "trailing comma gets the comma default",
			input: "Take a breath,",
			want: []Clause{
				{Text: "Take a breath,", PauseAfter: 0.5, Order: 0},
			},
		},
		{
			name:  "mark splitting at a comma wins over the comma default",
			input: "Gently now, (1 sec) let go.",
			want: []Clause{
				{Text: "Gently now,", PauseAfter: 1, Order: 0},
				{Text: "let go.", PauseAfter: 1.5, Order: 1},
			},
		},
		{
			name:  "adjacent annotations keep the last one",
			input: "One. (1 sec) (2 sec) Two.",
			want: []Clause{
				{Text: "One.", PauseAfter: 2, Order: 0},
				{Text: "Two.", PauseAfter: 1.5, Order: 1},
			},
		},
		{
			name:  "terminator runs collapse to one boundary",
			input: "Really?! Yes.",
			want: []Clause{
				{Text: "Really?!", PauseAfter: 1.5, Order: 0},
				{Text: "Yes.", PauseAfter: 1.5, Order: 1},
			},
		},
		{
			name:  "devanagari danda terminates",
			input: "शांत रहें। साँस लें।",
			want: []Clause{
				{Text: "शांत रहें।", PauseAfter: 1.5, Order: 0},
				{Text: "साँस लें।", PauseAfter: 1.5, Order: 1},
			},
		},
		{
			name:  "empty text",
			input: "   ",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Fallback(tt.input, testDefaults)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFallbackMalformedAnnotation(t *testing.T) {
	_, err := Fallback("Breathe. (1.2.3 sec)", testDefaults)
	assert.Error(t, err)
}
