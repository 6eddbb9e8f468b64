package script

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePauseAnnotations(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantClean string
		wantMarks []PauseMark
	}{
		{
			name:      "no annotations",
			input:     "Breathe in slowly.",
			wantClean: "Breathe in slowly.",
		},
		{
			name:      "simple seconds",
			input:     "Breathe in. (3 sec) Breathe out.",
			wantClean: "Breathe in.  Breathe out.",
			wantMarks: []PauseMark{{Offset: 12, Seconds: 3}},
		},
		{
			name:      "decimal duration",
			input:     "Hold. (2.5 sec)",
			wantClean: "Hold. ",
			wantMarks: []PauseMark{{Offset: 6, Seconds: 2.5}},
		},
		{
			name:      "asterisk wrapped",
			input:     "Relax. *(10 seconds)*",
			wantClean: "Relax. ",
			wantMarks: []PauseMark{{Offset: 7, Seconds: 10}},
		},
		{
			name:      "unit before number",
			input:     "Settle in. (sec 4)",
			wantClean: "Settle in. ",
			wantMarks: []PauseMark{{Offset: 11, Seconds: 4}},
		},
		{
			name:      "short unit",
			input:     "Wait (2s) here.",
			wantClean: "Wait  here.",
			wantMarks: []PauseMark{{Offset: 5, Seconds: 2}},
		},
		{
			name:      "multiple annotations",
			input:     "One. (1 sec) Two. (2 sec)",
			wantClean: "One.  Two. ",
			wantMarks: []PauseMark{{Offset: 5, Seconds: 1}, {Offset: 11, Seconds: 2}},
		},
		{
			name:      "stage direction left alone",
			input:     "Speak (softly) now.",
			wantClean: "Speak (softly) now.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean, marks, err := ParsePauseAnnotations(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantClean, clean)
			assert.Equal(t, tt.wantMarks, marks)
		})
	}
}

func TestParsePauseAnnotationsMalformed(t *testing.T) {
	_, _, err := ParsePauseAnnotations("Breathe in. (1.2.3 sec) Breathe out.")
	require.Error(t, err)

	var malformed *MalformedAnnotationError
	require.True(t, errors.As(err, &malformed))
	assert.Contains(t, malformed.Token, "1.2.3")
}

func TestHasPauseAnnotation(t *testing.T) {
	assert.True(t, HasPauseAnnotation("wait (5 sec) here"))
	assert.True(t, HasPauseAnnotation("*(2 secs)*"))
	assert.False(t, HasPauseAnnotation("no pauses here"))
	assert.False(t, HasPauseAnnotation("(just a note)"))
}

func TestIsPauseAnnotationOnly(t *testing.T) {
	assert.True(t, IsPauseAnnotationOnly("(5 sec)"))
	assert.True(t, IsPauseAnnotationOnly("  *(1.5 seconds)*  "))
	assert.False(t, IsPauseAnnotationOnly("wait (5 sec)"))
	assert.False(t, IsPauseAnnotationOnly("just text"))
	assert.False(t, IsPauseAnnotationOnly(""))
}

func TestEndsWithSentenceTerminator(t *testing.T) {
	assert.True(t, EndsWithSentenceTerminator("Breathe out."))
	assert.True(t, EndsWithSentenceTerminator("Ready?  "))
	assert.True(t, EndsWithSentenceTerminator("शांत रहें।"))
	assert.False(t, EndsWithSentenceTerminator("Opening"))
	assert.False(t, EndsWithSentenceTerminator(""))
}
