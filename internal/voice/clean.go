package voice

import (
	"regexp"
	"strings"
)

// annotation matches environmental tags speech engines emit, such as
// "(keyboard clicking)", "[BLANK_AUDIO]" or "[laughter]".
var annotation = regexp.MustCompile(`[\(\[][A-Za-z_][A-Za-z_\s]*[\)\]]`)

// timestamp matches a leading "[00:00:00.000 --> 00:00:05.000]".
var timestamp = regexp.MustCompile(`^\[[0-9:.\s\->]+\]`)

// hallucinations are whole-utterance outputs produced from silence.
var hallucinations = map[string]bool{
	"...":                     true,
	"you":                     true,
	"thank you.":              true,
	"thank you":               true,
	"thanks for watching!":    true,
	"thank you for watching.": true,
	"bye.":                    true,
	"bye!":                    true,
	"the end.":                true,
}

// Clean strips engine artifacts from a raw transcript and returns ""
// when nothing meaningful is left.
func Clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	s = timestamp.ReplaceAllString(s, "")
	s = annotation.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")

	if hallucinations[strings.ToLower(s)] {
		return ""
	}
	return s
}
