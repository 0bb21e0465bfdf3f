package chat

import "regexp"

var whitespace = regexp.MustCompile(`\s+`)

// CleanText collapses runs of whitespace to single spaces before the
// text is used in prompts or transcripts.
func CleanText(text string) string {
	return whitespace.ReplaceAllString(text, " ")
}
