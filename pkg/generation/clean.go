package generation

import (
	"regexp"
	"strings"
)

var (
	whitespacePattern       = regexp.MustCompile(`\s+`)
	spaceBeforePunctPattern = regexp.MustCompile(`\s+([.,!?;:])`)
	queryLinePattern        = regexp.MustCompile(`(?m)Query:[ \t]*(.*?)[ \t]*$`)
	queryStripPattern       = regexp.MustCompile(`[^\p{L}\p{N}_\s?]`)
)

// CleanOutput flattens model output onto one line: newlines become spaces,
// whitespace runs collapse and no space is left before .,!?;:
func CleanOutput(text string) string {
	text = strings.ReplaceAll(text, "\n", " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = spaceBeforePunctPattern.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}

// CleanResponse is CleanOutput plus removal of quotes wrapping the whole reply.
func CleanResponse(text string) string {
	text = CleanOutput(text)
	for len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			text = strings.TrimSpace(text[1 : len(text)-1])
			continue
		}
		break
	}
	return text
}

// SplitQueries extracts the "Query: ..." lines of model output. Characters
// other than letters, digits, underscores, whitespace and '?' are removed and
// empty queries are dropped.
func SplitQueries(text string) []string {
	out := []string{}
	for _, m := range queryLinePattern.FindAllStringSubmatch(strings.ReplaceAll(text, "\r", ""), -1) {
		q := queryStripPattern.ReplaceAllString(strings.TrimSpace(m[1]), "")
		q = strings.TrimSpace(whitespacePattern.ReplaceAllString(q, " "))
		if q != "" {
			out = append(out, q)
		}
	}
	return out
}
