package story

import (
	"fmt"
	"regexp"
)

const (
	maxSuffix      = 30
	truncatedWidth = 28
)

var (
	nonWord        = regexp.MustCompile(`[^0-9A-Za-z]`)
	nonBranchChars = regexp.MustCompile(`[^0-9A-Za-z-]`)
)

// SuggestBranchSuffix derives a default branch suffix from a story name:
// every non-alphanumeric becomes "_" and long names are cut to 28
// characters followed by "__".
func SuggestBranchSuffix(name string) string {
	s := nonWord.ReplaceAllString(name, "_")
	if len(s) > maxSuffix {
		s = s[:truncatedWidth] + "__"
	}
	return s
}

// BranchName joins the story id and suffix into a development branch name,
// replacing anything outside [0-9A-Za-z-] with "_".
func BranchName(storyID int64, suffix string) string {
	return nonBranchChars.ReplaceAllString(fmt.Sprintf("%d-%s", storyID, suffix), "_")
}
