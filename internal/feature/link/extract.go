// Package link turns shared file links into resource codes and resolves the
// codes into viewer metadata.
package link

import "regexp"

// codePattern matches "/s/1" followed by the code; only the run after the
// literal 1 is captured.
var codePattern = regexp.MustCompile(`/s/1([A-Za-z0-9_-]+)`)

// ExtractCode returns the resource code of the first shared-link path found in
// text. ok is false when the text contains no such path, which is an expected
// outcome rather than an error.
func ExtractCode(text string) (code string, ok bool) {
	match := codePattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return match[1], true
}
