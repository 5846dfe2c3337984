package utils

import "strings"

// NormalizeQuestion folds case, surrounding quotes and whitespace runs so two
// renderings of the same question compare equal.
func NormalizeQuestion(question string) string {
	question = strings.Trim(strings.TrimSpace(question), "\"'`")
	return strings.ToLower(strings.Join(strings.Fields(question), " "))
}

// CleanGeneratedText trims whitespace and a single pair of wrapping quotes from model output.
func CleanGeneratedText(text string) string {
	text = strings.TrimSpace(text)
	if len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			text = strings.TrimSpace(text[1 : len(text)-1])
		}
	}
	return text
}
