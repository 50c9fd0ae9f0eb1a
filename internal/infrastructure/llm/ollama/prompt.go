package ollama

import "unicode/utf8"

const defaultMaxPromptChars = 4000

func buildEnrichmentPrompt(text string, maxChars int) string {
	return `You are a reading-list assistant that describes web pages.
Return strict JSON object with keys:
summary (string, 1-3 sentences), contentType (string, e.g. "Article", "Tutorial", "News", "Research Paper"),
author (string, empty if unknown), publishDate (string YYYY-MM-DD, empty if unknown), primaryCategory (string).
No markdown, no extra keys.

Document:
` + truncateRunes(text, maxChars)
}

// truncateRunes cuts s to at most limit runes without splitting a
// multi-byte character.
func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for idx := range s {
		if count == limit {
			return s[:idx]
		}
		count++
	}
	return s
}
