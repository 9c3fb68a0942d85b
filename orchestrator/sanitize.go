package orchestrator

import (
	"regexp"
	"strings"
)

// injectionPatterns match known prompt-injection phrasings. A matching line
// is dropped from user-supplied text before it is embedded in any prompt.
// Stripping is silent; only fully-injected input becomes a validation error.
var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(?:all\s+|any\s+)?(?:previous|prior|above|earlier)\s+(?:instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)disregard\s+(?:all\s+|any\s+)?(?:previous|prior|above|earlier)\s+(?:instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)forget\s+(?:all\s+|any\s+)?(?:previous|prior|your)\s+(?:instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(?:a|an|in)\s`),
	regexp.MustCompile(`(?i)reveal\s+(?:your\s+)?(?:system\s+prompt|instructions)`),
	// Role spoofing: a line that opens with a chat-role prefix.
	regexp.MustCompile(`(?i)^\s*(?:system|assistant|developer)\s*:`),
	// Japanese equivalents.
	regexp.MustCompile(`(?:これまで|以前|上記|前)の(?:指示|命令|プロンプト)を(?:無視|忘れて)`),
	regexp.MustCompile(`システムプロンプトを(?:表示|教えて|開示)`),
}

// SanitizePrompt removes prompt-injection lines from user text. The second
// return value reports whether anything was stripped.
func SanitizePrompt(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	stripped := false
	for _, line := range lines {
		if matchesInjection(line) {
			stripped = true
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n")), stripped
}

func matchesInjection(line string) bool {
	for _, p := range injectionPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}
