// Package extract recovers structured data from unreliable LLM text.
//
// Models asked to return JSON routinely wrap it in prose, markdown code
// fences, or an accidental second layer of braces, or truncate it outright.
// This package is the single shared implementation of the layered fallback
// chain; every call site reports which tier produced its result so tests
// and logs can tell a clean parse from a heuristic rescue.
//
// The chain, in order:
//  1. trim and strip code fences
//  2. strip one layer of doubled braces ({{...}} -> {...})
//  3. collect balanced-brace candidates, longest first, and try to parse
//  4. labeled-line extraction from the original raw text
//  5. fence/brace-stripped prose
//  6. the raw input, unmodified - the chain never returns nothing
package extract

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Tier identifies which fallback level produced a result.
type Tier int

const (
	// TierJSON means a JSON candidate parsed cleanly.
	TierJSON Tier = iota
	// TierLabeled means a labeled-line pattern matched in the raw text.
	TierLabeled
	// TierProse means brace/fence-stripped prose was used.
	TierProse
	// TierRaw means the raw input was returned unmodified.
	TierRaw
)

// String returns the tier name for logs and test assertions.
func (t Tier) String() string {
	switch t {
	case TierJSON:
		return "json"
	case TierLabeled:
		return "labeled"
	case TierProse:
		return "prose"
	case TierRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// minFallbackLen is the minimum useful length for heuristic extractions.
// Shorter captures are more likely to be commentary than content.
const minFallbackLen = 100

var (
	fenceRe     = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(.*?)```")
	fenceMarkRe = regexp.MustCompile("^```(?:json|JSON)?\\s*|```\\s*$")
)

// Object runs the JSON tiers of the chain (1-3) and unmarshals the winning
// candidate into v. It reports whether a candidate parsed; the labeled and
// prose tiers are shape-specific and live with their callers.
func Object(raw string, v any) bool {
	candidate, ok := JSONCandidate(raw)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(candidate), v) == nil
}

// JSONCandidate extracts the most plausible JSON object substring from raw
// text and reports whether it parses as JSON. Among multiple balanced-brace
// candidates the longest wins: a truncated prefix of the real object is
// always shorter than the complete one.
func JSONCandidate(raw string) (string, bool) {
	text := stripFences(strings.TrimSpace(raw))
	text = stripDoubleBraces(text)

	// The cleaned text itself may already be the object.
	if isJSONObject(text) {
		return text, true
	}

	for _, cand := range braceCandidates(text) {
		cand = stripDoubleBraces(strings.TrimSpace(cand))
		if isJSONObject(cand) {
			return cand, true
		}
	}
	return "", false
}

// LabeledBlock searches raw text for a "label:" line (or inline "label: text")
// and returns the text that follows, up to the next blank-line-separated
// label or end of input. Empty result means no label matched or the capture
// was below minLen.
func LabeledBlock(raw string, labels []string, minLen int) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		for _, label := range labels {
			rest, ok := matchLabel(line, label)
			if !ok {
				continue
			}
			var sb strings.Builder
			if rest != "" {
				sb.WriteString(rest)
			}
			for j := i + 1; j < len(lines); j++ {
				l := lines[j]
				if isLabelLine(l) {
					break
				}
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(l)
			}
			captured := strings.TrimSpace(sb.String())
			if len(captured) >= minLen {
				return captured
			}
		}
	}
	return ""
}

// Prose strips all brace-delimited fragments and code fences from raw text
// and returns the remaining prose, or "" when what remains is below minLen.
func Prose(raw string, minLen int) string {
	text := fenceRe.ReplaceAllString(raw, "")
	text = fenceMarkRe.ReplaceAllString(text, "")

	// Drop balanced-brace fragments.
	for _, cand := range braceCandidates(text) {
		text = strings.Replace(text, cand, "", 1)
	}
	text = strings.TrimSpace(text)
	if len(text) >= minLen {
		return text
	}
	return ""
}

// stripFences extracts fenced content when the text opens with a code fence,
// otherwise removes stray leading/trailing fence markers.
func stripFences(text string) string {
	if strings.HasPrefix(text, "```") {
		if m := fenceRe.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return strings.TrimSpace(fenceMarkRe.ReplaceAllString(text, ""))
}

// stripDoubleBraces removes one layer of accidental {{...}} wrapping.
func stripDoubleBraces(text string) string {
	if strings.HasPrefix(text, "{{") && strings.HasSuffix(text, "}}") {
		inner := strings.TrimSpace(text[1 : len(text)-1])
		if strings.HasPrefix(inner, "{") && strings.HasSuffix(inner, "}") {
			return inner
		}
	}
	return text
}

// braceCandidates returns every balanced top-level {...} substring, longest
// first. Depth counting ignores braces inside JSON strings.
func braceCandidates(text string) []string {
	var candidates []string
	depth := 0
	start := -1
	inString := false
	escaped := false
	for i, r := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					candidates = append(candidates, text[start:i+1])
					start = -1
				}
			}
		}
	}
	// Unterminated trailing candidate (truncated output) is deliberately
	// dropped; it cannot parse anyway.

	// Longest first.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && len(candidates[j]) > len(candidates[j-1]); j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
	return candidates
}

func isJSONObject(text string) bool {
	if !strings.HasPrefix(text, "{") {
		return false
	}
	var v map[string]json.RawMessage
	return json.Unmarshal([]byte(text), &v) == nil
}

// matchLabel reports whether line is "label:" or "label: rest", tolerating
// markdown decoration and fullwidth colons.
func matchLabel(line, label string) (rest string, ok bool) {
	trimmed := strings.TrimLeft(strings.TrimSpace(line), "*#>- \t")
	lower := strings.ToLower(trimmed)
	label = strings.ToLower(label)
	if !strings.HasPrefix(lower, label) {
		return "", false
	}
	after := strings.TrimSpace(trimmed[len(label):])
	if after == "" {
		return "", false
	}
	if after[0] != ':' && !strings.HasPrefix(after, "：") {
		return "", false
	}
	after = strings.TrimPrefix(after, ":")
	after = strings.TrimPrefix(after, "：")
	return strings.TrimSpace(after), true
}

// isLabelLine reports whether a line looks like the start of another
// labeled section ("word:" with a short head), ending the current capture.
func isLabelLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	idx := strings.IndexAny(trimmed, ":：")
	return idx > 0 && idx <= 30 && !strings.Contains(trimmed[:idx], " ")
}
