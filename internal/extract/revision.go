package extract

import (
	"strings"

	"storyforge/model"
)

// revisedTextLabels are the headings models use when they narrate a revision
// instead of returning JSON.
var revisedTextLabels = []string{
	"revised text",
	"revised chapter",
	"revised version",
	"revision",
	"rewritten text",
}

// Revision recovers a revision from raw model output, descending the full
// chain: JSON, then labeled blocks, then brace-stripped prose, then the raw
// text itself. The revised text is never empty for non-empty input.
func Revision(raw string) (model.RevisionResult, Tier) {
	var result model.RevisionResult
	if Object(raw, &result) && len(result.RevisedText) >= minFallbackLen {
		return result, TierJSON
	}

	if text := LabeledBlock(raw, revisedTextLabels, minFallbackLen); text != "" {
		return model.RevisionResult{
			RevisedText:        text,
			ImprovementSummary: "Revision recovered from labeled text",
		}, TierLabeled
	}

	if text := Prose(raw, minFallbackLen); text != "" {
		return model.RevisionResult{
			RevisedText:        text,
			ImprovementSummary: "Revision recovered from unstructured output",
		}, TierProse
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		// Whitespace-only input still comes back unmodified.
		text = raw
	}
	return model.RevisionResult{
		RevisedText:        text,
		ImprovementSummary: "Model output used as-is",
	}, TierRaw
}
