package extract

import (
	"strings"

	"storyforge/model"
)

// critiqueSummaryLabels are the headings models use when they narrate a
// critique instead of returning JSON.
var critiqueSummaryLabels = []string{
	"summary",
	"critique",
	"overall assessment",
	"assessment",
	"feedback",
}

// Critique recovers a critique from raw model output, descending the same
// chain as Revision: JSON, then labeled blocks, then brace-stripped prose,
// then the raw text itself. A clean JSON parse keeps only weaknesses that
// carry both an aspect and a problem. The returned tier tells outcomes
// apart: TierJSON with zero weaknesses means the model found nothing to
// criticize, the lower tiers mean the output was unstructured and its text
// was preserved as the summary.
func Critique(raw string) (model.CritiqueResult, Tier) {
	var result model.CritiqueResult
	if Object(raw, &result) {
		kept := result.Weaknesses[:0]
		for _, w := range result.Weaknesses {
			if strings.TrimSpace(w.Aspect) != "" && strings.TrimSpace(w.Problem) != "" {
				kept = append(kept, w)
			}
		}
		result.Weaknesses = kept
		if result.Summary != "" || len(result.Weaknesses) > 0 {
			return result, TierJSON
		}
		// Parsed but empty-shaped; fall through the chain.
	}

	if text := LabeledBlock(raw, critiqueSummaryLabels, minFallbackLen); text != "" {
		return model.CritiqueResult{Summary: text}, TierLabeled
	}

	if text := Prose(raw, minFallbackLen); text != "" {
		return model.CritiqueResult{Summary: text}, TierProse
	}

	summary := strings.TrimSpace(raw)
	if summary == "" {
		// Whitespace-only input still comes back unmodified.
		summary = raw
	}
	return model.CritiqueResult{Summary: summary}, TierRaw
}
