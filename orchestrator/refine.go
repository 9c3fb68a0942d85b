package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"storyforge/internal/extract"
	"storyforge/llm"
	"storyforge/model"
)

// RefinePhase is the state of a critique/revise run.
type RefinePhase int

const (
	PhaseIdle RefinePhase = iota
	PhaseCritiquing
	PhaseRevising
	PhaseDone
	PhaseFailed
	PhaseCancelled
)

// String returns the phase name.
func (p RefinePhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCritiquing:
		return "critiquing"
	case PhaseRevising:
		return "revising"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Draft length caps for the two phases. The critique phase can afford more
// context than the revision phase, whose prompt also carries the guidance.
const (
	critiqueDraftCap = 6000
	revisionDraftCap = 4000
)

// RefineInput identifies the draft to refine.
type RefineInput struct {
	ChapterID string
	Draft     string
}

// RefineOutcome is the terminal result of a SelfRefine run. Phase is one of
// Done, Failed, or Cancelled. The extraction tiers record how each phase's
// model output was recovered, keeping "model found no weaknesses"
// distinguishable from "critique was unparseable".
type RefineOutcome struct {
	Phase RefinePhase

	Critique     model.CritiqueResult
	CritiqueTier extract.Tier
	Revision     model.RevisionResult
	RevisionTier extract.Tier

	LogEntry model.ImprovementLogEntry
	Err      *llm.Error
}

// SelfRefine runs the two-phase critique-then-revise workflow on a draft.
// The workflow is all-or-nothing: cancellation in either phase discards all
// intermediate work and is silent; failure in either phase surfaces one
// classified error. The improvement log is only written on full success.
func (o *Orchestrator) SelfRefine(ctx context.Context, in RefineInput) RefineOutcome {
	if strings.TrimSpace(in.Draft) == "" {
		return RefineOutcome{Phase: PhaseFailed, Err: llm.NewError(
			llm.CategoryInvalidReq, "draft text is empty", nil)}
	}

	// Critiquing.
	o.log.Info("self-refine started",
		zap.String("chapter", in.ChapterID),
		zap.Int("draft_len", len(in.Draft)))

	critiquePrompt, err := o.BuildPrompt("refine", "critique", map[string]string{
		"draft": truncate(in.Draft, critiqueDraftCap),
	})
	if err != nil {
		return RefineOutcome{Phase: PhaseFailed, Err: asClassified(err)}
	}

	critiqueRes := o.GenerateContent(ctx, llm.Request{
		Prompt: critiquePrompt,
		Type:   llm.TypeCritique,
	})
	if cancelled(ctx) {
		return RefineOutcome{Phase: PhaseCancelled}
	}
	if critiqueRes.Failed() {
		return RefineOutcome{Phase: PhaseFailed, Err: critiqueRes.Err}
	}

	critique, critiqueTier := extract.Critique(critiqueRes.Content)
	guidance := formatGuidance(critique, critiqueRes.Content)
	if len(critique.Weaknesses) == 0 {
		o.log.Info("critique yielded no structured weaknesses; using raw guidance",
			zap.String("tier", critiqueTier.String()))
	}

	// Revising. The cancellation check above guarantees the revision
	// prompt is never built after a cancelled critique.
	revisionPrompt, err := o.BuildPrompt("refine", "revision", map[string]string{
		"guidance": guidance,
		"draft":    truncate(in.Draft, revisionDraftCap),
	})
	if err != nil {
		return RefineOutcome{Phase: PhaseFailed, Err: asClassified(err)}
	}

	revisionRes := o.GenerateContent(ctx, llm.Request{
		Prompt: revisionPrompt,
		Type:   llm.TypeRevision,
	})
	if cancelled(ctx) {
		return RefineOutcome{Phase: PhaseCancelled}
	}
	if revisionRes.Failed() {
		return RefineOutcome{Phase: PhaseFailed, Err: revisionRes.Err}
	}

	revision, revisionTier := extract.Revision(revisionRes.Content)

	outcome := RefineOutcome{
		Phase:        PhaseDone,
		Critique:     critique,
		CritiqueTier: critiqueTier,
		Revision:     revision,
		RevisionTier: revisionTier,
	}

	if o.improvements != nil {
		entry, err := o.improvements.Append(ctx, model.ImprovementLogEntry{
			ChapterID:      in.ChapterID,
			Phase1Critique: guidance,
			Phase2Summary:  revision.ImprovementSummary,
			Phase2Changes:  revision.Changes,
			OriginalLength: len(in.Draft),
			RevisedLength:  len(revision.RevisedText),
		})
		if err != nil {
			o.log.Warn("failed to append improvement log", zap.Error(err))
		} else {
			outcome.LogEntry = entry
		}
	}

	o.log.Info("self-refine done",
		zap.String("chapter", in.ChapterID),
		zap.String("critique_tier", critiqueTier.String()),
		zap.String("revision_tier", revisionTier.String()),
		zap.Int("revised_len", len(revision.RevisedText)))
	return outcome
}

// formatGuidance renders a critique as editorial guidance for the revision
// prompt: structured findings when available, the raw critique text as the
// degraded path otherwise.
func formatGuidance(critique model.CritiqueResult, raw string) string {
	if len(critique.Weaknesses) == 0 {
		if critique.Summary != "" {
			return critique.Summary
		}
		return raw
	}

	var sb strings.Builder
	if critique.Summary != "" {
		sb.WriteString(critique.Summary + "\n\n")
	}
	for i, w := range critique.Weaknesses {
		fmt.Fprintf(&sb, "%d. %s: %s", i+1, w.Aspect, w.Problem)
		if len(w.Solutions) > 0 {
			fmt.Fprintf(&sb, " (suggested: %s)", strings.Join(w.Solutions, "; "))
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// truncate caps s at limit characters. Counting runes rather than bytes
// keeps the cap meaningful for multibyte text.
func truncate(s string, limit int) string {
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

// cancelled reports user cancellation. A parent deadline expiring is a
// timeout failure, not a cancellation, and is handled by GenerateContent.
func cancelled(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}
