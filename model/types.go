// Package model provides domain types shared across packages.
package model

import "time"

// Project is the root aggregate for one novel-writing project.
type Project struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Characters  []Character `json:"characters"`
	Plot        *Plot       `json:"plot,omitempty"`
	Synopsis    string      `json:"synopsis,omitempty"`
	Chapters    []Chapter   `json:"chapters"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Character describes one character in a project.
type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Age         int    `json:"age,omitempty"`
	Description string `json:"description"`
	Role        string `json:"role"`
	Personality string `json:"personality"`
	Background  string `json:"background"`
}

// Plot holds the overall story structure.
type Plot struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Genre      string `json:"genre"`
	Theme      string `json:"theme"`
	Setting    string `json:"setting"`
	Conflict   string `json:"conflict"`
	Resolution string `json:"resolution"`
	Acts       []Act  `json:"acts"`
}

// Act is one act within a plot.
type Act struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Order       int    `json:"order"`
}

// Chapter is one chapter of the manuscript.
type Chapter struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Order     int    `json:"order"`
	WordCount int    `json:"word_count"`
}

// ChapterMeta is the structured planning data attached to a chapter.
// This is what history snapshots capture for undo.
type ChapterMeta struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Characters []string `json:"characters"`
	Setting    string   `json:"setting"`
	Mood       string   `json:"mood"`
	KeyEvents  []string `json:"keyEvents"`
}

// SnapshotSource records what produced a history snapshot.
type SnapshotSource string

const (
	SourceManual   SnapshotSource = "manual"
	SourceGenerate SnapshotSource = "ai-generate"
	SourceEnhance  SnapshotSource = "ai-enhance"
	SourceRestore  SnapshotSource = "restore"
)

// HistorySnapshot is one undo-history entry for a chapter. Seq is a
// per-chapter monotonic counter that orders snapshots written within the
// same clock tick.
type HistorySnapshot struct {
	ID        string         `json:"id"`
	ChapterID string         `json:"chapter_id"`
	Seq       uint64         `json:"seq"`
	Timestamp time.Time      `json:"timestamp"`
	Source    SnapshotSource `json:"source"`
	Data      ChapterMeta    `json:"data"`
}

// Weakness is one critique finding from the self-refine critique phase.
// JSON tags match the shape the model is asked to produce.
type Weakness struct {
	Aspect    string   `json:"aspect"`
	Score     *int     `json:"score,omitempty"` // 0-10 when present
	Problem   string   `json:"problem"`
	Solutions []string `json:"solutions"`
}

// CritiqueResult is the parsed output of the critique phase.
type CritiqueResult struct {
	Summary    string     `json:"summary"`
	Weaknesses []Weakness `json:"weaknesses"`
}

// RevisionResult is the parsed output of the revision phase.
type RevisionResult struct {
	RevisedText        string   `json:"revisedText"`
	ImprovementSummary string   `json:"improvementSummary"`
	Changes            []string `json:"changes"`
}

// ImprovementLogEntry is one audit record of a completed critique/revise run.
type ImprovementLogEntry struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	ChapterID      string    `json:"chapter_id"`
	Phase1Critique string    `json:"phase1_critique"`
	Phase2Summary  string    `json:"phase2_summary"`
	Phase2Changes  []string  `json:"phase2_changes"`
	OriginalLength int       `json:"original_length"`
	RevisedLength  int       `json:"revised_length"`
}
