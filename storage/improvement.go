package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"storyforge/model"
)

// ImprovementCap is the maximum number of critique/revise audit records
// kept per chapter.
const ImprovementCap = 20

// ImprovementLog keeps a bounded audit trail of completed critique/revise
// runs, partitioned by chapter. Same locking discipline as HistoryStore.
type ImprovementLog struct {
	mu       sync.RWMutex
	chapters map[string]*improvementPartition

	persist ObjectStore
}

type improvementPartition struct {
	mu      sync.Mutex
	entries []model.ImprovementLogEntry // oldest first
}

// NewImprovementLog creates an improvement log. persist may be nil.
func NewImprovementLog(persist ObjectStore) *ImprovementLog {
	return &ImprovementLog{
		chapters: make(map[string]*improvementPartition),
		persist:  persist,
	}
}

func (l *ImprovementLog) partition(chapterID string) *improvementPartition {
	l.mu.RLock()
	p, ok := l.chapters[chapterID]
	l.mu.RUnlock()
	if ok {
		return p
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok = l.chapters[chapterID]; ok {
		return p
	}
	p = &improvementPartition{}
	l.chapters[chapterID] = p
	return p
}

// Append records a completed run, evicting the oldest entry when the
// chapter's partition is at capacity. The entry's ID and timestamp are
// assigned here. The write-through runs first, so a persist failure leaves
// the in-memory partition untouched.
func (l *ImprovementLog) Append(ctx context.Context, entry model.ImprovementLogEntry) (model.ImprovementLogEntry, error) {
	entry.ID = uuid.NewString()
	entry.Timestamp = time.Now().UTC()

	p := l.partition(entry.ChapterID)
	p.mu.Lock()
	defer p.mu.Unlock()

	var evicted *model.ImprovementLogEntry
	if len(p.entries) >= ImprovementCap {
		evicted = &p.entries[0]
	}

	if l.persist != nil {
		value, err := json.Marshal(entry)
		if err != nil {
			return model.ImprovementLogEntry{}, err
		}
		if err := l.persist.Put(ctx, improvementKey(entry.ChapterID, entry.Timestamp, entry.ID), value); err != nil {
			return model.ImprovementLogEntry{}, err
		}
		if evicted != nil {
			if err := l.persist.Delete(ctx, improvementKey(entry.ChapterID, evicted.Timestamp, evicted.ID)); err != nil {
				return model.ImprovementLogEntry{}, err
			}
		}
	}

	if evicted != nil {
		p.entries = append(p.entries[:0], p.entries[1:]...)
	}
	p.entries = append(p.entries, entry)
	return entry, nil
}

// List returns a chapter's entries newest first.
func (l *ImprovementLog) List(ctx context.Context, chapterID string) ([]model.ImprovementLogEntry, error) {
	p := l.partition(chapterID)
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]model.ImprovementLogEntry, len(p.entries))
	for i, e := range p.entries {
		out[len(p.entries)-1-i] = e
	}
	return out, nil
}

func improvementKey(chapterID string, ts time.Time, id string) string {
	return fmt.Sprintf("improvement/%s/%020d/%s", chapterID, ts.UnixNano(), id)
}
