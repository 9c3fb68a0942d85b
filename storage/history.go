package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"storyforge/model"
)

// HistoryCap is the maximum number of snapshots kept per chapter. Inserting
// beyond the cap evicts the oldest snapshot in the same operation.
const HistoryCap = 50

// HistoryStore keeps a bounded undo history of chapter metadata snapshots,
// partitioned by chapter. Each partition has its own lock so concurrent
// writers to different chapters never contend.
type HistoryStore struct {
	mu       sync.RWMutex
	chapters map[string]*historyPartition

	// persist, when non-nil, mirrors every insert and eviction.
	persist ObjectStore
}

type historyPartition struct {
	mu sync.Mutex
	// snapshots are ordered oldest first; reads reverse.
	snapshots []model.HistorySnapshot
	seq       uint64
}

// NewHistoryStore creates a history store. persist may be nil for a purely
// in-memory history.
func NewHistoryStore(persist ObjectStore) *HistoryStore {
	return &HistoryStore{
		chapters: make(map[string]*historyPartition),
		persist:  persist,
	}
}

func (h *HistoryStore) partition(chapterID string) *historyPartition {
	h.mu.RLock()
	p, ok := h.chapters[chapterID]
	h.mu.RUnlock()
	if ok {
		return p
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok = h.chapters[chapterID]; ok {
		return p
	}
	p = &historyPartition{}
	h.chapters[chapterID] = p
	return p
}

// Record appends a new snapshot for a chapter, evicting the oldest when the
// partition is at capacity. Insert and eviction happen under one lock; no
// reader ever observes the partition above capacity. The write-through runs
// first, so a persist failure leaves the in-memory partition untouched.
func (h *HistoryStore) Record(ctx context.Context, chapterID string, source model.SnapshotSource, data model.ChapterMeta) (model.HistorySnapshot, error) {
	p := h.partition(chapterID)
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := model.HistorySnapshot{
		ID:        uuid.NewString(),
		ChapterID: chapterID,
		Seq:       p.seq,
		Timestamp: time.Now().UTC(),
		Source:    source,
		Data:      data,
	}

	var evicted *model.HistorySnapshot
	if len(p.snapshots) >= HistoryCap {
		evicted = &p.snapshots[0]
	}

	if h.persist != nil {
		value, err := json.Marshal(snapshot)
		if err != nil {
			return model.HistorySnapshot{}, err
		}
		if err := h.persist.Put(ctx, historyKey(snapshot), value); err != nil {
			return model.HistorySnapshot{}, err
		}
		if evicted != nil {
			if err := h.persist.Delete(ctx, historyKey(*evicted)); err != nil {
				return model.HistorySnapshot{}, err
			}
		}
	}

	if evicted != nil {
		p.snapshots = append(p.snapshots[:0], p.snapshots[1:]...)
	}
	p.snapshots = append(p.snapshots, snapshot)
	p.seq++
	return snapshot, nil
}

// List returns a chapter's snapshots newest first.
func (h *HistoryStore) List(ctx context.Context, chapterID string) ([]model.HistorySnapshot, error) {
	p := h.partition(chapterID)
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]model.HistorySnapshot, len(p.snapshots))
	for i, s := range p.snapshots {
		out[len(p.snapshots)-1-i] = s
	}
	return out, nil
}

// Latest returns the newest snapshot for a chapter, or false when the
// history is empty.
func (h *HistoryStore) Latest(ctx context.Context, chapterID string) (model.HistorySnapshot, bool) {
	p := h.partition(chapterID)
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.snapshots) == 0 {
		return model.HistorySnapshot{}, false
	}
	return p.snapshots[len(p.snapshots)-1], true
}

// LoadChapter rehydrates a chapter's history from the persistent store,
// replacing any in-memory snapshots for that chapter.
func (h *HistoryStore) LoadChapter(ctx context.Context, chapterID string) error {
	if h.persist == nil {
		return nil
	}
	values, err := h.persist.QueryByPrefix(ctx, "history/"+chapterID+"/")
	if err != nil {
		return err
	}

	snapshots := make([]model.HistorySnapshot, 0, len(values))
	var maxSeq uint64
	for _, value := range values {
		var s model.HistorySnapshot
		if err := json.Unmarshal(value, &s); err != nil {
			return fmt.Errorf("corrupt history entry for chapter %s: %w", chapterID, err)
		}
		if s.Seq >= maxSeq {
			maxSeq = s.Seq + 1
		}
		snapshots = append(snapshots, s)
	}
	sort.Slice(snapshots, func(i, j int) bool {
		if snapshots[i].Timestamp.Equal(snapshots[j].Timestamp) {
			return snapshots[i].Seq < snapshots[j].Seq
		}
		return snapshots[i].Timestamp.Before(snapshots[j].Timestamp)
	})

	p := h.partition(chapterID)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = snapshots
	p.seq = maxSeq
	return nil
}

// historyKey orders persisted snapshots by time so a prefix query returns
// them oldest first. The sequence suffix breaks same-nanosecond ties.
func historyKey(s model.HistorySnapshot) string {
	return fmt.Sprintf("history/%s/%020d-%06d", s.ChapterID, s.Timestamp.UnixNano(), s.Seq)
}
