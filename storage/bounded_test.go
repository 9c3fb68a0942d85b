package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyforge/model"
)

func TestHistoryCapEvictsOldest(t *testing.T) {
	h := NewHistoryStore(nil)
	ctx := context.Background()

	for i := 0; i < HistoryCap+10; i++ {
		_, err := h.Record(ctx, "ch1", model.SourceManual, model.ChapterMeta{
			Title: fmt.Sprintf("v%d", i),
		})
		require.NoError(t, err)
	}

	list, err := h.List(ctx, "ch1")
	require.NoError(t, err)
	require.Len(t, list, HistoryCap)

	// Newest first; the ten oldest snapshots are gone.
	assert.Equal(t, fmt.Sprintf("v%d", HistoryCap+9), list[0].Data.Title)
	assert.Equal(t, "v10", list[len(list)-1].Data.Title)
}

func TestHistoryPartitionsAreIndependent(t *testing.T) {
	h := NewHistoryStore(nil)
	ctx := context.Background()

	for i := 0; i < HistoryCap; i++ {
		_, err := h.Record(ctx, "ch1", model.SourceGenerate, model.ChapterMeta{})
		require.NoError(t, err)
	}
	_, err := h.Record(ctx, "ch2", model.SourceManual, model.ChapterMeta{Title: "only"})
	require.NoError(t, err)

	list, err := h.List(ctx, "ch2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "only", list[0].Data.Title)
}

func TestHistoryConcurrentWriters(t *testing.T) {
	h := NewHistoryStore(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			chapter := fmt.Sprintf("ch%d", w%2)
			for i := 0; i < 40; i++ {
				_, _ = h.Record(ctx, chapter, model.SourceEnhance, model.ChapterMeta{})
			}
		}(w)
	}
	wg.Wait()

	for _, chapter := range []string{"ch0", "ch1"} {
		list, err := h.List(ctx, chapter)
		require.NoError(t, err)
		assert.Len(t, list, HistoryCap, "partition %s must never exceed its cap", chapter)
	}
}

func TestHistoryWriteThroughAndRehydrate(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	h := NewHistoryStore(store)
	for i := 0; i < 3; i++ {
		_, err := h.Record(ctx, "ch1", model.SourceManual, model.ChapterMeta{
			Title: fmt.Sprintf("v%d", i),
		})
		require.NoError(t, err)
	}

	// A fresh store over the same backend sees the persisted history.
	h2 := NewHistoryStore(store)
	require.NoError(t, h2.LoadChapter(ctx, "ch1"))

	list, err := h2.List(ctx, "ch1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "v2", list[0].Data.Title, "newest first after rehydration")
}

func TestHistoryWriteThroughDeletesEvicted(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	h := NewHistoryStore(store)
	for i := 0; i < HistoryCap+5; i++ {
		_, err := h.Record(ctx, "ch1", model.SourceManual, model.ChapterMeta{})
		require.NoError(t, err)
	}

	values, err := store.QueryByPrefix(ctx, "history/ch1/")
	require.NoError(t, err)
	assert.Len(t, values, HistoryCap, "evicted snapshots must leave the backend too")
}

// flakyStore fails writes on demand to exercise the write-through error path.
type flakyStore struct {
	*MemoryStore
	failPut bool
}

func (s *flakyStore) Put(ctx context.Context, key string, value []byte) error {
	if s.failPut {
		return errors.New("disk full")
	}
	return s.MemoryStore.Put(ctx, key, value)
}

func TestHistoryPersistFailureLeavesMemoryUntouched(t *testing.T) {
	fs := &flakyStore{MemoryStore: NewMemoryStore()}
	h := NewHistoryStore(fs)
	ctx := context.Background()

	for i := 0; i < HistoryCap; i++ {
		_, err := h.Record(ctx, "ch1", model.SourceManual, model.ChapterMeta{
			Title: fmt.Sprintf("v%d", i),
		})
		require.NoError(t, err)
	}

	fs.failPut = true
	_, err := h.Record(ctx, "ch1", model.SourceManual, model.ChapterMeta{Title: "lost"})
	require.Error(t, err)

	// Memory and backend still agree: the failed snapshot is absent and
	// the oldest one was not evicted.
	list, err := h.List(ctx, "ch1")
	require.NoError(t, err)
	require.Len(t, list, HistoryCap)
	assert.NotEqual(t, "lost", list[0].Data.Title)
	assert.Equal(t, "v0", list[len(list)-1].Data.Title)

	values, err := fs.QueryByPrefix(ctx, "history/ch1/")
	require.NoError(t, err)
	assert.Len(t, values, HistoryCap)
}

func TestImprovementPersistFailureLeavesMemoryUntouched(t *testing.T) {
	fs := &flakyStore{MemoryStore: NewMemoryStore()}
	l := NewImprovementLog(fs)
	ctx := context.Background()

	_, err := l.Append(ctx, model.ImprovementLogEntry{ChapterID: "ch1", Phase2Summary: "kept"})
	require.NoError(t, err)

	fs.failPut = true
	_, err = l.Append(ctx, model.ImprovementLogEntry{ChapterID: "ch1", Phase2Summary: "lost"})
	require.Error(t, err)

	list, err := l.List(ctx, "ch1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "kept", list[0].Phase2Summary)
}

func TestHistoryLatest(t *testing.T) {
	h := NewHistoryStore(nil)
	ctx := context.Background()

	_, ok := h.Latest(ctx, "ch1")
	assert.False(t, ok)

	_, err := h.Record(ctx, "ch1", model.SourceRestore, model.ChapterMeta{Title: "a"})
	require.NoError(t, err)
	_, err = h.Record(ctx, "ch1", model.SourceManual, model.ChapterMeta{Title: "b"})
	require.NoError(t, err)

	latest, ok := h.Latest(ctx, "ch1")
	require.True(t, ok)
	assert.Equal(t, "b", latest.Data.Title)
}

func TestImprovementLogCapAndOrder(t *testing.T) {
	l := NewImprovementLog(nil)
	ctx := context.Background()

	for i := 0; i < ImprovementCap+7; i++ {
		_, err := l.Append(ctx, model.ImprovementLogEntry{
			ChapterID:     "ch1",
			Phase2Summary: fmt.Sprintf("run %d", i),
		})
		require.NoError(t, err)
	}

	list, err := l.List(ctx, "ch1")
	require.NoError(t, err)
	require.Len(t, list, ImprovementCap)
	assert.Equal(t, fmt.Sprintf("run %d", ImprovementCap+6), list[0].Phase2Summary)
}

func TestImprovementLogAssignsIdentity(t *testing.T) {
	l := NewImprovementLog(nil)

	entry, err := l.Append(context.Background(), model.ImprovementLogEntry{
		ChapterID:      "ch1",
		Phase1Critique: "too slow",
		OriginalLength: 1000,
		RevisedLength:  900,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.Timestamp.IsZero())
}
