package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyforge/model"
)

func newTestProject() model.Project {
	return model.Project{
		Title:       "The Lighthouse",
		Description: "A keeper's last winter.",
		Chapters: []model.Chapter{
			{Title: "Arrival", Content: "The boat left him on the rocks at dawn.", Order: 1},
			{Title: "The Storm", Content: "Wind took the door off its hinges.", Order: 2},
		},
	}
}

func TestProjectCRUD(t *testing.T) {
	s := NewProjectStore(NewMemoryStore())
	ctx := context.Background()

	created, err := s.Create(ctx, newTestProject())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, 9, created.Chapters[0].WordCount)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "The Lighthouse", got.Title)

	got.Title = "The Last Keeper"
	updated, err := s.Update(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "The Last Keeper", updated.Title)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt, "CreatedAt survives updates")
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.Delete(ctx, created.ID))
	_, err = s.Get(ctx, created.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestProjectUpdateMissing(t *testing.T) {
	s := NewProjectStore(NewMemoryStore())

	_, err := s.Update(context.Background(), model.Project{ID: "ghost"})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestProjectExportText(t *testing.T) {
	s := NewProjectStore(NewMemoryStore())
	ctx := context.Background()

	created, err := s.Create(ctx, newTestProject())
	require.NoError(t, err)

	text, err := s.ExportText(ctx, created.ID)
	require.NoError(t, err)
	assert.Contains(t, text, "The Lighthouse")
	assert.Contains(t, text, "Chapter 1: Arrival")
	assert.Contains(t, text, "Wind took the door")
}

func TestProjectExportJSON(t *testing.T) {
	s := NewProjectStore(NewMemoryStore())
	ctx := context.Background()

	created, err := s.Create(ctx, newTestProject())
	require.NoError(t, err)

	raw, err := s.ExportJSON(ctx, created.ID)
	require.NoError(t, err)

	var p model.Project
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.Equal(t, created.ID, p.ID)
	assert.Len(t, p.Chapters, 2)
}

func TestProjectStoreOverSqlite(t *testing.T) {
	backend, err := NewSqliteInMemory()
	require.NoError(t, err)
	defer backend.Close()

	s := NewProjectStore(backend)
	ctx := context.Background()

	created, err := s.Create(ctx, newTestProject())
	require.NoError(t, err)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)
}
