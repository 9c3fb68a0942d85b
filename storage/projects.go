package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"storyforge/model"
)

const projectPrefix = "project/"

// ProjectStore provides CRUD and export for writing projects over any
// ObjectStore.
type ProjectStore struct {
	store ObjectStore
}

// NewProjectStore creates a project store backed by the given object store.
func NewProjectStore(store ObjectStore) *ProjectStore {
	return &ProjectStore{store: store}
}

// Create stores a new project. The ID and timestamps are assigned here.
func (s *ProjectStore) Create(ctx context.Context, p model.Project) (model.Project, error) {
	p.ID = uuid.NewString()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	refreshWordCounts(&p)

	if err := s.put(ctx, p); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// Get returns a project by ID, or ErrNotFound.
func (s *ProjectStore) Get(ctx context.Context, id string) (model.Project, error) {
	value, err := s.store.Get(ctx, projectPrefix+id)
	if err != nil {
		return model.Project{}, err
	}
	var p model.Project
	if err := json.Unmarshal(value, &p); err != nil {
		return model.Project{}, fmt.Errorf("corrupt project %s: %w", id, err)
	}
	return p, nil
}

// List returns all projects in key order.
func (s *ProjectStore) List(ctx context.Context) ([]model.Project, error) {
	values, err := s.store.QueryByPrefix(ctx, projectPrefix)
	if err != nil {
		return nil, err
	}
	projects := make([]model.Project, 0, len(values))
	for _, value := range values {
		var p model.Project
		if err := json.Unmarshal(value, &p); err != nil {
			return nil, fmt.Errorf("corrupt project entry: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// Update replaces a stored project, bumping UpdatedAt and refreshing
// chapter word counts. The project must already exist.
func (s *ProjectStore) Update(ctx context.Context, p model.Project) (model.Project, error) {
	existing, err := s.Get(ctx, p.ID)
	if err != nil {
		return model.Project{}, err
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	refreshWordCounts(&p)

	if err := s.put(ctx, p); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// Delete removes a project.
func (s *ProjectStore) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, projectPrefix+id)
}

func (s *ProjectStore) put(ctx context.Context, p model.Project) error {
	value, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, projectPrefix+p.ID, value)
}

// ExportJSON renders a project as indented JSON.
func (s *ProjectStore) ExportJSON(ctx context.Context, id string) ([]byte, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(p, "", "  ")
}

// ExportText renders a project as a plain-text manuscript: title,
// description, then each chapter in order.
func (s *ProjectStore) ExportText(ctx context.Context, id string) (string, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(p.Title + "\n")
	sb.WriteString(strings.Repeat("=", len(p.Title)) + "\n\n")
	if p.Description != "" {
		sb.WriteString(p.Description + "\n\n")
	}
	for _, ch := range p.Chapters {
		sb.WriteString(fmt.Sprintf("Chapter %d: %s\n\n", ch.Order, ch.Title))
		sb.WriteString(ch.Content + "\n\n")
	}
	return sb.String(), nil
}

// refreshWordCounts recomputes each chapter's word count from its content.
func refreshWordCounts(p *model.Project) {
	for i := range p.Chapters {
		p.Chapters[i].WordCount = len(strings.Fields(p.Chapters[i].Content))
	}
}
