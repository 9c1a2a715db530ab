package repository

import (
	"context"
	"sync"

	"github.com/ejanapp/api/internal/model"
)

// MemoryTutorialRepository is an in-process store used when Redis is not
// configured and in tests.
type MemoryTutorialRepository struct {
	mu        sync.RWMutex
	tutorials map[string]*model.Tutorial
}

func NewMemoryTutorialRepository() *MemoryTutorialRepository {
	return &MemoryTutorialRepository{tutorials: make(map[string]*model.Tutorial)}
}

func (r *MemoryTutorialRepository) Put(_ context.Context, tutorial *model.Tutorial) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *tutorial
	clone.Steps = append([]model.Step(nil), tutorial.Steps...)
	r.tutorials[tutorial.ID] = &clone
	return nil
}

func (r *MemoryTutorialRepository) Get(_ context.Context, id string) (*model.Tutorial, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tutorial, ok := r.tutorials[id]
	if !ok {
		return nil, model.ErrTutorialNotFound
	}
	clone := *tutorial
	clone.Steps = append([]model.Step(nil), tutorial.Steps...)
	return &clone, nil
}

// MemoryStyleRepository is the in-process counterpart for styles.
type MemoryStyleRepository struct {
	mu     sync.RWMutex
	styles map[string]*model.Style
}

func NewMemoryStyleRepository() *MemoryStyleRepository {
	return &MemoryStyleRepository{styles: make(map[string]*model.Style)}
}

func (r *MemoryStyleRepository) Put(_ context.Context, style *model.Style) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *style
	r.styles[style.ID] = &clone
	return nil
}

func (r *MemoryStyleRepository) Get(_ context.Context, id string) (*model.Style, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	style, ok := r.styles[id]
	if !ok {
		return nil, model.ErrStyleNotFound
	}
	clone := *style
	return &clone, nil
}
