package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore はプロセス内で完結する Store なのだ。並行に呼び出しても安全なのだ。
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]Project
	now      func() time.Time
}

// NewMemoryStore は空の MemoryStore を作るのだ。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[uuid.UUID]Project), now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, p *Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prepare(p, s.now())
	s.projects[p.ID] = clone(*p)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := clone(p)
	return &c, nil
}

// List は更新が新しい順に返すのだ。
func (s *MemoryStore) List(_ context.Context) ([]Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, clone(p))
	}
	slices.SortFunc(out, func(a, b Project) int { return b.UpdatedAt.Compare(a.UpdatedAt) })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return ErrNotFound
	}
	delete(s.projects, id)
	return nil
}

// clone は呼び出し側の変更が保存内容に漏れないようスライスを複製するのだ。
func clone(p Project) Project {
	p.Scenes = slices.Clone(p.Scenes)
	p.VideoScenes = slices.Clone(p.VideoScenes)
	return p
}
