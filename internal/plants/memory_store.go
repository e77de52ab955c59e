package plants

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"plantpal-backend/internal/care"
)

// MemoryStore keeps everything in process memory. Used for local
// development when no database is configured, and in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	plants map[string]Plant
	tasks  map[string]Task
	order  []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		plants: make(map[string]Plant),
		tasks:  make(map[string]Task),
	}
}

func (s *MemoryStore) CreatePlant(_ context.Context, p Plant) (Plant, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	p.Happiness = care.Clamp(p.Happiness)
	p.PhotoURLs = append([]string{}, p.PhotoURLs...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.plants[p.ID]; exists {
		return Plant{}, fmt.Errorf("plant %s already exists", p.ID)
	}
	s.plants[p.ID] = p
	return clonePlant(p), nil
}

func (s *MemoryStore) GetPlant(_ context.Context, id string) (Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plants[id]
	if !ok {
		return Plant{}, ErrNotFound
	}
	return clonePlant(p), nil
}

func (s *MemoryStore) ListPlants(_ context.Context, userID string) ([]Plant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Plant{}
	for _, p := range s.plants {
		if p.UserID == userID {
			out = append(out, clonePlant(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpdatePlant(_ context.Context, id string, u PlantUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plants[id]
	if !ok {
		return ErrNotFound
	}
	u.apply(&p)
	s.plants[id] = p
	return nil
}

func (s *MemoryStore) CreateTask(_ context.Context, t Task) (Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
	return t, nil
}

func (s *MemoryStore) GetTask(_ context.Context, id string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) ListTasks(_ context.Context, userID, plantID string) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Task{}
	for _, id := range s.order {
		t := s.tasks[id]
		if t.UserID != userID {
			continue
		}
		if plantID != "" && t.PlantID != plantID {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScheduledDate.Before(out[j].ScheduledDate)
	})
	return out, nil
}

func (s *MemoryStore) CompleteTask(_ context.Context, id string, at time.Time) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	if t.Completed {
		return t, ErrAlreadyCompleted
	}
	t.Completed = true
	t.CompletedAt = ptrTime(at)
	s.tasks[id] = t
	return t, nil
}

func (s *MemoryStore) Close() error { return nil }

func clonePlant(p Plant) Plant {
	p.PhotoURLs = append([]string{}, p.PhotoURLs...)
	return p
}
