package services

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dscc-qa/backup-harness/internal/models"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

const maxTaskPageSize = 1000

// TaskService holds the tasks of the mock control plane.
type TaskService struct {
	mu    sync.RWMutex
	tasks map[string]*models.Task
	order []string
	now   func() time.Time
}

func NewTaskService() *TaskService {
	return &TaskService{
		tasks: make(map[string]*models.Task),
		now:   time.Now,
	}
}

// Create stores t with a fresh id and INITIALIZED state.
func (s *TaskService) Create(t models.Task) models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	// createdAt filters have second precision; keep creation strictly ordered
	if n := len(s.order); n > 0 {
		if last := s.tasks[s.order[n-1]].CreatedAt; !now.After(last) {
			now = last.Add(time.Millisecond)
		}
	}

	t.ID = uuid.NewString()
	t.State = models.TaskStateInitialized
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.DisplayName == "" {
		t.DisplayName = t.Name
	}
	if t.RootID == "" {
		t.RootID = t.ID
	}
	t.Log(now, t.DisplayName+" created")

	if t.ParentID != "" {
		if parent, ok := s.tasks[t.ParentID]; ok {
			parent.ChildIDs = append(parent.ChildIDs, t.ID)
			parent.UpdatedAt = now
		}
	}

	s.tasks[t.ID] = &t
	s.order = append(s.order, t.ID)
	return clone(&t)
}

func (s *TaskService) Get(id string) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return models.Task{}, srvErrors.NewResourceNotFoundError("task", id)
	}
	return clone(t), nil
}

// Update applies fn to the stored task under the write lock.
func (s *TaskService) Update(id string, fn func(t *models.Task)) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return models.Task{}, srvErrors.NewResourceNotFoundError("task", id)
	}
	fn(t)
	t.UpdatedAt = s.now().UTC()
	return clone(t), nil
}

// List returns the page selected by f and the total number of matches.
func (s *TaskService) List(f models.TaskFilter) ([]models.Task, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Task, 0)
	for _, id := range s.order {
		if t := s.tasks[id]; f.Match(t) {
			matched = append(matched, t)
		}
	}
	if f.SortDescending {
		slices.Reverse(matched)
	}

	total := len(matched)
	limit := f.Limit
	if limit <= 0 || limit > maxTaskPageSize {
		limit = maxTaskPageSize
	}
	if f.Offset >= total {
		return []models.Task{}, total
	}
	end := min(f.Offset+limit, total)

	out := make([]models.Task, 0, end-f.Offset)
	for _, t := range matched[f.Offset:end] {
		out = append(out, clone(t))
	}
	return out, total
}

func (s *TaskService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func clone(t *models.Task) models.Task {
	c := *t
	c.ChildIDs = slices.Clone(t.ChildIDs)
	c.Logs = slices.Clone(t.Logs)
	if t.Source != nil {
		src := *t.Source
		c.Source = &src
	}
	return c
}
