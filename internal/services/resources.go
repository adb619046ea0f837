package services

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dscc-qa/backup-harness/internal/models"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

var ErrResourceInUse = errors.New("resource is in use")

// childSteps are the sub-tasks spawned by a create of the given kind.
var childSteps = map[models.ResourceKind][]string{
	models.KindProtectionStoreGW: {"DeployVirtualMachine", "RegisterGateway"},
	models.KindProtectionStore:   {"CreateStoreVolume"},
	models.KindCSPAccount:        {"ValidateAccountAccess"},
}

type Caller struct {
	UserID     string
	CustomerID string
}

type ResourceListParams struct {
	Name   string
	Offset int
	Limit  int
}

// ResourceService serves the generic collections of the mock control plane.
// Every write is acknowledged with a task run by the engine.
type ResourceService struct {
	mu     sync.RWMutex
	items  map[models.ResourceKind]map[string]*models.Resource
	order  map[models.ResourceKind][]string
	engine *Engine
	inUse  func(kind models.ResourceKind, id string) bool
}

func NewResourceService(engine *Engine) *ResourceService {
	s := &ResourceService{
		items:  make(map[models.ResourceKind]map[string]*models.Resource),
		order:  make(map[models.ResourceKind][]string),
		engine: engine,
	}
	for _, k := range models.Kinds {
		s.items[k] = make(map[string]*models.Resource)
	}
	return s
}

// SetInUse installs the check preventing the deletion of referenced resources.
func (s *ResourceService) SetInUse(fn func(kind models.ResourceKind, id string) bool) {
	s.inUse = fn
}

func (s *ResourceService) List(kind models.ResourceKind, params ResourceListParams) ([]models.Resource, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.items[kind]
	if !ok {
		return nil, 0, srvErrors.NewResourceNotFoundError("collection", string(kind))
	}

	var matched []models.Resource
	for _, id := range s.order[kind] {
		r, ok := coll[id]
		if !ok {
			continue
		}
		if params.Name != "" && r.Name != params.Name {
			continue
		}
		matched = append(matched, copyResource(r))
	}

	total := len(matched)
	if params.Offset >= total {
		return []models.Resource{}, total, nil
	}
	end := total
	if params.Limit > 0 {
		end = min(params.Offset+params.Limit, total)
	}
	return matched[params.Offset:end], total, nil
}

func (s *ResourceService) Get(kind models.ResourceKind, id string) (models.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.items[kind][id]
	if !ok {
		return models.Resource{}, srvErrors.NewResourceNotFoundError(string(kind), id)
	}
	return copyResource(r), nil
}

// Put stores a resource directly in state OK. Used for seeding and by scheduled backups.
func (s *ResourceService) Put(kind models.ResourceKind, name string, attrs map[string]any) models.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.insert(kind, name, attrs, Caller{})
	r.State = models.ResourceStateOK
	return copyResource(r)
}

// Create inserts the resource in state CREATING and starts its creation task.
func (s *ResourceService) Create(caller Caller, kind models.ResourceKind, name string, attrs map[string]any) (models.Task, error) {
	if strings.TrimSpace(name) == "" {
		return models.Task{}, srvErrors.NewInvalidConfigurationError("name", "must not be empty")
	}

	s.mu.Lock()
	if _, ok := s.items[kind]; !ok {
		s.mu.Unlock()
		return models.Task{}, srvErrors.NewResourceNotFoundError("collection", string(kind))
	}
	r := s.insert(kind, name, attrs, caller)
	ref := r.Ref()
	id := r.ID
	s.mu.Unlock()

	spec := s.spec(caller, "Create", kind, ref)
	for _, step := range childSteps[kind] {
		spec.Children = append(spec.Children, TaskSpec{Name: step, DisplayName: fmt.Sprintf("%s for %s", step, name)})
	}
	spec.OnSuccess = func() error { return s.setState(kind, id, models.ResourceStateOK) }
	spec.OnFailure = func(error) { _ = s.setState(kind, id, models.ResourceStateError) }

	return s.engine.Start(spec), nil
}

// Update merges attrs into the resource and bumps its generation.
func (s *ResourceService) Update(caller Caller, kind models.ResourceKind, id string, name string, attrs map[string]any) (models.Task, error) {
	s.mu.Lock()
	r, ok := s.items[kind][id]
	if !ok {
		s.mu.Unlock()
		return models.Task{}, srvErrors.NewResourceNotFoundError(string(kind), id)
	}
	ref := r.Ref()
	s.mu.Unlock()

	spec := s.spec(caller, "Update", kind, ref)
	spec.OnSuccess = func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		r, ok := s.items[kind][id]
		if !ok {
			return srvErrors.NewResourceNotFoundError(string(kind), id)
		}
		if name != "" {
			r.Name = name
		}
		if r.Attributes == nil {
			r.Attributes = map[string]any{}
		}
		maps.Copy(r.Attributes, attrs)
		r.Generation++
		r.UpdatedAt = time.Now().UTC()
		return nil
	}
	return s.engine.Start(spec), nil
}

// Delete marks the resource DELETING and removes it once its task succeeds.
// Referenced resources are only deleted with force.
func (s *ResourceService) Delete(caller Caller, kind models.ResourceKind, id string, force bool) (models.Task, error) {
	s.mu.Lock()
	r, ok := s.items[kind][id]
	if !ok {
		s.mu.Unlock()
		return models.Task{}, srvErrors.NewResourceNotFoundError(string(kind), id)
	}
	if !force && s.inUse != nil && s.inUse(kind, id) {
		s.mu.Unlock()
		return models.Task{}, fmt.Errorf("%s %s: %w", kind, id, ErrResourceInUse)
	}
	r.State = models.ResourceStateDeleting
	ref := r.Ref()
	s.mu.Unlock()

	spec := s.spec(caller, "Delete", kind, ref)
	spec.OnSuccess = func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.items[kind], id)
		return nil
	}
	spec.OnFailure = func(error) { _ = s.setState(kind, id, models.ResourceStateError) }
	return s.engine.Start(spec), nil
}

func (s *ResourceService) spec(caller Caller, verb string, kind models.ResourceKind, ref models.ResourceRef) TaskSpec {
	return TaskSpec{
		Name:        verb + kindTitle(kind),
		DisplayName: fmt.Sprintf("%s %s %s", verb, kind, ref.Name),
		UserID:      caller.UserID,
		CustomerID:  caller.CustomerID,
		Source:      &ref,
	}
}

func (s *ResourceService) insert(kind models.ResourceKind, name string, attrs map[string]any, caller Caller) *models.Resource {
	now := time.Now().UTC()
	r := &models.Resource{
		ID:         uuid.NewString(),
		Kind:       kind,
		Name:       name,
		State:      models.ResourceStateCreating,
		CustomerID: caller.CustomerID,
		Generation: 1,
		Attributes: maps.Clone(attrs),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.items[kind][r.ID] = r
	s.order[kind] = append(s.order[kind], r.ID)
	return r
}

func (s *ResourceService) setState(kind models.ResourceKind, id string, state models.ResourceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.items[kind][id]
	if !ok {
		return srvErrors.NewResourceNotFoundError(string(kind), id)
	}
	r.State = state
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func copyResource(r *models.Resource) models.Resource {
	c := *r
	c.Attributes = maps.Clone(r.Attributes)
	return c
}

// kindTitle turns "protection-store-gateways" into "ProtectionStoreGateway".
func kindTitle(kind models.ResourceKind) string {
	var b strings.Builder
	for _, part := range strings.Split(strings.TrimSuffix(strings.TrimSuffix(string(kind), "ies"), "s"), "-") {
		if part == "" {
			continue
		}
		if part == "csp" {
			b.WriteString("CSP")
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]) + part[1:])
	}
	if strings.HasSuffix(string(kind), "ies") {
		b.WriteString("y")
	}
	return b.String()
}
