package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"go.uber.org/zap"

	"github.com/dscc-qa/backup-harness/pkg/client"
)

const (
	pageSize        = 100
	maxListOffset   = 10000
	sortAscending   = "createdAt"
	sortDescending  = "createdAt desc"
	deleteIndexName = "DeleteIndexDataWorkflow"
)

type ListOptions struct {
	// Offset moves the lower bound further into the past.
	Offset time.Duration
	// IncludeUser restricts the list to the manager's user id.
	IncludeUser bool
}

// FormatTime renders t the way the task filter grammar expects.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// CreatedAfterFilter builds "createdAt gt <t>" with optional extra clauses.
func CreatedAfterFilter(t time.Time, clauses ...string) string {
	f := "createdAt gt " + FormatTime(t)
	for _, c := range clauses {
		if c != "" {
			f += " and " + c
		}
	}
	return f
}

func eq(field, value string) string {
	return fmt.Sprintf("%s eq '%s'", field, strings.ReplaceAll(value, "'", "''"))
}

func (m *Manager) page(ctx context.Context, params client.ListParams) (*TaskList, error) {
	q, err := params.Values()
	if err != nil {
		return nil, err
	}
	var tl TaskList
	if err := m.client.GetJSON(ctx, m.path, q, &tl); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return &tl, nil
}

// scan pages through the filter until the first empty page or the offset ceiling.
func (m *Manager) scan(ctx context.Context, filter, order string, keep func(*Task) bool) (*TaskList, error) {
	all := &TaskList{PageLimit: maxListOffset}
	for offset := 0; offset < maxListOffset; offset += pageSize {
		params := client.Page(offset, pageSize)
		params.Sort = order
		params.Filter = filter

		tl, err := m.page(ctx, params)
		if err != nil {
			return nil, err
		}
		if len(tl.Items) == 0 {
			break
		}
		for i := range tl.Items {
			if keep == nil || keep(&tl.Items[i]) {
				all.add(tl.Items[i])
			}
		}
	}
	return all, nil
}

// List returns every task created after since-Offset, newest first. Pages are
// read oldest first so tasks created during the scan do not shift page boundaries.
func (m *Manager) List(ctx context.Context, since time.Time, opts ListOptions) (*TaskList, error) {
	var user string
	if opts.IncludeUser && m.userID != "" {
		user = eq("userId", m.userID)
	}
	filter := CreatedAfterFilter(since.Add(-opts.Offset), user)

	all, err := m.scan(ctx, filter, sortAscending, nil)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(all.Items)
	return all, nil
}

// Filtered lists a single page for a raw filter expression.
func (m *Manager) Filtered(ctx context.Context, filter string) (*TaskList, error) {
	return m.page(ctx, client.ListParams{Filter: filter})
}

// ByNameAndResource scans the lookback window newest first for tasks whose
// display name contains name and whose source resource matches resourceURI.
// Only the trailing two URI segments are compared.
func (m *Manager) ByNameAndResource(ctx context.Context, name, resourceURI string, lookback time.Duration) (*TaskList, error) {
	suffix := lastSegments(resourceURI, 2)
	filter := CreatedAfterFilter(m.now().Add(-lookback))

	return m.scan(ctx, filter, sortDescending, func(t *Task) bool {
		if t.SourceResource == nil {
			return false
		}
		return strings.Contains(t.DisplayName, name) && strings.Contains(t.SourceResource.ResourceURI, suffix)
	})
}

// ByNameAndResourceExact reads one page of 10 filtered server-side on the exact resource URI.
func (m *Manager) ByNameAndResourceExact(ctx context.Context, name, resourceURI string, lookback time.Duration) (*TaskList, error) {
	params := client.Page(0, 10)
	params.Sort = sortDescending
	params.Filter = CreatedAfterFilter(m.now().Add(-lookback), eq("sourceResource.resourceUri", resourceURI))

	tl, err := m.page(ctx, params)
	if err != nil {
		return nil, err
	}
	return keepDisplayName(tl.Items, name), nil
}

func (m *Manager) ByNameAndCustomer(ctx context.Context, name, customerID string, lookback time.Duration) ([]Task, error) {
	params := client.Page(0, pageSize)
	params.Sort = sortDescending
	params.Filter = CreatedAfterFilter(m.now().Add(-lookback), eq("customerId", customerID))

	tl, err := m.page(ctx, params)
	if err != nil {
		return nil, err
	}
	return keepDisplayName(tl.Items, name).Items, nil
}

// DeleteIndexedFilesTasks returns index cleanup workflows mentioning name.
func (m *Manager) DeleteIndexedFilesTasks(ctx context.Context, name string, lookback time.Duration) ([]Task, error) {
	params := client.Page(0, 20)
	params.Sort = sortDescending
	params.Filter = CreatedAfterFilter(m.now().Add(-lookback), eq("name", deleteIndexName))

	tl, err := m.page(ctx, params)
	if err != nil {
		return nil, err
	}
	return keepDisplayName(tl.Items, name).Items, nil
}

// ByDisplayNamePattern lists tasks since the given time whose display name matches a glob.
func (m *Manager) ByDisplayNamePattern(ctx context.Context, pattern string, since time.Time) ([]Task, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid display name pattern %q: %w", pattern, err)
	}
	all, err := m.List(ctx, since, ListOptions{})
	if err != nil {
		return nil, err
	}
	var out []Task
	for _, t := range all.Items {
		if g.Match(t.DisplayName) {
			out = append(out, t)
		}
	}
	return out, nil
}

// ChildTaskID returns the first task whose parent is id.
func (m *Manager) ChildTaskID(ctx context.Context, id string) (string, error) {
	tl, err := m.Filtered(ctx, eq("parent/id", id))
	if err != nil {
		return "", err
	}
	if len(tl.Items) == 0 || tl.Items[0].ID == "" {
		return "", fmt.Errorf("task %s has no child task", id)
	}
	zap.S().Named("tasks").Infow("child task found", "parent", id, "child", tl.Items[0].ID)
	return tl.Items[0].ID, nil
}

// Children returns task.childTasks when populated, otherwise the tasks whose parent is task.
func (m *Manager) Children(ctx context.Context, task *Task) ([]ResourceRef, error) {
	if len(task.ChildTasks) > 0 {
		return task.ChildTasks, nil
	}
	tl, err := m.Filtered(ctx, eq("parent/id", task.ID))
	if err != nil {
		return nil, err
	}
	refs := make([]ResourceRef, 0, len(tl.Items))
	for i := range tl.Items {
		refs = append(refs, tl.Items[i].Ref(m.path))
	}
	return refs, nil
}

func keepDisplayName(items []Task, name string) *TaskList {
	out := &TaskList{}
	for _, t := range items {
		if strings.Contains(t.DisplayName, name) {
			out.add(t)
		}
	}
	return out
}

func sortNewestFirst(items []Task) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
