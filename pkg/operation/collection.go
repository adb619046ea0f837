package operation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dscc-qa/backup-harness/pkg/client"
	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
	"github.com/dscc-qa/backup-harness/pkg/tasks"
)

const collectionPageSize = 100

type Page[T any] struct {
	Items  []T `json:"items"`
	Count  int `json:"count"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// Collection is a REST resource collection whose writes are asynchronous.
type Collection[T any] struct {
	runner *Runner
	path   string
}

func NewCollection[T any](r *Runner, path string) *Collection[T] {
	return &Collection[T]{runner: r, path: strings.TrimRight(path, "/")}
}

func (c *Collection[T]) Path() string {
	return c.path
}

func (c *Collection[T]) List(ctx context.Context, params client.ListParams) (*Page[T], error) {
	q, err := params.Values()
	if err != nil {
		return nil, err
	}
	var page Page[T]
	if err := c.runner.client.GetJSON(ctx, c.path, q, &page); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.path, err)
	}
	return &page, nil
}

// All reads every page of the collection.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	var all []T
	for offset := 0; ; offset += collectionPageSize {
		page, err := c.List(ctx, client.Page(offset, collectionPageSize))
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if len(page.Items) < collectionPageSize || (page.Total > 0 && len(all) >= page.Total) {
			return all, nil
		}
	}
}

func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	var v T
	if err := c.runner.client.GetJSON(ctx, c.path+"/"+url.PathEscape(id), nil, &v); err != nil {
		if srvErrors.IsResourceNotFoundError(err) {
			return nil, srvErrors.NewResourceNotFoundError(c.path, id)
		}
		return nil, err
	}
	return &v, nil
}

// FindByName returns the first item whose field equals name.
func (c *Collection[T]) FindByName(ctx context.Context, field, name string) (*T, error) {
	page, err := c.List(ctx, client.ListParams{Filter: fmt.Sprintf("%s eq '%s'", field, strings.ReplaceAll(name, "'", "''"))})
	if err != nil {
		return nil, err
	}
	if len(page.Items) == 0 {
		return nil, srvErrors.NewResourceNotFoundError(c.path, name)
	}
	return &page.Items[0], nil
}

// Create posts body and waits for the creation task to succeed.
func (c *Collection[T]) Create(ctx context.Context, body any, opts tasks.WaitOptions) (*Outcome, error) {
	return c.runner.run(ctx, client.Request{Method: http.MethodPost, Path: c.path, Body: body}, opts)
}

// Update patches the item and waits for the update task to succeed.
func (c *Collection[T]) Update(ctx context.Context, id string, body any, opts tasks.WaitOptions) (*Outcome, error) {
	return c.runner.run(ctx, client.Request{Method: http.MethodPatch, Path: c.path + "/" + url.PathEscape(id), Body: body}, opts)
}

// Delete removes the item and waits for the deletion task to succeed.
func (c *Collection[T]) Delete(ctx context.Context, id string, force bool, opts tasks.WaitOptions) (*Outcome, error) {
	req := client.Request{Method: http.MethodDelete, Path: c.path + "/" + url.PathEscape(id)}
	if force {
		req.Query = url.Values{"force": []string{"true"}}
	}
	return c.runner.run(ctx, req, opts)
}

// DeleteAll deletes ids with at most limit deletions in flight. Every
// deletion runs to completion; the returned error combines the failures and
// outcomes keep the order of ids.
func (c *Collection[T]) DeleteAll(ctx context.Context, ids []string, force bool, limit int, opts tasks.WaitOptions) ([]*Outcome, error) {
	outcomes := make([]*Outcome, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, id := range ids {
		g.Go(func() error {
			outcomes[i], errs[i] = c.Delete(ctx, id, force, opts)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes, multierr.Combine(errs...)
}
