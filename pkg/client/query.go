package client

import (
	"fmt"
	"net/url"

	"github.com/oapi-codegen/runtime"
)

// ListParams are the collection query parameters shared by every list endpoint.
type ListParams struct {
	Offset *int
	Limit  *int
	Sort   string
	Filter string
	Select string
}

// Values encodes the parameters the same way generated OpenAPI clients do.
func (p ListParams) Values() (url.Values, error) {
	q := url.Values{}

	add := func(name string, value any) error {
		frag, err := runtime.StyleParamWithLocation("form", true, name, runtime.ParamLocationQuery, value)
		if err != nil {
			return fmt.Errorf("failed to encode query parameter %s: %w", name, err)
		}
		parsed, err := url.ParseQuery(frag)
		if err != nil {
			return err
		}
		for k, vs := range parsed {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		return nil
	}

	if p.Offset != nil {
		if err := add("offset", *p.Offset); err != nil {
			return nil, err
		}
	}
	if p.Limit != nil {
		if err := add("limit", *p.Limit); err != nil {
			return nil, err
		}
	}
	for name, v := range map[string]string{"sort": p.Sort, "filter": p.Filter, "select": p.Select} {
		if v == "" {
			continue
		}
		if err := add(name, v); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// Page returns ListParams for a single page.
func Page(offset, limit int) ListParams {
	return ListParams{Offset: &offset, Limit: &limit}
}
