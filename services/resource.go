// Package services exposes the dashboard's collections as typed resources on
// top of a SecureBridge. Every request and response is checked against the
// validate tags of the model types in models.go.
package services

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"

	securebridge "github.com/opengovern/secure-bridge"
)

// Page is one page of a collection listing.
type Page[T any] struct {
	Items []T `json:"items" validate:"dive"`
	Total int `json:"total" validate:"min=0"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// ListOptions narrows a listing. Filters are matched by field equality.
type ListOptions struct {
	Page    int
	Limit   int
	Filters map[string]string
}

func (o ListOptions) encode() string {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	keys := make([]string, 0, len(o.Filters))
	for k := range o.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Set(k, o.Filters[k])
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// Resource is a REST collection of T mounted at path.
type Resource[T any] struct {
	bridge *securebridge.SecureBridge
	path   string
}

func NewResource[T any](bridge *securebridge.SecureBridge, path string) *Resource[T] {
	return &Resource[T]{bridge: bridge, path: "/" + strings.Trim(path, "/")}
}

func (r *Resource[T]) Path() string { return r.path }

func (r *Resource[T]) List(ctx context.Context, opts ListOptions) (*Page[T], error) {
	resp, err := r.bridge.Get(ctx, r.path+opts.encode())
	if err != nil {
		return nil, err
	}
	page, err := securebridge.DecodeResponse[Page[T]](resp)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	endpoint, err := r.itemPath(id)
	if err != nil {
		return nil, err
	}
	return r.decode(r.bridge.Get(ctx, endpoint))
}

// Create validates item and posts it. The stored item comes back with its id.
func (r *Resource[T]) Create(ctx context.Context, item *T) (*T, error) {
	return r.decode(r.bridge.Post(ctx, r.path, item))
}

// Update replaces the item with id.
func (r *Resource[T]) Update(ctx context.Context, id string, item *T) (*T, error) {
	endpoint, err := r.itemPath(id)
	if err != nil {
		return nil, err
	}
	return r.decode(r.bridge.Put(ctx, endpoint, item))
}

// Patch merges fields into the item with id. The merged item is validated
// on the way back.
func (r *Resource[T]) Patch(ctx context.Context, id string, fields map[string]interface{}) (*T, error) {
	endpoint, err := r.itemPath(id)
	if err != nil {
		return nil, err
	}
	return r.decode(r.bridge.Patch(ctx, endpoint, fields))
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	endpoint, err := r.itemPath(id)
	if err != nil {
		return err
	}
	_, err = r.bridge.Delete(ctx, endpoint)
	return err
}

func (r *Resource[T]) itemPath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", securebridge.ValidatePayload(struct {
			ID string `json:"id" validate:"required"`
		}{})
	}
	return r.path + "/" + url.PathEscape(id), nil
}

func (r *Resource[T]) decode(resp *securebridge.APIResponse, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	out, err := securebridge.DecodeResponse[T](resp)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
