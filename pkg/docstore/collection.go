// Package docstore keeps typed records as YAML documents, one per record,
// under a common prefix of a storage.Storage.
package docstore

import (
	"context"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/missionctl/missionctl/pkg/cerr"
	"github.com/missionctl/missionctl/pkg/storage"
)

type Collection[T any] struct {
	storage storage.Storage
	prefix  string
	kind    string
	idOf    func(*T) string
	mu      sync.Mutex
}

// New returns a collection storing records at prefix/<id>.yaml. kind names
// the record in error messages.
func New[T any](s storage.Storage, prefix, kind string, idOf func(*T) string) *Collection[T] {
	return &Collection[T]{storage: s, prefix: prefix, kind: kind, idOf: idOf}
}

func (c *Collection[T]) path(id string) (string, error) {
	return storage.DocumentPath(c.prefix, id)
}

func (c *Collection[T]) Create(ctx context.Context, v *T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.path(c.idOf(v))
	if err != nil {
		return cerr.WrapStorageWriteError(c.kind, err)
	}
	exists, err := c.storage.Exists(ctx, p)
	if err != nil {
		return cerr.WrapStorageWriteError(c.kind, err)
	}
	if exists {
		return cerr.NewError(cerr.AlreadyExists, c.kind+" already exists", nil)
	}
	return c.write(ctx, c.idOf(v), v)
}

func (c *Collection[T]) write(ctx context.Context, id string, v *T) error {
	p, err := c.path(id)
	if err != nil {
		return cerr.WrapStorageWriteError(c.kind, err)
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to marshal %s: %w", c.kind, err))
	}
	if err := c.storage.Write(ctx, p, data); err != nil {
		return cerr.WrapStorageWriteError(c.kind, err)
	}
	return nil
}

func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	p, err := c.path(id)
	if err != nil {
		return nil, cerr.WrapStorageReadError(c.kind, err)
	}
	data, err := c.storage.Read(ctx, p)
	if err != nil {
		return nil, cerr.WrapStorageReadError(c.kind, err)
	}
	v := new(T)
	if err := yaml.Unmarshal(data, v); err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", fmt.Errorf("failed to unmarshal %s: %w", c.kind, err))
	}
	return v, nil
}

// List returns every readable record in path order. Documents that fail to
// read or decode are skipped.
func (c *Collection[T]) List(ctx context.Context) ([]*T, error) {
	paths, err := c.storage.List(ctx, c.prefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError(c.kind, err)
	}
	all := make([]*T, 0, len(paths))
	for _, p := range paths {
		data, err := c.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		v := new(T)
		if err := yaml.Unmarshal(data, v); err != nil {
			continue
		}
		all = append(all, v)
	}
	return all, nil
}

// Update applies fn to the stored record and writes it back. Updates through
// one Collection are serialized; nothing is written when fn fails.
func (c *Collection[T]) Update(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(v); err != nil {
		return nil, err
	}
	if err := c.write(ctx, id, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Put writes v whether or not it exists.
func (c *Collection[T]) Put(ctx context.Context, v *T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(ctx, c.idOf(v), v)
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.path(id)
	if err != nil {
		return cerr.WrapStorageDeleteError(c.kind, err)
	}
	if err := c.storage.Delete(ctx, p); err != nil {
		return cerr.WrapStorageDeleteError(c.kind, err)
	}
	return nil
}
