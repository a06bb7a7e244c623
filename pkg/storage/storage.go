package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a requested path does not exist in storage.
	ErrNotFound = errors.New("not found")
	// ErrInvalidPath is returned for a path outside the storage root or a
	// document id that would leave its prefix.
	ErrInvalidPath = errors.New("invalid path")
)

// Storage is the document store behind every YAML repository. Paths are
// slash separated and relative to the storage root; List is not recursive.
type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// DocumentPath returns where the YAML document for id lives under prefix.
// Ids reach here from request parameters, so anything that is not a single
// path segment is rejected.
func DocumentPath(prefix, id string) (string, error) {
	if id == "" || id == "." || strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("document id %q: %w", id, ErrInvalidPath)
	}
	return prefix + "/" + id + ".yaml", nil
}
