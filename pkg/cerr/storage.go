package cerr

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/missionctl/missionctl/pkg/storage"
)

// Storage wrappers turn persistence failures into coded errors. A missing
// document or row becomes NotFound, a malformed id InvalidArgument, an error
// that already carries a code is returned unchanged, anything else is
// Internal with the target logged.

func WrapStorageReadError(target string, err error) error {
	return wrapStorage("read", target, err, true)
}

func WrapStorageWriteError(target string, err error) error {
	return wrapStorage("write", target, err, false)
}

func WrapStorageDeleteError(target string, err error) error {
	return wrapStorage("delete", target, err, true)
}

func wrapStorage(op, target string, err error, missingIsNotFound bool) error {
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, storage.ErrInvalidPath) {
		return NewError(InvalidArgument, fmt.Sprintf("invalid %s id", target), err)
	}
	if missingIsNotFound && isMissing(err) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Internal, "server error", fmt.Errorf("failed to %s %s: %w", op, target, err))
}

// pgx.ErrNoRows matches sql.ErrNoRows as well.
func isMissing(err error) bool {
	return errors.Is(err, storage.ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
