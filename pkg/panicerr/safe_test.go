package panicerr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeRecoversPanic(t *testing.T) {
	err := Safe(func() error { panic("boom") })()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestSafePassesThroughError(t *testing.T) {
	want := errors.New("plain")
	assert.Equal(t, want, Safe(func() error { return want })())
	assert.NoError(t, Safe(func() error { return nil })())
}

func TestSafeContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	err := SafeContext(func(ctx context.Context) error {
		if ctx.Value(key{}) != "v" {
			return errors.New("context not forwarded")
		}
		return nil
	})(ctx)
	assert.NoError(t, err)
}
