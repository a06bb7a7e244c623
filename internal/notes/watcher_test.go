package notes

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/missionctl/missionctl/internal/eventbus"
)

func TestWatcherPublishesNoteChanges(t *testing.T) {
	vaultRoot := t.TempDir()
	workspace := t.TempDir()
	writeFiles(t, vaultRoot, map[string]string{"projects/plan.md": "v1"})
	writeFiles(t, workspace, map[string]string{"memory/2026-03-01.md": ""})

	vault := NewVault(vaultRoot)
	_, err := vault.Tree()
	require.NoError(t, err)

	bus := eventbus.New()
	id, events := bus.Subscribe(16, eventbus.NoteChanged)
	defer bus.Unsubscribe(id)

	w, err := NewWatcher(vault, NewMemory(workspace), bus, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(vaultRoot, "projects", "plan.md"), []byte("v2"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(vaultRoot, "ignored.txt"), []byte("x"), 0o644))

	ev := waitFor(t, events, "projects/plan.md")
	assert.Equal(t, "vault", ev.Metadata["store"])

	require.NoError(t, os.WriteFile(filepath.Join(workspace, "memory", "2026-03-01.md"), []byte("entry"), 0o644))
	ev = waitFor(t, events, "memory/2026-03-01.md")
	assert.Equal(t, "memory", ev.Metadata["store"])
}

func TestWatcherInvalidatesTreeOnDirectoryRemoval(t *testing.T) {
	vaultRoot := t.TempDir()
	writeFiles(t, vaultRoot, map[string]string{"plan.md": "v1"})
	require.NoError(t, os.Mkdir(filepath.Join(vaultRoot, "archive"), 0o755))

	vault := NewVault(vaultRoot)
	tree, err := vault.Tree()
	require.NoError(t, err)
	require.Len(t, tree, 2)

	w, err := NewWatcher(vault, NewMemory(t.TempDir()), eventbus.New(), WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.Remove(filepath.Join(vaultRoot, "archive")))

	assert.Eventually(t, func() bool {
		tree, err := vault.Tree()
		return err == nil && len(tree) == 1 && tree[0].Name == "plan.md"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestWatcherSkipsMissingRoots(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")
	w, err := NewWatcher(NewVault(missing), NewMemory(missing), eventbus.New())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, w.Run(ctx))
}

func waitFor(t *testing.T, events <-chan *eventbus.Event, resourceID string) *eventbus.Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev := <-events:
			assert.NotEqual(t, "ignored.txt", ev.ResourceID)
			if ev.ResourceID == resourceID {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for note.changed on %s", resourceID)
			return nil
		}
	}
}
