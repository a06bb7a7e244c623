package notes

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/missionctl/missionctl/internal/eventbus"
)

const DefaultDebounce = 250 * time.Millisecond

const (
	storeVault  = "vault"
	storeMemory = "memory"
)

type WatcherOption func(*Watcher)

func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// Watcher publishes note.changed events for markdown files changed on disk
// and drops the cached vault tree. Bursts of events are coalesced so each
// path is reported once per quiet period.
type Watcher struct {
	vault    *Vault
	memory   *Memory
	bus      *eventbus.Bus
	debounce time.Duration
	fsw      *fsnotify.Watcher
}

// NewWatcher starts watching every vault directory plus the workspace root
// and its memory directory. Roots that do not exist are skipped.
func NewWatcher(vault *Vault, memory *Memory, bus *eventbus.Bus, opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		vault:    vault,
		memory:   memory,
		bus:      bus,
		debounce: DefaultDebounce,
		fsw:      fsw,
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.addTree(vault.Root()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fsw.Close()
		return nil, err
	}
	for _, dir := range []string{memory.Root(), filepath.Join(memory.Root(), memoryDir)} {
		if err := fsw.Add(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(p)
		}
		return nil
	})
}

// Run handles events until ctx is done, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	pending := map[string]fsnotify.Op{}
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && w.inVault(ev.Name) {
					if err := w.addTree(ev.Name); err != nil {
						slog.WarnContext(ctx, "failed to watch new vault directory", "path", ev.Name, "error", err)
					}
					w.vault.Invalidate()
					continue
				}
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				if w.inVault(ev.Name) {
					w.vault.Invalidate()
				}
			}
			if !isMarkdown(ev.Name) {
				continue
			}
			pending[ev.Name] |= ev.Op
			timer.Reset(w.debounce)
		case <-timer.C:
			w.flush(ctx, pending)
			clear(pending)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "note watcher error", "error", err)
		}
	}
}

func (w *Watcher) flush(ctx context.Context, pending map[string]fsnotify.Op) {
	invalidated := false
	for full, op := range pending {
		store, rel, ok := w.locate(full)
		if !ok {
			continue
		}
		if store == storeVault && !invalidated {
			w.vault.Invalidate()
			invalidated = true
		}
		slog.DebugContext(ctx, "note changed", "store", store, "path", rel, "op", op.String())
		w.bus.PublishNew(eventbus.NoteChanged, rel, "", map[string]string{
			"store": store,
			"op":    op.String(),
		})
	}
}

func (w *Watcher) inVault(full string) bool {
	_, ok := relativeTo(w.vault.Root(), full)
	return ok
}

// locate maps an absolute path to its store and store-relative path.
func (w *Watcher) locate(full string) (string, string, bool) {
	if rel, ok := relativeTo(w.vault.Root(), full); ok {
		return storeVault, rel, true
	}
	if rel, ok := relativeTo(w.memory.Root(), full); ok {
		return storeMemory, rel, true
	}
	return "", "", false
}

func relativeTo(root, full string) (string, bool) {
	rel, err := filepath.Rel(root, full)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
