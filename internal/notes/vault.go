package notes

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sourcegraph/conc/pool"

	"github.com/missionctl/missionctl/pkg/cerr"
)

const (
	maxSearchResults = 100
	snippetBefore    = 80
	snippetAfter     = 120
	searchWorkers    = 8
)

type SearchResult struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
}

// WriteResult describes a vault write. Diff is a unified diff against the
// previous content, empty when nothing changed.
type WriteResult struct {
	Path    string `json:"path"`
	Created bool   `json:"created"`
	Diff    string `json:"diff"`
}

// Vault is a directory tree of markdown notes. The tree listing is cached
// until Invalidate is called.
type Vault struct {
	root string

	mu   sync.Mutex
	tree []*Node
}

func NewVault(root string) *Vault {
	return &Vault{root: root}
}

func (v *Vault) Root() string { return v.root }

func (v *Vault) Invalidate() {
	v.mu.Lock()
	v.tree = nil
	v.mu.Unlock()
}

// Tree lists directories and markdown files sorted by name. A missing vault
// yields an empty tree.
func (v *Vault) Tree() ([]*Node, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.tree != nil {
		return v.tree, nil
	}
	tree, err := buildTree(v.root, "")
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []*Node{}, nil
		}
		return nil, cerr.NewError(cerr.Internal, "failed to read vault", err)
	}
	v.tree = tree
	return tree, nil
}

func buildTree(dir, rel string) ([]*Node, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	nodes := []*Node{}
	for _, e := range entries {
		p := path.Join(rel, e.Name())
		switch {
		case e.IsDir():
			children, err := buildTree(filepath.Join(dir, e.Name()), p)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, &Node{Name: e.Name(), Path: p, Type: NodeDirectory, Children: children})
		case e.Type().IsRegular() && isMarkdown(e.Name()):
			nodes = append(nodes, &Node{Name: e.Name(), Path: p, Type: NodeFile})
		}
	}
	return nodes, nil
}

// Search matches q case-insensitively against file names and contents.
// Results are ordered by path and capped at 100.
func (v *Vault) Search(ctx context.Context, q string) ([]*SearchResult, error) {
	var files []string
	err := filepath.WalkDir(v.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == v.root {
				return fs.SkipAll
			}
			return err
		}
		if d.Type().IsRegular() && isMarkdown(d.Name()) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "failed to search vault", err)
	}

	needle := lowerRunes(q)
	p := pool.NewWithResults[*SearchResult]().WithContext(ctx).WithMaxGoroutines(searchWorkers)
	for _, full := range files {
		p.Go(func(ctx context.Context) (*SearchResult, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return v.match(full, needle), nil
		})
	}
	matched, err := p.Wait()
	if err != nil {
		return nil, cerr.NewError(cerr.Canceled, "search canceled", err)
	}

	results := slices.DeleteFunc(matched, func(r *SearchResult) bool { return r == nil })
	slices.SortFunc(results, func(a, b *SearchResult) int { return strings.Compare(a.Path, b.Path) })
	if len(results) > maxSearchResults {
		results = results[:maxSearchResults]
	}
	return results, nil
}

// match returns nil when neither the file name nor its content contains
// needle. Unreadable files never match.
func (v *Vault) match(full, needle string) *SearchResult {
	data, err := os.ReadFile(full)
	if err != nil {
		return nil
	}
	rel, err := filepath.Rel(v.root, full)
	if err != nil {
		return nil
	}
	name := filepath.Base(full)
	content := string(data)

	idx := strings.Index(lowerRunes(content), needle)
	if idx < 0 && !strings.Contains(lowerRunes(name), needle) {
		return nil
	}
	r := &SearchResult{Path: filepath.ToSlash(rel), Name: name}
	if idx >= 0 {
		r.Snippet = snippet(content, idx)
	}
	return r
}

// lowerRunes lowercases rune by rune so that byte offsets into the result
// map to rune offsets of the input.
func lowerRunes(s string) string {
	return strings.Map(unicode.ToLower, s)
}

// snippet cuts the text around the match at byte offset idx of the
// lowercased content and collapses whitespace.
func snippet(content string, idx int) string {
	runes := []rune(content)
	at := utf8.RuneCountInString(lowerRunes(content)[:idx])
	start := max(0, at-snippetBefore)
	end := min(len(runes), at+snippetAfter)
	return strings.Join(strings.Fields(string(runes[start:end])), " ")
}

// Read returns a markdown file inside the vault.
func (v *Vault) Read(rel string) (string, error) {
	full, err := resolve(v.root, rel)
	if err != nil {
		return "", err
	}
	if !isMarkdown(rel) {
		return "", cerr.NewError(cerr.InvalidArgument, "Only markdown files are readable", nil)
	}
	return readFile(full)
}

// Write replaces a markdown file, creating parent directories as needed.
func (v *Vault) Write(rel, content string) (*WriteResult, error) {
	if !isMarkdown(rel) {
		return nil, cerr.NewError(cerr.InvalidArgument, "Only markdown files can be written", nil)
	}
	full, err := resolve(v.root, rel)
	if err != nil {
		return nil, err
	}

	var prev string
	created := false
	data, err := os.ReadFile(full)
	switch {
	case err == nil:
		prev = string(data)
	case errors.Is(err, fs.ErrNotExist):
		created = true
	default:
		return nil, cerr.NewError(cerr.Internal, "failed to read note", err)
	}

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, cerr.NewError(cerr.Internal, "failed to create note directory", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		return nil, cerr.NewError(cerr.Internal, "failed to write note", err)
	}
	if created {
		v.Invalidate()
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(prev),
		B:        difflib.SplitLines(content),
		FromFile: "a/" + rel,
		ToFile:   "b/" + rel,
		Context:  3,
	})
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "failed to diff note", err)
	}
	return &WriteResult{Path: rel, Created: created, Diff: diff}, nil
}
