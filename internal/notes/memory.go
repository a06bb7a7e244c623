package notes

import (
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
)

var keyFiles = []string{"SOUL.md", "AGENTS.md", "USER.md", "MEMORY.md", "TOOLS.md", "HEARTBEAT.md"}

const memoryDir = "memory"

var journalName = regexp.MustCompile(`^(\d{4})-(\d{2})-\d{2}\.md$`)

// Memory exposes the agent workspace: its key files and the memory journal.
type Memory struct {
	root string
}

func NewMemory(root string) *Memory {
	return &Memory{root: root}
}

func (m *Memory) Root() string { return m.root }

// Tree lists the key files present in the workspace followed by the memory
// directory. A missing workspace yields an empty tree.
func (m *Memory) Tree() []*Node {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return []*Node{}
	}
	present := make(map[string]bool, len(entries))
	hasMemory := false
	for _, e := range entries {
		present[e.Name()] = true
		if e.Name() == memoryDir && e.IsDir() {
			hasMemory = true
		}
	}

	tree := []*Node{}
	for _, name := range keyFiles {
		if present[name] {
			tree = append(tree, &Node{Name: name, Path: name, Type: NodeFile})
		}
	}
	if hasMemory {
		tree = append(tree, &Node{
			Name:     memoryDir,
			Path:     memoryDir,
			Type:     NodeDirectory,
			Children: m.journal(),
		})
	}
	return tree
}

// journal lists loose markdown files by name, then daily journal files
// grouped into one folder per month, newest month and day first.
func (m *Memory) journal() []*Node {
	entries, err := os.ReadDir(filepath.Join(m.root, memoryDir))
	if err != nil {
		return []*Node{}
	}

	var loose []*Node
	byMonth := map[string][]*Node{}
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		n := &Node{Name: e.Name(), Path: path.Join(memoryDir, e.Name()), Type: NodeFile}
		match := journalName.FindStringSubmatch(e.Name())
		if match == nil {
			loose = append(loose, n)
			continue
		}
		key := match[1] + "-" + match[2]
		byMonth[key] = append(byMonth[key], n)
	}

	tree := []*Node{}
	slices.SortFunc(loose, func(a, b *Node) int { return strings.Compare(a.Name, b.Name) })
	tree = append(tree, loose...)

	months := make([]string, 0, len(byMonth))
	for k := range byMonth {
		months = append(months, k)
	}
	slices.Sort(months)
	slices.Reverse(months)
	for _, month := range months {
		files := byMonth[month]
		slices.SortFunc(files, func(a, b *Node) int { return strings.Compare(b.Name, a.Name) })
		tree = append(tree, &Node{
			Name:     "Daily Journal - " + monthLabel(month),
			Path:     month,
			Type:     NodeDirectory,
			Children: files,
		})
	}
	return tree
}

func monthLabel(key string) string {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return key
	}
	return t.Format("January 2006")
}

// Read returns the content of a file inside the workspace.
func (m *Memory) Read(rel string) (string, error) {
	full, err := resolve(m.root, rel)
	if err != nil {
		return "", err
	}
	return readFile(full)
}
