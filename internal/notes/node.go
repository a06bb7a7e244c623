// Package notes serves the agent workspace memory files and the markdown
// vault straight from disk.
package notes

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/missionctl/missionctl/pkg/cerr"
)

type NodeType string

const (
	NodeFile      NodeType = "file"
	NodeDirectory NodeType = "directory"
)

type Node struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Type     NodeType `json:"type"`
	Children []*Node  `json:"children,omitempty"`
}

// resolve joins rel onto root and rejects results outside root.
func resolve(root, rel string) (string, error) {
	full := filepath.Join(root, strings.TrimLeft(rel, "/"))
	r, err := filepath.Rel(root, full)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", cerr.NewError(cerr.InvalidArgument, "Invalid path", nil)
	}
	return full, nil
}

func isMarkdown(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".md")
}

func readFile(full string) (string, error) {
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", cerr.NewError(cerr.NotFound, "File not found", err)
		}
		return "", cerr.NewError(cerr.Internal, "server error", err)
	}
	if !info.Mode().IsRegular() {
		return "", cerr.NewError(cerr.InvalidArgument, "Not a file", nil)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", cerr.NewError(cerr.Internal, "server error", err)
	}
	return string(data), nil
}
