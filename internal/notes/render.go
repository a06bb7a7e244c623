package notes

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/missionctl/missionctl/pkg/cerr"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.DefinitionList,
	),
)

// RenderHTML converts markdown to HTML. Raw HTML in the source is omitted.
func RenderHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", cerr.NewError(cerr.Internal, "failed to render markdown", err)
	}
	return buf.String(), nil
}
