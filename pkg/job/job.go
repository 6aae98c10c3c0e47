package job

import (
	"fmt"
	"strings"

	"github.com/1F47E/go-inkwell/pkg/pipeline"
)

// job for the export worker: one queued text item
type Export struct {
	Name    string
	Request pipeline.Request
}

// res from the export worker
type Result struct {
	Name string
	Res  pipeline.Result
}

func New(name string, req pipeline.Request) Export {
	if name == "" {
		name = preview(req.Content.Text)
	}
	return Export{
		Name:    name,
		Request: req,
	}
}

// preview builds a short display name from the text itself,
// first 20 chars like the queue list shows
func preview(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if len(text) > 20 {
		return text[:20] + "..."
	}
	return text
}

func (j *Export) Print() string {
	return fmt.Sprintf("Job: %q, formats: %v, text len: %d", j.Name, j.Request.Formats, len(j.Request.Content.Text))
}
