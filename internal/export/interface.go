package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/modelchat/internal"
)

// Exporter writes one session in a single format
type Exporter interface {
	Export(session *internal.Session, w io.Writer) error
	Extension() string
}

// Formats lists the accepted format names
var Formats = []string{"jsonl", "md", "markdown", "yaml", "json", "html"}

var registry = map[string]func() Exporter{
	"jsonl":    func() Exporter { return &JSONLExporter{} },
	"md":       func() Exporter { return &MarkdownExporter{} },
	"markdown": func() Exporter { return &MarkdownExporter{} },
	"yaml":     func() Exporter { return &YAMLExporter{} },
	"json":     func() Exporter { return &JSONExporter{} },
	"html":     func() Exporter { return &HTMLExporter{} },
}

// NewExporter returns the exporter registered for format
func NewExporter(format string) (Exporter, error) {
	newExporter, ok := registry[format]
	if !ok {
		return nil, fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(Formats, ", "))
	}
	return newExporter(), nil
}
