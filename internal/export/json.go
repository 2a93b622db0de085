package export

import (
	"encoding/json"
	"io"

	"github.com/iksnae/modelchat/internal"
)

// JSONExporter writes a session in the backend's wire shape, so the file
// can be decoded back with internal.Session's JSON decoding
type JSONExporter struct{}

func (e *JSONExporter) Export(session *internal.Session, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	// chat content is full of < > & and must stay readable
	enc.SetEscapeHTML(false)
	return enc.Encode(session)
}

func (e *JSONExporter) Extension() string {
	return "json"
}
