package export

import (
	"fmt"
	"io"

	"github.com/iksnae/modelchat/internal"
	"gopkg.in/yaml.v3"
)

// YAMLExporter exports sessions in YAML format
type YAMLExporter struct{}

// Export writes the session as a YAML document headed by a comment naming it
func (e *YAMLExporter) Export(session *internal.Session, w io.Writer) error {
	var node yaml.Node
	if err := node.Encode(session); err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	node.HeadComment = fmt.Sprintf("%s (user %d, %d messages)", session.Name, session.UserID, len(session.Messages))

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
