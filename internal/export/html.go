package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iksnae/modelchat/internal"
	"github.com/iksnae/modelchat/internal/render"
)

// HTMLExporter exports a session as a standalone HTML page. Message bodies
// go through render.Render; every other string is escaped.
type HTMLExporter struct{}

const htmlStyle = `    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; margin: 0; background: #f5f5f5; color: #222; }
        .container { max-width: 860px; margin: 0 auto; padding: 24px; }
        .meta { color: #666; font-size: 0.9em; margin-bottom: 24px; }
        .message { border-radius: 8px; padding: 12px 16px; margin: 12px 0; background: #fff; }
        .message.user { background: #e3f2fd; margin-left: 15%; }
        .message.assistant { margin-right: 15%; }
        .sender { font-weight: bold; font-size: 0.85em; text-transform: capitalize; }
        .time { color: #999; font-size: 0.8em; margin-left: 8px; }
        pre { background: #272822; color: #f8f8f2; padding: 12px; border-radius: 6px; overflow-x: auto; }
        code { font-family: "SF Mono", Menlo, monospace; }
    </style>
`

// Export writes the page
func (e *HTMLExporter) Export(session *internal.Session, w io.Writer) error {
	var sb strings.Builder

	title := render.EscapeHTML(session.Name)

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", title))
	sb.WriteString("    <meta name=\"generator\" content=\"modelchat\">\n")
	sb.WriteString(htmlStyle)
	sb.WriteString("</head>\n")
	sb.WriteString("<body>\n")
	sb.WriteString("    <div class=\"container\">\n")

	sb.WriteString(fmt.Sprintf("        <h1>%s</h1>\n", title))
	sb.WriteString("        <div class=\"meta\">")
	sb.WriteString(fmt.Sprintf("Session %s &middot; user %d &middot; %d messages",
		render.EscapeHTML(session.ID), session.UserID, len(session.Messages)))
	if !session.CreatedAt.IsZero() {
		sb.WriteString(" &middot; created " + formatTimestamp(session.CreatedAt))
	}
	sb.WriteString("</div>\n")

	sb.WriteString("        <main>\n")
	for _, msg := range session.Messages {
		sb.WriteString(renderMessage(msg))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

func renderMessage(msg internal.Message) string {
	var sb strings.Builder

	label := msg.Sender.Label()
	sb.WriteString(fmt.Sprintf("            <div class=\"message %s\">\n", label))
	sb.WriteString(fmt.Sprintf("                <div><span class=\"sender\">%s</span>", label))
	if !msg.Timestamp.IsZero() {
		sb.WriteString(fmt.Sprintf("<span class=\"time\">%s</span>", formatTimestamp(msg.Timestamp)))
	}
	sb.WriteString("</div>\n")
	sb.WriteString("                <div class=\"content\">")
	sb.WriteString(render.Render(msg.Content))
	sb.WriteString("</div>\n")
	sb.WriteString("            </div>\n")

	return sb.String()
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// Extension returns the file extension for this format
func (e *HTMLExporter) Extension() string {
	return "html"
}
