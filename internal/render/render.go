// Package render turns raw chat text into markup that is safe to place in
// an HTML document.
//
// The supported constructs are a fixed set: fenced code blocks, #/##/###
// headings, **strong**, *em*, `inline code`, [label](http(s) links) and line
// breaks. Rendering is not idempotent; feeding rendered output back in is
// unsupported.
package render

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	fencePattern      = regexp.MustCompile("(?s)```(.*?)```")
	fenceLangPattern  = regexp.MustCompile(`^([A-Za-z0-9_+-]+)[ \t]*\r?\n`)
	headingPattern    = regexp.MustCompile(`(?m)^(#{1,3}) ([^\r\n]*)`)
	strongEmPattern   = regexp.MustCompile(`\*\*\*(.+?)\*\*\*`)
	strongPattern     = regexp.MustCompile(`\*\*(.+?)\*\*`)
	emPattern         = regexp.MustCompile(`\*(.+?)\*`)
	inlineCodePattern = regexp.MustCompile("`([^`\r\n]+)`")
	linkPattern       = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\s)"'<>]+)\)`)
	newlinePattern    = regexp.MustCompile(`\r?\n`)

	// placeholders look like "<12>"; escaping guarantees no raw '<' survives
	// from the input, so these can only be ours
	placeholderPattern = regexp.MustCompile(`<(\d+)>`)
)

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML escapes the five HTML-significant characters. Use it for text
// that is not markdown, such as session titles and previews.
func EscapeHTML(s string) string {
	return attrEscaper.Replace(s)
}

// reserved holds regions already turned into markup. Later steps see only
// their placeholder.
type reserved []string

func (r *reserved) hold(markup string) string {
	*r = append(*r, markup)
	return "<" + strconv.Itoa(len(*r)-1) + ">"
}

// restore expands placeholders. A region may itself hold earlier
// placeholders (a fence inside inline code), so expansion recurses; indices
// only ever point backwards, which bounds the recursion.
func (r reserved) restore(s string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		i, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil || i >= len(r) {
			return m
		}
		return r[:i].restore(r[i])
	})
}

// Render converts raw text to safe markup. The steps run in a fixed order:
//
//  1. escape & < >
//  2. fenced blocks
//  3. headings
//  4. strong+em (***x***), strong, then em
//  5. inline code
//  6. http(s) links
//  7. line breaks
//
// Fenced blocks and inline code are reserved before step 3 so that no later
// step touches their interior.
func Render(text string) string {
	if text == "" {
		return ""
	}

	var held reserved

	out := htmlEscaper.Replace(text)
	out = fencePattern.ReplaceAllStringFunc(out, func(m string) string {
		return held.hold(fencedBlock(m[3 : len(m)-3]))
	})
	out = inlineCodePattern.ReplaceAllStringFunc(out, func(m string) string {
		return held.hold("<code>" + m[1:len(m)-1] + "</code>")
	})

	out = headingPattern.ReplaceAllStringFunc(out, heading)
	out = strongEmPattern.ReplaceAllString(out, "<strong><em>$1</em></strong>")
	out = strongPattern.ReplaceAllString(out, "<strong>$1</strong>")
	out = emPattern.ReplaceAllString(out, "<em>$1</em>")
	out = linkPattern.ReplaceAllString(out, `<a href="$2" target="_blank" rel="noopener noreferrer">$1</a>`)
	out = newlinePattern.ReplaceAllString(out, "<br>")

	return held.restore(out)
}

func fencedBlock(body string) string {
	lang := ""
	if m := fenceLangPattern.FindStringSubmatch(body); m != nil {
		lang = m[1]
		body = body[len(m[0]):]
	}
	body = strings.TrimSpace(body)
	if lang == "" {
		return "<pre><code>" + body + "</code></pre>"
	}
	return `<pre><code class="language-` + lang + `">` + body + "</code></pre>"
}

func heading(m string) string {
	parts := headingPattern.FindStringSubmatch(m)
	level := strconv.Itoa(len(parts[1]))
	return "<h" + level + ">" + parts[2] + "</h" + level + ">"
}
