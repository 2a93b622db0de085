package render

import (
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "plain text",
			input: "Hello world",
			want:  "Hello world",
		},
		{
			name:  "tags are escaped",
			input: "<b>x</b>",
			want:  "&lt;b&gt;x&lt;/b&gt;",
		},
		{
			name:  "ampersand escaped",
			input: "fish &amp; chips",
			want:  "fish &amp;amp; chips",
		},
		{
			name:  "fence keeps emphasis literal",
			input: "```**bold**```",
			want:  "<pre><code>**bold**</code></pre>",
		},
		{
			name:  "fence keeps newlines",
			input: "```\na\nb\n```",
			want:  "<pre><code>a\nb</code></pre>",
		},
		{
			name:  "fence with language",
			input: "```go\nfmt.Println(1 < 2)\n```",
			want:  `<pre><code class="language-go">fmt.Println(1 &lt; 2)</code></pre>`,
		},
		{
			name:  "unterminated fence is literal",
			input: "```abc",
			want:  "```abc",
		},
		{
			name:  "headings",
			input: "# One\n## Two\n### Three",
			want:  "<h1>One</h1><br><h2>Two</h2><br><h3>Three</h3>",
		},
		{
			name:  "four hashes is not a heading",
			input: "#### Four",
			want:  "#### Four",
		},
		{
			name:  "heading anchored to line start",
			input: "a # b",
			want:  "a # b",
		},
		{
			name:  "heading needs a space",
			input: "#tag",
			want:  "#tag",
		},
		{
			name:  "strong and em",
			input: "**bold** and *em*",
			want:  "<strong>bold</strong> and <em>em</em>",
		},
		{
			name:  "triple asterisks nest em inside strong",
			input: "***both*** and **b *i* b**",
			want:  "<strong><em>both</em></strong> and <strong>b <em>i</em> b</strong>",
		},
		{
			name:  "unterminated strong is literal",
			input: "**open",
			want:  "**open",
		},
		{
			name:  "inline code",
			input: "run `go test` now",
			want:  "run <code>go test</code> now",
		},
		{
			name:  "inline code hides emphasis",
			input: "`*x*` and `# y`",
			want:  "<code>*x*</code> and <code># y</code>",
		},
		{
			name:  "heading containing inline code",
			input: "# Use `go vet`",
			want:  "<h1>Use <code>go vet</code></h1>",
		},
		{
			name:  "https link",
			input: "[x](https://example.com)",
			want:  `<a href="https://example.com" target="_blank" rel="noopener noreferrer">x</a>`,
		},
		{
			name:  "http link with emphasised label",
			input: "[**docs**](http://example.com/a?b=1&c=2)",
			want:  `<a href="http://example.com/a?b=1&amp;c=2" target="_blank" rel="noopener noreferrer"><strong>docs</strong></a>`,
		},
		{
			name:  "javascript link is literal",
			input: "[x](javascript:alert(1))",
			want:  "[x](javascript:alert(1))",
		},
		{
			name:  "line breaks",
			input: "line1\nline2\r\nline3",
			want:  "line1<br>line2<br>line3",
		},
		{
			name:  "placeholder lookalike in input",
			input: "<0> `x`",
			want:  "&lt;0&gt; <code>x</code>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.input); got != tt.want {
				t.Errorf("Render(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRender_NoActiveMarkupFromInput(t *testing.T) {
	inputs := []string{
		"<script>alert(1)</script>",
		"<img src=x onerror=alert(1)>",
		`[x](https://a.com/"onmouseover="alert(1))`,
		`[x](https://a.com/'onclick='alert(1))`,
		"[x](data:text/html,<script>alert(1)</script>)",
		"```<script>```",
		"`<iframe>`",
		"# <svg onload=alert(1)>",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			got := Render(input)
			for _, bad := range []string{"<script", "<img", "<iframe", "<svg"} {
				if strings.Contains(got, bad) {
					t.Errorf("Render(%q) = %q contains %q", input, got, bad)
				}
			}
			if strings.Contains(input, "https://a.com/") && strings.Contains(got, "<a ") {
				t.Errorf("Render(%q) = %q should not produce a link", input, got)
			}
		})
	}
}

func TestRender_FenceInsideInlineCodeIsRestored(t *testing.T) {
	got := Render("`a ```x``` b`")
	if strings.Contains(got, "<0>") || strings.Contains(got, "<1>") {
		t.Errorf("placeholder leaked into output: %q", got)
	}
	if !strings.Contains(got, "<pre><code>x</code></pre>") {
		t.Errorf("nested fence not restored: %q", got)
	}
}

func TestEscapeHTML(t *testing.T) {
	got := EscapeHTML(`a<b>"c"&'d'`)
	want := "a&lt;b&gt;&quot;c&quot;&amp;&#39;d&#39;"
	if got != want {
		t.Errorf("EscapeHTML() = %q, want %q", got, want)
	}
}
