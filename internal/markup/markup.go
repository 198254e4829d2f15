// Package markup turns untrusted node titles into markup that is safe to place
// inside an SVG foreignObject.
package markup

import (
	"regexp"
	"strings"

	"github.com/kyokomi/emoji/v2"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Markup is sanitised, well-formed XHTML. Values are only produced by this
// package, so arbitrary strings cannot reach the output unchecked.
type Markup struct{ s string }

func (m Markup) String() string { return m.s }

var (
	reStyle = regexp.MustCompile(`(?i)\s*style\s*=\s*("[^"]*"|'[^']*')`)
	reCode  = regexp.MustCompile(`:[a-zA-Z0-9_+\-]+:`)

	codes = emoji.CodeMap()

	policy    = newPolicy()
	container = &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
)

// newPolicy allows inline formatting only. Everything else, including style and
// event handler attributes, is removed; script and style bodies are dropped.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "strong", "i", "em", "u", "s", "small", "sub", "sup", "code", "span", "br", "p", "div")
	p.AllowAttrs("class").OnElements("span", "p", "div")
	return p
}

// StripStyle removes inline style markers from raw title text.
func StripStyle(text string) string {
	return reStyle.ReplaceAllString(text, "")
}

// Emojis expands recognised :shortcode: tokens in plain text. Unknown codes are
// left as literal text.
func Emojis(text string) string {
	return reCode.ReplaceAllStringFunc(text, func(code string) string {
		if e, ok := codes[strings.ToLower(code)]; ok {
			return strings.TrimSpace(e)
		}
		return code
	})
}

// Title prepares a node title for display: styles are stripped, the markup is
// sanitised against the inline policy, emoji codes in text are expanded and the
// result is serialised as XHTML.
func Title(raw string) Markup {
	clean := policy.Sanitize(StripStyle(raw))
	nodes, err := html.ParseFragment(strings.NewReader(clean), container)
	if err != nil {
		return Markup{s: html.EscapeString(Emojis(raw))}
	}

	var b strings.Builder
	for _, n := range nodes {
		expandText(n)
		if err := html.Render(&b, n); err != nil {
			return Markup{s: html.EscapeString(Emojis(raw))}
		}
	}
	return Markup{s: b.String()}
}

func expandText(n *html.Node) {
	if n.Type == html.TextNode {
		n.Data = Emojis(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		expandText(c)
	}
}
