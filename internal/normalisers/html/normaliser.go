package html

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Normaliser converts HTML bodies to their plain-text projection.
type Normaliser struct {
	policy *bluemonday.Policy
}

// New creates a normaliser with the user-generated-content sanitising policy.
func New() *Normaliser {
	return &Normaliser{policy: bluemonday.UGCPolicy()}
}

var defaultNormaliser = New()

// Text returns the plain-text projection of an HTML body.
func Text(content string) string {
	return defaultNormaliser.Text(content)
}

// Sanitize strips scripts, event handlers and other unsafe markup.
func Sanitize(content string) string {
	return defaultNormaliser.Sanitize(content)
}

// Title returns the document <title>, falling back to a name derived from path.
func Title(content, path string) string {
	return defaultNormaliser.Title(content, path)
}

var (
	multiSpaces = regexp.MustCompile(`[ \t\r\f\v\x{00a0}]+`)
)

// skipped elements contribute no text.
var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Head:     true,
	atom.Svg:      true,
	atom.Template: true,
	atom.Iframe:   true,
}

// block elements start and end on their own line.
var block = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Hr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Ul: true, atom.Ol: true, atom.Tr: true, atom.Table: true,
	atom.Blockquote: true, atom.Pre: true, atom.Section: true, atom.Article: true,
	atom.Header: true, atom.Footer: true, atom.Figure: true, atom.Figcaption: true,
	atom.Dt: true, atom.Dd: true,
}

// Text returns the plain-text projection of an HTML body.
// Script and style content is dropped, block elements become line breaks,
// entities are decoded and whitespace is collapsed.
func (n *Normaliser) Text(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	doc, err := xhtml.Parse(strings.NewReader(content))
	if err != nil {
		return collapse(content)
	}

	var b strings.Builder
	var walk func(*xhtml.Node)
	walk = func(node *xhtml.Node) {
		switch node.Type {
		case xhtml.TextNode:
			b.WriteString(strings.ReplaceAll(node.Data, "\n", " "))
			return
		case xhtml.CommentNode:
			return
		case xhtml.ElementNode:
			if skipped[node.DataAtom] {
				return
			}
			if block[node.DataAtom] {
				b.WriteString("\n")
				defer b.WriteString("\n")
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return collapse(b.String())
}

func collapse(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(multiSpaces.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// Sanitize strips scripts, event handlers and other unsafe markup while
// keeping formatting elements.
func (n *Normaliser) Sanitize(content string) string {
	return n.policy.Sanitize(content)
}

// Title extracts a title from the <title> element or falls back to the file name.
func (n *Normaliser) Title(content, path string) string {
	if doc, err := xhtml.Parse(strings.NewReader(content)); err == nil {
		if t := findTitle(doc); t != "" {
			return t
		}
	}

	filename := filepath.Base(path)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

func findTitle(node *xhtml.Node) string {
	if node.Type == xhtml.ElementNode && node.DataAtom == atom.Title {
		if node.FirstChild != nil {
			return strings.TrimSpace(node.FirstChild.Data)
		}
		return ""
	}
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}
